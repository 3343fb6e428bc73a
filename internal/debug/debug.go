// Package debug provides env-gated diagnostics. Normal runs are silent;
// TISSUE_DEBUG=1 turns on stderr tracing, and once a store is open the same
// lines also go to a size-capped rotating debug.log inside the store
// directory. Import warnings are not gated: malformed log lines always reach
// stderr.
package debug

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	enabled = os.Getenv("TISSUE_DEBUG") != ""

	mu      sync.Mutex
	fileLog *log.Logger
)

// Enabled reports whether debug tracing is on.
func Enabled() bool {
	return enabled
}

// AttachStore points the rotating file log at the given store directory.
// No-op unless debugging is enabled.
func AttachStore(dir string) {
	if !enabled {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fileLog = log.New(&lumberjack.Logger{
		Filename:   filepath.Join(dir, "debug.log"),
		MaxSize:    5, // MB
		MaxBackups: 2,
	}, "", log.LstdFlags|log.Lmicroseconds)
}

// Logf writes a debug line when tracing is enabled.
func Logf(format string, args ...any) {
	if !enabled {
		return
	}
	fmt.Fprintf(os.Stderr, "tissue: "+format+"\n", args...)
	mu.Lock()
	if fileLog != nil {
		fileLog.Printf(format, args...)
	}
	mu.Unlock()
}

// Warnf writes a diagnostic line unconditionally. Used for conditions that
// are survivable but should not pass silently, like unparseable log records.
func Warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "tissue: warning: "+format+"\n", args...)
	mu.Lock()
	if fileLog != nil {
		fileLog.Printf("warning: "+format, args...)
	}
	mu.Unlock()
}
