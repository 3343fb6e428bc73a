package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/tissue-dev/tissue/internal/debug"
	"github.com/tissue-dev/tissue/internal/journal"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the log and reconcile the cache as it changes",
	Long: `Watch keeps the cache current while the log changes underneath, for
example during a git pull or while another tool appends records. Each
change is debounced briefly, then reconciled and reported. Stop with
Ctrl-C.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s := openStore(ctx)
		defer func() { _ = s.Close() }()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			fatalf("start watcher: %v", err)
		}
		defer func() { _ = watcher.Close() }()

		// Watch the directory, not the file: rewrites replace the log by
		// rename, which would silently drop a file-level watch.
		if err := watcher.Add(s.Dir()); err != nil {
			fatalf("watch %s: %v", s.Dir(), err)
		}
		fmt.Printf("Watching %s\n", s.JournalPath())

		// Debounce timer: bursts of events (git checkout touches the file
		// several times) collapse into one reconcile.
		const settle = 200 * time.Millisecond
		timer := time.NewTimer(0)
		if !timer.Stop() {
			<-timer.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != journal.FileName {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				timer.Reset(settle)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				debug.Warnf("watch error: %v", err)
			case <-timer.C:
				res, err := s.Reconcile(context.WithoutCancel(ctx))
				if err != nil {
					debug.Warnf("reconcile: %v", err)
					continue
				}
				if res.Issues > 0 || res.Comments > 0 || res.Deps > 0 || res.Skipped > 0 {
					fmt.Println(res.String())
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
