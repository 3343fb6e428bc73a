// Package config resolves runtime configuration. Precedence follows the
// usual order: command-line flags (handled by the CLI), then environment
// variables through viper, then per-store config.yaml, then defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LocalFileName is the per-store config file inside the store directory.
const LocalFileName = "config.yaml"

// Initialize sets up viper's environment bindings. Call once at startup.
func Initialize() {
	viper.SetEnvPrefix("TISSUE")
	viper.AutomaticEnv()
	viper.SetDefault("actor", "")
	viper.SetDefault("dir", "")
}

// Dir returns the store directory named by TISSUE_DIR, or "".
func Dir() string {
	return viper.GetString("dir")
}

// Actor returns the actor name for diagnostics: TISSUE_ACTOR, then $USER,
// then "unknown".
func Actor() string {
	if a := viper.GetString("actor"); a != "" {
		return a
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

// Local is the subset of store configuration kept in config.yaml. The cache
// also records the prefix, but config.yaml survives cache deletion and is the
// value humans edit and review.
type Local struct {
	IssuePrefix string `yaml:"issue-prefix"`
}

// LoadLocal reads config.yaml directly from the store directory, bypassing
// the viper singleton. Returns an empty Local if the file is missing or
// unparseable.
func LoadLocal(storeDir string) *Local {
	data, err := os.ReadFile(filepath.Join(storeDir, LocalFileName)) // #nosec G304 - path within store dir
	if err != nil {
		return &Local{}
	}
	var l Local
	if err := yaml.Unmarshal(data, &l); err != nil {
		return &Local{}
	}
	return &l
}

// Save writes config.yaml atomically so a crashed process never leaves a
// truncated file behind.
func (l *Local) Save(storeDir string) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return err
	}
	path := filepath.Join(storeDir, LocalFileName)
	return atomic.WriteFile(path, strings.NewReader(string(data)))
}
