package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tissue-dev/tissue/internal/config"
	"github.com/tissue-dev/tissue/internal/debug"
	"github.com/tissue-dev/tissue/internal/store"
	"github.com/tissue-dev/tissue/internal/types"
)

var (
	storeDir   string
	jsonOutput bool
	actorFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "tissue",
	Short: "Local, git-native issue tracking",
	Long: `tissue tracks issues in a plain JSONL log that lives in your repository
and travels with it through git. A derived SQLite cache makes listing,
search and dependency queries fast; deleting it loses nothing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	config.Initialize()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeDir, "dir", "", "store directory (default: nearest .tissue, or $TISSUE_DIR)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON instead of text")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "actor name recorded in diagnostics (default: $TISSUE_ACTOR or $USER)")
}

// resolveStoreDir applies the lookup order: --dir flag, then the nearest
// .tissue directory walking up from the working directory, then $TISSUE_DIR.
func resolveStoreDir() (string, error) {
	if storeDir != "" {
		return storeDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if dir := store.FindStoreDir(cwd); dir != "" {
		return dir, nil
	}
	if dir := config.Dir(); dir != "" {
		return dir, nil
	}
	return "", fmt.Errorf("no %s directory found (run 'tissue init' first)", store.DirName)
}

// openStore resolves the store directory and opens it, exiting on failure.
// Every command that needs an open store goes through here, so the cache is
// always reconciled with the log before any read or write.
func openStore(ctx context.Context) *store.Store {
	dir, err := resolveStoreDir()
	if err != nil {
		fatalf("%v", err)
	}
	s, err := store.Open(ctx, dir)
	if err != nil {
		fatalf("open store at %s: %v", dir, err)
	}
	debug.Logf("command run by %s", actor())
	return s
}

func actor() string {
	if actorFlag != "" {
		return actorFlag
	}
	return config.Actor()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatalf("encode output: %v", err)
	}
}

// resolveIssueID expands user input to a full ID, exiting with a helpful
// message on ambiguity or no match.
func resolveIssueID(ctx context.Context, s *store.Store, input string) string {
	id, err := s.ResolveID(ctx, input)
	if err != nil {
		fatalf("%v", err)
	}
	return id
}

func formatTime(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

var statusColors = map[types.Status]*color.Color{
	types.StatusOpen:       color.New(color.FgGreen),
	types.StatusInProgress: color.New(color.FgYellow),
	types.StatusPaused:     color.New(color.FgCyan),
	types.StatusDuplicate:  color.New(color.FgHiBlack),
	types.StatusClosed:     color.New(color.FgHiBlack),
}

func colorStatus(s types.Status) string {
	if c, ok := statusColors[s]; ok {
		return c.Sprint(string(s))
	}
	return string(s)
}
