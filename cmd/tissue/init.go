package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tissue-dev/tissue/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .tissue store in the current directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		prefix, _ := cmd.Flags().GetString("prefix")

		dir := storeDir
		if dir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				fatalf("%v", err)
			}
			dir = filepath.Join(cwd, store.DirName)
		}

		s, err := store.Init(cmd.Context(), dir, prefix)
		if err != nil {
			fatalf("init store at %s: %v", dir, err)
		}
		defer func() { _ = s.Close() }()

		if jsonOutput {
			outputJSON(map[string]string{"dir": s.Dir(), "prefix": s.Prefix()})
			return
		}
		fmt.Printf("Initialized store at %s (issue prefix %q)\n", s.Dir(), s.Prefix())
	},
}

func init() {
	initCmd.Flags().String("prefix", "", "issue ID prefix (default: repository directory name)")
	rootCmd.AddCommand(initCmd)
}
