package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tissue-dev/tissue/internal/store"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove closed and duplicate issues from the log",
	Long: `Clean purges issues in a terminal status (closed or duplicate) from the
log, along with their comments and any dependency edges touching them.
This rewrites history: the purged issues are gone from the file that git
tracks. Without --force it only lists what would be removed.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("older-than")
		force, _ := cmd.Flags().GetBool("force")

		s := openStore(cmd.Context())
		defer func() { _ = s.Close() }()

		removed, err := s.Clean(cmd.Context(), store.CleanOptions{
			OlderThanDays: days,
			Force:         force,
		})
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(map[string]any{"issues": removed, "removed": force})
			return
		}
		if len(removed) == 0 {
			fmt.Println("Nothing to clean.")
			return
		}
		if force {
			fmt.Printf("Removed %d issues:\n", len(removed))
		} else {
			fmt.Printf("Would remove %d issues (use --force to apply):\n", len(removed))
		}
		printIssueTable(removed)
	},
}

func init() {
	cleanCmd.Flags().Int("older-than", 0, "only issues untouched for at least this many days")
	cleanCmd.Flags().Bool("force", false, "actually rewrite the log")
	rootCmd.AddCommand(cleanCmd)
}
