package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List open issues with no unresolved blockers",
	Long: `Ready issues are open and not blocked, directly or transitively, by any
issue that is still open, in progress or paused. They are what you can
start working on right now, highest priority first.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		s := openStore(cmd.Context())
		defer func() { _ = s.Close() }()

		issues, err := s.ReadyIssues(cmd.Context(), limit)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(issues)
			return
		}
		if len(issues) == 0 {
			fmt.Println("No ready issues.")
			return
		}
		printIssueTable(issues)
	},
}

func init() {
	readyCmd.Flags().IntP("limit", "n", 0, "maximum number of results")
	rootCmd.AddCommand(readyCmd)
}
