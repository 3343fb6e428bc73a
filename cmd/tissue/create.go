package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tissue-dev/tissue/internal/store"
	"github.com/tissue-dev/tissue/internal/types"
)

var createCmd = &cobra.Command{
	Use:     "create <title>",
	Aliases: []string{"new"},
	Short:   "Create a new issue",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		body, _ := cmd.Flags().GetString("body")
		statusStr, _ := cmd.Flags().GetString("status")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		var priority *int
		if cmd.Flags().Changed("priority") {
			v, _ := cmd.Flags().GetInt("priority")
			priority = &v
		}

		s := openStore(cmd.Context())
		defer func() { _ = s.Close() }()

		issue, err := s.CreateIssue(cmd.Context(), store.NewIssue{
			Title:    args[0],
			Body:     body,
			Status:   types.Status(statusStr),
			Priority: priority,
			Tags:     tags,
		})
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(issue)
			return
		}
		fmt.Printf("Created %s: %s\n", issue.ID, issue.Title)
	},
}

func init() {
	createCmd.Flags().StringP("body", "b", "", "issue body")
	createCmd.Flags().StringP("status", "s", "", "initial status (default open)")
	createCmd.Flags().IntP("priority", "p", types.PriorityDefault, "priority 1 (highest) to 5")
	createCmd.Flags().StringSliceP("tag", "t", nil, "tag (repeatable)")
	rootCmd.AddCommand(createCmd)
}
