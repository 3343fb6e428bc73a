package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tissue-dev/tissue/internal/store"
	"github.com/tissue-dev/tissue/internal/types"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issues, optionally filtered or searched",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		tag, _ := cmd.Flags().GetString("tag")
		search, _ := cmd.Flags().GetString("search")
		limit, _ := cmd.Flags().GetInt("limit")

		s := openStore(cmd.Context())
		defer func() { _ = s.Close() }()

		issues, err := s.ListIssues(cmd.Context(), store.ListOptions{
			Status: status,
			Tag:    tag,
			Search: search,
			Limit:  limit,
		})
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(issues)
			return
		}
		if len(issues) == 0 {
			fmt.Println("No issues found.")
			return
		}
		printIssueTable(issues)
	},
}

func printIssueTable(issues []*types.Issue) {
	for _, issue := range issues {
		line := fmt.Sprintf("%-16s P%d  %-12s %s", issue.ID, issue.Priority, colorStatus(issue.Status), issue.Title)
		if len(issue.Tags) > 0 {
			line += "  [" + strings.Join(issue.Tags, ",") + "]"
		}
		fmt.Println(line)
	}
}

func init() {
	listCmd.Flags().StringP("status", "s", "", "filter by status")
	listCmd.Flags().StringP("tag", "t", "", "filter by exact tag")
	listCmd.Flags().StringP("search", "q", "", "full-text search over title, body and comments")
	listCmd.Flags().IntP("limit", "n", 0, "maximum number of results")
	rootCmd.AddCommand(listCmd)
}
