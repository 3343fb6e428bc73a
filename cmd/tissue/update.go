package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tissue-dev/tissue/internal/store"
	"github.com/tissue-dev/tissue/internal/types"
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of an issue",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := openStore(cmd.Context())
		defer func() { _ = s.Close() }()

		var patch store.IssuePatch
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			patch.Title = &v
		}
		if cmd.Flags().Changed("body") {
			v, _ := cmd.Flags().GetString("body")
			patch.Body = &v
		}
		if cmd.Flags().Changed("status") {
			v, _ := cmd.Flags().GetString("status")
			st := types.Status(v)
			patch.Status = &st
		}
		if cmd.Flags().Changed("priority") {
			v, _ := cmd.Flags().GetInt("priority")
			patch.Priority = &v
		}
		patch.AddTags, _ = cmd.Flags().GetStringSlice("add-tag")
		patch.RemoveTags, _ = cmd.Flags().GetStringSlice("remove-tag")

		if patch.Title == nil && patch.Body == nil && patch.Status == nil &&
			patch.Priority == nil && len(patch.AddTags) == 0 && len(patch.RemoveTags) == 0 {
			fatalf("nothing to update (see 'tissue update --help')")
		}

		id := resolveIssueID(cmd.Context(), s, args[0])
		issue, err := s.UpdateIssue(cmd.Context(), id, patch)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(issue)
			return
		}
		fmt.Printf("Updated %s: %s [%s]\n", issue.ID, issue.Title, issue.Status)
	},
}

var closeCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Mark an issue closed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := openStore(cmd.Context())
		defer func() { _ = s.Close() }()

		id := resolveIssueID(cmd.Context(), s, args[0])
		st := types.StatusClosed
		issue, err := s.UpdateIssue(cmd.Context(), id, store.IssuePatch{Status: &st})
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(issue)
			return
		}
		fmt.Printf("Closed %s: %s\n", issue.ID, issue.Title)
	},
}

func init() {
	updateCmd.Flags().String("title", "", "new title")
	updateCmd.Flags().StringP("body", "b", "", "new body")
	updateCmd.Flags().StringP("status", "s", "", "new status")
	updateCmd.Flags().IntP("priority", "p", 0, "new priority 1-5")
	updateCmd.Flags().StringSlice("add-tag", nil, "tag to add (repeatable)")
	updateCmd.Flags().StringSlice("remove-tag", nil, "tag to remove (repeatable)")
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(closeCmd)
}
