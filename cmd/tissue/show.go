package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tissue-dev/tissue/internal/types"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an issue with its comments and dependencies",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		s := openStore(ctx)
		defer func() { _ = s.Close() }()

		id := resolveIssueID(ctx, s, args[0])
		issue, err := s.GetIssue(ctx, id)
		if err != nil {
			fatalf("%v", err)
		}
		comments, err := s.Comments(ctx, id)
		if err != nil {
			fatalf("%v", err)
		}
		deps, err := s.Deps(ctx, id)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(struct {
				Issue    *types.Issue     `json:"issue"`
				Comments []*types.Comment `json:"comments"`
				Deps     []*types.Dep     `json:"deps"`
			}{issue, comments, deps})
			return
		}

		fmt.Printf("%s  %s\n", issue.ID, issue.Title)
		fmt.Printf("  status:   %s\n", colorStatus(issue.Status))
		fmt.Printf("  priority: %d\n", issue.Priority)
		if len(issue.Tags) > 0 {
			fmt.Printf("  tags:     %s\n", strings.Join(issue.Tags, ", "))
		}
		fmt.Printf("  created:  %s\n", formatTime(issue.CreatedAt))
		fmt.Printf("  updated:  %s\n", formatTime(issue.UpdatedAt))
		if issue.Body != "" {
			fmt.Printf("\n%s\n", issue.Body)
		}

		if len(deps) > 0 {
			fmt.Printf("\nDependencies:\n")
			for _, d := range deps {
				fmt.Printf("  %s\n", describeDep(issue.ID, d))
			}
		}

		if len(comments) > 0 {
			fmt.Printf("\nComments:\n")
			for _, c := range comments {
				fmt.Printf("  [%s]\n  %s\n", formatTime(c.CreatedAt), c.Body)
			}
		}
	},
}

// describeDep renders an edge from the perspective of the shown issue.
func describeDep(id string, d *types.Dep) string {
	switch d.Kind {
	case types.DepBlocks:
		if d.SrcID == id {
			return fmt.Sprintf("blocks %s", d.DstID)
		}
		return fmt.Sprintf("blocked by %s", d.SrcID)
	case types.DepParent:
		if d.SrcID == id {
			return fmt.Sprintf("parent of %s", d.DstID)
		}
		return fmt.Sprintf("child of %s", d.SrcID)
	default:
		other := d.DstID
		if other == id {
			other = d.SrcID
		}
		return fmt.Sprintf("relates to %s", other)
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
}
