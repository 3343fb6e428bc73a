package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var commentCmd = &cobra.Command{
	Use:   "comment <id> <body>",
	Short: "Add a comment to an issue",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		s := openStore(cmd.Context())
		defer func() { _ = s.Close() }()

		id := resolveIssueID(cmd.Context(), s, args[0])
		comment, err := s.AddComment(cmd.Context(), id, args[1])
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(comment)
			return
		}
		fmt.Printf("Commented on %s\n", id)
	},
}

func init() {
	rootCmd.AddCommand(commentCmd)
}
