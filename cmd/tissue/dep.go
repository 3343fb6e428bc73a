package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tissue-dev/tissue/internal/types"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage dependency edges between issues",
}

var depAddCmd = &cobra.Command{
	Use:   "add <src> <dst>",
	Short: "Add a dependency edge (src blocks/parents/relates-to dst)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		kindStr, _ := cmd.Flags().GetString("kind")

		s := openStore(cmd.Context())
		defer func() { _ = s.Close() }()

		src := resolveIssueID(cmd.Context(), s, args[0])
		dst := resolveIssueID(cmd.Context(), s, args[1])
		dep, err := s.AddDep(cmd.Context(), src, dst, types.DepKind(kindStr))
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(dep)
			return
		}
		fmt.Printf("Added %s: %s -> %s\n", dep.Kind, dep.SrcID, dep.DstID)
	},
}

var depRmCmd = &cobra.Command{
	Use:     "rm <src> <dst>",
	Aliases: []string{"remove"},
	Short:   "Remove a dependency edge",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		kindStr, _ := cmd.Flags().GetString("kind")

		s := openStore(cmd.Context())
		defer func() { _ = s.Close() }()

		src := resolveIssueID(cmd.Context(), s, args[0])
		dst := resolveIssueID(cmd.Context(), s, args[1])
		dep, err := s.RemoveDep(cmd.Context(), src, dst, types.DepKind(kindStr))
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(dep)
			return
		}
		fmt.Printf("Removed %s: %s -> %s\n", dep.Kind, dep.SrcID, dep.DstID)
	},
}

var depListCmd = &cobra.Command{
	Use:   "list <id>",
	Short: "List the active edges touching an issue",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := openStore(cmd.Context())
		defer func() { _ = s.Close() }()

		id := resolveIssueID(cmd.Context(), s, args[0])
		deps, err := s.Deps(cmd.Context(), id)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(deps)
			return
		}
		if len(deps) == 0 {
			fmt.Println("No dependencies.")
			return
		}
		for _, d := range deps {
			fmt.Printf("%s\n", describeDep(id, d))
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{depAddCmd, depRmCmd} {
		c.Flags().StringP("kind", "k", string(types.DepBlocks), "edge kind: blocks, parent or relates")
	}
	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRmCmd)
	depCmd.AddCommand(depListCmd)
	rootCmd.AddCommand(depCmd)
}
