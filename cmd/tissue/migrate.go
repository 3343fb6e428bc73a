package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <source-store-dir>",
	Short: "Merge issues from another store into this one",
	Long: `Migrate copies issues, comments and dependency edges from another store
directory into this one, preserving IDs and history. Records that already
exist here are skipped, so running it twice is safe.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		s := openStore(cmd.Context())
		defer func() { _ = s.Close() }()

		res, err := s.MigrateFrom(cmd.Context(), args[0], dryRun)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(res)
			return
		}
		if dryRun {
			fmt.Printf("Would migrate %s\n", res)
			return
		}
		fmt.Printf("Migrated %s\n", res)
	},
}

func init() {
	migrateCmd.Flags().Bool("dry-run", false, "report what would be migrated without writing")
	rootCmd.AddCommand(migrateCmd)
}
