package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reimportCmd = &cobra.Command{
	Use:   "reimport",
	Short: "Rebuild the cache from the whole log",
	Long: `Reimport truncates the derived cache tables and replays every record in
the log. Normal commands reconcile incrementally on startup; this is the
recovery hammer for a cache you suspect is wrong.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s := openStore(cmd.Context())
		defer func() { _ = s.Close() }()

		res, err := s.ForceReimport(cmd.Context())
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(res)
			return
		}
		fmt.Println(res.String())
	},
}

func init() {
	rootCmd.AddCommand(reimportCmd)
}
