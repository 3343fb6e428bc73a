package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show store paths, prefix and row counts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s := openStore(cmd.Context())
		defer func() { _ = s.Close() }()

		info, err := s.Info(cmd.Context())
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			outputJSON(info)
			return
		}
		fmt.Printf("store:     %s\n", info.Dir)
		fmt.Printf("log:       %s\n", info.LogPath)
		fmt.Printf("cache:     %s\n", info.DBPath)
		fmt.Printf("prefix:    %s\n", info.Prefix)
		fmt.Printf("offset:    %d\n", info.Offset)
		fmt.Printf("issues:    %d\n", info.Issues)
		fmt.Printf("comments:  %d\n", info.Comments)
		fmt.Printf("deps:      %d\n", info.Deps)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
