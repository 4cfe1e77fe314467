package main

import (
	"fmt"

	"github.com/jwtly10/ws2md"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of ws2md",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ws2md %s\n", ws2md.VERSION)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
