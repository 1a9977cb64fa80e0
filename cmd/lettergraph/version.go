package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/lettergraph"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of lettergraph",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lettergraph version %s\n", strings.TrimSpace(lettergraph.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
