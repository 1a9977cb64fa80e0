package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List the node types graphs may use",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		defs := app.Engine.NodeTypes()
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(defs)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tCATEGORY\tBRANCH\tDESCRIPTION")
		for _, d := range defs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Type, d.Category, d.Branch, d.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(nodesCmd)
	nodesCmd.Flags().Bool("json", false, "Print definitions with their config schema as JSON")
}
