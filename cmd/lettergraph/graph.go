package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/lettergraph/internal/presentation/graph"
	"github.com/aretw0/lettergraph/pkg/adapters/file"
	"github.com/aretw0/lettergraph/pkg/domain"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <id|file>",
	Short: "Export a graph as a Mermaid flowchart",
	Long: `Outputs a Mermaid diagram (graph TD) of a letter graph. With --data the graph
is evaluated first and the chart marks the nodes that contributed content and
the nodes that raised warnings, violations or review flags.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataPath, _ := cmd.Flags().GetString("data")

		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		var doc *domain.GraphDocument
		if isDocumentPath(args[0]) {
			doc, err = file.ReadDocument(args[0])
		} else {
			doc, err = app.Engine.Document(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if dataPath != "" {
			req, err := requestFromFlags(cmd)
			if err != nil {
				return err
			}
			if req.Data, err = readData(cmd.InOrStdin(), dataPath); err != nil {
				return err
			}
			res, err := app.Engine.EvaluateDocument(cmd.Context(), doc, req)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFromResult(res)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(doc, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	f := graphCmd.Flags()
	f.StringP("data", "d", "", "Evaluate with this data context and overlay the result")
	f.StringP("channel", "c", "mail", "Delivery channel for --data")
	f.StringP("language", "l", "", "Language tag for --data")
	f.String("variation", "", "Content variation for --data")
	f.StringP("format", "f", "text", "Output format for --data")
	f.String("as-of", "", "Evaluation date for --data (YYYY-MM-DD)")
}
