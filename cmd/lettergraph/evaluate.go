package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/lettergraph/internal/presentation/tui"
	"github.com/aretw0/lettergraph/pkg/adapters/file"
	"github.com/aretw0/lettergraph/pkg/domain"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one letter",
	Long: `Evaluates a graph against a data context and prints the letter with its
violations, review flags and warnings. --graph takes a graph id from the graph
directory or the path of a JSON/YAML graph document.

Exit status is 2 when a blocking compliance rule aborted the letter.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		graph, _ := cmd.Flags().GetString("graph")
		dataPath, _ := cmd.Flags().GetString("data")
		asJSON, _ := cmd.Flags().GetBool("json")
		pretty, _ := cmd.Flags().GetBool("pretty")

		req, err := requestFromFlags(cmd)
		if err != nil {
			return err
		}
		if req.Data, err = readData(cmd.InOrStdin(), dataPath); err != nil {
			return err
		}

		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		var res *domain.EvaluationResult
		if isDocumentPath(graph) {
			doc, err := file.ReadDocument(graph)
			if err != nil {
				return err
			}
			res, err = app.Engine.EvaluateDocument(cmd.Context(), doc, req)
			if err != nil {
				return err
			}
		} else {
			req.GraphID = graph
			if res, err = app.Engine.Evaluate(cmd.Context(), req); err != nil {
				return err
			}
		}

		if asJSON {
			if redactor != nil {
				res = redactor.Result(res)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(res); err != nil {
				return err
			}
		} else {
			tui.NewReport(os.Stdout).Print(res)
		}
		if res.Aborted {
			return errAborted
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	f := evaluateCmd.Flags()
	f.StringP("graph", "g", "", "Graph id or graph document path")
	f.StringP("data", "d", "", "Data context JSON file, - for stdin (default {})")
	f.StringP("channel", "c", "mail", "Delivery channel")
	f.StringP("language", "l", "", "Language tag, e.g. es-MX")
	f.String("variation", "", "Content variation")
	f.StringP("format", "f", "text", "html, markdown or text")
	f.String("as-of", "", "Evaluation date (YYYY-MM-DD)")
	f.Bool("json", false, "Print the full result as JSON")
	f.Bool("pretty", false, "Indent JSON output")
	_ = evaluateCmd.MarkFlagRequired("graph")
}

func requestFromFlags(cmd *cobra.Command) (domain.Request, error) {
	f := cmd.Flags()
	var req domain.Request
	req.Channel, _ = f.GetString("channel")
	req.Language, _ = f.GetString("language")
	req.Variation, _ = f.GetString("variation")
	req.Format, _ = f.GetString("format")
	if asOf, _ := f.GetString("as-of"); asOf != "" {
		t, err := time.Parse(time.DateOnly, asOf)
		if err != nil {
			return req, fmt.Errorf("--as-of: %w", err)
		}
		req.AsOf = t
	}
	return req, nil
}

func readData(stdin io.Reader, path string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	switch path {
	case "":
		return json.RawMessage(`{}`), nil
	case "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read data context: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: data context is not valid JSON", domain.ErrInvalidRequest)
	}
	return data, nil
}

// isDocumentPath reports whether arg names a graph document file rather than a graph id.
func isDocumentPath(arg string) bool {
	switch filepath.Ext(arg) {
	case ".json", ".yaml", ".yml":
	default:
		return false
	}
	info, err := os.Stat(arg)
	return err == nil && !info.IsDir()
}
