package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/lettergraph/pkg/adapters/file"
	"github.com/aretw0/lettergraph/pkg/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Check graphs for structural problems",
	Long: `Validates graph documents: unknown node types, invalid configs, dangling
edges, cycles, unreachable nodes and malformed expressions. Without arguments
every graph of the graph directory is checked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cmd.Context()
		type target struct {
			name string
			load func() (*domain.GraphDocument, error)
		}
		var targets []target
		if len(args) > 0 {
			for _, path := range args {
				targets = append(targets, target{path, func() (*domain.GraphDocument, error) { return file.ReadDocument(path) }})
			}
		} else {
			ids, err := app.Engine.Graphs(ctx)
			if err != nil {
				return err
			}
			for _, id := range ids {
				targets = append(targets, target{id, func() (*domain.GraphDocument, error) { return app.Engine.Loader().Load(ctx, id) }})
			}
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, t := range targets {
			doc, err := t.load()
			if err == nil {
				err = app.Engine.Validate(ctx, doc)
			}
			var ge *domain.GraphError
			switch {
			case err == nil:
				fmt.Fprintf(out, "ok    %s\n", t.name)
				continue
			case errors.As(err, &ge):
				fmt.Fprintf(out, "FAIL  %s\n", t.name)
				for _, p := range ge.Problems {
					fmt.Fprintf(out, "      %s\n", p)
				}
			default:
				fmt.Fprintf(out, "FAIL  %s: %v\n", t.name, err)
			}
			failed++
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d graph(s) invalid", failed, len(targets))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
