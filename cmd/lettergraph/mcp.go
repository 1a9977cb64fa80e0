package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/aretw0/lettergraph"
	"github.com/aretw0/lettergraph/internal/cli"
	"github.com/aretw0/lettergraph/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes letter evaluation and graph validation as MCP tools, so agents can
draft and check letters against the same graphs the service uses.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Logs go to stderr.
- sse: Uses Server-Sent Events over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		baseURL, _ := cmd.Flags().GetString("base-url")

		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Engine, lettergraph.Version, mcp.WithRedactor(redactor), mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			logger.Info("starting MCP server", "transport", "stdio")
			return srv.ServeStdio()
		case "sse":
			if baseURL == "" {
				baseURL = "http://localhost" + addr
			}
			sc := cli.NewSignalContext(cmd.Context())
			defer sc.Cancel()
			if err := srv.ServeSSE(sc, addr, baseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP server stopped", "signal", sc.Signal())
			return nil
		default:
			return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	f := mcpCmd.Flags()
	f.StringP("transport", "t", "stdio", "Transport: stdio or sse")
	f.StringP("addr", "a", ":8081", "Listen address for sse")
	f.String("base-url", "", "Public base URL for sse (default http://localhost<addr>)")
}
