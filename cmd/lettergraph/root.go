package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/lettergraph/internal/cli"
	"github.com/aretw0/lettergraph/internal/config"
	"github.com/aretw0/lettergraph/pkg/redact"
)

// errAborted makes the process exit with status 2 when a letter must not be sent.
var errAborted = errors.New("letter aborted by a blocking compliance rule")

var (
	cfg      *config.Config
	redactor *redact.Redactor
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lettergraph",
	Short: "lettergraph evaluates logic graphs for healthcare correspondence",
	Long: `lettergraph interprets author-built letter graphs against member, claim and
provider data and decides which content appears in each generated letter,
enforcing the compliance rules attached to the graph.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		applyFlags(cmd)
		redactor, err = cli.NewRedactor(cfg)
		if err != nil {
			return err
		}
		logger = cli.NewLogger(cfg, redactor)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errAborted) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands); they override LETTERGRAPH_* variables.
	f := rootCmd.PersistentFlags()
	f.String("graphs", "", "Directory containing graph documents (LETTERGRAPH_GRAPH_DIR)")
	f.String("content", "", "Directory containing content blocks (LETTERGRAPH_CONTENT_DIR)")
	f.String("log-level", "", "debug, info, warn or error (LETTERGRAPH_LOG_LEVEL)")
	f.String("log-format", "", "text or json (LETTERGRAPH_LOG_FORMAT)")
	f.Bool("strict", false, "Reject graphs whose expressions reference undeclared variables")
}

func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("graphs") {
		cfg.GraphDir, _ = flags.GetString("graphs")
	}
	if flags.Changed("content") {
		cfg.ContentDir, _ = flags.GetString("content")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("strict") {
		cfg.StrictExprs, _ = flags.GetBool("strict")
	}
}

func buildApp() (*cli.App, error) {
	return cli.Build(cfg, logger, redactor)
}
