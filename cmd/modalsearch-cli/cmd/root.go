// Package cmd provides the CLI commands for modalsearch.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/modalsearch/internal/app"
	"github.com/kailas-cloud/modalsearch/internal/config"
	logpkg "github.com/kailas-cloud/modalsearch/internal/logger"
	"github.com/kailas-cloud/modalsearch/internal/version"
)

// rootState is shared by all subcommands of one invocation.
type rootState struct {
	configPath string
	corpusPath string
	format     string
	debug      bool

	app    *app.App
	logger *zap.Logger
}

// NewRootCmd creates the root command for the modalsearch CLI.
func NewRootCmd() *cobra.Command {
	st := &rootState{}

	cmd := &cobra.Command{
		Use:   "modalsearch",
		Short: "Cross-modal search over text, code, images, audio and video",
		Long: `modalsearch retrieves content across modalities, links related items
(code that implements a tutorial, a diagram that visualizes a concept) and
ranks them with configurable weight profiles.

Without --config it runs fully offline: an in-memory HNSW store and a
hashing embedder, loaded from --corpus.`,
		Version:           version.Version,
		SilenceUsage:      true,
		PersistentPreRunE: st.setup,
		PersistentPostRun: st.teardown,
	}
	cmd.SetVersionTemplate("modalsearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&st.configPath, "config", "c", "", "Path to a YAML config (default: offline in-memory setup)")
	cmd.PersistentFlags().StringVar(&st.corpusPath, "corpus", "", "YAML corpus to ingest before running the command")
	cmd.PersistentFlags().StringVarP(&st.format, "format", "f", "text", "Output format: text, json")
	cmd.PersistentFlags().BoolVar(&st.debug, "debug", false, "Enable debug logging to stderr")

	cmd.AddCommand(
		newSearchCmd(st),
		newStrategiesCmd(st),
		newExplainCmd(st),
		newStatsCmd(st),
		newIngestCmd(st),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (st *rootState) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	if st.format != "text" && st.format != "json" {
		return fmt.Errorf("unknown format %q, want text or json", st.format)
	}

	cfg := config.Default()
	if st.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(st.configPath); err != nil {
			return err //nolint:wrapcheck // already descriptive
		}
	}

	level := "warn"
	if st.debug {
		level = "debug"
	}
	logger, err := logpkg.NewLogger("local", level)
	if err != nil {
		return err //nolint:wrapcheck // already descriptive
	}
	st.logger = logger

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	st.app = a

	corpus := st.corpusPath
	if corpus == "" {
		corpus = cfg.Storage.CorpusPath
	}
	if corpus != "" {
		sum, err := a.LoadCorpus(cmd.Context(), corpus)
		if err != nil {
			return err //nolint:wrapcheck // already descriptive
		}
		if sum.Failed > 0 {
			logger.Warn("Some corpus items were rejected", zap.Int("failed", sum.Failed))
		}
	}
	return nil
}

func (st *rootState) teardown(*cobra.Command, []string) {
	if st.app != nil {
		st.app.Close()
	}
	if st.logger != nil {
		_ = st.logger.Sync()
	}
}

func (st *rootState) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "modalsearch %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
