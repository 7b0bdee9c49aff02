package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIngestCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <corpus.yaml>...",
		Short: "Embed and store corpus files in the configured vector store",
		Long: `Embed and store corpus files. With the default in-memory store the
data lives only for this invocation; point --config at a redis setup to
persist it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				sum, err := st.app.LoadCorpus(st.context(cmd), path)
				if err != nil {
					return err //nolint:wrapcheck // already descriptive
				}
				if st.format == "json" {
					if err := writeJSON(cmd.OutOrStdout(), map[string]any{"path": path, "summary": sum}); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d stored, %d failed\n", path, sum.Succeeded, sum.Failed)
			}
			return nil
		},
	}
}
