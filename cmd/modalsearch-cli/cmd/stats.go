package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
)

func newStatsCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show storage, cache and health statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := st.context(cmd)
			stats := st.app.Search.Stats(ctx)
			health := st.app.Health.Check(ctx)
			if st.format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"stats": stats, "health": health})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "health: %s\n", health.Status)
			if stats.Storage != nil {
				fmt.Fprintf(w, "embeddings: %d\n", stats.Storage.Total())
				for _, t := range content.AllTypes() {
					if n := stats.Storage.EmbeddingsByType[t]; n > 0 {
						fmt.Fprintf(w, "  %-6s %d\n", t, n)
					}
				}
			}
			fmt.Fprintf(w, "queries: %d (avg %s)\n", stats.TotalQueries, stats.AverageQueryTime)
			fmt.Fprintf(w, "result cache: %d entries, hit rate %.2f\n", stats.ResultCache.Size, stats.ResultCache.HitRate)
			fmt.Fprintf(w, "cross-modal: %d enabled pairs, bridging %t\n",
				stats.CrossModal.EnabledPairs, stats.CrossModal.SemanticBridging)
			return nil
		},
	}
}
