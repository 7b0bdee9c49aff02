package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/modalsearch/internal/domain/content"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	"github.com/kailas-cloud/modalsearch/internal/domain/search/result"
)

// searchFlags holds CLI flags shared by the query commands.
type searchFlags struct {
	modalities   []string
	limit        int
	threshold    float64
	profile      string
	minScore     float64
	diversity    float64
	noCrossModal bool
	noExpansion  bool
	tags         []string
	source       string
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.modalities, "modality", "m", nil,
		"Target modalities: text, code, image, audio, video (repeatable, default text)")
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "Minimum similarity for retrieval")
	cmd.Flags().StringVarP(&f.profile, "profile", "p", "", "Weight profile: default, recent, popular, precise")
	cmd.Flags().Float64Var(&f.minScore, "min-score", 0, "Drop results scoring below this value")
	cmd.Flags().Float64Var(&f.diversity, "diversity", -1, "Diversity factor 0..1 (default from config)")
	cmd.Flags().BoolVar(&f.noCrossModal, "no-cross-modal", false, "Skip cross-modal matching")
	cmd.Flags().BoolVar(&f.noExpansion, "no-expansion", false, "Skip synonym expansion")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "Keep results with any of these tags (repeatable)")
	cmd.Flags().StringVar(&f.source, "source", "", "Keep results from this source")
}

func (f *searchFlags) query(text string) (query.Query, error) {
	q := query.Query{Text: text, Limit: f.limit, Threshold: f.threshold}
	for _, m := range f.modalities {
		t, err := content.ParseType(m)
		if err != nil {
			return q, err //nolint:wrapcheck // already descriptive
		}
		q.Modalities = append(q.Modalities, t)
	}
	q.Filters.Tags = f.tags
	q.Filters.Source = f.source
	return q, nil
}

func (f *searchFlags) options(cmd *cobra.Command) query.Options {
	opts := query.Options{WeightProfile: f.profile}
	if cmd.Flags().Changed("min-score") {
		opts.MinScore = &f.minScore
	}
	if f.diversity >= 0 {
		opts.DiversityFactor = &f.diversity
	}
	if f.noCrossModal {
		off := false
		opts.IncludeCrossModal = &off
	}
	if f.noExpansion {
		off := false
		opts.SemanticExpansion = &off
	}
	return opts
}

func newSearchCmd(st *rootState) *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search content across modalities",
		Example: `  modalsearch --corpus config/corpus.yaml search "sorting algorithm" -m code -m image
  modalsearch search "neural network" --profile precise --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query(strings.Join(args, " "))
			if err != nil {
				return err
			}
			resp, err := st.app.Search.Search(st.context(cmd), q, flags.options(cmd))
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if st.format == "json" {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			printResults(cmd.OutOrStdout(), resp.Results)
			printAnalytics(cmd.OutOrStdout(), resp.Analytics)
			if len(resp.Suggestions) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "suggestions: %s\n", strings.Join(resp.Suggestions, "; "))
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func printResults(w io.Writer, results []result.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no results")
		return
	}
	for i, r := range results {
		title := r.Content.Metadata.Title
		if title == "" {
			title = r.ID
		}
		fmt.Fprintf(w, "%2d. [%s] %s  %.3f  (%s)\n", i+1, r.Type, title, r.RelevanceScore, r.ID)
		for _, m := range r.CrossModalMatches {
			via := ""
			if m.BridgeID != "" {
				via = " via " + m.BridgeID
			}
			fmt.Fprintf(w, "      -> [%s] %s %s %.3f%s\n", m.Type, m.ContentID, m.Relationship, m.Score, via)
		}
	}
}

func printAnalytics(w io.Writer, a result.Analytics) {
	fmt.Fprintf(w, "%d results in %s, avg score %.3f, %d cross-modal matches, cache hit: %t\n",
		a.TotalResults, a.QueryTime, a.AverageScore, a.CrossModalMatches, a.CacheHit)
}
