package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/modalsearch/internal/domain/search/query"
	searchuc "github.com/kailas-cloud/modalsearch/internal/usecase/search"
)

func newStrategiesCmd(st *rootState) *cobra.Command {
	var (
		flags      searchFlags
		strategies []string
	)

	cmd := &cobra.Command{
		Use:   "strategies <query>",
		Short: "Blend several weight profiles into one ranking",
		Example: `  modalsearch strategies "sorting algorithm" -s precise=0.6 -s recent=0.4
  modalsearch strategies "ml podcast" -s default=1 -s popular=1 -m audio -m text`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query(strings.Join(args, " "))
			if err != nil {
				return err
			}
			parsed, err := parseStrategies(strategies, flags.options(cmd))
			if err != nil {
				return err
			}
			resp, err := st.app.Search.SearchWithStrategies(st.context(cmd), q, parsed)
			if err != nil {
				return fmt.Errorf("strategies: %w", err)
			}
			if st.format == "json" {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			printResults(cmd.OutOrStdout(), resp.Results)
			printAnalytics(cmd.OutOrStdout(), resp.Analytics)
			for _, b := range resp.StrategyBreakdown {
				fmt.Fprintf(cmd.OutOrStdout(), "strategy %s (weight %.2f): %d results in %s\n",
					b.Name, b.Weight, b.Results, b.Duration)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringSliceVarP(&strategies, "strategy", "s", []string{"default=1"},
		"Strategy as profile=weight (repeatable)")
	return cmd
}

// parseStrategies turns "profile=weight" specs into strategies that use the
// named weight profile on top of the shared options.
func parseStrategies(specs []string, base query.Options) ([]searchuc.Strategy, error) {
	out := make([]searchuc.Strategy, 0, len(specs))
	for _, spec := range specs {
		name, weightStr, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid strategy %q, want profile=weight", spec)
		}
		weight, err := strconv.ParseFloat(weightStr, 64)
		if err != nil || weight <= 0 {
			return nil, fmt.Errorf("invalid weight in strategy %q", spec)
		}
		opts := base
		opts.WeightProfile = name
		out = append(out, searchuc.Strategy{Name: name, Weight: weight, Options: opts})
	}
	return out, nil
}
