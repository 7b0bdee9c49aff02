package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newExplainCmd(st *rootState) *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:     "explain <result-id> <query>",
		Short:   "Show the ranking breakdown of one result",
		Example: `  modalsearch explain quicksort-go "sorting algorithm" -m code`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query(strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			text, err := st.app.Search.Explain(st.context(cmd), q, flags.options(cmd), args[0])
			if err != nil {
				return fmt.Errorf("explain: %w", err)
			}
			if st.format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"result_id": args[0], "explanation": text})
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
