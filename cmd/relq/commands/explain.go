package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/relq/cmd/relq/internal/ui"
	"github.com/satishbabariya/relq/query/parser"
)

func newExplainCommand(opts *options) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "explain SQL",
		Short: "Show how a query would be executed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			sch, err := s.Schema(cmd.Context())
			if err != nil {
				return err
			}
			q, err := parser.Parse(args[0], sch)
			if err != nil {
				return err
			}
			plan, err := s.Explain(q)
			if err != nil {
				return err
			}
			if plain {
				_, err := fmt.Fprintln(ui.Out, plan)
				return err
			}
			return ui.PrintMarkdown(fmt.Sprintf("## Query\n\n```sql\n%s\n```\n\n## Plan\n\n```\n%s\n```\n", q.ToSQL(), plan))
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print the plan without formatting")
	return cmd
}
