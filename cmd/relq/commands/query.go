package commands

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/relq/cmd/relq/internal/ui"
	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/query/executor"
)

func newQueryCommand(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "query SQL [ARG...]",
		Short: "Run a query",
		Long: `Run a SELECT statement against the configured datasource. Each ARG binds
one ? parameter in order; integers, decimals and true/false are converted,
anything else binds as text.`,
		Example: `  relq query "SELECT name FROM contributor WHERE country = ?" denmark
  relq --provider csv --path ./data query "SELECT COUNT(*) FROM people" --format csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			ds, err := s.Query(cmd.Context(), args[0], parseArgs(args[1:])...)
			if err != nil {
				return err
			}
			switch strings.ToLower(format) {
			case "csv":
				return writeCSV(ds)
			case "table", "":
				return ui.PrintDataSet(ds)
			}
			_ = ds.Close()
			return fmt.Errorf("unknown format %q", format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or csv")
	return cmd
}

func parseArgs(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = parseArg(a)
	}
	return out
}

func parseArg(a string) any {
	if v, err := strconv.ParseInt(a, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(a, 64); err == nil {
		return v
	}
	switch strings.ToLower(a) {
	case "true":
		return true
	case "false":
		return false
	}
	return a
}

// writeCSV writes a header record then one record per row; nulls are empty.
func writeCSV(ds dataset.DataSet) error {
	defer ds.Close()
	w := csv.NewWriter(ui.Out)
	if err := w.Write(ds.Header().Labels()); err != nil {
		return err
	}
	for ds.Next() {
		values := ds.Row().Values()
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = executor.ToString(v)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	if err := ds.Err(); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
