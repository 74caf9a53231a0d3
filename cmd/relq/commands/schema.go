package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/relq/cmd/relq/internal/ui"
	"github.com/satishbabariya/relq/schema"
)

func newSchemaCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [TABLE]",
		Short: "List tables, or the columns of one table",
		Args:  cobra.MaximumNArgs(1),
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
			if len(args) == 1 {
				t, err := sch.ResolveTable(args[0])
				if err != nil {
					return err
				}
				return printColumns(t)
			}
			return printTables(sch)
		},
	}
}

func printTables(s *schema.Schema) error {
	ui.PrintSection(fmt.Sprintf("Schema %s", s.Name()))
	rows := make([][]string, 0, len(s.Tables()))
	for _, t := range s.Tables() {
		var pks []string
		for _, c := range t.PrimaryKeys() {
			pks = append(pks, c.Name())
		}
		rows = append(rows, []string{
			t.Name(),
			string(t.Type()),
			strconv.Itoa(t.ColumnCount()),
			fmt.Sprint(pks),
			strconv.Itoa(len(t.Relationships())),
		})
	}
	return ui.PrintTable([]string{"Table", "Type", "Columns", "Primary key", "Relationships"}, rows)
}

func printColumns(t *schema.Table) error {
	ui.PrintSection(fmt.Sprintf("Table %s", t.QualifiedLabel()))
	rows := make([][]string, 0, t.ColumnCount())
	for _, c := range t.Columns() {
		size := ""
		if n, ok := c.Size(); ok {
			size = strconv.Itoa(n)
		}
		nullable := "unknown"
		if n, ok := c.Nullable(); ok {
			nullable = strconv.FormatBool(n)
		}
		rows = append(rows, []string{
			c.Name(),
			c.Type().String(),
			size,
			nullable,
			strconv.FormatBool(c.IsPrimaryKey()),
		})
	}
	return ui.PrintTable([]string{"Column", "Type", "Size", "Nullable", "Primary key"}, rows)
}
