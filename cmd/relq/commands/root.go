// Package commands implements the relq CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/relq/cmd/relq/internal/ui"
	"github.com/satishbabariya/relq/cmd/relq/internal/version"
	"github.com/satishbabariya/relq/internal/config"
	"github.com/satishbabariya/relq/internal/debug"
)

// options holds the persistent flags and the configuration they override.
type options struct {
	configFile string
	provider   string
	dsn        string
	path       string
	debug      bool

	cfg *config.Config
}

// Execute runs the CLI and reports failures on stderr.
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}

// NewRootCommand creates the relq command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "relq",
		Short: "Query any data source with SQL",
		Long: `relq answers SQL queries against relational databases, directories of
CSV files and in-memory tables. What a data source cannot do itself is
evaluated by the engine.`,
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Config file (default: .relq.yaml in ., $HOME or ~/.config/relq)")
	flags.StringVar(&opts.provider, "provider", "", "Datasource provider: sqlite, postgresql, mysql, csv or memory")
	flags.StringVar(&opts.dsn, "dsn", "", "Connection string for SQL providers")
	flags.StringVar(&opts.path, "path", "", "Directory of CSV files for csv and memory providers")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newQueryCommand(opts))
	cmd.AddCommand(newExplainCommand(opts))
	cmd.AddCommand(newSchemaCommand(opts))
	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.LoadFile(o.configFile)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Datasource.Provider = o.provider
	}
	if flags.Changed("dsn") {
		cfg.Datasource.DSN = o.dsn
	}
	if flags.Changed("path") {
		cfg.Datasource.Path = o.path
	}
	if flags.Changed("debug") {
		cfg.Debug = o.debug
	}

	debug.Configure(debug.Options{
		Enabled: cfg.Debug,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  ui.Err,
	})
	o.cfg = cfg
	return nil
}
