package commands

import (
	"fmt"
	"slices"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/relq/cmd/relq/internal/ui"
	"github.com/satishbabariya/relq/internal/config"
)

var providers = []string{"sqlite", "postgresql", "mysql", "csv", "memory"}

type initAnswers struct {
	Provider    string `survey:"provider"`
	DSN         string `survey:"dsn"`
	Path        string `survey:"path"`
	Parallelism int    `survey:"parallelism"`
}

func newInitCommand(opts *options) *cobra.Command {
	var (
		yes    bool
		global bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .relq.yaml configuration",
		Long: `Ask for the datasource settings and write them to .relq.yaml in the
working directory, or to ~/.config/relq/.relq.yaml with --global. With --yes
the current settings and flags are written without asking.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *opts.cfg
			if !yes {
				if err := askDatasource(&cfg); err != nil {
					return err
				}
			}
			if !slices.Contains(providers, cfg.Datasource.Provider) {
				return fmt.Errorf("unsupported provider %q", cfg.Datasource.Provider)
			}

			path := output
			if path == "" && !global {
				path = ".relq.yaml"
			}
			if err := config.SaveConfig(&cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			if path == "" {
				path = "~/.config/relq/.relq.yaml"
			}
			ui.PrintSuccess("Created %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Write the current settings without prompting")
	cmd.Flags().BoolVar(&global, "global", false, "Write to ~/.config/relq instead of the working directory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file")
	return cmd
}

func askDatasource(cfg *config.Config) error {
	provider := cfg.Datasource.Provider
	if !slices.Contains(providers, provider) {
		provider = providers[0]
	}
	questions := []*survey.Question{
		{
			Name: "provider",
			Prompt: &survey.Select{
				Message: "Datasource provider:",
				Options: providers,
				Default: provider,
			},
		},
		{
			Name:   "dsn",
			Prompt: &survey.Input{Message: "Connection string (SQL providers):", Default: cfg.Datasource.DSN},
		},
		{
			Name:   "path",
			Prompt: &survey.Input{Message: "CSV directory (csv and memory providers):", Default: cfg.Datasource.Path},
		},
		{
			Name:     "parallelism",
			Prompt:   &survey.Input{Message: "Tables materialized in parallel:", Default: fmt.Sprint(max(cfg.Engine.Parallelism, 1))},
			Validate: survey.Required,
		},
	}

	var answers initAnswers
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}
	cfg.Datasource.Provider = answers.Provider
	cfg.Datasource.DSN = answers.DSN
	cfg.Datasource.Path = answers.Path
	cfg.Engine.Parallelism = answers.Parallelism
	return nil
}
