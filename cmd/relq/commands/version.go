package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/relq/cmd/relq/internal/ui"
	"github.com/satishbabariya/relq/cmd/relq/internal/version"
)

func newVersionCommand() *cobra.Command {
	var (
		full    bool
		require string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version information. With --require, fail unless the version satisfies the constraint.",
		// No configuration is needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if require != "" {
				ok, err := version.Satisfies(info.Version, require)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("relq %s does not satisfy %q", info.Version, require)
				}
			}
			if full {
				fmt.Fprintln(ui.Out, info.FullString())
			} else {
				fmt.Fprintln(ui.Out, info.String())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Include build details")
	cmd.Flags().StringVar(&require, "require", "", `Version constraint to check, such as ">= 0.1"`)
	return cmd
}
