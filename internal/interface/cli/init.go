package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/buildhelper/internal/embed"
)

// newInitCmd writes an example configuration to --config. It runs
// without loading the existing file, so it can repair a broken one.
func (c *CLI) newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an example configuration file",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			tmpl, err := embed.ConfigTemplate()
			if err != nil {
				return err
			}
			res, err := embed.WriteTemplate(c.opts.Fs, path, tmpl, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", res.Action, res.Path)
			if res.Action == "SKIP" {
				fmt.Fprintln(cmd.OutOrStdout(), "Use --force to overwrite the existing file")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	return cmd
}
