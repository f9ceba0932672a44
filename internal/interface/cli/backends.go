package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (c *CLI) newBackendsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "backends", Short: "Inspect registered backends"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered backends per domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := c.state.Registry
			for _, d := range reg.Domains() {
				names := reg.Names(d)
				line := "(none)"
				if len(names) > 0 {
					line = strings.Join(names, ", ")
				}
				configured := ""
				if name, err := c.state.Config.BackendName(d); err == nil {
					configured = " [configured: " + name + "]"
				}
				fmt.Fprintf(c.state.Out, "%s: %s%s\n", d, line, configured)
			}
			return nil
		},
	})

	return cmd
}
