package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "session", Short: "Inspect the session cache"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache := c.state.SessionCache
			domains := cache.Domains()
			if len(domains) == 0 {
				fmt.Fprintf(c.state.Out, "No cached sessions in %s\n", cache.Path())
				return nil
			}
			for _, d := range domains {
				fmt.Fprintln(c.state.Out, d)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear [domain]",
		Short: "Drop one or all cached sessions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := c.state.SessionCache
			if len(args) == 0 {
				cache.Clear()
				if err := cache.Persist(); err != nil {
					return err
				}
				fmt.Fprintln(c.state.Out, "[session] Cleared all cached sessions")
				return nil
			}

			if !cache.Delete(args[0]) {
				fmt.Fprintf(c.state.Out, "[session] No cached session for %s\n", args[0])
				return nil
			}
			if err := cache.Persist(); err != nil {
				return err
			}
			fmt.Fprintf(c.state.Out, "[session] Cleared cached session for %s\n", args[0])
			return nil
		},
	})

	return cmd
}
