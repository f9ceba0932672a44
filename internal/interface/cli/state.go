package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStateCmd exposes the workflow scratch space, mostly so workflow
// steps can pass values to later steps.
func (c *CLI) newStateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "state", Short: "Read and write workflow scratch values"}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.state.WorkflowState[args[0]] = args[1]
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get [key]",
		Short: "Print one value, or every key and value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, k := range c.state.StateKeys() {
					fmt.Fprintf(c.state.Out, "%s=%v\n", k, c.state.WorkflowState[k])
				}
				return nil
			}
			v, ok := c.state.WorkflowState[args[0]]
			if !ok {
				return fmt.Errorf("no workflow state value for '%s'", args[0])
			}
			fmt.Fprintln(c.state.Out, v)
			return nil
		},
	})

	return cmd
}
