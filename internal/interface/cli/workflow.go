package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/buildhelper/internal/workflow"
)

func (c *CLI) newWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "workflow", Short: "Run configured command sequences"}

	var continueOnError bool
	run := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := workflow.Run(cmd.Context(), c.state, args[0], continueOnError)
			c.state.Logger.Debug("workflow %s finished: %s (%d executed, %d failed)",
				args[0], res.Outcome, res.Executed, res.Failures)
			return err
		},
	}
	run.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Continue executing remaining steps even if a step fails")
	cmd.AddCommand(run)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc := c.state.Config
			for _, name := range doc.WorkflowNames() {
				steps, err := workflow.Steps(c.state, name)
				if err != nil {
					fmt.Fprintf(c.state.Out, "%s\t(invalid: %v)\n", name, err)
					continue
				}
				fmt.Fprintf(c.state.Out, "%s\t%d step(s)\n", name, len(steps))
			}
			return nil
		},
	})

	return cmd
}
