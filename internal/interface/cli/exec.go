package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/buildhelper/internal/runner"
)

// newExecCmd runs a command through the runner selected for --env.
func (c *CLI) newExecCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "exec [--dry-run] -- <command> [args...]",
		Short: "Run a command in the current environment",
		Long: `Run a command through the runner configured for the environment:
directly on the host, through "docker exec", or through "kubectl exec".
A single argument is split with shell quoting rules.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := runner.Argv(args...)
			if len(args) == 1 {
				command = runner.Shell(args[0])
			}

			r := c.state.Runner
			if dryRun {
				argv, err := r.Argv(command)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.state.Out, strings.Join(argv, " "))
				return nil
			}

			res, err := r.Run(cmd.Context(), command, runner.Options{Stdin: cmd.InOrStdin()})
			if res != nil {
				fmt.Fprint(c.state.Out, res.Stdout)
				fmt.Fprint(c.state.Err, res.Stderr)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the host command instead of running it")
	return cmd
}
