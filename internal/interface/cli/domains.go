package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/buildhelper/internal/domain/backend"
)

// leaf describes one backend-backed command.
type leaf struct {
	group  string
	name   string
	short  string
	banner func() string
	run    func(ctx context.Context, b backend.Backend) (string, error)
}

// runE connects the group's session, then prints the banner and the
// backend result inside a telemetry event named <group>.<name>.
func (c *CLI) runE(l leaf) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		state := c.state

		b, err := state.EnsureSession(ctx, l.group)
		if err != nil {
			return err
		}

		event := l.group + "." + l.name
		meta := map[string]any{"backend": b.Name(), "env": state.Env}
		return state.Telemetry.Track(ctx, event, meta, func(ctx context.Context) error {
			fmt.Fprintf(state.Out, "[%s] %s\n", l.group, l.banner())
			result, err := l.run(ctx, b)
			if err != nil {
				return err
			}
			state.RecordResult(l.group, l.name, result)
			if result != "" {
				fmt.Fprintln(state.Out, result)
			}
			return nil
		})
	}
}

func (c *CLI) leafCmd(l leaf) *cobra.Command {
	return &cobra.Command{
		Use:   l.name,
		Short: l.short,
		Args:  cobra.NoArgs,
		RunE:  c.runE(l),
	}
}

func capabilityError(b backend.Backend, group string) error {
	return fmt.Errorf("backend '%s' does not implement %s operations", b.Name(), group)
}

func asSCM(b backend.Backend) (backend.SCM, error) {
	s, ok := b.(backend.SCM)
	if !ok {
		return nil, capabilityError(b, backend.DomainSCM)
	}
	return s, nil
}

func asAnalysis(b backend.Backend) (backend.Analysis, error) {
	a, ok := b.(backend.Analysis)
	if !ok {
		return nil, capabilityError(b, backend.DomainAnalysis)
	}
	return a, nil
}

func asReview(b backend.Backend) (backend.Review, error) {
	r, ok := b.(backend.Review)
	if !ok {
		return nil, capabilityError(b, backend.DomainReview)
	}
	return r, nil
}

func fixed(s string) func() string { return func() string { return s } }

func (c *CLI) newSCMCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "scm", Short: "Source control operations"}

	cmd.AddCommand(c.leafCmd(leaf{
		group: backend.DomainSCM, name: "sync", short: "Sync the workspace",
		banner: fixed("Executing sync"),
		run: func(ctx context.Context, b backend.Backend) (string, error) {
			s, err := asSCM(b)
			if err != nil {
				return "", err
			}
			return s.Sync(ctx)
		},
	}))
	cmd.AddCommand(c.leafCmd(leaf{
		group: backend.DomainSCM, name: "status", short: "Show workspace status",
		banner: fixed("Checking status"),
		run: func(ctx context.Context, b backend.Backend) (string, error) {
			s, err := asSCM(b)
			if err != nil {
				return "", err
			}
			return s.Status(ctx)
		},
	}))

	var message string
	submit := c.leafCmd(leaf{
		group: backend.DomainSCM, name: "submit", short: "Submit pending changes",
		banner: func() string { return "Submitting with message: " + message },
		run: func(ctx context.Context, b backend.Backend) (string, error) {
			s, err := asSCM(b)
			if err != nil {
				return "", err
			}
			return s.Submit(ctx, message)
		},
	})
	submit.Flags().StringVar(&message, "message", "", "Submission message")
	cmd.AddCommand(submit)

	return cmd
}

func (c *CLI) newAnalysisCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "analysis", Short: "Static analysis operations"}

	cmd.AddCommand(c.leafCmd(leaf{
		group: backend.DomainAnalysis, name: "scan", short: "Run a scan",
		banner: fixed("Running scan"),
		run: func(ctx context.Context, b backend.Backend) (string, error) {
			a, err := asAnalysis(b)
			if err != nil {
				return "", err
			}
			return a.Scan(ctx)
		},
	}))

	var format string
	report := c.leafCmd(leaf{
		group: backend.DomainAnalysis, name: "report", short: "Generate a report",
		banner: func() string { return fmt.Sprintf("Generating report in %s format", format) },
		run: func(ctx context.Context, b backend.Backend) (string, error) {
			a, err := asAnalysis(b)
			if err != nil {
				return "", err
			}
			return a.Report(ctx, format)
		},
	})
	report.Flags().StringVar(&format, "format", "text", "Output format for the analysis report")
	cmd.AddCommand(report)

	return cmd
}

func (c *CLI) newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "review", Short: "Code review operations"}

	var subject string
	create := c.leafCmd(leaf{
		group: backend.DomainReview, name: "create", short: "Create a review",
		banner: func() string { return "Creating review with subject: " + subject },
		run: func(ctx context.Context, b backend.Backend) (string, error) {
			r, err := asReview(b)
			if err != nil {
				return "", err
			}
			return r.CreateReview(ctx, subject)
		},
	})
	create.Flags().StringVar(&subject, "subject", "", "Review subject")
	cmd.AddCommand(create)

	var body string
	comment := c.leafCmd(leaf{
		group: backend.DomainReview, name: "comment", short: "Comment on a review",
		banner: fixed("Adding comment"),
		run: func(ctx context.Context, b backend.Backend) (string, error) {
			r, err := asReview(b)
			if err != nil {
				return "", err
			}
			return r.Comment(ctx, body)
		},
	})
	comment.Flags().StringVar(&body, "body", "", "Comment body")
	cmd.AddCommand(comment)

	var message string
	approve := c.leafCmd(leaf{
		group: backend.DomainReview, name: "approve", short: "Approve a review",
		banner: fixed("Approving change"),
		run: func(ctx context.Context, b backend.Backend) (string, error) {
			r, err := asReview(b)
			if err != nil {
				return "", err
			}
			return r.Approve(ctx, message)
		},
	})
	approve.Flags().StringVar(&message, "message", "", "Approval message")
	cmd.AddCommand(approve)

	return cmd
}
