package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/YoshitsuguKoike/buildhelper/internal/app"
	"github.com/YoshitsuguKoike/buildhelper/internal/domain"
	"github.com/YoshitsuguKoike/buildhelper/internal/domain/backend"
	"github.com/YoshitsuguKoike/buildhelper/internal/infra/config"
	"github.com/YoshitsuguKoike/buildhelper/internal/infra/sessioncache"
	"github.com/YoshitsuguKoike/buildhelper/internal/logging"
	"github.com/YoshitsuguKoike/buildhelper/internal/runner"
	"github.com/YoshitsuguKoike/buildhelper/internal/telemetry"
)

// Options are the process-level collaborators of the command tree.
type Options struct {
	Registry *backend.Registry
	Settings config.Settings
	Fs       afero.Fs
	Executor runner.Executor
	// Tracer overrides the global OpenTelemetry tracer
	Tracer trace.Tracer
	Out    io.Writer
	Err    io.Writer
}

// CLI owns the shared state for one process. The first command executed
// initializes it; commands re-entered by workflow steps reuse it.
type CLI struct {
	opts         Options
	state        *app.State
	telemetryOut string
	// executed is the command path of the last top-level Execute
	executed string
}

// globalFlags are parsed on every tree but only applied once.
type globalFlags struct {
	env          string
	configPath   string
	verbose      bool
	quiet        bool
	telemetryOut string
}

// New returns a CLI with defaults filled in for unset options.
func New(opts Options) *CLI {
	if opts.Registry == nil {
		opts.Registry = backend.NewRegistry()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Settings.Env == "" {
		opts.Settings.Env = config.DefaultEnv
	}
	if opts.Settings.ConfigPath == "" {
		opts.Settings.ConfigPath = config.DefaultConfigPath
	}
	if opts.Settings.LogLevel == "" {
		opts.Settings.LogLevel = config.DefaultLogLevel
	}
	return &CLI{opts: opts}
}

// State returns the shared state, or nil before the first command ran.
func (c *CLI) State() *app.State { return c.state }

// Execute runs one command line and writes the telemetry dump if one
// was requested.
func (c *CLI) Execute(ctx context.Context, args []string) error {
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	root := c.NewRoot()
	root.SetArgs(args)
	cmd, err := root.ExecuteContextC(ctx)
	if cmd != nil {
		c.executed = cmd.CommandPath()
	}

	if c.state != nil && c.telemetryOut != "" {
		if dumpErr := c.state.Telemetry.Dump(c.opts.Fs, c.telemetryOut); dumpErr != nil {
			c.state.Logger.Warn("%v", dumpErr)
		}
	}
	return err
}

// ExitCode maps an error returned by Execute to a process exit status.
// A top-level exec exits with the child's status; every other failure,
// including exec steps inside a workflow, exits 1.
func (c *CLI) ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var execErr *domain.ExecutionError
	if c.executed == "buildhelper exec" && errors.As(err, &execErr) && execErr.ExitCode > 0 {
		return execErr.ExitCode
	}
	return 1
}

// dispatch executes args on a fresh command tree bound to the existing
// state. Workflow steps enter here.
func (c *CLI) dispatch(ctx context.Context, args []string) error {
	root := c.NewRoot()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRoot builds the full command tree.
func (c *CLI) NewRoot() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "buildhelper",
		Short:         "Drive source control, analysis and review backends from one CLI",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.state != nil {
				if cmd.Flags().Changed("env") || cmd.Flags().Changed("config") {
					c.state.Logger.Debug("global flags inside a workflow step are ignored")
				}
				return nil
			}
			return c.initState(flags)
		},
		RunE: func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}
	cmd.SetOut(c.opts.Out)
	cmd.SetErr(c.opts.Err)

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.env, "env", c.opts.Settings.Env, "Execution environment")
	pf.StringVar(&flags.configPath, "config", c.opts.Settings.ConfigPath, "Path to configuration file")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug output")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "Only report errors")
	pf.StringVar(&flags.telemetryOut, "telemetry-out", c.opts.Settings.TelemetryOut, "Write telemetry events as YAML to this file on exit")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(c.newSCMCmd())
	cmd.AddCommand(c.newAnalysisCmd())
	cmd.AddCommand(c.newReviewCmd())
	cmd.AddCommand(c.newWorkflowCmd())
	cmd.AddCommand(c.newSessionCmd())
	cmd.AddCommand(c.newStateCmd())
	cmd.AddCommand(c.newBackendsCmd())
	cmd.AddCommand(c.newExecCmd())
	cmd.AddCommand(c.newInitCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (c *CLI) initState(flags *globalFlags) error {
	level := logging.LevelForFlags(flags.verbose, flags.quiet, c.opts.Settings.LogLevel)
	logger := logging.New(level, c.opts.Err)
	logging.SetLogger(logger)

	doc, err := config.Load(c.opts.Fs, flags.configPath)
	if err != nil {
		return err
	}

	r, err := runner.Select(flags.env, doc, c.opts.Executor)
	if err != nil {
		return err
	}

	var telemetryOpts []telemetry.Option
	if c.opts.Tracer != nil {
		telemetryOpts = append(telemetryOpts, telemetry.WithTracer(c.opts.Tracer))
	}

	state := app.NewState(app.Deps{
		Config:       doc,
		Env:          flags.env,
		Registry:     c.opts.Registry,
		SessionCache: sessioncache.New(c.opts.Fs, doc.Cache.SessionsPath),
		Telemetry:    telemetry.NewCollector(telemetryOpts...),
		Runner:       r,
		Logger:       logger,
		Out:          c.opts.Out,
		Err:          c.opts.Err,
	})
	state.Verbose = flags.verbose
	state.Quiet = flags.quiet
	state.Dispatch = c.dispatch

	c.state = state
	c.telemetryOut = flags.telemetryOut
	logger.Debug("initialized env=%s config=%s runner=%T", flags.env, flags.configPath, r)
	return nil
}
