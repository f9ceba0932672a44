// Package runner decides how shell-level commands are executed for an
// environment: directly on the host, inside a container, or inside a pod.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/YoshitsuguKoike/buildhelper/internal/domain"
)

// Runner executes commands for one environment.
type Runner interface {
	// Env is the environment the runner was selected for
	Env() string
	// Argv returns the host argv that Run would execute for cmd
	Argv(cmd Command) ([]string, error)
	Run(ctx context.Context, cmd Command, opts Options) (*Result, error)
}

// Result is the outcome of a finished child process.
type Result struct {
	Argv     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Executor runs a host argv. It returns an error only when the process
// could not be run at all; a non-zero exit is reported in Result.
type Executor interface {
	Execute(ctx context.Context, argv []string, opts Options) (*Result, error)
}

// ExecExecutor runs processes with os/exec.
type ExecExecutor struct{}

// Execute implements Executor.
func (ExecExecutor) Execute(ctx context.Context, argv []string, opts Options) (*Result, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cmd.Stdin = opts.Stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	res := &Result{Argv: argv}
	err := cmd.Run()
	res.Stdout = decode(stdout.Bytes(), opts.TextEnabled())
	res.Stderr = decode(stderr.Bytes(), opts.TextEnabled())
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", argv[0], err)
	}
	return res, nil
}

func decode(b []byte, text bool) string {
	if !text {
		return string(b)
	}
	return strings.ReplaceAll(string(b), "\r\n", "\n")
}

// base carries what every runner variant shares.
type base struct {
	env      string
	defaults Options
	exec     Executor
	prefix   func() []string
}

func (b *base) Env() string { return b.env }

func (b *base) Argv(cmd Command) ([]string, error) {
	tokens, err := cmd.Tokens()
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty command %q", cmd.String())
	}
	var argv []string
	if b.prefix != nil {
		argv = append(argv, b.prefix()...)
	}
	return append(argv, tokens...), nil
}

func (b *base) Run(ctx context.Context, cmd Command, opts Options) (*Result, error) {
	argv, err := b.Argv(cmd)
	if err != nil {
		return nil, err
	}
	merged := b.defaults.Merge(opts)

	res, err := b.exec.Execute(ctx, argv, merged)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 && merged.CheckEnabled() {
		return res, &domain.ExecutionError{
			Argv:     res.Argv,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	return res, nil
}

// LocalRunner runs commands directly on the host.
type LocalRunner struct {
	base
}

// NewLocal creates a host runner.
func NewLocal(env string, defaults Options, executor Executor) *LocalRunner {
	return &LocalRunner{base: base{env: env, defaults: defaults, exec: orDefault(executor)}}
}

// DockerRunner runs commands through "docker exec" in a named container.
type DockerRunner struct {
	base
	Container string
	DockerBin string
}

// NewDocker creates a container runner. Empty container and binary
// default to "app" and "docker".
func NewDocker(env, container, dockerBin string, defaults Options, executor Executor) *DockerRunner {
	if container == "" {
		container = "app"
	}
	if dockerBin == "" {
		dockerBin = "docker"
	}
	r := &DockerRunner{Container: container, DockerBin: dockerBin}
	r.base = base{env: env, defaults: defaults, exec: orDefault(executor), prefix: func() []string {
		return []string{r.DockerBin, "exec", r.Container}
	}}
	return r
}

// K8sRunner runs commands through "kubectl exec" in a named pod.
type K8sRunner struct {
	base
	Pod        string
	Namespace  string
	KubectlBin string
}

// NewK8s creates a pod runner. Empty pod and binary default to "app"
// and "kubectl"; an empty namespace leaves -n off.
func NewK8s(env, pod, namespace, kubectlBin string, defaults Options, executor Executor) *K8sRunner {
	if pod == "" {
		pod = "app"
	}
	if kubectlBin == "" {
		kubectlBin = "kubectl"
	}
	r := &K8sRunner{Pod: pod, Namespace: namespace, KubectlBin: kubectlBin}
	r.base = base{env: env, defaults: defaults, exec: orDefault(executor), prefix: func() []string {
		if r.Namespace != "" {
			return []string{r.KubectlBin, "-n", r.Namespace, "exec", r.Pod, "--"}
		}
		return []string{r.KubectlBin, "exec", r.Pod, "--"}
	}}
	return r
}

func orDefault(e Executor) Executor {
	if e == nil {
		return ExecExecutor{}
	}
	return e
}

func optionError(key, want string) error {
	return domain.NewConfigError("runner."+key, domain.ErrInvalidConfigShape,
		"runner option '%s' must be %s", key, want)
}
