package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies user-facing failures
type Kind string

const (
	KindConfig       Kind = "config"
	KindRegistry     Kind = "registry"
	KindConnection   Kind = "connection"
	KindExecution    Kind = "execution"
	KindWorkflowStep Kind = "workflow_step"
)

// Configuration sentinels
var (
	ErrMissingBackendsSection = errors.New("config is missing required 'backends' section")
	ErrInvalidConfigShape     = errors.New("invalid config section shape")
	ErrNoBackendConfigured    = errors.New("no backend configured")
	ErrUnknownWorkflow        = errors.New("unknown workflow")
	ErrInvalidWorkflowShape   = errors.New("workflow steps must be defined as a list")
	ErrInvalidStepShape       = errors.New("workflow steps must be strings or lists of arguments")
	ErrRecursiveWorkflow      = errors.New("workflow invokes itself")
	ErrUnknownRunnerType      = errors.New("unknown runner type")
)

// Registry sentinels
var (
	ErrUnknownDomain  = errors.New("unknown backend domain")
	ErrUnknownBackend = errors.New("backend is not registered")
)

// ConfigError reports a malformed or missing configuration section.
type ConfigError struct {
	Section string
	Err     error
	Detail  string
}

func (e *ConfigError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Section != "" {
		return fmt.Sprintf("config '%s': %v", e.Section, e.Err)
	}
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Kind implements Classified
func (e *ConfigError) Kind() Kind { return KindConfig }

// RegistryError reports an unknown domain or backend name.
type RegistryError struct {
	Domain string
	Name   string
	Known  []string
	Err    error
}

func (e *RegistryError) Error() string {
	if errors.Is(e.Err, ErrUnknownDomain) {
		return fmt.Sprintf("unknown backend domain '%s'", e.Domain)
	}
	known := "none"
	if len(e.Known) > 0 {
		known = strings.Join(e.Known, ", ")
	}
	return fmt.Sprintf("backend '%s' is not registered for domain '%s'. Known backends: %s", e.Name, e.Domain, known)
}

func (e *RegistryError) Unwrap() error { return e.Err }

func (e *RegistryError) Kind() Kind { return KindRegistry }

// ConnectionError wraps a failure raised by a backend's Connect.
type ConnectionError struct {
	Backend string
	Domain  string
	Cause   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to backend '%s' for domain '%s': %v", e.Backend, e.Domain, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

func (e *ConnectionError) Kind() Kind { return KindConnection }

// ExecutionError reports a child process that exited non-zero while
// the runner was configured to check the exit status.
type ExecutionError struct {
	Argv     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("command '%s' exited with status %d", strings.Join(e.Argv, " "), e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ExecutionError) Kind() Kind { return KindExecution }

// WorkflowStepError wraps any failure raised while a workflow step ran.
type WorkflowStepError struct {
	Workflow string
	Index    int
	Args     []string
	Cause    error
}

func (e *WorkflowStepError) Error() string {
	return fmt.Sprintf("step '%s' failed: %v", strings.Join(e.Args, " "), e.Cause)
}

func (e *WorkflowStepError) Unwrap() error { return e.Cause }

func (e *WorkflowStepError) Kind() Kind { return KindWorkflowStep }

// Classified is implemented by every error in the taxonomy above.
type Classified interface {
	error
	Kind() Kind
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var c Classified
	if errors.As(err, &c) {
		return c.Kind(), true
	}
	return "", false
}

// NewConfigError builds a ConfigError with a formatted detail message.
func NewConfigError(section string, sentinel error, format string, args ...interface{}) *ConfigError {
	return &ConfigError{
		Section: section,
		Err:     sentinel,
		Detail:  fmt.Sprintf(format, args...),
	}
}
