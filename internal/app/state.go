// Package app holds the per-process state shared by every command and
// workflow step, and the session manager that lazily connects backends.
package app

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/YoshitsuguKoike/buildhelper/internal/domain"
	"github.com/YoshitsuguKoike/buildhelper/internal/domain/backend"
	"github.com/YoshitsuguKoike/buildhelper/internal/infra/config"
	"github.com/YoshitsuguKoike/buildhelper/internal/infra/sessioncache"
	"github.com/YoshitsuguKoike/buildhelper/internal/logging"
	"github.com/YoshitsuguKoike/buildhelper/internal/runner"
	"github.com/YoshitsuguKoike/buildhelper/internal/telemetry"
)

// Dispatcher executes one command line against the state it is bound to.
type Dispatcher func(ctx context.Context, args []string) error

// State is created once at process entry and passed by pointer to every
// command, including commands re-entered by workflow steps.
type State struct {
	Config        *config.Document
	Env           string
	Sessions      map[string]backend.Backend
	Runner        runner.Runner
	WorkflowState map[string]any
	Verbose       bool
	Quiet         bool

	SessionCache *sessioncache.Cache
	Telemetry    *telemetry.Collector
	Registry     *backend.Registry
	Logger       logging.Logger

	Out io.Writer
	Err io.Writer

	// Dispatch is installed by the command layer
	Dispatch Dispatcher

	// workflows currently running, outermost first
	activeWorkflows []string
}

// Deps are the collaborators a State is built from. Nil fields get
// working defaults.
type Deps struct {
	Config       *config.Document
	Env          string
	Registry     *backend.Registry
	SessionCache *sessioncache.Cache
	Telemetry    *telemetry.Collector
	Runner       runner.Runner
	Logger       logging.Logger
	Out          io.Writer
	Err          io.Writer
}

// NewState builds the shared state.
func NewState(d Deps) *State {
	s := &State{
		Config:        d.Config,
		Env:           d.Env,
		Sessions:      map[string]backend.Backend{},
		Runner:        d.Runner,
		WorkflowState: map[string]any{},
		SessionCache:  d.SessionCache,
		Telemetry:     d.Telemetry,
		Registry:      d.Registry,
		Logger:        d.Logger,
		Out:           d.Out,
		Err:           d.Err,
	}
	if s.Config == nil {
		s.Config = config.NewDocument()
	}
	if s.Env == "" {
		s.Env = config.DefaultEnv
	}
	if s.Registry == nil {
		s.Registry = backend.NewRegistry()
	}
	if s.Telemetry == nil {
		s.Telemetry = telemetry.NewCollector()
	}
	if s.Logger == nil {
		s.Logger = logging.GetLogger()
	}
	if s.Out == nil {
		s.Out = os.Stdout
	}
	if s.Err == nil {
		s.Err = os.Stderr
	}
	return s
}

// RecordResult stores a backend result so later workflow steps can read
// it back as last.<domain>.<op>.
func (s *State) RecordResult(domainName, op, result string) {
	s.WorkflowState[resultKey(domainName, op)] = result
}

func resultKey(domainName, op string) string {
	return strings.Join([]string{"last", domainName, op}, ".")
}

// EnterWorkflow marks name as running until the returned func is called.
// A workflow that is already running, directly or through a chain of
// other workflows, cannot be entered again.
func (s *State) EnterWorkflow(name string) (func(), error) {
	for i, active := range s.activeWorkflows {
		if active != name {
			continue
		}
		chain := append(append([]string{}, s.activeWorkflows[i:]...), name)
		return nil, domain.NewConfigError("workflows."+name, domain.ErrRecursiveWorkflow,
			"workflow '%s' invokes itself (%s)", name, strings.Join(chain, " -> "))
	}
	s.activeWorkflows = append(s.activeWorkflows, name)
	depth := len(s.activeWorkflows)
	return func() { s.activeWorkflows = s.activeWorkflows[:depth-1] }, nil
}

// StateKeys lists workflow scratch keys in sorted order.
func (s *State) StateKeys() []string {
	keys := make([]string, 0, len(s.WorkflowState))
	for k := range s.WorkflowState {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
