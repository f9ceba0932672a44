// Package workflow runs named, configured sequences of commands against
// the shared process state.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/YoshitsuguKoike/buildhelper/internal/app"
	"github.com/YoshitsuguKoike/buildhelper/internal/domain"
)

// Outcome is the terminal state of one workflow run.
type Outcome int

const (
	Completed Outcome = iota
	CompletedWithFailures
	AbortedOnFirstFailure
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case CompletedWithFailures:
		return "completed_with_failures"
	case AbortedOnFirstFailure:
		return "aborted_on_first_failure"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result summarizes a run.
type Result struct {
	Outcome  Outcome
	Executed int
	Skipped  int
	Failures int
}

// FailedStepsError is returned when a workflow ran to the end with at
// least one failed step.
type FailedStepsError struct {
	Workflow string
	Failures int
	// Steps combines every *domain.WorkflowStepError
	Steps error
}

func (e *FailedStepsError) Error() string {
	return fmt.Sprintf("Workflow '%s' completed with %d failed step(s)", e.Workflow, e.Failures)
}

func (e *FailedStepsError) Unwrap() []error { return multierr.Errors(e.Steps) }

func (e *FailedStepsError) Kind() domain.Kind { return domain.KindWorkflowStep }

// Steps returns the raw step list configured for name.
func Steps(s *app.State, name string) ([]any, error) {
	raw, ok := s.Config.Workflow(name)
	if !ok {
		return nil, domain.NewConfigError("workflows", domain.ErrUnknownWorkflow,
			"Workflow '%s' is not defined in config", name)
	}
	steps, ok := raw.([]any)
	if !ok {
		return nil, &domain.ConfigError{Section: "workflows." + name, Err: domain.ErrInvalidWorkflowShape,
			Detail: domain.ErrInvalidWorkflowShape.Error()}
	}
	return steps, nil
}

// Run executes workflow name step by step through s.Dispatch. Every step
// sees the same state, so sessions opened and scratch values written by
// one step are visible to the next.
//
// A step that re-enters a workflow already running fails like any other
// step instead of recursing.
//
// With continueOnError false the first failing step's error is returned
// as is. Otherwise all steps run and a *FailedStepsError reports the
// failures.
func Run(ctx context.Context, s *app.State, name string, continueOnError bool) (Result, error) {
	var res Result

	steps, err := Steps(s, name)
	if err != nil {
		return res, err
	}
	if s.Dispatch == nil {
		return res, errors.New("workflow: no command dispatcher installed")
	}
	leave, err := s.EnterWorkflow(name)
	if err != nil {
		return res, err
	}
	defer leave()

	fmt.Fprintf(s.Out, "[workflow] Running '%s' with %d step(s)\n", name, len(steps))

	var stepErrs error
	for i, raw := range steps {
		index := i + 1
		args, err := NormalizeStep(raw)
		if err != nil {
			return res, err
		}
		if len(args) == 0 {
			res.Skipped++
			s.Logger.Debug("workflow %s: step %d is empty, skipping", name, index)
			continue
		}

		spanName := fmt.Sprintf("workflow.step.%s.%d", name, index)
		meta := map[string]any{"workflow": name, "step": index, "args": strings.Join(args, " ")}

		res.Executed++
		err = s.Telemetry.Track(ctx, spanName, meta, func(ctx context.Context) error {
			return s.Dispatch(ctx, args)
		})
		if err == nil {
			continue
		}

		res.Failures++
		fmt.Fprintf(s.Err, "Step '%s' failed: %v\n", strings.Join(args, " "), err)
		if !continueOnError {
			res.Outcome = AbortedOnFirstFailure
			return res, err
		}
		stepErrs = multierr.Append(stepErrs, &domain.WorkflowStepError{
			Workflow: name, Index: index, Args: args, Cause: err,
		})
	}

	if res.Failures > 0 {
		res.Outcome = CompletedWithFailures
		return res, &FailedStepsError{Workflow: name, Failures: res.Failures, Steps: stepErrs}
	}
	res.Outcome = Completed
	return res, nil
}
