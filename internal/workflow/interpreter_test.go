package workflow

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/buildhelper/internal/app"
	"github.com/YoshitsuguKoike/buildhelper/internal/domain"
	"github.com/YoshitsuguKoike/buildhelper/internal/infra/config"
	"github.com/YoshitsuguKoike/buildhelper/internal/telemetry"
)

const workflowsDoc = `
workflows:
  demo:
    - scm status
    - [analysis, report, --format, html]
  gappy:
    - ""
    - scm sync
    - []
  failing:
    - scm status
    - broken step
    - scm sync
  scalar: "scm status"
  badstep:
    - scm status
    - {scm: status}
`

type harness struct {
	state *app.State
	out   *bytes.Buffer
	err   *bytes.Buffer
	calls [][]string
}

// newHarness dispatches by recording args; any step whose first word is
// "broken" fails.
func newHarness(t *testing.T) *harness {
	t.Helper()
	doc, err := config.Parse([]byte(workflowsDoc))
	require.NoError(t, err)

	h := &harness{out: &bytes.Buffer{}, err: &bytes.Buffer{}}
	h.state = app.NewState(app.Deps{
		Config:    doc,
		Telemetry: telemetry.NewCollector(),
		Out:       h.out,
		Err:       h.err,
	})
	state := h.state
	h.state.Dispatch = func(ctx context.Context, args []string) error {
		h.calls = append(h.calls, args)
		// every step writes to the same scratch map
		state.WorkflowState["seen"] = len(h.calls)
		if args[0] == "broken" {
			return errors.New("boom")
		}
		return nil
	}
	return h
}

func TestRunCompletes(t *testing.T) {
	h := newHarness(t)

	res, err := Run(context.Background(), h.state, "demo", false)
	require.NoError(t, err)
	assert.Equal(t, Completed, res.Outcome)
	assert.Equal(t, 2, res.Executed)

	assert.Equal(t, [][]string{
		{"scm", "status"},
		{"analysis", "report", "--format", "html"},
	}, h.calls)
	assert.Equal(t, "[workflow] Running 'demo' with 2 step(s)\n", h.out.String())
	assert.Equal(t, 2, h.state.WorkflowState["seen"])

	events := h.state.Telemetry.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "workflow.step.demo.1", events[0].Name)
	assert.Equal(t, "workflow.step.demo.2", events[1].Name)
	assert.Equal(t, telemetry.StatusSuccess, events[0].Status)
}

func TestRunSkipsEmptyStepsKeepingIndexes(t *testing.T) {
	h := newHarness(t)

	res, err := Run(context.Background(), h.state, "gappy", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Executed)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, [][]string{{"scm", "sync"}}, h.calls)

	events := h.state.Telemetry.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "workflow.step.gappy.2", events[0].Name)
}

func TestRunAbortsOnFirstFailure(t *testing.T) {
	h := newHarness(t)

	res, err := Run(context.Background(), h.state, "failing", false)
	require.Error(t, err)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, AbortedOnFirstFailure, res.Outcome)
	assert.Equal(t, 1, res.Failures)

	// the third step never ran
	assert.Len(t, h.calls, 2)
	assert.Equal(t, "Step 'broken step' failed: boom\n", h.err.String())

	events := h.state.Telemetry.Events()
	require.Len(t, events, 2)
	assert.Equal(t, telemetry.StatusError, events[1].Status)
}

func TestRunContinuesOnError(t *testing.T) {
	h := newHarness(t)

	res, err := Run(context.Background(), h.state, "failing", true)
	require.Error(t, err)
	assert.Equal(t, CompletedWithFailures, res.Outcome)
	assert.Equal(t, 1, res.Failures)
	assert.Len(t, h.calls, 3)

	assert.EqualError(t, err, "Workflow 'failing' completed with 1 failed step(s)")
	var failed *FailedStepsError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, 1, failed.Failures)

	var stepErr *domain.WorkflowStepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 2, stepErr.Index)
	assert.Equal(t, []string{"broken", "step"}, stepErr.Args)

	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindWorkflowStep, kind)
}

func TestRunLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		workflow string
		wantErr  error
		wantMsg  string
	}{
		{name: "unknown", workflow: "nope", wantErr: domain.ErrUnknownWorkflow, wantMsg: "Workflow 'nope' is not defined in config"},
		{name: "not a list", workflow: "scalar", wantErr: domain.ErrInvalidWorkflowShape, wantMsg: "workflow steps must be defined as a list"},
		{name: "bad step", workflow: "badstep", wantErr: domain.ErrInvalidStepShape, wantMsg: "workflow steps must be strings or lists of arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := Run(context.Background(), h.state, tt.workflow, true)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestRunWithoutDispatcher(t *testing.T) {
	h := newHarness(t)
	h.state.Dispatch = nil

	_, err := Run(context.Background(), h.state, "demo", false)
	assert.Error(t, err)
}

func TestNormalizeStep(t *testing.T) {
	tests := []struct {
		name string
		step any
		want []string
	}{
		{name: "shell words", step: `review create --subject "Ship it"`, want: []string{"review", "create", "--subject", "Ship it"}},
		{name: "list kept literal", step: []any{"scm", "submit", "--message", "a b"}, want: []string{"scm", "submit", "--message", "a b"}},
		{name: "list elements stringified", step: []any{"state", "set", "n", 3}, want: []string{"state", "set", "n", "3"}},
		{name: "string slice", step: []string{"scm", "sync"}, want: []string{"scm", "sync"}},
		{name: "empty string", step: "   ", want: nil},
		{name: "empty list", step: []any{}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeStep(tt.step)
			require.NoError(t, err)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeStepRejectsOtherShapes(t *testing.T) {
	for _, step := range []any{42, nil, map[string]any{"scm": "sync"}, true} {
		_, err := NormalizeStep(step)
		assert.ErrorIs(t, err, domain.ErrInvalidStepShape, "step %v", step)
	}

	_, err := NormalizeStep(`scm submit --message "unterminated`)
	assert.ErrorIs(t, err, domain.ErrInvalidStepShape)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "completed_with_failures", CompletedWithFailures.String())
	assert.Equal(t, "aborted_on_first_failure", AbortedOnFirstFailure.String())
}

const recursiveDoc = `
workflows:
  loop:
    - workflow run loop
  a:
    - scm status
    - workflow run b
  b:
    - workflow run a
  outer:
    - workflow run inner
    - workflow run inner
  inner:
    - scm sync
`

// newRecursiveHarness re-enters Run for "workflow run <name>" steps the
// way the command layer does.
func newRecursiveHarness(t *testing.T) *harness {
	t.Helper()
	doc, err := config.Parse([]byte(recursiveDoc))
	require.NoError(t, err)

	h := &harness{out: &bytes.Buffer{}, err: &bytes.Buffer{}}
	h.state = app.NewState(app.Deps{
		Config:    doc,
		Telemetry: telemetry.NewCollector(),
		Out:       h.out,
		Err:       h.err,
	})
	state := h.state
	h.state.Dispatch = func(ctx context.Context, args []string) error {
		h.calls = append(h.calls, args)
		if len(args) == 3 && args[0] == "workflow" && args[1] == "run" {
			_, err := Run(ctx, state, args[2], false)
			return err
		}
		return nil
	}
	return h
}

func TestRunRejectsRecursiveWorkflows(t *testing.T) {
	tests := []struct {
		name     string
		workflow string
		wantMsg  string
		wantErr  []string
	}{
		{
			name:     "self reference",
			workflow: "loop",
			wantMsg:  "workflow 'loop' invokes itself (loop -> loop)",
			wantErr: []string{
				"Step 'workflow run loop' failed: workflow 'loop' invokes itself (loop -> loop)",
			},
		},
		{
			name:     "cycle through another workflow",
			workflow: "a",
			wantMsg:  "workflow 'a' invokes itself (a -> b -> a)",
			wantErr: []string{
				"Step 'workflow run a' failed: workflow 'a' invokes itself (a -> b -> a)",
				"Step 'workflow run b' failed: workflow 'a' invokes itself (a -> b -> a)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newRecursiveHarness(t)

			res, err := Run(context.Background(), h.state, tt.workflow, false)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrRecursiveWorkflow)
			assert.EqualError(t, err, tt.wantMsg)
			assert.Equal(t, AbortedOnFirstFailure, res.Outcome)
			for _, line := range tt.wantErr {
				assert.Contains(t, h.err.String(), line)
			}

			// the guard is released once the run returns
			_, err = Run(context.Background(), h.state, tt.workflow, false)
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestRunRecursiveWorkflowContinuesOnError(t *testing.T) {
	h := newRecursiveHarness(t)

	res, err := Run(context.Background(), h.state, "loop", true)
	require.Error(t, err)
	assert.Equal(t, CompletedWithFailures, res.Outcome)

	var failed *FailedStepsError
	require.ErrorAs(t, err, &failed)
	assert.ErrorIs(t, err, domain.ErrRecursiveWorkflow)
}

func TestRunAllowsRepeatedNestedWorkflow(t *testing.T) {
	h := newRecursiveHarness(t)

	res, err := Run(context.Background(), h.state, "outer", false)
	require.NoError(t, err)
	assert.Equal(t, Completed, res.Outcome)
	assert.Equal(t, [][]string{
		{"workflow", "run", "inner"},
		{"scm", "sync"},
		{"workflow", "run", "inner"},
		{"scm", "sync"},
	}, h.calls)
}
