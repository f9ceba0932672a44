package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/YoshitsuguKoike/buildhelper/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type call struct {
	argv []string
	opts Options
}

// recordingExecutor captures every argv instead of spawning processes
type recordingExecutor struct {
	calls    []call
	exitCode int
	stderr   string
	err      error
}

func (r *recordingExecutor) Execute(ctx context.Context, argv []string, opts Options) (*Result, error) {
	r.calls = append(r.calls, call{argv: argv, opts: opts})
	if r.err != nil {
		return nil, r.err
	}
	return &Result{Argv: argv, ExitCode: r.exitCode, Stderr: r.stderr}, nil
}

type staticSource map[string]map[string]any

func (s staticSource) RunnerConfig(env string) map[string]any { return s[env] }

func TestLocalRunnerRunsCommand(t *testing.T) {
	exec := &recordingExecutor{}
	r := NewLocal("local", Options{}, exec)

	res, err := r.Run(context.Background(), Shell("echo hello"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"echo", "hello"}, res.Argv)
	require.Len(t, exec.calls, 1)
	assert.True(t, exec.calls[0].opts.CheckEnabled())
	assert.True(t, exec.calls[0].opts.TextEnabled())
}

func TestDockerRunnerBuildsExecCommand(t *testing.T) {
	exec := &recordingExecutor{}
	r := NewDocker("docker", "builder", "", Options{}, exec)

	_, err := r.Run(context.Background(), Argv("ls", "/app"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"docker", "exec", "builder", "ls", "/app"}, exec.calls[0].argv)
}

func TestK8sRunnerHonorsNamespace(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		want      []string
	}{
		{name: "with namespace", namespace: "demo", want: []string{"kubectl", "-n", "demo", "exec", "api", "--", "whoami"}},
		{name: "without namespace", namespace: "", want: []string{"kubectl", "exec", "api", "--", "whoami"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewK8s("k8s", "api", tt.namespace, "", Options{}, &recordingExecutor{})
			argv, err := r.Argv(Shell("whoami"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, argv)
		})
	}
}

func TestSelectByEnvironmentName(t *testing.T) {
	local, err := Select("local", staticSource{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LocalRunner{}, local)

	docker, err := Select("docker", staticSource{}, nil)
	require.NoError(t, err)
	require.IsType(t, &DockerRunner{}, docker)
	assert.Equal(t, "app", docker.(*DockerRunner).Container)

	k8s, err := Select("k8s", staticSource{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &K8sRunner{}, k8s)

	other, err := Select("staging", staticSource{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LocalRunner{}, other)
	assert.Equal(t, "staging", other.Env())
}

func TestSelectFromConfig(t *testing.T) {
	src := staticSource{
		"ci":      {"type": "docker", "container": "builder"},
		"bare":    {"type": "docker"},
		"cluster": {"type": "kubernetes", "pod": "api", "namespace": "demo", "kubectl_bin": "/usr/bin/kubectl"},
		"empty":   {},
		"tuned":   {"type": "local", "check": false, "timeout": "30s", "cwd": "/src", "env": map[string]any{"B": 2, "A": "1"}},
	}

	tests := []struct {
		env  string
		want []string
	}{
		{env: "ci", want: []string{"docker", "exec", "builder", "ls"}},
		{env: "bare", want: []string{"docker", "exec", "app", "ls"}},
		{env: "cluster", want: []string{"/usr/bin/kubectl", "-n", "demo", "exec", "api", "--", "ls"}},
		{env: "empty", want: []string{"ls"}},
		{env: "tuned", want: []string{"ls"}},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			r, err := Select(tt.env, src, &recordingExecutor{})
			require.NoError(t, err)
			argv, err := r.Argv(Argv("ls"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, argv)
		})
	}

	exec := &recordingExecutor{}
	r, err := Select("tuned", src, exec)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), Argv("ls"), Options{})
	require.NoError(t, err)
	opts := exec.calls[0].opts
	assert.False(t, opts.CheckEnabled())
	assert.Equal(t, 30*time.Second, opts.Timeout)
	assert.Equal(t, "/src", opts.Dir)
	assert.Equal(t, []string{"A=1", "B=2"}, opts.Env)
}

func TestSelectUnknownType(t *testing.T) {
	src := staticSource{"unknown": {"type": "mystery"}}

	_, err := Select("unknown", src, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownRunnerType)
	assert.Contains(t, err.Error(), "mystery")
}

func TestSelectRejectsBadOptionTypes(t *testing.T) {
	tests := map[string]map[string]any{
		"container":  {"type": "docker", "container": 3},
		"check":      {"type": "local", "check": "yes"},
		"timeout":    {"type": "local", "timeout": "soon"},
		"env":        {"type": "local", "env": 5},
		"type":       {"type": 7},
		"kubectlBin": {"type": "k8s", "kubectl_bin": []any{"a"}},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Select("x", staticSource{"x": cfg}, nil)
			assert.ErrorIs(t, err, domain.ErrInvalidConfigShape)
		})
	}
}

func TestRunMergesOptionsCallSiteWins(t *testing.T) {
	exec := &recordingExecutor{}
	defaults := Options{Check: Bool(false), Dir: "/default", Extra: map[string]any{"a": 1, "b": 1}}
	r := NewLocal("local", defaults, exec)

	_, err := r.Run(context.Background(), Argv("true"), Options{Check: Bool(true), Extra: map[string]any{"b": 2}})
	require.NoError(t, err)

	got := exec.calls[0].opts
	assert.True(t, got.CheckEnabled())
	assert.Equal(t, "/default", got.Dir)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, got.Extra)
	// defaults are not mutated by the merge
	assert.Equal(t, map[string]any{"a": 1, "b": 1}, defaults.Extra)
}

func TestRunNonZeroExit(t *testing.T) {
	exec := &recordingExecutor{exitCode: 2, stderr: "boom"}
	r := NewDocker("docker", "", "", Options{}, exec)

	res, err := r.Run(context.Background(), Argv("false"), Options{})
	var execErr *domain.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, 2, execErr.ExitCode)
	assert.Equal(t, "boom", execErr.Stderr)
	assert.Equal(t, 2, res.ExitCode)

	res, err = r.Run(context.Background(), Argv("false"), Options{Check: Bool(false)})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ExitCode)
}

func TestRunPropagatesExecutorFailure(t *testing.T) {
	exec := &recordingExecutor{err: errors.New("no such binary")}
	r := NewLocal("local", Options{}, exec)

	_, err := r.Run(context.Background(), Argv("missing"), Options{})
	assert.EqualError(t, err, "no such binary")
}

func TestRunRejectsEmptyCommand(t *testing.T) {
	r := NewLocal("local", Options{}, &recordingExecutor{})
	_, err := r.Run(context.Background(), Shell("   "), Options{})
	assert.Error(t, err)
}

func TestSplitWords(t *testing.T) {
	words, err := SplitWords(`status --message "hello world"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"status", "--message", "hello world"}, words)

	words, err = SplitWords(`echo 'single quoted' "double quoted" esc\ aped`)
	require.NoError(t, err)
	assert.Equal(t, []string{"echo", "single quoted", "double quoted", "esc aped"}, words)

	words, err = SplitWords("")
	require.NoError(t, err)
	assert.Empty(t, words)

	_, err = SplitWords(`echo "unterminated`)
	assert.Error(t, err)
}

func TestExecExecutor(t *testing.T) {
	ctx := context.Background()

	res, err := ExecExecutor{}.Execute(ctx, []string{"sh", "-c", "printf 'a\\r\\nb'; exit 3"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "a\nb", res.Stdout)

	res, err = ExecExecutor{}.Execute(ctx, []string{"sh", "-c", "printf 'a\\r\\n'"}, Options{Text: Bool(false)})
	require.NoError(t, err)
	assert.Equal(t, "a\r\n", res.Stdout)

	res, err = ExecExecutor{}.Execute(ctx, []string{"sh", "-c", "echo $BH_TEST"}, Options{Env: []string{"BH_TEST=set"}})
	require.NoError(t, err)
	assert.Equal(t, "set\n", res.Stdout)

	_, err = ExecExecutor{}.Execute(ctx, []string{"/definitely/not/here"}, Options{})
	assert.Error(t, err)
}
