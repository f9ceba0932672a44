package runner

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/YoshitsuguKoike/buildhelper/internal/logging"
)

// Command is either a shell-syntax string or an already tokenized argv.
type Command struct {
	line   string
	argv   []string
	isArgv bool
}

// Shell returns a command parsed with shell word-splitting rules.
func Shell(line string) Command { return Command{line: line} }

// Argv returns a command taken literally.
func Argv(args ...string) Command { return Command{argv: args, isArgv: true} }

// Tokens normalizes the command into an argument vector.
func (c Command) Tokens() ([]string, error) {
	if c.isArgv {
		out := make([]string, len(c.argv))
		copy(out, c.argv)
		return out, nil
	}
	return SplitWords(c.line)
}

// String renders the command for messages.
func (c Command) String() string {
	if c.isArgv {
		return strings.Join(c.argv, " ")
	}
	return c.line
}

// SplitWords tokenizes line honouring quotes and escapes, without
// expanding variables or backquotes.
func SplitWords(line string) ([]string, error) {
	p := shellwords.NewParser()
	p.ParseEnv = false
	p.ParseBacktick = false
	words, err := p.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("cannot split %q: %w", line, err)
	}
	if words == nil {
		words = []string{}
	}
	return words, nil
}

// Options tunes one execution. Unset fields fall back to the runner's
// defaults; set fields at the call site always win.
type Options struct {
	// Check turns a non-zero exit into an ExecutionError (default true)
	Check *bool
	// Text normalizes \r\n to \n in captured output (default true)
	Text *bool
	Dir     string
	Env     []string
	Stdin   io.Reader
	Timeout time.Duration
	// Extra keeps runner config keys that have no typed field
	Extra map[string]any
}

// Bool is a helper for the pointer fields of Options.
func Bool(v bool) *bool { return &v }

// Merge returns o overridden field by field by override.
func (o Options) Merge(override Options) Options {
	out := o
	if override.Check != nil {
		out.Check = override.Check
	}
	if override.Text != nil {
		out.Text = override.Text
	}
	if override.Dir != "" {
		out.Dir = override.Dir
	}
	if override.Env != nil {
		out.Env = override.Env
	}
	if override.Stdin != nil {
		out.Stdin = override.Stdin
	}
	if override.Timeout != 0 {
		out.Timeout = override.Timeout
	}
	if len(override.Extra) > 0 {
		extra := make(map[string]any, len(o.Extra)+len(override.Extra))
		for k, v := range o.Extra {
			extra[k] = v
		}
		for k, v := range override.Extra {
			extra[k] = v
		}
		out.Extra = extra
	}
	return out
}

// CheckEnabled reports the effective Check value.
func (o Options) CheckEnabled() bool { return o.Check == nil || *o.Check }

// TextEnabled reports the effective Text value.
func (o Options) TextEnabled() bool { return o.Text == nil || *o.Text }

// optionsFromConfig turns runner config keys into default Options,
// skipping the keys a runner variant consumes itself.
func optionsFromConfig(cfg map[string]any, consumed ...string) (Options, error) {
	skip := map[string]bool{"type": true}
	for _, k := range consumed {
		skip[k] = true
	}

	var opts Options
	for key, raw := range cfg {
		if skip[key] {
			continue
		}
		switch key {
		case "check":
			b, ok := raw.(bool)
			if !ok {
				return Options{}, optionError(key, "a boolean")
			}
			opts.Check = Bool(b)
		case "text":
			b, ok := raw.(bool)
			if !ok {
				return Options{}, optionError(key, "a boolean")
			}
			opts.Text = Bool(b)
		case "cwd", "dir":
			s, ok := raw.(string)
			if !ok {
				return Options{}, optionError(key, "a path")
			}
			opts.Dir = s
		case "env":
			env, err := envFromConfig(raw)
			if err != nil {
				return Options{}, err
			}
			opts.Env = env
		case "timeout":
			d, err := durationFromConfig(raw)
			if err != nil {
				return Options{}, err
			}
			opts.Timeout = d
		default:
			if opts.Extra == nil {
				opts.Extra = map[string]any{}
			}
			opts.Extra[key] = raw
			logging.GetLogger().Debug("runner option '%s' has no effect on execution", key)
		}
	}
	return opts, nil
}

func envFromConfig(raw any) ([]string, error) {
	switch v := raw.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, fmt.Sprintf("%s=%v", k, v[k]))
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, optionError("env", "a mapping or a list of KEY=VALUE strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, optionError("env", "a mapping or a list of KEY=VALUE strings")
	}
}

func durationFromConfig(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, optionError("timeout", "seconds or a duration such as 30s")
		}
		return d, nil
	default:
		return 0, optionError("timeout", "seconds or a duration such as 30s")
	}
}
