package workflow

import (
	"fmt"

	"github.com/YoshitsuguKoike/buildhelper/internal/domain"
	"github.com/YoshitsuguKoike/buildhelper/internal/runner"
)

// NormalizeStep turns one configured step into an argument vector.
// A string is split with shell quoting rules; a list is taken literally,
// element by element.
func NormalizeStep(step any) ([]string, error) {
	switch v := step.(type) {
	case string:
		args, err := runner.SplitWords(v)
		if err != nil {
			return nil, domain.NewConfigError("workflows", domain.ErrInvalidStepShape,
				"workflow step %q cannot be split: %v", v, err)
		}
		return args, nil
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, part := range v {
			out = append(out, fmt.Sprint(part))
		}
		return out, nil
	}
	return nil, &domain.ConfigError{Section: "workflows", Err: domain.ErrInvalidStepShape,
		Detail: domain.ErrInvalidStepShape.Error()}
}
