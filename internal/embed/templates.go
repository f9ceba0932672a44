// Package embed ships the files written by "buildhelper init".
package embed

import (
	"embed"
	"fmt"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/buildhelper/internal/infra/persistence/file"
)

//go:embed templates/config.yaml
var templatesFS embed.FS

// Template is one embedded file.
type Template struct {
	Name    string
	Content []byte
}

// ConfigTemplate returns the example configuration document.
func ConfigTemplate() (Template, error) {
	content, err := templatesFS.ReadFile("templates/config.yaml")
	if err != nil {
		return Template{}, fmt.Errorf("failed to read embedded config template: %w", err)
	}
	return Template{Name: "config.yaml", Content: content}, nil
}

// WriteTemplateResult reports what WriteTemplate did.
type WriteTemplateResult struct {
	Path   string
	Action string // "WROTE", "SKIP", "WROTE (force)"
}

// WriteTemplate writes tmpl to path unless the file exists and force is
// false.
func WriteTemplate(fsys afero.Fs, path string, tmpl Template, force bool) (*WriteTemplateResult, error) {
	result := &WriteTemplateResult{Path: path}

	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", path, err)
	}
	if exists && !force {
		result.Action = "SKIP"
		return result, nil
	}

	if err := file.WriteAtomic(fsys, path, tmpl.Content, 0o644); err != nil {
		return nil, err
	}

	if exists {
		result.Action = "WROTE (force)"
	} else {
		result.Action = "WROTE"
	}
	return result, nil
}
