package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/buildhelper/internal/domain"
)

// Load reads the configuration document at path.
// A missing file yields an empty document.
func Load(fsys afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			doc := NewDocument()
			doc.Path = path
			return doc, nil
		}
		return nil, &domain.ConfigError{Err: err, Detail: fmt.Sprintf("failed to read config file %s: %v", path, err)}
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	doc.Path = path
	return doc, nil
}
