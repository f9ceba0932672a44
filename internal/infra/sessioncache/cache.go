// Package sessioncache persists opaque per-domain session payloads so a
// later invocation can skip a backend handshake.
package sessioncache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/buildhelper/internal/infra/persistence/file"
	"github.com/YoshitsuguKoike/buildhelper/internal/logging"
)

const (
	defaultDir  = ".buildhelper"
	defaultFile = "sessions.yaml"
)

// DefaultPath returns ~/.buildhelper/sessions.yaml, falling back to a
// relative .buildhelper directory when the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(defaultDir, defaultFile)
	}
	return filepath.Join(home, defaultDir, defaultFile)
}

// Cache is a domain -> payload store backed by a single YAML document.
// It is read at most once and rewritten in full on every Persist.
type Cache struct {
	fs     afero.Fs
	path   string
	data   map[string]any
	loaded bool
}

// New creates a cache stored at path, or at DefaultPath when path is empty.
func New(fsys afero.Fs, path string) *Cache {
	if path == "" {
		path = DefaultPath()
	}
	return &Cache{fs: fsys, path: path, data: map[string]any{}}
}

// Path returns the backing file location.
func (c *Cache) Path() string { return c.path }

// ensureLoaded reads the backing file once. Any read or parse problem
// leaves the cache empty; a cold cache is never an error.
func (c *Cache) ensureLoaded() {
	if c.loaded {
		return
	}
	c.loaded = true

	raw, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.GetLogger().Debug("session cache %s unreadable: %v", c.path, err)
		}
		return
	}

	var content map[string]any
	if err := yaml.Unmarshal(raw, &content); err != nil {
		logging.GetLogger().Debug("session cache %s is not a mapping, ignoring: %v", c.path, err)
		return
	}
	if content != nil {
		c.data = content
	}
}

// Get returns the payload cached for domain. Empty payloads ({}, "",
// [], false, 0) count as absent.
func (c *Cache) Get(domain string) (any, bool) {
	c.ensureLoaded()
	v, ok := c.data[domain]
	if !ok || isEmpty(v) {
		return nil, false
	}
	return v, true
}

func isEmpty(v any) bool {
	switch p := v.(type) {
	case nil:
		return true
	case string:
		return p == ""
	case bool:
		return !p
	case int:
		return p == 0
	case float64:
		return p == 0
	case map[string]any:
		return len(p) == 0
	case []any:
		return len(p) == 0
	}
	return false
}

// Set stores payload for domain in memory. Call Persist to write it out.
func (c *Cache) Set(domain string, payload any) {
	c.ensureLoaded()
	c.data[domain] = payload
}

// Delete drops the payload for domain and reports whether one existed.
func (c *Cache) Delete(domain string) bool {
	c.ensureLoaded()
	_, ok := c.data[domain]
	delete(c.data, domain)
	return ok
}

// Clear drops every payload.
func (c *Cache) Clear() {
	c.ensureLoaded()
	c.data = map[string]any{}
}

// Domains lists the cached domains in sorted order.
func (c *Cache) Domains() []string {
	c.ensureLoaded()
	out := make([]string, 0, len(c.data))
	for d := range c.data {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Persist overwrites the backing file with the whole in-memory cache.
func (c *Cache) Persist() error {
	c.ensureLoaded()
	out, err := yaml.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("failed to encode session cache: %w", err)
	}
	return file.WriteAtomic(c.fs, c.path, out, 0o600)
}
