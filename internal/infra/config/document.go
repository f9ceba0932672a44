package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/buildhelper/internal/domain"
)

// EnvConfig is one entry of the envs section.
type EnvConfig struct {
	BackendConfigs map[string]map[string]any
	Runner         map[string]any
}

// CacheConfig is the cache section.
type CacheConfig struct {
	SessionsPath string
}

// Document is the parsed configuration file. Every known section has
// already been shape-checked; unknown top-level keys are ignored.
type Document struct {
	// Path is where the document was read from, empty for in-memory documents
	Path string

	Backends map[string]string
	// BackendsPresent distinguishes "backends: {}" from a missing section
	BackendsPresent bool

	BackendConfigs map[string]map[string]any
	Envs           map[string]EnvConfig
	// Workflows holds raw step lists; their shape is checked when a workflow runs
	Workflows map[string]any
	Cache     CacheConfig
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Backends:       map[string]string{},
		BackendConfigs: map[string]map[string]any{},
		Envs:           map[string]EnvConfig{},
		Workflows:      map[string]any{},
	}
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Document, error) {
	doc := NewDocument()

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &domain.ConfigError{Err: err, Detail: fmt.Sprintf("failed to parse config file: %v", err)}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return doc, nil
	}

	top := root.Content[0]
	if isNull(top) {
		return doc, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, domain.NewConfigError("", domain.ErrInvalidConfigShape, "config file must contain a YAML mapping")
	}

	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i].Value, top.Content[i+1]

		var err error
		switch key {
		case "backends":
			err = doc.decodeBackends(val)
		case "backend_configs":
			doc.BackendConfigs, err = decodeBackendConfigs("backend_configs", val)
		case "envs":
			err = doc.decodeEnvs(val)
		case "workflows":
			err = doc.decodeWorkflows(val)
		case "cache":
			err = doc.decodeCache(val)
		}
		if err != nil {
			return nil, err
		}
	}

	return doc, nil
}

func (d *Document) decodeBackends(val *yaml.Node) error {
	if isNull(val) {
		return nil
	}
	if val.Kind != yaml.MappingNode {
		return shapeError("backends", val, "a mapping of domain to backend name")
	}
	d.BackendsPresent = true
	for i := 0; i+1 < len(val.Content); i += 2 {
		dom, name := val.Content[i].Value, val.Content[i+1]
		if name.Kind != yaml.ScalarNode || isNull(name) {
			return shapeError("backends."+dom, name, "a backend name")
		}
		d.Backends[dom] = name.Value
	}
	return nil
}

func decodeBackendConfigs(section string, val *yaml.Node) (map[string]map[string]any, error) {
	out := map[string]map[string]any{}
	if isNull(val) {
		return out, nil
	}
	if val.Kind != yaml.MappingNode {
		return nil, shapeError(section, val, "a mapping")
	}
	for i := 0; i+1 < len(val.Content); i += 2 {
		name, body := val.Content[i].Value, val.Content[i+1]
		m, err := decodeMapping(section+"."+name, body)
		if err != nil {
			return nil, err
		}
		out[name] = m
	}
	return out, nil
}

func (d *Document) decodeEnvs(val *yaml.Node) error {
	if isNull(val) {
		return nil
	}
	if val.Kind != yaml.MappingNode {
		return shapeError("envs", val, "a mapping")
	}
	for i := 0; i+1 < len(val.Content); i += 2 {
		name, body := val.Content[i].Value, val.Content[i+1]
		section := "envs." + name
		env := EnvConfig{BackendConfigs: map[string]map[string]any{}}
		if isNull(body) {
			d.Envs[name] = env
			continue
		}
		if body.Kind != yaml.MappingNode {
			return shapeError(section, body, "a mapping")
		}
		for j := 0; j+1 < len(body.Content); j += 2 {
			key, inner := body.Content[j].Value, body.Content[j+1]
			var err error
			switch key {
			case "backend_configs":
				env.BackendConfigs, err = decodeBackendConfigs(section+".backend_configs", inner)
			case "runner":
				if !isNull(inner) {
					env.Runner, err = decodeMapping(section+".runner", inner)
				}
			}
			if err != nil {
				return err
			}
		}
		d.Envs[name] = env
	}
	return nil
}

func (d *Document) decodeWorkflows(val *yaml.Node) error {
	if isNull(val) {
		return nil
	}
	if val.Kind != yaml.MappingNode {
		return shapeError("workflows", val, "a mapping")
	}
	for i := 0; i+1 < len(val.Content); i += 2 {
		name, body := val.Content[i].Value, val.Content[i+1]
		var steps any
		if err := body.Decode(&steps); err != nil {
			return domain.NewConfigError("workflows."+name, domain.ErrInvalidConfigShape,
				"config 'workflows.%s' could not be decoded: %v", name, err)
		}
		d.Workflows[name] = steps
	}
	return nil
}

func (d *Document) decodeCache(val *yaml.Node) error {
	if isNull(val) {
		return nil
	}
	if val.Kind != yaml.MappingNode {
		return shapeError("cache", val, "a mapping")
	}
	for i := 0; i+1 < len(val.Content); i += 2 {
		key, inner := val.Content[i].Value, val.Content[i+1]
		if key != "sessions_path" || isNull(inner) {
			continue
		}
		if inner.Kind != yaml.ScalarNode {
			return shapeError("cache.sessions_path", inner, "a path")
		}
		d.Cache.SessionsPath = inner.Value
	}
	return nil
}

func decodeMapping(section string, node *yaml.Node) (map[string]any, error) {
	out := map[string]any{}
	if isNull(node) {
		return out, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, shapeError(section, node, "a mapping")
	}
	if err := node.Decode(&out); err != nil {
		return nil, domain.NewConfigError(section, domain.ErrInvalidConfigShape,
			"config '%s' could not be decoded: %v", section, err)
	}
	return out, nil
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func shapeError(section string, node *yaml.Node, want string) error {
	return domain.NewConfigError(section, domain.ErrInvalidConfigShape,
		"config '%s' section must be %s (line %d)", section, want, node.Line)
}

// BackendConfig implements backend.ConfigSource.
func (d *Document) BackendConfig(name string) map[string]any {
	return d.BackendConfigs[name]
}

// EnvBackendConfig implements backend.ConfigSource.
func (d *Document) EnvBackendConfig(env, name string) map[string]any {
	return d.Envs[env].BackendConfigs[name]
}

// RunnerConfig returns envs[env].runner, or nil when none is configured.
func (d *Document) RunnerConfig(env string) map[string]any {
	return d.Envs[env].Runner
}

// BackendName returns the backend configured for domain.
func (d *Document) BackendName(dom string) (string, error) {
	if !d.BackendsPresent {
		return "", &domain.ConfigError{Section: "backends", Err: domain.ErrMissingBackendsSection,
			Detail: "config is missing required 'backends' section"}
	}
	name, ok := d.Backends[dom]
	if !ok {
		return "", domain.NewConfigError("backends", domain.ErrNoBackendConfigured,
			"no backend configured for domain '%s'", dom)
	}
	return name, nil
}

// Workflow returns the raw step list for name.
func (d *Document) Workflow(name string) (any, bool) {
	steps, ok := d.Workflows[name]
	return steps, ok
}

// WorkflowNames lists configured workflows in sorted order.
func (d *Document) WorkflowNames() []string {
	names := make([]string, 0, len(d.Workflows))
	for n := range d.Workflows {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
