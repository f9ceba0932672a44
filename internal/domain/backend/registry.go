package backend

import (
	"sort"

	"github.com/YoshitsuguKoike/buildhelper/internal/domain"
)

// Constructor builds an unconnected backend. It must not perform I/O.
type Constructor func(name string, cfg map[string]any, env string) Backend

// ConfigSource exposes the configuration sections the registry reads
// when computing a backend's effective settings.
type ConfigSource interface {
	// BackendConfig returns backend_configs[name], or nil.
	BackendConfig(name string) map[string]any
	// EnvBackendConfig returns envs[env].backend_configs[name], or nil.
	EnvBackendConfig(env, name string) map[string]any
}

// Registry maps domain -> backend name -> constructor.
// One registry is built at process entry and handed to whoever needs it.
type Registry struct {
	domains map[string]map[string]Constructor
}

// NewRegistry returns a registry with the built-in domains present and empty.
func NewRegistry() *Registry {
	return &Registry{
		domains: map[string]map[string]Constructor{
			DomainSCM:      {},
			DomainAnalysis: {},
			DomainReview:   {},
		},
	}
}

// Register inserts or replaces the constructor for (domain, name).
func (r *Registry) Register(domainName, name string, ctor Constructor) {
	bucket, ok := r.domains[domainName]
	if !ok {
		bucket = make(map[string]Constructor)
		r.domains[domainName] = bucket
	}
	bucket[name] = ctor
}

// Resolve constructs a new unconnected backend for (domain, name) using
// the merged configuration for env.
func (r *Registry) Resolve(domainName, name string, src ConfigSource, env string) (Backend, error) {
	bucket, ok := r.domains[domainName]
	if !ok {
		return nil, &domain.RegistryError{Domain: domainName, Name: name, Err: domain.ErrUnknownDomain}
	}
	ctor, ok := bucket[name]
	if !ok {
		return nil, &domain.RegistryError{
			Domain: domainName,
			Name:   name,
			Known:  r.Names(domainName),
			Err:    domain.ErrUnknownBackend,
		}
	}
	return ctor(name, MergeConfig(src, name, env), env), nil
}

// Domains lists the registered domains in sorted order.
func (r *Registry) Domains() []string {
	out := make([]string, 0, len(r.domains))
	for d := range r.domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Names lists the backends registered under domain in sorted order.
func (r *Registry) Names(domainName string) []string {
	bucket := r.domains[domainName]
	out := make([]string, 0, len(bucket))
	for n := range bucket {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// MergeConfig returns a deep copy of backend_configs[name] with
// envs[env].backend_configs[name] merged over it key by key.
// An empty env returns the base copy unchanged.
func MergeConfig(src ConfigSource, name, env string) map[string]any {
	merged := map[string]any{}
	if src == nil {
		return merged
	}
	for k, v := range src.BackendConfig(name) {
		merged[k] = deepCopy(v)
	}
	if env == "" {
		return merged
	}
	for k, v := range src.EnvBackendConfig(env, name) {
		merged[k] = deepCopy(v)
	}
	return merged
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = deepCopy(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = deepCopy(inner)
		}
		return out
	default:
		return v
	}
}
