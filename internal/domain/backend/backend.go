// Package backend defines the capability contracts every source-control,
// analysis and review backend implements, and the registry used to
// construct them by (domain, name).
package backend

import "context"

// Built-in domains. The registry accepts any other domain name as well.
const (
	DomainSCM      = "scm"
	DomainAnalysis = "analysis"
	DomainReview   = "review"
)

// Backend is the lifecycle every backend shares.
// Connect must be safe to call on an already connected backend and is the
// only place where network or authentication setup may happen.
type Backend interface {
	Name() string
	Config() map[string]any
	Env() string
	Connect(ctx context.Context) error
}

// SCM is the source-control capability set.
type SCM interface {
	Backend
	Sync(ctx context.Context) (string, error)
	Status(ctx context.Context) (string, error)
	Submit(ctx context.Context, message string) (string, error)
}

// Analysis is the static-analysis capability set.
type Analysis interface {
	Backend
	Scan(ctx context.Context) (string, error)
	Report(ctx context.Context, format string) (string, error)
}

// Review is the code-review capability set.
type Review interface {
	Backend
	CreateReview(ctx context.Context, subject string) (string, error)
	Comment(ctx context.Context, body string) (string, error)
	Approve(ctx context.Context, message string) (string, error)
}

// SessionExporter is implemented by backends able to snapshot their
// connected state so a later process can skip the handshake.
type SessionExporter interface {
	ExportSession(ctx context.Context) (any, error)
}

// SessionRestorer is implemented by backends able to reuse a payload
// previously produced by ExportSession.
type SessionRestorer interface {
	RestoreSession(ctx context.Context, payload any) error
}

// Base carries the state common to all backends. Embed it and override
// Connect when setup is needed.
type Base struct {
	name      string
	config    map[string]any
	env       string
	connected bool
}

// NewBase copies cfg so later mutation by the backend stays private.
func NewBase(name string, cfg map[string]any, env string) Base {
	own := make(map[string]any, len(cfg))
	for k, v := range cfg {
		own[k] = v
	}
	return Base{name: name, config: own, env: env}
}

func (b *Base) Name() string           { return b.name }
func (b *Base) Config() map[string]any { return b.config }
func (b *Base) Env() string            { return b.env }

// Connect marks the backend connected.
func (b *Base) Connect(ctx context.Context) error {
	b.connected = true
	return nil
}

// Connected reports whether Connect has completed.
func (b *Base) Connected() bool { return b.connected }

// EnsureConnected runs connect once if the backend is not connected yet.
// Capability methods call it so they work even outside the session manager.
func (b *Base) EnsureConnected(ctx context.Context, connect func(context.Context) error) error {
	if b.connected {
		return nil
	}
	if err := connect(ctx); err != nil {
		return err
	}
	b.connected = true
	return nil
}

// SetDefault stores value under key unless the key is already present.
func (b *Base) SetDefault(key string, value any) {
	if _, ok := b.config[key]; !ok {
		b.config[key] = value
	}
}

// String returns the config value under key rendered as a string, or def.
func (b *Base) String(key, def string) string {
	v, ok := b.config[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}
