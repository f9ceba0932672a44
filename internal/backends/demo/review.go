package demo

import (
	"context"

	"github.com/YoshitsuguKoike/buildhelper/internal/domain/backend"
)

// Bitbucket is the review "bitbucket" backend.
type Bitbucket struct {
	backend.Base
}

// NewBitbucket implements backend.Constructor.
func NewBitbucket(name string, cfg map[string]any, env string) backend.Backend {
	return &Bitbucket{Base: backend.NewBase(name, cfg, env)}
}

func (b *Bitbucket) Connect(ctx context.Context) error {
	b.SetDefault("host", "https://bitbucket.example.com")
	b.SetDefault("project_key", "DEMO")
	return b.Base.Connect(ctx)
}

func (b *Bitbucket) CreateReview(ctx context.Context, subject string) (string, error) {
	if err := b.EnsureConnected(ctx, b.Connect); err != nil {
		return "", err
	}
	return "bitbucket create PR in " + b.String("project_key", "") + " with subject: " + subject, nil
}

func (b *Bitbucket) Comment(ctx context.Context, body string) (string, error) {
	if err := b.EnsureConnected(ctx, b.Connect); err != nil {
		return "", err
	}
	return "bitbucket comment on PR: " + body, nil
}

func (b *Bitbucket) Approve(ctx context.Context, message string) (string, error) {
	if err := b.EnsureConnected(ctx, b.Connect); err != nil {
		return "", err
	}
	return "bitbucket approve PR with message: " + message, nil
}

// Swarm is the review "perforce-swarm" backend.
type Swarm struct {
	backend.Base
}

// NewSwarm implements backend.Constructor.
func NewSwarm(name string, cfg map[string]any, env string) backend.Backend {
	return &Swarm{Base: backend.NewBase(name, cfg, env)}
}

func (s *Swarm) Connect(ctx context.Context) error {
	s.SetDefault("host", "https://swarm.example.com")
	s.SetDefault("project", "demo")
	return s.Base.Connect(ctx)
}

func (s *Swarm) CreateReview(ctx context.Context, subject string) (string, error) {
	if err := s.EnsureConnected(ctx, s.Connect); err != nil {
		return "", err
	}
	return "swarm create review in project " + s.String("project", "") + " with subject: " + subject, nil
}

func (s *Swarm) Comment(ctx context.Context, body string) (string, error) {
	if err := s.EnsureConnected(ctx, s.Connect); err != nil {
		return "", err
	}
	return "swarm comment: " + body, nil
}

func (s *Swarm) Approve(ctx context.Context, message string) (string, error) {
	if err := s.EnsureConnected(ctx, s.Connect); err != nil {
		return "", err
	}
	return "swarm approve review with message: " + message, nil
}
