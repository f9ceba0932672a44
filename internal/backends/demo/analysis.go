package demo

import (
	"context"
	"fmt"

	"github.com/YoshitsuguKoike/buildhelper/internal/domain/backend"
)

// Sonarqube is the analysis "sonarqube" backend.
type Sonarqube struct {
	backend.Base
}

// NewSonarqube implements backend.Constructor.
func NewSonarqube(name string, cfg map[string]any, env string) backend.Backend {
	return &Sonarqube{Base: backend.NewBase(name, cfg, env)}
}

func (s *Sonarqube) Connect(ctx context.Context) error {
	s.SetDefault("host", "https://sonarqube.example.com")
	s.SetDefault("project", "demo-project")
	return s.Base.Connect(ctx)
}

func (s *Sonarqube) Scan(ctx context.Context) (string, error) {
	if err := s.EnsureConnected(ctx, s.Connect); err != nil {
		return "", err
	}
	return fmt.Sprintf("sonarqube scan for project %s at %s", s.String("project", ""), s.String("host", "")), nil
}

func (s *Sonarqube) Report(ctx context.Context, format string) (string, error) {
	if err := s.EnsureConnected(ctx, s.Connect); err != nil {
		return "", err
	}
	return fmt.Sprintf("sonarqube report in %s for %s", format, s.String("project", "")), nil
}

// Klocwork is the analysis "klocwork" backend.
type Klocwork struct {
	backend.Base
}

// NewKlocwork implements backend.Constructor.
func NewKlocwork(name string, cfg map[string]any, env string) backend.Backend {
	return &Klocwork{Base: backend.NewBase(name, cfg, env)}
}

func (k *Klocwork) Connect(ctx context.Context) error {
	k.SetDefault("host", "https://klocwork.example.com")
	k.SetDefault("project", "demo-project")
	return k.Base.Connect(ctx)
}

func (k *Klocwork) Scan(ctx context.Context) (string, error) {
	if err := k.EnsureConnected(ctx, k.Connect); err != nil {
		return "", err
	}
	return "klocwork scan for project " + k.String("project", ""), nil
}

func (k *Klocwork) Report(ctx context.Context, format string) (string, error) {
	if err := k.EnsureConnected(ctx, k.Connect); err != nil {
		return "", err
	}
	return fmt.Sprintf("klocwork report in %s for %s", format, k.String("project", "")), nil
}
