package app

import (
	"context"
	"errors"

	"github.com/YoshitsuguKoike/buildhelper/internal/domain"
	"github.com/YoshitsuguKoike/buildhelper/internal/domain/backend"
)

// EnsureSession returns the connected backend for domainName, connecting
// it on first use. Later calls reuse the same instance.
func (s *State) EnsureSession(ctx context.Context, domainName string) (backend.Backend, error) {
	if b, ok := s.Sessions[domainName]; ok {
		return b, nil
	}

	name, err := s.Config.BackendName(domainName)
	if err != nil {
		return nil, err
	}

	b, err := s.Registry.Resolve(domainName, name, s.Config, s.Env)
	if err != nil {
		return nil, err
	}

	s.restoreSession(ctx, domainName, b)

	s.Logger.Debug("connecting %s backend %s (env %s)", domainName, name, s.Env)
	if err := b.Connect(ctx); err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &domain.ConnectionError{Backend: name, Domain: domainName, Cause: err}
	}

	s.exportSession(ctx, domainName, b)

	s.Sessions[domainName] = b
	return b, nil
}

// restoreSession feeds a cached payload to b. A stale payload only costs
// the shortcut, so failures are logged and dropped.
func (s *State) restoreSession(ctx context.Context, domainName string, b backend.Backend) {
	if s.SessionCache == nil {
		return
	}
	restorer, ok := b.(backend.SessionRestorer)
	if !ok {
		return
	}
	payload, ok := s.SessionCache.Get(domainName)
	if !ok {
		return
	}
	if err := restorer.RestoreSession(ctx, payload); err != nil {
		s.Logger.Warn("failed to restore cached %s session for %s: %v", domainName, b.Name(), err)
		return
	}
	s.Logger.Debug("restored cached %s session for %s", domainName, b.Name())
}

func (s *State) exportSession(ctx context.Context, domainName string, b backend.Backend) {
	if s.SessionCache == nil {
		return
	}
	exporter, ok := b.(backend.SessionExporter)
	if !ok {
		return
	}
	payload, err := exporter.ExportSession(ctx)
	if err != nil {
		s.Logger.Warn("failed to export %s session for %s: %v", domainName, b.Name(), err)
		return
	}
	s.SessionCache.Set(domainName, payload)
	if err := s.SessionCache.Persist(); err != nil {
		s.Logger.Warn("failed to persist session cache %s: %v", s.SessionCache.Path(), err)
	}
}
