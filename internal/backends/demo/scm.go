// Package demo provides stand-in backends for every built-in domain. They
// produce descriptive output instead of talking to real services.
package demo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/YoshitsuguKoike/buildhelper/internal/domain/backend"
)

// Git is the scm "git" backend. With a configured path it reads the
// branch, HEAD and worktree status of a local repository.
type Git struct {
	backend.Base
	repo    *git.Repository
	session *GitSession
}

// GitSession is the restored form of a cached {branch, head} payload.
type GitSession struct {
	Branch string
	Head   string
}

// NewGit implements backend.Constructor.
func NewGit(name string, cfg map[string]any, env string) backend.Backend {
	return &Git{Base: backend.NewBase(name, cfg, env)}
}

// Connect fills defaults and, when path is set, opens the repository.
func (g *Git) Connect(ctx context.Context) error {
	g.SetDefault("repo", "https://example.com/demo.git")

	if path := g.String("path", ""); path != "" {
		repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
		if err != nil {
			return fmt.Errorf("failed to open git repository %s: %w", path, err)
		}
		g.repo = repo
		if branch := headBranch(repo); branch != "" {
			g.SetDefault("branch", branch)
		}
	}
	if g.session != nil && g.session.Branch != "" {
		g.SetDefault("branch", g.session.Branch)
	}
	g.SetDefault("branch", "main")

	return g.Base.Connect(ctx)
}

// headBranch returns the checked out branch, or "" for an unborn or
// detached HEAD.
func headBranch(repo *git.Repository) string {
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	if head.Name().IsBranch() {
		return head.Name().Short()
	}
	return ""
}

func (g *Git) headHash() string {
	if g.repo == nil {
		return ""
	}
	head, err := g.repo.Head()
	if err != nil {
		// unborn branch
		return ""
	}
	return head.Hash().String()
}

func (g *Git) Sync(ctx context.Context) (string, error) {
	if err := g.EnsureConnected(ctx, g.Connect); err != nil {
		return "", err
	}
	return fmt.Sprintf("git pull %s %s", g.String("repo", ""), g.String("branch", "")), nil
}

func (g *Git) Status(ctx context.Context) (string, error) {
	if err := g.EnsureConnected(ctx, g.Connect); err != nil {
		return "", err
	}
	if g.repo == nil {
		return "git status --short: clean", nil
	}

	wt, err := g.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}
	st, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("failed to read worktree status: %w", err)
	}
	if st.IsClean() {
		return "git status --short: clean", nil
	}
	return "git status --short:\n" + strings.TrimRight(st.String(), "\n"), nil
}

func (g *Git) Submit(ctx context.Context, message string) (string, error) {
	if err := g.EnsureConnected(ctx, g.Connect); err != nil {
		return "", err
	}
	return "git push with commit message: " + message, nil
}

// ExportSession implements backend.SessionExporter.
func (g *Git) ExportSession(ctx context.Context) (any, error) {
	if !g.Connected() {
		return nil, errors.New("git backend is not connected")
	}
	return map[string]any{
		"branch": g.String("branch", ""),
		"head":   g.headHash(),
	}, nil
}

// RestoreSession implements backend.SessionRestorer. The cached branch
// is used when neither the config nor the repository names one.
func (g *Git) RestoreSession(ctx context.Context, payload any) error {
	m, ok := payload.(map[string]any)
	if !ok {
		return fmt.Errorf("unexpected git session payload %T", payload)
	}
	branch, _ := m["branch"].(string)
	if branch == "" {
		return errors.New("git session payload has no branch")
	}
	head, _ := m["head"].(string)
	g.session = &GitSession{Branch: branch, Head: head}
	return nil
}

// P4 is the scm "p4" backend.
type P4 struct {
	backend.Base
}

// NewP4 implements backend.Constructor.
func NewP4(name string, cfg map[string]any, env string) backend.Backend {
	return &P4{Base: backend.NewBase(name, cfg, env)}
}

func (p *P4) Connect(ctx context.Context) error {
	p.SetDefault("server", "perforce:1666")
	p.SetDefault("workspace", "demo-workspace")
	return p.Base.Connect(ctx)
}

func (p *P4) Sync(ctx context.Context) (string, error) {
	if err := p.EnsureConnected(ctx, p.Connect); err != nil {
		return "", err
	}
	return fmt.Sprintf("p4 sync against %s in workspace %s", p.String("server", ""), p.String("workspace", "")), nil
}

func (p *P4) Status(ctx context.Context) (string, error) {
	if err := p.EnsureConnected(ctx, p.Connect); err != nil {
		return "", err
	}
	return "p4 opened files: none (clean workspace)", nil
}

func (p *P4) Submit(ctx context.Context, message string) (string, error) {
	if err := p.EnsureConnected(ctx, p.Connect); err != nil {
		return "", err
	}
	return fmt.Sprintf("p4 submit from %s with message: %s", p.String("workspace", ""), message), nil
}
