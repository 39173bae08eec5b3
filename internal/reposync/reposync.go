package reposync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"ansible-webui/internal/githubapp"

	"github.com/rs/zerolog/log"
	"gopkg.in/src-d/go-git.v4"
	"gopkg.in/src-d/go-git.v4/plumbing"
	"gopkg.in/src-d/go-git.v4/plumbing/transport"
	githttp "gopkg.in/src-d/go-git.v4/plumbing/transport/http"
)

const (
	DefaultBranch = "main"

	ActionCloned    = "cloned"
	ActionUpdated   = "updated"
	ActionUpToDate  = "up-to-date"
	defaultRemote   = "origin"
	progressMessage = "Git progress"
)

var (
	ErrNotConfigured = errors.New("playbook repository sync is not configured")
	ErrNotRepository = errors.New("sync target exists but is not a git repository")
)

func New(opts Options) *Syncer {
	if opts.Branch == "" {
		opts.Branch = DefaultBranch
	}
	if opts.GitHub != nil && opts.Authenticator == nil {
		opts.Authenticator = &githubapp.DefaultAuthenticator{}
	}
	return &Syncer{
		opts:   opts,
		logger: log.With().Str("component", "reposync").Logger(),
	}
}

func (s *Syncer) Configured() bool {
	return s != nil && s.opts.RepoURL != ""
}

// Sync clones the repository into the target directory, or pulls when a
// checkout already exists. Concurrent calls are serialised.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	if !s.Configured() {
		return Result{}, ErrNotConfigured
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	logger := s.logger.With().
		Str("repo", githubapp.MaskTokenInURL(s.opts.RepoURL)).
		Str("branch", s.opts.Branch).
		Str("target", s.opts.TargetDir).
		Logger()

	auth, err := s.auth(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to obtain repository credentials")
		return Result{}, err
	}

	empty, err := isMissingOrEmpty(s.opts.TargetDir)
	if err != nil {
		return Result{}, fmt.Errorf("failed to inspect sync target: %w", err)
	}

	var result Result
	if empty {
		result, err = s.clone(ctx, auth)
	} else {
		result, err = s.pull(ctx, auth)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Playbook repository sync failed")
		return Result{}, err
	}

	logger.Info().
		Str("action", result.Action).
		Str("head", result.Head).
		Dur("duration", time.Since(start)).
		Msg("Playbook repository synced")
	return result, nil
}

func (s *Syncer) clone(ctx context.Context, auth transport.AuthMethod) (Result, error) {
	repo, err := git.PlainCloneContext(ctx, s.opts.TargetDir, false, &git.CloneOptions{
		URL:           s.opts.RepoURL,
		Auth:          auth,
		RemoteName:    defaultRemote,
		ReferenceName: plumbing.NewBranchReferenceName(s.opts.Branch),
		SingleBranch:  true,
		Progress:      s.progress(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to clone repository: %w", err)
	}
	return s.result(repo, ActionCloned)
}

func (s *Syncer) pull(ctx context.Context, auth transport.AuthMethod) (Result, error) {
	repo, err := git.PlainOpen(s.opts.TargetDir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Result{}, ErrNotRepository
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return Result{}, fmt.Errorf("failed to open worktree: %w", err)
	}

	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    defaultRemote,
		ReferenceName: plumbing.NewBranchReferenceName(s.opts.Branch),
		SingleBranch:  true,
		Auth:          auth,
		Progress:      s.progress(),
	})
	switch {
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		return s.result(repo, ActionUpToDate)
	case err != nil:
		return Result{}, fmt.Errorf("failed to pull repository: %w", err)
	}
	return s.result(repo, ActionUpdated)
}

func (s *Syncer) result(repo *git.Repository, action string) (Result, error) {
	head, err := repo.Head()
	if err != nil {
		return Result{}, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return Result{Action: action, Branch: s.opts.Branch, Head: head.Hash().String()}, nil
}

func (s *Syncer) auth(ctx context.Context) (transport.AuthMethod, error) {
	if s.opts.GitHub == nil {
		return nil, nil
	}
	token, err := s.opts.Authenticator.GetInstallationToken(ctx, *s.opts.GitHub)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with GitHub: %w", err)
	}
	return &githttp.BasicAuth{Username: githubapp.InstallationTokenUser, Password: token}, nil
}

func (s *Syncer) progress() *gitOutputWriter {
	return &gitOutputWriter{logger: s.logger.With().Str("component", "git").Logger()}
}

func (w *gitOutputWriter) Write(p []byte) (n int, err error) {
	output := strings.TrimSpace(string(p))
	if output != "" {
		w.logger.Debug().Str("progress", output).Msg(progressMessage)
	}
	return len(p), nil
}

func isMissingOrEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
