package reposync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"ansible-webui/internal/githubapp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-git.v4"
	githttp "gopkg.in/src-d/go-git.v4/plumbing/transport/http"
)

type fakeAuthenticator struct {
	token string
	err   error
	calls atomic.Int32
}

func (f *fakeAuthenticator) GetInstallationToken(_ context.Context, _ githubapp.AuthConfig) (string, error) {
	f.calls.Add(1)
	return f.token, f.err
}

func TestSync_NotConfigured(t *testing.T) {
	s := New(Options{TargetDir: t.TempDir()})

	_, err := s.Sync(context.Background())

	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, s.Configured())
}

func TestNew_Defaults(t *testing.T) {
	s := New(Options{RepoURL: "https://github.com/acme/playbooks.git", GitHub: &githubapp.AuthConfig{AppID: 1}})

	assert.True(t, s.Configured())
	assert.Equal(t, DefaultBranch, s.opts.Branch)
	assert.IsType(t, &githubapp.DefaultAuthenticator{}, s.opts.Authenticator)
}

func TestSync_TargetNotARepository(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.yml"), []byte("- hosts: all\n"), 0o644))

	s := New(Options{RepoURL: "https://github.com/acme/playbooks.git", TargetDir: dir})
	_, err := s.Sync(context.Background())

	assert.ErrorIs(t, err, ErrNotRepository)
	_, statErr := os.Stat(filepath.Join(dir, "site.yml"))
	assert.NoError(t, statErr, "existing content must be left untouched")
}

func TestSync_PullWithoutRemoteFails(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	s := New(Options{RepoURL: "https://github.com/acme/playbooks.git", TargetDir: dir})
	_, err = s.Sync(context.Background())

	assert.ErrorContains(t, err, "failed to pull repository")
}

func TestSync_AuthenticationFailure(t *testing.T) {
	authn := &fakeAuthenticator{err: errors.New("bad key")}
	s := New(Options{
		RepoURL:       "https://github.com/acme/playbooks.git",
		TargetDir:     t.TempDir(),
		GitHub:        &githubapp.AuthConfig{AppID: 1, InstallationID: 2},
		Authenticator: authn,
	})

	_, err := s.Sync(context.Background())

	assert.ErrorContains(t, err, "failed to authenticate with GitHub")
	assert.Equal(t, int32(1), authn.calls.Load())
}

func TestAuth_InstallationToken(t *testing.T) {
	s := New(Options{
		RepoURL:       "https://github.com/acme/playbooks.git",
		GitHub:        &githubapp.AuthConfig{AppID: 1, InstallationID: 2},
		Authenticator: &fakeAuthenticator{token: "ghs_abc"},
	})

	auth, err := s.auth(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &githttp.BasicAuth{Username: "x-access-token", Password: "ghs_abc"}, auth)
}

func TestAuth_Anonymous(t *testing.T) {
	s := New(Options{RepoURL: "https://github.com/acme/playbooks.git"})

	auth, err := s.auth(context.Background())

	require.NoError(t, err)
	assert.Nil(t, auth)
}

func TestGitOutputWriter(t *testing.T) {
	w := New(Options{}).progress()

	n, err := w.Write([]byte("Counting objects: 3, done.\n"))

	require.NoError(t, err)
	assert.Equal(t, 27, n)
}
