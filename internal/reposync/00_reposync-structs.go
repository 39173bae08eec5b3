package reposync

import (
	"sync"

	"ansible-webui/internal/githubapp"

	"github.com/rs/zerolog"
)

// Options configures where playbooks are synced from and to.
type Options struct {
	RepoURL   string
	Branch    string
	TargetDir string

	// GitHub is nil when the repository needs no app authentication.
	GitHub        *githubapp.AuthConfig
	Authenticator githubapp.GithubAuthenticator
}

// Syncer keeps a local checkout of the playbook repository up to date.
type Syncer struct {
	mu     sync.Mutex
	opts   Options
	logger zerolog.Logger
}

// Result describes one completed sync.
type Result struct {
	Action string `json:"action"`
	Branch string `json:"branch"`
	Head   string `json:"head"`
}

// gitOutputWriter is a custom writer to capture and format Git output
type gitOutputWriter struct {
	logger zerolog.Logger
}
