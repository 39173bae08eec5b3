package ansible

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	model "ansible-webui/datamodel/service-model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single playbook run.
const DefaultTimeout = 5 * time.Minute

// Catalog reports whether a path is a known playbook.
type Catalog interface {
	Contains(path string) bool
}

// Options configures a Client.
type Options struct {
	// Binary is the playbook runner, looked up on PATH when it has no slash.
	Binary string
	// WorkDir is where relative playbook paths resolve and the child runs.
	WorkDir string
	Timeout time.Duration
	// Catalog, when set, restricts runs to playbooks it contains.
	Catalog Catalog
	// PrivateKeyFile is passed as --private-key to runs against remote hosts.
	PrivateKeyFile string
}

// Client runs playbooks through the external runner.
type Client struct {
	binary  string
	workDir string
	timeout time.Duration
	catalog Catalog
	keyFile string
	runner  Runner
	logger  zerolog.Logger
}

// NewClient creates a Client, filling unset options with defaults.
func NewClient(opts Options) *Client {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		binary:  opts.Binary,
		workDir: opts.WorkDir,
		timeout: opts.Timeout,
		catalog: opts.Catalog,
		keyFile: opts.PrivateKeyFile,
		runner:  processRunner{},
		logger:  log.With().Str("component", "ansible").Logger(),
	}
}

// Binary returns the configured runner binary.
func (c *Client) Binary() string {
	return c.binary
}

// Restricted reports whether runs are limited to catalog entries.
func (c *Client) Restricted() bool {
	return c.catalog != nil
}

// Execute resolves req, runs the playbook and reports the outcome. Failures
// are reported on the result, never as a Go error. Cancelling ctx does not stop
// a running child; only the configured timeout does.
func (c *Client) Execute(ctx context.Context, req model.ExecutionRequest) model.ExecutionResult {
	inv := Resolve(req)
	result := model.ExecutionResult{
		InventoryDisplay: inv.InventoryDisplay,
		PlaybookDisplay:  inv.PlaybookDisplay,
		Kind:             model.KindNone,
	}

	logger := c.logger.With().
		Str("target_hosts", inv.Hosts).
		Str("playbook", inv.Playbook).
		Bool("direct", inv.Direct).
		Logger()

	if !c.exists(inv.Playbook) {
		logger.Warn().Msg("Playbook file not found")
		return fail(result, model.KindFileNotFound,
			fmt.Sprintf("Error: Playbook file '%s' not found.", inv.Playbook))
	}

	if c.catalog != nil && !c.catalog.Contains(inv.Playbook) {
		logger.Warn().Msg("Playbook rejected, not in catalog")
		return fail(result, model.KindNotInCatalog,
			fmt.Sprintf("Error: Playbook file '%s' is not in the playbook catalog.", inv.Playbook))
	}

	result.Args = c.command(inv)

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	logger.Info().Strs("command_args", result.Args).Str("working_dir", c.workDir).Msg("Executing Ansible playbook")

	start := time.Now()
	stdout, stderr, exitCode, err := c.runner.Run(runCtx, c.workDir, result.Args)
	result.Duration = time.Since(start)

	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded) && (err != nil || exitCode != 0)
	switch {
	case timedOut:
		logger.Error().Dur("duration", result.Duration).Dur("timeout", c.timeout).Msg("Ansible playbook timed out")
		return fail(result, model.KindTimeout,
			fmt.Sprintf("Error: Playbook execution timed out (exceeded %s).", humanTimeout(c.timeout)))

	case err != nil && isMissingBinary(err):
		logger.Error().Err(err).Str("binary", c.binary).Msg("Ansible binary not available")
		return fail(result, model.KindToolNotInstalled,
			fmt.Sprintf("Error: '%s' command not found. Please ensure Ansible is installed.", filepath.Base(c.binary)))

	case err != nil:
		logger.Error().Err(err).Msg("Ansible playbook execution failed to start")
		return fail(result, model.KindUnexpected,
			fmt.Sprintf("Error executing playbook: %s", err))
	}

	result.ExitCode = exitCode
	result.OutputText = FormatOutput(stdout, stderr, exitCode)
	if exitCode != 0 {
		result.IsError = true
		result.Kind = model.KindExecutionFailure
		logger.Error().
			Int("exit_code", exitCode).
			Str("raw_error", stderr).
			Dur("duration", result.Duration).
			Msg("Ansible playbook execution failed")
	} else {
		logger.Info().Dur("duration", result.Duration).Msg("Ansible playbook execution completed successfully")
	}

	return result
}

// Command returns the argument vector Execute would run for req.
func (c *Client) Command(req model.ExecutionRequest) []string {
	return c.command(Resolve(req))
}

func (c *Client) command(inv Invocation) []string {
	args := inv.Args(c.binary)
	if c.keyFile == "" || !inv.Remote() {
		return args
	}
	last := len(args) - 1
	return append(append(args[:last:last], "--private-key", c.keyFile), args[last])
}

// WritePrivateKey stores key in a new temporary file readable only by the
// current user and returns its path. The caller removes the file.
func WritePrivateKey(key string) (string, error) {
	f, err := os.CreateTemp("", "ansible-ssh-key-*")
	if err != nil {
		return "", fmt.Errorf("failed to create SSH key file: %w", err)
	}
	defer f.Close()

	if !strings.HasSuffix(key, "\n") {
		key += "\n"
	}
	if _, err := f.WriteString(key); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write SSH key file: %w", err)
	}
	if err := f.Chmod(0600); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to set SSH key file permissions: %w", err)
	}
	return f.Name(), nil
}

// FormatOutput combines captured output with an exit status trailer.
func FormatOutput(stdout, stderr string, exitCode int) string {
	output := stdout
	if stderr != "" {
		output += "\n--- STDERR ---\n" + stderr
	}
	if exitCode != 0 {
		output += fmt.Sprintf("\n\n[Process exited with code %d]", exitCode)
	} else {
		output += "\n\n[Process completed successfully]"
	}
	return output
}

func (c *Client) exists(playbook string) bool {
	path := playbook
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.workDir, path)
	}
	_, err := os.Stat(path)
	return err == nil
}

func fail(result model.ExecutionResult, kind model.ErrorKind, msg string) model.ExecutionResult {
	result.OutputText = msg
	result.IsError = true
	result.Kind = kind
	result.ExitCode = -1
	return result
}

func isMissingBinary(err error) bool {
	return errors.Is(err, exec.ErrNotFound) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission)
}

// humanTimeout renders whole minutes the way the UI has always shown them.
func humanTimeout(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
