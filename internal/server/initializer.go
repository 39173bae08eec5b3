package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
	"unicode"

	model "ansible-webui/datamodel/service-model"
	"ansible-webui/internal/ansible"
	"ansible-webui/internal/catalog"
	"ansible-webui/internal/config"
	"ansible-webui/internal/githubapp"
	"ansible-webui/internal/reposync"
	"ansible-webui/internal/vault"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// SetupLogging configures the global console logger. Unknown levels fall back
// to info.
func SetupLogging(logLevel string) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(logLevel)))
	if err != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})
}

// NewServerBuilder creates a new server builder
func NewServerBuilder(manager *config.Manager) *ServerBuilder {
	return &ServerBuilder{
		logger:  log.With().Str("component", "server-builder").Logger(),
		manager: manager,
	}
}

// LoadConfig resolves and validates configuration, consulting Vault when
// AppRole credentials are available.
func (sb *ServerBuilder) LoadConfig() (*config.Config, error) {
	var secrets config.SecretSource
	vaultClient, err := sb.initializeVault()
	if err != nil {
		sb.logger.Warn().Err(err).Msg("Failed to initialize Vault client, falling back to environment variables")
	} else {
		secrets = vaultClient
	}

	cfg, err := sb.manager.LoadConfiguration(secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if vaultClient != nil {
		sb.loadSSHKey(cfg, vaultClient)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	return cfg, nil
}

// loadSSHKey writes the SSH key stored in keys to a temporary file and points
// cfg at it, unless a key file is already configured.
func (sb *ServerBuilder) loadSSHKey(cfg *config.Config, keys SSHKeySource) {
	if cfg.SSHPrivateKeyFile != "" || cfg.SSHKeyVaultPath == "" {
		return
	}

	key, err := keys.GetSSHKey(cfg.SSHKeyVaultPath)
	if err != nil {
		sb.logger.Info().Err(err).Str("path", cfg.SSHKeyVaultPath).Msg("No SSH key in Vault, remote runs use the default SSH identity")
		return
	}

	path, err := ansible.WritePrivateKey(key)
	if err != nil {
		sb.logger.Error().Err(err).Msg("Failed to store SSH key from Vault")
		return
	}
	sb.Cleanup()
	sb.keyFile = path
	cfg.SSHPrivateKeyFile = path
	sb.logger.Debug().Str("ssh_key_path", path).Msg("SSH key loaded from Vault")
}

// Cleanup removes the temporary SSH key written by LoadConfig, if any.
func (sb *ServerBuilder) Cleanup() {
	if sb.keyFile == "" {
		return
	}
	if err := os.Remove(sb.keyFile); err != nil && !os.IsNotExist(err) {
		sb.logger.Warn().Err(err).Str("ssh_key_path", sb.keyFile).Msg("Failed to remove temporary SSH key")
	}
	sb.keyFile = ""
}

// Build creates and configures a new server instance
func (sb *ServerBuilder) Build() (*Server, error) {
	cfg, err := sb.LoadConfig()
	if err != nil {
		return nil, err
	}

	server, err := sb.buildServer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build server: %w", err)
	}
	return server, nil
}

// initializeVault creates and initializes the Vault client
func (sb *ServerBuilder) initializeVault() (*vault.VaultClient, error) {
	return vault.NewClient()
}

// buildServer wires the real scanner, runner and repository syncer.
func (sb *ServerBuilder) buildServer(cfg *config.Config) (*Server, error) {
	scanner := catalog.NewScanner(cfg.WorkDir)
	return NewServer(cfg, scanner, NewAnsibleClient(cfg, scanner), NewSyncer(cfg))
}

// NewAnsibleClient builds the playbook runner described by cfg. When catalog
// restriction is on, scanner decides which playbooks may run.
func NewAnsibleClient(cfg *config.Config, scanner *catalog.Scanner) *ansible.Client {
	opts := ansible.Options{
		Binary:         cfg.AnsibleBin,
		WorkDir:        cfg.WorkDir,
		Timeout:        cfg.ExecTimeout,
		PrivateKeyFile: cfg.SSHPrivateKeyFile,
	}
	if cfg.RestrictToCatalog {
		opts.Catalog = scanner
	} else {
		log.Warn().Str("component", "ansible").Msg("Catalog restriction is off: any existing file path submitted for a run is passed to the playbook runner")
	}
	return ansible.NewClient(opts)
}

// NewSyncer builds the playbook repository syncer described by cfg.
func NewSyncer(cfg *config.Config) *reposync.Syncer {
	opts := reposync.Options{
		RepoURL:   cfg.RepoURL,
		Branch:    cfg.RepoBranch,
		TargetDir: filepath.Join(cfg.WorkDir, catalog.SubdirName),
	}
	if cfg.GithubAppConfigured() {
		opts.GitHub = &githubapp.AuthConfig{
			AppID:          cfg.AppID,
			InstallationID: cfg.InstallationID,
			PrivateKey:     cfg.PrivateKey,
			APIBaseURL:     cfg.APIBaseURL,
		}
	}
	return reposync.New(opts)
}

// NewServer assembles a server around its collaborators and registers routes.
func NewServer(cfg *config.Config, cat Catalog, executor Executor, syncer RepoSyncer) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	limit := cfg.RateLimit
	if limit < 1 {
		limit = 1
	}

	registry := prometheus.NewRegistry()
	server := &Server{
		Router:      initializeRouter(),
		Logger:      log.With().Str("component", "server").Logger(),
		Config:      cfg,
		Catalog:     cat,
		Executor:    executor,
		Syncer:      syncer,
		RateLimiter: rate.NewLimiter(rate.Limit(limit), limit),
		Validator:   NewRequestValidator(),
		Metrics:     NewMetrics(registry),
		Registry:    registry,
		templates:   tmpl,
	}
	server.Router.SetHTMLTemplate(tmpl)
	server.registerRoutes()
	server.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server, nil
}

// initializeRouter creates and configures the Gin router
func initializeRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	return router
}

// NewRequestValidator creates a new request validator
func NewRequestValidator() *RequestValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Register custom validators. Surrounding whitespace is trimmed before
	// the run, so only interior control characters are rejected.
	v.RegisterValidation("noctl", func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(strings.TrimSpace(fl.Field().String()), unicode.IsControl) < 0
	})

	return &RequestValidator{
		validator: v,
	}
}

// ValidateExecutionRequest validates a playbook execution request and returns
// one readable message per offending field.
func (rv *RequestValidator) ValidateExecutionRequest(req *model.ExecutionRequest) []string {
	err := rv.validator.Struct(req)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "noctl":
			msgs = append(msgs, fmt.Sprintf("%s must not contain control characters", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
		}
	}
	return msgs
}
