package server

import (
	"context"
	"html/template"
	"net/http"

	model "ansible-webui/datamodel/service-model"
	"ansible-webui/internal/config"
	"ansible-webui/internal/reposync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Version is reported by the health endpoint. Overridden at build time.
var Version = "1.0.0"

// Catalog lists the playbooks available to run.
type Catalog interface {
	Scan() []model.PlaybookEntry
}

// Executor runs a single playbook request.
type Executor interface {
	Execute(ctx context.Context, req model.ExecutionRequest) model.ExecutionResult
}

// RepoSyncer refreshes the playbook checkout.
type RepoSyncer interface {
	Configured() bool
	Sync(ctx context.Context) (reposync.Result, error)
}

type Server struct {
	Router      *gin.Engine
	Logger      zerolog.Logger
	Config      *config.Config
	Catalog     Catalog
	Executor    Executor
	Syncer      RepoSyncer
	RateLimiter *rate.Limiter
	Validator   *RequestValidator
	Metrics     *Metrics
	Registry    *prometheus.Registry

	templates  *template.Template
	httpServer *http.Server
}

// ServerBuilder handles server construction and initialization
type ServerBuilder struct {
	logger  zerolog.Logger
	manager *config.Manager
	// keyFile is a temporary SSH key written from Vault, removed by Cleanup
	keyFile string
}

// SSHKeySource reads an SSH private key stored under a path.
type SSHKeySource interface {
	GetSSHKey(path string) (string, error)
}

// RequestValidator handles request validation
type RequestValidator struct {
	validator *validator.Validate
}

// Metrics holds the collectors for runs, syncs and scans.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	SyncsTotal       *prometheus.CounterVec
	PlaybooksScanned prometheus.Gauge
	RateLimited      prometheus.Counter
}

// pageData is what the index template renders.
type pageData struct {
	Playbooks      []model.PlaybookEntry
	Result         *model.ExecutionResult
	SyncMessage    string
	SyncError      bool
	SyncConfigured bool
	Restricted     bool
	Version        string
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
