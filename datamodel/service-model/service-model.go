package service_model

import (
	"time"
)

// PlaybookEntry is one candidate playbook found by a catalog scan.
type PlaybookEntry struct {
	Path        string   `json:"path"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Plays       []string `json:"plays,omitempty"`
}

// ExecutionRequest carries the raw form values of a run request.
type ExecutionRequest struct {
	TargetHosts  string `json:"target_hosts" form:"target_hosts" validate:"max=4096,noctl"`
	PlaybookPath string `json:"playbook_path" form:"playbook_path" validate:"max=4096,noctl"`
}

// ErrorKind classifies how a run ended.
type ErrorKind string

const (
	KindNone             ErrorKind = "none"
	KindFileNotFound     ErrorKind = "file_not_found"
	KindNotInCatalog     ErrorKind = "not_in_catalog"
	KindTimeout          ErrorKind = "timeout"
	KindToolNotInstalled ErrorKind = "tool_not_installed"
	KindExecutionFailure ErrorKind = "execution_failure"
	KindUnexpected       ErrorKind = "unexpected"
	KindInvalidRequest   ErrorKind = "invalid_request"
)

// ExecutionResult is the outcome of a single run request.
type ExecutionResult struct {
	InventoryDisplay string        `json:"inventory_display"`
	PlaybookDisplay  string        `json:"playbook_display"`
	OutputText       string        `json:"output_text"`
	IsError          bool          `json:"is_error"`
	Kind             ErrorKind     `json:"kind"`
	ExitCode         int           `json:"exit_code"`
	Args             []string      `json:"args,omitempty"`
	Duration         time.Duration `json:"duration"`
}
