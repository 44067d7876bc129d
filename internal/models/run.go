package models

import (
	"time"

	"github.com/google/uuid"
)

// Run records one execution of one tool against one target under one scope.
// Lifecycle: pending → running → {completed | failed | timeout | cancelled}.
type Run struct {
	ID              string     `json:"id"`
	Tool            string     `json:"tool"`
	ManifestVersion int        `json:"manifest_version"`
	ScopeID         string     `json:"scope_id"`
	Target          string     `json:"target"`
	Args            []string   `json:"args"`
	TimeoutSeconds  int        `json:"timeout_seconds"`
	Status          RunStatus  `json:"status"`
	ExitCode        *int       `json:"exit_code,omitempty"`
	Stdout          string     `json:"stdout,omitempty"`
	Stderr          string     `json:"stderr,omitempty"`
	StdoutRef       string     `json:"stdout_ref,omitempty"`
	StderrRef       string     `json:"stderr_ref,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	Error           string     `json:"error,omitempty"`
	Owner           string     `json:"owner,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// NewRun creates a pending run with initialized metadata
func NewRun(tool string, manifestVersion int, target, scopeID string, args []string, timeoutSeconds int) *Run {
	return &Run{
		ID:              uuid.New().String(),
		Tool:            tool,
		ManifestVersion: manifestVersion,
		ScopeID:         scopeID,
		Target:          target,
		Args:            args,
		TimeoutSeconds:  timeoutSeconds,
		Status:          RunPending,
		CreatedAt:       time.Now(),
	}
}
