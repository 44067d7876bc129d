package models

import (
	"time"

	"github.com/google/uuid"
)

// SmartScanStep is one planned or executed action inside a session.
// A step that binds a tool produces a Run; RunID references it.
// Fatal marks steps whose failure aborts the remainder of the session.
type SmartScanStep struct {
	Number          int                    `json:"number"`
	Phase           string                 `json:"phase"`
	Tool            string                 `json:"tool,omitempty"`
	Target          string                 `json:"target,omitempty"`
	Params          map[string]interface{} `json:"params,omitempty"`
	Fatal           bool                   `json:"fatal,omitempty"`
	Status          StepStatus             `json:"status"`
	RunID           string                 `json:"run_id,omitempty"`
	Error           string                 `json:"error,omitempty"`
	DurationSeconds int                    `json:"duration_seconds"`
	StartedAt       *time.Time             `json:"started_at,omitempty"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
}

// SmartScanSession is an ordered collection of steps forming one automated
// assessment. Lifecycle: created → running → {completed | failed |
// cancelled | timeout}. At most one session process-wide may be running.
type SmartScanSession struct {
	ID           string          `json:"id"`
	Target       string          `json:"target"`
	Objective    Objective       `json:"objective"`
	ScopeID      string          `json:"scope_id"`
	Status       SessionStatus   `json:"status"`
	Progress     int             `json:"progress"`
	CurrentPhase string          `json:"current_phase,omitempty"`
	Steps        []SmartScanStep `json:"steps"`
	Findings     []Finding       `json:"findings,omitempty"`
	Error        string          `json:"error,omitempty"`
	Owner        string          `json:"owner,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Finding is one aggregated observation collected from a step's run output.
// Interpretation of raw output is left to external summarizers; a finding
// here is just the provenance plus a short text.
type Finding struct {
	Tool    string `json:"tool"`
	Phase   string `json:"phase"`
	RunID   string `json:"run_id,omitempty"`
	Summary string `json:"summary"`
}

// NewSession creates a session in the created state with initialized metadata
func NewSession(target string, objective Objective, scopeID string, steps []SmartScanStep) *SmartScanSession {
	return &SmartScanSession{
		ID:        uuid.New().String(),
		Target:    target,
		Objective: objective,
		ScopeID:   scopeID,
		Status:    SessionCreated,
		Steps:     steps,
		CreatedAt: time.Now(),
	}
}

// TerminalSteps returns how many steps have reached a final state.
func (s *SmartScanSession) TerminalSteps() int {
	n := 0
	for i := range s.Steps {
		if s.Steps[i].Status.Terminal() {
			n++
		}
	}
	return n
}

// ComputeProgress returns overall progress 0–100: terminal steps over total
// planned steps. It reaches exactly 100 only when every step is terminal.
func (s *SmartScanSession) ComputeProgress() int {
	if len(s.Steps) == 0 {
		return 0
	}
	return s.TerminalSteps() * 100 / len(s.Steps)
}
