package models

// RunStatus represents the current state of a single tool execution
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunTimeout   RunStatus = "timeout"
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the run has reached a final state.
// Terminal runs are immutable except for a later re-analysis pass.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunTimeout, RunCancelled:
		return true
	}
	return false
}

// SessionStatus represents the current state of a smart-scan session
type SessionStatus string

const (
	SessionCreated   SessionStatus = "created"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
	SessionTimeout   SessionStatus = "timeout"

	// SessionPaused is reserved; no transition currently produces it.
	SessionPaused SessionStatus = "paused"
)

// Terminal reports whether the session has reached a final state.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionCompleted, SessionFailed, SessionCancelled, SessionTimeout:
		return true
	}
	return false
}

// StepStatus represents the state of one step inside a session.
// Steps only move forward; a step never re-enters pending.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
	StepTimeout   StepStatus = "timeout"
)

// Terminal reports whether the step has reached a final state.
func (s StepStatus) Terminal() bool {
	switch s {
	case StepCompleted, StepFailed, StepSkipped, StepTimeout:
		return true
	}
	return false
}

// ParamType is the declared runtime type of a manifest parameter
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
)

// Objective selects the built-in step plan used for a smart scan
type Objective string

const (
	ObjectiveQuick         Objective = "quick"
	ObjectiveComprehensive Objective = "comprehensive"
	ObjectiveStealth       Objective = "stealth"
	ObjectiveAggressive    Objective = "aggressive"
)
