package models

// EventType tags a StatusEvent variant
type EventType string

const (
	EventInit         EventType = "init"
	EventOutputChunk  EventType = "output-chunk"
	EventToolStart    EventType = "tool-start"
	EventToolComplete EventType = "tool-complete"
	EventProgress     EventType = "progress"
	EventCompleted    EventType = "completed"
	EventFailed       EventType = "failed"
)

// StatusEvent is the tagged union delivered to status subscribers.
// Both the push emitter and the polling-diff synthesizer construct events
// through the same constructors below, so consumers never branch on the
// transport that delivered them.
type StatusEvent struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Terminal reports whether the event closes the stream.
func (e StatusEvent) Terminal() bool {
	return e.Type == EventCompleted || e.Type == EventFailed
}

// OutputChunkData carries an increment of captured output.
type OutputChunkData struct {
	Chunk string `json:"chunk"`
}

// ToolStartData announces a tool beginning execution.
type ToolStartData struct {
	Tool   string `json:"tool"`
	Target string `json:"target"`
	Phase  string `json:"phase,omitempty"`
	Step   int    `json:"step,omitempty"`
}

// ToolCompleteData reports a tool's terminal outcome.
type ToolCompleteData struct {
	Tool            string    `json:"tool"`
	Status          RunStatus `json:"status"`
	DurationSeconds int       `json:"duration_seconds"`
}

// ProgressData reports aggregate session progress.
type ProgressData struct {
	Progress int    `json:"progress"`
	Phase    string `json:"phase,omitempty"`
}

// FailedData carries the classified failure reason.
type FailedData struct {
	Reason string `json:"reason"`
}

// InitEvent opens a stream with the current entity snapshot.
func InitEvent(snapshot interface{}) StatusEvent {
	return StatusEvent{Type: EventInit, Data: snapshot}
}

// OutputChunkEvent carries newly captured output.
func OutputChunkEvent(chunk string) StatusEvent {
	return StatusEvent{Type: EventOutputChunk, Data: OutputChunkData{Chunk: chunk}}
}

// ToolStartEvent announces a tool beginning execution.
func ToolStartEvent(tool, target, phase string, step int) StatusEvent {
	return StatusEvent{Type: EventToolStart, Data: ToolStartData{Tool: tool, Target: target, Phase: phase, Step: step}}
}

// ToolCompleteEvent reports a tool's terminal outcome.
func ToolCompleteEvent(tool string, status RunStatus, durationSeconds int) StatusEvent {
	return StatusEvent{Type: EventToolComplete, Data: ToolCompleteData{Tool: tool, Status: status, DurationSeconds: durationSeconds}}
}

// ProgressEvent reports aggregate progress.
func ProgressEvent(progress int, phase string) StatusEvent {
	return StatusEvent{Type: EventProgress, Data: ProgressData{Progress: progress, Phase: phase}}
}

// CompletedEvent closes a stream successfully with the final snapshot.
func CompletedEvent(snapshot interface{}) StatusEvent {
	return StatusEvent{Type: EventCompleted, Data: snapshot}
}

// FailedEvent closes a stream with a classified failure reason.
func FailedEvent(reason string) StatusEvent {
	return StatusEvent{Type: EventFailed, Data: FailedData{Reason: reason}}
}
