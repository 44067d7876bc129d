// Package backend defines the execution backend protocol: an argument
// vector plus resource limits in, captured output plus exit code out.
package backend

import "context"

// Request is the payload dispatched to an execution backend.
type Request struct {
	Command        []string `json:"command"`
	TimeoutSeconds int      `json:"timeout"`
	MemoryLimitMB  int      `json:"memory_limit,omitempty"`
	CPULimit       float64  `json:"cpu_limit,omitempty"`
}

// Response is the backend's answer for a finished command. A non-zero exit
// code is data, not an error — backends only return errors for transport
// or spawn failures and for context cancellation.
type Response struct {
	Stdout          string  `json:"stdout"`
	Stderr          string  `json:"stderr"`
	ExitCode        int     `json:"exit_code"`
	DurationSeconds float64 `json:"duration"`
}

// Backend executes one request and blocks until the command finishes or
// ctx is cancelled.
type Backend interface {
	Execute(ctx context.Context, req Request) (*Response, error)
}
