// Package executor dispatches built argument vectors to an execution
// backend, enforces a wall-clock timeout with cooperative cancellation,
// and classifies the outcome into a terminal run state.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hamza/scanhub/internal/backend"
	"github.com/hamza/scanhub/internal/models"
)

// Result is the classified outcome of one execution. Execution failures
// are data, not errors: non-zero exits, transport faults, and timeouts all
// land here as terminal statuses with diagnostic text.
type Result struct {
	Status          models.RunStatus
	ExitCode        *int
	Stdout          string
	Stderr          string
	DurationSeconds int
}

// Executor races a backend call against the request's timeout.
type Executor struct {
	backend backend.Backend
	log     *logrus.Entry
}

// New returns an executor bound to the given backend.
func New(b backend.Backend, log *logrus.Entry) *Executor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Executor{backend: b, log: log}
}

type outcome struct {
	resp *backend.Response
	err  error
}

// Execute dispatches req and blocks until the backend responds, the
// timeout fires, or ctx is cancelled — whichever resolves first cancels
// the other deterministically. Classification:
//
//   - backend responded: completed on exit code zero, failed otherwise;
//     output and duration are recorded regardless of the exit code
//   - timer fired first: timeout, nil exit code, stderr records the budget
//   - caller cancelled: cancelled, nil exit code
//   - transport or spawn error: failed, error text as stderr, nil exit code
//
// The executor never retries: blind re-execution of a scanning command can
// have side effects on the target, so retry is the caller's decision.
func (e *Executor) Execute(ctx context.Context, req backend.Request) Result {
	start := time.Now()

	execCtx := ctx
	var cancel context.CancelFunc
	if req.TimeoutSeconds > 0 {
		execCtx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		resp, err := e.backend.Execute(execCtx, req)
		done <- outcome{resp: resp, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-execCtx.Done():
		// The in-flight call shares execCtx, so it is already aborting;
		// give the backend a grace period to hand back partial output.
		select {
		case out = <-done:
		case <-time.After(10 * time.Second):
			out = outcome{err: execCtx.Err()}
		}
	}

	elapsed := wholeSeconds(time.Since(start))

	if out.err != nil {
		res := Result{DurationSeconds: elapsed}
		if out.resp != nil {
			res.Stdout = out.resp.Stdout
			res.Stderr = out.resp.Stderr
		}
		switch {
		case errors.Is(out.err, context.DeadlineExceeded) || errors.Is(execCtx.Err(), context.DeadlineExceeded):
			res.Status = models.RunTimeout
			res.Stderr = fmt.Sprintf("execution timed out after %d seconds", req.TimeoutSeconds)
		case errors.Is(out.err, context.Canceled) || errors.Is(execCtx.Err(), context.Canceled):
			res.Status = models.RunCancelled
			res.Stderr = "execution cancelled"
		default:
			res.Status = models.RunFailed
			if res.Stderr == "" {
				res.Stderr = out.err.Error()
			}
		}
		e.log.WithFields(logrus.Fields{
			"status":   res.Status,
			"duration": elapsed,
		}).Debug("execution classified")
		return res
	}

	res := Result{
		ExitCode:        intPtr(out.resp.ExitCode),
		Stdout:          out.resp.Stdout,
		Stderr:          out.resp.Stderr,
		DurationSeconds: elapsed,
	}
	if out.resp.ExitCode == 0 {
		res.Status = models.RunCompleted
	} else {
		res.Status = models.RunFailed
	}
	return res
}

// wholeSeconds rounds a wall-clock duration to whole seconds.
func wholeSeconds(d time.Duration) int {
	return int(d.Round(time.Second) / time.Second)
}

func intPtr(v int) *int { return &v }
