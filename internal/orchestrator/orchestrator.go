// Package orchestrator runs smart-scan sessions: multi-step assessments
// planned from an objective and executed sequentially through the run
// pipeline. At most one session may be running process-wide.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hamza/scanhub/internal/models"
	"github.com/hamza/scanhub/internal/runs"
	"github.com/hamza/scanhub/internal/scope"
	"github.com/hamza/scanhub/internal/storage"
	"github.com/hamza/scanhub/internal/stream"
)

var (
	// ErrScanActive is returned when starting a session while another one
	// is already running. Sessions are never queued.
	ErrScanActive = errors.New("another smart scan is already running")

	// ErrNotStartable is returned when starting a session that is not in
	// the created state.
	ErrNotStartable = errors.New("session cannot be started")

	// ErrNotCancellable is returned when cancelling a session that is not
	// running.
	ErrNotCancellable = errors.New("session is not running")

	// ErrSessionActive is returned when deleting a running session.
	ErrSessionActive = errors.New("session is still running")
)

// Notifier receives terminal session notifications. Delivery is best
// effort and never affects the session outcome.
type Notifier interface {
	SessionFinished(session *models.SmartScanSession)
}

// CreateSpec describes one requested smart scan.
type CreateSpec struct {
	Target    string
	Objective models.Objective
	Owner     string

	// ScopeID pins authorization to one scope; empty tries every active scope.
	ScopeID string
}

// Orchestrator owns session records and drives their execution.
type Orchestrator struct {
	store    *storage.Store
	runs     *runs.Service
	hub      *stream.Hub
	notifier Notifier
	log      *logrus.Entry

	// MaxDuration caps a session's wall clock when > 0.
	MaxDuration time.Duration

	active  atomic.Bool
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New wires the session orchestrator together.
func New(store *storage.Store, runSvc *runs.Service, hub *stream.Hub, notifier Notifier, log *logrus.Entry) *Orchestrator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Orchestrator{
		store:    store,
		runs:     runSvc,
		hub:      hub,
		notifier: notifier,
		log:      log,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Create validates the target, plans steps for the objective, and persists
// a session in the created state. Nothing executes yet.
func (o *Orchestrator) Create(spec CreateSpec) (*models.SmartScanSession, error) {
	if err := scope.Sanitize(spec.Target); err != nil {
		return nil, err
	}
	sc, err := o.runs.ResolveScope(spec.Target, spec.ScopeID)
	if err != nil {
		return nil, err
	}

	steps, err := Plan(spec.Objective, spec.Target)
	if err != nil {
		return nil, err
	}

	session := models.NewSession(spec.Target, spec.Objective, sc.ID, steps)
	session.Owner = spec.Owner
	if err := o.store.SaveSession(session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	o.log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"target":     session.Target,
		"objective":  session.Objective,
		"steps":      len(session.Steps),
	}).Info("smart scan planned")

	return session, nil
}

// Start claims the global execution slot and launches the session in the
// background. A second start while any session is running is rejected
// without touching either session's state.
func (o *Orchestrator) Start(id string) (*models.SmartScanSession, error) {
	session, err := o.store.GetSession(id)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionCreated {
		return nil, fmt.Errorf("%w: session %s is %s", ErrNotStartable, id, session.Status)
	}

	if !o.active.CompareAndSwap(false, true) {
		return nil, ErrScanActive
	}

	now := time.Now()
	session.Status = models.SessionRunning
	session.StartedAt = &now
	if err := o.store.SaveSession(session); err != nil {
		o.active.Store(false)
		return nil, fmt.Errorf("saving session: %w", err)
	}

	ctx, cancel := o.sessionContext()
	o.mu.Lock()
	o.cancels[session.ID] = cancel
	o.mu.Unlock()

	go o.runSession(ctx, session)
	return session, nil
}

func (o *Orchestrator) sessionContext() (context.Context, context.CancelFunc) {
	if o.MaxDuration > 0 {
		return context.WithTimeout(context.Background(), o.MaxDuration)
	}
	return context.WithCancel(context.Background())
}

// runSession drives the planned steps in order until they are all terminal
// or the session is cut short. The execution slot is released on the way
// out regardless of outcome.
func (o *Orchestrator) runSession(ctx context.Context, session *models.SmartScanSession) {
	defer func() {
		o.mu.Lock()
		if cancel, ok := o.cancels[session.ID]; ok {
			cancel()
			delete(o.cancels, session.ID)
		}
		o.mu.Unlock()
		o.active.Store(false)
	}()

	o.hub.Publish(session.ID, models.InitEvent(session))

	for i := range session.Steps {
		if ctx.Err() != nil {
			break
		}
		o.runStep(ctx, session, &session.Steps[i])

		session.Progress = session.ComputeProgress()
		o.persist(session)
		o.hub.Publish(session.ID, models.ProgressEvent(session.Progress, session.CurrentPhase))

		if session.Steps[i].Fatal && session.Steps[i].Status != models.StepCompleted {
			session.Error = fmt.Sprintf("fatal step %d (%s) ended %s", session.Steps[i].Number, session.Steps[i].Phase, session.Steps[i].Status)
			break
		}
	}

	o.finish(ctx, session)
}

// runStep executes one step through the run pipeline and records its outcome.
// Steps binding no tool are planning markers and complete immediately.
func (o *Orchestrator) runStep(ctx context.Context, session *models.SmartScanSession, step *models.SmartScanStep) {
	now := time.Now()
	step.Status = models.StepRunning
	step.StartedAt = &now
	session.CurrentPhase = step.Phase
	o.persist(session)

	if step.Tool == "" {
		o.completeStep(step, models.StepCompleted, "")
		return
	}

	o.hub.Publish(session.ID, models.ToolStartEvent(step.Tool, step.Target, step.Phase, step.Number))

	run, err := o.runs.Launch(ctx, runs.LaunchSpec{
		Tool:    step.Tool,
		Target:  step.Target,
		Params:  step.Params,
		Owner:   session.Owner,
		ScopeID: session.ScopeID,
	})
	if err != nil {
		o.completeStep(step, models.StepFailed, err.Error())
		o.log.WithError(err).WithFields(logrus.Fields{
			"session_id": session.ID,
			"step":       step.Number,
			"tool":       step.Tool,
		}).Warn("step rejected before execution")
		return
	}

	step.RunID = run.ID
	step.DurationSeconds = run.DurationSeconds
	o.hub.Publish(session.ID, models.ToolCompleteEvent(step.Tool, run.Status, run.DurationSeconds))

	switch run.Status {
	case models.RunCompleted:
		o.completeStep(step, models.StepCompleted, "")
		o.collectFinding(session, step, run)
	case models.RunTimeout:
		o.completeStep(step, models.StepTimeout, "tool execution timed out")
	case models.RunCancelled:
		o.completeStep(step, models.StepFailed, "cancelled")
	default:
		o.completeStep(step, models.StepFailed, run.Error)
	}
}

func (o *Orchestrator) completeStep(step *models.SmartScanStep, status models.StepStatus, reason string) {
	done := time.Now()
	step.Status = status
	step.Error = reason
	step.CompletedAt = &done
	if step.StartedAt != nil && step.DurationSeconds == 0 {
		step.DurationSeconds = int(done.Sub(*step.StartedAt).Seconds())
	}
}

// collectFinding keeps a short provenance record of what a completed step
// observed. The first output line stands in for a full summary.
func (o *Orchestrator) collectFinding(session *models.SmartScanSession, step *models.SmartScanStep, run *models.Run) {
	line, _, _ := strings.Cut(strings.TrimSpace(run.Stdout), "\n")
	if line == "" {
		return
	}
	if len(line) > 200 {
		line = line[:200]
	}
	session.Findings = append(session.Findings, models.Finding{
		Tool:    step.Tool,
		Phase:   step.Phase,
		RunID:   run.ID,
		Summary: line,
	})
}

// finish classifies the session outcome, skips whatever never ran, and
// publishes the terminal event exactly once.
func (o *Orchestrator) finish(ctx context.Context, session *models.SmartScanSession) {
	for i := range session.Steps {
		switch session.Steps[i].Status {
		case models.StepPending:
			session.Steps[i].Status = models.StepSkipped
		case models.StepRunning:
			// Persisted running state with no outcome means the loop was
			// interrupted before the step reported back.
			session.Steps[i].Status = models.StepFailed
			session.Steps[i].Error = "interrupted"
		}
	}

	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		session.Status = models.SessionCancelled
		session.Error = "cancelled by operator"
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		session.Status = models.SessionTimeout
		session.Error = "session exceeded its time budget"
	case session.Error != "":
		session.Status = models.SessionFailed
	default:
		session.Status = models.SessionCompleted
	}

	done := time.Now()
	session.CompletedAt = &done
	session.Progress = session.ComputeProgress()
	session.CurrentPhase = ""
	o.persist(session)

	if session.Status == models.SessionCompleted {
		o.hub.Publish(session.ID, models.CompletedEvent(session))
	} else {
		o.hub.Publish(session.ID, models.FailedEvent(session.Error))
	}

	if o.notifier != nil {
		o.notifier.SessionFinished(session)
	}

	o.log.WithFields(logrus.Fields{
		"session_id": session.ID,
		"status":     session.Status,
		"progress":   session.Progress,
		"findings":   len(session.Findings),
	}).Info("smart scan finished")
}

func (o *Orchestrator) persist(session *models.SmartScanSession) {
	if err := o.store.SaveSession(session); err != nil {
		o.log.WithError(err).WithField("session_id", session.ID).Warn("could not persist session state")
	}
}

// Cancel aborts a running session. The step in flight fails, everything
// still pending is skipped, and the session ends cancelled.
func (o *Orchestrator) Cancel(id string) error {
	o.mu.Lock()
	cancel, ok := o.cancels[id]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotCancellable, id)
	}
	cancel()
	return nil
}

// Get returns the current session snapshot.
func (o *Orchestrator) Get(id string) (*models.SmartScanSession, error) {
	return o.store.GetSession(id)
}

// List returns all sessions, newest first.
func (o *Orchestrator) List() ([]*models.SmartScanSession, error) {
	return o.store.ListSessions()
}

// Delete removes a session record. Only sessions that never started or
// already finished can be deleted.
func (o *Orchestrator) Delete(id string) error {
	session, err := o.store.GetSession(id)
	if err != nil {
		return err
	}
	if session.Status == models.SessionRunning {
		return fmt.Errorf("%w: %s", ErrSessionActive, id)
	}
	if err := o.store.DeleteSession(id); err != nil {
		return err
	}
	o.hub.Forget(id)
	return nil
}

// RecoverStale sweeps sessions left running by an earlier process and
// marks them failed. Called once at startup before anything executes.
func (o *Orchestrator) RecoverStale() error {
	sessions, err := o.store.ListSessions()
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if session.Status != models.SessionRunning {
			continue
		}
		for i := range session.Steps {
			switch session.Steps[i].Status {
			case models.StepRunning:
				session.Steps[i].Status = models.StepFailed
				session.Steps[i].Error = "interrupted by restart"
			case models.StepPending:
				session.Steps[i].Status = models.StepSkipped
			}
		}
		session.Status = models.SessionFailed
		session.Error = "interrupted by restart"
		done := time.Now()
		session.CompletedAt = &done
		session.Progress = session.ComputeProgress()
		if err := o.store.SaveSession(session); err != nil {
			return fmt.Errorf("recovering session %s: %w", session.ID, err)
		}
		o.log.WithField("session_id", session.ID).Warn("recovered stale running session")
	}
	return nil
}
