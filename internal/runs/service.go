// Package runs drives the single-run pipeline: target validation,
// parameter validation, command building, execution, and run lifecycle.
package runs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hamza/scanhub/internal/backend"
	"github.com/hamza/scanhub/internal/command"
	"github.com/hamza/scanhub/internal/executor"
	"github.com/hamza/scanhub/internal/models"
	"github.com/hamza/scanhub/internal/params"
	"github.com/hamza/scanhub/internal/registry"
	"github.com/hamza/scanhub/internal/scope"
	"github.com/hamza/scanhub/internal/storage"
	"github.com/hamza/scanhub/internal/stream"
)

// ErrNotRunning is returned when cancelling a run that is not in flight.
var ErrNotRunning = errors.New("run is not running")

// ErrRunActive is returned when deleting a run that is still executing.
var ErrRunActive = errors.New("run is still executing")

// LaunchSpec describes one requested tool execution.
type LaunchSpec struct {
	Tool   string
	Target string
	Params map[string]interface{}
	Owner  string

	// ScopeID pins validation to one scope. When empty, every active
	// scope is tried and the first one authorizing the target is recorded.
	ScopeID string

	// TimeoutSeconds overrides the manifest's default timeout when > 0.
	TimeoutSeconds int
}

// Service owns run records and their execution.
type Service struct {
	store       *storage.Store
	reg         *registry.Registry
	exec        *executor.Executor
	hub         *stream.Hub
	artifactDir string
	log         *logrus.Entry

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewService wires the run pipeline together.
func NewService(store *storage.Store, reg *registry.Registry, exec *executor.Executor, hub *stream.Hub, artifactDir string, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		store:       store,
		reg:         reg,
		exec:        exec,
		hub:         hub,
		artifactDir: artifactDir,
		log:         log,
		cancels:     make(map[string]context.CancelFunc),
	}
}

// prepared carries everything needed to execute a validated run.
type prepared struct {
	run      *models.Run
	manifest *models.ToolManifest
}

// prepare runs the full validation pipeline and persists a pending run.
// Input errors reject synchronously here — no run record with side effects
// is ever created for an invalid request.
func (s *Service) prepare(spec LaunchSpec) (*prepared, error) {
	if err := scope.Sanitize(spec.Target); err != nil {
		return nil, err
	}

	sc, err := s.ResolveScope(spec.Target, spec.ScopeID)
	if err != nil {
		return nil, err
	}

	manifest, err := s.reg.Active(spec.Tool)
	if err != nil {
		return nil, err
	}

	merged := params.ApplyDefaults(spec.Params, manifest.ArgsSchema)
	if err := params.Validate(merged, manifest.ArgsSchema); err != nil {
		return nil, err
	}

	// The template's first token conventionally names the binary, so the
	// built vector is the complete argv for the backend.
	argv := command.Build(manifest.CommandTemplate, merged, spec.Target)

	timeout := manifest.TimeoutSeconds
	if spec.TimeoutSeconds > 0 {
		timeout = spec.TimeoutSeconds
	}

	run := models.NewRun(spec.Tool, manifest.Version, spec.Target, sc.ID, argv, timeout)
	run.Owner = spec.Owner
	if err := s.store.SaveRun(run); err != nil {
		return nil, fmt.Errorf("saving run record: %w", err)
	}

	return &prepared{run: run, manifest: manifest}, nil
}

// ResolveScope authorizes the target against the named scope, or against
// every active scope when scopeID is empty. The authorizing scope is
// returned so callers can pin later validations to it.
func (s *Service) ResolveScope(target, scopeID string) (*models.Scope, error) {
	if scopeID != "" {
		sc, err := s.store.GetScope(scopeID)
		if err != nil {
			return nil, err
		}
		if !sc.Active {
			return nil, fmt.Errorf("%w: scope %q is not active", scope.ErrOutOfScope, sc.Name)
		}
		if err := scope.Authorize(target, sc); err != nil {
			return nil, err
		}
		return sc, nil
	}

	scopes, err := s.store.ActiveScopes()
	if err != nil {
		return nil, err
	}
	for _, sc := range scopes {
		if scope.Authorize(target, sc) == nil {
			return sc, nil
		}
	}
	return nil, fmt.Errorf("%w: %q not allowed by any active scope", scope.ErrOutOfScope, target)
}

// Launch validates, persists, and executes a run synchronously, returning
// the terminal run.
func (s *Service) Launch(ctx context.Context, spec LaunchSpec) (*models.Run, error) {
	p, err := s.prepare(spec)
	if err != nil {
		return nil, err
	}
	s.execute(ctx, p)
	return p.run, nil
}

// LaunchAsync validates and persists a run, then executes it in the
// background. The pending run is returned immediately.
func (s *Service) LaunchAsync(spec LaunchSpec) (*models.Run, error) {
	p, err := s.prepare(spec)
	if err != nil {
		return nil, err
	}
	go s.execute(context.Background(), p)
	return p.run, nil
}

// execute drives one prepared run to a terminal state.
func (s *Service) execute(ctx context.Context, p *prepared) {
	run := p.run

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancels[run.ID] = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.cancels, run.ID)
		s.mu.Unlock()
	}()

	now := time.Now()
	run.Status = models.RunRunning
	run.StartedAt = &now
	if err := s.store.SaveRun(run); err != nil {
		s.log.WithError(err).WithField("run_id", run.ID).Warn("could not persist running state")
	}

	s.hub.Publish(run.ID, models.InitEvent(run))
	s.hub.Publish(run.ID, models.ToolStartEvent(run.Tool, run.Target, "", 0))

	s.log.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"tool":    run.Tool,
		"target":  run.Target,
		"timeout": run.TimeoutSeconds,
	}).Info("dispatching run")

	res := s.exec.Execute(runCtx, backend.Request{
		Command:        run.Args,
		TimeoutSeconds: run.TimeoutSeconds,
		MemoryLimitMB:  p.manifest.MemoryLimitMB,
		CPULimit:       p.manifest.CPULimit,
	})

	s.finish(run, res)
}

// finish records the classified result, archives captured output, and
// publishes the terminal event.
func (s *Service) finish(run *models.Run, res executor.Result) {
	done := time.Now()
	run.Status = res.Status
	run.ExitCode = res.ExitCode
	run.Stdout = res.Stdout
	run.Stderr = res.Stderr
	run.DurationSeconds = res.DurationSeconds
	run.CompletedAt = &done
	if res.Status != models.RunCompleted {
		run.Error = res.Stderr
	}

	s.archiveOutput(run)

	if err := s.store.SaveRun(run); err != nil {
		s.log.WithError(err).WithField("run_id", run.ID).Warn("could not persist terminal run")
	}

	if run.Stdout != "" {
		s.hub.Publish(run.ID, models.OutputChunkEvent(run.Stdout))
	}
	s.hub.Publish(run.ID, models.ToolCompleteEvent(run.Tool, run.Status, run.DurationSeconds))

	if run.Status == models.RunCompleted {
		s.hub.Publish(run.ID, models.CompletedEvent(run))
	} else {
		s.hub.Publish(run.ID, models.FailedEvent(failReason(run)))
	}

	s.log.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"status":   run.Status,
		"duration": run.DurationSeconds,
	}).Info("run finished")
}

// archiveOutput writes captured streams to the artifact directory and sets
// the reference fields. Best effort — archival failure never fails a run.
func (s *Service) archiveOutput(run *models.Run) {
	if s.artifactDir == "" || (run.Stdout == "" && run.Stderr == "") {
		return
	}
	started := run.CreatedAt
	if run.StartedAt != nil {
		started = *run.StartedAt
	}
	dir := storage.RunArtifactDir(s.artifactDir, run.Target, run.ID, started)

	if run.Stdout != "" {
		if ref, err := storage.WriteArtifact(dir, "stdout.log", []byte(run.Stdout)); err == nil {
			run.StdoutRef = ref
		} else {
			s.log.WithError(err).WithField("run_id", run.ID).Warn("could not archive stdout")
		}
	}
	if run.Stderr != "" {
		if ref, err := storage.WriteArtifact(dir, "stderr.log", []byte(run.Stderr)); err == nil {
			run.StderrRef = ref
		} else {
			s.log.WithError(err).WithField("run_id", run.ID).Warn("could not archive stderr")
		}
	}
}

// Cancel aborts an in-flight run. The executor classifies the outcome as
// cancelled and the normal finish path records it.
func (s *Service) Cancel(id string) error {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, id)
	}
	cancel()
	return nil
}

// Get returns the current run snapshot.
func (s *Service) Get(id string) (*models.Run, error) {
	return s.store.GetRun(id)
}

// List returns runs for a target, newest first; empty target lists all.
func (s *Service) List(target string) ([]*models.Run, error) {
	return s.store.ListRuns(target)
}

// Delete removes a run record. Runs still executing cannot be deleted.
func (s *Service) Delete(id string) error {
	run, err := s.store.GetRun(id)
	if err != nil {
		return err
	}
	if run.Status == models.RunRunning {
		return fmt.Errorf("%w: %s", ErrRunActive, id)
	}
	if err := s.store.DeleteRun(id); err != nil {
		return err
	}
	s.hub.Forget(id)
	return nil
}

// failReason extracts the display-ready reason for a failed run.
func failReason(run *models.Run) string {
	if run.Error != "" {
		return run.Error
	}
	return fmt.Sprintf("run ended with status %s", run.Status)
}
