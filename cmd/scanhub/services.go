package main

import (
	"fmt"
	"time"

	"github.com/hamza/scanhub/internal/backend"
	"github.com/hamza/scanhub/internal/executor"
	"github.com/hamza/scanhub/internal/orchestrator"
	"github.com/hamza/scanhub/internal/registry"
	"github.com/hamza/scanhub/internal/runs"
	"github.com/hamza/scanhub/internal/storage"
	"github.com/hamza/scanhub/internal/stream"
)

// services is the wired application stack shared by serve, run, and scan.
type services struct {
	store *storage.Store
	reg   *registry.Registry
	hub   *stream.Hub
	runs  *runs.Service
	orch  *orchestrator.Orchestrator
}

func openServices() (*services, error) {
	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	reg, err := registry.Load(cfg.ManifestDir, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	var be backend.Backend
	if cfg.Backend.Type == "remote" {
		be = backend.NewHTTPBackend(cfg.Backend.URL)
	} else {
		be = backend.NewLocalBackend("")
	}

	hub := stream.NewHub(log)
	runSvc := runs.NewService(store, reg, executor.New(be, log), hub, cfg.ArtifactDir, log)

	var notifier orchestrator.Notifier
	if cfg.Notify.WebhookURL != "" {
		notifier = orchestrator.NewWebhookNotifier(cfg.Notify.WebhookURL, log)
	}
	orch := orchestrator.New(store, runSvc, hub, notifier, log)
	orch.MaxDuration = time.Duration(cfg.Scan.MaxSessionMinutes) * time.Minute

	return &services{store: store, reg: reg, hub: hub, runs: runSvc, orch: orch}, nil
}

func (s *services) Close() {
	s.store.Close()
}
