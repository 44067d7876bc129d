package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hamza/scanhub/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scanhub HTTP API server",
	Long: `Start the HTTP API server exposing the tool catalog, scope management,
run launching, smart scans, and live status streaming over SSE.

The manifest directory is watched for changes, so editing or adding a
manifest file takes effect without a restart. Sessions left running by a
previous process are marked failed at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// ── 1. Wire the application stack ─────────────────────────────────
		svcs, err := openServices()
		if err != nil {
			return err
		}
		defer svcs.Close()

		// ── 2. Recover sessions orphaned by an earlier process ────────────
		if err := svcs.orch.RecoverStale(); err != nil {
			return fmt.Errorf("recovering stale sessions: %w", err)
		}

		// ── 3. Hot-reload manifests until shutdown ────────────────────────
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		watchDone := make(chan struct{})
		go func() {
			if err := svcs.reg.Watch(watchDone); err != nil {
				log.WithError(err).Warn("manifest watcher stopped")
			}
		}()
		defer close(watchDone)

		// ── 4. Serve until signalled ──────────────────────────────────────
		srv := server.New(svcs.store, svcs.reg, svcs.runs, svcs.orch, svcs.hub, log)
		fmt.Printf("[*] scanhub API listening on %s\n", cfg.Addr())
		return srv.Run(ctx, cfg.Addr())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
