package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamza/scanhub/internal/models"
	"github.com/hamza/scanhub/internal/stream"
)

var (
	watchServer   string
	watchRun      bool
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <id>",
	Short: "Follow a run or scan on a remote scanhub server",
	Long: `Follow the status of a run or scan session on a remote scanhub server
by polling its snapshot endpoint. The polled snapshots are diffed into
the same event stream SSE subscribers see, so this works through proxies
that buffer or strip server-sent events.

Examples:
  scanhub watch --server http://127.0.0.1:8480 3f1c9a00-...
  scanhub watch --server http://127.0.0.1:8480 --run 77ab12ef-...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		path := "/api/scans/"
		if watchRun {
			path = "/api/runs/"
		}
		url := watchServer + path + id

		poller := stream.NewPoller(func(ctx context.Context) (*stream.Snapshot, error) {
			return fetchSnapshot(ctx, url, watchRun)
		})
		poller.Interval = watchInterval

		events := make(chan models.StatusEvent, 16)
		errCh := make(chan error, 1)
		go func() {
			errCh <- poller.Run(cmd.Context(), events)
		}()

		for ev := range events {
			printEvent(ev)
		}
		if err := <-errCh; err != nil && cmd.Context().Err() == nil {
			return err
		}
		return nil
	},
}

// fetchSnapshot turns one snapshot endpoint response into the poller's
// comparable view.
func fetchSnapshot(ctx context.Context, url string, isRun bool) (*stream.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s for %s", resp.Status, url)
	}

	if isRun {
		var envelope struct {
			Data models.Run `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		run := envelope.Data
		snap := &stream.Snapshot{
			Status:   string(run.Status),
			Tool:     run.Tool,
			Target:   run.Target,
			Output:   run.Stdout,
			Error:    run.Error,
			Terminal: run.Status.Terminal(),
		}
		if snap.Terminal {
			snap.Progress = 100
		}
		return snap, nil
	}

	var envelope struct {
		Data models.SmartScanSession `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	session := envelope.Data
	snap := &stream.Snapshot{
		Status:   string(session.Status),
		Progress: session.Progress,
		Phase:    session.CurrentPhase,
		Target:   session.Target,
		Error:    session.Error,
		Terminal: session.Status.Terminal(),
	}
	for _, step := range session.Steps {
		if step.Phase == session.CurrentPhase {
			snap.Tool = step.Tool
			break
		}
	}
	return snap, nil
}

func init() {
	watchCmd.Flags().StringVar(&watchServer, "server", "http://127.0.0.1:8480", "scanhub server base URL")
	watchCmd.Flags().BoolVar(&watchRun, "run", false, "watch a single run instead of a scan session")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", stream.DefaultPollInterval, "poll interval")
	rootCmd.AddCommand(watchCmd)
}
