package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamza/scanhub/internal/backend"
	"github.com/hamza/scanhub/internal/executor"
	"github.com/hamza/scanhub/internal/models"
	"github.com/hamza/scanhub/internal/orchestrator"
	"github.com/hamza/scanhub/internal/registry"
	"github.com/hamza/scanhub/internal/runs"
	"github.com/hamza/scanhub/internal/storage"
	"github.com/hamza/scanhub/internal/stream"
)

type backendFunc func(ctx context.Context, req backend.Request) (*backend.Response, error)

func (f backendFunc) Execute(ctx context.Context, req backend.Request) (*backend.Response, error) {
	return f(ctx, req)
}

type fixture struct {
	store *storage.Store
	srv   *Server
}

func newFixture(t *testing.T, b backend.Backend) *fixture {
	t.Helper()

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg, err := registry.Load(t.TempDir(), nil)
	require.NoError(t, err)
	reg.Register(&models.ToolManifest{
		Tool:   "nmap",
		Binary: "nmap",
		ArgsSchema: map[string]models.ParamSpec{
			"scanType": {Type: models.ParamString, Enum: []string{"-sT", "-sS", "-sV"}},
			"ports":    {Type: models.ParamString, Pattern: `^[0-9,\-]+$`, Default: "1-1000"},
			"timing":   {Type: models.ParamString},
		},
		CommandTemplate: []string{"nmap", "{{scanType}}", "{{timing}}", "-p", "{{ports}}", "{{target}}"},
		TimeoutSeconds:  60,
	})
	reg.Register(&models.ToolManifest{Tool: "httpx", Binary: "httpx", CommandTemplate: []string{"httpx", "-u", "{{target}}"}, TimeoutSeconds: 60})

	require.NoError(t, store.SaveScope(models.NewScope("lab", []string{"*.nmap.org"}, []string{"10.0.0.0/8"})))

	hub := stream.NewHub(nil)
	runSvc := runs.NewService(store, reg, executor.New(b, nil), hub, "", nil)
	orch := orchestrator.New(store, runSvc, hub, nil, nil)
	return &fixture{store: store, srv: New(store, reg, runSvc, orch, hub, nil)}
}

func okBackend() backend.Backend {
	return backendFunc(func(ctx context.Context, req backend.Request) (*backend.Response, error) {
		return &backend.Response{Stdout: "80/tcp open\n", ExitCode: 0}, nil
	})
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Code   int             `json:"code"`
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "success", envelope.Status, "error: %s", envelope.Error)
	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, okBackend())
	w := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestToolCatalog(t *testing.T) {
	f := newFixture(t, okBackend())

	var tools []models.ToolManifest
	decodeData(t, f.do(t, http.MethodGet, "/api/tools", nil), &tools)
	require.Len(t, tools, 2)

	var m models.ToolManifest
	decodeData(t, f.do(t, http.MethodGet, "/api/tools/nmap", nil), &m)
	assert.Equal(t, "nmap", m.Binary)

	w := f.do(t, http.MethodGet, "/api/tools/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterToolBumpsVersion(t *testing.T) {
	f := newFixture(t, okBackend())

	w := f.do(t, http.MethodPost, "/api/tools", map[string]interface{}{
		"tool":            "httpx",
		"binary":          "httpx",
		"commandTemplate": []string{"httpx", "-u", "{{target}}", "-json"},
		"timeout":         90,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var m models.ToolManifest
	decodeData(t, w, &m)
	assert.Equal(t, 2, m.Version)

	// Incomplete documents are rejected before touching the catalog.
	w = f.do(t, http.MethodPost, "/api/tools", map[string]interface{}{"tool": "broken"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScopeCheck(t *testing.T) {
	f := newFixture(t, okBackend())

	var res struct {
		Authorized bool   `json:"authorized"`
		ScopeName  string `json:"scope_name"`
		Reason     string `json:"reason"`
	}
	decodeData(t, f.do(t, http.MethodPost, "/api/scopes/check", map[string]string{"target": "scanme.nmap.org"}), &res)
	assert.True(t, res.Authorized)
	assert.Equal(t, "lab", res.ScopeName)

	decodeData(t, f.do(t, http.MethodPost, "/api/scopes/check", map[string]string{"target": "victim.example.net"}), &res)
	assert.False(t, res.Authorized)
	assert.NotEmpty(t, res.Reason)
}

func TestCreateScope(t *testing.T) {
	f := newFixture(t, okBackend())

	w := f.do(t, http.MethodPost, "/api/scopes", map[string]interface{}{
		"name":  "staging",
		"hosts": []string{"*.staging.example.com"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var scopes []models.Scope
	decodeData(t, f.do(t, http.MethodGet, "/api/scopes", nil), &scopes)
	assert.Len(t, scopes, 2)
}

func TestLaunchRunLifecycle(t *testing.T) {
	f := newFixture(t, okBackend())

	w := f.do(t, http.MethodPost, "/api/runs", map[string]interface{}{
		"tool":   "nmap",
		"target": "scanme.nmap.org",
		"params": map[string]interface{}{"scanType": "-sV"},
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var run models.Run
	decodeData(t, w, &run)
	require.NotEmpty(t, run.ID)

	require.Eventually(t, func() bool {
		got, err := f.store.GetRun(run.ID)
		return err == nil && got.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	var got models.Run
	decodeData(t, f.do(t, http.MethodGet, "/api/runs/"+run.ID, nil), &got)
	assert.Equal(t, models.RunCompleted, got.Status)

	var list []models.Run
	decodeData(t, f.do(t, http.MethodGet, "/api/runs?target=scanme.nmap.org", nil), &list)
	require.Len(t, list, 1)

	decodeData(t, f.do(t, http.MethodGet, "/api/runs?target=other.nmap.org", nil), &list)
	assert.Empty(t, list)
}

func TestLaunchRunRejections(t *testing.T) {
	f := newFixture(t, okBackend())

	w := f.do(t, http.MethodPost, "/api/runs", map[string]interface{}{
		"tool":   "nmap",
		"target": "scanme.nmap.org;id",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/runs", map[string]interface{}{
		"tool":   "nmap",
		"target": "victim.example.net",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/runs", map[string]interface{}{
		"tool":   "ghost",
		"target": "scanme.nmap.org",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/runs/nope/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRunEventsReplayAfterTerminal(t *testing.T) {
	f := newFixture(t, okBackend())

	var run models.Run
	decodeData(t, f.do(t, http.MethodPost, "/api/runs", map[string]interface{}{
		"tool":   "nmap",
		"target": "scanme.nmap.org",
	}), &run)

	require.Eventually(t, func() bool {
		got, err := f.store.GetRun(run.ID)
		return err == nil && got.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	w := f.do(t, http.MethodGet, "/api/runs/"+run.ID+"/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "event:init")
	assert.Contains(t, body, "event:output-chunk")
	assert.Contains(t, body, "event:completed")
}

func TestScanEventsStreamLive(t *testing.T) {
	gate := make(chan struct{})
	f := newFixture(t, backendFunc(func(ctx context.Context, req backend.Request) (*backend.Response, error) {
		<-gate
		return &backend.Response{Stdout: "ok\n", ExitCode: 0}, nil
	}))

	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	var session models.SmartScanSession
	decodeData(t, f.do(t, http.MethodPost, "/api/scans", map[string]interface{}{
		"target":    "scanme.nmap.org",
		"objective": "quick",
		"start":     true,
	}), &session)

	resp, err := http.Get(ts.URL + "/api/scans/" + session.ID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	close(gate)

	var sawProgress, sawTerminal bool
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") {
			switch strings.TrimSpace(strings.TrimPrefix(line, "event:")) {
			case "progress":
				sawProgress = true
			case "completed", "failed":
				sawTerminal = true
			}
		}
		if sawTerminal {
			break
		}
	}
	assert.True(t, sawProgress, "progress events reach SSE subscribers")
	assert.True(t, sawTerminal, "the stream ends with a terminal event")
}

func TestScanLifecycle(t *testing.T) {
	f := newFixture(t, okBackend())

	w := f.do(t, http.MethodPost, "/api/scans", map[string]interface{}{
		"target":    "scanme.nmap.org",
		"objective": "quick",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var session models.SmartScanSession
	decodeData(t, w, &session)
	assert.Equal(t, models.SessionCreated, session.Status)

	w = f.do(t, http.MethodPost, "/api/scans/"+session.ID+"/start", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		got, err := f.store.GetSession(session.ID)
		return err == nil && got.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	var got models.SmartScanSession
	decodeData(t, f.do(t, http.MethodGet, "/api/scans/"+session.ID, nil), &got)
	assert.Equal(t, models.SessionCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)

	w = f.do(t, http.MethodDelete, "/api/scans/"+session.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodGet, "/api/scans/"+session.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScanRejectsUnknownObjective(t *testing.T) {
	f := newFixture(t, okBackend())

	w := f.do(t, http.MethodPost, "/api/scans", map[string]interface{}{
		"target":    "scanme.nmap.org",
		"objective": "reckless",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
