package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamza/scanhub/internal/backend"
	"github.com/hamza/scanhub/internal/models"
)

// backendFunc adapts a function to the backend.Backend interface.
type backendFunc func(ctx context.Context, req backend.Request) (*backend.Response, error)

func (f backendFunc) Execute(ctx context.Context, req backend.Request) (*backend.Response, error) {
	return f(ctx, req)
}

func TestExecuteCompleted(t *testing.T) {
	e := New(backendFunc(func(ctx context.Context, req backend.Request) (*backend.Response, error) {
		return &backend.Response{Stdout: "ok", ExitCode: 0, DurationSeconds: 0.2}, nil
	}), nil)

	res := e.Execute(context.Background(), backend.Request{Command: []string{"nmap"}, TimeoutSeconds: 5})

	assert.Equal(t, models.RunCompleted, res.Status)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 0, *res.ExitCode)
	assert.Equal(t, "ok", res.Stdout)
}

func TestExecuteNonZeroExitIsFailedWithData(t *testing.T) {
	e := New(backendFunc(func(ctx context.Context, req backend.Request) (*backend.Response, error) {
		return &backend.Response{Stdout: "partial", Stderr: "boom", ExitCode: 2}, nil
	}), nil)

	res := e.Execute(context.Background(), backend.Request{Command: []string{"nmap"}, TimeoutSeconds: 5})

	assert.Equal(t, models.RunFailed, res.Status)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, 2, *res.ExitCode)
	assert.Equal(t, "partial", res.Stdout, "output is recorded regardless of exit code")
	assert.Equal(t, "boom", res.Stderr)
}

func TestExecuteTimeout(t *testing.T) {
	e := New(backendFunc(func(ctx context.Context, req backend.Request) (*backend.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), nil)

	start := time.Now()
	res := e.Execute(context.Background(), backend.Request{Command: []string{"sleep"}, TimeoutSeconds: 1})
	elapsed := time.Since(start)

	assert.Equal(t, models.RunTimeout, res.Status)
	assert.Nil(t, res.ExitCode)
	assert.Contains(t, res.Stderr, "timed out after 1 seconds")
	assert.Equal(t, 1, res.DurationSeconds, "duration is measured wall-clock and rounded to whole seconds")
	assert.Less(t, elapsed, 3*time.Second)
}

func TestExecuteCallerCancellation(t *testing.T) {
	e := New(backendFunc(func(ctx context.Context, req backend.Request) (*backend.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	res := e.Execute(ctx, backend.Request{Command: []string{"sleep"}, TimeoutSeconds: 30})

	assert.Equal(t, models.RunCancelled, res.Status)
	assert.Nil(t, res.ExitCode)
}

func TestExecuteTransportErrorIsFailed(t *testing.T) {
	e := New(backendFunc(func(ctx context.Context, req backend.Request) (*backend.Response, error) {
		return nil, errors.New("sandbox unreachable")
	}), nil)

	res := e.Execute(context.Background(), backend.Request{Command: []string{"id"}, TimeoutSeconds: 5})

	assert.Equal(t, models.RunFailed, res.Status)
	assert.Nil(t, res.ExitCode)
	assert.Contains(t, res.Stderr, "sandbox unreachable")
}
