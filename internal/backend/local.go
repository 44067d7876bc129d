package backend

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// LocalBackend executes commands as local subprocesses. The argument vector
// is passed straight to exec — no shell is ever involved. It handles
// concurrent pipe reading to prevent buffer deadlocks and gives cancelled
// subprocesses a grace period before the kill.
type LocalBackend struct {
	// WorkDir, when set, is the working directory for every command.
	WorkDir string

	// Env, when non-nil, replaces the inherited environment. Scanning
	// tools should not see the server's credentials.
	Env []string
}

// NewLocalBackend returns a LocalBackend rooted at workDir.
func NewLocalBackend(workDir string) *LocalBackend {
	return &LocalBackend{WorkDir: workDir}
}

// Execute runs the request's command and captures its output. Resource
// limits beyond the caller's context deadline are advisory for the local
// backend; a remote sandbox enforces them for real.
func (b *LocalBackend) Execute(ctx context.Context, req Request) (*Response, error) {
	if len(req.Command) == 0 {
		return nil, fmt.Errorf("local backend: empty command")
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, req.Command[0], req.Command[1:]...)

	// Grace period for subprocess cleanup after context cancellation.
	cmd.WaitDelay = 5 * time.Second
	cmd.Dir = b.WorkDir
	if b.Env != nil {
		cmd.Env = b.Env
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("local backend: creating stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("local backend: creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("local backend: starting command: %w", err)
	}

	// Read stdout and stderr concurrently to prevent deadlocks.
	var stdoutBuf bytes.Buffer
	var stderrBuf bytes.Buffer

	stdoutDone := make(chan error, 1)
	stderrDone := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(stdoutPipe)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			stdoutBuf.Write(scanner.Bytes())
			stdoutBuf.WriteByte('\n')
		}
		stdoutDone <- scanner.Err()
	}()

	go func() {
		_, err := io.Copy(&stderrBuf, stderrPipe)
		stderrDone <- err
	}()

	<-stdoutDone
	<-stderrDone

	err = cmd.Wait()
	elapsed := time.Since(start)

	resp := &Response{
		Stdout:          stdoutBuf.String(),
		Stderr:          stderrBuf.String(),
		ExitCode:        cmd.ProcessState.ExitCode(),
		DurationSeconds: elapsed.Seconds(),
	}

	if err != nil {
		// Context cancellation surfaces as an error so the executor can
		// classify it; a plain non-zero exit does not.
		if ctx.Err() != nil {
			return resp, fmt.Errorf("local backend: command cancelled: %w", ctx.Err())
		}
		if _, ok := err.(*exec.ExitError); ok {
			return resp, nil
		}
		return resp, fmt.Errorf("local backend: command failed: %w", err)
	}

	return resp, nil
}
