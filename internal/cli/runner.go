// Package cli shells out to the assistant CLI in non-interactive print
// mode and turns its exit into a tasks.ChatResult.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/go-gitbridge/gitbridge/internal/errdefs"
	"github.com/go-gitbridge/gitbridge/internal/tasks"
)

// sessionIDPattern matches the session UUID the CLI prints when it
// creates or resumes a conversation.
var sessionIDPattern = regexp.MustCompile(
	`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`,
)

// Runner invokes the assistant CLI binary. It implements tasks.Runner.
type Runner struct {
	binary string
}

// NewRunner returns a runner using the given CLI binary name or path.
func NewRunner(binary string) *Runner {
	if binary == "" {
		binary = "claude"
	}
	return &Runner{binary: binary}
}

// RunChat executes one chat turn. A non-zero CLI exit is still a valid
// result: the exit code and stderr land in the ChatResult and the task
// completes. Only environment failures (missing binary, bad project
// path, timeout) come back as errors.
func (r *Runner) RunChat(ctx context.Context, req tasks.ChatRequest) (tasks.ChatResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return tasks.ChatResult{}, errdefs.BadRequestf("message must not be empty")
	}

	args := []string{"-p", req.Message}
	if req.SessionID != "" {
		args = append(args, "--resume", req.SessionID)
	}
	if req.SkipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	if req.ProjectPath != "" {
		info, err := os.Stat(req.ProjectPath)
		if err != nil || !info.IsDir() {
			return tasks.ChatResult{}, errdefs.BadRequestf("project path %s is not a directory", req.ProjectPath)
		}
		cmd.Dir = req.ProjectPath
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := tasks.ChatResult{
		Output:    strings.TrimSpace(stdout.String()),
		Stderr:    strings.TrimSpace(stderr.String()),
		SessionID: extractSessionID(stdout.String(), stderr.String(), req.SessionID),
	}

	switch {
	case err == nil:
		return result, nil
	case ctx.Err() != nil:
		return tasks.ChatResult{}, fmt.Errorf("%w: CLI did not finish in time", errdefs.ErrTimeout)
	case errors.Is(err, exec.ErrNotFound):
		return tasks.ChatResult{}, fmt.Errorf("%w: CLI binary %q not found in PATH", errdefs.ErrUnavailable, r.binary)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return tasks.ChatResult{}, fmt.Errorf("run %s: %w", r.binary, err)
}

// Version reports the CLI's version string, or an error when the binary
// is not runnable. Used by the health probe.
func (r *Runner) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, r.binary, "--version").Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: CLI binary %q not found in PATH", errdefs.ErrUnavailable, r.binary)
		}
		return "", fmt.Errorf("%s --version: %w", r.binary, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// extractSessionID pulls the conversation UUID out of the CLI output.
// When resuming, the known session ID wins over anything printed. With
// no session ID anywhere, "unknown" marks a completed one-shot turn
// that cannot be resumed.
func extractSessionID(stdout, stderr, requested string) string {
	if requested != "" {
		return requested
	}
	if m := sessionIDPattern.FindString(stdout); m != "" {
		return m
	}
	if m := sessionIDPattern.FindString(stderr); m != "" {
		return m
	}
	return "unknown"
}
