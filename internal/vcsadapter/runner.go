package vcsadapter

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shaneholloman/worktrunk/internal/wtlog"
)

// runner executes VCS binaries under a bounded concurrency limit — the same
// counting-semaphore-over-channel shape the teacher's git.Service uses, but
// sized from WORKTRUNK_MAX_CONCURRENT_COMMANDS (§5/§6) rather than a fixed
// CPU-derived default.
type runner struct {
	sem chan struct{}
}

// DefaultConcurrency returns WORKTRUNK_MAX_CONCURRENT_COMMANDS when it is
// set to a non-negative integer (0 = unlimited), otherwise 32.
func DefaultConcurrency() int {
	if v := os.Getenv("WORKTRUNK_MAX_CONCURRENT_COMMANDS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return 32
}

// newRunner builds a runner with n concurrent slots. n == 0 means unlimited
// (WORKTRUNK_MAX_CONCURRENT_COMMANDS=0 per §6).
func newRunner(n int) *runner {
	if n <= 0 {
		return &runner{sem: nil}
	}
	sem := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		sem <- struct{}{}
	}
	return &runner{sem: sem}
}

func (r *runner) acquire() {
	if r.sem != nil {
		<-r.sem
	}
}

func (r *runner) release() {
	if r.sem != nil {
		r.sem <- struct{}{}
	}
}

// run executes bin with args in dir, returning stdout with trailing
// newline trimmed. On non-zero exit it returns a *BackendError.
func (r *runner) run(ctx context.Context, op, bin string, args []string, dir string) (string, error) {
	r.acquire()
	defer r.release()

	wtlog.Debugf("vcsadapter: %s %s (dir=%s)", bin, strings.Join(args, " "), dir)

	cmd := exec.CommandContext(ctx, bin, args...) //nolint:gosec // bin/args are adapter-internal, never user shell strings
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := strings.TrimRight(stdout.String(), "\n")
	if err == nil {
		return out, nil
	}

	exitCode := -1
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	}
	return out, &BackendError{
		Op:       op,
		Stdout:   out,
		Stderr:   normalizeCR(stderr.String()),
		ExitCode: exitCode,
	}
}

// runOK is like run but treats any exit code in okCodes as success,
// returning the exit code alongside stdout for the caller to branch on.
func (r *runner) runOK(ctx context.Context, op, bin string, args []string, dir string, okCodes []int) (string, int, error) {
	r.acquire()
	defer r.release()

	cmd := exec.CommandContext(ctx, bin, args...) //nolint:gosec
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := strings.TrimRight(stdout.String(), "\n")
	if err == nil {
		return out, 0, nil
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return out, -1, &BackendError{Op: op, Stdout: out, Stderr: normalizeCR(stderr.String()), ExitCode: -1}
	}
	code := exitErr.ExitCode()
	for _, ok := range okCodes {
		if ok == code {
			return out, code, nil
		}
	}
	return out, code, &BackendError{Op: op, Stdout: out, Stderr: normalizeCR(stderr.String()), ExitCode: code}
}

// normalizeCR matches §7's "carriage returns normalised to newlines" rule
// for preserved backend stderr.
func normalizeCR(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
