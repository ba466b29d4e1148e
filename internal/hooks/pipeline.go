// Package hooks implements the §4.G Hook Pipeline: resolving the ordered
// commands attached to a lifecycle phase, gating them behind one approval
// prompt, and running them either sequentially in the foreground or
// detached in the background. Grounded on the teacher's runInitCommands /
// runTerminateCommands (internal/cli/operations.go), generalized from two
// hardcoded phases to the full nine-phase table and given a real approval
// gate instead of the teacher's inline trust check.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaneholloman/worktrunk/internal/approval"
	"github.com/shaneholloman/worktrunk/internal/directive"
	"github.com/shaneholloman/worktrunk/internal/model"
	"github.com/shaneholloman/worktrunk/internal/tmplengine"
	"github.com/shaneholloman/worktrunk/internal/wtlog"
)

// Resolved is one command with its template already expanded, ready to run
// or to show at the approval gate.
type Resolved struct {
	Command model.Command
	Line    string // expanded shell command
}

// Runner executes hook phases against one workspace.
type Runner struct {
	Engine    *tmplengine.Engine
	Store     *approval.Store
	ProjectID string
	RepoRoot  string
	VCSDir    string // ".git" or ".jj", used for the wt-logs/ location
	Stdout    io.Writer
	Stderr    io.Writer
	// Interactive reports whether the gate may prompt; false (e.g. stdin not
	// a TTY) forces the NotInteractive failure unless Force is set.
	Interactive bool
	Force       bool
	// Prompt asks the user to approve the given commands, returning true if
	// they accepted. Nil Prompt with Interactive true is a programmer error.
	Prompt func(lines []string) (bool, error)
}

// Resolve expands every command in phase against ctx, in configuration
// order. Commands is the full ordered list configured for phase (global
// config entries followed by repo-local ones, per §4.C precedence), already
// selected by the caller.
func (r *Runner) Resolve(commands []model.Command, ctx tmplengine.Context) ([]Resolved, error) {
	resolved := make([]Resolved, 0, len(commands))
	for _, c := range commands {
		line, err := r.Engine.Expand(c.Template, ctx, tmplengine.ShellEscape)
		if err != nil {
			return nil, fmt.Errorf("expand hook %q: %w", nameOf(c), err)
		}
		resolved = append(resolved, Resolved{Command: c, Line: line})
	}
	return resolved, nil
}

func nameOf(c model.Command) string {
	if c.Name != "" {
		return c.Name
	}
	return c.Template
}

// Gate runs the approval workflow described in §4.G: collect every resolved
// command across every about-to-run phase, dedupe by normalized template,
// drop already-approved ones, and prompt once for the rest. It returns
// skipHooks=true when the user declined (hooks are skipped, not the
// surrounding VCS operation) and a *model.Error with ErrNotInteractive if
// the gate can't be satisfied at all.
func (r *Runner) Gate(ctx context.Context, batches ...[]Resolved) (skipHooks bool, err error) {
	var all []Resolved
	for _, b := range batches {
		all = append(all, b...)
	}
	if len(all) == 0 {
		return false, nil
	}

	seen := make(map[string]bool)
	var pending []Resolved
	for _, res := range all {
		key := tmplengine.Normalize(res.Command.Template)
		if seen[key] {
			continue
		}
		seen[key] = true
		approved, aerr := r.Store.IsApproved(r.ProjectID, res.Command.Template)
		if aerr != nil {
			return false, aerr
		}
		if !approved {
			pending = append(pending, res)
		}
	}
	if len(pending) == 0 {
		return false, nil
	}

	if r.Force {
		// --force approves for this run without persisting (§4.G: CI usage).
		return false, nil
	}

	if !r.Interactive {
		return false, &model.Error{
			Kind:    model.ErrNotInteractive,
			Message: "hook commands require approval but stdin is not a terminal; pass --force or pre-approve them",
		}
	}

	lines := make([]string, len(pending))
	for i, p := range pending {
		lines[i] = p.Line
	}
	ok, perr := r.Prompt(lines)
	if perr != nil {
		return false, perr
	}
	if !ok {
		fmt.Fprintln(r.Stderr, "Commands declined, continuing worktree creation")
		return true, nil
	}
	for _, p := range pending {
		if err := r.Store.Approve(ctx, r.ProjectID, p.Command.Template); err != nil {
			if errors.Is(err, approval.ErrLockUnavailable) {
				fmt.Fprintf(r.Stderr, "Warning: approvals not saved: %v\n", err)
				return false, nil
			}
			return false, err
		}
	}
	return false, nil
}

// RunForeground executes resolved commands in order, streaming stdio, with
// cwd set to workspacePath. strategy decides what happens on a non-zero
// exit: FailFast returns immediately, Warn logs and remembers only the
// first failure, re-raising it (with its original exit code folded into the
// returned error) once every command has run.
func (r *Runner) RunForeground(ctx context.Context, resolved []Resolved, workspacePath string, strategy model.FailureStrategy) error {
	var first error
	for _, res := range resolved {
		err := r.runOne(ctx, res, workspacePath, r.Stdout, r.Stderr)
		if err == nil {
			continue
		}
		if strategy == model.FailFast {
			return &model.Error{
				Kind:    model.ErrHookCommandFailed,
				Message: fmt.Sprintf("hook %q failed", nameOf(res.Command)),
				Detail:  err.Error(),
			}
		}
		fmt.Fprintf(r.Stderr, "Warning: hook %q failed: %v\n", nameOf(res.Command), err)
		if first == nil {
			first = err
			if exitErr, ok := err.(*exec.ExitError); ok {
				first = &model.Error{
					Kind:     model.ErrHookCommandFailed,
					Message:  fmt.Sprintf("hook %q failed", nameOf(res.Command)),
					Detail:   err.Error(),
					ExitCode: exitErr.ExitCode(),
				}
			}
		}
	}
	return first
}

func (r *Runner) runOne(ctx context.Context, res Resolved, cwd string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, "bash", "-c", res.Line) //nolint:gosec // hook commands are explicitly approved
	cmd.Dir = cwd
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = directive.StripFromEnv(os.Environ())
	return cmd.Run()
}

// RunBackground spawns every resolved command detached: stdio redirected to
// a per-command log file under <repo>/{.git|.jj}/wt-logs/, detached from
// the parent's process group so it outlives this invocation. Per §5 these
// are not cancellable from the parent once spawned.
func (r *Runner) RunBackground(resolved []Resolved, workspacePath string, phase model.HookPhase) error {
	if len(resolved) == 0 {
		return nil
	}
	logDir := filepath.Join(r.RepoRoot, r.VCSDir, "wt-logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("create wt-logs dir: %w", err)
	}
	stamp := stampNow()
	for _, res := range resolved {
		logPath := filepath.Join(logDir, fmt.Sprintf("%s-%s-%s.log", stamp, phase, logName(res.Command)))
		f, err := wtlog.NewFileWriter(logPath)
		if err != nil {
			return fmt.Errorf("create hook log %s: %w", logPath, err)
		}
		cmd := exec.Command("bash", "-c", res.Line) //nolint:gosec // hook commands are explicitly approved
		cmd.Dir = workspacePath
		cmd.Stdout = f
		cmd.Stderr = f
		cmd.Env = directive.StripFromEnv(os.Environ())
		detach(cmd)
		if err := cmd.Start(); err != nil {
			_ = f.Close()
			return fmt.Errorf("spawn background hook %q: %w", nameOf(res.Command), err)
		}
		go func(c *exec.Cmd, file io.WriteCloser) {
			_ = c.Wait()
			_ = file.Close()
		}(cmd, f)
	}
	return nil
}

func logName(c model.Command) string {
	if c.Name != "" {
		return tmplengine.Sanitize(c.Name)
	}
	return uuid.NewString()[:8]
}

// stampNow names the log file timestamp. WT_TEST_EPOCH (§6) overrides the
// system clock so snapshot tests get deterministic log file names.
var stampNow = func() string {
	if epoch := os.Getenv("WT_TEST_EPOCH"); epoch != "" {
		if sec, err := strconv.ParseInt(epoch, 10, 64); err == nil {
			return time.Unix(sec, 0).UTC().Format("20060102T150405Z")
		}
	}
	return time.Now().UTC().Format("20060102T150405Z")
}
