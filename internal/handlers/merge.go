package handlers

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/shaneholloman/worktrunk/internal/model"
)

// MergeOptions are the parsed `wt merge` flags (§6). Squash is a tri-state:
// nil defers to the project's configured default.
type MergeOptions struct {
	Target  string
	Squash  *bool
	Keep    bool
	Message string
	NoHooks bool
}

// MergeResult reports what Merge actually did.
type MergeResult struct {
	Target   string
	Squashed bool
	Removed  bool
}

// Merge implements §4.H's merge sketch.
func (e *Env) Merge(ctx context.Context, opts MergeOptions) (*MergeResult, error) {
	target := opts.Target
	if target == "" {
		trunk, err := e.Adapter.DefaultBranchName(ctx)
		if err != nil {
			return nil, &model.Error{Kind: model.ErrBackend, Message: "resolve default branch", Detail: backendDetail(err), Wrapped: err}
		}
		target = trunk
	}

	branch, path, err := e.currentWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	if branch == target {
		fmt.Fprintf(e.Stderr, "Already on %s; nothing to merge\n", target)
		return &MergeResult{Target: target}, nil
	}

	runner := e.hookRunner()
	vs, err := e.baseVariables(ctx)
	if err != nil {
		return nil, err
	}
	vctx := vs.Branch(branch).WorktreePath(path).Target(target).Build()

	if !opts.NoHooks {
		preMerge := e.Config.HookCommands(e.ProjectID, model.PhasePreMerge)
		resolved, rerr := runner.Resolve(preMerge, vctx)
		if rerr != nil {
			return nil, rerr
		}
		if _, gerr := runner.Gate(ctx, resolved); gerr != nil {
			return nil, gerr
		}
		if err := runner.RunForeground(ctx, resolved, path, model.StrategyForPhase(model.PhasePreMerge)); err != nil {
			return nil, err
		}
	}

	if dirty, derr := e.Adapter.IsDirty(ctx, path, true); derr == nil && dirty {
		msg := opts.Message
		if msg == "" {
			msg, err = e.generateCommitMessage(ctx, path, fmt.Sprintf("wt: auto-commit before merging %s into %s", branch, target))
			if err != nil {
				return nil, err
			}
		}
		if err := e.Adapter.Commit(ctx, path, msg); err != nil {
			return nil, &model.Error{Kind: model.ErrBackend, Message: "auto-commit dirty tree", Detail: backendDetail(err), Wrapped: err}
		}
	}

	squash := false
	if opts.Squash != nil {
		squash = *opts.Squash
	} else if eff := e.Config.Effective(e.ProjectID).Merge; eff != nil && eff.Squash != nil {
		squash = *eff.Squash
	}

	squashed := false
	if squash {
		squashMsg := opts.Message
		if squashMsg == "" {
			squashMsg, err = e.generateCommitMessage(ctx, path, fmt.Sprintf("Squash %s into one commit", branch))
			if err != nil {
				return nil, err
			}
		}
		outcome, serr := e.Adapter.SquashCommits(ctx, target, squashMsg, path)
		if serr != nil {
			return nil, &model.Error{Kind: model.ErrBackend, Message: "squash commits", Detail: backendDetail(serr), Wrapped: serr}
		}
		squashed = !outcome.NoNetChanges
	}

	_, rerr := e.Adapter.RebaseOnto(ctx, target, path)
	if rebasing, _ := e.Adapter.IsRebasing(ctx, path); rebasing {
		detail := ""
		if rerr != nil {
			detail = backendDetail(rerr)
		}
		return nil, &model.Error{
			Kind:    model.ErrRebaseConflict,
			Message: fmt.Sprintf("rebase of %s onto %s stopped with conflicts", branch, target),
			Detail:  detail,
		}
	}
	if rerr != nil {
		return nil, &model.Error{Kind: model.ErrBackend, Message: fmt.Sprintf("rebase %s onto %s", branch, target), Detail: backendDetail(rerr), Wrapped: rerr}
	}

	if err := e.Adapter.LocalPush(ctx, target, path); err != nil {
		return nil, &model.Error{Kind: model.ErrNotFastForward, Message: fmt.Sprintf("update %s", target), Detail: backendDetail(err), Wrapped: err}
	}

	// postMergeErr carries a Warn-strategy hook failure: RunForeground has
	// already logged it and run every remaining command, but §4.G requires
	// it re-raised once merge finishes so the process exit code still
	// reflects the failure (scenario S4).
	var postMergeErr error
	if !opts.NoHooks {
		postMerge := e.Config.HookCommands(e.ProjectID, model.PhasePostMerge)
		resolved, rerr2 := runner.Resolve(postMerge, vctx)
		if rerr2 != nil {
			return nil, rerr2
		}
		if _, gerr := runner.Gate(ctx, resolved); gerr != nil {
			return nil, gerr
		}
		postMergeErr = runner.RunForeground(ctx, resolved, path, model.Warn)
	}

	result := &MergeResult{Target: target, Squashed: squashed}
	if opts.Keep {
		return result, postMergeErr
	}

	if err := e.Adapter.RemoveWorkspace(ctx, path); err != nil {
		return nil, &model.Error{Kind: model.ErrBackend, Message: "remove feature workspace", Detail: backendDetail(err), Wrapped: err}
	}
	result.Removed = true

	home, err := e.Adapter.RepoRoot(ctx)
	if err == nil {
		if items, lerr := e.Adapter.ListWorkspaces(ctx); lerr == nil {
			for _, it := range items {
				if it.Path == home && it.Branch != target {
					_ = e.Adapter.CheckoutBranch(ctx, home, target)
				}
			}
		}
		e.Directive.Flush()
		fmt.Fprintf(e.Stderr, "Merged %s into %s; removed feature workspace\n", branch, target)
		if derr := e.Directive.CD(home); derr != nil {
			return result, derr
		}
	}

	return result, postMergeErr
}

// currentWorkspace resolves the branch and path of the workspace the
// process is currently running in.
func (e *Env) currentWorkspace(ctx context.Context) (branch, path string, err error) {
	path, err = e.Adapter.CurrentWorkspacePath(ctx)
	if err != nil {
		return "", "", &model.Error{Kind: model.ErrNotInWorkspace, Message: "not inside a workspace", Wrapped: err}
	}
	items, lerr := e.Adapter.ListWorkspaces(ctx)
	if lerr != nil {
		return "", "", &model.Error{Kind: model.ErrBackend, Message: "list workspaces", Detail: backendDetail(lerr), Wrapped: lerr}
	}
	for _, it := range items {
		if it.Path == path {
			if it.Branch == "" {
				return "", "", &model.Error{Kind: model.ErrDetachedHead, Message: "cannot merge from a detached HEAD"}
			}
			return it.Branch, path, nil
		}
	}
	return "", "", &model.Error{Kind: model.ErrNotInWorkspace, Message: "current workspace not registered"}
}

// generateCommitMessage runs the project's configured commit-generation
// command (if any) in path and returns its trimmed stdout as the message,
// falling back to fallback when none is configured. Only the
// plain-external-command path is implemented; the template/template-file
// prompt machinery is part of the LLM-authoring feature this module
// doesn't build (see DESIGN.md).
func (e *Env) generateCommitMessage(ctx context.Context, path, fallback string) (string, error) {
	commit := e.Config.Effective(e.ProjectID).Commit
	if commit == nil || !commit.Generation.IsConfigured() {
		return fallback, nil
	}
	cmd := exec.CommandContext(ctx, "bash", "-c", commit.Generation.Command) //nolint:gosec // user-configured, same trust level as hooks
	cmd.Dir = path
	out, err := cmd.Output()
	if err != nil {
		return "", &model.Error{
			Kind:    model.ErrLlmCommandFailed,
			Message: "commit message generation command failed",
			Detail:  commit.Generation.Command,
			Wrapped: err,
		}
	}
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return fallback, nil
	}
	return msg, nil
}
