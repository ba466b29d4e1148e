package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/shaneholloman/worktrunk/internal/model"
	"github.com/shaneholloman/worktrunk/internal/status"
)

// RemoveOptions are the parsed `wt remove` flags (§6).
type RemoveOptions struct {
	Name    string
	Force   bool
	NoHooks bool
}

// RemoveResult reports what Remove did.
type RemoveResult struct {
	Branch string
	Path   string
}

// Remove implements §4.H's remove sketch: resolve the target, refuse the
// primary workspace, gate on integration unless forced, run hooks, remove.
func (e *Env) Remove(ctx context.Context, opts RemoveOptions) (*RemoveResult, error) {
	branch, err := e.resolveToken(ctx, opts.Name)
	if err != nil {
		return nil, err
	}

	path, hasWorkspace, err := e.Adapter.WorkspaceForBranch(ctx, branch)
	if err != nil {
		return nil, &model.Error{Kind: model.ErrBackend, Message: "list workspaces", Detail: backendDetail(err), Wrapped: err}
	}
	if !hasWorkspace {
		return nil, &model.Error{Kind: model.ErrInvalidReference, Message: fmt.Sprintf("no workspace for %q", branch)}
	}

	primary, err := e.Adapter.RepoRoot(ctx)
	if err != nil {
		return nil, &model.Error{Kind: model.ErrBackend, Message: "resolve repo root", Detail: backendDetail(err), Wrapped: err}
	}
	if path == primary {
		return nil, &model.Error{Kind: model.ErrInvalidReference, Message: "cannot remove the primary workspace"}
	}

	if !opts.Force {
		trunk, terr := e.Adapter.DefaultBranchName(ctx)
		if terr != nil {
			return nil, &model.Error{Kind: model.ErrBackend, Message: "resolve default branch", Detail: backendDetail(terr), Wrapped: terr}
		}
		head := branch
		reason, ierr := status.LazyIntegration(ctx, e.Adapter, trunk, branch, head)
		if ierr != nil {
			return nil, &model.Error{Kind: model.ErrBackend, Message: "check integration", Detail: backendDetail(ierr), Wrapped: ierr}
		}
		if reason == model.ReasonNone {
			return nil, &model.Error{
				Kind:    model.ErrIntegrationUnconfirmed,
				Message: fmt.Sprintf("%s does not look merged into %s", branch, trunk),
				Detail:  "no integration signal (same commit, ancestor, no added changes, matching tree, or no-op merge) found; pass --force to remove anyway",
			}
		}
	}

	cwd, _ := e.Adapter.CurrentWorkspacePath(ctx)

	vs, err := e.baseVariables(ctx)
	if err != nil {
		return nil, err
	}
	vctx := vs.Branch(branch).WorktreePath(path).Build()
	runner := e.hookRunner()

	if !opts.NoHooks {
		preRemove := e.Config.HookCommands(e.ProjectID, model.PhasePreRemove)
		resolved, rerr := runner.Resolve(preRemove, vctx)
		if rerr != nil {
			return nil, rerr
		}
		if _, gerr := runner.Gate(ctx, resolved); gerr != nil {
			return nil, gerr
		}
		if err := runner.RunForeground(ctx, resolved, path, model.StrategyForPhase(model.PhasePreRemove)); err != nil {
			return nil, err
		}
	}

	if err := e.Adapter.RemoveWorkspace(ctx, path); err != nil {
		return nil, &model.Error{Kind: model.ErrBackend, Message: fmt.Sprintf("remove workspace for %q", branch), Detail: backendDetail(err), Wrapped: err}
	}

	if !opts.NoHooks {
		postRemove := e.Config.HookCommands(e.ProjectID, model.PhasePostRemove)
		resolved, rerr := runner.Resolve(postRemove, vctx)
		if rerr == nil {
			if skip, gerr := runner.Gate(ctx, resolved); gerr == nil && !skip {
				if berr := runner.RunBackground(resolved, primary, model.PhasePostRemove); berr != nil {
					fmt.Fprintf(e.Stderr, "Warning: %v\n", berr)
				}
			}
		}
	}

	fmt.Fprintf(e.Stderr, "Removed %s\n", branch)

	if cwd != "" && (cwd == path || strings.HasPrefix(cwd, path+"/")) {
		e.Directive.Flush()
		if err := e.Directive.CD(primary); err != nil {
			return &RemoveResult{Branch: branch, Path: path}, err
		}
	}

	return &RemoveResult{Branch: branch, Path: path}, nil
}
