package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shaneholloman/worktrunk/internal/hooks"
	"github.com/shaneholloman/worktrunk/internal/model"
	"github.com/shaneholloman/worktrunk/internal/planner"
	"github.com/shaneholloman/worktrunk/internal/tmplengine"
	"github.com/shaneholloman/worktrunk/internal/vcsadapter"
)

// SwitchOptions are the parsed `wt switch` flags (§6).
type SwitchOptions struct {
	Name        string
	Create      bool
	Base        string
	Clobber     bool
	Execute     string
	ExecuteArgs []string
}

// SwitchResult reports what Switch did, beyond the directive/stderr output
// it already emitted.
type SwitchResult struct {
	Outcome       planner.Outcome
	WorkspacePath string
}

// Switch implements §4.H's switch sketch: plan, gate, execute, record
// history, emit directives, spawn background hooks, optionally exec.
func (e *Env) Switch(ctx context.Context, opts SwitchOptions) (*SwitchResult, error) {
	name, err := e.resolveToken(ctx, opts.Name)
	if err != nil {
		return nil, err
	}

	base := opts.Base
	if base == "" {
		if trunk, terr := e.Adapter.DefaultBranchName(ctx); terr == nil {
			base = trunk
		}
	}

	existingPath, hasWorkspace, err := e.Adapter.WorkspaceForBranch(ctx, name)
	if err != nil {
		return nil, &model.Error{Kind: model.ErrBackend, Message: "list workspaces", Detail: backendDetail(err), Wrapped: err}
	}
	branchExists, err := e.Adapter.BranchExists(ctx, name)
	if err != nil {
		return nil, &model.Error{Kind: model.ErrBackend, Message: "check branch existence", Detail: backendDetail(err), Wrapped: err}
	}
	cwd, _ := e.Adapter.CurrentWorkspacePath(ctx)

	computedPath, err := e.computeWorktreePath(ctx, name)
	if err != nil {
		return nil, err
	}
	occupiedBranch, existsPlain, err := e.inspectPath(ctx, computedPath)
	if err != nil {
		return nil, err
	}

	plan := planner.PlanSwitch(planner.Inputs{
		BranchName:            name,
		Create:                opts.Create,
		Clobber:               opts.Clobber,
		BranchExists:          hasWorkspace || branchExists,
		ExistingWorkspacePath: existingPath,
		CWD:                   cwd,
		ComputedPath:          computedPath,
		PathOccupiedBranch:    occupiedBranch,
		PathExistsAsPlainDir:  existsPlain,
		BaseBranch:            base,
	})

	switch plan.Outcome {
	case planner.OutcomeFail:
		return nil, plan.Err
	case planner.OutcomeAlreadyAt:
		fmt.Fprintf(e.Stderr, "Already at %s\n", name)
		return &SwitchResult{Outcome: plan.Outcome, WorkspacePath: plan.Path}, nil
	}

	creating := plan.Outcome == planner.OutcomeCreate
	workspacePath := plan.Path
	if creating {
		workspacePath = plan.WorkspacePath
	}

	vs, err := e.baseVariables(ctx)
	if err != nil {
		return nil, err
	}
	vs = vs.Branch(name).WorktreeName(name).WorktreePath(workspacePath)
	if creating {
		vs = vs.Base(base).BaseWorktreePath(e.RepoRoot)
	}
	vctx := vs.Build()

	runner := e.hookRunner()

	postCreate := e.Config.HookCommands(e.ProjectID, model.PhasePostCreate)
	postStart := e.Config.HookCommands(e.ProjectID, model.PhasePostStart)
	postSwitch := e.Config.HookCommands(e.ProjectID, model.PhasePostSwitch)

	resolvedCreate, err := runner.Resolve(postCreate, vctx)
	if err != nil {
		return nil, err
	}
	resolvedStart, err := runner.Resolve(postStart, vctx)
	if err != nil {
		return nil, err
	}
	resolvedSwitch, err := runner.Resolve(postSwitch, vctx)
	if err != nil {
		return nil, err
	}

	batches := [][]hooks.Resolved{resolvedSwitch}
	if creating {
		batches = [][]hooks.Resolved{resolvedCreate, resolvedStart, resolvedSwitch}
	}
	skipHooks, err := runner.Gate(ctx, batches...)
	if err != nil {
		return nil, err
	}

	if creating {
		if err := e.Adapter.CreateWorkspace(ctx, name, base, workspacePath); err != nil {
			return nil, &model.Error{Kind: model.ErrBackend, Message: fmt.Sprintf("create workspace for %q", name), Detail: backendDetail(err), Wrapped: err}
		}
		if !skipHooks {
			if err := runner.RunForeground(ctx, resolvedCreate, workspacePath, model.StrategyForPhase(model.PhasePostCreate)); err != nil {
				return nil, err
			}
		}
	}

	if prevBranch, perr := e.currentBranchBeforeSwitch(ctx, cwd); perr == nil && prevBranch != "" && prevBranch != name {
		_ = e.Adapter.RecordPrevious(ctx, prevBranch)
	}

	e.Directive.Flush()
	fmt.Fprintf(e.Stderr, "Switched to %s (%s)\n", name, workspacePath)
	if err := e.Directive.CD(workspacePath); err != nil {
		return nil, err
	}

	if !skipHooks {
		if creating {
			if berr := runner.RunBackground(resolvedStart, workspacePath, model.PhasePostStart); berr != nil {
				fmt.Fprintf(e.Stderr, "Warning: %v\n", berr)
			}
		}
		if berr := runner.RunBackground(resolvedSwitch, workspacePath, model.PhasePostSwitch); berr != nil {
			fmt.Fprintf(e.Stderr, "Warning: %v\n", berr)
		}
	}

	if opts.Execute != "" {
		expanded, eerr := e.Engine.Expand(opts.Execute, vctx, tmplengine.ShellEscape)
		if eerr != nil {
			return nil, eerr
		}
		full := expanded
		for _, a := range opts.ExecuteArgs {
			full += " " + tmplengine.ShellQuote(a)
		}
		if err := e.Directive.Exec(full); err != nil {
			return nil, err
		}
	}

	return &SwitchResult{Outcome: plan.Outcome, WorkspacePath: workspacePath}, nil
}

// computeWorktreePath renders the project's worktree-path template for
// branch and, if relative, resolves it against the repo root.
func (e *Env) computeWorktreePath(ctx context.Context, branch string) (string, error) {
	tmpl := e.Config.WorktreePathForProject(e.ProjectID)
	vs, err := e.baseVariables(ctx)
	if err != nil {
		return "", err
	}
	vctx := vs.Branch(branch).WorktreeName(branch).Build()
	rendered, err := e.Engine.Expand(tmpl, vctx, tmplengine.Literal)
	if err != nil {
		return "", fmt.Errorf("expand worktree-path: %w", err)
	}
	if filepath.IsAbs(rendered) {
		return filepath.Clean(rendered), nil
	}
	return filepath.Clean(filepath.Join(e.RepoRoot, rendered)), nil
}

// inspectPath reports, for path, the branch of the workspace already
// registered there (if any) and whether it exists on disk as an
// unregistered plain directory — planner Rules 4/5.
func (e *Env) inspectPath(ctx context.Context, path string) (occupiedBranch string, existsPlain bool, err error) {
	items, lerr := e.Adapter.ListWorkspaces(ctx)
	if lerr != nil {
		return "", false, &model.Error{Kind: model.ErrBackend, Message: "list workspaces", Detail: backendDetail(lerr), Wrapped: lerr}
	}
	for _, it := range items {
		if it.Path == path {
			return it.Branch, false, nil
		}
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return "", true, nil
	}
	return "", false, nil
}

// currentBranchBeforeSwitch looks up the branch (or a detached-HEAD token)
// of the workspace at cwd, recorded as history for `-` resolution.
func (e *Env) currentBranchBeforeSwitch(ctx context.Context, cwd string) (string, error) {
	if cwd == "" {
		return "", nil
	}
	items, err := e.Adapter.ListWorkspaces(ctx)
	if err != nil {
		return "", err
	}
	for _, it := range items {
		if it.Path == cwd {
			if it.Branch != "" {
				return it.Branch, nil
			}
			return vcsadapter.DetachedToken(it.Head), nil
		}
	}
	return "", nil
}
