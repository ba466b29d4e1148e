// Package handlers implements §4.H: the command handlers for switch, merge,
// remove, list, hook, statusline and config show. Each one composes the
// lower packages (planner, vcsadapter, tmplengine, approval, hooks,
// status, render, directive) the way the teacher's internal/cli package
// composes internal/git + internal/config around a single gitService
// collaborator — generalized from the teacher's two concrete operations
// (CreateFromBranch/DeleteWorktree) to the full set §4.H names.
package handlers

import (
	"context"
	"errors"
	"io"

	"github.com/shaneholloman/worktrunk/internal/approval"
	"github.com/shaneholloman/worktrunk/internal/directive"
	"github.com/shaneholloman/worktrunk/internal/hooks"
	"github.com/shaneholloman/worktrunk/internal/model"
	"github.com/shaneholloman/worktrunk/internal/tmplengine"
	"github.com/shaneholloman/worktrunk/internal/userconfig"
	"github.com/shaneholloman/worktrunk/internal/vcsadapter"
)

// Env bundles every collaborator a handler needs. cmd/worktrunk builds one
// Env per invocation and threads it through whichever handler the parsed
// subcommand dispatches to.
type Env struct {
	Adapter   vcsadapter.Adapter
	Config    *userconfig.UserConfig
	Engine    *tmplengine.Engine
	Store     *approval.Store
	Directive *directive.Writer

	ProjectID  string
	RepoRoot   string
	VCSDir     string // ".git" or ".jj", used for wt-logs/
	ConfigPath string // on-disk location of the loaded user config, for `config show`

	Stdout io.Writer
	Stderr io.Writer

	// Interactive reports whether the hook approval gate may prompt.
	Interactive bool
	// Force approves pending hook commands for this run without persisting
	// (§4.G, the CI `--force` escape hatch) and skips the not-integrated
	// refusal on `remove`.
	Force bool
	// Prompt asks the user to approve the given command lines.
	Prompt func(lines []string) (bool, error)
}

func (e *Env) hookRunner() *hooks.Runner {
	return &hooks.Runner{
		Engine:      e.Engine,
		Store:       e.Store,
		ProjectID:   e.ProjectID,
		RepoRoot:    e.RepoRoot,
		VCSDir:      e.VCSDir,
		Stdout:      e.Stdout,
		Stderr:      e.Stderr,
		Interactive: e.Interactive,
		Force:       e.Force,
		Prompt:      e.Prompt,
	}
}

// resolveToken expands the special name tokens (§6: @, -, ^) to a concrete
// branch name; any other string passes through unchanged.
func (e *Env) resolveToken(ctx context.Context, name string) (string, error) {
	switch vcsadapter.Symbol(name) {
	case vcsadapter.SymbolCurrent:
		branch, err := e.Adapter.ResolveName(ctx, vcsadapter.SymbolCurrent)
		if err != nil {
			return "", &model.Error{Kind: model.ErrNotInWorkspace, Message: "not inside a workspace", Wrapped: err}
		}
		return branch, nil
	case vcsadapter.SymbolPrevious:
		branch, err := e.Adapter.ResolveName(ctx, vcsadapter.SymbolPrevious)
		if err != nil {
			if errors.Is(err, vcsadapter.ErrNoPreviousHistory) {
				return "", &model.Error{Kind: model.ErrInvalidReference, Message: "no previous workspace recorded; switch somewhere first"}
			}
			return "", err
		}
		return branch, nil
	case vcsadapter.SymbolDefault:
		return e.Adapter.DefaultBranchName(ctx)
	default:
		return name, nil
	}
}

// baseVariables builds the §4.B variable set common to every hook
// invocation: repo identity, the primary workspace path, the default
// branch. Phase-specific extras (branch, worktree_path, target, base, ...)
// are layered on by each handler.
func (e *Env) baseVariables(ctx context.Context) (*tmplengine.VariableSet, error) {
	primary, err := e.Adapter.RepoRoot(ctx)
	if err != nil {
		return nil, err
	}
	trunk, err := e.Adapter.DefaultBranchName(ctx)
	if err != nil {
		return nil, err
	}
	vs := tmplengine.NewVariableSet().
		Repo(e.ProjectID).
		RepoPath(e.RepoRoot).
		PrimaryWorktreePath(primary).
		DefaultBranch(trunk)

	if remote, err := e.Adapter.RemoteURL(ctx); err == nil && remote != "" {
		vs = vs.Remote(remote).RemoteURL(remote)
	}
	return vs, nil
}

func backendDetail(err error) string {
	var berr *vcsadapter.BackendError
	if errors.As(err, &berr) {
		return berr.Error()
	}
	return err.Error()
}
