package handlers

import (
	"context"

	"github.com/shaneholloman/worktrunk/internal/model"
)

// HookOptions are the parsed `wt hook <phase>` flags (§6): running a
// phase's commands directly, or managing the approvals behind them.
type HookOptions struct {
	Phase model.HookPhase
	Name  string // restrict to a single named command, "" = all

	Approve       bool
	Revoke        bool
	RevokeProject bool
}

// Hook implements `wt hook <phase>`: with no approvals flag it runs the
// phase's configured commands against the current workspace (the same
// path a detached post-* hook would use); with an approvals flag it
// manages the approval store instead of running anything.
func (e *Env) Hook(ctx context.Context, opts HookOptions) error {
	if opts.RevokeProject {
		return e.Store.RevokeProject(ctx, e.ProjectID)
	}

	path, err := e.Adapter.CurrentWorkspacePath(ctx)
	if err != nil {
		return &model.Error{Kind: model.ErrNotInWorkspace, Message: "not inside a workspace", Wrapped: err}
	}
	branch, _, err := e.currentWorkspace(ctx)
	if err != nil {
		return err
	}

	vs, err := e.baseVariables(ctx)
	if err != nil {
		return err
	}
	vctx := vs.Branch(branch).WorktreePath(path).Build()

	commands := filterByName(e.Config.HookCommands(e.ProjectID, opts.Phase), opts.Name)
	runner := e.hookRunner()
	resolved, err := runner.Resolve(commands, vctx)
	if err != nil {
		return err
	}

	switch {
	case opts.Approve:
		for _, r := range resolved {
			if err := e.Store.Approve(ctx, e.ProjectID, r.Command.Template); err != nil {
				return err
			}
		}
		return nil
	case opts.Revoke:
		for _, r := range resolved {
			if err := e.Store.Revoke(ctx, e.ProjectID, r.Command.Template); err != nil {
				return err
			}
		}
		return nil
	}

	if _, err := runner.Gate(ctx, resolved); err != nil {
		return err
	}
	return runner.Run(ctx, resolved, path, opts.Phase)
}

func filterByName(commands []model.Command, name string) []model.Command {
	if name == "" {
		return commands
	}
	out := make([]model.Command, 0, 1)
	for _, c := range commands {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
