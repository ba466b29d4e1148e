package handlers

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/shaneholloman/worktrunk/internal/render"
	"github.com/shaneholloman/worktrunk/internal/status"
	"github.com/shaneholloman/worktrunk/internal/vcsadapter"
)

// StatuslineOptions are the parsed `wt statusline` flags (§6).
type StatuslineOptions struct {
	ClaudeCode bool
	Stdin      io.Reader
}

// claudeCodeContext is the subset of the Claude Code statusline JSON
// payload this handler cares about: the directory the editor session is
// currently rooted at, which may differ from the process's own cwd.
type claudeCodeContext struct {
	Workspace struct {
		CurrentDir string `json:"current_dir"`
	} `json:"workspace"`
	Cwd string `json:"cwd"`
}

// Statusline implements §4.H's statusline sketch. It never errors outward:
// per §6 the exit code is always 0, with empty output standing in for
// "not in a repo" or any other failure to resolve a row.
func (e *Env) Statusline(ctx context.Context, opts StatuslineOptions) string {
	path, err := e.resolveStatuslinePath(opts)
	if err != nil || path == "" {
		path, err = e.Adapter.CurrentWorkspacePath(ctx)
		if err != nil {
			return ""
		}
	}

	workspaces, err := e.Adapter.ListWorkspaces(ctx)
	if err != nil {
		return ""
	}
	var item *status.Item
	for i := range workspaces {
		ws := workspaces[i]
		if ws.Path == path || strings.HasPrefix(path, ws.Path+"/") {
			current, _ := e.Adapter.ResolveName(ctx, vcsadapter.SymbolCurrent)
			item = &status.Item{
				Workspace: &ws,
				IsCurrent: ws.Branch != "" && ws.Branch == current,
			}
			break
		}
	}
	if item == nil {
		return ""
	}

	trunk, err := e.Adapter.DefaultBranchName(ctx)
	if err != nil {
		return ""
	}
	agg := status.New(e.Adapter, trunk, status.Options{})
	rows, err := agg.Rows(ctx, []status.Item{*item})
	if err != nil || len(rows) == 0 {
		return ""
	}
	return render.Statusline(rows[0], false)
}

func (e *Env) resolveStatuslinePath(opts StatuslineOptions) (string, error) {
	if !opts.ClaudeCode || opts.Stdin == nil {
		return "", nil
	}
	var payload claudeCodeContext
	if err := json.NewDecoder(opts.Stdin).Decode(&payload); err != nil {
		return "", err
	}
	if payload.Workspace.CurrentDir != "" {
		return payload.Workspace.CurrentDir, nil
	}
	return payload.Cwd, nil
}
