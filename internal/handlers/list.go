package handlers

import (
	"context"

	"github.com/shaneholloman/worktrunk/internal/model"
	"github.com/shaneholloman/worktrunk/internal/render"
	"github.com/shaneholloman/worktrunk/internal/status"
	"github.com/shaneholloman/worktrunk/internal/vcsadapter"
)

// ListOptions are the parsed `wt list` flags (§6).
type ListOptions struct {
	Mode    render.Mode
	Colored bool
}

// List implements §4.H's list sketch: gather every workspace, fan every
// §4.D signal out through the aggregator, and render the resulting rows.
func (e *Env) List(ctx context.Context, opts ListOptions) (string, error) {
	trunk, err := e.Adapter.DefaultBranchName(ctx)
	if err != nil {
		return "", &model.Error{Kind: model.ErrBackend, Message: "resolve default branch", Detail: backendDetail(err), Wrapped: err}
	}
	workspaces, err := e.Adapter.ListWorkspaces(ctx)
	if err != nil {
		return "", &model.Error{Kind: model.ErrBackend, Message: "list workspaces", Detail: backendDetail(err), Wrapped: err}
	}

	current, _ := e.Adapter.ResolveName(ctx, vcsadapter.SymbolCurrent)
	previous, _ := e.Adapter.ResolveName(ctx, vcsadapter.SymbolPrevious)

	items := make([]status.Item, 0, len(workspaces))
	for i := range workspaces {
		ws := workspaces[i]
		items = append(items, status.Item{
			Workspace:  &ws,
			IsCurrent:  ws.Branch != "" && ws.Branch == current,
			IsPrevious: ws.Branch != "" && ws.Branch == previous,
		})
	}

	agg := status.New(e.Adapter, trunk, status.Options{})
	rows, err := agg.Rows(ctx, items)
	if err != nil {
		return "", &model.Error{Kind: model.ErrBackend, Message: "compute status", Detail: backendDetail(err), Wrapped: err}
	}

	mode := opts.Mode
	if mode == "" {
		mode = render.ModeText
	}
	out, err := render.Render(rows, mode, opts.Colored)
	if err != nil {
		return "", err
	}
	return out, nil
}
