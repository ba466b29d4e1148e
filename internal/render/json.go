package render

import (
	"encoding/json"

	"github.com/shaneholloman/worktrunk/internal/model"
)

type lineDiffJSON struct {
	Added   uint `json:"added"`
	Deleted uint `json:"deleted"`
}

type upstreamJSON struct {
	Remote string `json:"remote"`
	Ahead  int    `json:"ahead"`
	Behind int    `json:"behind"`
}

// jsonRow is the §6 JSON row shape: stable field order, None-valued fields
// elided via omitempty, status_symbols as literal glyphs alongside the
// main_state enum string.
type jsonRow struct {
	Name            string         `json:"name"`
	Head            string         `json:"head_sha"`
	Branch          string         `json:"branch,omitempty"`
	Path            string         `json:"path,omitempty"`
	Ahead           *int           `json:"ahead,omitempty"`
	Behind          *int           `json:"behind,omitempty"`
	BranchDiff      *lineDiffJSON  `json:"branch_diff,omitempty"`
	WorkingTreeDiff *lineDiffJSON  `json:"working_tree_diff,omitempty"`
	Upstream        *upstreamJSON  `json:"upstream,omitempty"`
	StatusSymbols   []string       `json:"status_symbols"`
	MainState       string         `json:"main_state,omitempty"`
	OperationState  string         `json:"operation_state,omitempty"`
	IsCurrent       bool           `json:"is_current,omitempty"`
	IsPrevious      bool           `json:"is_previous,omitempty"`
	Statusline      string         `json:"statusline,omitempty"`
}

func toJSONRow(row *model.StatusRow) jsonRow {
	out := jsonRow{
		Name:           row.Name,
		Head:           row.Head,
		Branch:         row.Branch,
		Path:           row.Path,
		StatusSymbols:  Glyphs(row),
		MainState:      string(row.MainState),
		OperationState: row.OperationState,
		IsCurrent:      row.WorktreeAttrs.IsCurrent,
		IsPrevious:     row.WorktreeAttrs.IsPrevious,
		Statusline:     Statusline(row, false),
	}

	if row.AheadBehind != nil {
		ahead, behind := row.AheadBehind.Ahead, row.AheadBehind.Behind
		out.Ahead, out.Behind = &ahead, &behind
	}
	if row.BranchDiff != nil {
		out.BranchDiff = &lineDiffJSON{Added: row.BranchDiff.Added, Deleted: row.BranchDiff.Deleted}
	}
	if row.WorkingTreeDiff != nil {
		out.WorkingTreeDiff = &lineDiffJSON{Added: row.WorkingTreeDiff.Added, Deleted: row.WorkingTreeDiff.Deleted}
	}
	if row.Upstream != nil {
		out.Upstream = &upstreamJSON{Remote: row.Upstream.Remote, Ahead: row.Upstream.Ahead, Behind: row.Upstream.Behind}
	}

	return out
}

// JSON marshals a batch of rows to the §6 JSON array shape.
func JSON(rows []*model.StatusRow) ([]byte, error) {
	out := make([]jsonRow, len(rows))
	for i, row := range rows {
		out[i] = toJSONRow(row)
	}
	return json.Marshal(out)
}
