package render

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/worktrunk/internal/model"
)

func TestStatusline_JoinsNonEmptyPiecesWithDoubleSpace(t *testing.T) {
	row := &model.StatusRow{
		Branch:     "feature",
		AheadBehind: &model.AheadBehind{Ahead: 2, Behind: 1},
		BranchDiff:  &model.LineDiff{Added: 10, Deleted: 3},
	}
	line := Statusline(row, false)
	assert.Equal(t, "feature  ↑2↓1  ^+10/-3", line)
}

func TestStatusline_FallsBackToNameWhenBranchEmpty(t *testing.T) {
	row := &model.StatusRow{Name: "detached-abcd"}
	assert.Equal(t, "detached-abcd", Statusline(row, false))
}

func TestStatusline_OmitsEmptyWorkingTreeDiff(t *testing.T) {
	row := &model.StatusRow{Branch: "main", WorkingTreeDiff: &model.LineDiff{}}
	assert.Equal(t, "main", Statusline(row, false))
}

func TestFormatLineDiff_OmitsZeroSide(t *testing.T) {
	row := &model.StatusRow{Branch: "main", BranchDiff: &model.LineDiff{Added: 5}}
	assert.Equal(t, "main  ^+5", Statusline(row, false))
}

func TestRender_TextModeOneLinePerRow(t *testing.T) {
	rows := []*model.StatusRow{
		{Branch: "main"},
		{Branch: "feature"},
	}
	out, err := Render(rows, ModeText, false)
	require.NoError(t, err)
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "feature")
}

func TestRender_JSONModeRoundTrips(t *testing.T) {
	rows := []*model.StatusRow{
		{Branch: "feature", Head: "abc123", AheadBehind: &model.AheadBehind{Ahead: 1}},
	}
	out, err := Render(rows, ModeJSON, false)
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "feature", decoded[0]["branch"])
	assert.Equal(t, "abc123", decoded[0]["head_sha"])
	assert.Equal(t, float64(1), decoded[0]["ahead"])
}

func TestJSON_OmitsNilOptionalFields(t *testing.T) {
	rows := []*model.StatusRow{{Branch: "main"}}
	b, err := JSON(rows)
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	_, hasAhead := decoded[0]["ahead"]
	assert.False(t, hasAhead)
	_, hasBranchDiff := decoded[0]["branch_diff"]
	assert.False(t, hasBranchDiff)
}

func TestTable_DimsPotentiallyRemovableRowsWhenColored(t *testing.T) {
	removable := &model.StatusRow{Branch: "stale", MainState: model.MainEmpty}
	lines := Table([]*model.StatusRow{removable}, true)
	require.Len(t, lines, 1)
	assert.NotEqual(t, "stale", lines[0][:5])
}

func TestGlyphs_LengthMatchesSlotCount(t *testing.T) {
	row := &model.StatusRow{
		Branch:             "main",
		WorkingTreeStatus:  &model.WorkingTreeStatus{Staged: 1, Modified: 1, Untracked: 1},
		WorktreeLocation:   model.LocationLocked,
		MainState:          model.MainAhead,
		UpstreamDivergence: model.UpstreamAhead,
		UserMarker:         "*",
	}
	glyphs := Glyphs(row)
	assert.Len(t, glyphs, int(slotCount))
}

func TestStatusline_CIGlyphIsPlainWhenUncolored(t *testing.T) {
	ci := model.CIFailure
	row := &model.StatusRow{Branch: "main", CI: &ci}
	assert.Equal(t, "main  ●", Statusline(row, false))
}

func TestStatusline_CIGlyphIsStyledPerConclusionWhenColored(t *testing.T) {
	success, failure, pending := model.CISuccess, model.CIFailure, model.CIPending
	successLine := Statusline(&model.StatusRow{Branch: "main", CI: &success}, true)
	failureLine := Statusline(&model.StatusRow{Branch: "main", CI: &failure}, true)
	pendingLine := Statusline(&model.StatusRow{Branch: "main", CI: &pending}, true)

	assert.NotEqual(t, successLine, failureLine)
	assert.NotEqual(t, failureLine, pendingLine)
	assert.Contains(t, successLine, "●")
	assert.Contains(t, failureLine, "●")
	assert.Contains(t, pendingLine, "●")
}
