// Package render turns status rows (§4.D) into one of {grid-aligned styled
// text, JSON, statusline} as §4.E describes. It never talks to a VCS or a
// terminal directly — callers decide color mode (typically via
// golang.org/x/term.IsTerminal on stdout) and pass it in.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shaneholloman/worktrunk/internal/model"
)

// Mode selects the output shape for Render.
type Mode string

const (
	ModeText Mode = "text"
	ModeJSON Mode = "json"
)

// Render produces the full `list` output for a batch of rows.
func Render(rows []*model.StatusRow, mode Mode, colored bool) (string, error) {
	if mode == ModeJSON {
		b, err := JSON(rows)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return strings.Join(Table(rows, colored), "\n"), nil
}

// Table renders one line per row: branch name (dimmed when the row is
// confirmed removable, §8 invariant 3), grid-aligned status symbols, then
// the informational columns (ahead/behind, branch diff, upstream, CI).
// Columns are separated by two spaces, matching the statusline convention.
func Table(rows []*model.StatusRow, colored bool) []string {
	th := plainTheme()
	if colored {
		th = defaultTheme()
	}
	widths := ColumnWidths(rows, colored)
	nameWidth := 0
	for _, row := range rows {
		name := displayName(row)
		if w := lipgloss.Width(name); w > nameWidth {
			nameWidth = w
		}
	}

	dim := lipgloss.NewStyle().Faint(true)

	lines := make([]string, len(rows))
	for i, row := range rows {
		name := displayName(row)
		if colored && row.IsPotentiallyRemovable() {
			name = dim.Render(name)
		}
		namePad := nameWidth - lipgloss.Width(displayName(row))

		status := GridColumn(row, widths, colored)

		var extras []string
		if ab := formatAheadBehind(nonNilAheadBehind(row)); ab != "" {
			extras = append(extras, ab)
		}
		if bd := formatLineDiff(row.BranchDiff); bd != "" {
			extras = append(extras, "^"+bd)
		}
		if wd := formatLineDiff(row.WorkingTreeDiff); wd != "" {
			extras = append(extras, "@"+wd)
		}
		if row.Upstream != nil {
			if up := formatAheadBehind(row.Upstream.Ahead, row.Upstream.Behind); up != "" {
				extras = append(extras, up)
			}
		}
		if ci := ciIndicator(row.CI, th, colored); ci != "" {
			extras = append(extras, ci)
		}

		line := name + strings.Repeat(" ", namePad) + "  " + status
		if len(extras) > 0 {
			line += "  " + strings.Join(extras, "  ")
		}
		lines[i] = line
	}
	return lines
}

func displayName(row *model.StatusRow) string {
	if row.Branch != "" {
		return row.Branch
	}
	return row.Name
}

func nonNilAheadBehind(row *model.StatusRow) (int, int) {
	if row.AheadBehind == nil {
		return 0, 0
	}
	return row.AheadBehind.Ahead, row.AheadBehind.Behind
}
