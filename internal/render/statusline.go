package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shaneholloman/worktrunk/internal/model"
)

// formatLineDiff renders a line-diff total as "+a/-d", omitting a zero side,
// or "" when both sides are zero. Ported from the original renderer's
// format_diff_plain for the branch-diff / working-diff columns.
func formatLineDiff(d *model.LineDiff) string {
	if d == nil || d.Empty() {
		return ""
	}
	switch {
	case d.Added > 0 && d.Deleted > 0:
		return fmt.Sprintf("+%d/-%d", d.Added, d.Deleted)
	case d.Added > 0:
		return fmt.Sprintf("+%d", d.Added)
	default:
		return fmt.Sprintf("-%d", d.Deleted)
	}
}

// formatAheadBehind renders "↑a↓b", omitting a zero side, or "" when both
// sides are zero.
func formatAheadBehind(ahead, behind int) string {
	if ahead == 0 && behind == 0 {
		return ""
	}
	var b strings.Builder
	if ahead > 0 {
		fmt.Fprintf(&b, "↑%d", ahead)
	}
	if behind > 0 {
		fmt.Fprintf(&b, "↓%d", behind)
	}
	return b.String()
}

// ciIndicator renders the CI glyph colored by conclusion (green success,
// red failure, yellow pending) — same glyph, distinct color, matching how
// the grid already dims rather than reshapes removable-row symbols.
func ciIndicator(ci *model.CIStatus, th Theme, colored bool) string {
	if ci == nil {
		return ""
	}
	const glyph = "●"
	var st lipgloss.Style
	switch *ci {
	case model.CISuccess:
		st = th.Success
	case model.CIFailure:
		st = th.Blocker
	case model.CIPending:
		st = th.Warning
	default:
		return ""
	}
	if !colored {
		return glyph
	}
	return st.Render(glyph)
}

// Compact renders a row's status symbols with no grid padding, used by the
// statusline single-line format and by JSON's status_symbols array source.
func Compact(row *model.StatusRow, colored bool) string {
	th := plainTheme()
	if colored {
		th = defaultTheme()
	}
	var b strings.Builder
	for _, s := range rowSymbols(row, th) {
		if !s.present {
			continue
		}
		if colored {
			b.WriteString(s.styled)
		} else {
			b.WriteString(s.raw)
		}
	}
	return b.String()
}

// Statusline assembles the §4.E single-line format:
//
//	branch  status  @working  commits  ^branch_diff  upstream  ci
//
// with two-space separators, omitting any empty piece. This exact string is
// also what `list --format=json` publishes per row as "statusline", and what
// `wt statusline` prints for the current workspace.
func Statusline(row *model.StatusRow, colored bool) string {
	th := plainTheme()
	if colored {
		th = defaultTheme()
	}

	var parts []string

	branch := row.Branch
	if branch == "" {
		branch = row.Name
	}
	parts = append(parts, branch)

	if status := Compact(row, colored); status != "" {
		parts = append(parts, status)
	}

	if working := formatLineDiff(row.WorkingTreeDiff); working != "" {
		parts = append(parts, "@"+working)
	}

	if row.AheadBehind != nil {
		if commits := formatAheadBehind(row.AheadBehind.Ahead, row.AheadBehind.Behind); commits != "" {
			parts = append(parts, commits)
		}
	}

	if branchDiff := formatLineDiff(row.BranchDiff); branchDiff != "" {
		parts = append(parts, "^"+branchDiff)
	}

	if row.Upstream != nil {
		if up := formatAheadBehind(row.Upstream.Ahead, row.Upstream.Behind); up != "" {
			parts = append(parts, up)
		}
	}

	if ci := ciIndicator(row.CI, th, colored); ci != "" {
		parts = append(parts, ci)
	}

	return strings.Join(parts, "  ")
}
