package render

import "github.com/charmbracelet/lipgloss"

// Theme holds the styles the grid and statusline renderers apply to each
// glyph category. Colors mirror the semantic palette the teacher's TUI
// theme uses (cyan for activity, red for blocking problems, yellow for
// states needing attention, dim for purely informational symbols) but this
// is a much smaller set: the CLI renderer has no panes or borders to theme.
type Theme struct {
	Working lipgloss.Style // staged/modified/untracked
	Blocker lipgloss.Style // merge conflicts, would-conflict, CI failure
	Warning lipgloss.Style // rebase/merge in progress, locked/prunable, CI pending
	Info    lipgloss.Style // main-state/upstream glyphs, branch indicator
	Success lipgloss.Style // CI success
}

func defaultTheme() Theme {
	return Theme{
		Working: lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD")),
		Blocker: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")),
	}
}

// plainTheme renders every glyph unstyled, used when color is disabled
// (piped output or --format=json).
func plainTheme() Theme {
	return Theme{
		Working: lipgloss.NewStyle(),
		Blocker: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Info:    lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
	}
}
