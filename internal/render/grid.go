package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shaneholloman/worktrunk/internal/model"
)

// columnWidths measures, for each slot, the widest *displayed* glyph across
// every row (§8 invariant 11). lipgloss.Width strips ANSI before measuring,
// so it is safe to call on already-styled strings.
func columnWidths(rows []*model.StatusRow, th Theme) [slotCount]int {
	var widths [slotCount]int
	for _, row := range rows {
		syms := rowSymbols(row, th)
		for i, s := range syms {
			if w := lipgloss.Width(s.raw); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

// Grid renders one line per row with every slot padded to the batch-wide
// column width, so the same symbol type lands in the same column on every
// row. colored selects styled glyphs; when false every slot is rendered
// plain (safe for piping).
func Grid(rows []*model.StatusRow, colored bool) []string {
	th := plainTheme()
	if colored {
		th = defaultTheme()
	}
	widths := columnWidths(rows, th)

	lines := make([]string, len(rows))
	for i, row := range rows {
		var b strings.Builder
		for slot, s := range rowSymbols(row, th) {
			w := widths[slot]
			if !s.present {
				b.WriteString(strings.Repeat(" ", w))
				continue
			}
			text := s.raw
			if colored {
				text = s.styled
			}
			b.WriteString(text)
			if pad := w - lipgloss.Width(s.raw); pad > 0 {
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		lines[i] = b.String()
	}
	return lines
}

// GridColumn returns one row's grid-aligned status column against an
// externally-supplied width mask (e.g. the header row's widths), used when
// progressive rendering emits rows one at a time and must stay aligned with
// a width computed from the full batch (§5: partial and final renders share
// identical alignment).
func GridColumn(row *model.StatusRow, widths [7]int, colored bool) string {
	th := plainTheme()
	if colored {
		th = defaultTheme()
	}
	var b strings.Builder
	for slot, s := range rowSymbols(row, th) {
		w := widths[slot]
		if !s.present {
			b.WriteString(strings.Repeat(" ", w))
			continue
		}
		text := s.raw
		if colored {
			text = s.styled
		}
		b.WriteString(text)
		if pad := w - lipgloss.Width(s.raw); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
	}
	return b.String()
}

// ColumnWidths exposes columnWidths for callers (e.g. the list handler) that
// need to compute a mask once from the full row set and reuse it across
// progressive per-row renders via GridColumn.
func ColumnWidths(rows []*model.StatusRow, colored bool) [7]int {
	th := plainTheme()
	if colored {
		th = defaultTheme()
	}
	return columnWidths(rows, th)
}
