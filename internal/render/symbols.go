package render

import "github.com/shaneholloman/worktrunk/internal/model"

// Slot is one of the 7 fixed status-column positions §4.E names. Each row's
// grid render pads every slot to the column's maximum displayed width
// independent of the others, so a glyph of a given kind lands in the same
// screen column on every row.
type Slot int

const (
	SlotStaged Slot = iota
	SlotModified
	SlotUntracked
	SlotWorktreeState
	SlotMainState
	SlotUpstreamDivergence
	SlotUserMarker
	slotCount
)

// symbol is one rendered slot: raw (unstyled, for width measurement and
// plain mode) and styled (for color mode). present is false when the slot
// has nothing to show for this row — render pads with spaces either way.
type symbol struct {
	raw     string
	styled  string
	present bool
}

// glyphs is the mapping of every enum value this renderer draws to its
// single-character symbol, ported verbatim from the original implementation's
// status-symbol table.
const (
	glyphStaged    = "+"
	glyphModified  = "!"
	glyphUntracked = "?"

	glyphWorktreeBranch       = "/"
	glyphWorktreePathMismatch = "⚑" // flag
	glyphWorktreePrunable     = "⋟"
	glyphWorktreeLocked       = "⋞"
	glyphOpRebase             = "⤴"
	glyphOpMerge              = "⤵"

	glyphMainIsMain        = "^"
	glyphMainWouldConflict = "✗"
	glyphMainEmpty         = "_"
	glyphMainSameCommit    = "–" // en dash
	glyphMainIntegrated    = "⊂"
	glyphMainDiverged      = "↕"
	glyphMainAhead         = "↑"
	glyphMainBehind        = "↓"

	glyphUpstreamInSync   = "|"
	glyphUpstreamAhead    = "⇡"
	glyphUpstreamBehind   = "⇣"
	glyphUpstreamDiverged = "⇅"
)

// rowSymbols computes all 7 slots for one row, in display order.
func rowSymbols(row *model.StatusRow, th Theme) [slotCount]symbol {
	var out [slotCount]symbol

	if row.WorkingTreeStatus != nil {
		ws := row.WorkingTreeStatus
		out[SlotStaged] = style(th.Working, ws.Staged > 0, glyphStaged)
		out[SlotModified] = style(th.Working, ws.Modified > 0 || ws.Renamed > 0 || ws.Deleted > 0, glyphModified)
		out[SlotUntracked] = style(th.Working, ws.Untracked > 0, glyphUntracked)
	}

	out[SlotWorktreeState] = worktreeStateSymbol(row, th)
	out[SlotMainState] = mainStateSymbol(row.MainState, th)
	out[SlotUpstreamDivergence] = upstreamSymbol(row.UpstreamDivergence, th)

	if row.UserMarker != "" {
		out[SlotUserMarker] = symbol{raw: row.UserMarker, styled: row.UserMarker, present: true}
	}

	return out
}

func style(st lipglossStyler, present bool, glyph string) symbol {
	if !present {
		return symbol{}
	}
	return symbol{raw: glyph, styled: st.Render(glyph), present: true}
}

// worktreeStateSymbol merges operation state (rebase/merge in progress,
// highest priority) with worktree location state, matching the priority
// order the original renderer documents: operations before location.
func worktreeStateSymbol(row *model.StatusRow, th Theme) symbol {
	switch row.OperationState {
	case "rebase":
		return symbol{raw: glyphOpRebase, styled: th.Warning.Render(glyphOpRebase), present: true}
	case "merge":
		return symbol{raw: glyphOpMerge, styled: th.Warning.Render(glyphOpMerge), present: true}
	}

	switch row.WorktreeLocation {
	case model.LocationPathMismatch:
		return symbol{raw: glyphWorktreePathMismatch, styled: th.Blocker.Render(glyphWorktreePathMismatch), present: true}
	case model.LocationPrunable:
		return symbol{raw: glyphWorktreePrunable, styled: th.Warning.Render(glyphWorktreePrunable), present: true}
	case model.LocationLocked:
		return symbol{raw: glyphWorktreeLocked, styled: th.Warning.Render(glyphWorktreeLocked), present: true}
	case model.LocationBranch:
		return symbol{raw: glyphWorktreeBranch, styled: th.Info.Render(glyphWorktreeBranch), present: true}
	default:
		return symbol{}
	}
}

func mainStateSymbol(state model.MainState, th Theme) symbol {
	var glyph string
	styler := th.Info
	switch state {
	case model.MainIsMain:
		glyph = glyphMainIsMain
	case model.MainWouldConflict:
		glyph, styler = glyphMainWouldConflict, th.Warning
	case model.MainEmpty:
		glyph = glyphMainEmpty
	case model.MainSameCommit:
		glyph = glyphMainSameCommit
	case model.MainIntegrated:
		glyph = glyphMainIntegrated
	case model.MainDiverged:
		glyph = glyphMainDiverged
	case model.MainAhead:
		glyph = glyphMainAhead
	case model.MainBehind:
		glyph = glyphMainBehind
	default:
		return symbol{}
	}
	return symbol{raw: glyph, styled: styler.Render(glyph), present: true}
}

func upstreamSymbol(div model.UpstreamDivergence, th Theme) symbol {
	var glyph string
	switch div {
	case model.UpstreamInSync:
		glyph = glyphUpstreamInSync
	case model.UpstreamAhead:
		glyph = glyphUpstreamAhead
	case model.UpstreamBehind:
		glyph = glyphUpstreamBehind
	case model.UpstreamDiverged:
		glyph = glyphUpstreamDiverged
	default:
		return symbol{}
	}
	return symbol{raw: glyph, styled: th.Info.Render(glyph), present: true}
}

// lipglossStyler is the single method symbols needs from lipgloss.Style,
// named to avoid importing lipgloss directly in this file's signatures.
type lipglossStyler interface {
	Render(...string) string
}

// Glyphs returns the literal, unstyled symbols for a row in slot order,
// skipping empty slots — this is the "status_symbols" JSON array (§6) and
// the compact statusline rendering (§4.E), neither of which carries grid
// padding.
func Glyphs(row *model.StatusRow) []string {
	syms := rowSymbols(row, plainTheme())
	out := make([]string, 0, slotCount)
	for _, s := range syms {
		if s.present {
			out = append(out, s.raw)
		}
	}
	return out
}
