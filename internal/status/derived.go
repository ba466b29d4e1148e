package status

import "github.com/shaneholloman/worktrunk/internal/model"

// computeUpstreamDivergence is the "analogous state machine" §4.D mentions
// for the upstream-tracking column, mirroring the ahead/behind → Ahead/
// Behind/Diverged/None shape used for MainState.
func computeUpstreamDivergence(row *model.StatusRow) model.UpstreamDivergence {
	if row.Upstream == nil {
		return model.UpstreamNone
	}
	switch {
	case row.Upstream.Ahead > 0 && row.Upstream.Behind > 0:
		return model.UpstreamDiverged
	case row.Upstream.Ahead > 0:
		return model.UpstreamAhead
	case row.Upstream.Behind > 0:
		return model.UpstreamBehind
	default:
		return model.UpstreamInSync
	}
}

// computeWorktreeLocation is the third §4.D state machine: worktree
// location/lifecycle flags, checked in the order locked, prunable,
// path-mismatch, falling back to none. It never returns LocationBranch.
func computeWorktreeLocation(attrs model.WorktreeAttrs) model.WorktreeLocationState {
	switch {
	case attrs.Locked != "":
		return model.LocationLocked
	case attrs.Prunable != "":
		return model.LocationPrunable
	case !attrs.PathMatchesTmpl:
		return model.LocationPathMismatch
	default:
		return model.LocationNone
	}
}
