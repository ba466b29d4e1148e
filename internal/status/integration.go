package status

import (
	"context"

	"github.com/shaneholloman/worktrunk/internal/model"
	"github.com/shaneholloman/worktrunk/internal/vcsadapter"
)

// CheckIntegration implements §4.D's priority ladder: the first signal that
// matches (in SameCommit ≺ Ancestor ≺ NoAddedChanges ≺ TreesMatch ≺
// MergeAddsNothing order) decides the reason; unknown (nil) signals are
// treated conservatively and never match (§8 invariant 7).
func CheckIntegration(s model.IntegrationSignals) model.IntegrationReason {
	switch {
	case s.IsSameCommit != nil && *s.IsSameCommit:
		return model.ReasonSameCommit
	case s.IsAncestor != nil && *s.IsAncestor:
		return model.ReasonAncestor
	case s.HasAddedChanges != nil && !*s.HasAddedChanges:
		return model.ReasonNoAddedChanges
	case s.TreesMatch != nil && *s.TreesMatch:
		return model.ReasonTreesMatch
	case s.WouldMergeAdd != nil && !*s.WouldMergeAdd:
		return model.ReasonMergeAddsNothing
	default:
		return model.ReasonNone
	}
}

// scheduleIntegration populates row.Integration by fanning every signal out
// through runTask (which already owns the row's WaitGroup and semaphore
// slots) — used by the full `list` aggregation where every signal is
// wanted. The lazy, short-circuiting single-answer variant used by
// remove/merge is LazyIntegration below.
func (a *Aggregator) scheduleIntegration(ctx context.Context, runTask func(TaskKind, func(context.Context)), branch, head string, row *model.StatusRow) {
	runTask(TaskIntegrationSame, func(ctx context.Context) {
		if same, err := a.adapter.SameCommit(ctx, a.trunk, head); err == nil {
			row.Integration.IsSameCommit = &same
		}
	})
	runTask(TaskIntegrationAncestor, func(ctx context.Context) {
		if anc, err := a.adapter.IsAncestor(ctx, branch, a.trunk); err == nil {
			row.Integration.IsAncestor = &anc
		}
	})
	runTask(TaskIntegrationAdded, func(ctx context.Context) {
		diff, err := a.adapter.BranchDiffStats(ctx, a.trunk, branch)
		if err == nil {
			added := !diff.Empty()
			row.Integration.HasAddedChanges = &added
		}
	})
	runTask(TaskIntegrationTrees, func(ctx context.Context) {
		if match, err := a.adapter.TreesMatch(ctx, a.trunk, head); err == nil {
			row.Integration.TreesMatch = &match
		}
	})
	runTask(TaskIntegrationMerge, func(ctx context.Context) {
		if would, err := a.adapter.WouldMergeAdd(ctx, branch, a.trunk); err == nil {
			row.Integration.WouldMergeAdd = &would
		}
	})
}

// LazyIntegration computes just enough signals, in priority order, to
// decide integration for a single branch/head — short-circuiting as soon as
// a positive answer is found. This avoids the expensive WouldMergeAdd check
// whenever a cheaper signal already suffices (§4.D), and is what remove/
// merge call instead of the full concurrent scheduleIntegration fan-out.
// Per SPEC_FULL.md's decided Open Question, callers implementing `--force`
// on remove should not call this at all.
func LazyIntegration(ctx context.Context, adapter vcsadapter.Adapter, trunk, branch, head string) (model.IntegrationReason, error) {
	if same, err := adapter.SameCommit(ctx, trunk, head); err == nil && same {
		return model.ReasonSameCommit, nil
	}
	if anc, err := adapter.IsAncestor(ctx, branch, trunk); err == nil && anc {
		return model.ReasonAncestor, nil
	}
	if diff, err := adapter.BranchDiffStats(ctx, trunk, branch); err == nil && diff.Empty() {
		return model.ReasonNoAddedChanges, nil
	}
	if match, err := adapter.TreesMatch(ctx, trunk, head); err == nil && match {
		return model.ReasonTreesMatch, nil
	}
	if would, err := adapter.WouldMergeAdd(ctx, branch, trunk); err == nil && !would {
		return model.ReasonMergeAddsNothing, nil
	}
	return model.ReasonNone, nil
}

// computeMainState runs the §4.D main-column priority ladder:
// IsMain → WouldConflict → Empty → SameCommit → Integrated(reason) →
// Diverged/Ahead/Behind/None.
func computeMainState(a *Aggregator, ctx context.Context, it Item, row *model.StatusRow) model.MainState {
	branch := it.branchName()
	if branch != "" && branch == a.trunk {
		return model.MainIsMain
	}
	if row.WouldConflict != nil && *row.WouldConflict {
		return model.MainWouldConflict
	}

	reason := CheckIntegration(row.Integration)

	sameCommit := row.Integration.IsSameCommit != nil && *row.Integration.IsSameCommit
	clean := row.WorkingTreeStatus == nil || row.WorkingTreeStatus.Empty()
	if sameCommit && clean {
		return model.MainEmpty
	}
	if sameCommit {
		return model.MainSameCommit
	}

	switch reason {
	case model.ReasonNoAddedChanges, model.ReasonTreesMatch, model.ReasonMergeAddsNothing:
		return model.MainIntegrated
	}

	if row.AheadBehind != nil {
		switch {
		case row.AheadBehind.Ahead > 0 && row.AheadBehind.Behind > 0:
			return model.MainDiverged
		case row.AheadBehind.Ahead > 0:
			return model.MainAhead
		case row.AheadBehind.Behind > 0:
			return model.MainBehind
		}
	}
	return model.MainNone
}
