package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shaneholloman/worktrunk/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func TestCheckIntegration_SameCommitWinsTopPriority(t *testing.T) {
	reason := CheckIntegration(model.IntegrationSignals{
		IsSameCommit:    boolPtr(true),
		IsAncestor:      boolPtr(false),
		HasAddedChanges: boolPtr(true),
	})
	assert.Equal(t, model.ReasonSameCommit, reason)
}

func TestCheckIntegration_AncestorBeatsLowerSignals(t *testing.T) {
	reason := CheckIntegration(model.IntegrationSignals{
		IsSameCommit: boolPtr(false),
		IsAncestor:   boolPtr(true),
		TreesMatch:   boolPtr(true),
	})
	assert.Equal(t, model.ReasonAncestor, reason)
}

func TestCheckIntegration_NoAddedChangesBeatsTreesAndMerge(t *testing.T) {
	reason := CheckIntegration(model.IntegrationSignals{
		HasAddedChanges: boolPtr(false),
		TreesMatch:      boolPtr(true),
		WouldMergeAdd:   boolPtr(true),
	})
	assert.Equal(t, model.ReasonNoAddedChanges, reason)
}

func TestCheckIntegration_TreesMatchBeatsMergeAddsNothing(t *testing.T) {
	reason := CheckIntegration(model.IntegrationSignals{
		TreesMatch:    boolPtr(true),
		WouldMergeAdd: boolPtr(true),
	})
	assert.Equal(t, model.ReasonTreesMatch, reason)
}

func TestCheckIntegration_MergeAddsNothingIsLastBeforeDefault(t *testing.T) {
	reason := CheckIntegration(model.IntegrationSignals{
		WouldMergeAdd: boolPtr(false),
	})
	assert.Equal(t, model.ReasonMergeAddsNothing, reason)
}

func TestCheckIntegration_AllNilSignalsDefaultToReasonNone(t *testing.T) {
	assert.Equal(t, model.ReasonNone, CheckIntegration(model.IntegrationSignals{}))
}

func TestCheckIntegration_FalseSignalsDoNotTriggerTheirBranch(t *testing.T) {
	reason := CheckIntegration(model.IntegrationSignals{
		IsSameCommit:    boolPtr(false),
		IsAncestor:      boolPtr(false),
		HasAddedChanges: boolPtr(true),
		TreesMatch:      boolPtr(false),
		WouldMergeAdd:   boolPtr(true),
	})
	assert.Equal(t, model.ReasonNone, reason)
}

func TestComputeUpstreamDivergence_NilUpstreamIsNone(t *testing.T) {
	row := &model.StatusRow{}
	assert.Equal(t, model.UpstreamNone, computeUpstreamDivergence(row))
}

func TestComputeUpstreamDivergence_AheadAndBehindIsDiverged(t *testing.T) {
	row := &model.StatusRow{Upstream: &model.UpstreamInfo{Ahead: 2, Behind: 3}}
	assert.Equal(t, model.UpstreamDiverged, computeUpstreamDivergence(row))
}

func TestComputeUpstreamDivergence_AheadOnly(t *testing.T) {
	row := &model.StatusRow{Upstream: &model.UpstreamInfo{Ahead: 2}}
	assert.Equal(t, model.UpstreamAhead, computeUpstreamDivergence(row))
}

func TestComputeUpstreamDivergence_BehindOnly(t *testing.T) {
	row := &model.StatusRow{Upstream: &model.UpstreamInfo{Behind: 3}}
	assert.Equal(t, model.UpstreamBehind, computeUpstreamDivergence(row))
}

func TestComputeUpstreamDivergence_NeitherIsInSync(t *testing.T) {
	row := &model.StatusRow{Upstream: &model.UpstreamInfo{}}
	assert.Equal(t, model.UpstreamInSync, computeUpstreamDivergence(row))
}

func TestComputeWorktreeLocation_LockedWinsTopPriority(t *testing.T) {
	attrs := model.WorktreeAttrs{Locked: "reason", Prunable: "also", PathMatchesTmpl: false}
	assert.Equal(t, model.LocationLocked, computeWorktreeLocation(attrs))
}

func TestComputeWorktreeLocation_PrunableBeatsPathMismatch(t *testing.T) {
	attrs := model.WorktreeAttrs{Prunable: "gone", PathMatchesTmpl: false}
	assert.Equal(t, model.LocationPrunable, computeWorktreeLocation(attrs))
}

func TestComputeWorktreeLocation_PathMismatchWhenNoOtherFlag(t *testing.T) {
	attrs := model.WorktreeAttrs{PathMatchesTmpl: false}
	assert.Equal(t, model.LocationPathMismatch, computeWorktreeLocation(attrs))
}

func TestComputeWorktreeLocation_NoneWhenEverythingClean(t *testing.T) {
	attrs := model.WorktreeAttrs{PathMatchesTmpl: true}
	assert.Equal(t, model.LocationNone, computeWorktreeLocation(attrs))
}
