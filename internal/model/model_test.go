package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineDiff_EmptyWhenBothSidesZero(t *testing.T) {
	assert.True(t, LineDiff{}.Empty())
	assert.False(t, LineDiff{Added: 1}.Empty())
	assert.False(t, LineDiff{Deleted: 1}.Empty())
}

func TestWorkingTreeStatus_EmptyWhenEveryCategoryZero(t *testing.T) {
	assert.True(t, WorkingTreeStatus{}.Empty())
	assert.False(t, WorkingTreeStatus{Staged: 1}.Empty())
	assert.False(t, WorkingTreeStatus{Untracked: 1}.Empty())
}

func TestIsPotentiallyRemovable_OnlyEmptyOrIntegrated(t *testing.T) {
	assert.True(t, (&StatusRow{MainState: MainEmpty}).IsPotentiallyRemovable())
	assert.True(t, (&StatusRow{MainState: MainIntegrated}).IsPotentiallyRemovable())
	assert.False(t, (&StatusRow{MainState: MainIsMain}).IsPotentiallyRemovable())
	assert.False(t, (&StatusRow{MainState: MainAhead}).IsPotentiallyRemovable())
	assert.False(t, (&StatusRow{MainState: MainDiverged}).IsPotentiallyRemovable())
}

func TestStrategyForPhase_WarnsOnlyOnPostMergeAndPostRemove(t *testing.T) {
	assert.Equal(t, Warn, StrategyForPhase(PhasePostMerge))
	assert.Equal(t, Warn, StrategyForPhase(PhasePostRemove))
	assert.Equal(t, FailFast, StrategyForPhase(PhasePreSwitch))
	assert.Equal(t, FailFast, StrategyForPhase(PhasePostCreate))
	assert.Equal(t, FailFast, StrategyForPhase(PhasePreMerge))
}
