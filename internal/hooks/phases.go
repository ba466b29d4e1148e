package hooks

import (
	"context"

	"github.com/shaneholloman/worktrunk/internal/model"
)

// backgroundPhases are the phases §4.G runs detached rather than inline.
var backgroundPhases = map[model.HookPhase]bool{
	model.PhasePostStart:  true,
	model.PhasePostSwitch: true,
	model.PhasePostRemove: true,
}

// IsBackground reports whether phase runs detached per §4.G's execution
// model table.
func IsBackground(phase model.HookPhase) bool {
	return backgroundPhases[phase]
}

// Run dispatches resolved commands for phase to the foreground or
// background runner as the execution-mode table dictates, applying the
// phase's mandated failure strategy. Background phases never return a
// command-failure error: a detached hook's outcome only lives in its log
// file, per §4.G.
func (r *Runner) Run(ctx context.Context, resolved []Resolved, workspacePath string, phase model.HookPhase) error {
	if IsBackground(phase) {
		return r.RunBackground(resolved, workspacePath, phase)
	}
	return r.RunForeground(ctx, resolved, workspacePath, model.StrategyForPhase(phase))
}
