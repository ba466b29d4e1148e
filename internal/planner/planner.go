// Package planner implements the §4.F Command Planner: a pure decision
// function for `switch` that turns already-gathered VCS facts into one of
// four outcomes. It performs no I/O itself — grounded on the teacher's
// CreateFromBranch (internal/cli/operations.go), which inlines the same
// exists/occupied/plain-directory checks ahead of any mutation; this
// package pulls that decision logic out into something callable without a
// git service, so a handler can decide before touching disk.
package planner

import (
	"fmt"

	"github.com/shaneholloman/worktrunk/internal/model"
)

// Outcome is one of the four results `plan_switch` can produce.
type Outcome string

const (
	OutcomeCreate           Outcome = "create"
	OutcomeSwitchToExisting Outcome = "switch_to_existing"
	OutcomeAlreadyAt        Outcome = "already_at"
	OutcomeFail             Outcome = "fail"
)

// Inputs are the VCS facts the caller must gather before calling PlanSwitch; the
// function itself reads none of them from disk.
type Inputs struct {
	// BranchName is the user-supplied identifier, already resolved through
	// special tokens (@, -, ^) if one was used.
	BranchName string
	Create     bool
	Clobber    bool

	// BranchExists reports whether BranchName resolves to a local or
	// remote ref anywhere in the repository.
	BranchExists bool

	// ExistingWorkspacePath is the path of the workspace already checked
	// out to BranchName, or "" if none exists.
	ExistingWorkspacePath string
	CWD                   string

	// ComputedPath is where a new workspace would be created (the
	// rendered worktree_path template), used only when Create fires.
	ComputedPath string
	// PathOccupiedBranch is the branch name of the workspace already
	// occupying ComputedPath, or "" if ComputedPath isn't a workspace.
	PathOccupiedBranch string
	// PathExistsAsPlainDir reports ComputedPath exists but is not itself
	// a registered workspace (e.g. a stray directory, or a removed
	// workspace's leftover files).
	PathExistsAsPlainDir bool

	// BaseBranch is the already-resolved base for a new workspace:
	// user-supplied --base, or trunk if absent.
	BaseBranch string
}

// Plan is the decision `plan_switch` returns.
type Plan struct {
	Outcome Outcome

	// Populated for OutcomeCreate.
	WorkspacePath string
	BaseBranch    string

	// Populated for OutcomeSwitchToExisting / OutcomeAlreadyAt.
	Path string

	// Populated for OutcomeFail.
	Err *model.Error
}

// PlanSwitch evaluates the six ordered rules from §4.F.
func PlanSwitch(in Inputs) Plan {
	// Rule 1: an existing workspace for this branch wins unless --create
	// was explicitly requested (the user wants a *new* one).
	if in.ExistingWorkspacePath != "" && !in.Create {
		if in.CWD == in.ExistingWorkspacePath {
			return Plan{Outcome: OutcomeAlreadyAt, Path: in.ExistingWorkspacePath}
		}
		return Plan{Outcome: OutcomeSwitchToExisting, Path: in.ExistingWorkspacePath}
	}

	// Rule 2: --create against a branch that already exists fails unless
	// --clobber opts into reusing it.
	if in.Create && in.BranchExists && !in.Clobber {
		return Plan{Outcome: OutcomeFail, Err: &model.Error{
			Kind:    model.ErrBranchAlreadyExists,
			Message: fmt.Sprintf("branch %q already exists; drop --create or pass --clobber", in.BranchName),
		}}
	}

	// Rule 3: no --create and the branch doesn't exist anywhere leaves
	// nothing to switch to.
	if !in.Create && !in.BranchExists {
		return Plan{Outcome: OutcomeFail, Err: &model.Error{
			Kind:    model.ErrInvalidReference,
			Message: fmt.Sprintf("no branch or workspace named %q; pass --create to make one", in.BranchName),
		}}
	}

	// Rule 4: the target path is already a different workspace's home.
	if in.PathOccupiedBranch != "" && in.PathOccupiedBranch != in.BranchName {
		return Plan{Outcome: OutcomeFail, Err: &model.Error{
			Kind:    model.ErrWorktreePathOccupied,
			Message: fmt.Sprintf("%s is already checked out to %q", in.ComputedPath, in.PathOccupiedBranch),
		}}
	}

	// Rule 5: the target path exists but isn't a registered workspace.
	if in.PathExistsAsPlainDir {
		return Plan{Outcome: OutcomeFail, Err: &model.Error{
			Kind:    model.ErrWorktreePathExists,
			Message: fmt.Sprintf("%s already exists and is not a workspace", in.ComputedPath),
		}}
	}

	// Rule 6: create it.
	return Plan{Outcome: OutcomeCreate, WorkspacePath: in.ComputedPath, BaseBranch: in.BaseBranch}
}
