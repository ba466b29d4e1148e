package handlers

import (
	"context"

	"github.com/shaneholloman/worktrunk/internal/vcsadapter"
)

// fakeAdapter is an in-memory vcsadapter.Adapter double. Only the behavior
// each test exercises is wired; everything else returns a zero value, the
// way the teacher's tests stub internal/git with a small recording fake
// rather than spinning up a real repository per case.
type fakeAdapter struct {
	kind vcsadapter.Kind

	workspaces   []vcsadapter.Workspace
	defaultBranch string
	repoRoot     string
	remoteURL    string
	current      string
	previous     string

	branchExists map[string]bool
	dirty        bool
	rebasing     bool

	branchDiff    vcsadapter.LineDiff // returned by BranchDiffStats
	wouldMergeAdd bool                // returned by WouldMergeAdd

	created []string // branch names passed to CreateWorkspace
	removed []string // paths passed to RemoveWorkspace
	checkedOut []string // "path:branch" passed to CheckoutBranch
	committed []string // messages passed to Commit
	pushed  []string // targets passed to LocalPush
	rebasedOnto []string // targets passed to RebaseOnto

	rebaseErr error
	squashOutcome vcsadapter.SquashOutcome
}

func (f *fakeAdapter) Kind() vcsadapter.Kind { return f.kind }

func (f *fakeAdapter) ListWorkspaces(ctx context.Context) ([]vcsadapter.Workspace, error) {
	return f.workspaces, nil
}

func (f *fakeAdapter) WorkspaceForBranch(ctx context.Context, name string) (string, bool, error) {
	for _, w := range f.workspaces {
		if w.Branch == name {
			return w.Path, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeAdapter) BranchExists(ctx context.Context, name string) (bool, error) {
	return f.branchExists[name], nil
}

func (f *fakeAdapter) CurrentWorkspacePath(ctx context.Context) (string, error) {
	for _, w := range f.workspaces {
		if w.Branch == f.current {
			return w.Path, nil
		}
	}
	return "", nil
}

func (f *fakeAdapter) DefaultBranchName(ctx context.Context) (string, error) {
	return f.defaultBranch, nil
}

func (f *fakeAdapter) IsDirty(ctx context.Context, path string, includeUntracked bool) (bool, error) {
	return f.dirty, nil
}

func (f *fakeAdapter) WorkingDiff(ctx context.Context, path string) (vcsadapter.LineDiff, error) {
	return vcsadapter.LineDiff{}, nil
}

func (f *fakeAdapter) BranchDiffStats(ctx context.Context, base, head string) (vcsadapter.LineDiff, error) {
	return f.branchDiff, nil
}

func (f *fakeAdapter) AheadBehind(ctx context.Context, base, head string) (vcsadapter.Count, error) {
	return vcsadapter.Count{}, nil
}

func (f *fakeAdapter) UpstreamTracking(ctx context.Context, branch string) (string, vcsadapter.Count, bool, error) {
	return "", vcsadapter.Count{}, false, nil
}

func (f *fakeAdapter) IsAncestor(ctx context.Context, a, b string) (bool, error) { return false, nil }
func (f *fakeAdapter) SameCommit(ctx context.Context, a, b string) (bool, error) { return false, nil }
func (f *fakeAdapter) TreesMatch(ctx context.Context, a, b string) (bool, error) { return false, nil }
func (f *fakeAdapter) WouldMergeAdd(ctx context.Context, branch, target string) (bool, error) {
	return f.wouldMergeAdd, nil
}
func (f *fakeAdapter) HasMergeConflicts(ctx context.Context, branch, target string) (bool, error) {
	return false, nil
}

func (f *fakeAdapter) CreateWorkspace(ctx context.Context, name, base, path string) error {
	f.created = append(f.created, name)
	f.workspaces = append(f.workspaces, vcsadapter.Workspace{Path: path, Branch: name})
	return nil
}

func (f *fakeAdapter) RemoveWorkspace(ctx context.Context, path string) error {
	f.removed = append(f.removed, path)
	kept := f.workspaces[:0]
	for _, w := range f.workspaces {
		if w.Path != path {
			kept = append(kept, w)
		}
	}
	f.workspaces = kept
	return nil
}

func (f *fakeAdapter) Commit(ctx context.Context, path, message string) error {
	f.committed = append(f.committed, message)
	f.dirty = false
	return nil
}

func (f *fakeAdapter) CheckoutBranch(ctx context.Context, path, branch string) error {
	f.checkedOut = append(f.checkedOut, path+":"+branch)
	for i, w := range f.workspaces {
		if w.Path == path {
			f.workspaces[i].Branch = branch
		}
	}
	return nil
}

func (f *fakeAdapter) PushToTarget(ctx context.Context, target, path string) error { return nil }

func (f *fakeAdapter) LocalPush(ctx context.Context, target, path string) error {
	f.pushed = append(f.pushed, target)
	return nil
}

func (f *fakeAdapter) RebaseOnto(ctx context.Context, target, path string) (vcsadapter.RebaseOutcome, error) {
	f.rebasedOnto = append(f.rebasedOnto, target)
	if f.rebaseErr != nil {
		return "", f.rebaseErr
	}
	return vcsadapter.RebaseRebased, nil
}

func (f *fakeAdapter) SquashCommits(ctx context.Context, target, msg, path string) (vcsadapter.SquashOutcome, error) {
	return f.squashOutcome, nil
}

func (f *fakeAdapter) IsRebasing(ctx context.Context, path string) (bool, error) { return f.rebasing, nil }
func (f *fakeAdapter) IsMerging(ctx context.Context, path string) (bool, error)  { return false, nil }

func (f *fakeAdapter) ListIgnoredEntries(ctx context.Context, path string) ([]string, error) {
	return nil, nil
}

func (f *fakeAdapter) ResolveName(ctx context.Context, sym vcsadapter.Symbol) (string, error) {
	switch sym {
	case vcsadapter.SymbolCurrent:
		return f.current, nil
	case vcsadapter.SymbolPrevious:
		if f.previous == "" {
			return "", vcsadapter.ErrNoPreviousHistory
		}
		return f.previous, nil
	case vcsadapter.SymbolDefault:
		return f.defaultBranch, nil
	default:
		return string(sym), nil
	}
}

func (f *fakeAdapter) RecordPrevious(ctx context.Context, branch string) error {
	f.previous = branch
	return nil
}

func (f *fakeAdapter) RepoRoot(ctx context.Context) (string, error) { return f.repoRoot, nil }
func (f *fakeAdapter) RemoteURL(ctx context.Context) (string, error) { return f.remoteURL, nil }

var _ vcsadapter.Adapter = (*fakeAdapter)(nil)
