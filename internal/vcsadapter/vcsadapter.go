// Package vcsadapter provides a VCS-agnostic view of a repository: listing
// workspaces, running queries (diff stats, ahead/behind, integration
// signals), and performing mutations (create/remove workspace, rebase,
// push). One implementation exists per backend (git, jj); callers hold an
// Adapter without caring which backend answers it.
package vcsadapter

import (
	"context"
	"fmt"
	"strings"
)

// Kind identifies which VCS binary an Adapter drives.
type Kind string

const (
	Git Kind = "git"
	Jj  Kind = "jj"
)

// BackendError is returned for any failing VCS invocation; it carries enough
// of the child process's own report to render a useful gutter block.
type BackendError struct {
	Op       string
	Stdout   string
	Stderr   string
	ExitCode int
}

func (e *BackendError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s: exit status %d", e.Op, e.ExitCode)
	}
	return fmt.Sprintf("%s: exit status %d: %s", e.Op, e.ExitCode, stderr)
}

// RebaseOutcome reports what rebase_onto actually did.
type RebaseOutcome string

const (
	RebaseFastForward RebaseOutcome = "fast_forward"
	RebaseRebased     RebaseOutcome = "rebased"
)

// SquashOutcome reports what squash_commits actually did.
type SquashOutcome struct {
	CommitID      string
	NoNetChanges  bool
}

// WorkspaceItem and the other shared row types live in internal/model; this
// package works directly in terms of those types plus its own LineDiff-free
// raw diff counts (line diff totals), to avoid a cyclic import with the
// model package's render-time fields.
type Workspace struct {
	Path      string
	Name      string
	Head      string
	Branch    string
	IsDefault bool
	Locked    string
	Prunable  string
}

type BranchRef struct {
	Name     string
	Head     string
	IsRemote bool
}

type LineDiff struct {
	Added   uint
	Deleted uint
}

func (d LineDiff) Empty() bool { return d.Added == 0 && d.Deleted == 0 }

type Count struct {
	Ahead  int
	Behind int
}

// Symbol is one of the three special name tokens resolve_name understands.
type Symbol string

const (
	SymbolCurrent  Symbol = "@"
	SymbolPrevious Symbol = "-"
	SymbolDefault  Symbol = "^"
)

// ErrNoPreviousHistory is returned by ResolveName(SymbolPrevious) when the
// VCS config holds no recorded previous-branch value yet.
var ErrNoPreviousHistory = fmt.Errorf("no previous branch recorded")

// Adapter is the VCS-agnostic capability bag described in SPEC_FULL §4.A.
// Implementations hold a backend-specific handle (repo root, binary path);
// there is no deep interface hierarchy, only this one surface plus an
// escape hatch (AsGit/AsJj) for genuinely backend-specific features.
type Adapter interface {
	Kind() Kind

	ListWorkspaces(ctx context.Context) ([]Workspace, error)
	WorkspaceForBranch(ctx context.Context, name string) (string, bool, error)
	// BranchExists reports whether name resolves to a ref anywhere in the
	// repository (local or, for git, the primary remote), independent of
	// whether it has a workspace — the fact the planner's Rule 2/3 need.
	BranchExists(ctx context.Context, name string) (bool, error)
	CurrentWorkspacePath(ctx context.Context) (string, error)
	DefaultBranchName(ctx context.Context) (string, error)

	IsDirty(ctx context.Context, path string, includeUntracked bool) (bool, error)
	WorkingDiff(ctx context.Context, path string) (LineDiff, error)
	BranchDiffStats(ctx context.Context, base, head string) (LineDiff, error)
	AheadBehind(ctx context.Context, base, head string) (Count, error)
	// UpstreamTracking reports the remote name and ahead/behind counts of
	// branch against its configured tracking ref. ok is false when the
	// branch has no upstream.
	UpstreamTracking(ctx context.Context, branch string) (remote string, counts Count, ok bool, err error)
	IsAncestor(ctx context.Context, a, b string) (bool, error)
	SameCommit(ctx context.Context, a, b string) (bool, error)
	TreesMatch(ctx context.Context, a, b string) (bool, error)
	WouldMergeAdd(ctx context.Context, branch, target string) (bool, error)
	HasMergeConflicts(ctx context.Context, branch, target string) (bool, error)

	CreateWorkspace(ctx context.Context, name, base, path string) error
	RemoveWorkspace(ctx context.Context, path string) error
	// Commit stages every change at path and commits it with message; used
	// by merge's auto-commit-dirty-tree step.
	Commit(ctx context.Context, path, message string) error
	// CheckoutBranch moves the workspace at path onto branch without
	// creating a new workspace; used to put the primary workspace on the
	// merge target after a feature workspace is removed.
	CheckoutBranch(ctx context.Context, path, branch string) error

	PushToTarget(ctx context.Context, target, path string) error
	LocalPush(ctx context.Context, target, path string) error
	RebaseOnto(ctx context.Context, target, path string) (RebaseOutcome, error)
	SquashCommits(ctx context.Context, target, msg, path string) (SquashOutcome, error)

	IsRebasing(ctx context.Context, path string) (bool, error)
	IsMerging(ctx context.Context, path string) (bool, error)

	ListIgnoredEntries(ctx context.Context, path string) ([]string, error)

	ResolveName(ctx context.Context, sym Symbol) (string, error)
	RecordPrevious(ctx context.Context, branch string) error

	// RepoRoot is the primary/top-level repository directory (the directory
	// containing .git or .jj), used to key project identity and to locate
	// wt-logs/.
	RepoRoot(ctx context.Context) (string, error)
	// RemoteURL returns the primary remote's URL, or "" if none configured.
	RemoteURL(ctx context.Context) (string, error)
}
