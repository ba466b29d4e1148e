package vcsadapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// GitAdapter drives the git CLI. It holds no VCS state itself beyond the
// repo root — every query reads the working tree fresh, matching spec
// §4.A's "no reimplementing a VCS" non-goal.
type GitAdapter struct {
	bin    string
	root   string
	runner *runner

	cachedDefaultBranch string
}

// NewGitAdapter builds a GitAdapter rooted at repoRoot with maxConcurrent
// concurrent child processes (0 = unlimited, per WORKTRUNK_MAX_CONCURRENT_COMMANDS).
func NewGitAdapter(repoRoot string, maxConcurrent int) *GitAdapter {
	return &GitAdapter{
		bin:    "git",
		root:   repoRoot,
		runner: newRunner(maxConcurrent),
	}
}

func (g *GitAdapter) Kind() Kind { return Git }

func (g *GitAdapter) git(ctx context.Context, op string, dir string, args ...string) (string, error) {
	return g.runner.run(ctx, op, g.bin, args, dir)
}

// ListWorkspaces parses `git worktree list --porcelain`, following the same
// line-prefix scan the teacher's GetWorktrees uses, extended to pick up
// `locked`/`prunable`/`bare` markers which the teacher's narrower parser
// ignored.
func (g *GitAdapter) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	raw, err := g.git(ctx, "worktree list", g.root, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	defaultBranch, _ := g.DefaultBranchName(ctx)

	var out []Workspace
	var cur *Workspace
	var bare bool
	flush := func() {
		if cur != nil && !bare {
			out = append(out, *cur)
		}
		cur = nil
		bare = false
	}

	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			cur = &Workspace{Path: strings.TrimPrefix(line, "worktree ")}
		case line == "bare":
			bare = true
		case strings.HasPrefix(line, "HEAD "):
			if cur != nil {
				cur.Head = strings.TrimPrefix(line, "HEAD ")
			}
		case strings.HasPrefix(line, "branch "):
			if cur != nil {
				b := strings.TrimPrefix(line, "branch ")
				b = strings.TrimPrefix(b, "refs/heads/")
				cur.Branch = b
			}
		case strings.HasPrefix(line, "locked"):
			if cur != nil {
				reason := strings.TrimPrefix(line, "locked")
				cur.Locked = strings.TrimSpace(reason)
				if cur.Locked == "" {
					cur.Locked = "locked"
				}
			}
		case strings.HasPrefix(line, "prunable"):
			if cur != nil {
				reason := strings.TrimPrefix(line, "prunable")
				cur.Prunable = strings.TrimSpace(reason)
				if cur.Prunable == "" {
					cur.Prunable = "prunable"
				}
			}
		}
	}
	flush()

	for i := range out {
		out[i].Name = out[i].Branch
		if out[i].Name == "" {
			out[i].Name = filepath.Base(out[i].Path)
		}
		out[i].IsDefault = out[i].Branch == defaultBranch || (defaultBranch == "" && i == 0)
	}

	// Stable ordering: default workspace first.
	for i := range out {
		if out[i].IsDefault && i != 0 {
			out[0], out[i] = out[i], out[0]
			break
		}
	}
	return out, nil
}

func (g *GitAdapter) WorkspaceForBranch(ctx context.Context, name string) (string, bool, error) {
	items, err := g.ListWorkspaces(ctx)
	if err != nil {
		return "", false, err
	}
	for _, it := range items {
		if it.Branch == name {
			return it.Path, true, nil
		}
	}
	return "", false, nil
}

// BranchExists checks both the local ref and, if absent, the primary
// remote's tracking ref, mirroring the show-ref probe CreateWorkspace
// already used inline before this was pulled out as its own adapter method.
func (g *GitAdapter) BranchExists(ctx context.Context, name string) (bool, error) {
	if _, err := g.git(ctx, "show-ref local", g.root, "show-ref", "--verify", "--quiet", "refs/heads/"+name); err == nil {
		return true, nil
	}
	if _, err := g.git(ctx, "show-ref remote", g.root, "show-ref", "--verify", "--quiet", "refs/remotes/origin/"+name); err == nil {
		return true, nil
	}
	return false, nil
}

func (g *GitAdapter) CurrentWorkspacePath(ctx context.Context) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	items, err := g.ListWorkspaces(ctx)
	if err != nil {
		return "", err
	}
	var best string
	for _, it := range items {
		if within(wd, it.Path) && len(it.Path) > len(best) {
			best = it.Path
		}
	}
	if best == "" {
		return "", fmt.Errorf("not inside a workspace")
	}
	return best, nil
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

// DefaultBranchName resolves the trunk branch: cached local view first (the
// repo's own HEAD symref under refs/remotes/origin), falling back to
// querying the remote and writing the cache — matching spec §4.A's
// "cached local view first; on cache miss resolves remote HEAD" contract.
func (g *GitAdapter) DefaultBranchName(ctx context.Context) (string, error) {
	if g.cachedDefaultBranch != "" {
		return g.cachedDefaultBranch, nil
	}

	if v, err := g.git(ctx, "config default branch", g.root, "config", "--get", "worktrunk.default-branch"); err == nil && v != "" {
		g.cachedDefaultBranch = v
		return v, nil
	}

	if ref, err := g.git(ctx, "symbolic-ref origin/HEAD", g.root, "symbolic-ref", "refs/remotes/origin/HEAD"); err == nil && ref != "" {
		name := strings.TrimPrefix(ref, "refs/remotes/origin/")
		g.cachedDefaultBranch = name
		_, _ = g.git(ctx, "config default branch", g.root, "config", "worktrunk.default-branch", name)
		return name, nil
	}

	// Cache miss: ask the remote directly, then cache the result.
	out, err := g.git(ctx, "remote show origin HEAD", g.root, "remote", "show", "origin")
	if err == nil {
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "HEAD branch:") {
				name := strings.TrimSpace(strings.TrimPrefix(line, "HEAD branch:"))
				g.cachedDefaultBranch = name
				_, _ = g.git(ctx, "config default branch", g.root, "config", "worktrunk.default-branch", name)
				return name, nil
			}
		}
	}

	for _, candidate := range []string{"main", "master"} {
		if _, err := g.git(ctx, "rev-parse candidate", g.root, "rev-parse", "--verify", candidate); err == nil {
			g.cachedDefaultBranch = candidate
			return candidate, nil
		}
	}
	return "", fmt.Errorf("cannot determine default branch")
}

func (g *GitAdapter) IsDirty(ctx context.Context, path string, includeUntracked bool) (bool, error) {
	args := []string{"status", "--porcelain"}
	if !includeUntracked {
		args = append(args, "--untracked-files=no")
	}
	out, err := g.git(ctx, "status --porcelain", path, args...)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (g *GitAdapter) WorkingDiff(ctx context.Context, path string) (LineDiff, error) {
	out, err := g.git(ctx, "diff --numstat", path, "diff", "--numstat", "HEAD")
	if err != nil {
		return LineDiff{}, err
	}
	return sumNumstat(out), nil
}

func (g *GitAdapter) BranchDiffStats(ctx context.Context, base, head string) (LineDiff, error) {
	out, err := g.git(ctx, "diff --numstat (three-dot)", g.root, "diff", "--numstat", base+"..."+head)
	if err != nil {
		return LineDiff{}, err
	}
	return sumNumstat(out), nil
}

func sumNumstat(out string) LineDiff {
	var d LineDiff
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if a, err := strconv.Atoi(fields[0]); err == nil {
			d.Added += uint(a)
		}
		if del, err := strconv.Atoi(fields[1]); err == nil {
			d.Deleted += uint(del)
		}
	}
	return d
}

func (g *GitAdapter) AheadBehind(ctx context.Context, base, head string) (Count, error) {
	out, err := g.git(ctx, "rev-list --left-right --count", g.root, "rev-list", "--left-right", "--count", base+"..."+head)
	if err != nil {
		return Count{}, err
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return Count{}, fmt.Errorf("unexpected rev-list output: %q", out)
	}
	behind, _ := strconv.Atoi(fields[0])
	ahead, _ := strconv.Atoi(fields[1])
	return Count{Ahead: ahead, Behind: behind}, nil
}

// UpstreamTracking reads branch@{upstream} and the remote it tracks,
// mirroring the teacher's GetWorktrees branch.ab parsing of
// `status --porcelain=v2 --branch` (upstream only appears when configured).
func (g *GitAdapter) UpstreamTracking(ctx context.Context, branch string) (string, Count, bool, error) {
	remote, err := g.git(ctx, "config branch remote", g.root, "config", "--get", "branch."+branch+".remote")
	if err != nil || remote == "" {
		return "", Count{}, false, nil //nolint:nilerr // no upstream configured is not a failure
	}
	out, err := g.git(ctx, "rev-list upstream --left-right --count", g.root, "rev-list", "--left-right", "--count", branch+"..."+branch+"@{upstream}")
	if err != nil {
		return remote, Count{}, false, nil //nolint:nilerr
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return remote, Count{}, false, nil
	}
	ahead, _ := strconv.Atoi(fields[0])
	behind, _ := strconv.Atoi(fields[1])
	return remote, Count{Ahead: ahead, Behind: behind}, true, nil
}

func (g *GitAdapter) IsAncestor(ctx context.Context, a, b string) (bool, error) {
	_, code, err := g.runner.runOK(ctx, "merge-base --is-ancestor", g.bin, []string{"merge-base", "--is-ancestor", a, b}, g.root, []int{0, 1})
	if err != nil {
		return false, err
	}
	return code == 0, nil
}

func (g *GitAdapter) SameCommit(ctx context.Context, a, b string) (bool, error) {
	ha, err := g.git(ctx, "rev-parse a", g.root, "rev-parse", a)
	if err != nil {
		return false, err
	}
	hb, err := g.git(ctx, "rev-parse b", g.root, "rev-parse", b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}

func (g *GitAdapter) TreesMatch(ctx context.Context, a, b string) (bool, error) {
	ta, err := g.git(ctx, "rev-parse tree a", g.root, "rev-parse", a+"^{tree}")
	if err != nil {
		return false, err
	}
	tb, err := g.git(ctx, "rev-parse tree b", g.root, "rev-parse", b+"^{tree}")
	if err != nil {
		return false, err
	}
	return ta == tb, nil
}

// mergeTreeWriteTree runs the modern `git merge-tree --write-tree <target>
// <branch>` (git computes the merge base itself and writes a real merge
// result tree, unlike the deprecated 3-arg form that prints a textual diff).
// Exit code 0 means a clean merge; exit code 1 means the merge produced
// conflicts, but the first line is still the resulting tree's OID. Any
// other exit code is a real error. Both WouldMergeAdd and HasMergeConflicts
// drive off this one call so they can never disagree about which merge-tree
// mode is in play.
func (g *GitAdapter) mergeTreeWriteTree(ctx context.Context, target, branch string) (tree string, conflicted bool, err error) {
	out, code, err := g.runner.runOK(ctx, "merge-tree --write-tree", g.bin,
		[]string{"merge-tree", "--write-tree", target, branch}, g.root, []int{0, 1})
	if err != nil {
		return "", false, err
	}
	return parseMergeTreeWriteTree(out, code)
}

// parseMergeTreeWriteTree is the pure parsing half of mergeTreeWriteTree:
// the first line of `merge-tree --write-tree` output is always the
// resulting tree's OID, whether or not code signals a conflict (1). Split
// out so the empty-output guard can be exercised without shelling out.
func parseMergeTreeWriteTree(out string, code int) (tree string, conflicted bool, err error) {
	lines := strings.SplitN(out, "\n", 2)
	if len(lines) == 0 || lines[0] == "" {
		return "", false, fmt.Errorf("merge-tree --write-tree: empty output")
	}
	return lines[0], code == 1, nil
}

// WouldMergeAdd simulates a merge of branch into target with `merge-tree`
// (no working tree/index mutation) and reports whether the resulting tree
// differs from target's — the expensive signal §4.D warns about. A
// conflicted merge always counts as "would add": a conflict is itself
// evidence branch has changes target lacks.
func (g *GitAdapter) WouldMergeAdd(ctx context.Context, branch, target string) (bool, error) {
	resultTree, conflicted, err := g.mergeTreeWriteTree(ctx, target, branch)
	if err != nil {
		return true, err
	}
	if conflicted {
		return true, nil
	}
	targetTree, err := g.git(ctx, "rev-parse target tree", g.root, "rev-parse", target+"^{tree}")
	if err != nil {
		return true, err
	}
	return resultTree != targetTree, nil
}

// HasMergeConflicts drives the §4.D "WouldConflict" main-state check: a
// dry-run merge-tree that exits with the conflict status means merging
// branch into target right now would conflict.
func (g *GitAdapter) HasMergeConflicts(ctx context.Context, branch, target string) (bool, error) {
	_, conflicted, err := g.mergeTreeWriteTree(ctx, target, branch)
	if err != nil {
		return false, err
	}
	return conflicted, nil
}

func (g *GitAdapter) CreateWorkspace(ctx context.Context, name, base, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("path already exists: %s", path)
	}
	if base == "" {
		base, _ = g.DefaultBranchName(ctx)
	}
	if _, exists, _ := g.WorkspaceForBranch(ctx, name); exists {
		return fmt.Errorf("branch %q already has a workspace", name)
	}
	branchExists, _ := g.BranchExists(ctx, name)

	var args []string
	if branchExists {
		args = []string{"worktree", "add", path, name}
	} else {
		args = []string{"worktree", "add", "-b", name, path, base}
	}
	_, err := g.git(ctx, "worktree add", g.root, args...)
	return err
}

func (g *GitAdapter) RemoveWorkspace(ctx context.Context, path string) error {
	items, err := g.ListWorkspaces(ctx)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.Path == path && it.IsDefault {
			return fmt.Errorf("refusing to remove the default workspace")
		}
	}
	_, err = g.git(ctx, "worktree remove", g.root, "worktree", "remove", "--force", path)
	return err
}

func (g *GitAdapter) Commit(ctx context.Context, path, message string) error {
	if _, err := g.git(ctx, "add -A", path, "add", "-A"); err != nil {
		return err
	}
	_, err := g.git(ctx, "commit", path, "commit", "-m", message)
	return err
}

func (g *GitAdapter) CheckoutBranch(ctx context.Context, path, branch string) error {
	_, err := g.git(ctx, "checkout", path, "checkout", branch)
	return err
}

func (g *GitAdapter) PushToTarget(ctx context.Context, target, path string) error {
	_, err := g.git(ctx, "push", path, "push", "origin", target)
	return err
}

// LocalPush fast-forwards target to head. If the target has its own
// workspace, any incidental (non-conflicting) uncommitted changes there are
// stashed before the ref update and popped after, per §4.A.
func (g *GitAdapter) LocalPush(ctx context.Context, target, path string) error {
	targetPath, hasWorkspace, _ := g.WorkspaceForBranch(ctx, target)

	head, err := g.git(ctx, "rev-parse HEAD", path, "rev-parse", "HEAD")
	if err != nil {
		return err
	}

	isAncestor, err := g.IsAncestor(ctx, target, head)
	if err == nil && !isAncestor {
		return fmt.Errorf("update of %s would not be a fast-forward", target)
	}

	stashed := false
	if hasWorkspace {
		dirty, _ := g.IsDirty(ctx, targetPath, true)
		if dirty {
			if _, err := g.git(ctx, "stash push", targetPath, "stash", "push", "-u", "-m", "worktrunk: local-push autostash"); err == nil {
				stashed = true
			}
		}
	}

	_, updErr := g.git(ctx, "update-ref", g.root, "update-ref", "refs/heads/"+target, head)

	if stashed {
		_, _ = g.git(ctx, "stash pop", targetPath, "stash", "pop")
	}
	return updErr
}

func (g *GitAdapter) RebaseOnto(ctx context.Context, target, path string) (RebaseOutcome, error) {
	before, _ := g.git(ctx, "rev-parse HEAD before", path, "rev-parse", "HEAD")
	_, err := g.git(ctx, "rebase", path, "rebase", target)
	if err != nil {
		return "", err
	}
	after, _ := g.git(ctx, "rev-parse HEAD after", path, "rev-parse", "HEAD")
	if before == after {
		return RebaseFastForward, nil
	}
	return RebaseRebased, nil
}

func (g *GitAdapter) SquashCommits(ctx context.Context, target, msg, path string) (SquashOutcome, error) {
	base, err := g.git(ctx, "merge-base", path, "merge-base", target, "HEAD")
	if err != nil {
		return SquashOutcome{}, err
	}
	same, err := g.SameCommit(ctx, base, "HEAD")
	if err != nil {
		return SquashOutcome{}, err
	}
	if same {
		return SquashOutcome{NoNetChanges: true}, nil
	}
	if _, err := g.git(ctx, "reset --soft", path, "reset", "--soft", base); err != nil {
		return SquashOutcome{}, err
	}
	if _, err := g.git(ctx, "commit", path, "commit", "-m", msg); err != nil {
		return SquashOutcome{}, err
	}
	id, err := g.git(ctx, "rev-parse HEAD", path, "rev-parse", "HEAD")
	if err != nil {
		return SquashOutcome{}, err
	}
	return SquashOutcome{CommitID: id}, nil
}

func (g *GitAdapter) IsRebasing(ctx context.Context, path string) (bool, error) {
	for _, d := range []string{"rebase-merge", "rebase-apply"} {
		if _, err := os.Stat(filepath.Join(gitDirFor(path), d)); err == nil {
			return true, nil
		}
	}
	return false, nil
}

func (g *GitAdapter) IsMerging(ctx context.Context, path string) (bool, error) {
	if _, err := os.Stat(filepath.Join(gitDirFor(path), "MERGE_HEAD")); err == nil {
		return true, nil
	}
	return false, nil
}

func gitDirFor(path string) string {
	return filepath.Join(path, ".git")
}

// ListIgnoredEntries enumerates ignore-matched paths at directory
// granularity: once a directory itself is ignored, its contents are not
// expanded — matches `git status --porcelain --ignored` without
// `--ignored=matching`, per the original_source behavior this spec supplements.
func (g *GitAdapter) ListIgnoredEntries(ctx context.Context, path string) ([]string, error) {
	out, err := g.git(ctx, "status --ignored", path, "status", "--porcelain", "--ignored")
	if err != nil {
		return nil, err
	}
	var entries []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "!! ") {
			entries = append(entries, strings.TrimPrefix(line, "!! "))
		}
	}
	return entries, nil
}

// ResolveName implements the special-symbol precedence from original_source's
// src/git.rs: @ via current workspace's branch, - via the VCS-config-stored
// previous branch, ^ via the default branch.
func (g *GitAdapter) ResolveName(ctx context.Context, sym Symbol) (string, error) {
	switch sym {
	case SymbolCurrent:
		path, err := g.CurrentWorkspacePath(ctx)
		if err != nil {
			return "", fmt.Errorf("resolve @: %w", err)
		}
		items, err := g.ListWorkspaces(ctx)
		if err != nil {
			return "", err
		}
		for _, it := range items {
			if it.Path == path {
				if it.Branch == "" {
					return "", fmt.Errorf("resolve @: detached HEAD has no branch")
				}
				return it.Branch, nil
			}
		}
		return "", fmt.Errorf("resolve @: current workspace not found")
	case SymbolPrevious:
		v, err := g.git(ctx, "config previous-branch", g.root, "config", "--get", "worktrunk.previous-branch")
		if err != nil || v == "" {
			return "", fmt.Errorf("resolve -: %w", ErrNoPreviousHistory)
		}
		return v, nil
	case SymbolDefault:
		return g.DefaultBranchName(ctx)
	default:
		return "", fmt.Errorf("unknown symbol %q", sym)
	}
}

// RecordPrevious writes the previous-branch token to VCS config, best-effort
// and unlocked (decided Open Question (c): last-writer-wins is accepted).
// When branch is a synthetic detached token (see DetachedToken) it is
// stored as-is; "-"  resolution treats it as an opaque string, same as a
// real branch name.
func (g *GitAdapter) RecordPrevious(ctx context.Context, branch string) error {
	_, err := g.git(ctx, "config previous-branch", g.root, "config", "worktrunk.previous-branch", branch)
	return err
}

func (g *GitAdapter) RepoRoot(ctx context.Context) (string, error) {
	return g.root, nil
}

func (g *GitAdapter) RemoteURL(ctx context.Context) (string, error) {
	out, err := g.git(ctx, "config remote url", g.root, "config", "--get", "remote.origin.url")
	if err != nil {
		return "", nil //nolint:nilerr // absent remote is not a failure, just no URL
	}
	return out, nil
}

// DetachedToken builds the synthetic "@{detached:<sha>}" previous-branch
// value for switching away from a detached HEAD — decided Open Question (a),
// option (b): record history instead of leaving it unset.
func DetachedToken(sha string) string {
	return fmt.Sprintf("@{detached:%s}", sha)
}
