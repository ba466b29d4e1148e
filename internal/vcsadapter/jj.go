package vcsadapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// JjAdapter drives the jj CLI. Grounded on original_source's workspace/jj.rs:
// same revset-template style queries, same "config get/set --repo" storage
// for worktrunk's own bookkeeping keys, same @ / @- feature-tip handling
// since jj auto-snapshots the working copy.
type JjAdapter struct {
	root   string
	runner *runner
}

func NewJjAdapter(repoRoot string, maxConcurrent int) *JjAdapter {
	return &JjAdapter{root: repoRoot, runner: newRunner(maxConcurrent)}
}

func (j *JjAdapter) Kind() Kind { return Jj }

func (j *JjAdapter) jj(ctx context.Context, op, dir string, args ...string) (string, error) {
	return j.runner.run(ctx, op, "jj", args, dir)
}

func (j *JjAdapter) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	tmpl := `name ++ "\x1f" ++ self.change_id().short() ++ "\x1f" ++ self.bookmarks().join(",") ++ "\n"`
	out, err := j.jj(ctx, "workspace list", j.root, "workspace", "list", "-T", tmpl)
	if err != nil {
		return nil, err
	}
	defaultBranch, _ := j.DefaultBranchName(ctx)

	var items []Workspace
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\x1f")
		if len(fields) < 2 {
			continue
		}
		name := fields[0]
		head := fields[1]
		branch := ""
		if len(fields) > 2 && fields[2] != "" {
			branch = strings.Split(fields[2], ",")[0]
		}
		path, err := j.workspaceRoot(ctx, name)
		if err != nil {
			continue
		}
		items = append(items, Workspace{
			Path:      path,
			Name:      name,
			Head:      head,
			Branch:    branch,
			IsDefault: name == "default",
		})
	}

	for i := range items {
		if items[i].IsDefault {
			items[0], items[i] = items[i], items[0]
			break
		}
	}
	_ = defaultBranch
	return items, nil
}

func (j *JjAdapter) workspaceRoot(ctx context.Context, name string) (string, error) {
	out, err := j.jj(ctx, "workspace root", j.root, "workspace", "root", "--name", name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (j *JjAdapter) WorkspaceForBranch(ctx context.Context, name string) (string, bool, error) {
	items, err := j.ListWorkspaces(ctx)
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

// BranchExists reports whether a bookmark named name exists.
func (j *JjAdapter) BranchExists(ctx context.Context, name string) (bool, error) {
	_, err := j.jj(ctx, "bookmark list single", j.root, "bookmark", "list", "-r", name)
	return err == nil, nil
}

func (j *JjAdapter) CurrentWorkspacePath(ctx context.Context) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	items, err := j.ListWorkspaces(ctx)
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
		return "", fmt.Errorf("not inside a jj workspace")
	}
	return best, nil
}

// DefaultBranchName prefers a cached worktrunk.default-branch repo config
// value, falling back to the bookmark(s) pointing at trunk(), preferring
// "main" then "master" then whichever bookmark is found first — matches
// original_source's trunk_bookmark.
func (j *JjAdapter) DefaultBranchName(ctx context.Context) (string, error) {
	if v, err := j.jj(ctx, "config get default-branch", j.root, "config", "get", "worktrunk.default-branch"); err == nil && v != "" {
		return v, nil
	}

	out, err := j.jj(ctx, "log trunk bookmarks", j.root, "log", "-r", "trunk()", "--no-graph", "-T",
		`self.bookmarks().map(|b| b.name()).join("\n")`)
	if err != nil {
		return "", err
	}
	var bookmarks []string
	for _, l := range strings.Split(out, "\n") {
		if l != "" {
			bookmarks = append(bookmarks, l)
		}
	}
	for _, preferred := range []string{"main", "master"} {
		for _, b := range bookmarks {
			if b == preferred {
				_, _ = j.jj(ctx, "config set default-branch", j.root, "config", "set", "--repo", "worktrunk.default-branch", preferred)
				return preferred, nil
			}
		}
	}
	if len(bookmarks) > 0 {
		return bookmarks[0], nil
	}
	return "main", nil
}

func (j *JjAdapter) IsDirty(ctx context.Context, path string, includeUntracked bool) (bool, error) {
	out, err := j.jj(ctx, "log @ empty check", path, "log", "-r", "@", "--no-graph", "-T", `if(self.empty(), "empty", "content")`)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "empty", nil
}

var diffStatTotalRe = regexp.MustCompile(`(\d+) files? changed(?:, (\d+) insertions?\(\+\))?(?:, (\d+) deletions?\(-\))?`)

func parseDiffStatSummary(out string) LineDiff {
	m := diffStatTotalRe.FindStringSubmatch(out)
	if m == nil {
		return LineDiff{}
	}
	var d LineDiff
	if m[2] != "" {
		if n, err := strconv.Atoi(m[2]); err == nil {
			d.Added = uint(n)
		}
	}
	if m[3] != "" {
		if n, err := strconv.Atoi(m[3]); err == nil {
			d.Deleted = uint(n)
		}
	}
	return d
}

func (j *JjAdapter) WorkingDiff(ctx context.Context, path string) (LineDiff, error) {
	out, err := j.jj(ctx, "diff --stat", path, "diff", "--stat")
	if err != nil {
		return LineDiff{}, err
	}
	return parseDiffStatSummary(out), nil
}

func (j *JjAdapter) BranchDiffStats(ctx context.Context, base, head string) (LineDiff, error) {
	out, err := j.jj(ctx, "diff --stat --from --to", j.root, "diff", "--stat", "--from", base, "--to", head)
	if err != nil {
		return LineDiff{}, err
	}
	return parseDiffStatSummary(out), nil
}

func (j *JjAdapter) AheadBehind(ctx context.Context, base, head string) (Count, error) {
	ahead, err := j.countRevset(ctx, fmt.Sprintf("%s..%s", base, head))
	if err != nil {
		return Count{}, err
	}
	behind, err := j.countRevset(ctx, fmt.Sprintf("%s..%s", head, base))
	if err != nil {
		return Count{}, err
	}
	return Count{Ahead: ahead, Behind: behind}, nil
}

func (j *JjAdapter) countRevset(ctx context.Context, revset string) (int, error) {
	out, err := j.jj(ctx, "log revset count", j.root, "log", "-r", revset, "--no-graph", "-T", `"x\n"`)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, l := range strings.Split(out, "\n") {
		if l != "" {
			n++
		}
	}
	return n, nil
}

// UpstreamTracking: jj bookmarks track a remote copy implicitly
// (`<bookmark>@<remote>`) rather than a persistent per-branch config
// setting, so "configured upstream" is approximated as the same-named
// remote bookmark on the first configured remote, when one exists.
func (j *JjAdapter) UpstreamTracking(ctx context.Context, branch string) (string, Count, bool, error) {
	remotes, err := j.jj(ctx, "git remote list", j.root, "git", "remote", "list")
	if err != nil || remotes == "" {
		return "", Count{}, false, nil //nolint:nilerr
	}
	remote := strings.Fields(strings.Split(remotes, "\n")[0])[0]
	remoteRef := fmt.Sprintf("%s@%s", branch, remote)
	ahead, err := j.countRevset(ctx, fmt.Sprintf("%s..%s", remoteRef, branch))
	if err != nil {
		return remote, Count{}, false, nil //nolint:nilerr
	}
	behind, err := j.countRevset(ctx, fmt.Sprintf("%s..%s", branch, remoteRef))
	if err != nil {
		return remote, Count{}, false, nil //nolint:nilerr
	}
	return remote, Count{Ahead: ahead, Behind: behind}, true, nil
}

func (j *JjAdapter) IsAncestor(ctx context.Context, a, b string) (bool, error) {
	n, err := j.countRevset(ctx, fmt.Sprintf("%s & ::%s", a, b))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (j *JjAdapter) SameCommit(ctx context.Context, a, b string) (bool, error) {
	n, err := j.countRevset(ctx, fmt.Sprintf("%s & %s", a, b))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (j *JjAdapter) TreesMatch(ctx context.Context, a, b string) (bool, error) {
	out, err := j.jj(ctx, "diff --stat --from --to (treesmatch)", j.root, "diff", "--stat", "--from", a, "--to", b)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

func (j *JjAdapter) WouldMergeAdd(ctx context.Context, branch, target string) (bool, error) {
	diff, err := j.BranchDiffStats(ctx, target, branch)
	if err != nil {
		return true, err
	}
	return !diff.Empty(), nil
}

// HasMergeConflicts: jj resolves conflicts within the working copy rather
// than refusing a merge outright, so there is no pre-flight dry-run
// equivalent to git's merge-tree without actually performing the rebase.
// Conservatively report "no conflict predicted" here; the real signal
// surfaces via IsRebasing/IsMerging-equivalent state after the mutation
// actually runs.
func (j *JjAdapter) HasMergeConflicts(ctx context.Context, branch, target string) (bool, error) {
	return false, nil
}

func (j *JjAdapter) CreateWorkspace(ctx context.Context, name, base, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("path already exists: %s", path)
	}
	args := []string{"workspace", "add", "--name", name, path}
	if base != "" {
		args = append(args, "--revision", base)
	}
	_, err := j.jj(ctx, "workspace add", j.root, args...)
	if err != nil {
		return err
	}
	_, err = j.jj(ctx, "bookmark set", path, "bookmark", "set", name, "-r", "@")
	return err
}

func (j *JjAdapter) RemoveWorkspace(ctx context.Context, path string) error {
	items, err := j.ListWorkspaces(ctx)
	if err != nil {
		return err
	}
	var name string
	for _, it := range items {
		if it.Path == path {
			if it.IsDefault {
				return fmt.Errorf("refusing to remove the default workspace")
			}
			name = it.Name
		}
	}
	if name == "" {
		return fmt.Errorf("no workspace at %s", path)
	}
	_, err = j.jj(ctx, "workspace forget", j.root, "workspace", "forget", name)
	return err
}

func (j *JjAdapter) Commit(ctx context.Context, path, message string) error {
	_, err := j.jj(ctx, "commit", path, "commit", "-m", message)
	return err
}

func (j *JjAdapter) CheckoutBranch(ctx context.Context, path, branch string) error {
	_, err := j.jj(ctx, "edit", path, "edit", branch)
	return err
}

func (j *JjAdapter) PushToTarget(ctx context.Context, target, path string) error {
	_, err := j.jj(ctx, "git push bookmark", path, "git", "push", "--bookmark", target)
	return err
}

func (j *JjAdapter) LocalPush(ctx context.Context, target, path string) error {
	tip, err := j.featureTip(ctx, path)
	if err != nil {
		return err
	}
	_, err = j.jj(ctx, "bookmark set target", path, "bookmark", "set", target, "-r", tip)
	return err
}

// featureTip returns @, or @- if @ is an empty auto-snapshot commit.
func (j *JjAdapter) featureTip(ctx context.Context, path string) (string, error) {
	out, err := j.jj(ctx, "log @ empty check", path, "log", "-r", "@", "--no-graph", "-T", `if(self.empty(), "empty", "content")`)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "empty" {
		return "@-", nil
	}
	return "@", nil
}

func (j *JjAdapter) RebaseOnto(ctx context.Context, target, path string) (RebaseOutcome, error) {
	before, _ := j.featureTip(ctx, path)
	_, err := j.jj(ctx, "rebase", path, "rebase", "-b", "@", "-d", target)
	if err != nil {
		return "", err
	}
	after, _ := j.featureTip(ctx, path)
	if before == after {
		return RebaseFastForward, nil
	}
	return RebaseRebased, nil
}

func (j *JjAdapter) SquashCommits(ctx context.Context, target, msg, path string) (SquashOutcome, error) {
	tip, err := j.featureTip(ctx, path)
	if err != nil {
		return SquashOutcome{}, err
	}
	diff, err := j.BranchDiffStats(ctx, target, tip)
	if err != nil {
		return SquashOutcome{}, err
	}
	if diff.Empty() {
		return SquashOutcome{NoNetChanges: true}, nil
	}
	if _, err := j.jj(ctx, "new target", path, "new", target); err != nil {
		return SquashOutcome{}, err
	}
	if _, err := j.jj(ctx, "squash", path, "squash", "--from", fmt.Sprintf("%s..%s", target, tip), "--into", "@", "-m", msg); err != nil {
		return SquashOutcome{}, err
	}
	if _, err := j.jj(ctx, "bookmark set @", path, "bookmark", "set", target, "-r", "@"); err != nil {
		return SquashOutcome{}, err
	}
	id, err := j.jj(ctx, "log change id", path, "log", "-r", "@", "--no-graph", "-T", "self.change_id().short()")
	if err != nil {
		return SquashOutcome{}, err
	}
	return SquashOutcome{CommitID: strings.TrimSpace(id)}, nil
}

// jj has no mid-operation rebase/merge state comparable to git's
// rebase-merge/MERGE_HEAD markers: every jj operation is transactional, so
// there is nothing to surface here.
func (j *JjAdapter) IsRebasing(ctx context.Context, path string) (bool, error) { return false, nil }
func (j *JjAdapter) IsMerging(ctx context.Context, path string) (bool, error)  { return false, nil }

func (j *JjAdapter) ListIgnoredEntries(ctx context.Context, path string) ([]string, error) {
	out, err := j.jj(ctx, "file list ignored", path, "file", "list", "--no-pager")
	if err != nil {
		return nil, err
	}
	return strings.Split(out, "\n"), nil
}

func (j *JjAdapter) ResolveName(ctx context.Context, sym Symbol) (string, error) {
	switch sym {
	case SymbolCurrent:
		path, err := j.CurrentWorkspacePath(ctx)
		if err != nil {
			return "", fmt.Errorf("resolve @: %w", err)
		}
		items, err := j.ListWorkspaces(ctx)
		if err != nil {
			return "", err
		}
		for _, it := range items {
			if it.Path == path {
				if it.Branch == "" {
					return "", fmt.Errorf("resolve @: no bookmark on current workspace")
				}
				return it.Branch, nil
			}
		}
		return "", fmt.Errorf("resolve @: current workspace not found")
	case SymbolPrevious:
		v, err := j.jj(ctx, "config get history", j.root, "config", "get", "worktrunk.history")
		if err != nil || v == "" {
			return "", fmt.Errorf("resolve -: %w", ErrNoPreviousHistory)
		}
		return v, nil
	case SymbolDefault:
		return j.DefaultBranchName(ctx)
	default:
		return "", fmt.Errorf("unknown symbol %q", sym)
	}
}

func (j *JjAdapter) RecordPrevious(ctx context.Context, branch string) error {
	_, err := j.jj(ctx, "config set history", j.root, "config", "set", "--repo", "worktrunk.history", branch)
	return err
}

func (j *JjAdapter) RepoRoot(ctx context.Context) (string, error) {
	return j.root, nil
}

func (j *JjAdapter) RemoteURL(ctx context.Context) (string, error) {
	out, err := j.jj(ctx, "git remote list", j.root, "git", "remote", "list")
	if err != nil {
		return "", nil //nolint:nilerr
	}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 {
			return fields[1], nil
		}
	}
	return "", nil
}

// jjGitDir reports the colocated .git directory for workspaces that have one;
// used only where a jj repo is colocated with git for IsRebasing-equivalent
// state, which jj itself otherwise never exposes as a filesystem marker.
func jjGitDir(path string) string {
	return filepath.Join(path, ".git")
}
