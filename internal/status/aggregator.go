// Package status implements the parallel status aggregator (§4.D): for a
// list of workspace/branch items, compute every signal concurrently and
// assemble StatusRows.
package status

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaneholloman/worktrunk/internal/model"
	"github.com/shaneholloman/worktrunk/internal/vcsadapter"
)

// TaskKind is one member of the closed set of signal computations §4.D
// names. Callers (list/select/merge/remove) skip the kinds they don't need.
type TaskKind string

const (
	TaskAheadBehind         TaskKind = "ahead_behind"
	TaskBranchDiff          TaskKind = "branch_diff"
	TaskWorkingDiff         TaskKind = "working_diff"
	TaskWorkingDiffVsTrunk  TaskKind = "working_diff_vs_trunk"
	TaskUpstream            TaskKind = "upstream"
	TaskCIStatus            TaskKind = "ci_status"
	TaskMergeTreeConflicts  TaskKind = "merge_tree_conflicts"
	TaskIntegrationSame     TaskKind = "integration_same_commit"
	TaskIntegrationAncestor TaskKind = "integration_ancestor"
	TaskIntegrationAdded    TaskKind = "integration_added_changes"
	TaskIntegrationTrees    TaskKind = "integration_trees_match"
	TaskIntegrationMerge    TaskKind = "integration_would_merge_add"
	TaskTimestamp           TaskKind = "timestamp"
	TaskCommitMessage       TaskKind = "commit_message"
	TaskWorkingTreeStatus   TaskKind = "working_tree_status"
)

// heavyTasks mmap commit-graph/pack-index data; §4.D wants a tighter second
// semaphore for these to avoid mmap thrashing under high fan-out.
var heavyTasks = map[TaskKind]bool{
	TaskBranchDiff:         true,
	TaskIntegrationTrees:   true,
	TaskIntegrationMerge:   true,
	TaskMergeTreeConflicts: true,
}

// Options configures one aggregation run.
type Options struct {
	Concurrency      int           // 0 = vcsadapter.DefaultConcurrency(), negative = no per-task limit
	HeavyConcurrency int           // default 4
	TaskTimeout      time.Duration // per-task; 0 = no timeout
	Skip             map[TaskKind]bool
	SkipExpensiveForStale bool
	CIFetcher        CIFetcher
}

// CIFetcher abstracts CI-status lookup, which is host-specific (GitHub/
// GitLab) rather than part of the VCS adapter surface — it is optional;
// nil means CI is never populated.
type CIFetcher interface {
	FetchCIStatus(ctx context.Context, branch string) (model.CIStatus, error)
}

func (o Options) skip(k TaskKind) bool {
	return o.Skip != nil && o.Skip[k]
}

// Item is one input to the aggregator: either a live workspace or a
// branch-without-workspace.
type Item struct {
	Workspace *vcsadapter.Workspace
	Branch    *vcsadapter.BranchRef
	IsCurrent bool
	IsPrevious bool
}

func (it Item) name() string {
	if it.Workspace != nil {
		return it.Workspace.Name
	}
	return it.Branch.Name
}

func (it Item) head() string {
	if it.Workspace != nil {
		return it.Workspace.Head
	}
	return it.Branch.Head
}

func (it Item) branchName() string {
	if it.Workspace != nil {
		return it.Workspace.Branch
	}
	return it.Branch.Name
}

func (it Item) path() string {
	if it.Workspace != nil {
		return it.Workspace.Path
	}
	return ""
}

// Aggregator runs signal computations for a batch of items against one
// Adapter and trunk branch.
type Aggregator struct {
	adapter vcsadapter.Adapter
	trunk   string
	opts    Options

	sem      chan struct{}
	heavySem chan struct{}
}

func New(adapter vcsadapter.Adapter, trunk string, opts Options) *Aggregator {
	if opts.Concurrency == 0 {
		opts.Concurrency = vcsadapter.DefaultConcurrency()
	}
	if opts.HeavyConcurrency == 0 {
		opts.HeavyConcurrency = 4
	}
	a := &Aggregator{adapter: adapter, trunk: trunk, opts: opts}
	if opts.Concurrency > 0 {
		a.sem = make(chan struct{}, opts.Concurrency)
	}
	a.heavySem = make(chan struct{}, opts.HeavyConcurrency)
	return a
}

// Rows computes every row's signals in parallel via errgroup, one goroutine
// per item, each internally fanning individual signal tasks out under the
// shared semaphores. No inter-row ordering is required (§5); only within a
// row must the final symbol computation wait for every signal to either
// complete or time out, which happens naturally since rowFor is
// synchronous within its own goroutine.
func (a *Aggregator) Rows(ctx context.Context, items []Item) ([]*model.StatusRow, error) {
	rows := make([]*model.StatusRow, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, a.opts.Concurrency))

	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			rows[i] = a.rowFor(gctx, it)
			return nil
		})
	}
	// Errors from individual tasks never fail the whole batch — they leave
	// slots empty — so g.Wait() only reports cancellation (Ctrl+C, §5).
	if err := g.Wait(); err != nil {
		return rows, err
	}
	return rows, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (a *Aggregator) rowFor(ctx context.Context, it Item) *model.StatusRow {
	row := &model.StatusRow{
		Name:   it.name(),
		Branch: it.branchName(),
		Head:   it.head(),
		Path:   it.path(),
	}
	if it.Workspace != nil {
		row.WorktreeAttrs = model.WorktreeAttrs{
			IsCurrent: it.IsCurrent,
			IsPrevious: it.IsPrevious,
			Locked:    it.Workspace.Locked,
			Prunable:  it.Workspace.Prunable,
			// PathMatchesTmpl needs the rendered worktree_path template,
			// which the aggregator has no config access to; callers that
			// hold a tmplengine.Engine overwrite this after Rows returns.
			PathMatchesTmpl: true,
		}
	}

	a.runTasks(ctx, it, row)
	row.MainState = computeMainState(a, ctx, it, row)
	row.UpstreamDivergence = computeUpstreamDivergence(row)
	row.WorktreeLocation = computeWorktreeLocation(row.WorktreeAttrs)
	if it.path() != "" {
		row.OperationState = a.operationState(ctx, it.path())
	}
	return row
}

// operationState reports a blocking git operation in progress (rebase or
// merge), a cheap filesystem-marker check rather than a fanned-out task.
func (a *Aggregator) operationState(ctx context.Context, path string) string {
	if rebasing, err := a.adapter.IsRebasing(ctx, path); err == nil && rebasing {
		return "rebase"
	}
	if merging, err := a.adapter.IsMerging(ctx, path); err == nil && merging {
		return "merge"
	}
	return ""
}

// runTasks schedules every non-skipped task for one row and blocks until
// all have completed or timed out — this is the "row worker" that makes
// the row's final state computation wait correctly (§5).
func (a *Aggregator) runTasks(ctx context.Context, it Item, row *model.StatusRow) {
	var wg sync.WaitGroup

	branch := it.branchName()
	path := it.path()
	head := it.head()

	runTask := func(kind TaskKind, fn func(ctx context.Context)) {
		if a.opts.skip(kind) {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.withSlot(kind, func() {
				ctx := ctx
				cancel := func() {}
				if a.opts.TaskTimeout > 0 {
					ctx, cancel = context.WithTimeout(ctx, a.opts.TaskTimeout)
				}
				defer cancel()
				fn(ctx)
			})
		}()
	}

	if branch != "" && a.trunk != "" {
		runTask(TaskAheadBehind, func(ctx context.Context) {
			if c, err := a.adapter.AheadBehind(ctx, a.trunk, branch); err == nil {
				row.AheadBehind = &model.AheadBehind{Ahead: c.Ahead, Behind: c.Behind}
			}
		})
	}

	if path != "" {
		runTask(TaskWorkingDiff, func(ctx context.Context) {
			if d, err := a.adapter.WorkingDiff(ctx, path); err == nil {
				row.WorkingTreeDiff = &model.LineDiff{Added: d.Added, Deleted: d.Deleted}
			}
		})
		runTask(TaskWorkingTreeStatus, func(ctx context.Context) {
			dirty, err := a.adapter.IsDirty(ctx, path, true)
			if err == nil {
				row.WorkingTreeStatus = dirtyToStatus(dirty)
			}
		})
	}

	if path != "" && branch != "" && a.trunk != "" {
		runTask(TaskWorkingDiffVsTrunk, func(ctx context.Context) {
			if d, err := a.adapter.BranchDiffStats(ctx, a.trunk, branch); err == nil {
				wd := &model.LineDiff{Added: d.Added, Deleted: d.Deleted}
				row.WorkingTreeDiffVsTrunk = wd
			}
		})
	}

	if branch != "" {
		runTask(TaskUpstream, func(ctx context.Context) {
			if remote, c, ok, err := a.adapter.UpstreamTracking(ctx, branch); err == nil && ok {
				row.Upstream = &model.UpstreamInfo{Remote: remote, Ahead: c.Ahead, Behind: c.Behind}
			}
		})
	}

	if a.opts.CIFetcher != nil && branch != "" {
		runTask(TaskCIStatus, func(ctx context.Context) {
			if ci, err := a.opts.CIFetcher.FetchCIStatus(ctx, branch); err == nil {
				row.CI = &ci
			}
		})
	}

	// isStale reads row.AheadBehind/row.WorkingTreeStatus, both written by
	// goroutines scheduled above — wait for that first batch to finish
	// before reading them, or the check races the writers and (since the
	// fields are still nil pre-Wait) never actually skips anything.
	wg.Wait()

	stale := a.opts.SkipExpensiveForStale && isStale(row)

	if branch != "" && a.trunk != "" && !stale {
		runTask(TaskBranchDiff, func(ctx context.Context) {
			if d, err := a.adapter.BranchDiffStats(ctx, a.trunk, branch); err == nil {
				row.BranchDiff = &model.LineDiff{Added: d.Added, Deleted: d.Deleted}
			}
		})
		a.scheduleIntegration(ctx, runTask, branch, head, row)
		runTask(TaskMergeTreeConflicts, func(ctx context.Context) {
			if conflict, err := a.adapter.HasMergeConflicts(ctx, branch, a.trunk); err == nil {
				row.WouldConflict = &conflict
			}
		})
	}

	wg.Wait()
}

func dirtyToStatus(dirty bool) *model.WorkingTreeStatus {
	if !dirty {
		return &model.WorkingTreeStatus{}
	}
	// Coarse signal only: the adapter's IsDirty is a boolean; a precise
	// per-category count would need a full porcelain parse, which §1
	// explicitly treats as an opaque external collaborator. Handlers that
	// need exact counts parse further via the adapter's own status call.
	return &model.WorkingTreeStatus{Modified: 1}
}

// isStale applies §4.D's "skip_expensive_for_stale": a row that is clearly
// behind and not dirty skips the expensive integration/branch-diff tasks.
func isStale(row *model.StatusRow) bool {
	if row.AheadBehind == nil {
		return false
	}
	notDirty := row.WorkingTreeStatus == nil || row.WorkingTreeStatus.Empty()
	return row.AheadBehind.Behind > 20 && row.AheadBehind.Ahead == 0 && notDirty
}

func (a *Aggregator) withSlot(kind TaskKind, fn func()) {
	if heavyTasks[kind] {
		a.heavySem <- struct{}{}
		defer func() { <-a.heavySem }()
	}
	if a.sem != nil {
		a.sem <- struct{}{}
		defer func() { <-a.sem }()
	}
	fn()
}
