package handlers

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneholloman/worktrunk/internal/approval"
	"github.com/shaneholloman/worktrunk/internal/directive"
	"github.com/shaneholloman/worktrunk/internal/model"
	"github.com/shaneholloman/worktrunk/internal/planner"
	"github.com/shaneholloman/worktrunk/internal/render"
	"github.com/shaneholloman/worktrunk/internal/tmplengine"
	"github.com/shaneholloman/worktrunk/internal/userconfig"
	"github.com/shaneholloman/worktrunk/internal/vcsadapter"
)

// newTestEnv wires a fakeAdapter into a handlers.Env the way cmd/worktrunk's
// buildEnv does, but with --force set so the hook gate never needs a real
// terminal prompt.
func newTestEnv(t *testing.T, a *fakeAdapter) (*Env, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	engine := tmplengine.New(func(name string) (string, bool) {
		return a.WorkspaceForBranch(context.Background(), name)
	})
	store := approval.NewStore(filepath.Join(t.TempDir(), "approvals.toml"))
	env := &Env{
		Adapter:    a,
		Config:     &userconfig.UserConfig{},
		Engine:     engine,
		Store:      store,
		Directive:  directive.New(&stdout),
		ProjectID:  "proj",
		RepoRoot:   a.repoRoot,
		VCSDir:     ".git",
		ConfigPath: filepath.Join(t.TempDir(), "config.toml"),
		Stdout:     &stdout,
		Stderr:     &stderr,
		Force:      true,
	}
	return env, &stdout, &stderr
}

func TestSwitch_CreatesNewWorkspace(t *testing.T) {
	a := &fakeAdapter{
		repoRoot:      "/repo",
		defaultBranch: "main",
		branchExists:  map[string]bool{},
		workspaces: []vcsadapter.Workspace{
			{Path: "/repo", Branch: "main"},
		},
		current: "main",
	}
	env, _, stderr := newTestEnv(t, a)

	result, err := env.Switch(context.Background(), SwitchOptions{Name: "feature-x", Create: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"feature-x"}, a.created)
	assert.Contains(t, stderr.String(), "Switched to feature-x")
	assert.NotEmpty(t, result.WorkspacePath)
}

func TestSwitch_AlreadyAtCurrentBranch(t *testing.T) {
	a := &fakeAdapter{
		repoRoot:      "/repo",
		defaultBranch: "main",
		branchExists:  map[string]bool{"main": true},
		workspaces: []vcsadapter.Workspace{
			{Path: "/repo", Branch: "main"},
		},
		current: "main",
	}
	env, _, _ := newTestEnv(t, a)

	result, err := env.Switch(context.Background(), SwitchOptions{Name: "main"})
	require.NoError(t, err)
	assert.Equal(t, planner.OutcomeAlreadyAt, result.Outcome)
}

func TestMerge_AlreadyOnTargetIsANoOp(t *testing.T) {
	a := &fakeAdapter{
		repoRoot:      "/repo",
		defaultBranch: "main",
		workspaces: []vcsadapter.Workspace{
			{Path: "/repo", Branch: "main"},
		},
		current: "main",
	}
	env, _, stderr := newTestEnv(t, a)

	result, err := env.Merge(context.Background(), MergeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "main", result.Target)
	assert.Empty(t, a.rebasedOnto)
	assert.Contains(t, stderr.String(), "nothing to merge")
}

func TestMerge_RebasesAndRemovesFeatureWorkspace(t *testing.T) {
	a := &fakeAdapter{
		repoRoot:      "/repo",
		defaultBranch: "main",
		workspaces: []vcsadapter.Workspace{
			{Path: "/repo", Branch: "main"},
			{Path: "/repo-feature", Branch: "feature"},
		},
		current: "feature",
	}
	env, _, stderr := newTestEnv(t, a)

	result, err := env.Merge(context.Background(), MergeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "main", result.Target)
	assert.True(t, result.Removed)
	assert.Equal(t, []string{"main"}, a.rebasedOnto)
	assert.Equal(t, []string{"main"}, a.pushed)
	assert.Equal(t, []string{"/repo-feature"}, a.removed)
	assert.Empty(t, a.checkedOut)
	assert.Contains(t, stderr.String(), "Merged feature into main")
}

func TestMerge_PostMergeWarnHookFailurePropagatesExitCode(t *testing.T) {
	featurePath := t.TempDir()
	a := &fakeAdapter{
		repoRoot:      "/repo",
		defaultBranch: "main",
		workspaces: []vcsadapter.Workspace{
			{Path: "/repo", Branch: "main"},
			{Path: featurePath, Branch: "feature"},
		},
		current: "feature",
	}
	env, _, _ := newTestEnv(t, a)
	env.Config.OverridableConfig.Hooks.PostMerge = userconfig.CommandList{
		{Name: "fail", Command: "exit 7"},
	}

	result, err := env.Merge(context.Background(), MergeOptions{})

	// The Warn strategy still runs merge to completion: the feature
	// workspace is removed and the caller gets a populated result...
	require.NotNil(t, result)
	assert.True(t, result.Removed)
	assert.Equal(t, []string{featurePath}, a.removed)

	// ...but the hook failure is re-raised so the process exit code
	// reflects it instead of a false success (scenario S4).
	require.Error(t, err)
	var werr *model.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, model.ErrHookCommandFailed, werr.Kind)
	assert.Equal(t, 7, model.ExitCode(err))
}

func TestMerge_ConflictedRebaseReturnsRebaseConflictError(t *testing.T) {
	a := &fakeAdapter{
		repoRoot:      "/repo",
		defaultBranch: "main",
		workspaces: []vcsadapter.Workspace{
			{Path: "/repo", Branch: "main"},
			{Path: "/repo-feature", Branch: "feature"},
		},
		current:  "feature",
		rebasing: true,
	}
	env, _, _ := newTestEnv(t, a)

	_, err := env.Merge(context.Background(), MergeOptions{})
	require.Error(t, err)
	var werr *model.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, model.ErrRebaseConflict, werr.Kind)
	assert.Equal(t, 3, model.ExitCode(err))
}

func TestRemove_RefusesPrimaryWorkspace(t *testing.T) {
	a := &fakeAdapter{
		repoRoot:      "/repo",
		defaultBranch: "main",
		workspaces: []vcsadapter.Workspace{
			{Path: "/repo", Branch: "main"},
		},
	}
	env, _, _ := newTestEnv(t, a)

	_, err := env.Remove(context.Background(), RemoveOptions{Name: "main", Force: true})
	require.Error(t, err)
	var werr *model.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, model.ErrInvalidReference, werr.Kind)
}

func TestRemove_RefusesUnintegratedBranchWithoutForce(t *testing.T) {
	a := &fakeAdapter{
		repoRoot:      "/repo",
		defaultBranch: "main",
		workspaces: []vcsadapter.Workspace{
			{Path: "/repo", Branch: "main"},
			{Path: "/repo-feature", Branch: "feature"},
		},
		branchDiff:    vcsadapter.LineDiff{Added: 3},
		wouldMergeAdd: true,
	}
	env, _, _ := newTestEnv(t, a)

	_, err := env.Remove(context.Background(), RemoveOptions{Name: "feature"})
	require.Error(t, err)
	var werr *model.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, model.ErrIntegrationUnconfirmed, werr.Kind)
	assert.Equal(t, 4, model.ExitCode(err))
	assert.Empty(t, a.removed)
}

func TestRemove_ForceRemovesEvenWhenUnintegrated(t *testing.T) {
	a := &fakeAdapter{
		repoRoot:      "/repo",
		defaultBranch: "main",
		workspaces: []vcsadapter.Workspace{
			{Path: "/repo", Branch: "main"},
			{Path: "/repo-feature", Branch: "feature"},
		},
		branchDiff:    vcsadapter.LineDiff{Added: 3},
		wouldMergeAdd: true,
	}
	env, _, stderr := newTestEnv(t, a)

	result, err := env.Remove(context.Background(), RemoveOptions{Name: "feature", Force: true})
	require.NoError(t, err)
	assert.Equal(t, "feature", result.Branch)
	assert.Equal(t, []string{"/repo-feature"}, a.removed)
	assert.Contains(t, stderr.String(), "Removed feature")
}

func TestList_RendersAllWorkspacesAsText(t *testing.T) {
	a := &fakeAdapter{
		repoRoot:      "/repo",
		defaultBranch: "main",
		workspaces: []vcsadapter.Workspace{
			{Path: "/repo", Branch: "main"},
			{Path: "/repo-feature", Branch: "feature"},
		},
		current: "main",
	}
	env, _, _ := newTestEnv(t, a)

	out, err := env.List(context.Background(), ListOptions{Mode: render.ModeText})
	require.NoError(t, err)
	assert.Contains(t, out, "main")
	assert.Contains(t, out, "feature")
}

func TestStatusline_ReturnsEmptyWhenNotInAWorkspace(t *testing.T) {
	a := &fakeAdapter{repoRoot: "/repo", defaultBranch: "main"}
	env, _, _ := newTestEnv(t, a)

	line := env.Statusline(context.Background(), StatuslineOptions{})
	assert.Empty(t, line)
}

func TestStatusline_ClaudeCodePayloadSelectsWorkspace(t *testing.T) {
	a := &fakeAdapter{
		repoRoot:      "/repo",
		defaultBranch: "main",
		workspaces: []vcsadapter.Workspace{
			{Path: "/repo", Branch: "main"},
			{Path: "/repo-feature", Branch: "feature"},
		},
		current: "feature",
	}
	env, _, _ := newTestEnv(t, a)

	payload := bytes.NewBufferString(`{"workspace":{"current_dir":"/repo-feature"}}`)
	line := env.Statusline(context.Background(), StatuslineOptions{ClaudeCode: true, Stdin: payload})
	assert.Contains(t, line, "feature")
}

func TestConfigShow_EncodesEffectiveConfigAsTOML(t *testing.T) {
	a := &fakeAdapter{repoRoot: "/repo", defaultBranch: "main"}
	env, _, _ := newTestEnv(t, a)
	squash := true
	env.Config.OverridableConfig.Merge = &userconfig.MergeConfig{Squash: &squash}

	result, err := env.ConfigShow(context.Background())
	require.NoError(t, err)
	assert.Contains(t, result.Effective, "squash")
	assert.Empty(t, result.BriefWarning)
}

func TestHook_RunsResolvedCommandsForPhase(t *testing.T) {
	a := &fakeAdapter{
		repoRoot:      "/repo",
		defaultBranch: "main",
		workspaces: []vcsadapter.Workspace{
			{Path: "/repo", Branch: "main"},
		},
		current: "main",
	}
	env, _, _ := newTestEnv(t, a)
	env.Config.OverridableConfig.Hooks.PostSwitch = userconfig.CommandList{
		{Name: "echo", Command: "true"},
	}

	err := env.Hook(context.Background(), HookOptions{Phase: model.PhasePostSwitch})
	require.NoError(t, err)
}

func TestHook_ApproveRecordsApprovalWithoutRunning(t *testing.T) {
	a := &fakeAdapter{
		repoRoot:      "/repo",
		defaultBranch: "main",
		workspaces: []vcsadapter.Workspace{
			{Path: "/repo", Branch: "main"},
		},
		current: "main",
	}
	env, _, _ := newTestEnv(t, a)
	env.Config.OverridableConfig.Hooks.PostSwitch = userconfig.CommandList{
		{Name: "echo", Command: "echo hi"},
	}

	err := env.Hook(context.Background(), HookOptions{Phase: model.PhasePostSwitch, Approve: true})
	require.NoError(t, err)

	approved, err := env.Store.IsApproved(env.ProjectID, "echo hi")
	require.NoError(t, err)
	assert.True(t, approved)
}
