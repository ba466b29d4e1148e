package approval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "approvals.toml"))
}

func TestIsApproved_MissingFileReturnsFalse(t *testing.T) {
	s := newTestStore(t)
	approved, err := s.IsApproved("proj", "echo hi")
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestApprove_ThenIsApprovedReturnsTrue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Approve(ctx, "proj", "echo hi"))

	approved, err := s.IsApproved("proj", "echo hi")
	require.NoError(t, err)
	assert.True(t, approved)
}

func TestIsApproved_MatchesAfterDeprecatedAliasNormalization(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Approve(ctx, "proj", "echo {{ main_worktree }}"))

	// "main_worktree" is a deprecated alias for "repo" (§4.B); approval
	// matching normalizes both sides, so the canonical spelling should
	// already read as approved.
	approved, err := s.IsApproved("proj", "echo {{ repo }}")
	require.NoError(t, err)
	assert.True(t, approved)
}

func TestApprove_IsolatesProjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Approve(ctx, "proj-a", "echo hi"))

	approved, err := s.IsApproved("proj-b", "echo hi")
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestRevoke_RemovesApproval(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Approve(ctx, "proj", "echo hi"))
	require.NoError(t, s.Revoke(ctx, "proj", "echo hi"))

	approved, err := s.IsApproved("proj", "echo hi")
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestRevoke_OfUnknownCommandIsANoOp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Approve(ctx, "proj", "echo hi"))
	require.NoError(t, s.Revoke(ctx, "proj", "echo bye"))

	approved, err := s.IsApproved("proj", "echo hi")
	require.NoError(t, err)
	assert.True(t, approved)
}

func TestRevokeProject_ClearsEveryApprovalForThatProjectOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Approve(ctx, "proj-a", "echo hi"))
	require.NoError(t, s.Approve(ctx, "proj-b", "echo hi"))

	require.NoError(t, s.RevokeProject(ctx, "proj-a"))

	approvedA, err := s.IsApproved("proj-a", "echo hi")
	require.NoError(t, err)
	assert.False(t, approvedA)

	approvedB, err := s.IsApproved("proj-b", "echo hi")
	require.NoError(t, err)
	assert.True(t, approvedB)
}

func TestApprove_PersistsAcrossStoreInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals.toml")
	ctx := context.Background()
	require.NoError(t, NewStore(path).Approve(ctx, "proj", "echo hi"))

	reopened := NewStore(path)
	approved, err := reopened.IsApproved("proj", "echo hi")
	require.NoError(t, err)
	assert.True(t, approved)
}
