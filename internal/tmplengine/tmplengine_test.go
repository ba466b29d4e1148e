package tmplengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_InterpolatesAndEscapes(t *testing.T) {
	e := New(nil)
	ctx := Context{"branch": "feature/has spaces"}

	literal, err := e.Expand("checkout {{ branch }}", ctx, Literal)
	require.NoError(t, err)
	assert.Equal(t, "checkout feature/has spaces", literal)

	escaped, err := e.Expand("checkout {{ branch }}", ctx, ShellEscape)
	require.NoError(t, err)
	assert.Equal(t, "checkout 'feature/has spaces'", escaped)
}

func TestExpand_SanitizeFilterAppliesBeforeEscaping(t *testing.T) {
	e := New(nil)
	ctx := Context{"branch": "feat/sub"}

	out, err := e.Expand("{{ branch | sanitize }}", ctx, ShellEscape)
	require.NoError(t, err)
	assert.Equal(t, "feat-sub", out)
}

func TestExpand_UndefinedVariableIsAnError(t *testing.T) {
	e := New(nil)
	_, err := e.Expand("{{ target }}", Context{}, Literal)
	assert.Error(t, err)
}

func TestExpand_JinjaIfElseTranslatesToGoTemplate(t *testing.T) {
	e := New(nil)

	withBase, err := e.Expand("{% if base %}base={{ base }}{% else %}no-base{% endif %}", Context{"base": "main"}, Literal)
	require.NoError(t, err)
	assert.Equal(t, "base=main", withBase)

	withoutBase, err := e.Expand("{% if base %}base={{ base }}{% else %}no-base{% endif %}", Context{}, Literal)
	require.NoError(t, err)
	assert.Equal(t, "no-base", withoutBase)
}

func TestExpand_WorktreePathOfBranchUsesLookup(t *testing.T) {
	e := New(func(name string) (string, bool) {
		if name == "main" {
			return "/repo", true
		}
		return "", false
	})

	found, err := e.Expand("{{ branch | worktree_path_of_branch }}", Context{"branch": "main"}, Literal)
	require.NoError(t, err)
	assert.Equal(t, "/repo", found)

	missing, err := e.Expand("{{ branch | worktree_path_of_branch }}", Context{"branch": "gone"}, Literal)
	require.NoError(t, err)
	assert.Equal(t, "", missing)
}

func TestShellQuote_PassesSafeTokensThroughUnquoted(t *testing.T) {
	assert.Equal(t, "feature-1.2_3", ShellQuote("feature-1.2_3"))
}

func TestShellQuote_EscapesEmbeddedSingleQuotes(t *testing.T) {
	assert.Equal(t, `'it'\''s'`, ShellQuote("it's"))
}

func TestShellQuote_EmptyStringQuotesToEmptyPair(t *testing.T) {
	assert.Equal(t, "''", ShellQuote(""))
}

func TestSanitize_ReplacesPathSeparators(t *testing.T) {
	assert.Equal(t, "a-b-c", Sanitize("a/b\\c"))
}

func TestSanitizeDB_ProducesLowercaseIdentifierWithHashSuffix(t *testing.T) {
	out := SanitizeDB("Feature/ABC-123")
	assert.Regexp(t, `^feature_abc_123_[0-9a-z]{3}$`, out)
}

func TestSanitizeDB_GuardsLeadingDigit(t *testing.T) {
	out := SanitizeDB("123-go")
	assert.Regexp(t, `^_123_go_[0-9a-z]{3}$`, out)
}

func TestSanitizeDB_DiffersForDifferentInputsEvenIfCanonicalPrefixCollides(t *testing.T) {
	a := SanitizeDB("a.b")
	b := SanitizeDB("a_b")
	assert.NotEqual(t, a, b)
}

func TestHashPort_IsDeterministicAndInRange(t *testing.T) {
	p1 := HashPort("feature-x")
	p2 := HashPort("feature-x")
	assert.Equal(t, p1, p2)
	assert.GreaterOrEqual(t, p1, 10000)
	assert.Less(t, p1, 20000)
}

func TestNormalize_RewritesDeprecatedAliases(t *testing.T) {
	assert.Equal(t, "{{ repo }}", Normalize("{{ main_worktree }}"))
	assert.Equal(t, "{{ repo_path }}", Normalize("{{ repo_root }}"))
	assert.Equal(t, "{{ worktree_path }}", Normalize("{{ worktree }}"))
}

func TestNormalize_LeavesCanonicalTemplatesUnchanged(t *testing.T) {
	tmpl := "{{ branch }} in {{ repo }}"
	assert.Equal(t, tmpl, Normalize(tmpl))
}

func TestNormalize_IsIdempotent(t *testing.T) {
	once := Normalize("{{ main_worktree }}")
	twice := Normalize(once)
	assert.Equal(t, once, twice)
}
