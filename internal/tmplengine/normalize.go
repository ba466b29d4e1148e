package tmplengine

import "regexp"

// deprecatedAliases maps a retired variable identifier to its canonical
// replacement (§4.B). Applied as whole-identifier regex substitutions, so
// "main_worktree_path" is never partially matched by the "main_worktree"
// rule — Go's regexp \b word-boundary treats '_' as a word character, so
// \bmain_worktree\b cannot match inside main_worktree_path.
var deprecatedAliases = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`\bmain_worktree\b`), "repo"},
	{regexp.MustCompile(`\brepo_root\b`), "repo_path"},
	{regexp.MustCompile(`\bworktree\b`), "worktree_path"},
	{regexp.MustCompile(`\bmain_worktree_path\b`), "primary_worktree_path"},
}

var anyDeprecatedAlias = regexp.MustCompile(
	`\bmain_worktree\b|\brepo_root\b|\bworktree\b|\bmain_worktree_path\b`,
)

// Normalize replaces every deprecated variable alias in tmpl with its
// canonical name, for use both before approval-matching (§4.C) and before
// expansion. If tmpl contains no deprecated alias it is returned unchanged,
// the same string value, with no allocation (§8 invariant 5). Normalize is
// idempotent: running it twice yields the same result as running it once
// (§8 invariant 4), since canonical names never themselves match a
// deprecated pattern.
func Normalize(tmpl string) string {
	if !anyDeprecatedAlias.MatchString(tmpl) {
		return tmpl
	}
	out := tmpl
	for _, a := range deprecatedAliases {
		out = a.pattern.ReplaceAllString(out, a.replace)
	}
	return out
}
