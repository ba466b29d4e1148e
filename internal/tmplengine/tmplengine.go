// Package tmplengine expands Jinja-style hook/command templates against
// VCS-derived variables. Go has no Jinja engine in the reference corpus
// (original_source uses Rust's minijinja); the grounded substitute is
// text/template plus a thin Jinja-tag preprocessing layer, the same way
// bazelment-yoloswe's taskrouter uses text/template for templated command
// strings. See DESIGN.md for the full justification.
package tmplengine

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// EscapeMode selects how a variable's final printed form is produced.
// Filters always run against the raw value; escaping is the last step,
// applied only when the value is actually written to output — this is what
// lets `{{ "a/b" | sanitize }}` compose correctly in shell-escape mode
// instead of corrupting quoting (§4.B).
type EscapeMode int

const (
	Literal EscapeMode = iota
	ShellEscape
)

// Context holds the variables available to one expansion. Only variables
// that are actually known for this invocation are present; anything absent
// is "undefined" per §4.B.
type Context map[string]string

// BranchPathLookup resolves worktree_path_of_branch(name); returns ("", false)
// if no workspace exists for that branch.
type BranchPathLookup func(name string) (string, bool)

// Engine expands templates against a Context.
type Engine struct {
	lookupBranchPath BranchPathLookup
}

func New(lookup BranchPathLookup) *Engine {
	return &Engine{lookupBranchPath: lookup}
}

// tval is the value type every variable/filter function passes along the
// pipeline. Its String() method — invoked by text/template only at the
// point a value is actually printed — is where escaping happens, so filters
// upstream always see and produce raw strings.
type tval struct {
	raw  string
	mode EscapeMode
}

func (v tval) String() string {
	if v.mode == ShellEscape {
		return shellQuote(v.raw)
	}
	return v.raw
}

// Expand renders tmpl (already alias-normalized by the caller if needed —
// see Normalize) against ctx in the given mode.
func (e *Engine) Expand(tmpl string, ctx Context, mode EscapeMode) (string, error) {
	jinjaBody := translateJinjaTags(tmpl)

	funcs := e.buildFuncMap(ctx, mode)
	t, err := template.New("cmd").Funcs(funcs).Option("missingkey=error").Parse(jinjaBody)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, nil); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (e *Engine) buildFuncMap(ctx Context, mode EscapeMode) template.FuncMap {
	varFunc := func(name string) func() (tval, error) {
		return func() (tval, error) {
			v, ok := ctx[name]
			if !ok {
				return tval{}, fmt.Errorf("undefined variable: %s", name)
			}
			return tval{raw: v, mode: mode}, nil
		}
	}

	funcs := template.FuncMap{
		"truthy": func(name string) bool {
			v, ok := ctx[name]
			return ok && v != ""
		},
		"sanitize": func(v tval) tval {
			return tval{raw: Sanitize(v.raw), mode: v.mode}
		},
		"sanitize_db": func(v tval) tval {
			return tval{raw: SanitizeDB(v.raw), mode: v.mode}
		},
		"hash_port": func(v tval) tval {
			return tval{raw: fmt.Sprintf("%d", HashPort(v.raw)), mode: v.mode}
		},
		"worktree_path_of_branch": func(v tval) tval {
			path := ""
			if e.lookupBranchPath != nil {
				if p, ok := e.lookupBranchPath(v.raw); ok {
					path = p
				}
			}
			return tval{raw: path, mode: v.mode}
		},
	}
	for _, name := range recognizedVariables {
		funcs[name] = varFunc(name)
	}
	return funcs
}

// recognizedVariables is the fixed set §4.B names, including phase-specific
// extras. Referencing a name outside this set is a template author error
// surfaced at parse time by text/template ("function ... not defined").
var recognizedVariables = []string{
	"repo", "branch", "worktree_name", "repo_path", "worktree_path",
	"default_branch", "primary_worktree_path", "commit", "short_commit",
	"remote", "remote_url", "upstream",
	"target", "base", "base_worktree_path",
}

var (
	jinjaIf     = regexp.MustCompile(`\{%-?\s*if\s+([A-Za-z_][A-Za-z0-9_]*)\s*-?%\}`)
	jinjaElif   = regexp.MustCompile(`\{%-?\s*elif\s+([A-Za-z_][A-Za-z0-9_]*)\s*-?%\}`)
	jinjaElse   = regexp.MustCompile(`\{%-?\s*else\s*-?%\}`)
	jinjaEndif  = regexp.MustCompile(`\{%-?\s*endif\s*-?%\}`)
)

// translateJinjaTags rewrites the small subset of Jinja block tags §4.B
// requires (`{% if v %}`/`{% elif v %}`/`{% else %}`/`{% endif %}`, single
// bare-variable truthy tests only) into native Go template actions. Variable
// interpolation and filter pipelines (`{{ branch | sanitize }}`) are already
// valid Go template syntax and pass through untouched.
func translateJinjaTags(s string) string {
	s = jinjaIf.ReplaceAllString(s, `{{if truthy "$1"}}`)
	s = jinjaElif.ReplaceAllString(s, `{{else if truthy "$1"}}`)
	s = jinjaElse.ReplaceAllString(s, `{{else}}`)
	s = jinjaEndif.ReplaceAllString(s, `{{end}}`)
	return s
}

// ShellQuote POSIX-sh escapes s. Exported for callers that need to append
// raw, non-template strings (e.g. `switch --execute`'s trailing args) to an
// already-expanded command line in the same shell-safe form filters produce.
func ShellQuote(s string) string {
	return shellQuote(s)
}

// shellQuote produces a POSIX-sh safe single-quoted form, embedding literal
// single quotes as '\'' — the standard shell-escape idiom.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if isShellSafe(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isShellSafe(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.' || r == '/' || r == ':' || r == '@' || r == '%' || r == '+' || r == ',':
		default:
			return false
		}
	}
	return true
}
