// Package migrate implements §4.J: detecting deprecated config shapes,
// writing a `<path>.new` sibling with every fix applied, and deduping the
// warning shown for a given config path within one process. Grounded on
// original_source's config/deprecation.rs (detect_deprecations,
// write_migration_file, format_brief_warning), translated from toml_edit's
// AST-preserving edits to direct regex/line rewriting of the raw text — see
// DESIGN.md for why no Go library in the pack offers toml_edit's guarantee.
package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/shaneholloman/worktrunk/internal/approval"
	"github.com/shaneholloman/worktrunk/internal/tmplengine"
)

// Report records which deprecation classes were found in one config file's
// raw text.
type Report struct {
	DeprecatedVars      bool
	CommitGenerationKey bool
	ApprovedCommandsKey bool
}

// Any reports whether any deprecation was detected.
func (r Report) Any() bool {
	return r.DeprecatedVars || r.CommitGenerationKey || r.ApprovedCommandsKey
}

var (
	commitGenHeader = regexp.MustCompile(`(?m)^\[((?:projects\."[^"]*"\.)?)commit-generation\](\s*)$`)
	approvedCmdLine = regexp.MustCompile(`(?m)^[ \t]*approved-commands[ \t]*=[ \t]*\[[^\]]*\][ \t]*\n?`)
	projectHeader   = regexp.MustCompile(`(?m)^\[projects\."([^"]*)"\]\s*$`)
	tableHeader     = regexp.MustCompile(`(?m)^\[[^\]]*\]\s*$`)
	tomlStringArray = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

// Detect scans raw TOML text for the three deprecation classes §4.J names.
func Detect(content string) Report {
	return Report{
		DeprecatedVars:      tmplengine.Normalize(content) != content,
		CommitGenerationKey: commitGenHeader.MatchString(content),
		ApprovedCommandsKey: approvedCmdLine.MatchString(content),
	}
}

// ReplaceDeprecatedVars canonicalizes every deprecated template-variable
// alias found anywhere in content (hook command strings, worktree-path
// templates). Reuses the same alias table the approval gate normalizes
// against, so a migrated config and an already-approved command always agree
// on canonical form.
func ReplaceDeprecatedVars(content string) string {
	return tmplengine.Normalize(content)
}

// MigrateCommitGenerationSections renames `[commit-generation]` (and its
// per-project form `[projects."x".commit-generation]`) to the dotted-table
// form `[commit.generation]`, then, within each renamed table's block, folds
// a sibling `args = [...]` array into `command` by shell-joining its string
// elements onto the end of the existing command — mirroring the Rust
// original's merge_args_into_command, which only removes args once a string
// command exists to merge into.
func MigrateCommitGenerationSections(content string) string {
	content = commitGenHeader.ReplaceAllString(content, `[${1}commit.generation]$2`)
	return mergeArgsIntoCommandBlocks(content)
}

func mergeArgsIntoCommandBlocks(content string) string {
	headers := tableHeader.FindAllStringIndex(content, -1)
	if len(headers) == 0 {
		return content
	}

	var out strings.Builder
	prevEnd := 0
	for i, h := range headers {
		blockStart := h[0]
		out.WriteString(content[prevEnd:blockStart])

		headerLine := content[h[0]:h[1]]
		bodyEnd := len(content)
		if i+1 < len(headers) {
			bodyEnd = headers[i+1][0]
		}
		body := content[h[1]:bodyEnd]

		if strings.HasSuffix(headerLine, "commit.generation]") {
			body = mergeArgsIntoCommand(body)
		}
		out.WriteString(headerLine)
		out.WriteString(body)
		prevEnd = bodyEnd
	}
	out.WriteString(content[prevEnd:])
	return out.String()
}

var (
	commandLine = regexp.MustCompile(`(?m)^([ \t]*command[ \t]*=[ \t]*)"((?:[^"\\]|\\.)*)"([ \t]*)$`)
	argsLine    = regexp.MustCompile(`(?m)^[ \t]*args[ \t]*=[ \t]*(\[[^\]]*\])[ \t]*\n?`)
)

func mergeArgsIntoCommand(block string) string {
	argsMatch := argsLine.FindStringSubmatch(block)
	cmdMatch := commandLine.FindStringSubmatch(block)
	if argsMatch == nil || cmdMatch == nil {
		return block
	}

	var args []string
	for _, m := range tomlStringArray.FindAllStringSubmatch(argsMatch[1], -1) {
		args = append(args, unescapeTOMLBasicString(m[1]))
	}
	if len(args) == 0 {
		return block
	}

	joined := shellJoin(args)
	cmdStr := unescapeTOMLBasicString(cmdMatch[2])
	newCmd := joined
	if cmdStr != "" {
		newCmd = cmdStr + " " + joined
	}
	newCommandLine := cmdMatch[1] + `"` + escapeTOMLBasicString(newCmd) + `"` + cmdMatch[3]
	// ReplaceAllString treats "$" in the replacement as a submatch reference;
	// escape any literal "$" that ended up in the rebuilt command line.
	escapedForReplace := strings.ReplaceAll(newCommandLine, "$", "$$")

	block = commandLine.ReplaceAllString(block, escapedForReplace)
	block = argsLine.ReplaceAllString(block, "")
	return block
}

func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s != "" && isShellSafe(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isShellSafe(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("_-./:@%,", r):
		default:
			return false
		}
	}
	return true
}

func unescapeTOMLBasicString(s string) string {
	return strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(s)
}

func escapeTOMLBasicString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// ApprovedCommandsByProject extracts every `approved-commands = [...]` array
// found under a `[projects."id"]` header, keyed by project id. Used to
// replay the legacy entries into the approvals store before they're stripped
// from the user config.
func ApprovedCommandsByProject(content string) map[string][]string {
	headers := projectHeader.FindAllStringSubmatchIndex(content, -1)
	out := make(map[string][]string)
	for _, h := range headers {
		projectID := content[h[2]:h[3]]
		// A project's own body ends at the next table header of any kind
		// (including its own nested [projects."x".hooks] etc.), not just the
		// next [projects."..."] header.
		bodyEnd := len(content)
		if next := tableHeader.FindStringIndex(content[h[1]:]); next != nil {
			bodyEnd = h[1] + next[0]
		}
		body := content[h[1]:bodyEnd]

		m := approvedCmdLine.FindString(body)
		if m == "" {
			continue
		}
		var cmds []string
		for _, sm := range tomlStringArray.FindAllStringSubmatch(m, -1) {
			cmds = append(cmds, unescapeTOMLBasicString(sm[1]))
		}
		if len(cmds) > 0 {
			out[projectID] = cmds
		}
	}
	return out
}

// RemoveApprovedCommandsFromConfig deletes every `approved-commands = [...]`
// line from content, leaving the rest (including the now-possibly-empty
// `[projects."id"]` header) untouched.
func RemoveApprovedCommandsFromConfig(content string) string {
	return approvedCmdLine.ReplaceAllString(content, "")
}

// Apply runs every fix Detect(content) found and returns the migrated text.
// It is idempotent: running it again on its own output detects nothing.
func Apply(content string, report Report) string {
	out := content
	if report.DeprecatedVars {
		out = ReplaceDeprecatedVars(out)
	}
	if report.CommitGenerationKey {
		out = MigrateCommitGenerationSections(out)
	}
	if report.ApprovedCommandsKey {
		out = RemoveApprovedCommandsFromConfig(out)
	}
	return out
}

// warnedPaths dedups the brief warning per canonical config path per
// process, so repeated config loads within one invocation (e.g. once per
// workspace during `list`) warn at most once (§4.J).
var warnedPaths = struct {
	mu   sync.Mutex
	seen map[string]bool
}{seen: make(map[string]bool)}

func alreadyWarned(canonicalPath string) bool {
	warnedPaths.mu.Lock()
	defer warnedPaths.mu.Unlock()
	if warnedPaths.seen[canonicalPath] {
		return true
	}
	warnedPaths.seen[canonicalPath] = true
	return false
}

// ResetWarned clears the per-process dedup set. Test-only.
func ResetWarned() {
	warnedPaths.mu.Lock()
	defer warnedPaths.mu.Unlock()
	warnedPaths.seen = make(map[string]bool)
}

// Result is what CheckAndMigrate reports back to its caller.
type Result struct {
	Report        Report
	MigrationPath string // "" if no .new file exists/was written
	BriefWarning  string // "" if nothing should be printed
}

// newPathFor builds "config.toml" -> "config.toml.new", or "config" -> "config.new"
// for an extension-less path, matching the original's path.with_extension logic.
func newPathFor(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return path + ".new"
	}
	return strings.TrimSuffix(path, ext) + ext + ".new"
}

// CheckAndMigrate detects deprecations in content (the already-loaded config
// file at path), writes path+".new" with every fix applied on first sighting
// of this canonical path this process, and returns a brief warning line to
// print to stderr. store, when non-nil, receives any approved-commands
// entries found so they survive the migration to the separate approvals
// file; label names the config in user-facing text (e.g. "user config" or
// the project path).
func CheckAndMigrate(ctx context.Context, path, content, label string, store *approval.Store) (*Result, error) {
	report := Detect(content)
	if !report.Any() {
		return nil, nil
	}

	canonical := path
	if abs, err := filepath.Abs(path); err == nil {
		canonical = abs
	}

	newPath := newPathFor(path)
	result := &Result{Report: report}

	if _, err := os.Stat(newPath); err == nil {
		result.MigrationPath = newPath
	}

	if alreadyWarned(canonical) {
		return result, nil
	}

	result.BriefWarning = FormatBriefWarning(label)

	if result.MigrationPath == "" {
		if report.ApprovedCommandsKey && store != nil {
			for projectID, cmds := range ApprovedCommandsByProject(content) {
				for _, c := range cmds {
					if err := store.Approve(ctx, projectID, c); err != nil {
						return result, fmt.Errorf("migrate approved commands for %s: %w", projectID, err)
					}
				}
			}
		}
		written, err := WriteMigrationFile(path, content, report)
		if err != nil {
			return result, err
		}
		result.MigrationPath = written
	}

	return result, nil
}

// WriteMigrationFile applies every fix report names and writes the result to
// path's ".new" sibling, returning that path.
func WriteMigrationFile(path, content string, report Report) (string, error) {
	newPath := newPathFor(path)
	migrated := Apply(content, report)
	if err := os.WriteFile(newPath, []byte(migrated), 0o600); err != nil {
		return "", fmt.Errorf("write migration file: %w", err)
	}
	return newPath, nil
}

// FormatBriefWarning is the one-line pointer shown the first time a
// deprecated config is loaded in a process, directing the user to the full
// detail view.
func FormatBriefWarning(label string) string {
	return fmt.Sprintf("%s has deprecated settings. To see details, run `wt config show`.", label)
}
