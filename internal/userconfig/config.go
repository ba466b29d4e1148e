// Package userconfig loads and saves the TOML user configuration: worktree
// path template, per-command-group settings, hook lists, and per-project
// overrides. Grounded on original_source's src/config/user.rs (the closest
// available spec for field names and merge semantics — the ambient config
// layer has no equivalent in spec.md itself), adapted from Rust's
// Option<T>+serde flatten idiom to Go's pointer-optional-field idiom, and
// from the teacher's YAML config.go for the load/XDG-path machinery (TOML
// via BurntSushi/toml replaces YAML per SPEC_FULL.md's DOMAIN STACK).
package userconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/shaneholloman/worktrunk/internal/model"
)

// DefaultWorktreePath is used when neither a project nor the global config
// sets worktree-path.
const DefaultWorktreePath = "../{{ repo }}.{{ branch | sanitize }}"

// Command is one hook/custom command entry. Named entries show a label in
// progress output; anonymous ones (Name == "") show the expanded command
// itself.
type Command struct {
	Name    string `toml:"name,omitempty"`
	Command string `toml:"command"`
}

// CommandList decodes either a bare string, a list of bare strings, or a
// list of {name, command} tables — original_source's "named or anonymous"
// commands, expressed in TOML without a tagged-union syntax.
type CommandList []Command

// UnmarshalTOML implements toml.Unmarshaler so a hook phase can be written
// as a single string, a string array, or an array of tables.
func (c *CommandList) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		*c = CommandList{{Command: v}}
	case []interface{}:
		out := make(CommandList, 0, len(v))
		for _, item := range v {
			switch e := item.(type) {
			case string:
				out = append(out, Command{Command: e})
			case map[string]interface{}:
				cmd := Command{}
				if s, ok := e["command"].(string); ok {
					cmd.Command = s
				}
				if s, ok := e["name"].(string); ok {
					cmd.Name = s
				}
				out = append(out, cmd)
			default:
				return fmt.Errorf("unsupported command entry %T", item)
			}
		}
		*c = out
	default:
		return fmt.Errorf("unsupported hook value %T", data)
	}
	return nil
}

// HooksConfig holds the nine ordered command lists, one per lifecycle
// phase. Merging two HooksConfigs is append (global first, then
// project-local), never override, per original_source/config/hooks.rs.
type HooksConfig struct {
	PreSwitch  CommandList `toml:"pre-switch,omitempty"`
	PostCreate CommandList `toml:"post-create,omitempty"`
	PostStart  CommandList `toml:"post-start,omitempty"`
	PostSwitch CommandList `toml:"post-switch,omitempty"`
	PreCommit  CommandList `toml:"pre-commit,omitempty"`
	PreMerge   CommandList `toml:"pre-merge,omitempty"`
	PostMerge  CommandList `toml:"post-merge,omitempty"`
	PreRemove  CommandList `toml:"pre-remove,omitempty"`
	PostRemove CommandList `toml:"post-remove,omitempty"`
}

func (h HooksConfig) list(phase model.HookPhase) CommandList {
	switch phase {
	case model.PhasePreSwitch:
		return h.PreSwitch
	case model.PhasePostCreate:
		return h.PostCreate
	case model.PhasePostStart:
		return h.PostStart
	case model.PhasePostSwitch:
		return h.PostSwitch
	case model.PhasePreCommit:
		return h.PreCommit
	case model.PhasePreMerge:
		return h.PreMerge
	case model.PhasePostMerge:
		return h.PostMerge
	case model.PhasePreRemove:
		return h.PreRemove
	case model.PhasePostRemove:
		return h.PostRemove
	default:
		return nil
	}
}

func mergeAppend(base, overlay CommandList) CommandList {
	if len(base) == 0 {
		return overlay
	}
	if len(overlay) == 0 {
		return base
	}
	out := make(CommandList, 0, len(base)+len(overlay))
	out = append(out, base...)
	out = append(out, overlay...)
	return out
}

func (h HooksConfig) mergeWith(other HooksConfig) HooksConfig {
	return HooksConfig{
		PreSwitch:  mergeAppend(h.PreSwitch, other.PreSwitch),
		PostCreate: mergeAppend(h.PostCreate, other.PostCreate),
		PostStart:  mergeAppend(h.PostStart, other.PostStart),
		PostSwitch: mergeAppend(h.PostSwitch, other.PostSwitch),
		PreCommit:  mergeAppend(h.PreCommit, other.PreCommit),
		PreMerge:   mergeAppend(h.PreMerge, other.PreMerge),
		PostMerge:  mergeAppend(h.PostMerge, other.PostMerge),
		PreRemove:  mergeAppend(h.PreRemove, other.PreRemove),
		PostRemove: mergeAppend(h.PostRemove, other.PostRemove),
	}
}

// CommitGenerationConfig configures the LLM command used to draft commit
// and squash messages.
type CommitGenerationConfig struct {
	Command            string `toml:"command,omitempty"`
	Template           string `toml:"template,omitempty"`
	TemplateFile       string `toml:"template-file,omitempty"`
	SquashTemplate     string `toml:"squash-template,omitempty"`
	SquashTemplateFile string `toml:"squash-template-file,omitempty"`
}

// IsConfigured reports whether an LLM command is set.
func (c *CommitGenerationConfig) IsConfigured() bool {
	return c != nil && c.Command != ""
}

func mergeCommitGeneration(base, overlay *CommitGenerationConfig) *CommitGenerationConfig {
	if overlay == nil {
		return base
	}
	if base == nil {
		return overlay
	}
	merged := *base
	if overlay.Command != "" {
		merged.Command = overlay.Command
	}
	// template/template-file are mutually exclusive; an overlay setting
	// either one clears the other, matching original_source's merge_with.
	switch {
	case overlay.Template != "":
		merged.Template, merged.TemplateFile = overlay.Template, ""
	case overlay.TemplateFile != "":
		merged.Template, merged.TemplateFile = "", overlay.TemplateFile
	}
	switch {
	case overlay.SquashTemplate != "":
		merged.SquashTemplate, merged.SquashTemplateFile = overlay.SquashTemplate, ""
	case overlay.SquashTemplateFile != "":
		merged.SquashTemplate, merged.SquashTemplateFile = "", overlay.SquashTemplateFile
	}
	return &merged
}

// ListConfig configures default flags for `list`.
type ListConfig struct {
	Full      *bool `toml:"full,omitempty"`
	Branches  *bool `toml:"branches,omitempty"`
	Remotes   *bool `toml:"remotes,omitempty"`
	TimeoutMs *int  `toml:"timeout-ms,omitempty"`
}

// CommitConfig configures default staging mode and generation settings.
type CommitConfig struct {
	Stage      string                  `toml:"stage,omitempty"`
	Generation *CommitGenerationConfig `toml:"generation,omitempty"`
}

// MergeConfig configures default `merge` behavior.
type MergeConfig struct {
	Squash *bool `toml:"squash,omitempty"`
	Commit *bool `toml:"commit,omitempty"`
	Rebase *bool `toml:"rebase,omitempty"`
	Remove *bool `toml:"remove,omitempty"`
	Verify *bool `toml:"verify,omitempty"`
}

// SelectConfig configures the interactive selector's preview pager.
type SelectConfig struct {
	Pager string `toml:"pager,omitempty"`
}

// OverridableConfig is flattened into both the global config and each
// project override block, so every setting is available at both scopes
// without duplicating field lists.
type OverridableConfig struct {
	Hooks        HooksConfig   `toml:"hooks,omitempty"`
	WorktreePath string        `toml:"worktree-path,omitempty"`
	List         *ListConfig   `toml:"list,omitempty"`
	Commit       *CommitConfig `toml:"commit,omitempty"`
	Merge        *MergeConfig  `toml:"merge,omitempty"`
	Select       *SelectConfig `toml:"select,omitempty"`
}

func mergeBool(base, overlay *bool) *bool {
	if overlay != nil {
		return overlay
	}
	return base
}

func (o OverridableConfig) mergeWith(other OverridableConfig) OverridableConfig {
	merged := OverridableConfig{
		Hooks:        o.Hooks.mergeWith(other.Hooks),
		WorktreePath: o.WorktreePath,
	}
	if other.WorktreePath != "" {
		merged.WorktreePath = other.WorktreePath
	}

	switch {
	case o.List == nil:
		merged.List = other.List
	case other.List == nil:
		merged.List = o.List
	default:
		merged.List = &ListConfig{
			Full:      mergeBool(o.List.Full, other.List.Full),
			Branches:  mergeBool(o.List.Branches, other.List.Branches),
			Remotes:   mergeBool(o.List.Remotes, other.List.Remotes),
			TimeoutMs: o.List.TimeoutMs,
		}
		if other.List.TimeoutMs != nil {
			merged.List.TimeoutMs = other.List.TimeoutMs
		}
	}

	switch {
	case o.Commit == nil:
		merged.Commit = other.Commit
	case other.Commit == nil:
		merged.Commit = o.Commit
	default:
		stage := o.Commit.Stage
		if other.Commit.Stage != "" {
			stage = other.Commit.Stage
		}
		merged.Commit = &CommitConfig{
			Stage:      stage,
			Generation: mergeCommitGeneration(o.Commit.Generation, other.Commit.Generation),
		}
	}

	switch {
	case o.Merge == nil:
		merged.Merge = other.Merge
	case other.Merge == nil:
		merged.Merge = o.Merge
	default:
		merged.Merge = &MergeConfig{
			Squash: mergeBool(o.Merge.Squash, other.Merge.Squash),
			Commit: mergeBool(o.Merge.Commit, other.Merge.Commit),
			Rebase: mergeBool(o.Merge.Rebase, other.Merge.Rebase),
			Remove: mergeBool(o.Merge.Remove, other.Merge.Remove),
			Verify: mergeBool(o.Merge.Verify, other.Merge.Verify),
		}
	}

	switch {
	case o.Select == nil:
		merged.Select = other.Select
	case other.Select == nil:
		merged.Select = o.Select
	default:
		pager := o.Select.Pager
		if other.Select.Pager != "" {
			pager = other.Select.Pager
		}
		merged.Select = &SelectConfig{Pager: pager}
	}

	return merged
}

// ProjectOverrides holds one project's approved commands and config
// overrides. Per §4.J, ApprovedCommands is legacy storage migrated out to
// approvals.toml; it is read (for migration) but no longer written.
type ProjectOverrides struct {
	ApprovedCommands []string `toml:"approved-commands,omitempty"`
	OverridableConfig
}

// UserConfig is the root of config.toml.
type UserConfig struct {
	Projects map[string]ProjectOverrides `toml:"projects,omitempty"`
	OverridableConfig
	SkipShellIntegrationPrompt bool `toml:"skip-shell-integration-prompt,omitempty"`
}

// WorktreePath returns the global worktree-path template, falling back to
// the built-in default.
func (c *UserConfig) WorktreePath() string {
	if c.OverridableConfig.WorktreePath != "" {
		return c.OverridableConfig.WorktreePath
	}
	return DefaultWorktreePath
}

// WorktreePathForProject returns the effective worktree-path template for
// projectID: the project override if set, else the global value.
func (c *UserConfig) WorktreePathForProject(projectID string) string {
	if p, ok := c.Projects[projectID]; ok && p.OverridableConfig.WorktreePath != "" {
		return p.OverridableConfig.WorktreePath
	}
	return c.WorktreePath()
}

// Hooks returns the effective, merged hook config for projectID: global
// hooks run first, project hooks are appended.
func (c *UserConfig) Hooks(projectID string) HooksConfig {
	global := c.OverridableConfig.Hooks
	p, ok := c.Projects[projectID]
	if !ok {
		return global
	}
	return global.mergeWith(p.OverridableConfig.Hooks)
}

// HookCommands returns the ordered model.Command list for one phase,
// merging global and project-local entries.
func (c *UserConfig) HookCommands(projectID string, phase model.HookPhase) []model.Command {
	list := c.Hooks(projectID).list(phase)
	out := make([]model.Command, 0, len(list))
	for _, cmd := range list {
		out = append(out, model.Command{Name: cmd.Name, Template: cmd.Command, Phase: phase})
	}
	return out
}

// Effective merges global settings with projectID's overrides (project
// wins for set fields) and returns the resulting OverridableConfig, used
// by handlers for list/commit/merge/select defaults.
func (c *UserConfig) Effective(projectID string) OverridableConfig {
	p, ok := c.Projects[projectID]
	if !ok {
		return c.OverridableConfig
	}
	return c.OverridableConfig.mergeWith(p.OverridableConfig)
}

// ConfigDir returns the per-OS config directory: $XDG_CONFIG_HOME (or
// ~/.config) on Unix, %APPDATA% on Windows.
func ConfigDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return appData
		}
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

// DefaultPath returns the default config.toml location, honoring
// WORKTRUNK_CONFIG_PATH if set.
func DefaultPath() string {
	if p := os.Getenv("WORKTRUNK_CONFIG_PATH"); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "worktrunk", "config.toml")
}

// Load reads path, returning a zero-value UserConfig (not an error) if the
// file doesn't exist yet — a first run has no config.
func Load(path string) (*UserConfig, error) {
	cfg := &UserConfig{}
	data, err := os.ReadFile(path) //nolint:gosec
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, &model.Error{
			Kind:    model.ErrConfigError,
			Message: fmt.Sprintf("parse %s", path),
			Detail:  err.Error(),
		}
	}
	return cfg, nil
}

// Save serializes cfg to path, creating parent directories as needed. Used
// only by `internal/migrate` to write the `.new` sibling; day-to-day runs
// never rewrite the user's config.
func Save(cfg *UserConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck
	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}
