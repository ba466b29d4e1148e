package tmplengine

// VariableSet is a builder for the Context map, making it obvious at each
// call site which §4.B variable is being supplied and letting a caller
// simply omit the ones that do not apply to its phase (the omitted ones
// become "undefined" rather than empty-string, preserving the distinction
// the truthy-test rule depends on).
type VariableSet struct {
	ctx Context
}

func NewVariableSet() *VariableSet {
	return &VariableSet{ctx: make(Context)}
}

func (v *VariableSet) set(name, value string) *VariableSet {
	v.ctx[name] = value
	return v
}

func (v *VariableSet) Repo(s string) *VariableSet                  { return v.set("repo", s) }
func (v *VariableSet) Branch(s string) *VariableSet                 { return v.set("branch", s) }
func (v *VariableSet) WorktreeName(s string) *VariableSet           { return v.set("worktree_name", s) }
func (v *VariableSet) RepoPath(s string) *VariableSet               { return v.set("repo_path", s) }
func (v *VariableSet) WorktreePath(s string) *VariableSet           { return v.set("worktree_path", s) }
func (v *VariableSet) DefaultBranch(s string) *VariableSet          { return v.set("default_branch", s) }
func (v *VariableSet) PrimaryWorktreePath(s string) *VariableSet    { return v.set("primary_worktree_path", s) }
func (v *VariableSet) Commit(s string) *VariableSet                 { return v.set("commit", s) }
func (v *VariableSet) ShortCommit(s string) *VariableSet            { return v.set("short_commit", s) }
func (v *VariableSet) Remote(s string) *VariableSet                 { return v.set("remote", s) }
func (v *VariableSet) RemoteURL(s string) *VariableSet              { return v.set("remote_url", RedactURL(s)) }
func (v *VariableSet) Upstream(s string) *VariableSet               { return v.set("upstream", s) }
func (v *VariableSet) Target(s string) *VariableSet                 { return v.set("target", s) }
func (v *VariableSet) Base(s string) *VariableSet                   { return v.set("base", s) }
func (v *VariableSet) BaseWorktreePath(s string) *VariableSet       { return v.set("base_worktree_path", s) }

func (v *VariableSet) Build() Context {
	return v.ctx
}
