package vcsadapter

import (
	"fmt"
	"os"
	"path/filepath"
)

// Detect walks up from start looking for a .jj or .git directory, the way
// jj-beads' internal/vcs/detect.go walks the tree; git worktrees where
// .git is a file (gitdir pointer) still count as a git repo root.
func Detect(start string) (Kind, string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", "", err
	}
	for {
		if isDir(filepath.Join(dir, ".jj")) {
			return Jj, dir, nil
		}
		if exists(filepath.Join(dir, ".git")) {
			return Git, dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", fmt.Errorf("not inside a git or jj repository: %s", start)
		}
		dir = parent
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// New builds the Adapter for the repository containing start.
func New(start string, maxConcurrent int) (Adapter, error) {
	kind, root, err := Detect(start)
	if err != nil {
		return nil, err
	}
	switch kind {
	case Git:
		return NewGitAdapter(root, maxConcurrent), nil
	case Jj:
		return NewJjAdapter(root, maxConcurrent), nil
	default:
		return nil, fmt.Errorf("unsupported vcs kind %q", kind)
	}
}
