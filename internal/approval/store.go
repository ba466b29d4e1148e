// Package approval persists per-project approved command templates under a
// file lock (§4.C). Approval equality is always on the normalized template.
package approval

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"

	"github.com/shaneholloman/worktrunk/internal/tmplengine"
)

// lockTimeout bounds how long Approve/Revoke wait for the exclusive lock
// before surfacing ErrLockUnavailable.
const lockTimeout = 2 * time.Second

// ErrLockUnavailable is returned when the approvals file lock could not be
// acquired within lockTimeout. Per §4.C this is not fatal: callers should
// warn and continue without persisting rather than fail the command.
var ErrLockUnavailable = fmt.Errorf("approvals file is locked by another process")

type fileFormat struct {
	Projects map[string]projectEntry `toml:"projects"`
}

type projectEntry struct {
	ApprovedCommands []string `toml:"approved_commands"`
}

// Store reads and writes one approvals.toml, protected by a sibling
// <name>.lock file.
type Store struct {
	path     string
	lockPath string
}

func NewStore(path string) *Store {
	return &Store{path: path, lockPath: path + ".lock"}
}

func (s *Store) load() (fileFormat, error) {
	var f fileFormat
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		f.Projects = make(map[string]projectEntry)
		return f, nil
	}
	if err != nil {
		return f, err
	}
	if err := toml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if f.Projects == nil {
		f.Projects = make(map[string]projectEntry)
	}
	return f, nil
}

func (s *Store) save(f fileFormat) error {
	tmp := s.path + ".tmp"
	out, err := os.Create(tmp) //nolint:gosec
	if err != nil {
		return err
	}
	enc := toml.NewEncoder(out)
	if err := enc.Encode(f); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) withLock(ctx context.Context, fn func(f *fileFormat) error) error {
	fl := flock.New(s.lockPath)
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil || !locked {
		return ErrLockUnavailable
	}
	defer fl.Unlock() //nolint:errcheck

	// Re-read the project section from disk under the lock, so a concurrent
	// writer touching a different project is never clobbered (§4.C).
	f, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(&f); err != nil {
		return err
	}
	return s.save(f)
}

// IsApproved reports whether template (compared after normalization) is
// approved for projectID.
func (s *Store) IsApproved(projectID, template string) (bool, error) {
	f, err := s.load()
	if err != nil {
		return false, err
	}
	entry, ok := f.Projects[projectID]
	if !ok {
		return false, nil
	}
	normalized := tmplengine.Normalize(template)
	for _, c := range entry.ApprovedCommands {
		if tmplengine.Normalize(c) == normalized {
			return true, nil
		}
	}
	return false, nil
}

// Approve records template as approved for projectID. Idempotent: approving
// an already-approved (normalized) command is a no-op.
func (s *Store) Approve(ctx context.Context, projectID, template string) error {
	normalized := tmplengine.Normalize(template)
	return s.withLock(ctx, func(f *fileFormat) error {
		entry := f.Projects[projectID]
		for _, c := range entry.ApprovedCommands {
			if tmplengine.Normalize(c) == normalized {
				return nil
			}
		}
		entry.ApprovedCommands = append(entry.ApprovedCommands, template)
		sort.Strings(entry.ApprovedCommands)
		f.Projects[projectID] = entry
		return nil
	})
}

// Revoke removes template's approval from projectID. If that was the last
// approved command and the project has no other tracked settings, the
// project entry is removed entirely.
func (s *Store) Revoke(ctx context.Context, projectID, template string) error {
	normalized := tmplengine.Normalize(template)
	return s.withLock(ctx, func(f *fileFormat) error {
		entry, ok := f.Projects[projectID]
		if !ok {
			return nil
		}
		kept := entry.ApprovedCommands[:0]
		for _, c := range entry.ApprovedCommands {
			if tmplengine.Normalize(c) != normalized {
				kept = append(kept, c)
			}
		}
		entry.ApprovedCommands = kept
		if len(entry.ApprovedCommands) == 0 {
			delete(f.Projects, projectID)
		} else {
			f.Projects[projectID] = entry
		}
		return nil
	})
}

// RevokeProject removes every approval recorded for projectID.
func (s *Store) RevokeProject(ctx context.Context, projectID string) error {
	return s.withLock(ctx, func(f *fileFormat) error {
		delete(f.Projects, projectID)
		return nil
	})
}
