// Package files implements the local file capability: existence and size
// checks, renames, and media duration probing. File references are opaque
// strings; plain values are filesystem paths, and refs carrying the
// "tree:" prefix are resolved relative to the configured library root so
// records survive the library being remounted elsewhere.
package files

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/reelkeeperapp/reelkeeper-server/internal/errors"
)

// TreePrefix marks a ref as relative to the library root.
const TreePrefix = "tree:"

// Manager resolves and manipulates files behind opaque refs.
type Manager struct {
	libraryPath string
	ffprobeBin  string
	logger      *slog.Logger
}

// New creates a file manager rooted at libraryPath.
func New(libraryPath string, logger *slog.Logger) *Manager {
	return &Manager{
		libraryPath: libraryPath,
		ffprobeBin:  "ffprobe",
		logger:      logger,
	}
}

// Resolve maps a ref to an absolute filesystem path.
func (m *Manager) Resolve(ref string) string {
	if rel, ok := strings.CutPrefix(ref, TreePrefix); ok {
		return filepath.Join(m.libraryPath, filepath.FromSlash(rel))
	}
	return ref
}

// Exists reports whether the ref points at a regular file.
func (m *Manager) Exists(ref string) bool {
	info, err := os.Stat(m.Resolve(ref))
	return err == nil && info.Mode().IsRegular()
}

// Length returns the file size in bytes, or 0 if it cannot be read.
func (m *Manager) Length(ref string) int64 {
	info, err := os.Stat(m.Resolve(ref))
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}

// Rename renames the file behind ref to newName within its directory and
// returns the new ref in the same form (tree-relative refs stay
// tree-relative). newName must be a bare filename.
func (m *Manager) Rename(ref, newName string) (string, error) {
	if newName == "" || newName != filepath.Base(newName) {
		return "", apperrors.RenameFailed(apperrors.ErrValidation)
	}

	oldPath := m.Resolve(ref)
	newPath := filepath.Join(filepath.Dir(oldPath), newName)
	if newPath == oldPath {
		return ref, nil
	}
	if _, err := os.Stat(newPath); err == nil {
		// Never clobber an existing file.
		return "", apperrors.RenameFailed(os.ErrExist)
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return "", apperrors.RenameFailed(err)
	}

	m.logger.Debug("renamed file",
		"from", filepath.Base(oldPath),
		"to", newName,
	)

	if rel, ok := strings.CutPrefix(ref, TreePrefix); ok {
		dir := filepath.Dir(filepath.FromSlash(rel))
		if dir == "." {
			return TreePrefix + newName, nil
		}
		return TreePrefix + filepath.ToSlash(filepath.Join(dir, newName)), nil
	}
	return newPath, nil
}

// SanitizeName strips characters that are unsafe in filenames across
// common filesystems and collapses the result to something displayable.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastSpace := false
	for _, r := range name {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r) || r < 0x20:
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		case r == ' ':
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
			}
			lastSpace = true
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// ProbeDuration returns the media duration in whole seconds, or 0 when
// the file cannot be probed. Probe failures are not fatal; matching
// falls back to title-only gates when duration is unknown.
func (m *Manager) ProbeDuration(ctx context.Context, ref string) int64 {
	seconds, err := probeDurationSeconds(ctx, m.ffprobeBin, m.Resolve(ref))
	if err != nil {
		m.logger.Debug("duration probe failed",
			"ref", ref,
			"error", err,
		)
		return 0
	}
	return seconds
}
