// Package sandbox resolves user-supplied paths under a project root and
// rejects anything that escapes it, whether by ".." traversal or by symlink.
package sandbox

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrDenied is returned when a path resolves outside the project root.
var ErrDenied = errors.New("path resolves outside project root")

// maxSymlinkHops bounds symlink traversal, matching the limit
// filepath.EvalSymlinks uses. A chain longer than this is a cycle.
const maxSymlinkHops = 40

// ResolveUnderRoot resolves rel against root and returns the canonical
// absolute path, or ErrDenied when the result provably escapes root.
//
// The check runs in two phases: the joined path is first normalized
// lexically (so ".." components cannot be hidden behind symlinks), then
// canonicalized through the filesystem and prefix-checked against the
// canonical root. Paths that do not exist yet are validated through their
// deepest existing ancestor, so a file about to be created still gets a
// containment guarantee.
func ResolveUnderRoot(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("absolutize root: %w", err)
	}
	canonRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("canonicalize root %s: %w", root, err)
	}

	var joined string
	if filepath.IsAbs(rel) {
		joined = filepath.Clean(rel)
	} else {
		joined = filepath.Join(canonRoot, rel)
	}

	if canon, err := filepath.EvalSymlinks(joined); err == nil {
		if !isWithin(canon, canonRoot) {
			slog.Warn("sandbox.path_escape", "path", rel, "resolved", canon, "root", canonRoot)
			return "", ErrDenied
		}
		return canon, nil
	}

	// Path does not exist yet (or a component is a dangling symlink):
	// canonicalize the deepest existing ancestor and re-check.
	resolved, err := resolveThroughExistingAncestors(joined, 0)
	if err != nil {
		return "", ErrDenied
	}
	if !isWithin(resolved, canonRoot) {
		slog.Warn("sandbox.path_escape", "path", rel, "resolved", resolved, "root", canonRoot)
		return "", ErrDenied
	}
	return resolved, nil
}

// isWithin reports whether child is parent itself or lies beneath it.
func isWithin(child, parent string) bool {
	if child == parent {
		return true
	}
	return strings.HasPrefix(child, parent+string(filepath.Separator))
}

// resolveThroughExistingAncestors canonicalizes the deepest existing
// ancestor of target and re-appends the remaining components. Dangling
// symlinks along the way are followed lexically via os.Readlink so their
// targets still participate in the containment check. hops counts the
// links followed so far; a cycle (loop -> loop) exceeds the bound.
func resolveThroughExistingAncestors(target string, hops int) (string, error) {
	if hops > maxSymlinkHops {
		return "", errors.New("too many symlink hops")
	}
	if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
		dest, err := os.Readlink(target)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(dest) {
			dest = filepath.Join(filepath.Dir(target), dest)
		}
		return resolveThroughExistingAncestors(filepath.Clean(dest), hops+1)
	}

	current := target
	var tail []string
	for {
		parent := filepath.Dir(current)
		if parent == current {
			return filepath.Clean(target), nil
		}
		tail = append([]string{filepath.Base(current)}, tail...)
		current = parent

		if real, err := filepath.EvalSymlinks(current); err == nil {
			result := real
			for _, component := range tail {
				result = filepath.Join(result, component)
			}
			return result, nil
		}
	}
}
