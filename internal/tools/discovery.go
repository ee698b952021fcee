package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/atc-agent/atc/internal/toolerrors"
)

const defaultListMax = 500

// FileEntry is one walked filesystem entry.
type FileEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

// errWalkDone stops the walk once the entry cap is reached.
var errWalkDone = errors.New("walk done")

// walkProject walks root depth-first, honoring the repository's
// .gitignore files and skipping both the root itself and the .git
// directory. keep filters entries; the walk stops after max entries.
func walkProject(root string, max int, keep func(path string, isDir bool) bool) ([]FileEntry, error) {
	if max <= 0 {
		max = defaultListMax
	}

	var matcher gitignore.Matcher
	if patterns, err := gitignore.ReadPatterns(osfs.New(root), nil); err == nil {
		matcher = gitignore.NewMatcher(patterns)
	}

	var out []FileEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if path == root {
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if matcher != nil {
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil && matcher.Match(strings.Split(rel, string(filepath.Separator)), d.IsDir()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if !keep(path, d.IsDir()) {
			return nil
		}
		out = append(out, FileEntry{Path: path, IsDir: d.IsDir()})
		if len(out) >= max {
			return errWalkDone
		}
		return nil
	})
	if err != nil && !errors.Is(err, errWalkDone) {
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "walk %q", root)
	}
	return out, nil
}

// DiscoveryListTool walks the project tree and returns its entries.
type DiscoveryListTool struct{}

func (t *DiscoveryListTool) Name() string        { return "discovery.list" }
func (t *DiscoveryListTool) Description() string { return "List files under the project root" }

func (t *DiscoveryListTool) Run(ctx context.Context, tc *Context, args map[string]any) (*Result, error) {
	max, err := optUintArg(args, "max", defaultListMax)
	if err != nil {
		return nil, err
	}
	root, err := tc.ProjectRoot()
	if err != nil {
		return nil, err
	}
	resolved, err := resolveInRoot(root, ".")
	if err != nil {
		return nil, err
	}
	entries, err := walkProject(resolved, int(max), func(string, bool) bool { return true })
	if err != nil {
		return nil, err
	}
	return &Result{Summary: fmt.Sprintf("%d items", len(entries)), Data: entries}, nil
}

// DiscoverySearchTool filters the walk by a regex over absolute paths.
type DiscoverySearchTool struct{}

func (t *DiscoverySearchTool) Name() string { return "discovery.search" }
func (t *DiscoverySearchTool) Description() string {
	return "Search project paths by regular expression"
}

func (t *DiscoverySearchTool) Run(ctx context.Context, tc *Context, args map[string]any) (*Result, error) {
	pattern, err := stringArg(args, "pattern")
	if err != nil {
		return nil, err
	}
	max, err := optUintArg(args, "max", defaultListMax)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "invalid pattern")
	}
	root, err := tc.ProjectRoot()
	if err != nil {
		return nil, err
	}
	resolved, err := resolveInRoot(root, ".")
	if err != nil {
		return nil, err
	}
	entries, err := walkProject(resolved, int(max), func(path string, _ bool) bool {
		return re.MatchString(path)
	})
	if err != nil {
		return nil, err
	}
	return &Result{Summary: fmt.Sprintf("%d matches", len(entries)), Data: entries}, nil
}

// DiscoveryReadTool returns file content inline without persisting a
// context item.
type DiscoveryReadTool struct{}

func (t *DiscoveryReadTool) Name() string        { return "discovery.read" }
func (t *DiscoveryReadTool) Description() string { return "Read a file under the project root" }

func (t *DiscoveryReadTool) Run(ctx context.Context, tc *Context, args map[string]any) (*Result, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	maxBytes, err := optUintArg(args, "max_bytes", defaultReadBytes)
	if err != nil {
		return nil, err
	}
	maxBytes = tc.MaxReadBytes(maxBytes)

	root, err := tc.ProjectRoot()
	if err != nil {
		return nil, err
	}
	resolved, err := resolveInRoot(root, path)
	if err != nil {
		return nil, err
	}
	content, err := readCapped(resolved, maxBytes)
	if err != nil {
		return nil, err
	}
	return &Result{
		Summary: fmt.Sprintf("read:%s bytes:%d", path, len(content)),
		Data:    map[string]any{"path": path, "content": content},
	}, nil
}
