package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atc-agent/atc/internal/toolerrors"
)

const defaultPreviewBytes = 1024

// EditPreview shows what a write would do, whether or not it was
// applied. Previews are UTF-8 with invalid sequences replaced, capped
// at preview_bytes.
type EditPreview struct {
	Applied       bool   `json:"applied"`
	BeforePreview string `json:"before_preview"`
	AfterPreview  string `json:"after_preview"`
}

// OpResult reports a move or delete.
type OpResult struct {
	Applied bool   `json:"applied"`
	Detail  string `json:"detail"`
}

func capPreview(b []byte, max uint64) string {
	if uint64(len(b)) > max {
		b = b[:max]
	}
	return strings.ToValidUTF8(string(b), "�")
}

// FilesWriteTool writes a file under the root, defaulting to dry-run.
type FilesWriteTool struct{}

func (t *FilesWriteTool) Name() string        { return "files.write" }
func (t *FilesWriteTool) Description() string { return "Write a file under the project root" }

func (t *FilesWriteTool) Run(ctx context.Context, tc *Context, args map[string]any) (*Result, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, toolerrors.New(toolerrors.KindBadArgs, "content must be a string")
	}
	create, err := boolArgDefault(args, "create", true)
	if err != nil {
		return nil, err
	}
	previewBytes, err := optUintArg(args, "preview_bytes", defaultPreviewBytes)
	if err != nil {
		return nil, err
	}
	dryRunArg, err := optBoolArg(args, "dry_run")
	if err != nil {
		return nil, err
	}
	dryRun := tc.DryRun(dryRunArg)

	root, err := tc.ProjectRoot()
	if err != nil {
		return nil, err
	}
	resolved, err := resolveInRoot(root, path)
	if err != nil {
		return nil, err
	}

	before, readErr := os.ReadFile(resolved)
	existed := readErr == nil
	if !existed && !os.IsNotExist(readErr) {
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, readErr, "read %q", path)
	}
	if !existed && !create {
		return nil, toolerrors.New(toolerrors.KindNotFound, "file %q does not exist (use create=true)", path)
	}

	if !dryRun {
		if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
			return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "create parent directory")
		}
		if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
			return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "write %q", path)
		}
	}

	preview := EditPreview{
		Applied:       !dryRun,
		BeforePreview: capPreview(before, previewBytes),
		AfterPreview:  capPreview([]byte(content), previewBytes),
	}
	return &Result{
		Summary: fmt.Sprintf("write:%s applied:%t", path, preview.Applied),
		Data:    preview,
	}, nil
}

// FilesMoveTool renames a file or directory within the root.
type FilesMoveTool struct{}

func (t *FilesMoveTool) Name() string        { return "files.move" }
func (t *FilesMoveTool) Description() string { return "Move a file or directory within the project root" }

func (t *FilesMoveTool) Run(ctx context.Context, tc *Context, args map[string]any) (*Result, error) {
	from, err := stringArg(args, "from")
	if err != nil {
		return nil, err
	}
	to, err := stringArg(args, "to")
	if err != nil {
		return nil, err
	}
	dryRunArg, err := optBoolArg(args, "dry_run")
	if err != nil {
		return nil, err
	}
	dryRun := tc.DryRun(dryRunArg)

	root, err := tc.ProjectRoot()
	if err != nil {
		return nil, err
	}
	src, err := resolveInRoot(root, from)
	if err != nil {
		return nil, err
	}
	dst, err := resolveInRoot(root, to)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(src); err != nil {
		return nil, toolerrors.New(toolerrors.KindNotFound, "source %q does not exist", from)
	}

	if !dryRun {
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "create destination directory")
		}
		if err := os.Rename(src, dst); err != nil {
			return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "move %q to %q", from, to)
		}
	}
	res := OpResult{Applied: !dryRun, Detail: src + " -> " + dst}
	return &Result{
		Summary: fmt.Sprintf("move:%s -> %s applied:%t", from, to, res.Applied),
		Data:    res,
	}, nil
}

// FilesDeleteTool removes a file or directory (recursively) within the
// root.
type FilesDeleteTool struct{}

func (t *FilesDeleteTool) Name() string        { return "files.delete" }
func (t *FilesDeleteTool) Description() string { return "Delete a file or directory under the project root" }

func (t *FilesDeleteTool) Run(ctx context.Context, tc *Context, args map[string]any) (*Result, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return nil, err
	}
	dryRunArg, err := optBoolArg(args, "dry_run")
	if err != nil {
		return nil, err
	}
	dryRun := tc.DryRun(dryRunArg)

	root, err := tc.ProjectRoot()
	if err != nil {
		return nil, err
	}
	resolved, err := resolveInRoot(root, path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, toolerrors.New(toolerrors.KindNotFound, "path %q does not exist", path)
	}

	if !dryRun {
		if info.IsDir() {
			err = os.RemoveAll(resolved)
		} else {
			err = os.Remove(resolved)
		}
		if err != nil {
			return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "delete %q", path)
		}
	}
	res := OpResult{Applied: !dryRun, Detail: resolved}
	return &Result{
		Summary: fmt.Sprintf("delete:%s applied:%t", path, res.Applied),
		Data:    res,
	}, nil
}
