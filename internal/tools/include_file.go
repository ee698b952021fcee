package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/atc-agent/atc/internal/sandbox"
	"github.com/atc-agent/atc/internal/store"
	"github.com/atc-agent/atc/internal/toolerrors"
)

const defaultReadBytes = 65_536

// IncludeFileTool reads a workspace file and attaches it to the session
// as a context item.
type IncludeFileTool struct{}

func (t *IncludeFileTool) Name() string { return "include_file" }
func (t *IncludeFileTool) Description() string {
	return "Attach a file under the project root to the session context"
}

func (t *IncludeFileTool) Run(ctx context.Context, tc *Context, args map[string]any) (*Result, error) {
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

	if err := tc.Repo.AddContextItem(ctx, tc.SessionID, store.KindFile, path, content, int64(len(content))); err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "persist context item")
	}
	return &Result{Summary: fmt.Sprintf("file:%s bytes:%d", path, len(content))}, nil
}

// resolveInRoot runs the path sandbox and maps its failures onto the
// tool error taxonomy.
func resolveInRoot(root, path string) (string, error) {
	resolved, err := sandbox.ResolveUnderRoot(root, path)
	if err != nil {
		if errors.Is(err, sandbox.ErrDenied) {
			return "", toolerrors.Wrap(toolerrors.KindPathEscape, err, "path %q escapes the project root", path)
		}
		return "", toolerrors.Wrap(toolerrors.KindBadArgs, err, "resolve path %q", path)
	}
	return resolved, nil
}

// readCapped reads at most maxBytes from path and returns the bytes as
// UTF-8 with invalid sequences replaced.
func readCapped(path string, maxBytes uint64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", toolerrors.New(toolerrors.KindNotFound, "file %q does not exist", path)
		}
		return "", toolerrors.Wrap(toolerrors.KindBadArgs, err, "open %q", path)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, int64(maxBytes)))
	if err != nil {
		return "", toolerrors.Wrap(toolerrors.KindBadArgs, err, "read %q", path)
	}
	return strings.ToValidUTF8(string(raw), "�"), nil
}
