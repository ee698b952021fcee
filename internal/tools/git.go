package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/atc-agent/atc/internal/toolerrors"
)

// GitStatusEntry is one entry of the worktree status.
type GitStatusEntry struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

func openRepo(tc *Context) (*git.Repository, error) {
	root, err := tc.ProjectRoot()
	if err != nil {
		return nil, err
	}
	resolved, err := resolveInRoot(root, ".")
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainOpenWithOptions(resolved, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, toolerrors.New(toolerrors.KindNotFound, "no repository at or above %q", resolved)
		}
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "open repository")
	}
	return repo, nil
}

func statusCode(c git.StatusCode) string {
	switch c {
	case git.Unmodified:
		return "unmodified"
	case git.Untracked:
		return "untracked"
	case git.Modified:
		return "modified"
	case git.Added:
		return "added"
	case git.Deleted:
		return "deleted"
	case git.Renamed:
		return "renamed"
	case git.Copied:
		return "copied"
	case git.UpdatedButUnmerged:
		return "unmerged"
	default:
		return string(c)
	}
}

// GitStatusTool reports the worktree status including untracked files.
type GitStatusTool struct{}

func (t *GitStatusTool) Name() string        { return "git.status" }
func (t *GitStatusTool) Description() string { return "Show the repository worktree status" }

func (t *GitStatusTool) Run(ctx context.Context, tc *Context, args map[string]any) (*Result, error) {
	repo, err := openRepo(tc)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "worktree")
	}
	st, err := wt.Status()
	if err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "status")
	}

	out := make([]GitStatusEntry, 0, len(st))
	for path, fs := range st {
		code := fs.Worktree
		if code == git.Unmodified {
			code = fs.Staging
		}
		out = append(out, GitStatusEntry{Path: path, Status: statusCode(code)})
	}
	return &Result{Summary: fmt.Sprintf("%d entries", len(out)), Data: out}, nil
}

// GitDiffTool renders a patch between HEAD and the worktree for every
// tracked file with changes. Untracked files appear in status, not here.
type GitDiffTool struct{}

func (t *GitDiffTool) Name() string        { return "git.diff" }
func (t *GitDiffTool) Description() string { return "Show the workdir diff against HEAD" }

func (t *GitDiffTool) Run(ctx context.Context, tc *Context, args map[string]any) (*Result, error) {
	repo, err := openRepo(tc)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "worktree")
	}
	st, err := wt.Status()
	if err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "status")
	}

	headTree := headTreeOrNil(repo)
	dmp := diffmatchpatch.New()

	var b strings.Builder
	for path, fs := range st {
		if fs.Worktree == git.Untracked {
			continue
		}
		if fs.Worktree == git.Unmodified && fs.Staging == git.Unmodified {
			continue
		}
		before := treeFileContent(headTree, path)
		after := worktreeFileContent(wt, path)
		if before == after {
			continue
		}
		fmt.Fprintf(&b, "diff --git a/%s b/%s\n--- a/%s\n+++ b/%s\n%s",
			path, path, path, path, lineDiff(dmp, before, after))
	}
	diff := b.String()
	return &Result{
		Summary: fmt.Sprintf("%d chars", len(diff)),
		Data:    map[string]any{"diff": diff},
	}, nil
}

// lineDiff renders a line-oriented diff body: context lines prefixed
// with a space, removals with '-', additions with '+'.
func lineDiff(dmp *diffmatchpatch.DiffMatchPatch, before, after string) string {
	ca, cb, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func headTreeOrNil(repo *git.Repository) *object.Tree {
	head, err := repo.Head()
	if err != nil {
		return nil
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil
	}
	return tree
}

func treeFileContent(tree *object.Tree, path string) string {
	if tree == nil {
		return ""
	}
	f, err := tree.File(path)
	if err != nil {
		return ""
	}
	s, err := f.Contents()
	if err != nil {
		return ""
	}
	return s
}

func worktreeFileContent(wt *git.Worktree, path string) string {
	f, err := wt.Filesystem.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return ""
	}
	return string(raw)
}

// GitAddAllTool stages every change, like git add -A.
type GitAddAllTool struct{}

func (t *GitAddAllTool) Name() string        { return "git.add_all" }
func (t *GitAddAllTool) Description() string { return "Stage all changes in the repository" }

func (t *GitAddAllTool) Run(ctx context.Context, tc *Context, args map[string]any) (*Result, error) {
	repo, err := openRepo(tc)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "worktree")
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "add all")
	}
	return &Result{Summary: "git add -A", Data: map[string]any{"ok": true}}, nil
}

// GitCommitTool commits the staged tree. The first commit on an empty
// repository has no parent; later commits use HEAD as single parent.
type GitCommitTool struct{}

func (t *GitCommitTool) Name() string        { return "git.commit" }
func (t *GitCommitTool) Description() string { return "Commit staged changes and return the commit id" }

func (t *GitCommitTool) Run(ctx context.Context, tc *Context, args map[string]any) (*Result, error) {
	message, err := stringArg(args, "message")
	if err != nil {
		return nil, err
	}
	repo, err := openRepo(tc)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "worktree")
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author:            commitSignature(repo),
		AllowEmptyCommits: true,
	})
	if err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "commit")
	}
	return &Result{
		Summary: fmt.Sprintf("commit:%s", hash),
		Data:    map[string]any{"commit": hash.String()},
	}, nil
}

// commitSignature uses the repository's configured identity when one
// exists, with a service fallback so commits never fail on a bare
// environment.
func commitSignature(repo *git.Repository) *object.Signature {
	sig := &object.Signature{Name: "atc", Email: "atc@localhost", When: time.Now()}
	cfg, err := repo.ConfigScoped(gitconfig.SystemScope)
	if err == nil && cfg.User.Name != "" {
		sig.Name = cfg.User.Name
		sig.Email = cfg.User.Email
	}
	return sig
}
