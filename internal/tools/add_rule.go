package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/atc-agent/atc/internal/toolerrors"
)

const defaultRuleDir = ".cursor/rules"

// AddRuleTool records guidance either as a global rule in the store or
// as a Markdown file under the project's rule directory.
type AddRuleTool struct{}

func (t *AddRuleTool) Name() string { return "add_rule" }
func (t *AddRuleTool) Description() string {
	return "Save a guidance rule globally or as a repo-local Markdown file"
}

func (t *AddRuleTool) Run(ctx context.Context, tc *Context, args map[string]any) (*Result, error) {
	name, err := stringArg(args, "name")
	if err != nil {
		return nil, err
	}
	content, err := stringArg(args, "content")
	if err != nil {
		return nil, err
	}
	system, err := boolArgDefault(args, "system", false)
	if err != nil {
		return nil, err
	}

	if system {
		if err := tc.Repo.UpsertRule(ctx, name, content); err != nil {
			return nil, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "upsert rule %q", name)
		}
		return &Result{Summary: fmt.Sprintf("system rule:%s", name)}, nil
	}

	repoDir, err := optStringArg(args, "repo_dir", defaultRuleDir)
	if err != nil {
		return nil, err
	}
	root, err := tc.ProjectRoot()
	if err != nil {
		return nil, err
	}
	rel := filepath.Join(repoDir, slugify(name)+".md")
	path, err := resolveInRoot(root, rel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "create rule directory")
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "write rule file")
	}
	return &Result{Summary: fmt.Sprintf("repo rule:%s", path)}, nil
}

// slugify lowercases the name, maps every non-alphanumeric rune to '-',
// collapses runs, and trims the ends.
func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	s := b.String()
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}
