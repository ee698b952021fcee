package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atc-agent/atc/internal/settings"
	"github.com/atc-agent/atc/internal/tools"
)

// runLocalTool executes one tool against a local root, outside any
// session. Only tools that never touch the store are exposed this way.
func runLocalTool(cmd *cobra.Command, root string, tool tools.Tool, args map[string]any) error {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		root = cwd
	}
	tc := &tools.Context{Settings: settings.SessionSettings{ProjectRoot: &root}}
	res, err := tool.Run(cmd.Context(), tc, args)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"summary": res.Summary, "data": res.Data})
}

func filesCmd() *cobra.Command {
	var root string
	var apply bool

	cmd := &cobra.Command{
		Use:   "files",
		Short: "Local file operations under a sandboxed root",
	}
	cmd.PersistentFlags().StringVar(&root, "root", "", "project root (default: current directory)")
	cmd.PersistentFlags().BoolVar(&apply, "apply", false, "apply changes instead of the default dry run")

	var content, contentFile string
	write := &cobra.Command{
		Use:   "write <path>",
		Short: "Write a file (dry run unless --apply)",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (content == "") == (contentFile == "") {
				return &usageError{err: fmt.Errorf("exactly one of --content or --content-file is required")}
			}
			body := content
			if contentFile != "" {
				raw, err := os.ReadFile(contentFile)
				if err != nil {
					return err
				}
				body = string(raw)
			}
			return runLocalTool(cmd, root, &tools.FilesWriteTool{}, map[string]any{
				"path": args[0], "content": body, "dry_run": !apply,
			})
		},
	}
	write.Flags().StringVar(&content, "content", "", "file content")
	write.Flags().StringVar(&contentFile, "content-file", "", "read file content from a file")

	move := &cobra.Command{
		Use:   "move <from> <to>",
		Short: "Move a file or directory (dry run unless --apply)",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocalTool(cmd, root, &tools.FilesMoveTool{}, map[string]any{
				"from": args[0], "to": args[1], "dry_run": !apply,
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a file or directory (dry run unless --apply)",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocalTool(cmd, root, &tools.FilesDeleteTool{}, map[string]any{
				"path": args[0], "dry_run": !apply,
			})
		},
	}

	cmd.AddCommand(write, move, del)
	return cmd
}

func discoveryCmd() *cobra.Command {
	var root string
	var max uint64

	cmd := &cobra.Command{
		Use:   "discovery",
		Short: "Walk, search, and read a project tree",
	}
	cmd.PersistentFlags().StringVar(&root, "root", "", "project root (default: current directory)")
	cmd.PersistentFlags().Uint64Var(&max, "max", 0, "entry cap (default 500)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List entries, honoring ignore files",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := map[string]any{}
			if max > 0 {
				a["max"] = float64(max)
			}
			return runLocalTool(cmd, root, &tools.DiscoveryListTool{}, a)
		},
	}

	search := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Filter entries by a path regex",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := map[string]any{"pattern": args[0]}
			if max > 0 {
				a["max"] = float64(max)
			}
			return runLocalTool(cmd, root, &tools.DiscoverySearchTool{}, a)
		},
	}

	var maxBytes uint64
	read := &cobra.Command{
		Use:   "read <path>",
		Short: "Print a file from under the root",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := map[string]any{"path": args[0]}
			if maxBytes > 0 {
				a["max_bytes"] = float64(maxBytes)
			}
			return runLocalTool(cmd, root, &tools.DiscoveryReadTool{}, a)
		},
	}
	read.Flags().Uint64Var(&maxBytes, "max-bytes", 0, "read size cap in bytes")

	cmd.AddCommand(list, search, read)
	return cmd
}

func gitCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "git",
		Short: "Repository operations under the project root",
	}
	cmd.PersistentFlags().StringVar(&root, "root", "", "project root (default: current directory)")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the worktree status",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocalTool(cmd, root, &tools.GitStatusTool{}, nil)
		},
	}

	diff := &cobra.Command{
		Use:   "diff",
		Short: "Show the workdir diff against HEAD",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocalTool(cmd, root, &tools.GitDiffTool{}, nil)
		},
	}

	addAll := &cobra.Command{
		Use:   "add-all",
		Short: "Stage every change",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocalTool(cmd, root, &tools.GitAddAllTool{}, nil)
		},
	}

	commit := &cobra.Command{
		Use:   "commit <message>",
		Short: "Commit staged changes",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocalTool(cmd, root, &tools.GitCommitTool{}, map[string]any{"message": args[0]})
		},
	}

	cmd.AddCommand(status, diff, addAll, commit)
	return cmd
}
