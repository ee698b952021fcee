package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// apiClient is the thin HTTP client behind the session subcommands.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// do sends a JSON request and decodes the JSON reply. Non-2xx responses
// become errors carrying the server's message.
func (c *apiClient) do(method, path string, body any) (map[string]any, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, raw)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := decoded["error"].(string)
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("%s %s: %s", method, path, msg)
	}
	return decoded, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sessionCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Talk to a running atc server",
	}
	cmd.PersistentFlags().StringVar(&server, "server", "http://127.0.0.1:7171", "server base URL")

	client := func() *apiClient { return newAPIClient(server) }

	var clientID, root string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a session and print its id",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{}
			if clientID != "" {
				body["client_id"] = clientID
			}
			if root != "" {
				body["settings"] = map[string]any{"project_root": root}
			}
			res, err := client().do(http.MethodPost, "/v1/sessions", body)
			if err != nil {
				return err
			}
			fmt.Println(res["id"])
			return nil
		},
	}
	create.Flags().StringVar(&clientID, "client-id", "", "client identifier to record")
	create.Flags().StringVar(&root, "root", "", "project root for the new session")

	list := &cobra.Command{
		Use:   "list",
		Short: "List session ids, newest first",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().do(http.MethodGet, "/v1/sessions", nil)
			if err != nil {
				return err
			}
			return printJSON(res["sessions"])
		},
	}

	settingsGet := &cobra.Command{
		Use:   "settings-get <id>",
		Short: "Print a session's settings",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := client().do(http.MethodGet, "/v1/sessions/"+args[0]+"/settings", nil)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}

	settingsSet := &cobra.Command{
		Use:   "settings-set <id> <patch-json>",
		Short: "Apply a settings patch (absent=keep, null=clear, value=set)",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch map[string]any
			if err := json.Unmarshal([]byte(args[1]), &patch); err != nil {
				return &usageError{err: fmt.Errorf("patch is not valid JSON: %w", err)}
			}
			res, err := client().do(http.MethodPatch, "/v1/sessions/"+args[0]+"/settings", patch)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}

	var model, contentFile string
	var generate bool
	send := &cobra.Command{
		Use:   "send <id> [content]",
		Short: "Post a message to a session",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return &usageError{err: fmt.Errorf("send expects <id> and content (inline or --content-file)")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			content := ""
			if len(args) == 2 {
				content = args[1]
			}
			if contentFile != "" {
				if content != "" {
					return &usageError{err: fmt.Errorf("give content inline or with --content-file, not both")}
				}
				raw, err := os.ReadFile(contentFile)
				if err != nil {
					return err
				}
				content = string(raw)
			}
			if content == "" {
				return &usageError{err: fmt.Errorf("message content is required")}
			}
			body := map[string]any{"content": content, "generate": generate}
			if model != "" {
				body["model"] = model
			}
			res, err := client().do(http.MethodPost, "/v1/sessions/"+args[0]+"/messages", body)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	send.Flags().StringVar(&model, "model", "", "model override for this message")
	send.Flags().BoolVar(&generate, "generate", false, "request a model reply")
	send.Flags().StringVar(&contentFile, "content-file", "", "read message content from a file")

	var maxBytes uint64
	urlCmd := &cobra.Command{
		Use:   "url <id> <url>",
		Short: "Attach an allowlisted URL to the session context",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"url": args[1]}
			if maxBytes > 0 {
				body["max_bytes"] = maxBytes
			}
			res, err := client().do(http.MethodPost, "/v1/sessions/"+args[0]+"/context/url", body)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	urlCmd.Flags().Uint64Var(&maxBytes, "max-bytes", 0, "fetch size cap in bytes")

	var kind string
	var cursor, limit int
	history := &cobra.Command{
		Use:   "history <id>",
		Short: "Print a session's message or tool history",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/v1/sessions/%s/history?kind=%s&cursor=%d&limit=%d", args[0], kind, cursor, limit)
			res, err := client().do(http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	history.Flags().StringVar(&kind, "kind", "messages", "messages or tools")
	history.Flags().IntVar(&cursor, "cursor", 0, "starting offset")
	history.Flags().IntVar(&limit, "limit", 50, "page size")

	closeCmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Delete a session and its history",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := client().do(http.MethodDelete, "/v1/sessions/"+args[0], nil); err != nil {
				return err
			}
			fmt.Println("closed")
			return nil
		},
	}

	cmd.AddCommand(create, list, settingsGet, settingsSet, send, urlCmd, history, closeCmd)
	return cmd
}
