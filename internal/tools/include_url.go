package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atc-agent/atc/internal/store"
	"github.com/atc-agent/atc/internal/toolerrors"
)

const (
	defaultFetchBytes = 262_144
	maxFetchBytes     = 2 << 20 // hard cap regardless of args
	fetchTimeout      = 30 * time.Second
	fetchUserAgent    = "atc/1.0"
)

// IncludeURLTool fetches a URL, extracts readable text, and attaches it
// to the session as a context item. The session allowlist gates every
// fetch.
type IncludeURLTool struct {
	// Client overrides the default HTTP client, mainly for tests.
	Client *http.Client
}

func (t *IncludeURLTool) Name() string { return "include_url" }
func (t *IncludeURLTool) Description() string {
	return "Fetch an allowlisted URL and attach its text content to the session context"
}

func (t *IncludeURLTool) Run(ctx context.Context, tc *Context, args map[string]any) (*Result, error) {
	rawURL, err := stringArg(args, "url")
	if err != nil {
		return nil, err
	}
	maxBytes, err := optUintArg(args, "max_bytes", defaultFetchBytes)
	if err != nil {
		return nil, err
	}
	if maxBytes > maxFetchBytes {
		maxBytes = maxFetchBytes
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindBadArgs, err, "invalid url")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, toolerrors.New(toolerrors.KindBadArgs, "only http and https URLs are supported")
	}
	host := parsed.Hostname()
	if host == "" {
		return nil, toolerrors.New(toolerrors.KindBadArgs, "missing hostname in url")
	}
	if err := checkHostAllowed(tc.Settings.NetworkAllowlist, host); err != nil {
		return nil, err
	}

	content, err := t.fetch(ctx, rawURL, maxBytes)
	if err != nil {
		return nil, err
	}

	if err := tc.Repo.AddContextItem(ctx, tc.SessionID, store.KindURL, rawURL, content, int64(len(content))); err != nil {
		return nil, toolerrors.Wrap(toolerrors.KindStorageFailure, err, "persist context item")
	}
	return &Result{
		Summary: fmt.Sprintf("url:%s bytes:%d", rawURL, len(content)),
		Data:    map[string]any{"url": rawURL, "bytes": len(content)},
	}, nil
}

func (t *IncludeURLTool) fetch(ctx context.Context, rawURL string, maxBytes uint64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", toolerrors.Wrap(toolerrors.KindBadArgs, err, "create request")
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", toolerrors.Wrap(toolerrors.KindUpstreamFailure, err, "fetch %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", toolerrors.New(toolerrors.KindUpstreamFailure, "fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxBytes)))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", toolerrors.Wrap(toolerrors.KindUpstreamFailure, err, "read %s", rawURL)
	}

	body := strings.ToValidUTF8(string(raw), "�")
	if isHTML(resp.Header.Get("Content-Type"), body) {
		return extractVisibleText(body), nil
	}
	return body, nil
}

func isHTML(contentType, body string) bool {
	if strings.Contains(contentType, "text/html") || strings.Contains(contentType, "application/xhtml") {
		return true
	}
	head := strings.ToLower(body)
	if len(head) > 256 {
		head = head[:256]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html")
}
