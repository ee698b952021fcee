package cmd

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestAPIClientErrorCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"host \"x\" is not on the session allowlist","kind":"forbidden_host"}`))
	}))
	defer srv.Close()

	_, err := newAPIClient(srv.URL).do(http.MethodPost, "/v1/sessions/abc/context/url", map[string]any{"url": "http://x/"})
	if err == nil || !strings.Contains(err.Error(), "allowlist") {
		t.Errorf("err = %v", err)
	}
}

func TestAPIClientTrimsTrailingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if _, err := newAPIClient(srv.URL + "/").do(http.MethodGet, "/v1/sessions", nil); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/v1/sessions" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestExactArgsReportsUsageError(t *testing.T) {
	c := &cobra.Command{Use: "x"}
	err := exactArgs(1)(c, []string{})
	var ue *usageError
	if !errors.As(err, &ue) {
		t.Errorf("err = %T %v, want usageError", err, err)
	}

	if err := exactArgs(1)(c, []string{"one"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
