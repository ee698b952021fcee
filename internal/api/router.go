package api

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/atc-agent/atc/internal/agent"
	"github.com/atc-agent/atc/internal/store"
	"github.com/atc-agent/atc/internal/tools"
)

// RouterDeps holds the dependencies for the HTTP API.
type RouterDeps struct {
	Repo    store.Repository
	Engine  *agent.Engine
	Runtime *tools.Runtime

	// RateLimit is requests per second per client; zero disables
	// limiting (tests).
	RateLimit float64
	RateBurst int
}

// NewRouter wires every route and the middleware chain.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	sh := &sessionHandler{repo: deps.Repo}
	mux.HandleFunc("POST /v1/sessions", sh.create)
	mux.HandleFunc("GET /v1/sessions", sh.list)
	mux.HandleFunc("DELETE /v1/sessions/{id}", sh.delete)
	mux.HandleFunc("GET /v1/sessions/{id}/settings", sh.getSettings)
	mux.HandleFunc("PATCH /v1/sessions/{id}/settings", sh.patchSettings)
	mux.HandleFunc("GET /v1/sessions/{id}/history", sh.history)

	mh := &messageHandler{engine: deps.Engine}
	mux.HandleFunc("POST /v1/sessions/{id}/messages", mh.post)

	th := &toolHandler{runtime: deps.Runtime}
	mux.HandleFunc("POST /v1/sessions/{id}/tools/{tool}", th.dispatch)
	mux.HandleFunc("POST /v1/sessions/{id}/context/url", th.includeURL)

	hh := &healthHandler{repo: deps.Repo}
	mux.HandleFunc("GET /v1/healthz", hh.check)

	var handler http.Handler = mux
	if deps.RateLimit > 0 {
		burst := deps.RateBurst
		if burst <= 0 {
			burst = int(deps.RateLimit)
		}
		handler = rateLimitMiddleware(rate.Limit(deps.RateLimit), burst)(handler)
	}
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}
