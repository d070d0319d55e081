// Package health aggregates component health for the assistant.
//
// Two consumers share the same checker list: the HTTP probes
// (/healthz for liveness, /readyz for readiness) and the periodic
// monitor loop, which calls [Handler.Snapshot] to log degraded
// components. Typical checker names are "speech", "nlp", "automation",
// "memory" and "plugins".
//
// Probe responses are JSON objects with a top-level "status" field
// ("ok" or "fail") and a "checks" map containing each named result.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a single component check so one stuck dependency
// cannot hang a probe.
const checkTimeout = 5 * time.Second

// Prober is the health surface every provider and the memory store
// expose: nil means healthy.
type Prober interface {
	HealthCheck(ctx context.Context) error
}

// Checker is a named health check function. Check returns nil when the
// component is healthy and a non-nil error describing the failure
// otherwise.
type Checker struct {
	// Name is a short label for this component (e.g. "memory", "nlp").
	// It appears as a key in the JSON response.
	Name string

	// Check probes the component. It must respect context cancellation.
	Check func(ctx context.Context) error
}

// ForComponent wraps a provider's HealthCheck method as a named Checker.
func ForComponent(name string, p Prober) Checker {
	return Checker{Name: name, Check: p.HealthCheck}
}

// result is the JSON response body for health endpoints.
type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler evaluates the component checkers for HTTP probes and the
// monitor loop. It is safe for concurrent use; the checker list is
// fixed at construction time.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] over the given checkers. They are evaluated
// sequentially in the order provided.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz is a liveness probe that always returns 200 OK. A running
// process that can serve HTTP is considered alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz is a readiness probe that returns 200 only when every
// component checker passes. Each checker runs under a [checkTimeout]
// deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{
		Status: "ok",
		Checks: checks,
	}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, res)
}

// Snapshot runs every checker once and reports per-component health.
// The monitor loop calls this on its health interval and logs the
// components that come back false.
func (h *Handler) Snapshot(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(h.checkers))
	for _, c := range h.checkers {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		out[c.Name] = c.Check(cctx) == nil
		cancel()
	}
	return out
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// writeJSON encodes v as JSON and writes it with the given status code.
// On encoding failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
