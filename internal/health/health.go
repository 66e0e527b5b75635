// Package health serves the liveness and readiness probes of the Aura
// diagnostics listener.
//
//   - /healthz — liveness; a process that can answer HTTP is alive.
//   - /readyz  — readiness; 200 only while every registered [Checker]
//     passes. The engine registers a [Heartbeat] checker here so a stalled
//     physics loop flips the probe even though the process still serves.
//
// Responses are JSON objects with a top-level "status" field ("ok" or "fail")
// and a "checks" map containing the result of each named checker.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness check. A capture backend stuck in a
// driver call must not hold /readyz open indefinitely.
const checkTimeout = 5 * time.Second

// Checker names one engine collaborator and how to ask whether it is still
// serviceable. Check returns nil while the collaborator is healthy and an
// error describing what is wrong otherwise.
type Checker struct {
	// Name keys this check in the JSON response, e.g. "capture" for the audio
	// device or "director" for the physics loop heartbeat.
	Name string

	// Check asks the collaborator for its status. It must honor ctx, which
	// carries the checkTimeout deadline.
	Check func(ctx context.Context) error
}

// result is the JSON response body for health endpoints.
type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler answers the diagnostics probes. The checker list is copied at
// construction and never mutated afterwards, so a Handler is safe to share
// across requests.
type Handler struct {
	checkers []Checker
}

// New builds a [Handler] over the given checkers. Every /readyz request runs
// them sequentially in the order given here.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz answers the liveness probe with 200 unconditionally. Readiness is
// what tracks the engine's collaborators; liveness only says the process can
// still serve HTTP.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz answers the readiness probe: 200 while every registered [Checker]
// passes, 503 with per-check detail once any fails. Each check runs under a
// [checkTimeout] deadline derived from the request context.
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

// Register installs both probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// writeJSON writes v as a JSON body with the given status, falling back to a
// fixed error body when encoding fails.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
