package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/noah-isme/toko-finance/internal/common"
)

const defaultProbeTimeout = 500 * time.Millisecond

// Probe checks one dependency. Failing a non-critical probe reports the
// service as degraded but keeps it ready: pricing still runs on cached or
// default settings.
type Probe struct {
	Name     string
	Check    func(ctx context.Context) error
	Timeout  time.Duration
	Critical bool
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	probes   []Probe
	draining atomic.Bool
}

// NewHandler constructs a Handler that reports ready until SetReady(false).
func NewHandler(probes ...Probe) *Handler {
	return &Handler{probes: probes}
}

// SetReady toggles readiness. Called with false when shutdown starts so load
// balancers drain the instance before the listener closes.
func (h *Handler) SetReady(ready bool) {
	h.draining.Store(!ready)
}

// Live reports liveness status.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadyStatus is the body of the readiness endpoint.
type ReadyStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Ready runs every probe and answers 503 when a critical one fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.draining.Load() {
		common.JSON(w, http.StatusServiceUnavailable, ReadyStatus{Status: "draining", Checks: map[string]string{}})
		return
	}
	out := ReadyStatus{Status: "ok", Checks: make(map[string]string, len(h.probes))}
	code := http.StatusOK
	for _, p := range h.probes {
		err := run(r.Context(), p)
		if err == nil {
			out.Checks[p.Name] = "ok"
			continue
		}
		out.Checks[p.Name] = err.Error()
		if p.Critical {
			out.Status = "unavailable"
			code = http.StatusServiceUnavailable
		} else if out.Status == "ok" {
			out.Status = "degraded"
		}
	}
	common.JSON(w, code, out)
}

func run(ctx context.Context, p Probe) error {
	if p.Check == nil {
		return nil
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Check(ctx)
}
