package audit

import (
	"bytes"
	"io"
	"net/http"
	"strings"
)

// ActorHeader names the operator performing an admin call. Requests without
// it are recorded with no actor.
const ActorHeader = "X-Actor"

const maxCapturedBody = 16 << 10

// HTTPRecorder records HTTP requests after they have been handled.
type HTTPRecorder struct {
	Service   *Service
	OnError   func(error)
	ActorFunc func(*http.Request) string
}

// HTTPConfig customises how the audit entry is produced for a route.
type HTTPConfig struct {
	Action       string
	ResourceType string
	// CaptureBody stores the JSON request body as metadata.
	CaptureBody bool
}

// Middleware returns a chi-compatible middleware that records audit entries.
func (r HTTPRecorder) Middleware(cfg HTTPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if r.Service == nil || !r.Service.Enabled {
				next.ServeHTTP(w, req)
				return
			}

			var metadata []byte
			if cfg.CaptureBody && req.Body != nil {
				body, err := io.ReadAll(io.LimitReader(req.Body, maxCapturedBody))
				_ = req.Body.Close()
				req.Body = io.NopCloser(bytes.NewReader(body))
				if err == nil && isJSON(req.Header.Get("Content-Type"), body) {
					metadata = body
				}
			}

			recorder := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, req)

			if err := r.Service.Record(req.Context(), r.actor(req), cfg.Action, cfg.ResourceType, req, recorder.Status(), metadata); err != nil && r.OnError != nil {
				r.OnError(err)
			}
		})
	}
}

func (r HTTPRecorder) actor(req *http.Request) string {
	if r.ActorFunc != nil {
		return r.ActorFunc(req)
	}
	return req.Header.Get(ActorHeader)
}

func isJSON(contentType string, body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false
	}
	if contentType != "" && !strings.Contains(contentType, "json") {
		return false
	}
	return trimmed[0] == '{' || trimmed[0] == '['
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}
