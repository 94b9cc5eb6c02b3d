package myhttp

import (
	"net/http"
	"time"

	"github.com/MarcGrol/dobmilano/lib/mycontext"
	"github.com/MarcGrol/dobmilano/lib/mylog"
)

// StatusRecorder captures the status code written by the wrapped handler.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

func (r *StatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *StatusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func AccessLog(logger mylog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := NewStatusRecorder(w)

			next.ServeHTTP(rec, r)

			logger.Log(mycontext.ContextFromHTTPRequest(r), "", mylog.SeverityInfo, "%s %s -> %d (%d ms, %s)",
				r.Method, r.URL.Path, rec.Status, time.Since(start).Milliseconds(), ClientIP(r))
		})
	}
}
