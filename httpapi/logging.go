package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"pkt.systems/pslog"
)

// RequestIDHeader carries the id the server assigns to each request.
const RequestIDHeader = "X-Request-Id"

// statusWriter records what a handler sent. Flushes are counted so streamed
// responses report how many frames went out.
type statusWriter struct {
	http.ResponseWriter
	status  int
	bytes   int64
	flushes int
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *statusWriter) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if !ok {
		return
	}
	w.flushes++
	flusher.Flush()
}

// withRequestLogging tags each request with an id, puts a logger carrying it
// on the request context and logs one line when the handler returns.
func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		logger := pslog.Ctx(r.Context()).With("request", requestID)
		w.Header().Set(RequestIDHeader, requestID)

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r.WithContext(pslog.ContextWithLogger(r.Context(), logger)))

		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", sw.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if sw.flushes > 0 {
			fields = append(fields, "flushes", sw.flushes)
		}
		if status >= http.StatusInternalServerError {
			logger.Warn("http request", fields...)
			return
		}
		logger.Info("http request", fields...)
		logger.Debug("http request details", "remote", r.RemoteAddr, "ua", r.UserAgent())
	})
}
