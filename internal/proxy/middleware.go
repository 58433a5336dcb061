package proxy

import (
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/linkdrop/linkdrop/internal/metrics"
)

// statusWriter remembers the status code and body size of a response.
// Unwrap lets http.ResponseController reach the underlying writer for Flush.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sw *statusWriter) WriteHeader(status int) {
	if sw.status == 0 {
		sw.status = status
	}
	sw.ResponseWriter.WriteHeader(status)
}

func (sw *statusWriter) Write(p []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	n, err := sw.ResponseWriter.Write(p)
	sw.bytes += int64(n)
	return n, err
}

func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

func (sw *statusWriter) Status() int {
	if sw.status == 0 {
		return http.StatusOK
	}
	return sw.status
}

// routeLabel is the mux pattern that matched r, used as a metric label.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}

// RequestLogger attaches a request-scoped zerolog logger with a request id,
// recovers handler panics and records request metrics.
//
// http.ErrAbortHandler is re-panicked so net/http tears the connection down.
func RequestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()

			reqLogger := base.With().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Logger()

			req := r.WithContext(reqLogger.WithContext(r.Context()))
			wrapped := &statusWriter{ResponseWriter: w}
			wrapped.Header().Set("X-Request-Id", requestID)

			defer func() {
				rec := recover()
				status := wrapped.Status()
				if rec == http.ErrAbortHandler {
					status = 0
				} else if rec != nil {
					reqLogger.Error().Interface("panic", rec).Msg("Panic recovered")
					if hub := sentry.GetHubFromContext(req.Context()); hub != nil {
						hub.RecoverWithContext(req.Context(), rec)
					}
					if wrapped.status == 0 {
						writeDetail(wrapped, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
					}
					status = http.StatusInternalServerError
				}

				statusLabel := "aborted"
				if status != 0 {
					statusLabel = strconv.Itoa(status)
				}
				metrics.RequestsTotal.WithLabelValues(routeLabel(req), statusLabel).Inc()
				reqLogger.Info().
					Str("route", routeLabel(req)).
					Str("status", statusLabel).
					Int64("bytes", wrapped.bytes).
					Dur("duration", time.Since(start)).
					Msg("Request completed")

				if rec == http.ErrAbortHandler {
					panic(rec)
				}
			}()

			next.ServeHTTP(wrapped, req)
		})
	}
}
