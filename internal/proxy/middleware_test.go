package proxy

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/linkdrop/linkdrop/internal/metrics"
)

func TestRequestLogger_AttachesLogger(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside handler")
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}
	requestID := rec.Header().Get("X-Request-Id")
	if requestID == "" {
		t.Fatal("Expected X-Request-Id header")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected handler and completion log lines, got %d: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "inside handler") || !strings.Contains(lines[0], requestID) {
		t.Errorf("Expected handler log line to carry the request id, got %s", lines[0])
	}
	if !strings.Contains(lines[1], `"status":"204"`) {
		t.Errorf("Expected completion line with status, got %s", lines[1])
	}
}

func TestRequestLogger_RecoversPanics(t *testing.T) {
	handler := RequestLogger(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Expected JSON error body, got %q", rec.Header().Get("Content-Type"))
	}
}

func TestRequestLogger_RepanicsAbort(t *testing.T) {
	handler := RequestLogger(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("Expected http.ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Error("Expected ServeHTTP to panic")
}

func TestRequestLogger_CountsRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /counted", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	handler := RequestLogger(zerolog.Nop())(mux)

	counter := metrics.RequestsTotal.WithLabelValues("GET /counted", "202")
	before := testutil.ToFloat64(counter)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/counted", nil))

	if after := testutil.ToFloat64(counter); after != before+1 {
		t.Errorf("Expected request counter to increment by 1, got diff %.0f", after-before)
	}
}

func TestStatusWriter_Unwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}

	if err := http.NewResponseController(sw).Flush(); err != nil {
		t.Errorf("Expected Flush to reach the underlying writer, got %v", err)
	}
	if !rec.Flushed {
		t.Error("Expected recorder to be flushed")
	}
}
