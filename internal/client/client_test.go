package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/linkdrop/linkdrop/internal/apperrors"
	"github.com/linkdrop/linkdrop/internal/config"
	"github.com/linkdrop/linkdrop/internal/models"
	"github.com/linkdrop/linkdrop/internal/testutil"
)

func newTestClient(t *testing.T, origin string) Client {
	t.Helper()
	testConfig := &config.Config{
		InfoTimeout:     "5s",
		DownloadTimeout: "10s",
	}
	c, err := NewClient(testConfig, origin)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestResolveBackendOrigin(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"full origin", "http://localhost:8000", "http://localhost:8000", false},
		{"trailing slash", "https://api.example.com/", "https://api.example.com", false},
		{"bare host gets https", "api.example.com", "https://api.example.com", false},
		{"bare host with port", "media.internal:8000", "https://media.internal:8000", false},
		{"path prefix kept", "https://example.com/backend/", "https://example.com/backend", false},
		{"surrounding whitespace", "  http://localhost:8000  ", "http://localhost:8000", false},
		{"empty", "", "", true},
		{"scheme only", "http://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveBackendOrigin(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got origin %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestNewClient_InvalidOrigin(t *testing.T) {
	if _, err := NewClient(&config.Config{}, ""); err == nil {
		t.Fatal("Expected error for empty origin")
	}
}

func TestClient_FetchInfo(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := newTestClient(t, backend.URL())

	info, err := c.FetchInfo(context.Background(), "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("FetchInfo failed: %v", err)
	}

	if info.Title != "Sample Clip" {
		t.Errorf("Expected title 'Sample Clip', got %q", info.Title)
	}
	if len(info.Formats) != 2 {
		t.Fatalf("Expected 2 formats, got %d", len(info.Formats))
	}
	if info.Formats[1].Filesize != nil {
		t.Errorf("Expected unknown filesize to stay nil, got %d", *info.Formats[1].Filesize)
	}

	call := backend.LastCall()
	if call.Method != http.MethodPost || call.Path != InfoPath {
		t.Errorf("Expected POST %s, got %s %s", InfoPath, call.Method, call.Path)
	}
	if call.URL != "https://www.youtube.com/watch?v=abc" {
		t.Errorf("Expected url to be forwarded, got %q", call.URL)
	}
}

func TestClient_FetchInfo_NullFieldsAndMissingFormats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"title":"Direct file","thumbnail":null,"duration":null,"platform":"direct","is_direct":true,"formats":null,"view_count":null}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	info, err := c.FetchInfo(context.Background(), "https://cdn.example.com/a.mp4")
	if err != nil {
		t.Fatalf("FetchInfo failed: %v", err)
	}
	if !info.IsDirect {
		t.Error("Expected is_direct to be true")
	}
	if info.Duration != nil {
		t.Error("Expected duration to be nil")
	}
	if info.Formats == nil || len(info.Formats) != 0 {
		t.Errorf("Expected empty, non-nil formats, got %#v", info.Formats)
	}
}

func TestClient_FetchInfo_BackendDetail(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.InfoStatus = http.StatusBadRequest
	backend.InfoBody = `{"detail":"Could not fetch URL info: Unsupported URL"}`
	c := newTestClient(t, backend.URL())

	_, err := c.FetchInfo(context.Background(), "https://example.com/nothing")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var statusErr *apperrors.ErrUpstreamStatus
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected ErrUpstreamStatus, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", statusErr.StatusCode)
	}
	if statusErr.Detail != "Could not fetch URL info: Unsupported URL" {
		t.Errorf("Expected backend detail, got %q", statusErr.Detail)
	}
}

func TestClient_FetchInfo_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	origin := server.URL
	server.Close()

	c := newTestClient(t, origin)
	_, err := c.FetchInfo(context.Background(), "https://example.com/v")
	if !errors.Is(err, &apperrors.ErrUpstreamUnavailable{}) {
		t.Fatalf("Expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestClient_Download_QueryMode(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.Payload = []byte("hello")
	c := newTestClient(t, backend.URL())

	resp, err := c.Download(context.Background(), models.DownloadRequest{URL: "https://example.com/a b", FormatID: "direct"}, ModeQuery)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	defer resp.Body.Close()

	call := backend.LastCall()
	if call.Method != http.MethodGet {
		t.Errorf("Expected GET, got %s", call.Method)
	}
	if call.URL != "https://example.com/a b" || call.FormatID != "direct" {
		t.Errorf("Expected query parameters to round-trip, got url=%q format_id=%q", call.URL, call.FormatID)
	}
}

func TestClient_Download_JSONMode(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.Payload = []byte("hello")
	c := newTestClient(t, backend.URL())

	resp, err := c.Download(context.Background(), models.DownloadRequest{URL: "https://example.com/v", FormatID: "22"}, ModeJSON)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	defer resp.Body.Close()

	call := backend.LastCall()
	if call.Method != http.MethodPost {
		t.Errorf("Expected POST, got %s", call.Method)
	}
	if call.FormatID != "22" {
		t.Errorf("Expected format_id 22 in JSON body, got %q", call.FormatID)
	}
}

func TestClient_OpenStream(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.Payload = testutil.Payload(10_000)
	backend.ContentType = "video/mp4"
	backend.ContentDisposition = `attachment; filename="clip.mp4"`
	c := newTestClient(t, backend.URL())

	stream, err := c.OpenStream(context.Background(), models.DownloadRequest{URL: "https://example.com/v"})
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer stream.Body.Close()

	if backend.LastCall().FormatID != models.FormatBest {
		t.Errorf("Expected default format %q, got %q", models.FormatBest, backend.LastCall().FormatID)
	}
	if stream.ContentLength != 10_000 {
		t.Errorf("Expected content length 10000, got %d", stream.ContentLength)
	}
	if stream.ContentType != "video/mp4" {
		t.Errorf("Expected content type video/mp4, got %q", stream.ContentType)
	}
	body, _ := io.ReadAll(stream.Body)
	if len(body) != 10_000 {
		t.Errorf("Expected 10000 bytes, got %d", len(body))
	}
}

func TestClient_OpenStream_UnknownLength(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.Payload = testutil.Payload(5000)
	backend.OmitLength = true
	c := newTestClient(t, backend.URL())

	stream, err := c.OpenStream(context.Background(), models.DownloadRequest{URL: "https://example.com/v"})
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer stream.Body.Close()

	if stream.LengthKnown() {
		t.Errorf("Expected unknown length, got %d", stream.ContentLength)
	}
}

func TestClient_OpenStream_Empty(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	c := newTestClient(t, backend.URL())

	_, err := c.OpenStream(context.Background(), models.DownloadRequest{URL: "https://example.com/v"})
	if !errors.Is(err, &apperrors.ErrEmptyStream{}) {
		t.Fatalf("Expected ErrEmptyStream, got %v", err)
	}
}

func TestClient_OpenStream_EmptyChunked(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.OmitLength = true
	c := newTestClient(t, backend.URL())

	_, err := c.OpenStream(context.Background(), models.DownloadRequest{URL: "https://example.com/v"})
	if !errors.Is(err, &apperrors.ErrEmptyStream{}) {
		t.Fatalf("Expected ErrEmptyStream, got %v", err)
	}
}

func TestClient_OpenStream_UnknownLengthKeepsEveryByte(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.Payload = testutil.Payload(5000)
	backend.ChunkSize = 1
	backend.OmitLength = true
	c := newTestClient(t, backend.URL())

	stream, err := c.OpenStream(context.Background(), models.DownloadRequest{URL: "https://example.com/v"})
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer stream.Body.Close()

	body, err := io.ReadAll(stream.Body)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if !bytes.Equal(body, backend.Payload) {
		t.Errorf("Expected %d identical bytes, got %d", len(backend.Payload), len(body))
	}
}

func TestPeekBody(t *testing.T) {
	tests := []struct {
		name          string
		body          io.ReadCloser
		contentLength int64
		expectEmpty   bool
	}{
		{"no body", http.NoBody, -1, true},
		{"declared zero", io.NopCloser(strings.NewReader("")), 0, true},
		{"unknown and empty", io.NopCloser(strings.NewReader("")), -1, true},
		{"unknown with data", io.NopCloser(strings.NewReader("abc")), -1, false},
		{"known with data", io.NopCloser(strings.NewReader("abc")), 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, empty := PeekBody(&http.Response{Body: tt.body, ContentLength: tt.contentLength})
			if empty != tt.expectEmpty {
				t.Fatalf("Expected empty=%v, got %v", tt.expectEmpty, empty)
			}
			if empty {
				return
			}
			data, _ := io.ReadAll(body)
			if string(data) != "abc" {
				t.Errorf("Expected peeked byte replayed, got %q", data)
			}
		})
	}
}

func TestClient_OpenStream_NotFound(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.DownloadStatus = http.StatusNotFound
	backend.DownloadBody = "not found"
	c := newTestClient(t, backend.URL())

	_, err := c.OpenStream(context.Background(), models.DownloadRequest{URL: "https://example.com/v"})
	var statusErr *apperrors.ErrUpstreamStatus
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected ErrUpstreamStatus, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound || statusErr.Body != "not found" {
		t.Errorf("Expected 404 'not found', got %d %q", statusErr.StatusCode, statusErr.Body)
	}
	if statusErr.Detail != "" {
		t.Errorf("Expected no detail for a plain-text body, got %q", statusErr.Detail)
	}
}

func TestClient_DirectLink(t *testing.T) {
	c := newTestClient(t, "http://localhost:8080/")

	link := c.DirectLink(models.DownloadRequest{URL: "https://example.com/v?id=1&t=2"})
	expected := "http://localhost:8080/dl?format_id=direct&url=https%3A%2F%2Fexample.com%2Fv%3Fid%3D1%26t%3D2"
	if link != expected {
		t.Errorf("Expected %q, got %q", expected, link)
	}
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	backend.InfoStatus = http.StatusInternalServerError
	backend.InfoBody = `{"detail":"boom"}`

	testConfig := &config.Config{InfoTimeout: "5s", DownloadTimeout: "5s"}
	testConfig.CircuitBreaker.Enabled = true
	testConfig.CircuitBreaker.FailureThreshold = 2
	testConfig.CircuitBreaker.Delay = "1m"
	c, err := NewClient(testConfig, backend.URL())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.FetchInfo(ctx, "https://example.com/v"); !errors.Is(err, &apperrors.ErrUpstreamStatus{}) {
			t.Fatalf("Call %d: expected ErrUpstreamStatus, got %v", i, err)
		}
	}

	_, err = c.FetchInfo(ctx, "https://example.com/v")
	if !errors.Is(err, &apperrors.ErrUpstreamUnavailable{}) {
		t.Fatalf("Expected ErrUpstreamUnavailable once the breaker is open, got %v", err)
	}
	if !errors.Is(err, circuitbreaker.ErrOpen) {
		t.Errorf("Expected error to wrap circuitbreaker.ErrOpen, got %v", err)
	}
	if got := len(backend.Calls()); got != 2 {
		t.Errorf("Expected backend to see 2 calls, got %d", got)
	}
}

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"string detail", `{"detail":"Download failed: HTTP Error 403"}`, "Download failed: HTTP Error 403"},
		{"list detail", `{"detail":[{"loc":["body","url"],"msg":"field required"}]}`, `[{"loc":["body","url"],"msg":"field required"}]`},
		{"null detail", `{"detail":null}`, ""},
		{"no detail", `{"error":"x"}`, ""},
		{"plain text", "not found", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDetail([]byte(tt.body)); got != tt.expected {
				t.Errorf("ParseDetail(%q) = %q, expected %q", tt.body, got, tt.expected)
			}
		})
	}
}

func TestStatusError_DecodesCharset(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusBadGateway,
		Header:     http.Header{"Content-Type": []string{"text/plain; charset=iso-8859-1"}},
		Body:       io.NopCloser(strings.NewReader("d\xe9j\xe0 vu")),
	}

	err := statusError(resp)
	if err.Body != "déjà vu" {
		t.Errorf("Expected body decoded to UTF-8, got %q", err.Body)
	}
}
