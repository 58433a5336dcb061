package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/linkdrop/linkdrop/internal/models"
)

// BackendCall records one request received by a FakeBackend.
// This is a test helper and should not be used in production code.
type BackendCall struct {
	Method   string
	Path     string
	URL      string // "url" from the query or JSON body
	FormatID string // "format_id" from the query or JSON body
	Body     []byte
}

// FakeBackend is an httptest server speaking the backend protocol
// (/api/info and /api/download). Zero-valued fields select sensible defaults.
type FakeBackend struct {
	Server *httptest.Server

	// Info answers /api/info with this descriptor when InfoStatus is 0 or 200.
	Info       *models.MediaDescriptor
	InfoStatus int
	InfoBody   string // raw body used when InfoStatus is an error status

	// Payload is streamed by /api/download in ChunkSize pieces.
	Payload            []byte
	ChunkSize          int
	ChunkDelay         time.Duration
	ContentType        string
	ContentDisposition string
	OmitLength         bool // stream chunked without Content-Length, headers flushed first
	DownloadStatus     int
	DownloadBody       string // raw body used when DownloadStatus is an error status

	// Hold blocks /api/download after the first chunk until the request is cancelled.
	Hold bool
	// Released is closed once a held download observed its cancellation.
	Released chan struct{}

	mu    sync.Mutex
	calls []BackendCall
}

// NewFakeBackend starts a fake backend that is closed when the test ends.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{Released: make(chan struct{})}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/info", fb.handleInfo)
	mux.HandleFunc("/api/download", fb.handleDownload)
	fb.Server = httptest.NewServer(mux)
	t.Cleanup(fb.Server.Close)
	return fb
}

// URL returns the base URL of the fake backend.
func (fb *FakeBackend) URL() string {
	return fb.Server.URL
}

// Calls returns a copy of the requests received so far.
func (fb *FakeBackend) Calls() []BackendCall {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]BackendCall(nil), fb.calls...)
}

// LastCall returns the most recent request, or the zero value when none arrived.
func (fb *FakeBackend) LastCall() BackendCall {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.calls) == 0 {
		return BackendCall{}
	}
	return fb.calls[len(fb.calls)-1]
}

func (fb *FakeBackend) record(r *http.Request) BackendCall {
	body, _ := io.ReadAll(r.Body)
	call := BackendCall{
		Method:   r.Method,
		Path:     r.URL.Path,
		URL:      r.URL.Query().Get("url"),
		FormatID: r.URL.Query().Get("format_id"),
		Body:     body,
	}
	if len(body) > 0 {
		var req models.DownloadRequest
		if err := json.Unmarshal(body, &req); err == nil {
			call.URL = req.URL
			call.FormatID = req.FormatID
		}
	}
	fb.mu.Lock()
	fb.calls = append(fb.calls, call)
	fb.mu.Unlock()
	return call
}

func (fb *FakeBackend) handleInfo(w http.ResponseWriter, r *http.Request) {
	fb.record(r)
	if fb.InfoStatus != 0 && fb.InfoStatus != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fb.InfoStatus)
		_, _ = io.WriteString(w, fb.InfoBody)
		return
	}
	info := fb.Info
	if info == nil {
		info = SampleDescriptor()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}

func (fb *FakeBackend) handleDownload(w http.ResponseWriter, r *http.Request) {
	fb.record(r)
	if fb.DownloadStatus != 0 && fb.DownloadStatus != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fb.DownloadStatus)
		_, _ = io.WriteString(w, fb.DownloadBody)
		return
	}

	if fb.ContentType != "" {
		w.Header().Set("Content-Type", fb.ContentType)
	}
	if fb.ContentDisposition != "" {
		w.Header().Set("Content-Disposition", fb.ContentDisposition)
	}
	if !fb.OmitLength {
		w.Header().Set("Content-Length", strconv.Itoa(len(fb.Payload)))
	}
	w.WriteHeader(http.StatusOK)

	chunk := fb.ChunkSize
	if chunk <= 0 {
		chunk = 4096
	}
	flusher, _ := w.(http.Flusher)
	if fb.OmitLength && flusher != nil {
		// commits chunked encoding even when Payload is empty
		flusher.Flush()
	}
	for off := 0; off < len(fb.Payload); off += chunk {
		end := min(off+chunk, len(fb.Payload))
		if _, err := w.Write(fb.Payload[off:end]); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		if fb.Hold {
			<-r.Context().Done()
			close(fb.Released)
			return
		}
		if fb.ChunkDelay > 0 {
			select {
			case <-time.After(fb.ChunkDelay):
			case <-r.Context().Done():
				return
			}
		}
	}
}

// SampleDescriptor returns a media descriptor with two formats, one of unknown size.
func SampleDescriptor() *models.MediaDescriptor {
	size := int64(1500000)
	duration := 212.0
	return &models.MediaDescriptor{
		Title:    "Sample Clip",
		Duration: &duration,
		Platform: "youtube",
		IsDirect: false,
		Formats: []models.Format{
			{ID: "137", Ext: "mp4", Quality: "1080p", Filesize: &size},
			{ID: "140", Ext: "m4a", Quality: "audio only"},
		},
	}
}

// Payload returns n deterministic bytes.
func Payload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}
