package client

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"

	"github.com/linkdrop/linkdrop/internal/metrics"
)

const acceptedEncodings = "gzip, br, zstd"

// backendTransport stamps every backend call with the LinkDrop User-Agent and
// records how long the backend took to answer. When decompress is set it also
// negotiates gzip, brotli or zstd and hands callers a plain body.
//
// The download transport leaves decompress off: media bytes are relayed
// untouched so the backend's Content-Length stays valid.
type backendTransport struct {
	next       http.RoundTripper
	endpoint   string
	userAgent  string
	decompress bool
}

func newBackendTransport(next http.RoundTripper, endpoint, userAgent string, decompress bool) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &backendTransport{
		next:       next,
		endpoint:   endpoint,
		userAgent:  userAgent,
		decompress: decompress,
	}
}

func (t *backendTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = cloneRequest(req)
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if t.decompress && req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", acceptedEncodings)
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		metrics.UpstreamErrorsTotal.WithLabelValues(t.endpoint).Inc()
		return nil, err
	}
	metrics.UpstreamRequestDuration.WithLabelValues(t.endpoint).Observe(time.Since(start).Seconds())

	if !t.decompress || resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}
	return decodeBody(resp)
}

// decodeBody swaps resp.Body for a decompressing reader matching Content-Encoding.
// Unknown encodings are passed through as-is.
func decodeBody(resp *http.Response) (*http.Response, error) {
	var (
		reader io.ReadCloser
		err    error
	)
	switch parseContentEncoding(resp.Header.Get("Content-Encoding")) {
	case "":
		return resp, nil
	case "gzip":
		reader, err = gzip.NewReader(resp.Body)
	case "br":
		reader = io.NopCloser(brotli.NewReader(resp.Body))
	case "zstd":
		var zr *zstd.Decoder
		zr, err = zstd.NewReader(resp.Body)
		if err == nil {
			reader = zr.IOReadCloser()
		}
	default:
		return resp, nil
	}
	if err != nil {
		resp.Body.Close()
		return nil, err
	}

	resp.Body = &decompressReadCloser{reader: reader, originalBody: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	return resp, nil
}

// decompressReadCloser closes both the decompressor and the wire body.
type decompressReadCloser struct {
	reader       io.ReadCloser
	originalBody io.ReadCloser
}

func (d *decompressReadCloser) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

func (d *decompressReadCloser) Close() error {
	readerErr := d.reader.Close()
	bodyErr := d.originalBody.Close()
	if readerErr != nil {
		return readerErr
	}
	return bodyErr
}

func cloneRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = req.Header.Clone()
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	return r
}

// parseContentEncoding returns the outermost coding of a Content-Encoding list, lowercased.
func parseContentEncoding(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.Split(header, ",")
	return strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
}
