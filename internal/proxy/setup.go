package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/rs/zerolog"

	"github.com/linkdrop/linkdrop/internal/client"
	"github.com/linkdrop/linkdrop/internal/config"
)

// NewHandler wires the LinkDrop HTTP surface around c:
//
//	GET  /api/health
//	POST /api/info
//	GET  /api/download   (query form, attachment headers)
//	POST /api/download   (JSON form)
//	GET  /dl             (reverse proxy straight to the backend download endpoint)
//
// Every route runs behind RequestLogger, and behind Sentry when it is initialised.
func NewHandler(c client.Client) (http.Handler, error) {
	s := newServer(c)

	directLink, err := newDirectLinkProxy(c.Origin(), c.DownloadTransport())
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/info", s.handleInfo)
	mux.HandleFunc("GET /api/download", s.handleDownloadQuery)
	mux.HandleFunc("POST /api/download", s.handleDownloadJSON)
	mux.Handle("GET /dl", directLink)

	var handler http.Handler = RequestLogger(config.GetLogger())(mux)
	if sentry.CurrentHub().Client() != nil {
		handler = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(handler)
	}
	return handler, nil
}

// newDirectLinkProxy forwards /dl?... to {origin}/api/download?... without touching
// the query string or the backend's response headers.
func newDirectLinkProxy(origin string, transport http.RoundTripper) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid backend origin %q: %w", origin, err)
	}
	downloadPath := strings.TrimRight(target.Path, "/") + client.DownloadPath

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = downloadPath
			pr.Out.URL.RawPath = ""
			pr.Out.URL.RawQuery = pr.In.URL.RawQuery
		},
		Transport:     transport,
		FlushInterval: -1,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if r.Context().Err() != nil {
				return
			}
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Direct link proxy failed")
			writeDetail(w, http.StatusBadGateway, fmt.Sprintf("Backend unavailable: %v", err))
		},
	}, nil
}

// NewHTTPServer creates the public server. WriteTimeout stays unset; the backend
// download call carries its own deadline.
func NewHTTPServer(address string, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", address, port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
