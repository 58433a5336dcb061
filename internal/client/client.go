package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/failsafehttp"

	"github.com/linkdrop/linkdrop/internal/apperrors"
	"github.com/linkdrop/linkdrop/internal/config"
	"github.com/linkdrop/linkdrop/internal/models"
)

// Backend endpoint paths, relative to the origin.
const (
	InfoPath     = "/api/info"
	DownloadPath = "/api/download"
)

const (
	defaultInfoTimeout     = 30 * time.Second
	defaultDownloadTimeout = 5 * time.Minute
)

// DownloadMode selects how a download request is encoded for the backend.
type DownloadMode int

const (
	// ModeQuery sends GET {origin}/api/download?url=...&format_id=...
	ModeQuery DownloadMode = iota
	// ModeJSON sends POST {origin}/api/download with a JSON body.
	ModeJSON
)

// Client talks to a media backend exposing /api/info and /api/download.
// The proxy points it at the extraction backend; the CLI points it at the proxy.
type Client interface {
	// Info forwards a raw JSON body to /api/info and returns the backend response untouched.
	Info(ctx context.Context, body io.Reader) (*http.Response, error)
	// FetchInfo resolves a media URL to its descriptor.
	FetchInfo(ctx context.Context, mediaURL string) (*models.MediaDescriptor, error)
	// Download issues the download call and returns the backend response untouched.
	Download(ctx context.Context, req models.DownloadRequest, mode DownloadMode) (*http.Response, error)
	// OpenStream starts a download and returns its body once the backend accepted it.
	OpenStream(ctx context.Context, req models.DownloadRequest) (*models.StreamedResponse, error)
	// DirectLink builds a URL that starts the download when opened in a browser.
	DirectLink(req models.DownloadRequest) string
	// Origin returns the normalized origin the client talks to.
	Origin() string
	// DownloadTransport is the round tripper used for download calls, for callers
	// that proxy /api/download themselves.
	DownloadTransport() http.RoundTripper

	Close() error
}

type client struct {
	infoClient     *http.Client
	downloadClient *http.Client
	origin         string
}

// ResolveBackendOrigin normalizes a configured backend location. Bare hosts get an
// https scheme and trailing slashes are dropped so endpoint paths can be appended.
func ResolveBackendOrigin(raw string) (string, error) {
	origin := strings.TrimSpace(raw)
	if origin == "" {
		return "", errors.New("backend origin is empty")
	}
	if !strings.Contains(origin, "://") {
		origin = "https://" + origin
	}
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid backend origin %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid backend origin %q: missing host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}

// NewClient creates a client for origin using the timeouts, outbound proxy and
// circuit breaker settings from cfg.
func NewClient(cfg *config.Config, origin string) (Client, error) {
	resolved, err := ResolveBackendOrigin(origin)
	if err != nil {
		return nil, err
	}

	logger := config.GetLogger()
	infoTimeout := parseTimeout(cfg.InfoTimeout, defaultInfoTimeout, "info_timeout")
	downloadTimeout := parseTimeout(cfg.DownloadTimeout, defaultDownloadTimeout, "download_timeout")

	// Clone DefaultTransport to keep its pooling, HTTP/2 and dial timeouts
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyConnectionString != "" {
		proxyURL, err := url.Parse(cfg.ProxyConnectionString)
		if err != nil {
			logger.Warn().Err(err).Str("proxy", cfg.ProxyConnectionString).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			baseTransport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	// Media bytes must arrive exactly as the backend sent them
	downloadTransport := baseTransport.Clone()
	downloadTransport.DisableCompression = true

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.GetUserAgent()
	}

	var infoTransport http.RoundTripper = newBackendTransport(baseTransport, "info", userAgent, true)
	if cfg.CircuitBreaker.Enabled {
		infoTransport = newBreakerTransport(infoTransport, cfg.CircuitBreaker.FailureThreshold,
			parseTimeout(cfg.CircuitBreaker.Delay, 30*time.Second, "circuit_breaker.delay"))
	}

	return &client{
		infoClient: &http.Client{
			Timeout:   infoTimeout,
			Transport: infoTransport,
		},
		downloadClient: &http.Client{
			Timeout:   downloadTimeout,
			Transport: newBackendTransport(downloadTransport, "download", userAgent, false),
		},
		origin: resolved,
	}, nil
}

func parseTimeout(value string, fallback time.Duration, key string) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logger := config.GetLogger()
		logger.Warn().Err(err).Str(key, value).Dur("default", fallback).Msg("Invalid duration, using default")
		return fallback
	}
	return parsed
}

// newBreakerTransport trips after threshold consecutive network errors or 5xx answers.
func newBreakerTransport(next http.RoundTripper, threshold uint, delay time.Duration) http.RoundTripper {
	if threshold == 0 {
		threshold = 5
	}
	logger := config.GetLogger()
	breaker := circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			return err != nil || (resp != nil && resp.StatusCode >= http.StatusInternalServerError)
		}).
		WithFailureThreshold(threshold).
		WithDelay(delay).
		OnOpen(func(circuitbreaker.StateChangedEvent) {
			logger.Warn().Dur("delay", delay).Msg("Backend circuit breaker opened")
		}).
		OnClose(func(circuitbreaker.StateChangedEvent) {
			logger.Info().Msg("Backend circuit breaker closed")
		}).
		Build()
	return failsafehttp.NewRoundTripper(next, breaker)
}

func (c *client) Origin() string {
	return c.origin
}

func (c *client) DownloadTransport() http.RoundTripper {
	return c.downloadClient.Transport
}

// Close drops idle keep-alive connections of both transports.
func (c *client) Close() error {
	c.infoClient.CloseIdleConnections()
	c.downloadClient.CloseIdleConnections()
	return nil
}

// do executes req and maps transport failures to ErrUpstreamUnavailable.
// Cancellation by the caller is returned as the context error.
func do(ctx context.Context, hc *http.Client, req *http.Request, endpoint string) (*http.Response, error) {
	resp, err := hc.Do(req)
	if err == nil {
		return resp, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, apperrors.NewUpstreamUnavailableError(endpoint, circuitbreaker.ErrOpen)
	}
	return nil, apperrors.NewUpstreamUnavailableError(endpoint, err)
}
