package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/linkdrop/linkdrop/internal/apperrors"
	"github.com/linkdrop/linkdrop/internal/client"
	"github.com/linkdrop/linkdrop/internal/models"
)

// maxRequestBodySize bounds JSON bodies accepted from clients.
const maxRequestBodySize = 1 << 20

// server holds the HTTP handlers that relay requests to the backend.
type server struct {
	client client.Client
}

func newServer(c client.Client) *server {
	return &server{client: c}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo relays POST /api/info. Status and body come back exactly as the
// backend produced them.
func (s *server) handleInfo(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeDetail(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	resp, err := s.client.Info(r.Context(), bytes.NewReader(body))
	if err != nil {
		s.writeUpstreamError(w, r, err)
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.Warn().Err(err).Msg("Failed to relay info response")
	}
}

// handleDownloadQuery serves GET /api/download?url=...&format_id=..., the form
// browsers reach through a plain link.
func (s *server) handleDownloadQuery(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := models.DownloadRequest{
		URL:      query.Get("url"),
		FormatID: query.Get("format_id"),
	}.WithDefaultFormat(models.FormatDirect)

	s.relayDownload(w, r, req, client.ModeQuery, directHeaderRules)
}

// handleDownloadJSON serves POST /api/download with a {url, format_id} body.
func (s *server) handleDownloadJSON(w http.ResponseWriter, r *http.Request) {
	var req models.DownloadRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	// Reading to EOF lets net/http watch the connection and cancel r.Context on disconnect
	_, _ = io.Copy(io.Discard, body)

	s.relayDownload(w, r, req.WithDefaultFormat(models.FormatBest), client.ModeJSON, downloadHeaderRules)
}

func (s *server) relayDownload(w http.ResponseWriter, r *http.Request, req models.DownloadRequest, mode client.DownloadMode, rules []headerRule) {
	logger := zerolog.Ctx(r.Context()).With().
		Str("url", req.URL).
		Str("format_id", req.FormatID).
		Logger()

	resp, err := s.client.Download(r.Context(), req, mode)
	if err != nil {
		s.writeUpstreamError(w, r, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, client.MaxErrorBodySize))
		if err != nil {
			logger.Warn().Err(err).Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("Failed to read backend error body, relaying what arrived")
		}
		logger.Warn().Int("status", resp.StatusCode).Msg("Backend rejected download")
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(body)
		return
	}

	body, empty := client.PeekBody(resp)
	if empty {
		err := &apperrors.ErrEmptyStream{URL: req.URL}
		logger.Error().Err(err).Msg("Backend sent an empty download")
		writeDetail(w, http.StatusInternalServerError, "Backend returned an empty response")
		return
	}

	applyHeaderRules(w.Header(), resp.Header, rules)
	w.WriteHeader(resp.StatusCode)

	written := streamBody(w, r, body, routeLabel(r))
	logger.Debug().Int64("bytes", written).Msg("Download relayed")
}

// writeUpstreamError answers a failed backend call. A cancelled client gets nothing.
func (s *server) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())
	if errors.Is(err, context.Canceled) || r.Context().Err() != nil {
		logger.Debug().Err(err).Msg("Request cancelled before the backend answered")
		return
	}

	logger.Error().Err(err).Msg("Backend call failed")
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		writeDetail(w, http.StatusGatewayTimeout, "Backend timed out")
		return
	}
	writeDetail(w, http.StatusBadGateway, fmt.Sprintf("Backend unavailable: %v", err))
}
