package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/linkdrop/linkdrop/internal/apperrors"
	"github.com/linkdrop/linkdrop/internal/models"
)

func (c *client) Download(ctx context.Context, dr models.DownloadRequest, mode DownloadMode) (*http.Response, error) {
	var (
		req *http.Request
		err error
	)
	switch mode {
	case ModeJSON:
		payload, encErr := json.Marshal(dr)
		if encErr != nil {
			return nil, fmt.Errorf("failed to encode download request: %w", encErr)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.origin+DownloadPath, bytes.NewReader(payload))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	default:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.origin+DownloadPath+"?"+downloadQuery(dr), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	return do(ctx, c.downloadClient, req, DownloadPath)
}

// OpenStream posts dr (format defaulting to "best") and returns the body once the
// backend answered with a non-empty success. The caller owns Body.
func (c *client) OpenStream(ctx context.Context, dr models.DownloadRequest) (*models.StreamedResponse, error) {
	dr = dr.WithDefaultFormat(models.FormatBest)

	resp, err := c.Download(ctx, dr, ModeJSON)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}
	body, empty := PeekBody(resp)
	if empty {
		if body != nil {
			_ = body.Close()
		}
		return nil, &apperrors.ErrEmptyStream{URL: dr.URL}
	}

	return &models.StreamedResponse{
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		ContentLength:      resp.ContentLength,
		Body:               body,
	}, nil
}

// DirectLink points at the proxy's /dl shortcut, format defaulting to "direct".
func (c *client) DirectLink(dr models.DownloadRequest) string {
	return c.origin + "/dl?" + downloadQuery(dr.WithDefaultFormat(models.FormatDirect))
}

func downloadQuery(dr models.DownloadRequest) string {
	q := url.Values{}
	q.Set("url", dr.URL)
	if dr.FormatID != "" {
		q.Set("format_id", dr.FormatID)
	}
	return q.Encode()
}
