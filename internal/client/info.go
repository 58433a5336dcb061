package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/linkdrop/linkdrop/internal/models"
)

func (c *client) Info(ctx context.Context, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.origin+InfoPath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create info request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return do(ctx, c.infoClient, req, InfoPath)
}

func (c *client) FetchInfo(ctx context.Context, mediaURL string) (*models.MediaDescriptor, error) {
	payload, err := json.Marshal(struct {
		URL string `json:"url"`
	}{URL: mediaURL})
	if err != nil {
		return nil, fmt.Errorf("failed to encode info request: %w", err)
	}

	resp, err := c.Info(ctx, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}
	defer resp.Body.Close()

	var descriptor models.MediaDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&descriptor); err != nil {
		return nil, fmt.Errorf("failed to decode media info: %w", err)
	}
	if descriptor.Formats == nil {
		descriptor.Formats = []models.Format{}
	}
	return &descriptor, nil
}
