package client

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/linkdrop/linkdrop/internal/apperrors"
)

// MaxErrorBodySize bounds how much of a non-success backend body is read.
const MaxErrorBodySize = 1 << 20

// statusError drains a non-success response into an ErrUpstreamStatus.
// The body is decoded to UTF-8 using the charset announced in Content-Type.
func statusError(resp *http.Response) *apperrors.ErrUpstreamStatus {
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, MaxErrorBodySize)
	reader, err := charset.NewReader(limited, resp.Header.Get("Content-Type"))
	if err != nil {
		reader = limited
	}
	data, _ := io.ReadAll(reader)
	body := string(data)

	return &apperrors.ErrUpstreamStatus{
		StatusCode: resp.StatusCode,
		Detail:     ParseDetail(data),
		Body:       body,
	}
}

// ParseDetail extracts the "detail" field of a backend error body.
// Non-string details (validation error lists) are returned as compact JSON.
func ParseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}
	if string(payload.Detail) == "null" {
		return ""
	}
	return string(payload.Detail)
}
