package models

// Format id sentinels agreed upon with the backend. They are opaque tokens:
// the proxy only uses them as defaults and never interprets them.
const (
	FormatDirect = "direct" // default for query-parameter downloads
	FormatBest   = "best"   // default for JSON-body downloads
)

// DownloadRequest holds the parameters of one download attempt
type DownloadRequest struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id"`
}

// WithDefaultFormat returns a copy of the request with FormatID set to def when empty.
func (r DownloadRequest) WithDefaultFormat(def string) DownloadRequest {
	if r.FormatID == "" {
		r.FormatID = def
	}
	return r
}
