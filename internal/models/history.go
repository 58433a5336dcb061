package models

import "time"

// HistoryRecord is a completed download kept for later recall
type HistoryRecord struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Platform  string `json:"platform"`
	Filename  string `json:"filename"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// CompletedAt returns the completion time of the download.
func (h HistoryRecord) CompletedAt() time.Time {
	return time.UnixMilli(h.Timestamp)
}
