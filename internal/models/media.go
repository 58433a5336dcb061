package models

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Format is one downloadable variant advertised by the backend.
// ID is opaque and must be sent back to the backend verbatim.
type Format struct {
	ID       string `json:"id"`
	Ext      string `json:"ext"`
	Quality  string `json:"quality"`
	Filesize *int64 `json:"filesize"` // nil when the backend does not know the size
}

// SizeLabel renders the filesize for display. An unknown size is never shown as zero bytes.
func (f Format) SizeLabel() string {
	if f.Filesize == nil {
		return "unknown"
	}
	return humanize.Bytes(uint64(*f.Filesize))
}

// MediaDescriptor is the metadata the backend resolves for a pasted link
type MediaDescriptor struct {
	Title     string   `json:"title"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Duration  *float64 `json:"duration"` // seconds
	Platform  string   `json:"platform"`
	IsDirect  bool     `json:"is_direct"`
	Formats   []Format `json:"formats"`
	Uploader  string   `json:"uploader,omitempty"`
	ViewCount *int64   `json:"view_count"`
}

// FindFormat returns the format with the given id.
func (m *MediaDescriptor) FindFormat(id string) (Format, bool) {
	for _, f := range m.Formats {
		if f.ID == id {
			return f, true
		}
	}
	return Format{}, false
}

// DurationLabel formats the duration as m:ss or h:mm:ss, or "" when unknown.
func (m *MediaDescriptor) DurationLabel() string {
	if m.Duration == nil || *m.Duration <= 0 {
		return ""
	}
	total := int(*m.Duration)
	hours, minutes, seconds := total/3600, (total%3600)/60, total%60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
