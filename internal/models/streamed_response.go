package models

import "io"

// StreamedResponse is an in-flight download body with the headers that describe it.
// Body is consumed exactly once and must be closed by the reader.
type StreamedResponse struct {
	ContentType        string
	ContentDisposition string
	ContentLength      int64 // -1 when the backend did not announce a length
	Body               io.ReadCloser
}

// LengthKnown reports whether the backend announced a content length.
func (s *StreamedResponse) LengthKnown() bool {
	return s.ContentLength >= 0
}
