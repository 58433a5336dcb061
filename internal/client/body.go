package client

import (
	"bufio"
	"errors"
	"io"
	"net/http"
)

// PeekBody reports whether a backend response carries no body bytes. A declared
// Content-Length of 0 counts as empty without reading. For an unknown length the
// first byte is peeked; the returned reader replays it and must be used in place
// of resp.Body. Closing it closes resp.Body.
func PeekBody(resp *http.Response) (io.ReadCloser, bool) {
	if resp.Body == nil || resp.Body == http.NoBody || resp.ContentLength == 0 {
		return resp.Body, true
	}

	br := bufio.NewReader(resp.Body)
	if _, err := br.Peek(1); errors.Is(err, io.EOF) {
		return resp.Body, true
	}
	// any other peek error is returned again by the first Read
	return &peekedBody{Reader: br, closer: resp.Body}, false
}

type peekedBody struct {
	*bufio.Reader
	closer io.Closer
}

func (b *peekedBody) Close() error {
	return b.closer.Close()
}
