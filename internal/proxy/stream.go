package proxy

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/linkdrop/linkdrop/internal/metrics"
)

// chunkSize is the read size used when relaying download bodies.
const chunkSize = 64 * 1024

// streamBody copies body to w one chunk at a time, flushing after every write so
// the client sees bytes as soon as the backend produces them.
//
// If the client goes away the loop stops and the caller's deferred Close releases
// the backend connection. If the backend fails mid-body the handler panics with
// http.ErrAbortHandler so the client sees a broken transfer instead of a short file.
func streamBody(w http.ResponseWriter, r *http.Request, body io.Reader, route string) int64 {
	logger := zerolog.Ctx(r.Context())
	rc := http.NewResponseController(w)
	buf := make([]byte, chunkSize)
	bytesOut := metrics.StreamedBytesTotal.WithLabelValues(route)

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	var written int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				metrics.StreamAbortsTotal.WithLabelValues(metrics.AbortClientGone).Inc()
				logger.Debug().Err(err).Int64("bytes", written).Msg("Client went away during download")
				return written
			}
			written += int64(n)
			bytesOut.Add(float64(n))
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				metrics.StreamAbortsTotal.WithLabelValues(metrics.AbortClientGone).Inc()
				logger.Debug().Err(err).Int64("bytes", written).Msg("Client went away during download")
				return written
			}
		}

		if readErr == io.EOF {
			return written
		}
		if readErr != nil {
			if r.Context().Err() != nil {
				metrics.StreamAbortsTotal.WithLabelValues(metrics.AbortClientGone).Inc()
				logger.Debug().Int64("bytes", written).Msg("Download cancelled by client")
				return written
			}
			metrics.StreamAbortsTotal.WithLabelValues(metrics.AbortUpstreamRead).Inc()
			logger.Error().Err(readErr).Int64("bytes", written).Msg("Backend failed mid-stream, aborting response")
			panic(http.ErrAbortHandler)
		}
	}
}
