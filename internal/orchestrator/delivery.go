package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/linkdrop/linkdrop/internal/config"
	"github.com/linkdrop/linkdrop/internal/models"
)

const (
	DeliveryStream = "stream"
	DeliveryLink   = "link"

	readChunkSize = 64 * 1024
)

// Result describes a finished delivery. Path and Bytes are set for streamed
// downloads, Link and Copied for link deliveries.
type Result struct {
	Delivery string
	Path     string
	Bytes    int64
	Link     string
	Copied   bool
}

type downloadJob struct {
	URL      string
	Title    string
	Platform string
	Format   models.Format
}

// Delivery is how a selected format reaches the user.
// Implementations are StreamDelivery and LinkDelivery.
type Delivery interface {
	Name() string
	deliver(ctx context.Context, o *Orchestrator, job downloadJob) (*Result, error)
}

// DeliveryFor returns the delivery used in the given display mode.
func DeliveryFor(mode DisplayMode) Delivery {
	if mode == DisplayStandalone {
		return LinkDelivery{}
	}
	return StreamDelivery{}
}

// StreamDelivery pulls the file through the server and writes it to the download directory.
type StreamDelivery struct{}

// Name implements Delivery.
func (StreamDelivery) Name() string { return DeliveryStream }

func (StreamDelivery) deliver(ctx context.Context, o *Orchestrator, job downloadJob) (*Result, error) {
	stream, err := o.client.OpenStream(ctx, models.DownloadRequest{URL: job.URL, FormatID: job.Format.ID})
	if err != nil {
		return nil, err
	}
	defer func() { _ = stream.Body.Close() }()

	if err := os.MkdirAll(o.downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	filename := SanitizeFilename(job.Title, job.Format.Ext)
	tmp, err := os.CreateTemp(o.downloadDir, filename+".*.part")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	written, err := copyWithProgress(ctx, tmp, stream.Body, stream.ContentLength, o.reportProgress)
	if err != nil {
		return nil, err
	}
	if stream.LengthKnown() && written != stream.ContentLength {
		return nil, fmt.Errorf("download truncated: got %d of %d bytes", written, stream.ContentLength)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	finalPath := availablePath(filepath.Join(o.downloadDir, filename))
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, fmt.Errorf("move download into place: %w", err)
	}
	committed = true

	if o.history != nil {
		rec := models.HistoryRecord{
			URL:       job.URL,
			Title:     job.Title,
			Platform:  job.Platform,
			Filename:  filepath.Base(finalPath),
			Timestamp: o.now().UnixMilli(),
		}
		if err := o.history.Add(rec); err != nil {
			logger := config.GetLogger()
			logger.Warn().Err(err).Msg("Failed to record download history")
		}
	}

	return &Result{Delivery: DeliveryStream, Path: finalPath, Bytes: written}, nil
}

// LinkDelivery hands a direct download link to the system browser, falling back
// to the clipboard when no browser can be opened. It completes immediately.
type LinkDelivery struct{}

// Name implements Delivery.
func (LinkDelivery) Name() string { return DeliveryLink }

func (LinkDelivery) deliver(_ context.Context, o *Orchestrator, job downloadJob) (*Result, error) {
	link := o.client.DirectLink(models.DownloadRequest{URL: job.URL, FormatID: job.Format.ID})
	result := &Result{Delivery: DeliveryLink, Link: link}

	openErr := o.openURL(link)
	if openErr == nil {
		return result, nil
	}

	logger := config.GetLogger()
	logger.Warn().Err(openErr).Msg("Could not open browser, copying link instead")
	if err := o.copyText(link); err != nil {
		return nil, errors.Join(fmt.Errorf("open link: %w", openErr), fmt.Errorf("copy link: %w", err))
	}
	result.Copied = true
	return result, nil
}

// copyWithProgress copies src to dst in fixed chunks and calls report after each one.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, report func(written, total int64)) (int64, error) {
	buf := make([]byte, readChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("write download: %w", err)
			}
			written += int64(n)
			report(written, total)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("read download: %w", readErr)
		}
	}
}

// availablePath returns path, or path with a numeric suffix when it already exists.
func availablePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := base + "_" + strconv.Itoa(i) + ext
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}
