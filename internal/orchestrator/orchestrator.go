// Package orchestrator drives the analyze, select and download workflow
// against a LinkDrop server on behalf of a user-facing front end.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/browser"

	"github.com/linkdrop/linkdrop/internal/apperrors"
	"github.com/linkdrop/linkdrop/internal/client"
	"github.com/linkdrop/linkdrop/internal/config"
	"github.com/linkdrop/linkdrop/internal/models"
)

const (
	infoFailedMessage     = "Failed to fetch media info"
	downloadFailedMessage = "Download failed"
)

// Recorder stores completed downloads.
type Recorder interface {
	Add(rec models.HistoryRecord) error
}

// Progress is reported while a download is being written to disk.
// Total and Percent are -1 when the server did not announce a length.
type Progress struct {
	Written int64
	Total   int64
	Percent int
}

// Indeterminate reports whether the download size is unknown.
func (p Progress) Indeterminate() bool {
	return p.Total < 0
}

// Options configures an Orchestrator. Client is required.
type Options struct {
	Client      client.Client
	History     Recorder
	DisplayMode DisplayMode
	DownloadDir string

	// OnProgress is called after every chunk written during a streamed download.
	OnProgress func(Progress)

	// OpenURL and CopyToClipboard default to the system browser and clipboard.
	OpenURL         func(url string) error
	CopyToClipboard func(text string) error

	Now func() time.Time
}

// Snapshot is a consistent copy of the orchestrator's observable state.
type Snapshot struct {
	State    State
	URL      string
	Info     *models.MediaDescriptor
	FormatID string
	Progress Progress
	Error    string
	Result   *Result
}

// Orchestrator owns the workflow state. All methods are safe for concurrent use,
// but only one network operation runs at a time.
type Orchestrator struct {
	client      client.Client
	history     Recorder
	delivery    Delivery
	downloadDir string
	onProgress  func(Progress)
	openURL     func(string) error
	copyText    func(string) error
	now         func() time.Time
	validate    *validator.Validate

	mu       sync.Mutex
	state    State
	url      string
	info     *models.MediaDescriptor
	formatID string
	progress Progress
	errMsg   string
	result   *Result
}

type analyzeInput struct {
	URL string `validate:"required,http_url"`
}

// New creates an idle orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Client == nil {
		return nil, errors.New("orchestrator: client is required")
	}

	o := &Orchestrator{
		client:      opts.Client,
		history:     opts.History,
		delivery:    DeliveryFor(opts.DisplayMode),
		downloadDir: opts.DownloadDir,
		onProgress:  opts.OnProgress,
		openURL:     opts.OpenURL,
		copyText:    opts.CopyToClipboard,
		now:         opts.Now,
		validate:    validator.New(),
		state:       StateIdle,
	}
	if o.downloadDir == "" {
		o.downloadDir = "."
	}
	if o.openURL == nil {
		o.openURL = browser.OpenURL
	}
	if o.copyText == nil {
		o.copyText = clipboard.WriteAll
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		State:    o.state,
		URL:      o.url,
		Info:     o.info,
		FormatID: o.formatID,
		Progress: o.progress,
		Error:    o.errMsg,
		Result:   o.result,
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Analyze validates rawURL and fetches its media info. Invalid input is rejected
// without a state change or a network call. On success the first format is selected.
func (o *Orchestrator) Analyze(ctx context.Context, rawURL string) (*models.MediaDescriptor, error) {
	input := analyzeInput{URL: strings.TrimSpace(rawURL)}
	if err := o.validate.Struct(input); err != nil {
		return nil, &apperrors.ErrInvalidInput{Field: "url", Reason: "must be a valid http or https URL"}
	}

	o.mu.Lock()
	if err := o.transition(ActionAnalyze); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.url = input.URL
	o.info = nil
	o.formatID = ""
	o.progress = Progress{}
	o.errMsg = ""
	o.result = nil
	o.mu.Unlock()

	logger := config.GetLogger()
	logger.Debug().Str("url", input.URL).Msg("Fetching media info")

	info, err := o.client.FetchInfo(ctx, input.URL)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.errMsg = userMessage(err, infoFailedMessage)
		_ = o.transition(ActionInfoFailed)
		logger.Warn().Err(err).Str("url", input.URL).Msg("Failed to fetch media info")
		return nil, err
	}

	o.info = info
	if len(info.Formats) > 0 {
		o.formatID = info.Formats[0].ID
	}
	_ = o.transition(ActionInfoLoaded)
	return info, nil
}

// Select chooses the format to download. The id must be one of the loaded formats.
func (o *Orchestrator) Select(formatID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := nextState(o.state, ActionSelect); !ok || o.info == nil {
		return &apperrors.ErrInvalidTransition{From: o.state.String(), Action: string(ActionSelect)}
	}
	if _, ok := o.info.FindFormat(formatID); !ok {
		return &apperrors.ErrInvalidInput{Field: "format_id", Reason: fmt.Sprintf("%q is not an available format", formatID)}
	}

	o.formatID = formatID
	o.errMsg = ""
	o.result = nil
	return o.transition(ActionSelect)
}

// Download delivers the selected format using the configured display mode and
// blocks until the delivery completes or fails.
func (o *Orchestrator) Download(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if _, ok := nextState(o.state, ActionDownload); !ok || o.info == nil || o.formatID == "" {
		o.mu.Unlock()
		return nil, &apperrors.ErrInvalidTransition{From: o.state.String(), Action: string(ActionDownload)}
	}
	format, _ := o.info.FindFormat(o.formatID)
	job := downloadJob{
		URL:      o.url,
		Title:    o.info.Title,
		Platform: o.info.Platform,
		Format:   format,
	}
	o.progress = Progress{}
	o.errMsg = ""
	o.result = nil
	_ = o.transition(ActionDownload)
	o.mu.Unlock()

	logger := config.GetLogger()
	logger.Info().Str("url", job.URL).Str("format_id", job.Format.ID).Str("delivery", o.delivery.Name()).Msg("Starting download")

	result, err := o.delivery.deliver(ctx, o, job)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.errMsg = userMessage(err, downloadFailedMessage)
		_ = o.transition(ActionFail)
		logger.Warn().Err(err).Str("url", job.URL).Msg("Download failed")
		return nil, err
	}

	o.result = result
	_ = o.transition(ActionComplete)
	logger.Info().Str("url", job.URL).Str("delivery", result.Delivery).Msg("Download complete")
	return result, nil
}

// CopyLink puts the direct download link of the selected format on the clipboard.
func (o *Orchestrator) CopyLink() (string, error) {
	o.mu.Lock()
	if o.info == nil || o.formatID == "" || o.state.IsBusy() {
		state := o.state
		o.mu.Unlock()
		return "", &apperrors.ErrInvalidTransition{From: state.String(), Action: "copy link"}
	}
	req := models.DownloadRequest{URL: o.url, FormatID: o.formatID}
	o.mu.Unlock()

	link := o.client.DirectLink(req)
	if err := o.copyText(link); err != nil {
		return link, fmt.Errorf("copy link: %w", err)
	}
	return link, nil
}

// Clear discards the analyzed media and returns to idle.
func (o *Orchestrator) Clear() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.transition(ActionClear); err != nil {
		return err
	}
	o.url = ""
	o.info = nil
	o.formatID = ""
	o.progress = Progress{}
	o.errMsg = ""
	o.result = nil
	return nil
}

// transition applies action. Callers hold o.mu.
func (o *Orchestrator) transition(action Action) error {
	to, ok := nextState(o.state, action)
	if !ok {
		return &apperrors.ErrInvalidTransition{From: o.state.String(), Action: string(action)}
	}
	o.state = to
	return nil
}

func (o *Orchestrator) reportProgress(written, total int64) {
	p := Progress{Written: written, Total: total, Percent: -1}
	if total > 0 {
		p.Percent = int(min(written*100/total, 100))
	} else if total == 0 {
		p.Percent = 100
	} else {
		p.Total = -1
	}

	o.mu.Lock()
	o.progress = p
	o.mu.Unlock()

	if o.onProgress != nil {
		o.onProgress(p)
	}
}

// userMessage prefers the backend's detail message over a generic one.
func userMessage(err error, generic string) string {
	var statusErr *apperrors.ErrUpstreamStatus
	if errors.As(err, &statusErr) && statusErr.Detail != "" {
		return statusErr.Detail
	}
	var inputErr *apperrors.ErrInvalidInput
	if errors.As(err, &inputErr) {
		return inputErr.Error()
	}
	return generic
}
