package proxy

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry configures error reporting. The returned function flushes pending
// events and should run before the process exits.
func InitSentry(dsn, environment string) (func(), error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		BeforeSend:  dropAbortedStreams,
	})
	if err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// dropAbortedStreams filters the deliberate http.ErrAbortHandler panics that end
// broken downloads; they are expected and not worth an event.
func dropAbortedStreams(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint != nil && hint.RecoveredException == http.ErrAbortHandler {
		return nil
	}
	return event
}
