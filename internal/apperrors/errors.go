package apperrors

import "fmt"

// ErrUpstreamUnavailable represents a network-level failure talking to the backend.
type ErrUpstreamUnavailable struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *ErrUpstreamUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend %s unreachable: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("backend %s unreachable", e.Endpoint)
}

// Unwrap exposes the transport error.
func (e *ErrUpstreamUnavailable) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *ErrUpstreamUnavailable) Is(target error) bool {
	_, ok := target.(*ErrUpstreamUnavailable)
	return ok
}

// NewUpstreamUnavailableError creates a new ErrUpstreamUnavailable.
func NewUpstreamUnavailableError(endpoint string, err error) *ErrUpstreamUnavailable {
	return &ErrUpstreamUnavailable{Endpoint: endpoint, Err: err}
}

// ErrUpstreamStatus is returned when the backend answers with a non-success status.
// Detail holds the backend's {"detail": ...} message when it sent one, Body the raw text.
type ErrUpstreamStatus struct {
	StatusCode int
	Detail     string
	Body       string
}

// Error implements the error interface.
func (e *ErrUpstreamStatus) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// Is allows for error checking with errors.Is().
func (e *ErrUpstreamStatus) Is(target error) bool {
	_, ok := target.(*ErrUpstreamStatus)
	return ok
}

// ErrEmptyStream is returned when the backend reports success but sends no body.
type ErrEmptyStream struct {
	URL string
}

// Error implements the error interface.
func (e *ErrEmptyStream) Error() string {
	return fmt.Sprintf("backend returned no content for %s", e.URL)
}

// Is allows for error checking with errors.Is().
func (e *ErrEmptyStream) Is(target error) bool {
	_, ok := target.(*ErrEmptyStream)
	return ok
}

// ErrInvalidInput is returned for user input rejected before any network call.
type ErrInvalidInput struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is allows for error checking with errors.Is().
func (e *ErrInvalidInput) Is(target error) bool {
	_, ok := target.(*ErrInvalidInput)
	return ok
}

// ErrInvalidTransition is returned when an orchestrator action is not allowed in its current state.
type ErrInvalidTransition struct {
	From   string
	Action string
}

// Error implements the error interface.
func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.From)
}

// Is allows for error checking with errors.Is().
func (e *ErrInvalidTransition) Is(target error) bool {
	_, ok := target.(*ErrInvalidTransition)
	return ok
}
