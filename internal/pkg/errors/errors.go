package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Streaming answer ingestion.
var (
	ErrRequestFailed  = errors.New("request failed")
	ErrNoStream       = errors.New("no response stream")
	ErrMalformedEvent = errors.New("malformed stream event")
	ErrStreamAborted  = errors.New("stream aborted")
	ErrReplyInFlight  = errors.New("a reply is already streaming for this conversation")
)

// Structured content generation.
var (
	ErrRateLimited           = errors.New("Rate limit exceeded. Please try again later.")
	ErrQuotaExceeded         = errors.New("Usage limit reached. Please add credits.")
	ErrGenerationFailed      = errors.New("generation failed")
	ErrNoStructuredResult    = errors.New("no structured result returned")
	ErrNoSourceContent       = errors.New("no source content to generate from")
	ErrInvalidGenerationType = errors.New("type must be flashcards or quiz")
	ErrPartialPersist        = errors.New("partial persist failure")
	ErrGenerationTimeout     = errors.New("generation timed out")
)

// ErrMissingCredential is returned at startup when the gateway credential is absent.
var ErrMissingCredential = errors.New("AI gateway credential is not configured")

// UpstreamError carries the status and body of a failed gateway response.
// Kind is one of ErrRateLimited, ErrQuotaExceeded or ErrGenerationFailed.
// Streaming errors additionally match ErrRequestFailed.
type UpstreamError struct {
	Status    int
	Message   string
	Body      string
	Kind      error
	Streaming bool
}

// NewUpstreamError classifies a non-2xx gateway status.
func NewUpstreamError(status int, message, body string, streaming bool) *UpstreamError {
	var kind error
	switch status {
	case 429:
		kind = ErrRateLimited
	case 402:
		kind = ErrQuotaExceeded
	default:
		kind = ErrGenerationFailed
		if streaming {
			kind = ErrRequestFailed
		}
	}
	return &UpstreamError{Status: status, Message: message, Body: body, Kind: kind, Streaming: streaming}
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	kind := ErrGenerationFailed
	if e.Kind != nil {
		kind = e.Kind
	}
	if msg == "" {
		return fmt.Sprintf("%s (status %d)", kind.Error(), e.Status)
	}
	return fmt.Sprintf("%s (status %d): %s", kind.Error(), e.Status, msg)
}

func (e *UpstreamError) Unwrap() error {
	if e == nil || e.Kind == nil {
		return ErrGenerationFailed
	}
	return e.Kind
}

func (e *UpstreamError) Is(target error) bool {
	return e != nil && e.Streaming && target == ErrRequestFailed
}

// PartialPersistError reports a quiz row that was created while its
// questions were not. QuizID identifies the orphan for cleanup or retry.
type PartialPersistError struct {
	QuizID string
	Err    error
}

func (e *PartialPersistError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: quiz %s has no questions", ErrPartialPersist, e.QuizID)
	}
	return fmt.Sprintf("%s: quiz %s has no questions: %v", ErrPartialPersist, e.QuizID, e.Err)
}

func (e *PartialPersistError) Unwrap() error { return e.Err }

func (e *PartialPersistError) Is(target error) bool { return target == ErrPartialPersist }
