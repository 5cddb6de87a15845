package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
)

type Error struct {
	Status int
	Code   string
	Err    error
	// Details is merged into the error envelope (e.g. quiz_id for partial persists).
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromError maps a service error onto an HTTP status and stable code.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var ppe *apperr.PartialPersistError
	if errors.As(err, &ppe) {
		return &Error{
			Status:  http.StatusBadGateway,
			Code:    "partial_persist",
			Err:     err,
			Details: map[string]any{"quiz_id": ppe.QuizID},
		}
	}
	switch {
	case errors.Is(err, apperr.ErrRateLimited):
		return New(http.StatusTooManyRequests, "rate_limited", apperr.ErrRateLimited)
	case errors.Is(err, apperr.ErrQuotaExceeded):
		return New(http.StatusPaymentRequired, "quota_exceeded", apperr.ErrQuotaExceeded)
	case errors.Is(err, apperr.ErrGenerationTimeout), errors.Is(err, context.DeadlineExceeded):
		return New(http.StatusGatewayTimeout, "generation_timeout", err)
	case errors.Is(err, apperr.ErrNoStructuredResult):
		return New(http.StatusBadGateway, "no_structured_result", err)
	case errors.Is(err, apperr.ErrGenerationFailed):
		return New(http.StatusBadGateway, "generation_failed", err)
	case errors.Is(err, apperr.ErrRequestFailed), errors.Is(err, apperr.ErrNoStream):
		return New(http.StatusBadGateway, "upstream_failed", err)
	case errors.Is(err, apperr.ErrNoSourceContent):
		return New(http.StatusBadRequest, "no_source_content", err)
	case errors.Is(err, apperr.ErrInvalidGenerationType), errors.Is(err, apperr.ErrInvalidArgument):
		return New(http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, apperr.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperr.ErrUnauthorized):
		return New(http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, apperr.ErrReplyInFlight):
		return New(http.StatusConflict, "reply_in_flight", err)
	case errors.Is(err, apperr.ErrStreamAborted), errors.Is(err, context.Canceled):
		return New(499, "aborted", err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}
