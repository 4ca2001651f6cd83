package diarize

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrPollTimeout is returned by Job.Wait when the job did not reach a
// terminal status within the poll budget.
var ErrPollTimeout = errors.New("diarize: poll deadline exceeded")

// Error is a diarization service API error.
type Error struct {
	// Message is the service's error description.
	Message string `json:"error"`

	// HTTPStatus is the response status code, 0 for job-level failures
	// reported inside a 200 response.
	HTTPStatus int `json:"-"`

	// JobID identifies the failed job when known.
	JobID string `json:"-"`
}

func (e *Error) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("diarize: %s (job_id=%s, http_status=%d)", e.Message, e.JobID, e.HTTPStatus)
	}
	return fmt.Sprintf("diarize: %s (http_status=%d)", e.Message, e.HTTPStatus)
}

// IsAuthError reports whether the request was rejected for credentials.
func (e *Error) IsAuthError() bool {
	return e.HTTPStatus == http.StatusUnauthorized || e.HTTPStatus == http.StatusForbidden
}

// IsRateLimit reports whether the service throttled the request.
func (e *Error) IsRateLimit() bool {
	return e.HTTPStatus == http.StatusTooManyRequests
}

// IsServerError reports whether the service failed internally.
func (e *Error) IsServerError() bool {
	return e.HTTPStatus >= http.StatusInternalServerError
}

// Retryable reports whether resubmitting the same request may succeed.
// Retries happen only inside the poll loop's own budget; callers see a
// single error and fall back.
func (e *Error) Retryable() bool {
	return e.IsRateLimit() || e.IsServerError()
}

// AsError unwraps err to *Error when it is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
