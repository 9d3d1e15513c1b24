package twitter

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed remote call so the orchestration loops can
// express their policy in data instead of string matching.
type ErrorKind string

const (
	// KindDuplicateContent: the API rejected near-identical recent content.
	// The scheduled-post flow still advances the rotation cursor on this.
	KindDuplicateContent ErrorKind = "duplicate_content"
	// KindRateLimited: backoff required; deferred, not counted as an error.
	KindRateLimited ErrorKind = "rate_limited"
	// KindAuthFailure: bad or missing credentials.
	KindAuthFailure ErrorKind = "auth_failure"
	// KindTransient: network or other retryable remote failure.
	KindTransient ErrorKind = "transient"
	// KindInvalidResponse: success status but the expected payload is missing.
	KindInvalidResponse ErrorKind = "invalid_response"
)

// APIError is a classified remote failure.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("twitter api %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("twitter api %s: %s", e.Kind, e.Message)
}

// KindOf extracts the error kind, defaulting to transient for unclassified
// failures such as plain network errors.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransient
}

// IsDuplicateContent reports whether the publish was rejected as a duplicate.
func IsDuplicateContent(err error) bool {
	return KindOf(err) == KindDuplicateContent
}

// IsRateLimited reports whether the failure is a rate-limit signal.
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}
