package gen

import (
	"errors"
	"strings"

	"google.golang.org/genai"
)

// Class categorizes a generation failure. Every error that crosses the gen
// package boundary is an *Error carrying one of these classes, so callers
// (batch scheduler, export orchestrator, CLI) can branch without string
// matching.
type Class int

const (
	// ClassUnknown is an unclassified failure.
	ClassUnknown Class = iota
	// ClassQuota indicates the API quota is exhausted for the current key.
	// Not retried: the remediation is a different key or waiting out the
	// quota window.
	ClassQuota
	// ClassInvalidCredential indicates the API key is invalid, expired, or
	// lacks permissions. Blocks further generation until corrected.
	ClassInvalidCredential
	// ClassTransient indicates a rate limit, server error, or network
	// failure that is worth retrying with backoff.
	ClassTransient
)

// String returns the class name for logging.
func (c Class) String() string {
	switch c {
	case ClassQuota:
		return "quota"
	case ClassInvalidCredential:
		return "invalid_credential"
	case ClassTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is a classified generation failure.
type Error struct {
	Class   Class
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClassOf extracts the failure class from an error chain.
// Returns ClassUnknown for nil or unclassified errors.
func ClassOf(err error) Class {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Class
	}
	return ClassUnknown
}

// quotaMarkers distinguish a hard daily-quota exhaustion from an ordinary
// 429 rate limit. A plain rate limit is transient; an exhausted quota is not.
var quotaMarkers = []string{"limit: 0", "per_day", "quota exceeded"}

// Classify wraps err in an *Error with the appropriate class.
// Already-classified errors pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var genErr *Error
	if errors.As(err, &genErr) {
		return err
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "api key not valid", "invalid api key", "api_key_invalid", "permission denied"):
		return &Error{Class: ClassInvalidCredential, Message: "API key is invalid or has been revoked", Err: err}

	case containsAny(msg, quotaMarkers...):
		return &Error{Class: ClassQuota, Message: "API quota exhausted", Err: err}

	case containsAny(msg, "resource exhausted", "rate limit", "429"):
		return &Error{Class: ClassTransient, Message: "rate limited", Err: err}

	case containsAny(msg, "connection", "network", "timeout", "dial", "no such host", "unreachable"):
		return &Error{Class: ClassTransient, Message: "network error", Err: err}

	default:
		return &Error{Class: ClassUnknown, Message: "generation failed", Err: err}
	}
}

// classifyAPIError categorizes a Google API error by status code.
func classifyAPIError(err *genai.APIError) *Error {
	switch err.Code {
	case 400, 401, 403:
		return &Error{Class: ClassInvalidCredential, Message: "API key is invalid, expired, or lacks permissions", Err: err}

	case 429:
		// A 429 only counts as quota exhaustion when the response names a
		// daily limit; otherwise back off and retry.
		if containsAny(strings.ToLower(err.Message), quotaMarkers...) {
			return &Error{Class: ClassQuota, Message: "API quota exhausted", Err: err}
		}
		return &Error{Class: ClassTransient, Message: "rate limited", Err: err}

	case 500, 502, 503, 504:
		return &Error{Class: ClassTransient, Message: "Gemini API server error", Err: err}

	default:
		return &Error{Class: ClassUnknown, Message: err.Message, Err: err}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
