// Package apperr defines the error taxonomy surfaced to callers of the wiki
// service. Upstream failures are classified at the boundary where they occur
// and travel up as *Error values.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeFileTooLarge  Code = "FILE_TOO_LARGE"
	CodeNetworkError  Code = "NETWORK_ERROR"
	CodeUnknown       Code = "UNKNOWN"
	CodeAIError       Code = "AI_ERROR"
	CodePipelineError Code = "PIPELINE_ERROR"
)

// Error is a classified failure. RetryAfter is in seconds and only
// meaningful for CodeRateLimited. When Public is set, Message is shown to
// callers as-is instead of the generic text for Code.
type Error struct {
	Code       Code
	Message    string
	Status     int
	RetryAfter int
	Public     bool
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether a caller may try the same request again.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeNotFound, CodeFileTooLarge:
		return false
	default:
		return true
	}
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Public builds an error whose message is already worded for the caller.
func Public(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Public: true}
}

func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

func RateLimited(msg string, retryAfter int) *Error {
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &Error{Code: CodeRateLimited, Message: msg, RetryAfter: retryAfter}
}

// Classify returns err as an *Error. Errors that were never classified become
// PIPELINE_ERROR with their message passed through.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodePipelineError, Message: err.Error(), Err: err}
}

// HasCode reports whether err classifies to code.
func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// UserMessage renders a short, non-technical explanation for e.
func UserMessage(e *Error) string {
	if e == nil {
		return ""
	}
	if e.Public && e.Message != "" {
		return e.Message
	}
	switch e.Code {
	case CodeNotFound:
		return "This repository was not found. It may be private or the URL may be incorrect."
	case CodeRateLimited:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("GitHub API rate limit exceeded. Try again in %s.", FormatDuration(e.RetryAfter))
		}
		return "GitHub API rate limit exceeded. Try again later."
	case CodeFileTooLarge:
		return "This repository is too large to process."
	case CodeNetworkError:
		return "Could not connect to GitHub. Please check your connection and try again."
	case CodeAIError:
		return "The AI model failed to generate structured output. Please try again."
	default:
		if e.Message != "" {
			return e.Message
		}
		return "An unexpected error occurred"
	}
}

// FormatDuration renders seconds as "N seconds" below a minute and as whole
// minutes, rounded up, above.
func FormatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%d seconds", seconds)
	}
	minutes := (seconds + 59) / 60
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// HTTPStatus maps a code to the status used on request/response endpoints.
func HTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeNetworkError, CodeAIError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
