package github

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"repowiki/internal/apperr"
)

// apiError is a non-2xx response before classification.
type apiError struct {
	Status  int
	Message string
	Header  http.Header
}

func (e *apiError) Error() string {
	return "github: " + strconv.Itoa(e.Status) + ": " + e.Message
}

func newAPIError(resp *http.Response, body []byte) *apiError {
	var payload struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		msg = payload.Message
	}
	if len(msg) > 512 {
		msg = msg[:512]
	}
	if msg == "" {
		msg = resp.Status
	}
	return &apiError{Status: resp.StatusCode, Message: msg, Header: resp.Header.Clone()}
}

func isTooLarge(err error) bool {
	var ae *apiError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Status == http.StatusForbidden && strings.Contains(strings.ToLower(ae.Message), "too large")
}

// classify maps any error produced while talking to GitHub onto the error
// taxonomy. Already classified errors pass through.
func (c *Client) classify(err error) *apperr.Error {
	if err == nil {
		return nil
	}
	var ce *apperr.Error
	if errors.As(err, &ce) {
		return ce
	}

	var ae *apiError
	if errors.As(err, &ae) {
		return c.classifyAPI(ae)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.CodeNetworkError, "Network error connecting to GitHub", err)
	}
	var ue *url.Error
	var ne net.Error
	if errors.As(err, &ue) || errors.As(err, &ne) {
		return apperr.Wrap(apperr.CodeNetworkError, "Network error connecting to GitHub", err)
	}
	return apperr.Wrap(apperr.CodeUnknown, err.Error(), err)
}

func (c *Client) classifyAPI(ae *apiError) *apperr.Error {
	switch ae.Status {
	case http.StatusNotFound:
		return &apperr.Error{Code: apperr.CodeNotFound, Message: "Repository not found or is private", Status: ae.Status, Err: ae}
	case http.StatusForbidden:
		if ae.Header.Get("X-Ratelimit-Remaining") == "0" {
			e := apperr.RateLimited("GitHub API rate limit exceeded", c.retryAfter(ae.Header))
			e.Status = ae.Status
			e.Err = ae
			return e
		}
		return &apperr.Error{Code: apperr.CodeNotFound, Message: "Repository not found or is private", Status: ae.Status, Err: ae}
	case http.StatusTooManyRequests:
		e := apperr.RateLimited("GitHub API rate limit exceeded", c.retryAfter(ae.Header))
		e.Status = ae.Status
		e.Err = ae
		return e
	default:
		return &apperr.Error{Code: apperr.CodeUnknown, Message: ae.Message, Status: ae.Status, Err: ae}
	}
}

// retryAfter prefers an explicit Retry-After header and falls back to the
// rate-limit reset epoch.
func (c *Client) retryAfter(h http.Header) int {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	if v := strings.TrimSpace(h.Get("X-Ratelimit-Reset")); v != "" {
		if reset, err := strconv.ParseInt(v, 10, 64); err == nil {
			secs := reset - c.now().Unix()
			if secs < 0 {
				secs = 0
			}
			return int(secs)
		}
	}
	return 0
}
