package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPassesThroughWrappedErrors(t *testing.T) {
	orig := New(CodeNotFound, "Repository not found or is private")
	wrapped := fmt.Errorf("fetch meta: %w", orig)

	got := Classify(wrapped)
	require.NotNil(t, got)
	assert.Same(t, orig, got)
	assert.True(t, HasCode(wrapped, CodeNotFound))
}

func TestClassifyUnknownBecomesPipelineError(t *testing.T) {
	got := Classify(errors.New("boom"))
	require.NotNil(t, got)
	assert.Equal(t, CodePipelineError, got.Code)
	assert.Equal(t, "boom", got.Message)
	assert.Nil(t, Classify(nil))
}

func TestUserMessageRateLimited(t *testing.T) {
	assert.Equal(t, "GitHub API rate limit exceeded. Try again in 2 minutes.", UserMessage(RateLimited("x", 90)))
	assert.Equal(t, "GitHub API rate limit exceeded. Try again in 45 seconds.", UserMessage(RateLimited("x", 45)))
	assert.Equal(t, "GitHub API rate limit exceeded. Try again later.", UserMessage(RateLimited("x", 0)))
}

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{
		0:   "0 seconds",
		59:  "59 seconds",
		60:  "1 minute",
		61:  "2 minutes",
		600: "10 minutes",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDuration(in), "seconds=%d", in)
	}
}

func TestPipelineErrorKeepsMessage(t *testing.T) {
	e := New(CodePipelineError, "All feature generation calls failed")
	assert.Equal(t, "All feature generation calls failed", UserMessage(e))
	assert.True(t, e.Retryable())
	assert.False(t, New(CodeFileTooLarge, "x").Retryable())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(CodeRateLimited))
	assert.Equal(t, http.StatusRequestEntityTooLarge, HTTPStatus(CodeFileTooLarge))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(CodeAIError))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(CodePipelineError))
}

func TestUserMessagePublicKeepsMessage(t *testing.T) {
	e := Public(CodeNotFound, "Wiki not found. Please regenerate the wiki before chatting.")
	assert.Equal(t, "Wiki not found. Please regenerate the wiki before chatting.", UserMessage(e))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(e.Code))
	assert.Contains(t, UserMessage(New(CodeNotFound, "repo gone")), "may be private")
}
