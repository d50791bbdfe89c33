package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStderr(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "stderr"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func readAll(t *testing.T, f *os.File) string {
	t.Helper()
	b, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	return string(b)
}

func TestRun_UsageErrors(t *testing.T) {
	var stdout bytes.Buffer
	assert.Equal(t, 2, run(nil, &stdout, tempStderr(t)))
	assert.Equal(t, 2, run([]string{"--format", "xml", "octocat/hello-world"}, &stdout, tempStderr(t)))
	assert.Equal(t, 2, run([]string{"--bogus"}, &stdout, tempStderr(t)))
	assert.Equal(t, 0, run([]string{"--help"}, &stdout, tempStderr(t)))
	assert.Empty(t, stdout.String())
}

func TestRun_GenerationFailureReturnsExitCode(t *testing.T) {
	color.NoColor = true
	gh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	t.Cleanup(gh.Close)

	t.Setenv("WIKI_CONFIG", "")
	t.Setenv("LLM_PROVIDER", "fake")
	t.Setenv("GITHUB_API_URL", gh.URL)
	t.Setenv("GITHUB_TOKEN", "")

	var stdout bytes.Buffer
	stderr := tempStderr(t)
	code := run([]string{"octocat/missing"}, &stdout, stderr)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, readAll(t, stderr), "NOT_FOUND")
}
