// Package github is the Repository Gateway: a thin REST client over the
// GitHub API that fetches repository metadata, the recursive file tree and
// single file contents. Every failure leaving this package is an
// *apperr.Error.
package github

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"repowiki/internal/types"
)

const (
	DefaultBaseURL       = "https://api.github.com"
	defaultTimeout       = 30 * time.Second
	defaultBlobCacheSize = 2048
	maxResponseBytes     = 64 << 20
)

type Config struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	BlobCacheSize int
	HTTPClient    *http.Client
	Logger        *log.Logger
}

// Client talks to the GitHub REST API. Blob contents are cached by sha since
// they are content addressed.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	blobs   *lru.Cache[string, types.FileContent]
	log     *log.Logger
	now     func() time.Time
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	size := cfg.BlobCacheSize
	if size <= 0 {
		size = defaultBlobCacheSize
	}
	blobs, err := lru.New[string, types.FileContent](size)
	if err != nil {
		return nil, fmt.Errorf("github: blob cache: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		http:    hc,
		baseURL: base,
		token:   strings.TrimSpace(cfg.Token),
		blobs:   blobs,
		log:     logger,
		now:     time.Now,
	}, nil
}

// get performs a GET against path (already escaped) and returns the body.
// Non-2xx responses come back as *apiError; transport failures are returned
// unchanged so callers can classify them.
func (c *Client) get(ctx context.Context, path, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if accept == "" {
		accept = "application/vnd.github+json"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "repowiki")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp, body)
	}
	return body, nil
}
