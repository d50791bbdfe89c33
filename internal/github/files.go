package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"repowiki/internal/apperr"
	"repowiki/internal/types"
)

const binarySniffLen = 512

type contentResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	Size     int64  `json:"size"`
	SHA      string `json:"sha"`
}

type blobResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Size     int64  `json:"size"`
	SHA      string `json:"sha"`
}

func contentsPath(owner, repo, path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return repoPath(owner, repo) + "/contents/" + strings.Join(segs, "/")
}

// FetchFile returns the content of path. sha is the tree-supplied blob id and
// may be empty. Files the contents API refuses to inline are fetched through
// the blob API instead.
func (c *Client) FetchFile(ctx context.Context, owner, repo, path, sha string) (types.FileContent, error) {
	if sha != "" {
		if fc, ok := c.blobs.Get(sha); ok {
			fc.Path = path
			return fc, nil
		}
	}

	body, err := c.get(ctx, contentsPath(owner, repo, path), "")
	if err != nil {
		if isTooLarge(err) {
			return c.fetchViaBlob(ctx, owner, repo, path, sha)
		}
		return types.FileContent{}, c.classify(err)
	}
	var cr contentResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		// A JSON array means path is a directory.
		return types.FileContent{}, &apperr.Error{Code: apperr.CodeNotFound, Message: "Path is not a file: " + path, Status: 404}
	}
	if cr.Type != "file" {
		return types.FileContent{}, &apperr.Error{Code: apperr.CodeNotFound, Message: "Path is not a file: " + path, Status: 404}
	}
	if cr.Encoding == "none" || (cr.Content == "" && cr.Size > 0) {
		if sha == "" {
			sha = cr.SHA
		}
		return c.fetchViaBlob(ctx, owner, repo, path, sha)
	}

	raw, err := decodeBase64(cr.Content)
	if err != nil {
		return types.FileContent{}, apperr.Wrap(apperr.CodeUnknown, "invalid file encoding: "+path, err)
	}
	fc := newFileContent(path, raw, cr.Size, cr.SHA)
	c.remember(fc)
	return fc, nil
}

func (c *Client) fetchViaBlob(ctx context.Context, owner, repo, path, sha string) (types.FileContent, error) {
	if sha == "" {
		resolved, err := c.resolveSHA(ctx, owner, repo, path)
		if err != nil {
			return types.FileContent{}, err
		}
		sha = resolved
	}
	body, err := c.get(ctx, repoPath(owner, repo)+"/git/blobs/"+url.PathEscape(sha), "")
	if err != nil {
		return types.FileContent{}, &apperr.Error{Code: apperr.CodeFileTooLarge, Message: "File too large to fetch: " + path, Err: err}
	}
	var br blobResponse
	if err := json.Unmarshal(body, &br); err != nil {
		return types.FileContent{}, &apperr.Error{Code: apperr.CodeFileTooLarge, Message: "File too large to fetch: " + path, Err: err}
	}
	raw, err := decodeBase64(br.Content)
	if err != nil {
		return types.FileContent{}, &apperr.Error{Code: apperr.CodeFileTooLarge, Message: "File too large to fetch: " + path, Err: err}
	}
	fc := newFileContent(path, raw, br.Size, sha)
	c.remember(fc)
	return fc, nil
}

// resolveSHA looks the blob id up through the contents API when the tree did
// not supply one.
func (c *Client) resolveSHA(ctx context.Context, owner, repo, path string) (string, error) {
	body, err := c.get(ctx, contentsPath(owner, repo, path), "application/vnd.github.object+json")
	if err != nil {
		if isTooLarge(err) {
			return "", &apperr.Error{Code: apperr.CodeFileTooLarge, Message: "File too large to fetch: " + path, Err: err}
		}
		return "", c.classify(err)
	}
	var cr contentResponse
	if err := json.Unmarshal(body, &cr); err != nil || cr.Type != "file" || cr.SHA == "" {
		return "", &apperr.Error{Code: apperr.CodeNotFound, Message: "Path is not a file: " + path, Status: 404}
	}
	return cr.SHA, nil
}

func (c *Client) remember(fc types.FileContent) {
	if fc.SHA != "" {
		c.blobs.Add(fc.SHA, fc)
	}
}

func newFileContent(path string, raw []byte, size int64, sha string) types.FileContent {
	if size == 0 {
		size = int64(len(raw))
	}
	if IsBinary(raw) {
		return types.FileContent{Path: path, Content: "", Size: size, SHA: sha, Truncated: true}
	}
	return types.FileContent{Path: path, Content: string(raw), Size: size, SHA: sha}
}

// IsBinary reports whether the first 512 bytes contain a NUL byte.
func IsBinary(raw []byte) bool {
	n := len(raw)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(raw[:n], 0) >= 0
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.NewReplacer("\n", "", "\r", "").Replace(s)
	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return out, nil
}
