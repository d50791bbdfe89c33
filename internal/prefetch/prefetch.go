// Package prefetch fetches file contents for the LLM phases with bounded
// concurrency and per-file line truncation.
package prefetch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"repowiki/internal/types"
)

const (
	DefaultConcurrency = 10
	DefaultMaxLines    = 120
)

// FileFetcher is the part of the repository gateway the prefetcher needs.
type FileFetcher interface {
	FetchFile(ctx context.Context, owner, repo, path, sha string) (types.FileContent, error)
}

type Prefetcher struct {
	Fetcher     FileFetcher
	Concurrency int
	Logger      *log.Logger
}

// Result lists the fetched files in completion order plus the paths that
// failed or were binary.
type Result struct {
	Files   []types.PreFetchedFile
	Failed  []string
	Skipped []string
}

// Fetch fetches every path. Individual failures never fail the call; they
// are recorded in Result.Failed. Binary files are left out and recorded in
// Result.Skipped. shas may be nil.
func (p *Prefetcher) Fetch(ctx context.Context, owner, repo string, paths []string, shas map[string]string, maxLines int) Result {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	limit := p.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var (
		mu  sync.Mutex
		res Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, path := range paths {
		g.Go(func() error {
			fc, err := p.Fetcher.FetchFile(gctx, owner, repo, path, shas[path])
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Failed = append(res.Failed, path)
			case fc.Truncated && fc.Content == "":
				res.Skipped = append(res.Skipped, path)
			default:
				res.Files = append(res.Files, types.PreFetchedFile{Path: path, Content: Truncate(fc.Content, maxLines)})
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(res.Failed) > 0 && p.Logger != nil {
		p.Logger.Printf("prefetch: WARNING failed to fetch %d/%d files: %s",
			len(res.Failed), len(paths), strings.Join(res.Failed, ", "))
	}
	return res
}

// Truncate keeps the first maxLines lines of content and appends a marker
// noting how many lines were shown.
func Truncate(content string, maxLines int) string {
	lines := strings.Split(content, "\n")
	if maxLines <= 0 || len(lines) <= maxLines {
		return content
	}
	return strings.Join(lines[:maxLines], "\n") +
		fmt.Sprintf("\n\n[Truncated: showing %d of %d lines]", maxLines, len(lines))
}

// ByPath indexes files by path.
func ByPath(files []types.PreFetchedFile) map[string]types.PreFetchedFile {
	out := make(map[string]types.PreFetchedFile, len(files))
	for _, f := range files {
		out[f.Path] = f
	}
	return out
}
