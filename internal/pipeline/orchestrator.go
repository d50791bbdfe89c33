// Package pipeline turns a repository into a wiki: it sequences the
// gateway, the architecture and deep-dive model phases, coalesces
// concurrent requests and reports progress as typed events.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"repowiki/internal/apperr"
	"repowiki/internal/llm"
	"repowiki/internal/prefetch"
	"repowiki/internal/treefilter"
	"repowiki/internal/types"
)

const (
	DefaultFeatureBatchSize = 3
	DefaultConfigMaxLines   = 120
	DefaultFeatureMaxLines  = 150
	DefaultMaxTreeFiles     = 10000
)

// RepoGateway is the repository host as seen by the pipeline.
type RepoGateway interface {
	FetchMeta(ctx context.Context, owner, repo string) (types.RepoMeta, error)
	FetchTree(ctx context.Context, owner, repo, branch string) (types.RepoTree, error)
	prefetch.FileFetcher
}

// WikiCache stores finished wikis. Keys are case-insensitive.
type WikiCache interface {
	Get(owner, repo string) (*types.Wiki, bool)
	Put(owner, repo string, w *types.Wiki)
}

// Config holds the product tuning knobs. Zero values select defaults.
type Config struct {
	MaxFeatures         int
	MaxFilesPerFeature  int
	FeatureBatchSize    int
	PrefetchConcurrency int
	ConfigMaxLines      int
	FeatureMaxLines     int
	MaxTreeFiles        int
	MaxTreePaths        int
	ExcludePatterns     []string
}

func (c Config) withDefaults() Config {
	def := func(v *int, d int) {
		if *v <= 0 {
			*v = d
		}
	}
	def(&c.MaxFeatures, DefaultMaxFeatures)
	def(&c.MaxFilesPerFeature, DefaultMaxFilesPerFeature)
	def(&c.FeatureBatchSize, DefaultFeatureBatchSize)
	def(&c.PrefetchConcurrency, prefetch.DefaultConcurrency)
	def(&c.ConfigMaxLines, DefaultConfigMaxLines)
	def(&c.FeatureMaxLines, DefaultFeatureMaxLines)
	def(&c.MaxTreeFiles, DefaultMaxTreeFiles)
	def(&c.MaxTreePaths, DefaultMaxTreePaths)
	return c
}

type Options struct {
	Config    Config
	Cache     WikiCache
	Coalescer *Coalescer
	Metrics   *Metrics
	Logger    *log.Logger
}

type Orchestrator struct {
	gw         RepoGateway
	llm        llm.LLMClient
	cache      WikiCache
	co         *Coalescer
	filter     *treefilter.Filter
	prefetcher *prefetch.Prefetcher
	analyzer   *Analyzer
	diver      *DeepDiver
	cfg        Config
	metrics    *Metrics
	log        *log.Logger
	now        func() time.Time
}

func New(gw RepoGateway, client llm.LLMClient, opts Options) *Orchestrator {
	cfg := opts.Config.withDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	co := opts.Coalescer
	if co == nil {
		co = NewCoalescer()
	}
	cache := opts.Cache
	if cache == nil {
		cache = nopCache{}
	}
	return &Orchestrator{
		gw:         gw,
		llm:        client,
		cache:      cache,
		co:         co,
		filter:     treefilter.New(cfg.ExcludePatterns...),
		prefetcher: &prefetch.Prefetcher{Fetcher: gw, Concurrency: cfg.PrefetchConcurrency, Logger: logger},
		analyzer:   &Analyzer{LLM: client, MaxFeatures: cfg.MaxFeatures, MaxTreePaths: cfg.MaxTreePaths, Logger: logger},
		diver:      &DeepDiver{LLM: client, MaxFiles: cfg.MaxFilesPerFeature},
		cfg:        cfg,
		metrics:    opts.Metrics,
		log:        logger,
		now:        time.Now,
	}
}

// Cached returns the cached wiki for owner/repo, if any.
func (o *Orchestrator) Cached(owner, repo string) (*types.Wiki, bool) {
	return o.cache.Get(owner, repo)
}

// Generate returns the wiki for owner/repo, serving it from the cache when
// possible and otherwise running (or joining) a pipeline run. Every event,
// including the terminal complete or error event, goes to emit. The
// returned error is always an *apperr.Error.
func (o *Orchestrator) Generate(ctx context.Context, owner, repo string, emit EmitFunc) (*types.Wiki, error) {
	emit = serialEmit(emit)

	if w, ok := o.cache.Get(owner, repo); ok {
		o.metrics.cacheHit()
		o.log.Printf("pipeline: cache hit for %s/%s", owner, repo)
		emit(NewCompleteEvent(w))
		return w, nil
	}

	key := strings.ToLower(owner) + "/" + strings.ToLower(repo)
	w, _, err := o.co.Do(key, func() (*types.Wiki, error) {
		if w, ok := o.cache.Get(owner, repo); ok {
			return w, nil
		}
		return o.run(ctx, owner, repo, emit)
	}, func() {
		o.metrics.joined()
		o.log.Printf("pipeline: joining in-flight run for %s/%s", owner, repo)
		emit(JoinedEvent())
	})
	if err != nil {
		ae := apperr.Classify(err)
		emit(NewErrorEvent(ae))
		return nil, ae
	}
	emit(NewCompleteEvent(w))
	return w, nil
}

func (o *Orchestrator) run(ctx context.Context, owner, repo string, emit EmitFunc) (wiki *types.Wiki, err error) {
	runID := uuid.NewString()
	start := o.now()
	logf := func(format string, args ...any) {
		o.log.Printf("pipeline[%s]: "+format, append([]any{runID}, args...)...)
	}
	done := o.metrics.runStarted()
	defer func() {
		done()
		result := "ok"
		if err != nil {
			result = string(apperr.Classify(err).Code)
			logf("run for %s/%s failed: %v", owner, repo, err)
		}
		o.metrics.runDone(result, o.now().Sub(start).Seconds())
	}()
	logf("starting %s/%s", owner, repo)

	// Phase 1: repository scan.
	emit(progress(PhaseFetchingMetadata, 5, "Fetching repository data..."))
	meta, err := o.gw.FetchMeta(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	rawTree, err := o.gw.FetchTree(ctx, owner, repo, meta.DefaultBranch)
	if err != nil {
		return nil, err
	}
	tree := o.filter.Tree(rawTree)
	if len(tree.Nodes) > o.cfg.MaxTreeFiles {
		return nil, &apperr.Error{
			Code:    apperr.CodeFileTooLarge,
			Message: fmt.Sprintf("This repository is too large to process (over %s source files after filtering)", thousands(o.cfg.MaxTreeFiles)),
			Status:  413,
		}
	}
	detail := fmt.Sprintf("%d files in tree", len(tree.Nodes))
	if tree.Truncated {
		logf("WARNING tree for %s/%s was truncated by GitHub; wiki may be incomplete", owner, repo)
		detail += " (listing truncated by GitHub, wiki may be incomplete)"
	}

	shas := tree.SHAs()
	var configFiles []types.PreFetchedFile
	if paths := ConfigFiles(tree); len(paths) > 0 {
		res := o.prefetcher.Fetch(ctx, owner, repo, paths, shas, o.cfg.ConfigMaxLines)
		o.metrics.prefetched(len(res.Files), len(res.Failed), len(res.Skipped))
		configFiles = res.Files
	}
	gatherTime := o.now().Sub(start)
	logf("scan complete in %s (%d of %d files kept, %d configs)", gatherTime.Round(time.Millisecond), len(tree.Nodes), tree.TotalFiles, len(configFiles))

	// Phase 2: architecture analysis.
	emit(progress(PhaseAnalyzingArchitecture, 15, "Analyzing codebase architecture...").withDetail(detail))
	analysisStart := o.now()
	analysis, err := o.analyzer.Analyze(ctx, meta, tree, configFiles)
	if err != nil {
		return nil, err
	}
	logf("analysis complete: %d features in %s", len(analysis.Features), o.now().Sub(analysisStart).Round(time.Millisecond))
	for _, f := range analysis.Features {
		logf("  - %s (%s): %d files", f.Name, f.ID, len(f.FilePaths))
	}

	// Phase 3: per-feature generation.
	total := len(analysis.Features)
	allPaths := featurePaths(analysis, o.cfg.MaxFilesPerFeature)
	emit(progress(PhaseGeneratingFeatures, 25, fmt.Sprintf("Fetching %d source files...", len(allPaths))).withCounts(total, 0))
	res := o.prefetcher.Fetch(ctx, owner, repo, allPaths, shas, o.cfg.FeatureMaxLines)
	o.metrics.prefetched(len(res.Files), len(res.Failed), len(res.Skipped))
	logf("prefetched %d/%d files", len(res.Files), len(allPaths))

	emit(progress(PhaseGeneratingFeatures, 30, "Generating feature documentation...").withCounts(total, 0))
	baseURL := BlobBaseURL(owner, repo, meta.DefaultBranch)
	featureStart := o.now()
	features, failed := o.generateFeatures(ctx, meta, tree, analysis, prefetch.ByPath(res.Files), baseURL, emit, logf)
	if len(features) == 0 {
		return nil, apperr.New(apperr.CodePipelineError, "All feature generation calls failed")
	}
	if len(failed) > 0 {
		logf("WARNING %d/%d features failed: %s", len(failed), total, strings.Join(failed, ", "))
	}
	logf("features complete: %d/%d in %s", len(features), total, o.now().Sub(featureStart).Round(time.Millisecond))

	// Phase 4: assembly.
	emit(progress(PhaseAssembling, 95, "Assembling wiki..."))
	desc := meta.Description
	if desc == "" {
		desc = analysis.Description
	}
	wiki = &types.Wiki{
		RepoURL:     fmt.Sprintf("https://github.com/%s/%s", owner, repo),
		RepoName:    repo,
		Description: desc,
		GeneratedAt: o.now().UTC(),
		Features:    features,
	}
	o.cache.Put(owner, repo, wiki)
	logf("done: %d features in %s", len(features), o.now().Sub(start).Round(time.Millisecond))
	return wiki, nil
}

// generateFeatures deep-dives the plan in fixed-size batches. A batch fully
// settles before the next starts. Results keep plan order; failed feature
// names are returned for logging.
func (o *Orchestrator) generateFeatures(
	ctx context.Context,
	meta types.RepoMeta,
	tree types.RepoTree,
	analysis types.ArchitectureAnalysis,
	files map[string]types.PreFetchedFile,
	baseURL string,
	emit EmitFunc,
	logf func(string, ...any),
) ([]types.Feature, []string) {
	total := len(analysis.Features)
	results := make([]*types.Feature, total)
	var (
		mu       sync.Mutex
		complete int
	)

	for start := 0; start < total; start += o.cfg.FeatureBatchSize {
		end := min(start+o.cfg.FeatureBatchSize, total)
		var g errgroup.Group
		for i := start; i < end; i++ {
			plan := analysis.Features[i]
			g.Go(func() error {
				own := filesFor(plan, files, o.cfg.MaxFilesPerFeature)
				f, err := o.diver.DeepDive(ctx, meta, tree, plan, own, analysis, baseURL)
				if err != nil {
					o.metrics.feature(false)
					logf("feature %q failed: %v", plan.Name, err)
					return nil
				}
				o.metrics.feature(true)

				mu.Lock()
				defer mu.Unlock()
				complete++
				results[i] = &f
				emit(FeatureCompleteEvent{
					Phase:            PhaseFeatureComplete,
					Feature:          f,
					FeatureIndex:     i,
					FeaturesTotal:    total,
					FeaturesComplete: complete,
				})
				emit(progress(PhaseGeneratingFeatures, 30+complete*60/total,
					fmt.Sprintf("Generated %d of %d features...", complete, total)).withCounts(total, complete))
				return nil
			})
		}
		_ = g.Wait()
	}

	features := make([]types.Feature, 0, total)
	var failed []string
	for i, f := range results {
		if f == nil {
			failed = append(failed, analysis.Features[i].Name)
			continue
		}
		features = append(features, *f)
	}
	return features, failed
}

// featurePaths collects the first max paths of every plan, deduplicated.
func featurePaths(a types.ArchitectureAnalysis, limit int) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, f := range a.Features {
		paths := f.FilePaths
		if len(paths) > limit {
			paths = paths[:limit]
		}
		for _, p := range paths {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func filesFor(plan types.FeaturePlan, files map[string]types.PreFetchedFile, limit int) []types.PreFetchedFile {
	paths := plan.FilePaths
	if len(paths) > limit {
		paths = paths[:limit]
	}
	out := make([]types.PreFetchedFile, 0, len(paths))
	for _, p := range paths {
		if f, ok := files[p]; ok {
			out = append(out, f)
		}
	}
	return out
}

// thousands renders n with comma grouping: 10000 -> "10,000".
func thousands(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + thousands(-n)
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func serialEmit(emit EmitFunc) EmitFunc {
	if emit == nil {
		return func(Event) {}
	}
	var mu sync.Mutex
	return func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		emit(e)
	}
}

type nopCache struct{}

func (nopCache) Get(string, string) (*types.Wiki, bool) { return nil, false }
func (nopCache) Put(string, string, *types.Wiki)        {}
