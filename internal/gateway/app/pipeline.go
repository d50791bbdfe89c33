package app

import (
	"context"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"

	wikicache "repowiki/internal/cache/wiki"
	"repowiki/internal/gateway/config"
	"repowiki/internal/github"
	"repowiki/internal/llm"
	llmclient "repowiki/internal/llm/client"
	"repowiki/internal/pipeline"
)

// Pipeline bundles the orchestrator with the resources it owns.
type Pipeline struct {
	*pipeline.Orchestrator
	LLM llm.LLMClient
}

func (p *Pipeline) Close() error { return p.LLM.Close() }

// BuildPipeline wires the gateway, model chain, cache and orchestrator from
// cfg. reg may be nil to disable metrics.
func BuildPipeline(ctx context.Context, cfg *config.Config, logger *log.Logger, reg prometheus.Registerer) (*Pipeline, error) {
	gh, err := github.NewClient(github.Config{
		BaseURL:       cfg.GitHub.BaseURL,
		Token:         cfg.GitHub.Token,
		Timeout:       cfg.GitHub.Timeout.Duration,
		BlobCacheSize: cfg.GitHub.BlobCacheSize,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}

	base, err := llmclient.New(ctx, llmclient.Config{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}

	var (
		llmMetrics  *llm.Metrics
		pipeMetrics *pipeline.Metrics
	)
	mws := []llm.Middleware{llm.WithLogging(logger)}
	if reg != nil {
		llmMetrics = llm.NewMetrics(reg)
		pipeMetrics = pipeline.NewMetrics(reg)
		mws = append(mws, llm.WithMetrics(llmMetrics))
	}
	mws = append(mws,
		llm.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst),
		llm.Retry(cfg.LLM.MaxAttempts, cfg.LLM.RetryDelay.Duration),
		llm.Observe(),
	)
	client := llm.Wrap(base, mws...)
	logger.Printf("llm: using %s", client.Name())

	pc := cfg.Pipeline
	orch := pipeline.New(gh, client, pipeline.Options{
		Config: pipeline.Config{
			MaxFeatures:         pc.MaxFeatures,
			MaxFilesPerFeature:  pc.MaxFilesPerFeature,
			FeatureBatchSize:    pc.FeatureBatchSize,
			PrefetchConcurrency: pc.PrefetchConcurrency,
			ConfigMaxLines:      pc.ConfigMaxLines,
			FeatureMaxLines:     pc.FeatureMaxLines,
			MaxTreeFiles:        pc.MaxTreeFiles,
			MaxTreePaths:        pc.MaxTreePaths,
			ExcludePatterns:     pc.ExcludePatterns,
		},
		Cache:   wikicache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL.Duration),
		Metrics: pipeMetrics,
		Logger:  logger,
	})
	return &Pipeline{Orchestrator: orch, LLM: client}, nil
}

