package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"repowiki/internal/gateway/config"
	"repowiki/internal/gateway/handler"
	"repowiki/internal/gateway/server"
)

type App struct {
	server   *server.Server
	pipeline *Pipeline
}

func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Dependencies
	p, err := BuildPipeline(ctx, cfg, logger, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	wikiHandler := handler.NewWikiHandler(p, cfg.KeepAlive.Duration, logger)
	chatHandler := handler.NewChatHandler(p, logger)

	// Routing & Server
	mux := server.NewMux(wikiHandler, chatHandler, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := server.New(cfg.Port, mux, logger)

	return &App{
		server:   srv,
		pipeline: p,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	return errors.Join(a.server.Shutdown(ctx), a.pipeline.Close())
}
