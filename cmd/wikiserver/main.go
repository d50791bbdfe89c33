package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"repowiki/internal/gateway/app"
	"repowiki/internal/gateway/config"
)

func main() {
	fs := flag.NewFlagSet("wikiserver", flag.ExitOnError)
	port := fs.StringP("port", "p", "", "listen address, e.g. :8080 (overrides PORT)")
	configPath := fs.StringP("config", "c", "", "YAML or TOML config file (overrides WIKI_CONFIG)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wikiserver [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Port = *port
		if cfg.Port[0] != ':' {
			cfg.Port = ":" + cfg.Port
		}
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	go func() {
		if err := a.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
