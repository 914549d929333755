package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DreamForgeSolutions/Krawler/internal/config"
	"github.com/DreamForgeSolutions/Krawler/internal/engine"
	"github.com/DreamForgeSolutions/Krawler/pkg/types"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "Path to crawler configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	runtime, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise engine: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng := engine.New(runtime.CrawlerConfig, runtime.Pipeline, runtime.Logger)
	results, err := eng.Start(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start engine: %v\n", err)
		os.Exit(1)
	}

	seeds := runtime.CrawlerConfig.SeedRequests(func(sourceName, url string) string {
		return types.NewRequestID()
	})
	if err := eng.SubmitMany(ctx, seeds); err != nil {
		fmt.Fprintf(os.Stderr, "failed to submit seed requests: %v\n", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range results {
			runtime.Logger.Info("crawl result",
				"url", result.Request.URL,
				"status", result.Status,
				"children", len(result.Children),
			)
		}
	}()

	<-ctx.Done()
	eng.Stop()
	<-done
}
