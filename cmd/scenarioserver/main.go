// Command scenarioserver runs the scenario execution engine behind an
// HTTP + websocket API, backed by a directory of YAML scenario
// definitions.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meridianhq/scenario-engine/internal/app/httpapi"
	svc "github.com/meridianhq/scenario-engine/internal/app/services/scenario"
	"github.com/meridianhq/scenario-engine/internal/app/services/scenario/filecatalog"
	"github.com/meridianhq/scenario-engine/internal/config"
	"github.com/meridianhq/scenario-engine/pkg/logger"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (defaults to :8080)")
	catalogDir := flag.String("catalog-dir", "", "directory of <id>.yaml scenario definitions (defaults to scenarios)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	dir := *catalogDir
	if dir == "" {
		if envDir := os.Getenv("SCENARIO_CATALOG_DIR"); envDir != "" {
			dir = envDir
		} else {
			dir = "scenarios"
		}
	}

	appLog := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "scenario-engine"})
	httpLog := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "scenario-http"})

	catalog := filecatalog.New(dir)
	engine := svc.New(catalog, nil, nil, svc.Config{
		MaxConcurrency:       cfg.MaxConcurrency,
		CleanupIntervalMs:    cfg.CleanupIntervalMs,
		CleanupTTLMs:         cfg.CleanupTTLMs,
		CleanupMaxExecutions: cfg.CleanupMaxExecutions,
		RequestTimeout:       cfg.RequestTimeout,
		UserAgent:            cfg.UserAgent,
	}, appLog)

	broadcaster := httpapi.NewBroadcaster(engine, httpLog)
	httpService := httpapi.NewService(engine, broadcaster, listenAddr, httpLog)

	ctx := context.Background()
	if err := httpService.Start(ctx); err != nil {
		log.Fatalf("start http service: %v", err)
	}
	fmt.Printf("scenario engine listening on %s (catalog: %s)\n", listenAddr, dir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpService.Stop(shutdownCtx); err != nil {
		log.Fatalf("shutdown http service: %v", err)
	}
	engine.Destroy()
}
