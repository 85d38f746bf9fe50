package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"easel/internal/artifacts"
	"easel/internal/config"
	"easel/internal/daemon"
	"easel/internal/logging"
	"easel/internal/progress"
	"easel/internal/runstore"
	"easel/internal/services/textgen"
	"easel/internal/services/upscaler"
	"easel/internal/video"
	"easel/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := runstore.Open(cfg)
	if err != nil {
		log.Fatalf("open run store: %v", err)
	}

	archive, err := artifacts.OpenStore(ctx, cfg.ArchiveBucketURL())
	if err != nil {
		log.Fatalf("open archive store: %v", err)
	}

	registry := progress.NewRegistry(cfg.Workflow.ObserverBuffer)
	manager, err := workflow.NewManager(
		cfg,
		logger,
		store,
		archive,
		registry,
		upscaler.NewHTTPClient(cfg, logger),
		textgen.NewClient(cfg, logger),
		video.NewCLI(cfg),
	)
	if err != nil {
		log.Fatalf("create workflow manager: %v", err)
	}

	d, err := daemon.New(cfg, logger, store, archive, manager)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("easeld shutting down")
}
