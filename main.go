// ShogiPlay - an authoritative realtime shogi server
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/shogiplay/internal/config"
	"github.com/hailam/shogiplay/internal/server"
	"github.com/hailam/shogiplay/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir, err = storage.DefaultDataDir()
		if err != nil {
			logger.Fatal("resolve data dir", zap.Error(err))
		}
	}
	dbDir, err := storage.DatabaseDir(dataDir)
	if err != nil {
		logger.Fatal("resolve database dir", zap.Error(err))
	}

	store, err := storage.Open(dbDir, logger)
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}
	defer store.Close()

	hub := server.NewHub(cfg, store, logger)
	if err := hub.LoadFromStore(); err != nil {
		logger.Fatal("restore rooms", zap.Error(err))
	}

	srv := server.New(cfg, hub, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx) })
	g.Go(func() error { return hub.RunGC(ctx) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
