// Package main runs the idea workflow dashboard service: a local HTTP API
// backed by the secure gateway to the list-based content platform.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/config"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	if v := os.Getenv("DASHBOARD_CONFIG"); v != "" && *configPath == "" {
		*configPath = v
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.NewDefault("dashboard").WithError(err).Fatal("load configuration")
	}

	log := logger.New(logger.Config{
		Module: "dashboard",
		Level:  cfg.Logging.Level,
		JSON:   cfg.Logging.JSON,
	})

	application, err := app.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("start application")
	}
	log.WithField("site", cfg.SiteURL).Info("dashboard service started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown incomplete")
		os.Exit(1)
	}
}
