// Package app wires the gateway, workflow service, board engine, and HTTP
// surface into one lifecycle-managed application.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/httpapi"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/services/board"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/services/workflow"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/system"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/config"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/sharepoint"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/pkg/logger"
)

// Application ties the services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Gateway  *sharepoint.Client
	Workflow *workflow.Service
	Board    *board.Engine

	server *http.Server
}

// New builds a fully initialised application from the configuration.
func New(cfg config.Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	gateway, err := sharepoint.New(sharepoint.Config{
		SiteURL:              cfg.SiteURL,
		HTTPClient:           &http.Client{Timeout: cfg.Gateway.Timeout},
		MaxRetries:           cfg.Gateway.MaxRetries,
		RetryBaseDelay:       cfg.Gateway.RetryBaseDelay,
		RequestSpacing:       cfg.Gateway.RequestSpacing,
		DigestCacheTTL:       cfg.Gateway.DigestCacheTTL,
		NoRetryOnClientError: cfg.Gateway.NoRetryOnClientError,
		Logger:               log.WithField("component", "gateway"),
	})
	if err != nil {
		return nil, fmt.Errorf("build gateway: %w", err)
	}

	wf, err := workflow.New(gateway, workflow.Lists{
		Ideas:       cfg.Lists.Ideas,
		Activity:    cfg.Lists.Activity,
		Discussions: cfg.Lists.Discussions,
	}, log.WithField("component", "workflow"))
	if err != nil {
		return nil, fmt.Errorf("build workflow service: %w", err)
	}

	engine := board.New(wf, board.Actor{
		Name: cfg.Actor.Name,
		ID:   cfg.Actor.ID,
	}, log.WithField("component", "board")).
		WithReconcileDelay(cfg.Board.ReconcileDelay)

	handler := httpapi.NewHandler(engine, httpapi.Config{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Logger:         log.WithField("component", "httpapi"),
	})
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	manager := system.NewManager()
	refresher := board.NewRefresher(engine, cfg.Board.RefreshInterval, log.WithField("component", "refresher"))

	// Stop order is the reverse: server first, then the refresher, the
	// engine last so in-flight reconciliation fetches finish before exit.
	services := []system.Service{
		engine,
		refresher,
		&httpService{server: server, log: log},
	}
	for _, svc := range services {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:  manager,
		log:      log,
		Gateway:  gateway,
		Workflow: wf,
		Board:    engine,
		server:   server,
	}, nil
}

// Start loads the initial board state and brings up all services.
func (a *Application) Start(ctx context.Context) error {
	if err := a.Board.LoadIdeas(ctx); err != nil {
		// The board starts empty and converges via the refresher.
		a.log.WithError(err).Warn("initial idea load failed")
	}
	return a.manager.Start(ctx)
}

// Stop shuts everything down in reverse order.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// httpService adapts http.Server to the lifecycle interface.
type httpService struct {
	server *http.Server
	log    *logger.Logger
}

func (s *httpService) Name() string { return "http-api" }

func (s *httpService) Start(ctx context.Context) error {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("http server terminated")
		}
	}()
	s.log.WithField("addr", s.server.Addr).Info("http api listening")
	return nil
}

func (s *httpService) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
