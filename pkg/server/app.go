package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"StockPulse/internal/handler/api"
	internalrepo "StockPulse/internal/repository"
	"StockPulse/internal/scheduler"
	"StockPulse/internal/service/feed"
	domrepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/usecase"
	"StockPulse/pkg/cache"
	pkgch "StockPulse/pkg/clickhouse"
	"StockPulse/pkg/config"
	xhttp "StockPulse/pkg/http"
	applogger "StockPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	lifecycle  *usecase.Lifecycle
	sched      *scheduler.Scheduler
	stream     *feed.Client
	handler    *api.PipelineEchoHandler
	store      *internalrepo.BadgerStore
	chClient   *pkgch.Client
	events     domrepo.EventPublisher
	locks      cache.Service
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	lifecycle *usecase.Lifecycle,
	sched *scheduler.Scheduler,
	stream *feed.Client,
	handler *api.PipelineEchoHandler,
	store *internalrepo.BadgerStore,
	chClient *pkgch.Client,
	events domrepo.EventPublisher,
	locks cache.Service,
) *App {
	return &App{
		cfg:       cfg,
		l:         l,
		lifecycle: lifecycle,
		sched:     sched,
		stream:    stream,
		handler:   handler,
		store:     store,
		chClient:  chClient,
		events:    events,
		locks:     locks,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reinstall the persisted models so serving survives restarts.
	if err := a.lifecycle.Restore(ctx); err != nil {
		a.l.Warn("model restore failed", applogger.Error(err))
	}

	a.httpServer = xhttp.NewServer(a.handler, a.l,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	go a.sched.Run(ctx)
	a.l.Info("scheduler started")

	if a.stream != nil {
		go a.stream.Run(ctx)
		a.l.Info("quote stream started", applogger.Strings("symbols", a.cfg.Feed.Symbols))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.sched.Stop()

	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			a.l.Warn("quote stream close error", applogger.Error(err))
		}
	}

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	// Flush any aggregated error logs before the event log goes away.
	a.l.RemoveCollector()

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.l.Warn("event log close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.l.Warn("store close error", applogger.Error(err))
		}
	}

	if a.locks != nil {
		if err := a.locks.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
