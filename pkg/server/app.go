package server

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"SignalPull/internal/handler/ws"
	mid "SignalPull/internal/middleware"
	"SignalPull/internal/service/ratelimit"
	"SignalPull/internal/usecase"
	xhttp "SignalPull/pkg/http"
	applogger "SignalPull/pkg/logger"
)

const (
	limiterSweep = time.Minute
	limiterIdle  = 10 * time.Minute
)

// App encapsulates the entire application lifecycle.
type App struct {
	log        *applogger.Logger
	scheduler  *usecase.Scheduler
	httpServer *xhttp.Server
	journal    *mid.JournalPipeline
	hub        *ws.Hub
	limiter    *ratelimit.Limiter
}

// New creates a new App. journal may be nil.
func New(
	l *applogger.Logger,
	scheduler *usecase.Scheduler,
	httpServer *xhttp.Server,
	journal *mid.JournalPipeline,
	hub *ws.Hub,
	limiter *ratelimit.Limiter,
) *App {
	return &App{
		log:        l,
		scheduler:  scheduler,
		httpServer: httpServer,
		journal:    journal,
		hub:        hub,
		limiter:    limiter,
	}
}

// Run starts the engines and the HTTP server and blocks until ctx is done or
// one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a.journal != nil {
		// Stopped explicitly in shutdown so the last batch is flushed.
		a.journal.Start(context.WithoutCancel(ctx))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.scheduler.Run(gctx) })
	g.Go(func() error { return a.httpServer.Run(gctx) })
	g.Go(func() error {
		a.sweepLimiter(gctx)
		return nil
	})

	err := g.Wait()
	a.shutdown()
	return err
}

// shutdown runs after the scheduler has closed every engine, so no snapshot
// reaches the journal or the hub afterwards.
func (a *App) shutdown() {
	a.log.Info("shutting down...")
	if a.journal != nil {
		a.journal.Stop()
	}
	a.hub.Close()
	a.log.Info("shutdown complete")
}

func (a *App) sweepLimiter(ctx context.Context) {
	t := time.NewTicker(limiterSweep)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.limiter.Forget(limiterIdle)
		}
	}
}
