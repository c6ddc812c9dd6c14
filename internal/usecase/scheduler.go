package usecase

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"SignalPull/pkg/logger"
)

// Scheduler drives one ticker per engine. Each engine ticks once immediately,
// then every interval; a tick runs to completion before the next is taken.
type Scheduler struct {
	engines []*Engine
	log     *logger.Logger
}

func NewScheduler(engines []*Engine, log *logger.Logger) *Scheduler {
	return &Scheduler{engines: engines, log: log}
}

// Run blocks until ctx is cancelled, then closes every engine.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range s.engines {
		g.Go(func() error {
			return s.loop(gctx, e)
		})
	}
	err := g.Wait()
	for _, e := range s.engines {
		e.Close()
	}
	return err
}

func (s *Scheduler) loop(ctx context.Context, e *Engine) error {
	s.log.Info("engine started",
		logger.String("strategy", string(e.Strategy())),
		logger.String("trigger", string(e.Trigger())),
		logger.Duration("interval_ms", e.Interval()),
	)

	if stop := s.tick(ctx, e); stop {
		return nil
	}

	ticker := time.NewTicker(e.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if stop := s.tick(ctx, e); stop {
				return nil
			}
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, e *Engine) (stop bool) {
	err := e.Tick(ctx)
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrEngineClosed), ctx.Err() != nil:
		return true
	default:
		s.log.Error("tick failed", logger.String("strategy", string(e.Strategy())), logger.Error(err))
		return false
	}
}
