package api

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"SignalPull/internal/domain/models"
	domrepo "SignalPull/internal/domain/repository"
	"SignalPull/internal/usecase"
	xhttp "SignalPull/pkg/http"
	xlogger "SignalPull/pkg/logger"
)

// StrategyEngine is the part of usecase.Engine the HTTP layer uses.
type StrategyEngine interface {
	Strategy() models.Strategy
	Trigger() models.Trigger
	Snapshot() models.Snapshot
	RequestTimingSignal(ctx context.Context) (bool, models.Snapshot, error)
	Dismiss(ctx context.Context) (models.Snapshot, error)
}

// StrategiesEchoHandler exposes snapshots and operator actions for every enabled strategy.
type StrategiesEchoHandler struct {
	logger  *xlogger.Logger
	order   []models.Strategy
	engines map[models.Strategy]StrategyEngine
	journal domrepo.OutcomeStore
	stream  echo.HandlerFunc

	gate    []echo.MiddlewareFunc
	actions []echo.MiddlewareFunc
}

type HandlerOption func(*StrategiesEchoHandler)

// WithJournal enables the recent outcomes endpoint.
func WithJournal(store domrepo.OutcomeStore) HandlerOption {
	return func(h *StrategiesEchoHandler) { h.journal = store }
}

// WithStream mounts a snapshot stream at /api/stream.
func WithStream(fn echo.HandlerFunc) HandlerOption {
	return func(h *StrategiesEchoHandler) { h.stream = fn }
}

// WithGate guards every /api route.
func WithGate(mw ...echo.MiddlewareFunc) HandlerOption {
	return func(h *StrategiesEchoHandler) { h.gate = append(h.gate, mw...) }
}

// WithActionLimits guards the state-changing routes only.
func WithActionLimits(mw ...echo.MiddlewareFunc) HandlerOption {
	return func(h *StrategiesEchoHandler) { h.actions = append(h.actions, mw...) }
}

func NewStrategiesEchoHandler(logger *xlogger.Logger, engines []StrategyEngine, opts ...HandlerOption) *StrategiesEchoHandler {
	h := &StrategiesEchoHandler{
		logger:  logger,
		engines: make(map[models.Strategy]StrategyEngine, len(engines)),
	}
	for _, e := range engines {
		h.order = append(h.order, e.Strategy())
		h.engines[e.Strategy()] = e
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *StrategiesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api", h.gate...)
	g.GET("/strategies", h.List)
	g.GET("/strategies/:strategy", h.Get)
	g.GET("/strategies/:strategy/window", h.Window)
	g.POST("/strategies/:strategy/timing", h.Timing, h.actions...)
	g.POST("/strategies/:strategy/dismiss", h.Dismiss, h.actions...)
	g.GET("/outcomes/recent", h.RecentOutcomes)
	if h.stream != nil {
		g.GET("/stream", h.stream)
	}
}

func (h *StrategiesEchoHandler) List(c echo.Context) error {
	out := make([]models.StrategySummary, 0, len(h.order))
	for _, s := range h.order {
		e := h.engines[s]
		snap := e.Snapshot()
		out = append(out, models.StrategySummary{
			Strategy:             s,
			Trigger:              e.Trigger(),
			Signal:               snap.Signal,
			Source:               snap.Source,
			Sequence:             snap.Sequence,
			ConsecutiveFallbacks: snap.ConsecutiveFallbacks,
		})
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *StrategiesEchoHandler) Get(c echo.Context) error {
	e, ok := h.engine(c)
	if !ok {
		return h.notEnabled(c)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, e.Snapshot())
}

func (h *StrategiesEchoHandler) Window(c echo.Context) error {
	req := &models.WindowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	e, ok := h.engines[models.Strategy(req.Strategy)]
	if !ok {
		return h.notEnabled(c)
	}
	w := e.Snapshot().Window
	if len(w) > req.Limit {
		w = w[:req.Limit]
	}
	return xhttp.SuccessResponse(c, w)
}

func (h *StrategiesEchoHandler) Timing(c echo.Context) error {
	e, ok := h.engine(c)
	if !ok {
		return h.notEnabled(c)
	}
	activated, snap, err := e.RequestTimingSignal(c.Request().Context())
	if err != nil {
		return h.actionError(c, "timing", err)
	}
	return xhttp.SuccessResponse(c, models.TimingResponse{Activated: activated, Snapshot: snap})
}

func (h *StrategiesEchoHandler) Dismiss(c echo.Context) error {
	e, ok := h.engine(c)
	if !ok {
		return h.notEnabled(c)
	}
	snap, err := e.Dismiss(c.Request().Context())
	if err != nil {
		return h.actionError(c, "dismiss", err)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *StrategiesEchoHandler) RecentOutcomes(c echo.Context) error {
	if h.journal == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("outcome journal is disabled"))
	}
	req := &models.RecentOutcomesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	events, err := h.journal.Recent(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("recent outcomes query failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if events == nil {
		events = []models.OutcomeEvent{}
	}
	return xhttp.SuccessResponse(c, events)
}

// engine resolves the :strategy path parameter.
func (h *StrategiesEchoHandler) engine(c echo.Context) (StrategyEngine, bool) {
	e, ok := h.engines[models.Strategy(c.Param("strategy"))]
	return e, ok
}

func (h *StrategiesEchoHandler) notEnabled(c echo.Context) error {
	return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("strategy %q is not enabled", c.Param("strategy")))
}

func (h *StrategiesEchoHandler) actionError(c echo.Context, action string, err error) error {
	switch {
	case errors.Is(err, usecase.ErrNotManual):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	case errors.Is(err, usecase.ErrEngineClosed):
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("engine is shutting down").WithError(err))
	default:
		h.logger.Error(action+" action failed", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
}
