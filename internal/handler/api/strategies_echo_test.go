package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalPull/internal/domain/models"
	"SignalPull/internal/service/ratelimit"
	"SignalPull/internal/usecase"
	"SignalPull/pkg/logger"
)

type fakeEngine struct {
	strategy  models.Strategy
	trigger   models.Trigger
	snap      models.Snapshot
	activated bool
	err       error
	dismissed int
}

func (f *fakeEngine) Strategy() models.Strategy { return f.strategy }
func (f *fakeEngine) Trigger() models.Trigger   { return f.trigger }
func (f *fakeEngine) Snapshot() models.Snapshot { return f.snap }

func (f *fakeEngine) RequestTimingSignal(context.Context) (bool, models.Snapshot, error) {
	if f.err != nil {
		return false, models.Snapshot{}, f.err
	}
	return f.activated, f.snap, nil
}

func (f *fakeEngine) Dismiss(context.Context) (models.Snapshot, error) {
	if f.err != nil {
		return models.Snapshot{}, f.err
	}
	f.dismissed++
	return f.snap, nil
}

type fakeJournal struct {
	events []models.OutcomeEvent
	limit  int
	err    error
}

func (j *fakeJournal) StoreBatch(context.Context, []models.OutcomeEvent) error { return nil }
func (j *fakeJournal) Health(context.Context) error                            { return nil }
func (j *fakeJournal) Close() error                                            { return nil }

func (j *fakeJournal) Recent(_ context.Context, limit int) ([]models.OutcomeEvent, error) {
	j.limit = limit
	return j.events, j.err
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func window(n int) models.OutcomeWindow {
	base := time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC)
	w := make(models.OutcomeWindow, n)
	for i := range w {
		w[i] = models.OutcomeEvent{ID: string(rune('a' + i)), Roll: 9, Category: models.Black, OccurredAt: base.Add(-time.Duration(i) * time.Minute)}
	}
	return w
}

func newEcho(h *StrategiesEchoHandler) *echo.Echo {
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestListAndGet(t *testing.T) {
	colors := &fakeEngine{strategy: models.StrategyColors, trigger: models.TriggerTick,
		snap: models.Snapshot{Strategy: models.StrategyColors, Sequence: 7, Source: models.SourceLive}}
	white := &fakeEngine{strategy: models.StrategyWhite, trigger: models.TriggerManual}
	e := newEcho(NewStrategiesEchoHandler(logger.Nop(), []StrategyEngine{colors, white}))

	code, env := do(t, e, http.MethodGet, "/api/strategies")
	require.Equal(t, http.StatusOK, code)
	var list []models.StrategySummary
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, models.StrategyColors, list[0].Strategy)
	assert.Equal(t, uint64(7), list[0].Sequence)
	assert.Equal(t, models.TriggerManual, list[1].Trigger)

	code, env = do(t, e, http.MethodGet, "/api/strategies/colors")
	require.Equal(t, http.StatusOK, code)
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, uint64(7), snap.Sequence)

	code, _ = do(t, e, http.MethodGet, "/api/strategies/purple")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestWindowLimit(t *testing.T) {
	colors := &fakeEngine{strategy: models.StrategyColors, snap: models.Snapshot{Window: window(20)}}
	e := newEcho(NewStrategiesEchoHandler(logger.Nop(), []StrategyEngine{colors}))

	code, env := do(t, e, http.MethodGet, "/api/strategies/colors/window?limit=5")
	require.Equal(t, http.StatusOK, code)
	var w models.OutcomeWindow
	require.NoError(t, json.Unmarshal(env.Data, &w))
	assert.Len(t, w, 5)
	assert.Equal(t, "a", w[0].ID)

	code, env = do(t, e, http.MethodGet, "/api/strategies/colors/window")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &w))
	assert.Len(t, w, 20)

	code, _ = do(t, e, http.MethodGet, "/api/strategies/colors/window?limit=21")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTimingAction(t *testing.T) {
	white := &fakeEngine{strategy: models.StrategyWhite, trigger: models.TriggerManual, activated: true,
		snap: models.Snapshot{Strategy: models.StrategyWhite, Transition: models.TransitionActivated}}
	colors := &fakeEngine{strategy: models.StrategyColors, err: usecase.ErrNotManual}
	e := newEcho(NewStrategiesEchoHandler(logger.Nop(), []StrategyEngine{colors, white}))

	code, env := do(t, e, http.MethodPost, "/api/strategies/white/timing")
	require.Equal(t, http.StatusOK, code)
	var tr models.TimingResponse
	require.NoError(t, json.Unmarshal(env.Data, &tr))
	assert.True(t, tr.Activated)
	assert.Equal(t, models.TransitionActivated, tr.Snapshot.Transition)

	code, _ = do(t, e, http.MethodPost, "/api/strategies/colors/timing")
	assert.Equal(t, http.StatusConflict, code)
}

func TestDismissAction(t *testing.T) {
	colors := &fakeEngine{strategy: models.StrategyColors}
	closed := &fakeEngine{strategy: models.StrategyWhite, err: usecase.ErrEngineClosed}
	e := newEcho(NewStrategiesEchoHandler(logger.Nop(), []StrategyEngine{colors, closed}))

	code, _ := do(t, e, http.MethodPost, "/api/strategies/colors/dismiss")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, colors.dismissed)

	code, _ = do(t, e, http.MethodPost, "/api/strategies/white/dismiss")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestRecentOutcomes(t *testing.T) {
	e := newEcho(NewStrategiesEchoHandler(logger.Nop(), nil))
	code, _ := do(t, e, http.MethodGet, "/api/outcomes/recent")
	assert.Equal(t, http.StatusNotFound, code)

	j := &fakeJournal{events: window(3)}
	e = newEcho(NewStrategiesEchoHandler(logger.Nop(), nil, WithJournal(j)))
	code, env := do(t, e, http.MethodGet, "/api/outcomes/recent?limit=3")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, j.limit)
	var got []models.OutcomeEvent
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Len(t, got, 3)

	j.err = errors.New("db down")
	code, _ = do(t, e, http.MethodGet, "/api/outcomes/recent")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, 50, j.limit)
}

func TestActionRateLimit(t *testing.T) {
	colors := &fakeEngine{strategy: models.StrategyColors}
	h := NewStrategiesEchoHandler(logger.Nop(), []StrategyEngine{colors},
		WithActionLimits(RateLimit(ratelimit.New(0.001, 2))))
	e := newEcho(h)

	for i := 0; i < 2; i++ {
		code, _ := do(t, e, http.MethodPost, "/api/strategies/colors/dismiss")
		require.Equal(t, http.StatusOK, code)
	}
	code, _ := do(t, e, http.MethodPost, "/api/strategies/colors/dismiss")
	assert.Equal(t, http.StatusTooManyRequests, code)

	code, _ = do(t, e, http.MethodGet, "/api/strategies/colors")
	assert.Equal(t, http.StatusOK, code, "reads are not limited")
}
