package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalPull/pkg/logger"
)

type setStore map[string]bool

func (s setStore) Exists(_ context.Context, keys ...string) (bool, error) {
	for _, k := range keys {
		if s[k] {
			return true, nil
		}
	}
	return false, nil
}

type brokenStore struct{}

func (brokenStore) Exists(context.Context, ...string) (bool, error) {
	return false, errors.New("redis down")
}

func gated(store SessionStore) *echo.Echo {
	e := echo.New()
	g := e.Group("", SessionGate(store, "X-Session-Token", logger.Nop()))
	g.GET("/x", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get(SessionContextKey).(string))
	})
	return e
}

type appErrorBody struct {
	Status int `json:"status"`
	Data   []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"data"`
}

func TestSessionGate(t *testing.T) {
	e := gated(setStore{"session:good": true})

	tests := []struct {
		name   string
		header string
		query  string
		status int
		code   string
	}{
		{"missing", "", "", http.StatusUnauthorized, "ERR_UNAUTHORIZED"},
		{"unknown", "bad", "", http.StatusUnauthorized, "ERR_UNAUTHORIZED"},
		{"header", "good", "", http.StatusOK, ""},
		{"query", "", "?token=good", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("X-Session-Token", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "good", rec.Body.String())
				return
			}
			var body appErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Status)
			require.Len(t, body.Data, 1)
			assert.Equal(t, tt.code, body.Data[0].Code)
		})
	}
}

func TestSessionGateStoreError(t *testing.T) {
	e := gated(brokenStore{})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Session-Token", "any")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body appErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "ERR_UNAVAILABLE", body.Data[0].Code)
	assert.Equal(t, "session store unavailable", body.Data[0].Message)
	assert.NotContains(t, rec.Body.String(), "redis down")
}
