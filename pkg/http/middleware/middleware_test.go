package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"SignalPull/pkg/logger"
)

func TestRouteLabel(t *testing.T) {
	e := echo.New()
	e.Use(Route())
	var got string
	e.GET("/api/:id", func(c echo.Context) error {
		got = routeLabel(c.Request())
		return c.NoContent(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/42", nil))
	assert.Equal(t, "/api/:id", got)
}

func TestRecover(t *testing.T) {
	e := echo.New()
	e.Use(Recover(logger.Nop()))
	e.GET("/boom", func(c echo.Context) error { panic("boom") })
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
