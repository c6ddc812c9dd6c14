package api

import (
	"github.com/labstack/echo/v4"

	"SignalPull/internal/service/ratelimit"
	xhttp "SignalPull/pkg/http"
)

// RateLimit throttles requests per session token, falling back to the client IP
// when no session gate ran before it.
func RateLimit(l *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, _ := c.Get(SessionContextKey).(string)
			if key == "" {
				key = "ip:" + c.RealIP()
			}
			if !l.Allow(key) {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many actions, slow down"))
			}
			return next(c)
		}
	}
}
