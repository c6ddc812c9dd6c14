package api

import (
	"context"

	"github.com/labstack/echo/v4"

	xhttp "SignalPull/pkg/http"
	"SignalPull/pkg/logger"
)

// SessionContextKey is where SessionGate stores the accepted token.
const SessionContextKey = "session_token"

// SessionKeyPrefix namespaces session tokens in the session store.
const SessionKeyPrefix = "session:"

// SessionStore reports whether any of the keys exists.
type SessionStore interface {
	Exists(ctx context.Context, keys ...string) (bool, error)
}

// SessionGate rejects requests whose token is not a live session. The token is
// read from header, or from the "token" query parameter for WebSocket clients.
func SessionGate(store SessionStore, header string, l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(header)
			if token == "" {
				token = c.QueryParam("token")
			}
			if token == "" {
				return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("session token is required"))
			}

			ok, err := store.Exists(c.Request().Context(), SessionKeyPrefix+token)
			if err != nil {
				l.Error("session lookup failed", logger.Error(err))
				return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("session store unavailable").WithError(err))
			}
			if !ok {
				return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("session is not active"))
			}

			c.Set(SessionContextKey, token)
			return next(c)
		}
	}
}
