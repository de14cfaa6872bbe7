package management

import (
	"context"
	"net/http"
	"time"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/labstack/echo/v4"
)

func GetReadyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/ready", getReadyHandler(s))
}

// getReadyHandler reports readiness: all components wired and, when server
// custody is configured, redis reachable.
func getReadyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.Ready() {
			return c.String(http.StatusServiceUnavailable, "Not ready.")
		}

		if s.Redis != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := s.Redis.Ping(ctx).Err(); err != nil {
				return c.String(http.StatusServiceUnavailable, "Not ready.")
			}
		}

		return c.String(http.StatusOK, "Ready.")
	}
}
