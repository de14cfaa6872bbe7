// Package handlers attaches all route handlers to the server's router.
package handlers

import (
	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/api/handlers/credentials"
	"github.com/brickbee/go-trade-vault/internal/api/handlers/management"
	"github.com/brickbee/go-trade-vault/internal/api/handlers/sessions"
	"github.com/labstack/echo/v4"
)

func AttachAllRoutes(s *api.Server) []*echo.Route {
	return []*echo.Route{
		credentials.GetListKeysRoute(s),
		credentials.PostSaveKeyRoute(s),
		credentials.PostUnlockKeyRoute(s),
		credentials.DeleteKeyRoute(s),

		sessions.GetListSessionsRoute(s),
		sessions.GetSessionRoute(s),
		sessions.GetSessionTokenRoute(s),
		sessions.GetServerStatusRoute(s),
		sessions.GetSessionStatsRoute(s),
		sessions.PostRefreshSessionRoute(s),
		sessions.PostRecordRequestRoute(s),
		sessions.DeleteSessionRoute(s),

		management.GetHealthyRoute(s),
		management.GetMetricsRoute(s),
		management.GetReadyRoute(s),
	}
}
