package sessions

import (
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/util"
	"github.com/labstack/echo/v4"
)

func GetServerStatusRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.GET("/:platform/server-status", getServerStatusHandler(s))
}

// getServerStatusHandler proxies the backend's view of the session, useful
// when the local state and the server disagree.
func getServerStatusHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		platform, err := platformParam(c)
		if err != nil {
			return err
		}

		status, err := s.Session.ServerStatus(ctx, platform)
		if err != nil {
			log.Warn().Err(err).Str("platform", string(platform)).Msg("Failed to fetch server session status")
			return mapSessionError(err)
		}

		return util.ValidateAndReturn(c, http.StatusOK, api.NewServerStatusResponse(platform, status))
	}
}
