package sessions

import (
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/util"
	"github.com/labstack/echo/v4"
)

func DeleteSessionRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.DELETE("/:platform", deleteSessionHandler(s))
}

// deleteSessionHandler tears the session down. Destroying a platform with no
// session is a no-op, so this always succeeds.
func deleteSessionHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		platform, err := platformParam(c)
		if err != nil {
			return err
		}

		s.Session.DestroySession(ctx, platform)
		log.Info().Str("platform", string(platform)).Msg("Session destroy requested")

		return c.NoContent(http.StatusNoContent)
	}
}
