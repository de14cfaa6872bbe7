package sessions

import (
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/brickbee/go-trade-vault/internal/util"
	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
)

func GetSessionTokenRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.GET("/:platform/token", getSessionTokenHandler(s))
}

// getSessionTokenHandler hands out a currently valid execution token,
// refreshing when the session is inside its refresh window.
func getSessionTokenHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		platform, err := platformParam(c)
		if err != nil {
			return err
		}

		token, err := s.Session.GetValidToken(ctx, platform)
		if err != nil {
			log.Warn().Err(err).Str("platform", string(platform)).Msg("No valid token available")
			return mapSessionError(err)
		}

		response := &types.SessionTokenResponse{
			Platform:       swag.String(string(platform)),
			ExecutionToken: swag.String(token),
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}
