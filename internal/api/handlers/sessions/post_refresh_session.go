package sessions

import (
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/api/httperrors"
	"github.com/brickbee/go-trade-vault/internal/session"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/brickbee/go-trade-vault/internal/util"
	"github.com/labstack/echo/v4"
)

func PostRefreshSessionRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.POST("/:platform/refresh", postRefreshSessionHandler(s))
}

// postRefreshSessionHandler forces an immediate refresh. A failed explicit
// refresh expires the session, unlike the lazy pre-expiry refresh which keeps
// serving the still-valid token.
func postRefreshSessionHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		platform, err := platformParam(c)
		if err != nil {
			return err
		}

		if err := s.Session.RefreshSession(ctx, platform); err != nil {
			log.Warn().Err(err).Str("platform", string(platform)).Msg("Failed to refresh session")
			if mapped := mapSessionError(err); mapped != err {
				return mapped
			}
			// Backend refusal or network failure: the session was expired as
			// part of the failed explicit refresh.
			return httperrors.NewHTTPError(http.StatusBadGateway, types.PublicHTTPErrorTypeSessionExpired, "session refresh failed, unlock the key again")
		}

		sess := s.Session.GetSession(platform)
		if sess == nil {
			return mapSessionError(session.ErrNoSession)
		}

		return util.ValidateAndReturn(c, http.StatusOK, api.NewSessionResponse(sess))
	}
}
