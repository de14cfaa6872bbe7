package sessions

import (
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/session"
	"github.com/brickbee/go-trade-vault/internal/util"
	"github.com/labstack/echo/v4"
)

func GetSessionRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.GET("/:platform", getSessionHandler(s))
}

func getSessionHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		platform, err := platformParam(c)
		if err != nil {
			return err
		}

		sess := s.Session.GetSession(platform)
		if sess == nil {
			return mapSessionError(session.ErrNoSession)
		}

		return util.ValidateAndReturn(c, http.StatusOK, api.NewSessionResponse(sess))
	}
}
