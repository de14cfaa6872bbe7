package sessions

import (
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/brickbee/go-trade-vault/internal/util"
	"github.com/labstack/echo/v4"
)

func GetListSessionsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.GET("", getListSessionsHandler(s))
}

func getListSessionsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessions := s.Session.Sessions()

		response := &types.SessionListResponse{
			Sessions: make([]*types.SessionResponse, 0, len(sessions)),
		}
		for _, sess := range sessions {
			response.Sessions = append(response.Sessions, api.NewSessionResponse(sess))
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}
