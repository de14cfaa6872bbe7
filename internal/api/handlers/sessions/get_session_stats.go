package sessions

import (
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/brickbee/go-trade-vault/internal/util"
	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
)

func GetSessionStatsRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.GET("/:platform/stats", getSessionStatsHandler(s))
}

func getSessionStatsHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		platform, err := platformParam(c)
		if err != nil {
			return err
		}

		stats := s.Session.GetStats(platform)

		response := &types.SessionStatsResponse{
			Platform: swag.String(string(platform)),
		}
		if stats != nil {
			response.TotalRequests = stats.TotalRequests
			response.SuccessCount = stats.SuccessCount
			response.FailureCount = stats.FailureCount
			response.AvgResponseTimeMs = stats.AvgResponseTime
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}
