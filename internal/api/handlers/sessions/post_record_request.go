package sessions

import (
	"net/http"
	"time"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/brickbee/go-trade-vault/internal/util"
	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
)

func PostRecordRequestRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Sessions.POST("/:platform/record", postRecordRequestHandler(s))
}

// postRecordRequestHandler ingests the outcome of one proxied marketplace
// call so per-platform usage statistics stay accurate.
func postRecordRequestHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		platform, err := platformParam(c)
		if err != nil {
			return err
		}

		var body types.PostRecordRequestPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		responseTime := time.Duration(swag.Int64Value(body.ResponseTimeMs)) * time.Millisecond
		s.Session.RecordRequest(platform, swag.BoolValue(body.Success), responseTime)

		return c.NoContent(http.StatusNoContent)
	}
}
