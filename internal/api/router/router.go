// Package router initializes echo and attaches all route handlers.
package router

import (
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/api/handlers"
	"github.com/brickbee/go-trade-vault/internal/api/httperrors"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

func Init(s *api.Server) {
	s.Echo = echo.New()
	s.Echo.Debug = false
	s.Echo.HideBanner = true
	s.Echo.HTTPErrorHandler = errorHandler(s)

	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.RequestID())
	s.Echo.Use(middleware.Logger())

	s.Router = &api.Router{
		Routes:           nil,
		Root:             s.Echo.Group(""),
		Management:       s.Echo.Group("/-"),
		APIV1Credentials: s.Echo.Group("/api/v1/credentials"),
		APIV1Sessions:    s.Echo.Group("/api/v1/sessions"),
	}

	s.Router.Routes = handlers.AttachAllRoutes(s)
}

// errorHandler serializes the public error envelope. Handlers return either
// *httperrors.HTTPError directly or plain errors, which become opaque 500s
// unless detail exposure is enabled.
func errorHandler(s *api.Server) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpError *httperrors.HTTPError

		switch e := err.(type) {
		case *httperrors.HTTPError:
			httpError = e
		case *echo.HTTPError:
			httpError = &httperrors.HTTPError{
				Code: e.Code,
				Type: types.PublicHTTPErrorTypeGeneric,
			}
			if msg, ok := e.Message.(string); ok {
				httpError.Title = msg
			} else {
				httpError.Title = http.StatusText(e.Code)
			}
		default:
			httpError = &httperrors.HTTPError{
				Code:  http.StatusInternalServerError,
				Type:  types.PublicHTTPErrorTypeGeneric,
				Title: http.StatusText(http.StatusInternalServerError),
			}
			if !s.Config.Echo.HideInternalServerErrorDetails {
				httpError.Title = err.Error()
			}
		}

		if writeErr := c.JSON(httpError.Code, httpError); writeErr != nil {
			log.Error().Err(writeErr).Msg("Failed to write error response")
		}
	}
}
