package sessions

import (
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/api/httperrors"
	"github.com/brickbee/go-trade-vault/internal/session"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// platformParam validates the :platform path parameter.
func platformParam(c echo.Context) (vault.Platform, error) {
	platform := vault.Platform(c.Param("platform"))
	if !platform.IsValid() {
		return "", httperrors.NewBadRequest("unknown platform")
	}
	return platform, nil
}

// mapSessionError translates session lifecycle failures into the public
// error envelope. Unknown errors pass through and become opaque 500s.
func mapSessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return httperrors.NewHTTPError(http.StatusNotFound, types.PublicHTTPErrorTypeSessionRequired, "no session for platform, unlock the key first")
	case errors.Is(err, session.ErrSessionExpired):
		return httperrors.NewHTTPError(http.StatusUnauthorized, types.PublicHTTPErrorTypeSessionExpired, "session expired, unlock the key again")
	case errors.Is(err, session.ErrSessionFailed):
		return httperrors.NewHTTPError(http.StatusConflict, types.PublicHTTPErrorTypeSessionRequired, "session is in error state, unlock the key again")
	default:
		return err
	}
}
