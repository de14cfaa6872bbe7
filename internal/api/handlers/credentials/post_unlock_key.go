package credentials

import (
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/api/httperrors"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/brickbee/go-trade-vault/internal/util"
	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
)

func PostUnlockKeyRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Credentials.POST("/:platform/unlock", postUnlockKeyHandler(s))
}

// postUnlockKeyHandler decrypts the stored key and mints an execution
// session. The plaintext key is never part of the response; callers consume
// the resulting session through the sessions API.
func postUnlockKeyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		platform := vault.Platform(c.Param("platform"))
		if !platform.IsValid() {
			return httperrors.NewBadRequest("unknown platform")
		}

		var body types.PostUnlockKeyPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		unlock := s.Vault.UnlockLocalKey
		if body.StorageType == string(vault.StorageTypeServer) {
			unlock = s.Vault.UnlockServerKey
		}

		if _, err := unlock(ctx, platform, swag.StringValue(body.Password)); err != nil {
			log.Warn().Err(err).Str("platform", string(platform)).Msg("Failed to unlock key")
			return mapVaultError(err)
		}

		sess := s.Session.GetSession(platform)
		if sess == nil {
			// Unlock succeeded but no session record exists, which should not
			// happen; report it rather than fabricating a response.
			log.Error().Str("platform", string(platform)).Msg("Unlock succeeded but no session was recorded")
			return httperrors.NewHTTPError(http.StatusInternalServerError, types.PublicHTTPErrorTypeGeneric, "session was not created")
		}

		return util.ValidateAndReturn(c, http.StatusOK, api.NewSessionResponse(sess))
	}
}
