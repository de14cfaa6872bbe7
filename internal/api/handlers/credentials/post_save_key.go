package credentials

import (
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/brickbee/go-trade-vault/internal/util"
	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
)

func PostSaveKeyRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Credentials.POST("", postSaveKeyHandler(s))
}

func postSaveKeyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body types.PostSaveKeyPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		platform := vault.Platform(swag.StringValue(body.Platform))
		storageType := vault.StorageTypeLocal
		if body.StorageType != "" {
			storageType = vault.StorageType(body.StorageType)
		}

		credential, err := s.Vault.SaveAPIKeyAuto(ctx, platform, swag.StringValue(body.APIKey), swag.StringValue(body.Password), storageType)
		if err != nil {
			if credential == nil {
				log.Warn().Err(err).Str("platform", string(platform)).Msg("Failed to save key")
				return mapVaultError(err)
			}

			// The credential was persisted but session creation failed. The
			// save still succeeds; the sessions list shows the error state.
			log.Warn().Err(err).Str("platform", string(platform)).Msg("Credential saved but session creation failed")
		}

		return util.ValidateAndReturn(c, http.StatusCreated, credentialResponse(credential))
	}
}
