package credentials

import (
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/api/httperrors"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/brickbee/go-trade-vault/internal/util"
	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/labstack/echo/v4"
)

func DeleteKeyRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Credentials.DELETE("/:platform", deleteKeyHandler(s))
}

// deleteKeyHandler removes the stored credential and tears down any live
// execution session for the platform first.
func deleteKeyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		platform := vault.Platform(c.Param("platform"))
		if !platform.IsValid() {
			return httperrors.NewBadRequest("unknown platform")
		}

		var body types.DeleteKeyPayload
		if err := util.BindAndValidateBody(c, &body); err != nil {
			return err
		}

		storageType := vault.StorageTypeLocal
		if body.StorageType != "" {
			storageType = vault.StorageType(body.StorageType)
		}

		if err := s.Vault.DeleteAPIKeyAuto(ctx, platform, storageType); err != nil {
			log.Warn().Err(err).Str("platform", string(platform)).Msg("Failed to delete key")
			return mapVaultError(err)
		}

		return c.NoContent(http.StatusNoContent)
	}
}
