package credentials

import (
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/brickbee/go-trade-vault/internal/util"
	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/labstack/echo/v4"
)

func GetListKeysRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Credentials.GET("", getListKeysHandler(s))
}

func getListKeysHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		credentials, err := s.Vault.ListCredentials(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list credentials")
			return mapVaultError(err)
		}

		response := &types.CredentialListResponse{
			Credentials: make([]*types.CredentialResponse, 0, len(credentials)),
		}
		for _, credential := range credentials {
			response.Credentials = append(response.Credentials, credentialResponse(credential))
		}

		return util.ValidateAndReturn(c, http.StatusOK, response)
	}
}

// credentialResponse converts to the public view: metadata only, the
// ciphertext never leaves the vault.
func credentialResponse(credential *vault.PlatformCredential) *types.CredentialResponse {
	return &types.CredentialResponse{
		ID:          swag.String(credential.ID),
		Platform:    swag.String(string(credential.Platform)),
		StorageType: swag.String(string(credential.StorageType)),
		Encrypted:   credential.Encrypted,
		CreatedAt:   strfmt.DateTime(credential.CreatedAt),
		Status:      swag.String(string(credential.Status)),
	}
}
