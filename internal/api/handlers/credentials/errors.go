package credentials

import (
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/api/httperrors"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/brickbee/go-trade-vault/pkg/crypto"
	"github.com/pkg/errors"
)

// mapVaultError translates vault failures into the public error envelope.
// Unknown errors pass through and become opaque 500s.
func mapVaultError(err error) error {
	switch {
	case errors.Is(err, vault.ErrUnknownPlatform):
		return httperrors.NewBadRequest("unknown platform")
	case errors.Is(err, vault.ErrNoLocalKey), errors.Is(err, vault.ErrCredentialNotFound):
		return httperrors.NewNotFound("no key stored for platform")
	case errors.Is(err, crypto.ErrDecryptFailed):
		return httperrors.NewHTTPError(http.StatusUnauthorized, types.PublicHTTPErrorTypeInvalidCredentials, "invalid password or corrupted vault entry")
	case errors.Is(err, vault.ErrServerStorageUnavailable):
		return httperrors.NewHTTPError(http.StatusServiceUnavailable, types.PublicHTTPErrorTypeGeneric, "server credential storage is not configured")
	default:
		return err
	}
}
