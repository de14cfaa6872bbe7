package vault

import (
	"time"

	"github.com/brickbee/go-trade-vault/pkg/crypto"
)

// Platform identifies a third-party marketplace the dashboard trades on.
type Platform string

const (
	PlatformBuff     Platform = "buff"
	PlatformSkinport Platform = "skinport"
	PlatformCSFloat  Platform = "csfloat"
	PlatformDMarket  Platform = "dmarket"
	PlatformWaxpeer  Platform = "waxpeer"
)

// KnownPlatforms lists every platform the vault accepts credentials for.
var KnownPlatforms = []Platform{
	PlatformBuff,
	PlatformSkinport,
	PlatformCSFloat,
	PlatformDMarket,
	PlatformWaxpeer,
}

// IsValid reports whether p is one of the known marketplaces.
func (p Platform) IsValid() bool {
	for _, known := range KnownPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// StorageType selects where the encrypted credential blob is kept.
type StorageType string

const (
	// StorageTypeLocal keeps the blob in the local file vault.
	StorageTypeLocal StorageType = "local"
	// StorageTypeServer keeps the blob in the shared Redis custody store.
	StorageTypeServer StorageType = "server"
)

// CredentialStatus 凭证状态
type CredentialStatus string

const (
	CredentialStatusValid   CredentialStatus = "valid"
	CredentialStatusInvalid CredentialStatus = "invalid"
)

// PlatformCredential is the persisted, encrypted-at-rest record of one
// marketplace API key. The plaintext key never appears in this structure or
// in any persisted storage.
type PlatformCredential struct {
	ID            string                   `json:"id"`
	Platform      Platform                 `json:"platform"`
	StorageType   StorageType              `json:"storageType"`
	Encrypted     bool                     `json:"encrypted"`
	EncryptedData *crypto.EncryptedPayload `json:"encryptedData"`
	CreatedAt     time.Time                `json:"createdAt"`
	Status        CredentialStatus         `json:"status"`
}
