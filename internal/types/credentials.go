// Package types holds the request/response payloads of the local API.
package types

import (
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/pkg/errors"
)

// PostSaveKeyPayload saves a marketplace API key into the vault.
type PostSaveKeyPayload struct {
	Platform *string `json:"platform"`
	APIKey   *string `json:"apiKey"`
	// Password is the vault encryption password; it never leaves this
	// process.
	Password *string `json:"password"`
	// StorageType selects local or server custody; empty means local.
	StorageType string `json:"storageType,omitempty"`
}

func (p *PostSaveKeyPayload) Validate() error {
	if swag.StringValue(p.Platform) == "" {
		return errors.New("platform is required")
	}
	if swag.StringValue(p.APIKey) == "" {
		return errors.New("apiKey is required")
	}
	if swag.StringValue(p.Password) == "" {
		return errors.New("password is required")
	}
	return nil
}

// PostUnlockKeyPayload unlocks a stored key and mints an execution session.
type PostUnlockKeyPayload struct {
	Password *string `json:"password"`
	// StorageType selects the custody backend to unlock from; empty means
	// local.
	StorageType string `json:"storageType,omitempty"`
}

func (p *PostUnlockKeyPayload) Validate() error {
	if swag.StringValue(p.Password) == "" {
		return errors.New("password is required")
	}
	return nil
}

// DeleteKeyPayload optionally selects the custody backend to delete from.
type DeleteKeyPayload struct {
	StorageType string `json:"storageType,omitempty"`
}

// CredentialResponse is the public view of a stored credential: metadata
// only, never ciphertext and never plaintext.
type CredentialResponse struct {
	ID          *string         `json:"id"`
	Platform    *string         `json:"platform"`
	StorageType *string         `json:"storageType"`
	Encrypted   bool            `json:"encrypted"`
	CreatedAt   strfmt.DateTime `json:"createdAt"`
	Status      *string         `json:"status"`
}

// CredentialListResponse wraps the credential listing.
type CredentialListResponse struct {
	Credentials []*CredentialResponse `json:"credentials"`
}
