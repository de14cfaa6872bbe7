// Package vault implements the local credential vault: encrypted-at-rest
// storage of marketplace API keys and the unlock/save/remove operations the
// dashboard exposes. The vault manager is the only component permitted to
// hold a decrypted plaintext key, and only transiently while handing it to
// session creation.
package vault

import (
	"context"

	"github.com/brickbee/go-trade-vault/pkg/crypto"
	"github.com/dropbox/godropbox/time2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNoLocalKey is returned when unlock is attempted for a platform with
	// nothing stored.
	ErrNoLocalKey = errors.New("no key stored for platform")
	// ErrCredentialNotFound is returned by credential stores for missing
	// entries.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrUnknownPlatform is returned for platforms outside KnownPlatforms.
	ErrUnknownPlatform = errors.New("unknown platform")
	// ErrServerStorageUnavailable is returned when the server custody path is
	// requested but no custody store is configured.
	ErrServerStorageUnavailable = errors.New("server credential storage is not configured")
)

// CredentialStore persists encrypted platform credentials. Implementations
// only ever see ciphertext; encryption happens in the manager.
type CredentialStore interface {
	// Save stores or replaces the credential for its platform.
	Save(ctx context.Context, credential *PlatformCredential) error
	// Get returns the credential for a platform, or ErrCredentialNotFound.
	Get(ctx context.Context, platform Platform) (*PlatformCredential, error)
	// Delete removes the credential for a platform. Deleting a missing
	// credential is not an error.
	Delete(ctx context.Context, platform Platform) error
	// List returns all stored credentials.
	List(ctx context.Context) ([]*PlatformCredential, error)
}

// SessionBroker is the slice of the execution session manager the vault
// needs: minting a session right after save/unlock and revoking it before a
// credential is removed.
type SessionBroker interface {
	CreateSession(ctx context.Context, platform Platform, apiKey string) error
	DestroySession(ctx context.Context, platform Platform)
}

// Manager bridges user-facing save/unlock operations and the encrypted
// at-rest representation.
type Manager struct {
	local    CredentialStore
	server   CredentialStore // nil unless server custody is configured
	sessions SessionBroker
	clock    time2.Clock
}

// NewManager creates a vault manager. server may be nil if the custody
// backend is not configured; the server storage path then fails with
// ErrServerStorageUnavailable.
func NewManager(local CredentialStore, server CredentialStore, sessions SessionBroker, clock time2.Clock) *Manager {
	return &Manager{
		local:    local,
		server:   server,
		sessions: sessions,
		clock:    clock,
	}
}

// SaveLocalKey encrypts apiKey under encryptionKey, persists the credential
// locally and immediately mints an execution session so the freshly saved key
// is usable without a second unlock. The plaintext apiKey is never persisted.
//
// A session-creation failure does not roll back the saved credential: the
// session manager records the failed session so the dashboard can tell
// "tried and failed" from "never tried".
func (m *Manager) SaveLocalKey(ctx context.Context, platform Platform, apiKey, encryptionKey string) (*PlatformCredential, error) {
	return m.saveKey(ctx, m.local, StorageTypeLocal, platform, apiKey, encryptionKey)
}

// UnlockLocalKey loads and decrypts the stored credential and mints an
// execution session. The returned plaintext exists only so the immediate
// caller can discard it; callers must not retain it beyond the current call.
func (m *Manager) UnlockLocalKey(ctx context.Context, platform Platform, password string) (string, error) {
	return m.unlockKey(ctx, m.local, platform, password)
}

// RemoveLocalKey destroys the active session for the platform before deleting
// the local encrypted blob, so a deletion can never leave a dangling server
// session with no corresponding local record.
func (m *Manager) RemoveLocalKey(ctx context.Context, platform Platform) error {
	return m.removeKey(ctx, m.local, platform)
}

// SaveAPIKeyAuto dispatches a save to the local vault or the server custody
// store based on storageType.
func (m *Manager) SaveAPIKeyAuto(ctx context.Context, platform Platform, apiKey, encryptionKey string, storageType StorageType) (*PlatformCredential, error) {
	switch storageType {
	case StorageTypeLocal:
		return m.SaveLocalKey(ctx, platform, apiKey, encryptionKey)
	case StorageTypeServer:
		if m.server == nil {
			return nil, ErrServerStorageUnavailable
		}
		return m.saveKey(ctx, m.server, StorageTypeServer, platform, apiKey, encryptionKey)
	default:
		return nil, errors.Errorf("unsupported storage type: %s", storageType)
	}
}

// DeleteAPIKeyAuto dispatches a delete to the local vault or the server
// custody store based on storageType.
func (m *Manager) DeleteAPIKeyAuto(ctx context.Context, platform Platform, storageType StorageType) error {
	switch storageType {
	case StorageTypeLocal:
		return m.RemoveLocalKey(ctx, platform)
	case StorageTypeServer:
		if m.server == nil {
			return ErrServerStorageUnavailable
		}
		return m.removeKey(ctx, m.server, platform)
	default:
		return errors.Errorf("unsupported storage type: %s", storageType)
	}
}

// UnlockServerKey is the unlock path against the server custody store.
func (m *Manager) UnlockServerKey(ctx context.Context, platform Platform, password string) (string, error) {
	if m.server == nil {
		return "", ErrServerStorageUnavailable
	}
	return m.unlockKey(ctx, m.server, platform, password)
}

// ListCredentials returns the metadata of every stored credential, local and
// server-custodied. Only ciphertext and metadata are ever listed.
func (m *Manager) ListCredentials(ctx context.Context) ([]*PlatformCredential, error) {
	credentials, err := m.local.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list local credentials")
	}

	if m.server != nil {
		serverCredentials, err := m.server.List(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list server credentials")
		}
		credentials = append(credentials, serverCredentials...)
	}

	return credentials, nil
}

func (m *Manager) saveKey(ctx context.Context, store CredentialStore, storageType StorageType, platform Platform, apiKey, encryptionKey string) (*PlatformCredential, error) {
	if !platform.IsValid() {
		return nil, ErrUnknownPlatform
	}
	if apiKey == "" {
		return nil, errors.New("api key is empty")
	}

	payload, err := crypto.Encrypt([]byte(apiKey), encryptionKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encrypt api key")
	}

	credential := &PlatformCredential{
		ID:            uuid.New().String(),
		Platform:      platform,
		StorageType:   storageType,
		Encrypted:     true,
		EncryptedData: payload,
		CreatedAt:     m.clock.Now(),
		Status:        CredentialStatusValid,
	}

	if err := store.Save(ctx, credential); err != nil {
		return nil, errors.Wrap(err, "failed to persist credential")
	}

	log.Info().
		Str("platform", string(platform)).
		Str("storage_type", string(storageType)).
		Msg("Saved encrypted credential")

	if err := m.sessions.CreateSession(ctx, platform, apiKey); err != nil {
		return credential, errors.Wrap(err, "credential saved but session creation failed")
	}

	return credential, nil
}

func (m *Manager) unlockKey(ctx context.Context, store CredentialStore, platform Platform, password string) (string, error) {
	credential, err := store.Get(ctx, platform)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return "", ErrNoLocalKey
		}
		return "", errors.Wrap(err, "failed to load credential")
	}

	plaintext, err := crypto.Decrypt(credential.EncryptedData, password)
	if err != nil {
		// Wrong password and corrupted ciphertext are deliberately the same
		// failure; see crypto.ErrDecryptFailed.
		return "", errors.Wrap(err, "failed to unlock key")
	}

	if err := m.sessions.CreateSession(ctx, platform, string(plaintext)); err != nil {
		return "", errors.Wrap(err, "failed to create session")
	}

	return string(plaintext), nil
}

func (m *Manager) removeKey(ctx context.Context, store CredentialStore, platform Platform) error {
	// Revoke server-side state first. DestroySession always completes local
	// teardown, so the blob delete below never races a live session.
	m.sessions.DestroySession(ctx, platform)

	if err := store.Delete(ctx, platform); err != nil {
		return errors.Wrap(err, "failed to delete credential")
	}

	log.Info().Str("platform", string(platform)).Msg("Removed credential")
	return nil
}
