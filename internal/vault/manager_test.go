package vault_test

import (
	"context"
	"testing"
	"time"

	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/brickbee/go-trade-vault/internal/vault/storage"
	"github.com/brickbee/go-trade-vault/pkg/crypto"
	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	created   []vault.Platform
	destroyed []vault.Platform
	createErr error
	lastKey   string
}

func (b *fakeBroker) CreateSession(ctx context.Context, platform vault.Platform, apiKey string) error {
	b.created = append(b.created, platform)
	b.lastKey = apiKey
	return b.createErr
}

func (b *fakeBroker) DestroySession(ctx context.Context, platform vault.Platform) {
	b.destroyed = append(b.destroyed, platform)
}

func newTestManager(t *testing.T) (*vault.Manager, *fakeBroker, *storage.FileStore) {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	broker := &fakeBroker{}
	manager := vault.NewManager(store, nil, broker, time2.NewMockClock(time.Now()))
	return manager, broker, store
}

func TestSaveAndUnlockLocalKey(t *testing.T) {
	ctx := context.Background()
	manager, broker, store := newTestManager(t)

	credential, err := manager.SaveLocalKey(ctx, vault.PlatformBuff, "buff-api-key", "hunter2")
	require.NoError(t, err)
	require.NotNil(t, credential)
	assert.Equal(t, vault.PlatformBuff, credential.Platform)
	assert.Equal(t, vault.StorageTypeLocal, credential.StorageType)
	assert.True(t, credential.Encrypted)
	assert.NotEmpty(t, credential.ID)

	// Saving mints a session from the still-in-memory plaintext.
	require.Equal(t, []vault.Platform{vault.PlatformBuff}, broker.created)
	assert.Equal(t, "buff-api-key", broker.lastKey)

	// The persisted blob holds ciphertext, not the key.
	stored, err := store.Get(ctx, vault.PlatformBuff)
	require.NoError(t, err)
	require.NotNil(t, stored.EncryptedData)
	assert.NotContains(t, stored.EncryptedData.Ciphertext, "buff-api-key")

	plaintext, err := manager.UnlockLocalKey(ctx, vault.PlatformBuff, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "buff-api-key", plaintext)
	assert.Len(t, broker.created, 2)
}

func TestUnlockLocalKeyWrongPassword(t *testing.T) {
	ctx := context.Background()
	manager, broker, _ := newTestManager(t)

	_, err := manager.SaveLocalKey(ctx, vault.PlatformSkinport, "skinport-key", "correct password")
	require.NoError(t, err)
	broker.created = nil

	_, err = manager.UnlockLocalKey(ctx, vault.PlatformSkinport, "wrong password")
	require.Error(t, err)
	assert.True(t, errors.Is(err, crypto.ErrDecryptFailed))
	// No session is minted on a failed unlock.
	assert.Empty(t, broker.created)
}

func TestUnlockLocalKeyMissing(t *testing.T) {
	ctx := context.Background()
	manager, _, _ := newTestManager(t)

	_, err := manager.UnlockLocalKey(ctx, vault.PlatformDMarket, "whatever")
	assert.True(t, errors.Is(err, vault.ErrNoLocalKey))
}

func TestSaveLocalKeyUnknownPlatform(t *testing.T) {
	ctx := context.Background()
	manager, broker, _ := newTestManager(t)

	_, err := manager.SaveLocalKey(ctx, vault.Platform("steamcommunity"), "key", "pw")
	assert.True(t, errors.Is(err, vault.ErrUnknownPlatform))
	assert.Empty(t, broker.created)
}

func TestSaveLocalKeySessionFailureKeepsCredential(t *testing.T) {
	ctx := context.Background()
	manager, broker, store := newTestManager(t)
	broker.createErr = errors.New("backend unreachable")

	credential, err := manager.SaveLocalKey(ctx, vault.PlatformCSFloat, "csfloat-key", "pw")
	require.Error(t, err)
	require.NotNil(t, credential)

	// Credential survives the failed session creation.
	stored, err := store.Get(ctx, vault.PlatformCSFloat)
	require.NoError(t, err)
	assert.Equal(t, credential.ID, stored.ID)
}

func TestRemoveLocalKeyDestroysSessionFirst(t *testing.T) {
	ctx := context.Background()
	manager, broker, store := newTestManager(t)

	_, err := manager.SaveLocalKey(ctx, vault.PlatformWaxpeer, "waxpeer-key", "pw")
	require.NoError(t, err)

	require.NoError(t, manager.RemoveLocalKey(ctx, vault.PlatformWaxpeer))
	assert.Equal(t, []vault.Platform{vault.PlatformWaxpeer}, broker.destroyed)

	_, err = store.Get(ctx, vault.PlatformWaxpeer)
	assert.True(t, errors.Is(err, vault.ErrCredentialNotFound))
}

func TestServerStoragePathsUnavailable(t *testing.T) {
	ctx := context.Background()
	manager, _, _ := newTestManager(t)

	_, err := manager.SaveAPIKeyAuto(ctx, vault.PlatformBuff, "key", "pw", vault.StorageTypeServer)
	assert.True(t, errors.Is(err, vault.ErrServerStorageUnavailable))

	err = manager.DeleteAPIKeyAuto(ctx, vault.PlatformBuff, vault.StorageTypeServer)
	assert.True(t, errors.Is(err, vault.ErrServerStorageUnavailable))

	_, err = manager.UnlockServerKey(ctx, vault.PlatformBuff, "pw")
	assert.True(t, errors.Is(err, vault.ErrServerStorageUnavailable))
}

func TestSaveAPIKeyAutoUnsupportedStorageType(t *testing.T) {
	ctx := context.Background()
	manager, _, _ := newTestManager(t)

	_, err := manager.SaveAPIKeyAuto(ctx, vault.PlatformBuff, "key", "pw", vault.StorageType("cloud"))
	require.Error(t, err)
}

func TestListCredentialsMetadataOnly(t *testing.T) {
	ctx := context.Background()
	manager, _, _ := newTestManager(t)

	_, err := manager.SaveLocalKey(ctx, vault.PlatformBuff, "buff-key", "pw")
	require.NoError(t, err)
	_, err = manager.SaveLocalKey(ctx, vault.PlatformSkinport, "skinport-key", "pw")
	require.NoError(t, err)

	credentials, err := manager.ListCredentials(ctx)
	require.NoError(t, err)
	assert.Len(t, credentials, 2)

	for _, credential := range credentials {
		assert.True(t, credential.Encrypted)
		assert.Equal(t, vault.CredentialStatusValid, credential.Status)
	}
}
