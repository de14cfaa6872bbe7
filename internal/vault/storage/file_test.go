package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/brickbee/go-trade-vault/internal/vault/storage"
	"github.com/brickbee/go-trade-vault/pkg/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredential(t *testing.T, platform vault.Platform) *vault.PlatformCredential {
	t.Helper()

	payload, err := crypto.Encrypt([]byte("api-key-"+string(platform)), "pw")
	require.NoError(t, err)

	return &vault.PlatformCredential{
		ID:            "cred-" + string(platform),
		Platform:      platform,
		StorageType:   vault.StorageTypeLocal,
		Encrypted:     true,
		EncryptedData: payload,
		CreatedAt:     time.Now().UTC(),
		Status:        vault.CredentialStatusValid,
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	credential := testCredential(t, vault.PlatformBuff)
	require.NoError(t, store.Save(ctx, credential))

	loaded, err := store.Get(ctx, vault.PlatformBuff)
	require.NoError(t, err)
	assert.Equal(t, credential.ID, loaded.ID)
	assert.Equal(t, credential.EncryptedData.Ciphertext, loaded.EncryptedData.Ciphertext)
}

func TestFileStoreGetMissing(t *testing.T) {
	ctx := context.Background()

	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(ctx, vault.PlatformSkinport)
	assert.True(t, errors.Is(err, vault.ErrCredentialNotFound))
}

func TestFileStoreSaveReplaces(t *testing.T) {
	ctx := context.Background()

	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	first := testCredential(t, vault.PlatformBuff)
	require.NoError(t, store.Save(ctx, first))

	second := testCredential(t, vault.PlatformBuff)
	second.ID = "replacement"
	require.NoError(t, store.Save(ctx, second))

	loaded, err := store.Get(ctx, vault.PlatformBuff)
	require.NoError(t, err)
	assert.Equal(t, "replacement", loaded.ID)

	credentials, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, credentials, 1)
}

func TestFileStoreDeleteMissingIsNoop(t *testing.T) {
	ctx := context.Background()

	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(ctx, vault.PlatformWaxpeer))
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, testCredential(t, vault.PlatformDMarket)))

	reopened, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	loaded, err := reopened.Get(ctx, vault.PlatformDMarket)
	require.NoError(t, err)
	assert.Equal(t, vault.PlatformDMarket, loaded.Platform)
}

func TestFileStoreWriteIsAtomic(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	// A leftover temp file from an interrupted write must not poison the
	// next save, and no temp file may survive a completed one.
	tmpPath := filepath.Join(dir, "credentials.json.tmp")
	require.NoError(t, os.WriteFile(tmpPath, []byte("{partial"), 0o600))

	require.NoError(t, store.Save(ctx, testCredential(t, vault.PlatformBuff)))

	_, err = os.Stat(tmpPath)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	loaded, err := store.Get(ctx, vault.PlatformBuff)
	require.NoError(t, err)
	assert.Equal(t, vault.PlatformBuff, loaded.Platform)
}

func TestFileStoreFileMode(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, testCredential(t, vault.PlatformBuff)))

	info, err := os.Stat(filepath.Join(dir, "credentials.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
