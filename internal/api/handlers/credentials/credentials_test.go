package credentials_test

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/test"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/go-openapi/swag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostSaveKey(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		body := test.MustMarshal(t, types.PostSaveKeyPayload{
			Platform: swag.String("buff"),
			APIKey:   swag.String("buff-api-key"),
			Password: swag.String("hunter2"),
		})

		res := test.PerformRequest(t, s, "POST", "/api/v1/credentials", body, nil)
		require.Equal(t, http.StatusCreated, res.Code)

		var response types.CredentialResponse
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &response))
		assert.Equal(t, "buff", swag.StringValue(response.Platform))
		assert.Equal(t, "local", swag.StringValue(response.StorageType))
		assert.True(t, response.Encrypted)

		// Saving also minted a session.
		assert.Equal(t, 1, stub.CreateCalls())
		require.NotNil(t, s.Session.GetSession(vault.PlatformBuff))

		// The plaintext key never touches disk.
		data, err := os.ReadFile(filepath.Join(s.Config.Vault.Dir, "credentials.json"))
		require.NoError(t, err)
		assert.NotContains(t, string(data), "buff-api-key")
	})
}

func TestPostSaveKeyValidation(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		body := test.MustMarshal(t, types.PostSaveKeyPayload{
			Platform: swag.String("buff"),
		})

		res := test.PerformRequest(t, s, "POST", "/api/v1/credentials", body, nil)
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, 0, stub.CreateCalls())
	})
}

func TestPostSaveKeyUnknownPlatform(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		body := test.MustMarshal(t, types.PostSaveKeyPayload{
			Platform: swag.String("steamcommunity"),
			APIKey:   swag.String("key"),
			Password: swag.String("pw"),
		})

		res := test.PerformRequest(t, s, "POST", "/api/v1/credentials", body, nil)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})
}

func TestPostSaveKeyBackendDownStillSaves(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		stub.FailCreate = true

		body := test.MustMarshal(t, types.PostSaveKeyPayload{
			Platform: swag.String("csfloat"),
			APIKey:   swag.String("csfloat-key"),
			Password: swag.String("pw"),
		})

		res := test.PerformRequest(t, s, "POST", "/api/v1/credentials", body, nil)
		require.Equal(t, http.StatusCreated, res.Code)

		// Credential saved, session in error state.
		listRes := test.PerformRequest(t, s, "GET", "/api/v1/credentials", nil, nil)
		require.Equal(t, http.StatusOK, listRes.Code)
		var list types.CredentialListResponse
		require.NoError(t, json.Unmarshal(listRes.Body.Bytes(), &list))
		assert.Len(t, list.Credentials, 1)
	})
}

func TestPostUnlockKey(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		password := test.UnlockedPlatform(t, s, vault.PlatformSkinport)

		body := test.MustMarshal(t, types.PostUnlockKeyPayload{
			Password: swag.String(password),
		})

		res := test.PerformRequest(t, s, "POST", "/api/v1/credentials/skinport/unlock", body, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var response types.SessionResponse
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &response))
		assert.Equal(t, "skinport", swag.StringValue(response.Platform))
		assert.Equal(t, "active", swag.StringValue(response.Status))

		// The response never carries plaintext or tokens.
		assert.NotContains(t, res.Body.String(), "api-key-skinport")
		assert.NotContains(t, res.Body.String(), "executionToken")
	})
}

func TestPostUnlockKeyWrongPassword(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		test.UnlockedPlatform(t, s, vault.PlatformSkinport)

		body := test.MustMarshal(t, types.PostUnlockKeyPayload{
			Password: swag.String("not the password"),
		})

		res := test.PerformRequest(t, s, "POST", "/api/v1/credentials/skinport/unlock", body, nil)
		require.Equal(t, http.StatusUnauthorized, res.Code)

		var envelope map[string]interface{}
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &envelope))
		assert.Equal(t, "invalid_credentials", envelope["type"])
	})
}

func TestPostUnlockKeyMissing(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		body := test.MustMarshal(t, types.PostUnlockKeyPayload{
			Password: swag.String("pw"),
		})

		res := test.PerformRequest(t, s, "POST", "/api/v1/credentials/dmarket/unlock", body, nil)
		assert.Equal(t, http.StatusNotFound, res.Code)
	})
}

func TestDeleteKey(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		test.UnlockedPlatform(t, s, vault.PlatformWaxpeer)

		res := test.PerformRequest(t, s, "DELETE", "/api/v1/credentials/waxpeer", nil, nil)
		require.Equal(t, http.StatusNoContent, res.Code)

		// Deletion destroyed the live session first.
		assert.Equal(t, 1, stub.DestroyCalls())
		assert.Nil(t, s.Session.GetSession(vault.PlatformWaxpeer))

		listRes := test.PerformRequest(t, s, "GET", "/api/v1/credentials", nil, nil)
		var list types.CredentialListResponse
		require.NoError(t, json.Unmarshal(listRes.Body.Bytes(), &list))
		assert.Empty(t, list.Credentials)
	})
}

func TestGetListKeysEmpty(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/credentials", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var list types.CredentialListResponse
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &list))
		assert.Empty(t, list.Credentials)
	})
}
