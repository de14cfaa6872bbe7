package sessions_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/test"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/go-openapi/swag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetListSessions(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		test.UnlockedPlatform(t, s, vault.PlatformBuff)
		test.UnlockedPlatform(t, s, vault.PlatformSkinport)

		res := test.PerformRequest(t, s, "GET", "/api/v1/sessions", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var list types.SessionListResponse
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &list))
		assert.Len(t, list.Sessions, 2)

		// Listing never leaks execution tokens.
		assert.NotContains(t, res.Body.String(), "tok-")
	})
}

func TestGetSession(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		test.UnlockedPlatform(t, s, vault.PlatformBuff)

		res := test.PerformRequest(t, s, "GET", "/api/v1/sessions/buff", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var response types.SessionResponse
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &response))
		assert.Equal(t, "buff", swag.StringValue(response.Platform))
		assert.Equal(t, "active", swag.StringValue(response.Status))
		assert.NotEmpty(t, response.SessionID)
	})
}

func TestGetSessionNone(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/sessions/buff", nil, nil)
		require.Equal(t, http.StatusNotFound, res.Code)

		var envelope map[string]interface{}
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &envelope))
		assert.Equal(t, "session_required", envelope["type"])
	})
}

func TestGetSessionUnknownPlatform(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/sessions/steamcommunity", nil, nil)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})
}

func TestGetSessionToken(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		test.UnlockedPlatform(t, s, vault.PlatformDMarket)

		res := test.PerformRequest(t, s, "GET", "/api/v1/sessions/dmarket/token", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var response types.SessionTokenResponse
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &response))
		assert.Equal(t, "dmarket", swag.StringValue(response.Platform))
		assert.NotEmpty(t, swag.StringValue(response.ExecutionToken))
	})
}

func TestGetSessionTokenNone(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/sessions/dmarket/token", nil, nil)
		assert.Equal(t, http.StatusNotFound, res.Code)
	})
}

func TestPostRefreshSession(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		test.UnlockedPlatform(t, s, vault.PlatformBuff)
		before := s.Session.GetSession(vault.PlatformBuff).ExecutionToken

		res := test.PerformRequest(t, s, "POST", "/api/v1/sessions/buff/refresh", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)
		require.Equal(t, 1, stub.RefreshCalls())

		after := s.Session.GetSession(vault.PlatformBuff).ExecutionToken
		assert.NotEqual(t, before, after)
	})
}

func TestPostRefreshSessionNone(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		res := test.PerformRequest(t, s, "POST", "/api/v1/sessions/buff/refresh", nil, nil)
		assert.Equal(t, http.StatusNotFound, res.Code)
	})
}

func TestDeleteSession(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		test.UnlockedPlatform(t, s, vault.PlatformBuff)

		res := test.PerformRequest(t, s, "DELETE", "/api/v1/sessions/buff", nil, nil)
		require.Equal(t, http.StatusNoContent, res.Code)
		assert.Equal(t, 1, stub.DestroyCalls())
		assert.Nil(t, s.Session.GetSession(vault.PlatformBuff))

		// Destroying again is a no-op, still 204.
		res = test.PerformRequest(t, s, "DELETE", "/api/v1/sessions/buff", nil, nil)
		assert.Equal(t, http.StatusNoContent, res.Code)
		assert.Equal(t, 1, stub.DestroyCalls())
	})
}

func TestSessionStatsFlow(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		test.UnlockedPlatform(t, s, vault.PlatformBuff)

		record := func(success bool, ms int64) {
			body := test.MustMarshal(t, types.PostRecordRequestPayload{
				Success:        swag.Bool(success),
				ResponseTimeMs: swag.Int64(ms),
			})
			res := test.PerformRequest(t, s, "POST", "/api/v1/sessions/buff/record", body, nil)
			require.Equal(t, http.StatusNoContent, res.Code)
		}

		record(true, 100)
		record(true, 200)
		record(false, 300)

		res := test.PerformRequest(t, s, "GET", "/api/v1/sessions/buff/stats", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var stats types.SessionStatsResponse
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &stats))
		assert.Equal(t, int64(3), stats.TotalRequests)
		assert.Equal(t, int64(2), stats.SuccessCount)
		assert.Equal(t, int64(1), stats.FailureCount)
		assert.InDelta(t, 200.0, stats.AvgResponseTimeMs, 0.01)
	})
}

func TestSessionStatsEmpty(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/sessions/buff/stats", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var stats types.SessionStatsResponse
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &stats))
		assert.Zero(t, stats.TotalRequests)
	})
}

func TestGetServerStatus(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server, stub *test.BackendStub) {
		test.UnlockedPlatform(t, s, vault.PlatformBuff)

		res := test.PerformRequest(t, s, "GET", "/api/v1/sessions/buff/server-status", nil, nil)
		require.Equal(t, http.StatusOK, res.Code)

		var status types.ServerStatusResponse
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &status))
		require.NotNil(t, status.Platform)
		assert.Equal(t, "buff", *status.Platform)
		require.NotNil(t, status.Status)
		assert.Equal(t, "active", *status.Status)
	})
}
