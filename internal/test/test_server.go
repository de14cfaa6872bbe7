// Package test provides shared server fixtures for handler tests.
package test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/brickbee/go-trade-vault/internal/api"
	"github.com/brickbee/go-trade-vault/internal/api/router"
	"github.com/brickbee/go-trade-vault/internal/backend"
	"github.com/brickbee/go-trade-vault/internal/config"
	"github.com/brickbee/go-trade-vault/internal/session"
	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/brickbee/go-trade-vault/internal/vault/storage"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// BackendStub emulates the brickbee backend session API over httptest. It
// serves a real RSA transport key so the full encrypt-and-exchange flow runs
// against it.
type BackendStub struct {
	Server     *httptest.Server
	PrivateKey *rsa.PrivateKey

	mu           sync.Mutex
	createCalls  int
	refreshCalls int
	destroyCalls int

	// FailCreate makes session creation return 503 when set.
	FailCreate bool
	// SessionTTL is applied to created and refreshed sessions.
	SessionTTL time.Duration
}

func NewBackendStub(t *testing.T) *BackendStub {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	stub := &BackendStub{
		PrivateKey: priv,
		SessionTTL: time.Hour,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /security/publicKey", stub.handlePublicKey)
	mux.HandleFunc("POST /security/challengeId", stub.handleChallenge)
	mux.HandleFunc("POST /execution-sessions/create", stub.handleCreate)
	mux.HandleFunc("POST /execution-sessions/refresh", stub.handleRefresh)
	mux.HandleFunc("DELETE /execution-sessions/destory", stub.handleDestroy)
	mux.HandleFunc("GET /execution-sessions/status", stub.handleStatus)

	stub.Server = httptest.NewServer(mux)
	t.Cleanup(stub.Server.Close)

	return stub
}

func (b *BackendStub) CreateCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createCalls
}

func (b *BackendStub) RefreshCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls
}

func (b *BackendStub) DestroyCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyCalls
}

func (b *BackendStub) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	der, err := x509.MarshalPKIXPublicKey(&b.PrivateKey.PublicKey)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	writeJSON(w, http.StatusOK, backend.PublicKeyResponse{
		KeyID:     "stub-key-1",
		PublicKey: string(pemBytes),
	})
}

func (b *BackendStub) handleChallenge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"challengeId": uuid.New().String()})
}

func (b *BackendStub) handleCreate(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.createCalls++
	fail := b.FailCreate
	ttl := b.SessionTTL
	b.mu.Unlock()

	if fail {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "backend unavailable"})
		return
	}

	if r.Header.Get(backend.HeaderEncryptedKey) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing encrypted key"})
		return
	}

	expiresAt := time.Now().Add(ttl)
	writeJSON(w, http.StatusOK, backend.CreateSessionResponse{
		ExecutionToken: "tok-" + uuid.New().String(),
		SessionID:      "sess-" + uuid.New().String(),
		ExpiresAt:      &expiresAt,
	})
}

func (b *BackendStub) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.refreshCalls++
	ttl := b.SessionTTL
	b.mu.Unlock()

	if r.Header.Get(backend.HeaderExecutionToken) == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "missing token"})
		return
	}

	expiresAt := time.Now().Add(ttl)
	writeJSON(w, http.StatusOK, backend.RefreshSessionResponse{
		ExecutionToken: "tok-" + uuid.New().String(),
		ExpiresAt:      &expiresAt,
	})
}

func (b *BackendStub) handleDestroy(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.destroyCalls++
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (b *BackendStub) handleStatus(w http.ResponseWriter, r *http.Request) {
	expiresAt := time.Now().Add(b.SessionTTL)
	writeJSON(w, http.StatusOK, backend.SessionStatusResponse{
		Status:       "active",
		ExpiresAt:    &expiresAt,
		RequestCount: 0,
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WithTestServer builds a fully wired server backed by a BackendStub and a
// temp-dir vault, initializes the router and hands both to the closure.
func WithTestServer(t *testing.T, fn func(s *api.Server, stub *BackendStub)) {
	t.Helper()

	stub := NewBackendStub(t)

	cfg := config.DefaultServiceConfigFromEnv()
	cfg.Backend.BaseURL = stub.Server.URL
	cfg.Vault.Dir = t.TempDir()

	s := api.NewServer(cfg)
	s.Clock = api.NewClock(t)
	s.Backend = backend.NewClient(cfg.Backend.BaseURL, stub.Server.Client(), cfg.Backend.RequestTimeout)
	s.Session = api.NewSessionManager(cfg, s.Backend, s.Clock)
	t.Cleanup(s.Session.Stop)

	local, err := storage.NewFileStore(cfg.Vault.Dir)
	require.NoError(t, err)
	s.Vault = vault.NewManager(local, nil, s.Session, s.Clock)

	router.Init(s)

	fn(s, stub)
}

// PerformRequest runs one request through the echo handler chain.
func PerformRequest(t *testing.T, s *api.Server, method, target string, body *bytes.Buffer, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = body
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	res := httptest.NewRecorder()
	s.Echo.ServeHTTP(res, req)
	return res
}

// MustMarshal encodes v as a JSON request body.
func MustMarshal(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

// UnlockedPlatform saves and therefore session-activates a platform key,
// returning the vault password used.
func UnlockedPlatform(t *testing.T, s *api.Server, platform vault.Platform) string {
	t.Helper()

	const password = "test-vault-password"
	_, err := s.Vault.SaveLocalKey(context.Background(), platform, "api-key-"+string(platform), password)
	require.NoError(t, err)

	require.NotNil(t, s.Session.GetSession(platform))
	require.Equal(t, session.StatusActive, s.Session.GetSession(platform).Status)

	return password
}
