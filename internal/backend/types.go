package backend

import (
	"fmt"
	"time"
)

// Header names for the execution-session exchange. The RSA-encrypted key and
// the execution token ride in custom headers, never in Authorization: the
// token is not the marketplace's own API key.
const (
	HeaderEncryptedKey   = "X-Encrypted-Key"
	HeaderExecutionToken = "X-Execution-Token"
	HeaderRequestID      = "X-Request-ID"
)

// PublicKeyResponse is the server RSA key used for one-shot key transport.
type PublicKeyResponse struct {
	KeyID     string `json:"keyId"`
	PublicKey string `json:"publicKey"` // PEM, SPKI
}

type challengeRequest struct {
	Platform string `json:"platform"`
}

type challengeResponse struct {
	ChallengeID string `json:"challengeId"`
}

// CreateSessionRequest is the body of the session-create exchange. The
// encrypted API key itself travels in the X-Encrypted-Key header.
type CreateSessionRequest struct {
	Platform    string `json:"platform"`
	StorageMode string `json:"storageMode"`
	KeyID       string `json:"keyId"`
	ChallengeID string `json:"challengeId"`
}

// CreateSessionResponse carries the freshly minted execution token.
// ExpiresAt is nil when the server omits it; callers apply their default TTL.
type CreateSessionResponse struct {
	ExecutionToken string     `json:"executionToken"`
	SessionID      string     `json:"sessionId"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
}

// RefreshSessionResponse carries the replacement token after a refresh.
type RefreshSessionResponse struct {
	ExecutionToken string     `json:"executionToken"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
}

type destroyResponse struct {
	Success bool `json:"success"`
}

// SessionStatusResponse mirrors the server-side view of a session.
type SessionStatusResponse struct {
	Status         string     `json:"status"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	RequestCount   int64      `json:"requestCount"`
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`
}

type errorEnvelope struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}
