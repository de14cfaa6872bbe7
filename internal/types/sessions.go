package types

import (
	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"
)

// SessionResponse is the public view of one platform's execution session.
// The execution token itself is deliberately not part of this payload; it is
// only handed out through the valid-token endpoint consumers call right
// before a marketplace request.
type SessionResponse struct {
	Platform        *string          `json:"platform"`
	SessionID       string           `json:"sessionId,omitempty"`
	Status          *string          `json:"status"`
	CreatedAt       strfmt.DateTime  `json:"createdAt"`
	ExpiresAt       strfmt.DateTime  `json:"expiresAt"`
	LastRefreshedAt *strfmt.DateTime `json:"lastRefreshedAt,omitempty"`
	RequestCount    int64            `json:"requestCount"`
	LastError       string           `json:"lastError,omitempty"`
}

// SessionListResponse wraps the session listing.
type SessionListResponse struct {
	Sessions []*SessionResponse `json:"sessions"`
}

// SessionTokenResponse hands a currently-valid execution token to a
// downstream consumer. The token must be attached as X-Execution-Token.
type SessionTokenResponse struct {
	Platform       *string `json:"platform"`
	ExecutionToken *string `json:"executionToken"`
}

// SessionStatsResponse reports per-platform usage statistics.
type SessionStatsResponse struct {
	Platform          *string `json:"platform"`
	TotalRequests     int64   `json:"totalRequests"`
	SuccessCount      int64   `json:"successCount"`
	FailureCount      int64   `json:"failureCount"`
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`
}

// ServerStatusResponse is the backend's view of a platform session, proxied
// for callers comparing it against the local state.
type ServerStatusResponse struct {
	Platform       *string          `json:"platform"`
	Status         *string          `json:"status"`
	ExpiresAt      *strfmt.DateTime `json:"expiresAt,omitempty"`
	RequestCount   int64            `json:"requestCount"`
	LastActivityAt *strfmt.DateTime `json:"lastActivityAt,omitempty"`
}

// PostRecordRequestPayload reports the outcome of one proxied marketplace
// call so usage statistics stay accurate.
type PostRecordRequestPayload struct {
	Success        *bool  `json:"success"`
	ResponseTimeMs *int64 `json:"responseTimeMs"`
}

func (p *PostRecordRequestPayload) Validate() error {
	if p.Success == nil {
		return errors.New("success is required")
	}
	return nil
}
