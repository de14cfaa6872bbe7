package api

import (
	"github.com/brickbee/go-trade-vault/internal/backend"
	"github.com/brickbee/go-trade-vault/internal/session"
	"github.com/brickbee/go-trade-vault/internal/types"
	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
)

// NewSessionResponse converts a session snapshot to its public view. The
// execution token is deliberately omitted; it is only handed out through the
// token endpoint.
func NewSessionResponse(sess *session.ExecutionSession) *types.SessionResponse {
	response := &types.SessionResponse{
		Platform:     swag.String(string(sess.Platform)),
		SessionID:    sess.SessionID,
		Status:       swag.String(string(sess.Status)),
		CreatedAt:    strfmt.DateTime(sess.CreatedAt),
		ExpiresAt:    strfmt.DateTime(sess.ExpiresAt),
		RequestCount: sess.RequestCount,
		LastError:    sess.LastError,
	}

	if sess.LastRefreshedAt != nil {
		refreshedAt := strfmt.DateTime(*sess.LastRefreshedAt)
		response.LastRefreshedAt = &refreshedAt
	}

	return response
}

// NewServerStatusResponse converts the backend's session view to its public
// payload.
func NewServerStatusResponse(platform vault.Platform, status *backend.SessionStatusResponse) *types.ServerStatusResponse {
	response := &types.ServerStatusResponse{
		Platform:     swag.String(string(platform)),
		Status:       swag.String(status.Status),
		RequestCount: status.RequestCount,
	}

	if status.ExpiresAt != nil {
		expiresAt := strfmt.DateTime(*status.ExpiresAt)
		response.ExpiresAt = &expiresAt
	}
	if status.LastActivityAt != nil {
		activityAt := strfmt.DateTime(*status.LastActivityAt)
		response.LastActivityAt = &activityAt
	}

	return response
}
