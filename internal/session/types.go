package session

import (
	"time"

	"github.com/brickbee/go-trade-vault/internal/vault"
)

// Status 执行会话状态
type Status string

const (
	// StatusIdle is conceptual only: an idle platform has no session record.
	StatusIdle    Status = "idle"
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusError   Status = "error"
)

// ExecutionSession is the in-memory record of one platform's execution
// token. Sessions are never persisted; a restart always starts from idle.
type ExecutionSession struct {
	Platform        vault.Platform
	SessionID       string
	ExecutionToken  string
	ExpiresAt       time.Time
	RefreshWindow   time.Duration
	Status          Status
	CreatedAt       time.Time
	LastRefreshedAt *time.Time
	RequestCount    int64
	// LastError holds the failure reason for sessions in StatusError.
	LastError string
}

// Stats tracks proxied marketplace call statistics for one platform.
// AvgResponseTime is a cumulative running mean in milliseconds.
type Stats struct {
	TotalRequests   int64
	SuccessCount    int64
	FailureCount    int64
	AvgResponseTime float64
}
