// Package session implements the execution session lifecycle manager: per
// platform it tracks one short-lived execution token, proactively refreshes
// it, answers "give me a currently valid token", and records usage
// statistics. Every downstream marketplace call must obtain its
// authorization material here and nowhere else.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/brickbee/go-trade-vault/internal/backend"
	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/brickbee/go-trade-vault/pkg/crypto"
	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNoSession means nothing was ever created for the platform; the
	// caller must run the unlock/create flow first.
	ErrNoSession = errors.New("no session for platform, unlock the key first")
	// ErrSessionFailed means the last creation attempt failed; re-unlock to
	// retry.
	ErrSessionFailed = errors.New("session is in error state, unlock the key again")
	// ErrSessionExpired means the token passed its expiry and a new session
	// is required. Self-healing: the next successful create clears it.
	ErrSessionExpired = errors.New("session expired, unlock the key again")
)

const (
	// DefaultTTL applies when the backend omits expiresAt.
	DefaultTTL = time.Hour
	// DefaultRefreshWindow is how long before expiry refresh should trigger.
	DefaultRefreshWindow = 10 * time.Minute
	// DefaultTickInterval is the cadence of the per-platform refresh check.
	DefaultTickInterval = time.Minute
	// DefaultSweepInterval is the cadence of the manager-wide expiry sweep.
	DefaultSweepInterval = time.Minute
)

// BackendClient is the slice of the backend API the manager consumes.
// *backend.Client implements it; tests substitute a mock.
type BackendClient interface {
	FetchPublicKey(ctx context.Context) (*backend.PublicKeyResponse, error)
	RequestChallenge(ctx context.Context, platform string) (string, error)
	CreateSession(ctx context.Context, req backend.CreateSessionRequest, encryptedKey string) (*backend.CreateSessionResponse, error)
	RefreshSession(ctx context.Context, executionToken string) (*backend.RefreshSessionResponse, error)
	DestroySession(ctx context.Context, executionToken string) error
	SessionStatus(ctx context.Context, executionToken string) (*backend.SessionStatusResponse, error)
}

// Subscriber receives session state changes. A nil session means the
// platform's session was destroyed.
type Subscriber func(platform vault.Platform, session *ExecutionSession)

// Options tune the manager. Zero values fall back to the defaults above.
type Options struct {
	DefaultTTL    time.Duration
	RefreshWindow time.Duration
	TickInterval  time.Duration
	SweepInterval time.Duration
	// StorageMode is reported to the backend on session creation.
	StorageMode string
}

// Manager owns the platform→session and platform→stats maps exclusively. It
// is constructed once at startup and injected into its consumers; there is
// no package-level instance.
type Manager struct {
	backend       BackendClient
	clock         time2.Clock
	defaultTTL    time.Duration
	refreshWindow time.Duration
	tickInterval  time.Duration
	sweepInterval time.Duration
	storageMode   string

	mu       sync.RWMutex
	sessions map[vault.Platform]*ExecutionSession
	stats    map[vault.Platform]*Stats
	tickers  map[vault.Platform]chan struct{}

	// refreshGroup collapses concurrent refresh attempts for the same
	// platform (ticker vs. lazy check-on-access) into one network call.
	refreshGroup singleflight.Group

	subMu       sync.Mutex
	subscribers map[int]Subscriber
	nextSubID   int

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// NewManager creates an execution session manager.
func NewManager(backendClient BackendClient, clock time2.Clock, opts Options) *Manager {
	ensureMetrics()

	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.RefreshWindow <= 0 {
		opts.RefreshWindow = DefaultRefreshWindow
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.StorageMode == "" {
		opts.StorageMode = string(vault.StorageTypeLocal)
	}

	return &Manager{
		backend:       backendClient,
		clock:         clock,
		defaultTTL:    opts.DefaultTTL,
		refreshWindow: opts.RefreshWindow,
		tickInterval:  opts.TickInterval,
		sweepInterval: opts.SweepInterval,
		storageMode:   opts.StorageMode,
		sessions:      make(map[vault.Platform]*ExecutionSession),
		stats:         make(map[vault.Platform]*Stats),
		tickers:       make(map[vault.Platform]chan struct{}),
		subscribers:   make(map[int]Subscriber),
		stopSweep:     make(chan struct{}),
	}
}

// Start launches the manager-wide expiry sweep. The sweep re-checks every
// platform's expiresAt independent of the per-platform tickers, so expiry is
// eventually detected even if a ticker was never started or already cleared.
func (m *Manager) Start() {
	go func() {
		ticker := time.NewTicker(m.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopSweep:
				return
			case <-ticker.C:
				m.sweepExpired()
			}
		}
	}()
}

// Stop halts the sweep and all per-platform tickers. Sessions stay in the
// maps; Stop is for process shutdown, not session teardown.
func (m *Manager) Stop() {
	m.sweepOnce.Do(func() { close(m.stopSweep) })

	m.mu.Lock()
	defer m.mu.Unlock()
	for platform := range m.tickers {
		m.stopTickerLocked(platform)
	}
}

// CreateSession exchanges the plaintext apiKey for an execution token: it
// fetches a fresh server RSA key and one-time challenge, RSA-encrypts the
// key for the single transit it will ever make, and installs the resulting
// session. Any prior session for the platform is replaced silently. On
// failure a session in StatusError is recorded so the dashboard can tell
// "tried and failed" from "never tried".
func (m *Manager) CreateSession(ctx context.Context, platform vault.Platform, apiKey string) error {
	resp, err := m.exchangeKey(ctx, platform, apiKey)
	observeResult(sessionCreateTotal, string(platform), err)
	now := m.clock.Now()

	if err != nil {
		log.Error().Err(err).Str("platform", string(platform)).Msg("Failed to create execution session")

		failed := &ExecutionSession{
			Platform:      platform,
			Status:        StatusError,
			RefreshWindow: m.refreshWindow,
			CreatedAt:     now,
			LastError:     err.Error(),
		}
		m.installSession(platform, failed)
		return err
	}

	expiresAt := now.Add(m.defaultTTL)
	if resp.ExpiresAt != nil {
		expiresAt = *resp.ExpiresAt
	}

	created := &ExecutionSession{
		Platform:       platform,
		SessionID:      resp.SessionID,
		ExecutionToken: resp.ExecutionToken,
		ExpiresAt:      expiresAt,
		RefreshWindow:  m.refreshWindow,
		Status:         StatusActive,
		CreatedAt:      now,
	}
	m.installSession(platform, created)
	m.startTicker(platform)

	log.Info().
		Str("platform", string(platform)).
		Str("session_id", resp.SessionID).
		Time("expires_at", expiresAt).
		Msg("Execution session created")
	return nil
}

// GetSession returns a snapshot of the platform's session, or nil when the
// platform is idle. Callers never receive a mutable reference.
func (m *Manager) GetSession(platform vault.Platform) *ExecutionSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return snapshot(m.sessions[platform])
}

// Sessions returns snapshots of every platform's session.
func (m *Manager) Sessions() []*ExecutionSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*ExecutionSession, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, snapshot(sess))
	}
	return out
}

// GetValidToken is the single sanctioned entry point for downstream callers
// needing authorization material. It fails when no session exists or the
// session failed or expired. Inside the refresh window it attempts a lazy
// refresh but tolerates its failure: availability wins over strict freshness
// for an otherwise valid in-flight request.
func (m *Manager) GetValidToken(ctx context.Context, platform vault.Platform) (string, error) {
	m.mu.RLock()
	sess, ok := m.sessions[platform]
	var (
		status    Status
		token     string
		expiresAt time.Time
		window    time.Duration
	)
	if ok {
		status = sess.Status
		token = sess.ExecutionToken
		expiresAt = sess.ExpiresAt
		window = sess.RefreshWindow
	}
	m.mu.RUnlock()

	if !ok {
		return "", ErrNoSession
	}

	switch status {
	case StatusError:
		return "", ErrSessionFailed
	case StatusExpired:
		return "", ErrSessionExpired
	}

	now := m.clock.Now()
	if now.After(expiresAt) {
		m.expireSession(platform)
		return "", ErrSessionExpired
	}

	if expiresAt.Sub(now) > window {
		return token, nil
	}

	newToken, err := m.refresh(ctx, platform)
	if err != nil {
		// Lazy path: the token is still valid, keep serving it.
		log.Warn().Err(err).Str("platform", string(platform)).
			Msg("Lazy refresh failed, serving still-valid token")
		return token, nil
	}
	return newToken, nil
}

// RefreshSession is the explicit refresh entry point. Unlike the lazy path
// in GetValidToken, a failure here marks the session expired and surfaces
// the error.
func (m *Manager) RefreshSession(ctx context.Context, platform vault.Platform) error {
	if _, err := m.refresh(ctx, platform); err != nil {
		m.expireSession(platform)
		return err
	}
	return nil
}

// DestroySession revokes the session server-side (best effort) and
// unconditionally tears down local state: ticker, session record, and stats.
// Revocation failures are logged, never propagated.
func (m *Manager) DestroySession(ctx context.Context, platform vault.Platform) {
	m.mu.RLock()
	sess, ok := m.sessions[platform]
	var token string
	if ok {
		token = sess.ExecutionToken
	}
	m.mu.RUnlock()

	if !ok {
		return
	}

	if token != "" {
		if err := m.backend.DestroySession(ctx, token); err != nil {
			log.Warn().Err(err).Str("platform", string(platform)).
				Msg("Server-side session revocation failed, proceeding with local teardown")
		}
	}

	m.mu.Lock()
	m.stopTickerLocked(platform)
	delete(m.sessions, platform)
	delete(m.stats, platform)
	m.mu.Unlock()

	log.Info().Str("platform", string(platform)).Msg("Execution session destroyed")
	m.notify(platform, nil)
}

// ServerStatus asks the backend for its view of the platform's session.
func (m *Manager) ServerStatus(ctx context.Context, platform vault.Platform) (*backend.SessionStatusResponse, error) {
	m.mu.RLock()
	sess, ok := m.sessions[platform]
	var token string
	if ok {
		token = sess.ExecutionToken
	}
	m.mu.RUnlock()

	if !ok || token == "" {
		return nil, ErrNoSession
	}
	return m.backend.SessionStatus(ctx, token)
}

// RecordRequest updates usage statistics after a proxied marketplace call.
func (m *Manager) RecordRequest(platform vault.Platform, success bool, responseTime time.Duration) {
	requestDurationHist.WithLabelValues(string(platform), boolLabel(success)).
		Observe(responseTime.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[platform]; ok {
		sess.RequestCount++
	}

	stats, ok := m.stats[platform]
	if !ok {
		stats = &Stats{}
		m.stats[platform] = stats
	}

	stats.TotalRequests++
	if success {
		stats.SuccessCount++
	} else {
		stats.FailureCount++
	}

	sample := float64(responseTime.Milliseconds())
	n := float64(stats.TotalRequests)
	stats.AvgResponseTime = (stats.AvgResponseTime*(n-1) + sample) / n
}

// GetStats returns a snapshot of the platform's stats, or nil when nothing
// was recorded.
func (m *Manager) GetStats(platform vault.Platform) *Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats, ok := m.stats[platform]
	if !ok {
		return nil
	}
	copied := *stats
	return &copied
}

// Subscribe registers a callback for session state changes and returns its
// unsubscribe function. Dispatch is synchronous; a panicking subscriber
// cannot break notification to the others.
func (m *Manager) Subscribe(fn Subscriber) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subscribers, id)
	}
}

// exchangeKey performs the public-key fetch, challenge request, RSA
// encryption, and token exchange of session creation.
func (m *Manager) exchangeKey(ctx context.Context, platform vault.Platform, apiKey string) (*backend.CreateSessionResponse, error) {
	pubKey, err := m.backend.FetchPublicKey(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch server public key")
	}

	challengeID, err := m.backend.RequestChallenge(ctx, string(platform))
	if err != nil {
		return nil, errors.Wrap(err, "failed to request challenge")
	}

	encryptedKey, err := crypto.RSAEncrypt([]byte(apiKey), pubKey.PublicKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encrypt api key for transport")
	}

	resp, err := m.backend.CreateSession(ctx, backend.CreateSessionRequest{
		Platform:    string(platform),
		StorageMode: m.storageMode,
		KeyID:       pubKey.KeyID,
		ChallengeID: challengeID,
	}, encryptedKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to exchange key for execution token")
	}
	return resp, nil
}

// refresh performs one single-flight refresh for the platform and returns
// the new token. Failure policy is decided by the caller.
func (m *Manager) refresh(ctx context.Context, platform vault.Platform) (string, error) {
	v, err, _ := m.refreshGroup.Do(string(platform), func() (interface{}, error) {
		m.mu.RLock()
		sess, ok := m.sessions[platform]
		var token string
		if ok {
			token = sess.ExecutionToken
		}
		m.mu.RUnlock()

		if !ok {
			return "", ErrNoSession
		}

		resp, err := m.backend.RefreshSession(ctx, token)
		observeResult(sessionRefreshTotal, string(platform), err)
		if err != nil {
			return "", errors.Wrap(err, "failed to refresh execution token")
		}

		now := m.clock.Now()
		expiresAt := now.Add(m.defaultTTL)
		if resp.ExpiresAt != nil {
			expiresAt = *resp.ExpiresAt
		}

		m.mu.Lock()
		current, ok := m.sessions[platform]
		if !ok {
			// Destroyed while the refresh was in flight; drop the result.
			m.mu.Unlock()
			return "", ErrNoSession
		}
		current.ExecutionToken = resp.ExecutionToken
		current.ExpiresAt = expiresAt
		current.Status = StatusActive
		current.LastRefreshedAt = &now
		changed := snapshot(current)
		m.mu.Unlock()

		log.Debug().
			Str("platform", string(platform)).
			Time("expires_at", expiresAt).
			Msg("Execution token refreshed")
		m.notify(platform, changed)
		return resp.ExecutionToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// installSession replaces any prior session for the platform.
func (m *Manager) installSession(platform vault.Platform, sess *ExecutionSession) {
	m.mu.Lock()
	m.stopTickerLocked(platform)
	m.sessions[platform] = sess
	changed := snapshot(sess)
	m.mu.Unlock()

	m.notify(platform, changed)
}

// expireSession transitions an existing session to expired and clears its
// ticker.
func (m *Manager) expireSession(platform vault.Platform) {
	m.mu.Lock()
	sess, ok := m.sessions[platform]
	if !ok || sess.Status == StatusExpired {
		m.mu.Unlock()
		return
	}
	sess.Status = StatusExpired
	m.stopTickerLocked(platform)
	changed := snapshot(sess)
	m.mu.Unlock()

	log.Warn().Str("platform", string(platform)).Msg("Execution session expired")
	m.notify(platform, changed)
}

// startTicker launches the per-platform refresh check.
func (m *Manager) startTicker(platform vault.Platform) {
	m.mu.Lock()
	m.stopTickerLocked(platform)
	stop := make(chan struct{})
	m.tickers[platform] = stop
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.tick(platform)
			}
		}
	}()
}

func (m *Manager) stopTickerLocked(platform vault.Platform) {
	if stop, ok := m.tickers[platform]; ok {
		close(stop)
		delete(m.tickers, platform)
	}
}

// tick runs one per-platform refresh check: expire past-due sessions,
// refresh sessions inside their window.
func (m *Manager) tick(platform vault.Platform) {
	m.mu.RLock()
	sess, ok := m.sessions[platform]
	var (
		status    Status
		expiresAt time.Time
		window    time.Duration
	)
	if ok {
		status = sess.Status
		expiresAt = sess.ExpiresAt
		window = sess.RefreshWindow
	}
	m.mu.RUnlock()

	if !ok || status != StatusActive {
		return
	}

	now := m.clock.Now()
	if now.After(expiresAt) {
		m.expireSession(platform)
		return
	}

	if expiresAt.Sub(now) <= window {
		if err := m.RefreshSession(context.Background(), platform); err != nil {
			log.Warn().Err(err).Str("platform", string(platform)).
				Msg("Scheduled refresh failed")
		}
	}
}

// sweepExpired checks every platform's expiry in one pass.
func (m *Manager) sweepExpired() {
	now := m.clock.Now()

	m.mu.RLock()
	var expired []vault.Platform
	for platform, sess := range m.sessions {
		if sess.Status == StatusActive && now.After(sess.ExpiresAt) {
			expired = append(expired, platform)
		}
	}
	m.mu.RUnlock()

	for _, platform := range expired {
		m.expireSession(platform)
	}
}

func (m *Manager) notify(platform vault.Platform, sess *ExecutionSession) {
	m.subMu.Lock()
	subscribers := make([]Subscriber, 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subscribers = append(subscribers, fn)
	}
	m.subMu.Unlock()

	for _, fn := range subscribers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("Session subscriber panicked")
				}
			}()
			fn(platform, sess)
		}()
	}
}

func snapshot(sess *ExecutionSession) *ExecutionSession {
	if sess == nil {
		return nil
	}
	copied := *sess
	if sess.LastRefreshedAt != nil {
		at := *sess.LastRefreshedAt
		copied.LastRefreshedAt = &at
	}
	return &copied
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
