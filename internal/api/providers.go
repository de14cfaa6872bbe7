package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/brickbee/go-trade-vault/internal/backend"
	"github.com/brickbee/go-trade-vault/internal/config"
	"github.com/brickbee/go-trade-vault/internal/session"
	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/brickbee/go-trade-vault/internal/vault/storage"
	"github.com/dropbox/godropbox/time2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// PROVIDERS - component constructors that for various reasons (cyclic
// dependency, sub-config unwrapping) can't live in their corresponding
// packages.

func NewClock(t ...*testing.T) time2.Clock {
	var clock time2.Clock

	useMock := len(t) > 0 && t[0] != nil

	if useMock {
		clock = time2.NewMockClock(time.Now())
	} else {
		clock = time2.DefaultClock
	}

	return clock
}

// NewRedisClient connects the server-custody store. Returns (nil, nil) when
// no endpoint is configured; server custody is optional.
func NewRedisClient(cfg config.Server) (*redis.Client, error) {
	if cfg.Redis.Endpoint == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Endpoint,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to ping redis")
	}

	return client, nil
}

func NewBackendClient(cfg config.Server) *backend.Client {
	return backend.NewClient(cfg.Backend.BaseURL, &http.Client{}, cfg.Backend.RequestTimeout)
}

func NewSessionManager(cfg config.Server, backendClient session.BackendClient, clock time2.Clock) *session.Manager {
	return session.NewManager(backendClient, clock, session.Options{
		DefaultTTL:    cfg.Session.DefaultTTL,
		RefreshWindow: cfg.Session.RefreshWindow,
		TickInterval:  cfg.Session.TickInterval,
		SweepInterval: cfg.Session.SweepInterval,
	})
}

// NewVaultManager wires the local file store and, when redis is configured,
// the server-custody store into the vault.
func NewVaultManager(cfg config.Server, redisClient *redis.Client, sessions vault.SessionBroker, clock time2.Clock) (*vault.Manager, error) {
	local, err := storage.NewFileStore(cfg.Vault.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize local credential store")
	}

	var server vault.CredentialStore
	if redisClient != nil {
		server = storage.NewRedisStore(redisClient, cfg.Redis.CredentialTTL)
	}

	return vault.NewManager(local, server, sessions, clock), nil
}
