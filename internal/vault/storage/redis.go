package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/brickbee/go-trade-vault/internal/vault"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "vault:credential:"

// RedisStore is the server-custody credential backend. It holds the same
// encrypted-at-rest payloads as the file vault; the plaintext key still never
// leaves the vault manager.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ vault.CredentialStore = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed credential store. A zero ttl stores
// credentials without expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, credential *vault.PlatformCredential) error {
	if credential == nil {
		return errors.New("credential is nil")
	}

	data, err := json.Marshal(credential)
	if err != nil {
		return errors.Wrap(err, "failed to marshal credential")
	}

	key := redisKeyPrefix + string(credential.Platform)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to save credential")
	}

	return nil
}

func (s *RedisStore) Get(ctx context.Context, platform vault.Platform) (*vault.PlatformCredential, error) {
	key := redisKeyPrefix + string(platform)
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, vault.ErrCredentialNotFound
		}
		return nil, errors.Wrap(err, "failed to get credential")
	}

	var credential vault.PlatformCredential
	if err := json.Unmarshal(data, &credential); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal credential")
	}

	return &credential, nil
}

func (s *RedisStore) Delete(ctx context.Context, platform vault.Platform) error {
	key := redisKeyPrefix + string(platform)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "failed to delete credential")
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*vault.PlatformCredential, error) {
	keys, err := s.client.Keys(ctx, redisKeyPrefix+"*").Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list credential keys")
	}

	credentials := make([]*vault.PlatformCredential, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, errors.Wrap(err, "failed to get credential")
		}

		var credential vault.PlatformCredential
		if err := json.Unmarshal(data, &credential); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal credential")
		}
		credentials = append(credentials, &credential)
	}

	return credentials, nil
}
