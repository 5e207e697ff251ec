// Package repository implements the ephemeral SSO token store: a
// redis-backed variant for multi-instance deployments and an in-memory
// variant for single-instance and test use. Tokens, failure counters, and
// lockouts never touch the database.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/vaultadmin/internal/errors"
	ssoDomain "github.com/allisson/vaultadmin/internal/sso/domain"
)

// RedisTokenStore implements the SSO token store on redis. Single-use
// consumption relies on GETDEL being atomic, so two concurrent redeems of
// the same token cannot both succeed.
type RedisTokenStore struct {
	client *redis.Client
}

func tokenKey(sessionID uuid.UUID, value string) string {
	return "sso:token:" + sessionID.String() + ":" + value
}

func failuresKey(sessionID uuid.UUID) string {
	return "sso:failures:" + sessionID.String()
}

func lockKey(sessionID uuid.UUID) string {
	return "sso:lock:" + sessionID.String()
}

// Put stores a token under its session and value with the given TTL.
func (r *RedisTokenStore) Put(ctx context.Context, token *ssoDomain.Token, ttl time.Duration) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal sso token")
	}

	key := tokenKey(token.SessionID, token.Value)
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return apperrors.Wrap(err, "failed to store sso token")
	}
	return nil
}

// GetDelete atomically consumes a token. Returns ErrNotFound when the token
// is absent: never issued, already consumed, or expired out of the store.
func (r *RedisTokenStore) GetDelete(
	ctx context.Context,
	sessionID uuid.UUID,
	value string,
) (*ssoDomain.Token, error) {
	payload, err := r.client.GetDel(ctx, tokenKey(sessionID, value)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to consume sso token")
	}

	var token ssoDomain.Token
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal sso token")
	}
	return &token, nil
}

// IncrementFailures bumps the session's decrypt failure counter and returns
// the new count. The counter expires after the window so stale failures do
// not accumulate forever.
func (r *RedisTokenStore) IncrementFailures(
	ctx context.Context,
	sessionID uuid.UUID,
	window time.Duration,
) (int64, error) {
	key := failuresKey(sessionID)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, apperrors.Wrap(err, "failed to increment sso failures")
	}
	return incr.Val(), nil
}

// ResetFailures clears the session's decrypt failure counter.
func (r *RedisTokenStore) ResetFailures(ctx context.Context, sessionID uuid.UUID) error {
	if err := r.client.Del(ctx, failuresKey(sessionID)).Err(); err != nil {
		return apperrors.Wrap(err, "failed to reset sso failures")
	}
	return nil
}

// Lock marks the session locked out of issuing tokens for the duration.
func (r *RedisTokenStore) Lock(ctx context.Context, sessionID uuid.UUID, duration time.Duration) error {
	if err := r.client.Set(ctx, lockKey(sessionID), "1", duration).Err(); err != nil {
		return apperrors.Wrap(err, "failed to lock sso issuance")
	}
	return nil
}

// IsLocked reports whether the session is currently locked out.
func (r *RedisTokenStore) IsLocked(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	count, err := r.client.Exists(ctx, lockKey(sessionID)).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check sso lockout")
	}
	return count > 0, nil
}

// NewRedisTokenStore creates a new redis-backed token store.
func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}
