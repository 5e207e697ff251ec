package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/vaultadmin/internal/errors"
)

// RedisLoginLockout tracks failed login attempts on redis so the lockout
// holds across instances.
type RedisLoginLockout struct {
	client *redis.Client
}

func loginFailuresKey(email string) string {
	return "login:failures:" + email
}

func loginLockKey(email string) string {
	return "login:lock:" + email
}

// IncrementFailures bumps the email's failure counter and returns the new
// count. The counter expires after the window so stale failures do not
// accumulate forever.
func (r *RedisLoginLockout) IncrementFailures(
	ctx context.Context,
	email string,
	window time.Duration,
) (int64, error) {
	key := loginFailuresKey(email)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, apperrors.Wrap(err, "failed to increment login failures")
	}
	return incr.Val(), nil
}

// ResetFailures clears the email's failure counter.
func (r *RedisLoginLockout) ResetFailures(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, loginFailuresKey(email)).Err(); err != nil {
		return apperrors.Wrap(err, "failed to reset login failures")
	}
	return nil
}

// Lock marks the email locked out of logging in for the duration.
func (r *RedisLoginLockout) Lock(ctx context.Context, email string, duration time.Duration) error {
	if err := r.client.Set(ctx, loginLockKey(email), "1", duration).Err(); err != nil {
		return apperrors.Wrap(err, "failed to lock login")
	}
	return nil
}

// IsLocked reports whether the email is currently locked out.
func (r *RedisLoginLockout) IsLocked(ctx context.Context, email string) (bool, error) {
	count, err := r.client.Exists(ctx, loginLockKey(email)).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check login lockout")
	}
	return count > 0, nil
}

// NewRedisLoginLockout creates a new redis-backed login lockout.
func NewRedisLoginLockout(client *redis.Client) *RedisLoginLockout {
	return &RedisLoginLockout{client: client}
}
