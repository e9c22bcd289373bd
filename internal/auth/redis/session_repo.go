// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

// Package redis stores sessions in Redis. Keys expire with their sessions,
// so the periodic purge only has stragglers to remove.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/gymbuddy/gymbuddy/internal/auth"
)

// DefaultKeyPrefix namespaces session keys.
const DefaultKeyPrefix = "gymbuddy:session:"

// expiredGrace keeps a session key past its expiry so Validate reports the
// token as expired rather than unknown.
const expiredGrace = time.Minute

// sessionRecord is the JSON value stored under each key.
type sessionRecord struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRepository implements auth.SessionRepository on Redis.
type SessionRepository struct {
	client goredis.Cmdable
	prefix string
	now    func() time.Time
}

// NewSessionRepository creates a SessionRepository using DefaultKeyPrefix.
func NewSessionRepository(client goredis.Cmdable) *SessionRepository {
	return NewSessionRepositoryWithPrefix(client, DefaultKeyPrefix)
}

// NewSessionRepositoryWithPrefix creates a SessionRepository whose keys
// start with prefix.
func NewSessionRepositoryWithPrefix(client goredis.Cmdable, prefix string) *SessionRepository {
	return &SessionRepository{client: client, prefix: prefix, now: time.Now}
}

func (r *SessionRepository) key(tokenHash string) string {
	return r.prefix + tokenHash
}

// keyTTL is the Redis expiry for a session expiring at expiresAt.
func keyTTL(now, expiresAt time.Time) time.Duration {
	ttl := expiresAt.Sub(now)
	if ttl < 0 {
		ttl = 0
	}
	return ttl + expiredGrace
}

// Create stores a session. SETNX keeps an existing session with the same
// hash untouched.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	data, err := json.Marshal(sessionRecord{
		UserID:    session.UserID.String(),
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	})
	if err != nil {
		return oops.Code("SESSION_INSERT_FAILED").With("operation", "encode session").Wrap(err)
	}

	ok, err := r.client.SetNX(ctx, r.key(session.TokenHash), data, keyTTL(r.now(), session.ExpiresAt)).Result()
	if err != nil {
		return oops.Code("SESSION_INSERT_FAILED").
			With("operation", "redis setnx").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	if !ok {
		return oops.Code("SESSION_INSERT_FAILED").Errorf("session already exists")
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	data, err := r.client.Get(ctx, r.key(tokenHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, oops.Code("SESSION_ROW_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("operation", "redis get").Wrap(err)
	}

	session, err := decodeSession(tokenHash, data)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func decodeSession(tokenHash string, data []byte) (*auth.Session, error) {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").Wrap(err)
	}
	userID, err := ulid.Parse(rec.UserID)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").With("user_id", rec.UserID).Wrap(err)
	}
	return &auth.Session{
		TokenHash: tokenHash,
		UserID:    userID,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}

// Delete removes a session. DEL is atomic, so of two concurrent deletes only
// one sees a removed key.
func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	n, err := r.client.Del(ctx, r.key(tokenHash)).Result()
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("operation", "redis del").Wrap(err)
	}
	if n == 0 {
		return oops.Code("SESSION_ROW_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired scans the session keyspace and removes sessions expired at
// now that Redis has not yet evicted.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return removed, oops.Code("SESSION_DELETE_EXPIRED_FAILED").With("operation", "redis get").Wrap(err)
		}
		session, err := decodeSession(strings.TrimPrefix(key, r.prefix), data)
		if err != nil || !session.IsExpiredAt(now) {
			continue
		}
		n, err := r.client.Del(ctx, key).Result()
		if err != nil {
			return removed, oops.Code("SESSION_DELETE_EXPIRED_FAILED").With("operation", "redis del").Wrap(err)
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, oops.Code("SESSION_DELETE_EXPIRED_FAILED").With("operation", "redis scan").Wrap(err)
	}
	return removed, nil
}

var _ auth.SessionRepository = (*SessionRepository)(nil)
