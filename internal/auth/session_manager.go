// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gymbuddy/gymbuddy/pkg/errutil"
)

// SessionManager issues, validates and revokes session tokens.
// Expiry is computed on every validation; nothing is cached.
type SessionManager struct {
	sessions SessionRepository
	owners   UserRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(sessions SessionRepository) (*SessionManager, error) {
	return NewSessionManagerWithLogger(sessions, slog.Default())
}

// NewSessionManagerWithLogger creates a SessionManager that reports
// best-effort failures to logger.
func NewSessionManagerWithLogger(sessions SessionRepository, logger *slog.Logger) (*SessionManager, error) {
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("session repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions: sessions,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// NewSessionManagerWithOwners creates a SessionManager that also requires the
// session's user to exist. Use it for session stores that do not cascade
// user deletes.
func NewSessionManagerWithOwners(sessions SessionRepository, owners UserRepository, logger *slog.Logger) (*SessionManager, error) {
	if owners == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("user repository is required")
	}
	m, err := NewSessionManagerWithLogger(sessions, logger)
	if err != nil {
		return nil, err
	}
	m.owners = owners
	return m, nil
}

// Create issues a new token for userID that expires after ttl.
// A ttl of zero or less produces a session that never validates.
func (m *SessionManager) Create(ctx context.Context, userID ulid.ULID, ttl time.Duration) (string, time.Time, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return "", time.Time{}, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	now := m.now().UTC()
	session, err := NewSession(userID, tokenHash, now.Add(ttl), now)
	if err != nil {
		return "", time.Time{}, err
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return "", time.Time{}, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", userID.String()).
			Wrap(err)
	}

	return token, session.ExpiresAt, nil
}

// Validate resolves a token to its user ID. An unknown token yields
// SESSION_NOT_FOUND; a token whose expiry has passed yields SESSION_EXPIRED
// and its row is removed best-effort.
func (m *SessionManager) Validate(ctx context.Context, token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, sessionNotFound()
	}

	tokenHash := HashSessionToken(token)
	session, err := m.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, sessionNotFound()
		}
		return ulid.ULID{}, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpiredAt(m.now()) {
		if delErr := m.sessions.Delete(ctx, tokenHash); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			errutil.LogErrorContext(ctx, m.logger, slog.LevelWarn, "best-effort expired session delete failed",
				oops.With("operation", "delete_expired_session").With("user_id", session.UserID.String()).Wrap(delErr))
		}
		return ulid.ULID{}, oops.Code(CodeSessionExpired).
			With("expired_at", session.ExpiresAt).
			Errorf("session has expired")
	}

	if m.owners != nil {
		if err := m.checkOwner(ctx, tokenHash, session.UserID); err != nil {
			return ulid.ULID{}, err
		}
	}

	return session.UserID, nil
}

// checkOwner treats a session whose user is gone as not found and drops it.
func (m *SessionManager) checkOwner(ctx context.Context, tokenHash string, userID ulid.ULID) error {
	_, err := m.owners.GetByID(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session owner").
			Wrap(err)
	}
	if delErr := m.sessions.Delete(ctx, tokenHash); delErr != nil && !errors.Is(delErr, ErrNotFound) {
		errutil.LogErrorContext(ctx, m.logger, slog.LevelWarn, "best-effort orphaned session delete failed",
			oops.With("operation", "delete_orphaned_session").With("user_id", userID.String()).Wrap(delErr))
	}
	return sessionNotFound()
}

// Revoke deletes the session for token. Once it returns nil no later
// Validate of the same token succeeds.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return sessionNotFound()
	}
	if err := m.sessions.Delete(ctx, HashSessionToken(token)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return sessionNotFound()
		}
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// PurgeExpired deletes every expired session and returns how many were removed.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}

func sessionNotFound() error {
	return oops.Code(CodeSessionNotFound).Wrapf(ErrNotFound, "session")
}
