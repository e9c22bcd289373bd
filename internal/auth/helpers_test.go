// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/gymbuddy/gymbuddy/internal/auth"
	"github.com/gymbuddy/gymbuddy/internal/auth/authtest"
)

// testArgon2Params keep hashing fast in tests.
var testArgon2Params = auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

func newTestHasher(t *testing.T) *auth.Argon2idHasher {
	t.Helper()
	h, err := auth.NewArgon2idHasherWithParams(testArgon2Params)
	require.NoError(t, err)
	return h
}

// failingUserRepo wraps the in-memory repository with injectable failures.
type failingUserRepo struct {
	*authtest.UserRepository
	getErr     error
	getByIDErr error
	updateErr  error
	createErr  error
}

func (r *failingUserRepo) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	if r.getByIDErr != nil {
		return nil, r.getByIDErr
	}
	return r.UserRepository.GetByID(ctx, id)
}

func (r *failingUserRepo) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.UserRepository.GetByUsername(ctx, username)
}

func (r *failingUserRepo) UpdatePassword(ctx context.Context, id ulid.ULID, hash string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	return r.UserRepository.UpdatePassword(ctx, id, hash)
}

func (r *failingUserRepo) Create(ctx context.Context, user *auth.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.UserRepository.Create(ctx, user)
}

// failingSessionRepo wraps the in-memory repository with injectable failures.
type failingSessionRepo struct {
	*authtest.SessionRepository
	getErr    error
	deleteErr error
	createErr error
	purgeErr  error
}

func (r *failingSessionRepo) Create(ctx context.Context, s *auth.Session) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.SessionRepository.Create(ctx, s)
}

func (r *failingSessionRepo) GetByTokenHash(ctx context.Context, hash string) (*auth.Session, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.SessionRepository.GetByTokenHash(ctx, hash)
}

func (r *failingSessionRepo) Delete(ctx context.Context, hash string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.SessionRepository.Delete(ctx, hash)
}

func (r *failingSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if r.purgeErr != nil {
		return 0, r.purgeErr
	}
	return r.SessionRepository.DeleteExpired(ctx, now)
}
