// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package profile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Repository persists profiles.
type Repository interface {
	// Get returns the profile owned by userID, or an error wrapping ErrAbsent.
	Get(ctx context.Context, userID ulid.ULID) (*Profile, error)

	// Upsert inserts p or replaces the mutable fields of the profile already
	// owned by p.UserID, atomically, and returns the stored row. A missing
	// owner yields an error wrapping ErrOwnerMissing.
	Upsert(ctx context.Context, p *Profile) (*Profile, error)
}

// Store validates and persists profiles.
type Store struct {
	repo   Repository
	now    func() time.Time
	logger *slog.Logger
}

// NewStore creates a Store backed by repo.
func NewStore(repo Repository) (*Store, error) {
	return NewStoreWithLogger(repo, slog.Default())
}

// NewStoreWithLogger creates a Store that logs with logger.
func NewStoreWithLogger(repo Repository, logger *slog.Logger) (*Store, error) {
	if repo == nil {
		return nil, oops.Code("PROFILE_INVALID_DEPENDENCY").Errorf("profile repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{repo: repo, now: time.Now, logger: logger}, nil
}

// Get returns the user's profile. A user without one gets an error with code
// PROFILE_ABSENT wrapping ErrAbsent.
func (s *Store) Get(ctx context.Context, userID ulid.ULID) (*Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrAbsent) {
			return nil, oops.Code(CodeAbsent).With("user_id", userID.String()).Wrap(ErrAbsent)
		}
		return nil, oops.With("operation", "get profile").With("user_id", userID.String()).Wrap(err)
	}
	return p, nil
}

// Upsert validates attrs and stores them as userID's profile. Invalid input
// is rejected before any write.
func (s *Store) Upsert(ctx context.Context, userID ulid.ULID, attrs Attributes) (*Profile, error) {
	if err := attrs.Validate(); err != nil {
		return nil, err
	}

	p := &Profile{
		ID:         ulid.Make(),
		UserID:     userID,
		Attributes: attrs.Normalize(),
		UpdatedAt:  s.now().UTC(),
	}
	stored, err := s.repo.Upsert(ctx, p)
	if err != nil {
		if errors.Is(err, ErrOwnerMissing) {
			return nil, oops.Code(CodeOwnerMissing).With("user_id", userID.String()).Wrap(ErrOwnerMissing)
		}
		return nil, oops.With("operation", "upsert profile").With("user_id", userID.String()).Wrap(err)
	}

	s.logger.DebugContext(ctx, "profile saved",
		"user_id", userID.String(),
		"profile_id", stored.ID.String(),
		"level", string(stored.Level))
	return stored, nil
}
