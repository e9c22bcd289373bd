// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

// Package postgres implements profile.Repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gymbuddy/gymbuddy/internal/profile"
	"github.com/gymbuddy/gymbuddy/internal/store"
)

const profileColumns = `id, user_id, age, weight, height, level, tenure, updated_at`

// Repository implements profile.Repository using PostgreSQL.
type Repository struct {
	pool store.DBTX
}

// NewRepository creates a new Repository.
func NewRepository(pool store.DBTX) *Repository {
	return &Repository{pool: pool}
}

// Get returns the profile owned by userID.
func (r *Repository) Get(ctx context.Context, userID ulid.ULID) (*profile.Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID.String())

	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PROFILE_ROW_NOT_FOUND").With("user_id", userID.String()).Wrap(profile.ErrAbsent)
	}
	if err != nil {
		return nil, oops.Code("PROFILE_GET_FAILED").
			With("operation", "select profile").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return p, nil
}

// Upsert writes p in one statement. The unique user_id constraint makes
// concurrent first saves for a user collapse into a single row; the row id
// of an existing profile is kept.
func (r *Repository) Upsert(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			age = EXCLUDED.age,
			weight = EXCLUDED.weight,
			height = EXCLUDED.height,
			level = EXCLUDED.level,
			tenure = EXCLUDED.tenure,
			updated_at = EXCLUDED.updated_at
		RETURNING `+profileColumns,
		p.ID.String(), p.UserID.String(), p.Age, p.Weight, p.Height, string(p.Level), p.Tenure, p.UpdatedAt,
	)

	stored, err := scanProfile(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, oops.Code("PROFILE_OWNER_FK").
				With("user_id", p.UserID.String()).
				Wrap(profile.ErrOwnerMissing)
		}
		return nil, oops.Code("PROFILE_UPSERT_FAILED").
			With("operation", "upsert profile").
			With("user_id", p.UserID.String()).
			Wrap(err)
	}
	return stored, nil
}

func scanProfile(row pgx.Row) (*profile.Profile, error) {
	var (
		idStr, userIDStr string
		level            string
		p                profile.Profile
		updatedAt        time.Time
	)
	if err := row.Scan(&idStr, &userIDStr, &p.Age, &p.Weight, &p.Height, &level, &p.Tenure, &updatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with operation context
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("PROFILE_INVALID_ID").With("id", idStr).Wrap(err)
	}
	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("PROFILE_INVALID_USER_ID").With("user_id", userIDStr).Wrap(err)
	}

	p.ID = id
	p.UserID = userID
	p.Level = profile.Level(level)
	p.UpdatedAt = updatedAt
	return &p, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

var _ profile.Repository = (*Repository)(nil)
