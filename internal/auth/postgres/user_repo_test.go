// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymbuddy/gymbuddy/internal/auth"
	"github.com/gymbuddy/gymbuddy/pkg/errutil"
)

var userColumns = []string{"id", "username", "password_hash", "created_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestUserRepository_Create(t *testing.T) {
	user := &auth.User{
		ID:           ulid.Make(),
		Username:     "alice",
		PasswordHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		CreatedAt:    time.Now().UTC(),
	}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantCode  string
		wantDup   bool
	}{
		{
			name: "inserts user",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(user.ID.String(), user.Username, user.PasswordHash, user.CreatedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "unique violation maps to duplicate username",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_lower_idx"})
			},
			wantCode: "USER_DUPLICATE",
			wantDup:  true,
		},
		{
			name: "other failures keep their cause",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("connection refused"))
			},
			wantCode: "USER_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setupMock(mock)

			err := NewUserRepository(mock).Create(context.Background(), user)
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, tt.wantCode)
			assert.Equal(t, tt.wantDup, errors.Is(err, auth.ErrDuplicateUsername))
			assert.NotContains(t, err.Error(), user.PasswordHash)
		})
	}
}

func TestUserRepository_GetByUsername(t *testing.T) {
	id := ulid.Make()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		wantCode  string
	}{
		{
			name: "found ignoring case",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`WHERE lower\(username\) = lower\(\$1\)`).
					WithArgs("ALICE").
					WillReturnRows(pgxmock.NewRows(userColumns).AddRow(id.String(), "alice", "hash", created))
			},
		},
		{
			name: "absent",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users`).
					WithArgs("ALICE").
					WillReturnRows(pgxmock.NewRows(userColumns))
			},
			wantErr:  auth.ErrNotFound,
			wantCode: "USER_NOT_FOUND",
		},
		{
			name: "corrupt id",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users`).
					WithArgs("ALICE").
					WillReturnRows(pgxmock.NewRows(userColumns).AddRow("not-a-ulid", "alice", "hash", created))
			},
			wantCode: "USER_INVALID_ID",
		},
		{
			name: "query failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users`).
					WithArgs("ALICE").
					WillReturnError(errors.New("connection reset"))
			},
			wantCode: "USER_GET_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setupMock(mock)

			user, err := NewUserRepository(mock).GetByUsername(context.Background(), "ALICE")
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, id, user.ID)
				assert.Equal(t, "alice", user.Username)
				assert.Equal(t, created, user.CreatedAt)
				return
			}
			assert.Nil(t, user)
			errutil.AssertErrorCode(t, err, tt.wantCode)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	id := ulid.Make()

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows(userColumns).AddRow(id.String(), "bob", "hash", time.Now()))

		user, err := NewUserRepository(mock).GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "bob", user.Username)
	})

	t.Run("absent", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows(userColumns))

		_, err := NewUserRepository(mock).GetByID(context.Background(), id)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	id := ulid.Make()

	tests := []struct {
		name     string
		result   pgconn.CommandTag
		execErr  error
		wantCode string
	}{
		{name: "updated", result: pgxmock.NewResult("UPDATE", 1)},
		{name: "no such user", result: pgxmock.NewResult("UPDATE", 0), wantCode: "USER_NOT_FOUND"},
		{name: "failure", execErr: errors.New("timeout"), wantCode: "USER_UPDATE_PASSWORD_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			exp := mock.ExpectExec(`UPDATE users SET password_hash`).WithArgs(id.String(), "newhash")
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := NewUserRepository(mock).UpdatePassword(context.Background(), id, "newhash")
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}
