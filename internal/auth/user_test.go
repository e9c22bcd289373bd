// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymbuddy/gymbuddy/internal/auth"
	"github.com/gymbuddy/gymbuddy/pkg/errutil"
)

func TestNewUser(t *testing.T) {
	t.Run("creates valid user", func(t *testing.T) {
		user, err := auth.NewUser("alice", "$argon2id$hash")
		require.NoError(t, err)
		require.NotNil(t, user)

		assert.NotEqual(t, ulid.ULID{}, user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "$argon2id$hash", user.PasswordHash)
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("ids are unique", func(t *testing.T) {
		a, err := auth.NewUser("alice", "h")
		require.NoError(t, err)
		b, err := auth.NewUser("alice", "h")
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("rejects invalid username", func(t *testing.T) {
		user, err := auth.NewUser("", "$argon2id$hash")
		assert.Nil(t, user)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidUsername)
	})

	t.Run("rejects empty password hash", func(t *testing.T) {
		user, err := auth.NewUser("alice", "")
		assert.Nil(t, user)
		errutil.AssertErrorCode(t, err, "USER_INVALID_HASH")
	})
}

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"simple", "alice", false},
		{"with digits and underscore", "gym_rat_42", false},
		{"minimum length", "abc", false},
		{"maximum length", "a" + strings.Repeat("b", auth.MaxUsernameLength-1), false},
		{"empty", "", true},
		{"too short", "ab", true},
		{"too long", "a" + strings.Repeat("b", auth.MaxUsernameLength), true},
		{"leading digit", "1alice", true},
		{"space", "alice smith", true},
		{"symbol", "alice!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateUsername(tt.username)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, auth.CodeInvalidUsername)
				return
			}
			assert.NoError(t, err)
		})
	}
}
