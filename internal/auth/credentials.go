// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gymbuddy/gymbuddy/pkg/errutil"
)

// dummyPassword is hashed once per CredentialStore so unknown usernames
// cost the same argon2id work as real ones.
//
//nolint:gosec // G101: not a credential, never matches a stored hash
const dummyPassword = "gymbuddy-timing-equalizer"

// CredentialStore registers users and verifies their passwords.
type CredentialStore struct {
	users     UserRepository
	hasher    PasswordHasher
	dummyHash string
	logger    *slog.Logger
}

// NewCredentialStore creates a new CredentialStore.
func NewCredentialStore(users UserRepository, hasher PasswordHasher) (*CredentialStore, error) {
	return NewCredentialStoreWithLogger(users, hasher, slog.Default())
}

// NewCredentialStoreWithLogger creates a CredentialStore that reports
// best-effort failures to logger.
func NewCredentialStoreWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*CredentialStore, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").With("operation", "hash dummy password").Wrap(err)
	}
	return &CredentialStore{
		users:     users,
		hasher:    hasher,
		dummyHash: dummyHash,
		logger:    logger,
	}, nil
}

// Register creates a user and returns its ID. The password is hashed before
// anything is written; a taken username yields AUTH_DUPLICATE_USERNAME and
// leaves storage untouched.
func (s *CredentialStore) Register(ctx context.Context, username, password string) (ulid.ULID, error) {
	if err := ValidateUsername(username); err != nil {
		return ulid.ULID{}, err
	}
	if password == "" {
		return ulid.ULID{}, ErrEmptyPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return ulid.ULID{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, hash)
	if err != nil {
		return ulid.ULID{}, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return ulid.ULID{}, oops.Code(CodeDuplicateUsername).
				With("username", username).
				Errorf("username %q is already taken", username)
		}
		return ulid.ULID{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			With("username", username).
			Wrap(err)
	}

	return user.ID, nil
}

// Verify checks a username/password pair and returns the user's ID.
// Unknown usernames and wrong passwords both yield AUTH_INVALID_CREDENTIALS,
// and both paths run one full hash verification.
func (s *CredentialStore) Verify(ctx context.Context, username, password string) (ulid.ULID, error) {
	user, lookupErr := s.users.GetByUsername(ctx, username)

	var targetHash string
	userExists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = s.dummyHash
	default:
		return ulid.ULID{}, oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "get user by username").
			Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return ulid.ULID{}, invalidCredentials()
		}
		return ulid.ULID{}, oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return ulid.ULID{}, invalidCredentials()
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	return user.ID, nil
}

func (s *CredentialStore) upgradeHash(ctx context.Context, user *User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, user.ID, newHash)
	}
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, slog.LevelWarn, "best-effort password hash upgrade failed",
			oops.With("operation", "upgrade_password_hash").With("user_id", user.ID.String()).Wrap(err))
	}
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid username or password")
}
