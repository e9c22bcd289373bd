// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

// Package gateway composes credentials, sessions, profiles and routine
// generation into the operations exposed to clients.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gymbuddy/gymbuddy/internal/auth"
	"github.com/gymbuddy/gymbuddy/internal/profile"
	"github.com/gymbuddy/gymbuddy/internal/routine"
	"github.com/gymbuddy/gymbuddy/internal/store"
	"github.com/gymbuddy/gymbuddy/pkg/errutil"
)

// DefaultSessionTTL is the lifetime of a login session.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Credentials registers and verifies users.
type Credentials interface {
	Register(ctx context.Context, username, password string) (ulid.ULID, error)
	Verify(ctx context.Context, username, password string) (ulid.ULID, error)
}

// Sessions issues, validates and revokes session tokens.
type Sessions interface {
	Create(ctx context.Context, userID ulid.ULID, ttl time.Duration) (string, time.Time, error)
	Validate(ctx context.Context, token string) (ulid.ULID, error)
	Revoke(ctx context.Context, token string) error
}

// Profiles reads and writes user profiles.
type Profiles interface {
	Get(ctx context.Context, userID ulid.ULID) (*profile.Profile, error)
	Upsert(ctx context.Context, userID ulid.ULID, attrs profile.Attributes) (*profile.Profile, error)
}

// Routines generates weekly routines.
type Routines interface {
	Generate(ctx context.Context, token string, req routine.Request) (*routine.WeeklyRoutine, error)
	GenerateForUser(ctx context.Context, userID ulid.ULID, req routine.Request) (*routine.WeeklyRoutine, error)
}

// Config tunes the gateway.
type Config struct {
	SessionTTL time.Duration
	RetryDelay time.Duration
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	UserID    ulid.ULID
	Token     string
	ExpiresAt time.Time
}

// Gateway is the composition root for client operations. Storage calls that
// fail transiently are retried once.
type Gateway struct {
	credentials Credentials
	sessions    Sessions
	profiles    Profiles
	routines    Routines
	cfg         Config
	logger      *slog.Logger
}

// New creates a Gateway.
func New(credentials Credentials, sessions Sessions, profiles Profiles, routines Routines, cfg Config) (*Gateway, error) {
	return NewWithLogger(credentials, sessions, profiles, routines, cfg, slog.Default())
}

// NewWithLogger creates a Gateway that logs to logger.
func NewWithLogger(credentials Credentials, sessions Sessions, profiles Profiles, routines Routines, cfg Config, logger *slog.Logger) (*Gateway, error) {
	if credentials == nil {
		return nil, oops.Code("GATEWAY_INVALID_DEPENDENCY").Errorf("credential store is required")
	}
	if sessions == nil {
		return nil, oops.Code("GATEWAY_INVALID_DEPENDENCY").Errorf("session manager is required")
	}
	if profiles == nil {
		return nil, oops.Code("GATEWAY_INVALID_DEPENDENCY").Errorf("profile store is required")
	}
	if routines == nil {
		return nil, oops.Code("GATEWAY_INVALID_DEPENDENCY").Errorf("routine orchestrator is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = store.DefaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		credentials: credentials,
		sessions:    sessions,
		profiles:    profiles,
		routines:    routines,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Register creates a user. A taken username yields AUTH_DUPLICATE_USERNAME.
func (g *Gateway) Register(ctx context.Context, username, password string) (ulid.ULID, error) {
	id, err := store.RetryTransient(ctx, g.cfg.RetryDelay, func(ctx context.Context) (ulid.ULID, error) {
		return g.credentials.Register(ctx, username, password)
	})
	if err != nil {
		RecordAuthAttempt("register", resultFor(err))
		return ulid.ULID{}, err
	}
	RecordAuthAttempt("register", ResultSuccess)
	g.logger.InfoContext(ctx, "user registered", "user_id", id.String())
	return id, nil
}

// Login verifies credentials and issues a session token.
func (g *Gateway) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	userID, err := store.RetryTransient(ctx, g.cfg.RetryDelay, func(ctx context.Context) (ulid.ULID, error) {
		return g.credentials.Verify(ctx, username, password)
	})
	if err != nil {
		RecordAuthAttempt("login", resultFor(err))
		return nil, err
	}

	res, err := store.RetryTransient(ctx, g.cfg.RetryDelay, func(ctx context.Context) (*LoginResult, error) {
		token, expiresAt, err := g.sessions.Create(ctx, userID, g.cfg.SessionTTL)
		if err != nil {
			return nil, err
		}
		return &LoginResult{UserID: userID, Token: token, ExpiresAt: expiresAt}, nil
	})
	if err != nil {
		RecordAuthAttempt("login", ResultFailure)
		return nil, err
	}
	RecordAuthAttempt("login", ResultSuccess)
	return res, nil
}

// Logout revokes token. An unknown or empty token is not an error.
func (g *Gateway) Logout(ctx context.Context, token string) error {
	_, err := store.RetryTransient(ctx, g.cfg.RetryDelay, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.sessions.Revoke(ctx, token)
	})
	if err != nil && !errors.Is(err, auth.ErrNotFound) {
		RecordAuthAttempt("logout", ResultFailure)
		return err
	}
	RecordAuthAttempt("logout", ResultSuccess)
	return nil
}

// CheckSession resolves token to its user. Unknown and expired tokens both
// yield AUTH_UNAUTHORIZED.
func (g *Gateway) CheckSession(ctx context.Context, token string) (ulid.ULID, error) {
	userID, err := store.RetryTransient(ctx, g.cfg.RetryDelay, func(ctx context.Context) (ulid.ULID, error) {
		return g.sessions.Validate(ctx, token)
	})
	if err != nil {
		if errutil.HasCode(err, auth.CodeSessionNotFound) || errutil.HasCode(err, auth.CodeSessionExpired) {
			return ulid.ULID{}, unauthorized()
		}
		return ulid.ULID{}, err
	}
	return userID, nil
}

// GetProfile returns the caller's profile. A user without one gets an error
// matching profile.ErrAbsent.
func (g *Gateway) GetProfile(ctx context.Context, token string) (*profile.Profile, error) {
	userID, err := g.CheckSession(ctx, token)
	if err != nil {
		return nil, err
	}
	return store.RetryTransient(ctx, g.cfg.RetryDelay, func(ctx context.Context) (*profile.Profile, error) {
		return g.profiles.Get(ctx, userID)
	})
}

// SaveProfile validates and upserts the caller's profile.
func (g *Gateway) SaveProfile(ctx context.Context, token string, attrs profile.Attributes) (*profile.Profile, error) {
	userID, err := g.CheckSession(ctx, token)
	if err != nil {
		return nil, err
	}

	p, err := store.RetryTransient(ctx, g.cfg.RetryDelay, func(ctx context.Context) (*profile.Profile, error) {
		return g.profiles.Upsert(ctx, userID, attrs)
	})
	if err != nil {
		RecordProfileUpsert(resultFor(err))
		// The session outlived its user.
		if errors.Is(err, profile.ErrOwnerMissing) {
			return nil, unauthorized()
		}
		return nil, err
	}
	RecordProfileUpsert(ResultSuccess)
	return p, nil
}

// GenerateRoutine authenticates token and generates a routine from the
// submitted snapshot. The credential in req is used for this call only.
func (g *Gateway) GenerateRoutine(ctx context.Context, token string, req routine.Request) (*routine.WeeklyRoutine, error) {
	return g.routines.Generate(ctx, token, req)
}

// GenerateRoutineFromProfile generates a routine from the caller's stored
// profile.
func (g *Gateway) GenerateRoutineFromProfile(ctx context.Context, token string, provider routine.Provider, cred routine.Credential) (*routine.WeeklyRoutine, error) {
	p, err := g.GetProfile(ctx, token)
	if err != nil {
		return nil, err
	}
	req := routine.Request{
		Age:        &p.Age,
		Weight:     &p.Weight,
		Height:     &p.Height,
		Level:      p.Level,
		Tenure:     p.Tenure,
		Provider:   provider,
		Credential: cred,
	}
	return g.routines.GenerateForUser(ctx, p.UserID, req)
}

func unauthorized() error {
	return oops.Code(auth.CodeUnauthorized).Public("Unauthorized").Errorf("unauthorized")
}

func resultFor(err error) string {
	switch errutil.Code(err) {
	case auth.CodeInvalidCredentials, auth.CodeDuplicateUsername, auth.CodeInvalidUsername,
		auth.CodeEmptyPassword, profile.CodeValidationFailed:
		return ResultInvalid
	}
	return ResultFailure
}
