// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

// Package web serves the gateway over HTTP.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/oklog/ulid/v2"

	"github.com/gymbuddy/gymbuddy/internal/gateway"
	"github.com/gymbuddy/gymbuddy/internal/profile"
	"github.com/gymbuddy/gymbuddy/internal/routine"
)

// DefaultCookieName names the session cookie.
const DefaultCookieName = "session"

// Gateway is the set of operations the HTTP API exposes.
type Gateway interface {
	Register(ctx context.Context, username, password string) (ulid.ULID, error)
	Login(ctx context.Context, username, password string) (*gateway.LoginResult, error)
	Logout(ctx context.Context, token string) error
	CheckSession(ctx context.Context, token string) (ulid.ULID, error)
	GetProfile(ctx context.Context, token string) (*profile.Profile, error)
	SaveProfile(ctx context.Context, token string, attrs profile.Attributes) (*profile.Profile, error)
	GenerateRoutine(ctx context.Context, token string, req routine.Request) (*routine.WeeklyRoutine, error)
	GenerateRoutineFromProfile(ctx context.Context, token string, provider routine.Provider, cred routine.Credential) (*routine.WeeklyRoutine, error)
}

var _ Gateway = (*gateway.Gateway)(nil)

// Config controls cookies and request limits.
type Config struct {
	CookieName   string
	CookieSecure bool
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Metrics is optional.
	Metrics RequestObserver
}

// NewApp builds the fiber application.
func NewApp(gw Gateway, cfg Config, logger *slog.Logger) *fiber.App {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	app := fiber.New(fiber.Config{
		AppName:      "gymbuddy",
		BodyLimit:    cfg.BodyLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: newErrorHandler(logger),
	})
	app.Use(accessLog(logger, cfg.Metrics))
	app.Use(recover.New())

	h := &handlers{gw: gw, cfg: cfg}
	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", h.register)
	authGroup.Post("/login", h.login)
	authGroup.Post("/logout", h.logout)
	authGroup.Get("/session", h.session)

	api.Get("/profile", h.getProfile)
	api.Post("/profile", h.saveProfile)
	api.Put("/profile", h.saveProfile)

	api.Post("/routine/generate", h.generate)
	api.Post("/routine/generate-from-profile", h.generateFromProfile)

	return app
}
