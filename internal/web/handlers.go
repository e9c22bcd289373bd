// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/gymbuddy/gymbuddy/internal/profile"
	"github.com/gymbuddy/gymbuddy/internal/routine"
)

type handlers struct {
	gw  Gateway
	cfg Config
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type profileResponse struct {
	Profile *profile.Profile `json:"profile"`
}

type generateRequest struct {
	Age      *int     `json:"age"`
	Weight   *float64 `json:"weight"`
	Height   *float64 `json:"height"`
	Level    string   `json:"level"`
	Tenure   string   `json:"tenure"`
	Provider string   `json:"provider"`
	// ModelProvider is accepted for clients of the first web app.
	ModelProvider string `json:"model_provider"`
	APIKey        string `json:"api_key"`
}

func (r generateRequest) provider() routine.Provider {
	if r.Provider != "" {
		return routine.Provider(r.Provider)
	}
	return routine.Provider(r.ModelProvider)
}

type routineResponse struct {
	Routine *routine.WeeklyRoutine `json:"routine"`
}

func badBody(err error) error {
	return fiber.NewError(fiber.StatusBadRequest, "Malformed request body: "+err.Error())
}

func (h *handlers) register(c fiber.Ctx) error {
	var req credentialsRequest
	if err := c.Bind().Body(&req); err != nil {
		return badBody(err)
	}
	id, err := h.gw.Register(c.Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user_id": id.String()})
}

func (h *handlers) login(c fiber.Ctx) error {
	var req credentialsRequest
	if err := c.Bind().Body(&req); err != nil {
		return badBody(err)
	}
	res, err := h.gw.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(loginResponse{UserID: res.UserID.String(), Token: res.Token, ExpiresAt: res.ExpiresAt})
}

func (h *handlers) logout(c fiber.Ctx) error {
	if err := h.gw.Logout(c.Context(), sessionToken(c, h.cfg.CookieName)); err != nil {
		return err
	}
	c.ClearCookie(h.cfg.CookieName)
	return c.JSON(fiber.Map{"ok": true})
}

func (h *handlers) session(c fiber.Ctx) error {
	id, err := h.gw.CheckSession(c.Context(), sessionToken(c, h.cfg.CookieName))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user_id": id.String()})
}

func (h *handlers) getProfile(c fiber.Ctx) error {
	p, err := h.gw.GetProfile(c.Context(), sessionToken(c, h.cfg.CookieName))
	if errors.Is(err, profile.ErrAbsent) {
		return c.JSON(profileResponse{})
	}
	if err != nil {
		return err
	}
	return c.JSON(profileResponse{Profile: p})
}

func (h *handlers) saveProfile(c fiber.Ctx) error {
	var attrs profile.Attributes
	if err := c.Bind().Body(&attrs); err != nil {
		return badBody(err)
	}
	p, err := h.gw.SaveProfile(c.Context(), sessionToken(c, h.cfg.CookieName), attrs)
	if err != nil {
		return err
	}
	return c.JSON(profileResponse{Profile: p})
}

func (h *handlers) generate(c fiber.Ctx) error {
	var req generateRequest
	if err := c.Bind().Body(&req); err != nil {
		return badBody(err)
	}
	w, err := h.gw.GenerateRoutine(c.Context(), sessionToken(c, h.cfg.CookieName), routine.Request{
		Age:        req.Age,
		Weight:     req.Weight,
		Height:     req.Height,
		Level:      profile.Level(req.Level),
		Tenure:     req.Tenure,
		Provider:   req.provider(),
		Credential: routine.NewCredential(req.APIKey),
	})
	if err != nil {
		return err
	}
	return c.JSON(routineResponse{Routine: w})
}

func (h *handlers) generateFromProfile(c fiber.Ctx) error {
	var req generateRequest
	if err := c.Bind().Body(&req); err != nil {
		return badBody(err)
	}
	w, err := h.gw.GenerateRoutineFromProfile(c.Context(), sessionToken(c, h.cfg.CookieName),
		req.provider(), routine.NewCredential(req.APIKey))
	if err != nil {
		return err
	}
	return c.JSON(routineResponse{Routine: w})
}
