// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package web

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/gymbuddy/gymbuddy/internal/auth"
	"github.com/gymbuddy/gymbuddy/internal/profile"
	"github.com/gymbuddy/gymbuddy/internal/routine"
	"github.com/gymbuddy/gymbuddy/pkg/errutil"
)

// errorBody is the JSON envelope for every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

type errorMapping struct {
	status  int
	message string
}

// statusByCode maps oops codes to HTTP responses. An empty message means
// the error's public message is used.
var statusByCode = map[string]errorMapping{
	auth.CodeDuplicateUsername:   {fiber.StatusConflict, "Username already exists"},
	auth.CodeInvalidUsername:     {fiber.StatusBadRequest, "Username must be 3 to 30 letters, digits or underscores and start with a letter"},
	auth.CodeEmptyPassword:       {fiber.StatusBadRequest, "Password is required"},
	auth.CodeInvalidCredentials:  {fiber.StatusUnauthorized, "Invalid username or password"},
	auth.CodeUnauthorized:        {fiber.StatusUnauthorized, "Unauthorized"},
	auth.CodeSessionNotFound:     {fiber.StatusUnauthorized, "Unauthorized"},
	auth.CodeSessionExpired:      {fiber.StatusUnauthorized, "Unauthorized"},
	profile.CodeValidationFailed: {fiber.StatusBadRequest, ""},
	profile.CodeAbsent:           {fiber.StatusNotFound, "Profile not found"},
	routine.CodeMissingField:     {fiber.StatusBadRequest, routine.MissingFieldMessage},
	routine.CodeInvalidField:     {fiber.StatusBadRequest, ""},
	routine.CodeGenerationFailed: {fiber.StatusBadGateway, routine.GenerationFailedMessage},
	routine.CodeTimeout:          {fiber.StatusGatewayTimeout, routine.TimeoutMessage},
}

const internalErrorMessage = "Internal server error"

// newErrorHandler renders errors returned by handlers as errorBody.
// Unmapped errors are logged and reported as 500 without detail.
func newErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(errorBody{Error: fiberErr.Message})
		}

		code := errutil.Code(err)
		mapping, ok := statusByCode[code]
		if !ok {
			errutil.LogErrorContext(c.Context(), logger, slog.LevelError, "request failed", err)
			return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: internalErrorMessage})
		}

		body := errorBody{Error: mapping.message, Code: code}
		if body.Error == "" {
			body.Error = errutil.Public(err, "Invalid request")
		}
		if field, ok := errutil.ContextValue(err, "field"); ok {
			body.Field, _ = field.(string)
		}
		return c.Status(mapping.status).JSON(body)
	}
}
