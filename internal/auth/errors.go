// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is wrapped by repositories when a username is taken.
var ErrDuplicateUsername = errors.New("username already exists")

// Error codes returned by this package.
const (
	CodeDuplicateUsername  = "AUTH_DUPLICATE_USERNAME"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidUsername    = "AUTH_INVALID_USERNAME"
	CodeEmptyPassword      = "AUTH_EMPTY_PASSWORD"
	CodeUnauthorized       = "AUTH_UNAUTHORIZED"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeSessionExpired     = "SESSION_EXPIRED"
)
