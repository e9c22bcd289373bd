// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

// Package auth provides account credentials and session primitives for GymBuddy.
//
// # Domain Types
//
// Domain types (User, Session) should be created using their constructors:
//   - NewUser - creates a User with a validated username and password hash
//   - NewSession - creates a Session bound to a user with an expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
//   - CredentialStore - registration and password verification
//   - SessionManager - session issue, validation and revocation
//
// Services are created with New* constructors that validate dependencies.
// Error kinds surface as oops codes (see the Code* constants); repository
// absence is reported by wrapping ErrNotFound.
package auth
