// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

// Package profile stores the body and training metadata a user submits
// before requesting a routine. Each user has at most one profile.
package profile

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Attribute ranges.
const (
	MinAge          = 16
	MaxAge          = 100
	MinWeightKg     = 30.0
	MaxWeightKg     = 300.0
	MinHeightCm     = 100.0
	MaxHeightCm     = 250.0
	MaxTenureLength = 100
)

// Error codes returned by this package.
const (
	CodeAbsent           = "PROFILE_ABSENT"
	CodeValidationFailed = "PROFILE_VALIDATION_FAILED"
	CodeOwnerMissing     = "PROFILE_OWNER_MISSING"
)

// ErrAbsent reports that the user has not saved a profile yet. It is an
// expected outcome, not a storage failure.
var ErrAbsent = errors.New("profile absent")

// ErrOwnerMissing reports that the owning user does not exist.
var ErrOwnerMissing = errors.New("profile owner missing")

// Level is the self-reported training experience.
type Level string

// Experience levels.
const (
	LevelBeginner Level = "Beginner"
	LevelRegular  Level = "Regular"
	LevelExpert   Level = "Expert"
)

// Levels lists every valid level in display order.
var Levels = []Level{LevelBeginner, LevelRegular, LevelExpert}

// Valid reports whether l is one of the enumerated levels. Matching is exact.
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelRegular, LevelExpert:
		return true
	}
	return false
}

// Attributes are the user-editable profile fields.
type Attributes struct {
	Age    int     `json:"age"`
	Weight float64 `json:"weight"`
	Height float64 `json:"height"`
	Level  Level   `json:"level"`
	Tenure string  `json:"tenure"`
}

// Profile is a stored set of attributes owned by one user.
type Profile struct {
	ID     ulid.ULID `json:"id"`
	UserID ulid.ULID `json:"user_id"`
	Attributes
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks every attribute range. The first violation is returned as
// PROFILE_VALIDATION_FAILED with field and reason in its context.
func (a Attributes) Validate() error {
	if a.Age < MinAge || a.Age > MaxAge {
		return validationError("age", fmt.Sprintf("must be between %d and %d", MinAge, MaxAge))
	}
	if !inRange(a.Weight, MinWeightKg, MaxWeightKg) {
		return validationError("weight", fmt.Sprintf("must be between %g and %g kg", MinWeightKg, MaxWeightKg))
	}
	if !inRange(a.Height, MinHeightCm, MaxHeightCm) {
		return validationError("height", fmt.Sprintf("must be between %g and %g cm", MinHeightCm, MaxHeightCm))
	}
	if !a.Level.Valid() {
		return validationError("level", "must be one of Beginner, Regular, Expert")
	}
	tenure := strings.TrimSpace(a.Tenure)
	if tenure == "" {
		return validationError("tenure", "is required")
	}
	if utf8.RuneCountInString(tenure) > MaxTenureLength {
		return validationError("tenure", fmt.Sprintf("must be at most %d characters", MaxTenureLength))
	}
	return nil
}

// Normalize rounds weight and height to one decimal and trims tenure.
func (a Attributes) Normalize() Attributes {
	a.Weight = roundTenth(a.Weight)
	a.Height = roundTenth(a.Height)
	a.Tenure = strings.TrimSpace(a.Tenure)
	return a
}

func inRange(v, lo, hi float64) bool {
	// NaN fails every comparison, so test the accepted interval directly.
	return v >= lo && v <= hi
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func validationError(field, reason string) error {
	return oops.Code(CodeValidationFailed).
		With("field", field).
		With("reason", reason).
		Public(field + " " + reason).
		Errorf("invalid %s: %s", field, reason)
}
