// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

// Package routine turns a validated profile snapshot into a weekly workout
// routine by calling an external text-generation provider.
package routine

import (
	"log/slog"

	"github.com/samber/oops"
)

// Error codes returned by this package.
const (
	CodeMissingField     = "ROUTINE_MISSING_FIELD"
	CodeInvalidField     = "ROUTINE_INVALID_FIELD"
	CodeGenerationFailed = "ROUTINE_GENERATION_FAILED"
	CodeTimeout          = "ROUTINE_TIMEOUT"
	CodeInvalidShape     = "ROUTINE_INVALID_SHAPE"
)

// Provider selects the external model vendor.
type Provider string

// Supported providers.
const (
	ProviderAnthropic Provider = "Anthropic"
	ProviderOpenAI    Provider = "OpenAI"
)

// Valid reports whether p is a supported provider.
func (p Provider) Valid() bool {
	return p == ProviderAnthropic || p == ProviderOpenAI
}

// Credential is a caller-supplied provider API key. It lives for one request
// and renders as [REDACTED] in every format and log.
type Credential struct {
	secret string
}

const redacted = "[REDACTED]"

// NewCredential wraps secret.
func NewCredential(secret string) Credential {
	return Credential{secret: secret}
}

// Reveal returns the raw key. Only provider transports call it.
func (c Credential) Reveal() string { return c.secret }

// IsZero reports whether no key was supplied.
func (c Credential) IsZero() bool { return c.secret == "" }

// String implements fmt.Stringer.
func (c Credential) String() string { return redacted }

// GoString implements fmt.GoStringer so %#v stays redacted.
func (c Credential) GoString() string { return redacted }

// LogValue implements slog.LogValuer.
func (c Credential) LogValue() slog.Value { return slog.StringValue(redacted) }

// MarshalJSON never emits the key.
func (c Credential) MarshalJSON() ([]byte, error) { return []byte(`"` + redacted + `"`), nil }

// Exercise is one movement in a day's plan.
type Exercise struct {
	Name       string `json:"name" jsonschema:"minLength=1" jsonschema_description:"Name of the exercise"`
	SetsReps   string `json:"sets_reps" jsonschema_description:"Sets and reps, for example 3 sets of 12 reps"`
	YouTubeURL string `json:"youtube_url" jsonschema_description:"YouTube search URL for the exercise"`
	FormTip    string `json:"form_tip" jsonschema_description:"Two or three sentences on proper form and technique"`
}

// Day is one day of the weekly plan.
type Day struct {
	Name      string     `json:"day" jsonschema:"minLength=1" jsonschema_description:"Day name, for example Day 1: Chest and Triceps"`
	Exercises []Exercise `json:"exercises" jsonschema:"minItems=1" jsonschema_description:"Exercises for this day"`
}

// WeeklyRoutine is the generated plan.
type WeeklyRoutine struct {
	Days []Day `json:"days" jsonschema:"minItems=1" jsonschema_description:"Seven days of workout routines"`
}

// Validate checks the minimal shape every routine must have: at least one
// day, and at least one exercise per day.
func (w *WeeklyRoutine) Validate() error {
	if w == nil || len(w.Days) == 0 {
		return oops.Code(CodeInvalidShape).Errorf("routine has no days")
	}
	for i, d := range w.Days {
		if len(d.Exercises) == 0 {
			return oops.Code(CodeInvalidShape).
				With("day_index", i).
				With("day", d.Name).
				Errorf("day has no exercises")
		}
	}
	return nil
}
