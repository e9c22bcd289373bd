// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package routine

import (
	"strings"

	"github.com/samber/oops"

	"github.com/gymbuddy/gymbuddy/internal/profile"
	"github.com/gymbuddy/gymbuddy/pkg/errutil"
)

// MissingFieldMessage is the public message for an incomplete request.
const MissingFieldMessage = "All fields including API key are required"

// Request is a routine generation request. Numeric fields are pointers so an
// omitted value is distinguishable from zero.
type Request struct {
	Age        *int
	Weight     *float64
	Height     *float64
	Level      profile.Level
	Tenure     string
	Provider   Provider
	Credential Credential
}

// Validate checks completeness in the order age, weight, height, level,
// tenure, provider, api_key and then checks values. It returns the profile
// attributes the generator receives.
func (r Request) Validate() (profile.Attributes, error) {
	missing := []struct {
		field  string
		absent bool
	}{
		{"age", r.Age == nil},
		{"weight", r.Weight == nil},
		{"height", r.Height == nil},
		{"level", r.Level == ""},
		{"tenure", strings.TrimSpace(r.Tenure) == ""},
		{"provider", r.Provider == ""},
		{"api_key", r.Credential.IsZero()},
	}
	for _, m := range missing {
		if m.absent {
			return profile.Attributes{}, oops.Code(CodeMissingField).
				With("field", m.field).
				Public(MissingFieldMessage).
				Errorf("%s is required", m.field)
		}
	}

	if !r.Provider.Valid() {
		return profile.Attributes{}, invalidField("provider", "must be Anthropic or OpenAI")
	}

	attrs := profile.Attributes{
		Age:    *r.Age,
		Weight: *r.Weight,
		Height: *r.Height,
		Level:  r.Level,
		Tenure: r.Tenure,
	}
	if err := attrs.Validate(); err != nil {
		field, _ := errutil.ContextValue(err, "field")
		reason, _ := errutil.ContextValue(err, "reason")
		f, _ := field.(string)
		rs, _ := reason.(string)
		return profile.Attributes{}, invalidField(f, rs)
	}
	return attrs.Normalize(), nil
}

func invalidField(field, reason string) error {
	return oops.Code(CodeInvalidField).
		With("field", field).
		With("reason", reason).
		Public(field+" "+reason).
		Errorf("invalid %s: %s", field, reason)
}
