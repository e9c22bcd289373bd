// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package errutil_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"

	"github.com/gymbuddy/gymbuddy/pkg/errutil"
)

func TestAssertErrorCode_DeepestCode(t *testing.T) {
	inner := oops.Code("SESSION_NOT_FOUND").Wrap(errors.New("no row"))
	err := oops.Code("AUTH_UNAUTHORIZED").Wrap(inner)

	errutil.AssertErrorCode(t, err, "SESSION_NOT_FOUND")
}

func TestAssertErrorContext_WrappedKey(t *testing.T) {
	err := oops.With("field", "age").Wrap(oops.Code("PROFILE_VALIDATION_FAILED").Errorf("out of range"))

	errutil.AssertErrorContext(t, err, "field", "age")
}
