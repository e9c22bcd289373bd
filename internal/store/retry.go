// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
)

// DefaultRetryDelay is the pause before the single transient retry.
const DefaultRetryDelay = 50 * time.Millisecond

// IsTransient reports whether err is a storage failure that is safe to retry:
// the request never reached the server, or the server aborted it with a
// serialization failure or deadlock.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return true
		}
	}
	return false
}

// RetryTransient runs fn and, if it fails with a transient error, runs it
// exactly once more after delay. Non-transient errors are returned unchanged.
// A non-positive delay uses DefaultRetryDelay.
func RetryTransient[T any](ctx context.Context, delay time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	backoff := retry.WithMaxRetries(1, retry.NewConstant(delay))
	return retry.DoValue(ctx, backoff, func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		if IsTransient(err) {
			return v, retry.RetryableError(err)
		}
		return v, err
	})
}
