// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package routine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gymbuddy/gymbuddy/internal/auth"
	"github.com/gymbuddy/gymbuddy/internal/profile"
	"github.com/gymbuddy/gymbuddy/pkg/errutil"
)

// DefaultTimeout bounds a single generator call.
const DefaultTimeout = 90 * time.Second

// GenerationFailedMessage is the public message for any generator failure.
const GenerationFailedMessage = "Routine generation failed, please try again"

// TimeoutMessage is the public message for a generator call that ran out of time.
const TimeoutMessage = "Routine generation timed out, please try again"

// SessionValidator resolves a session token to its user.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (ulid.ULID, error)
}

// Generator produces a routine for the given attributes using the named
// provider. The credential is valid for this call only.
type Generator interface {
	GenerateRoutine(ctx context.Context, attrs profile.Attributes, provider Provider, cred Credential) (*WeeklyRoutine, error)
}

// Orchestrator validates routine requests and dispatches them to a Generator.
// It holds no per-request state.
type Orchestrator struct {
	sessions  SessionValidator
	generator Generator
	timeout   time.Duration
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A non-positive timeout selects DefaultTimeout.
func NewOrchestrator(sessions SessionValidator, generator Generator, timeout time.Duration) (*Orchestrator, error) {
	return NewOrchestratorWithLogger(sessions, generator, timeout, slog.Default())
}

// NewOrchestratorWithLogger creates an Orchestrator that logs generator
// failures to logger.
func NewOrchestratorWithLogger(sessions SessionValidator, generator Generator, timeout time.Duration, logger *slog.Logger) (*Orchestrator, error) {
	if sessions == nil {
		return nil, oops.Code("ROUTINE_INVALID_DEPENDENCY").Errorf("session validator is required")
	}
	if generator == nil {
		return nil, oops.Code("ROUTINE_INVALID_DEPENDENCY").Errorf("generator is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		sessions:  sessions,
		generator: generator,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Generate authenticates token, validates req and returns the generated
// routine. The session check runs before any payload validation.
func (o *Orchestrator) Generate(ctx context.Context, token string, req Request) (*WeeklyRoutine, error) {
	userID, err := o.sessions.Validate(ctx, token)
	if err != nil {
		RecordGeneration(req.Provider, ResultRejected)
		return nil, oops.Code(auth.CodeUnauthorized).
			Public("Unauthorized").
			Errorf("session rejected: %s", errutil.Code(err))
	}
	return o.GenerateForUser(ctx, userID, req)
}

// GenerateForUser is Generate for a caller that has already authenticated
// userID.
func (o *Orchestrator) GenerateForUser(ctx context.Context, userID ulid.ULID, req Request) (*WeeklyRoutine, error) {
	attrs, err := req.Validate()
	if err != nil {
		RecordGeneration(req.Provider, ResultInvalid)
		return nil, err
	}
	return o.dispatch(ctx, userID, attrs, req.Provider, req.Credential)
}

type generation struct {
	routine *WeeklyRoutine
	err     error
}

func (o *Orchestrator) dispatch(ctx context.Context, userID ulid.ULID, attrs profile.Attributes, provider Provider, cred Credential) (*WeeklyRoutine, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan generation, 1)
	go func() {
		w, err := o.generator.GenerateRoutine(callCtx, attrs, provider, cred)
		done <- generation{routine: w, err: err}
	}()

	var res generation
	select {
	case res = <-done:
	case <-callCtx.Done():
		res = generation{err: callCtx.Err()}
	}
	RecordGenerationDuration(provider, time.Since(start))

	if res.err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			RecordGeneration(provider, ResultTimeout)
			o.logFailure(ctx, "routine generation timed out", userID, provider, res.err)
			return nil, oops.Code(CodeTimeout).
				With("provider", string(provider)).
				With("timeout", o.timeout.String()).
				Public(TimeoutMessage).
				Errorf("generator did not finish within %s", o.timeout)
		}
		RecordGeneration(provider, ResultFailed)
		o.logFailure(ctx, "routine generation failed", userID, provider, res.err)
		return nil, generationFailed(provider, "generator returned an error")
	}

	if res.routine == nil {
		RecordGeneration(provider, ResultFailed)
		return nil, generationFailed(provider, "generator returned no routine")
	}
	if err := res.routine.Validate(); err != nil {
		RecordGeneration(provider, ResultFailed)
		o.logFailure(ctx, "routine has invalid shape", userID, provider, err)
		return nil, generationFailed(provider, "generator returned a malformed routine")
	}

	RecordGeneration(provider, ResultSuccess)
	return res.routine, nil
}

func (o *Orchestrator) logFailure(ctx context.Context, msg string, userID ulid.ULID, provider Provider, err error) {
	errutil.LogErrorContext(ctx, o.logger, slog.LevelWarn, msg,
		oops.With("user_id", userID.String()).With("provider", string(provider)).Wrap(err))
}

func generationFailed(provider Provider, msg string) error {
	return oops.Code(CodeGenerationFailed).
		With("provider", string(provider)).
		Public(GenerationFailedMessage).
		Errorf("%s", msg)
}
