// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

// Package profiletest provides an in-memory profile.Repository.
package profiletest

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gymbuddy/gymbuddy/internal/profile"
)

// Repository is an in-memory profile.Repository keyed by owner.
type Repository struct {
	mu     sync.Mutex
	byUser map[ulid.ULID]profile.Profile
	owners map[ulid.ULID]struct{}
}

// NewRepository creates an empty Repository. When owners are given, upserts
// for any other user fail with profile.ErrOwnerMissing.
func NewRepository(owners ...ulid.ULID) *Repository {
	r := &Repository{byUser: make(map[ulid.ULID]profile.Profile)}
	if len(owners) > 0 {
		r.owners = make(map[ulid.ULID]struct{}, len(owners))
		for _, id := range owners {
			r.owners[id] = struct{}{}
		}
	}
	return r
}

// Get returns the profile owned by userID.
func (r *Repository) Get(_ context.Context, userID ulid.ULID) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byUser[userID]
	if !ok {
		return nil, oops.Code("PROFILE_ROW_NOT_FOUND").Wrap(profile.ErrAbsent)
	}
	return &p, nil
}

// Upsert inserts or replaces the profile owned by p.UserID, keeping the
// original ID on replace.
func (r *Repository) Upsert(_ context.Context, p *profile.Profile) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owners != nil {
		if _, ok := r.owners[p.UserID]; !ok {
			return nil, oops.Code("PROFILE_OWNER_FK").Wrap(profile.ErrOwnerMissing)
		}
	}

	stored := *p
	if existing, ok := r.byUser[p.UserID]; ok {
		stored.ID = existing.ID
	}
	r.byUser[p.UserID] = stored
	return &stored, nil
}

// Len returns the number of stored profiles.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

var _ profile.Repository = (*Repository)(nil)
