// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package profile

import "time"

// SetClock replaces the time source used to stamp UpdatedAt.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}
