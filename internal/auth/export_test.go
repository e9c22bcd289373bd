// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package auth

import "time"

// SetClock replaces the manager's clock.
func (m *SessionManager) SetClock(now func() time.Time) {
	m.now = now
}
