// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package provider

import (
	"fmt"
	"strconv"

	"github.com/gymbuddy/gymbuddy/internal/profile"
)

// SystemPrompt frames the model as a trainer.
const SystemPrompt = "You are an expert fitness trainer. You create personalized 7-day gym routines."

// UserPrompt renders the per-user instruction.
func UserPrompt(attrs profile.Attributes) string {
	return fmt.Sprintf(`Create a detailed one-week gym routine for a user with the following profile:
- Age: %d
- Weight: %s kg
- Height: %s cm
- Experience Level: %s (Beginner, Regular, Expert)
- Gym Tenure: %s

Structure the response as a weekly plan. For each exercise, include a YouTube search URL and a "form_tip" describing how to do it correctly.`,
		attrs.Age,
		strconv.FormatFloat(attrs.Weight, 'f', -1, 64),
		strconv.FormatFloat(attrs.Height, 'f', -1, 64),
		attrs.Level,
		attrs.Tenure,
	)
}
