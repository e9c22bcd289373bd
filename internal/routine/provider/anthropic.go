// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package provider

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/samber/oops"

	"github.com/gymbuddy/gymbuddy/internal/profile"
	"github.com/gymbuddy/gymbuddy/internal/routine"
)

// AnthropicVersion is sent as the anthropic-version header.
const AnthropicVersion = "2023-06-01"

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type anthropicRequest struct {
	Model       string              `json:"model"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature float64             `json:"temperature"`
	System      string              `json:"system"`
	Messages    []anthropicMessage  `json:"messages"`
	Tools       []anthropicTool     `json:"tools"`
	ToolChoice  anthropicToolChoice `json:"tool_choice"`
}

type anthropicResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// anthropic forces the routine tool so the reply is the tool input.
func (c *Client) anthropic(ctx context.Context, attrs profile.Attributes, cred routine.Credential) (*routine.WeeklyRoutine, error) {
	schema, err := routine.Schema()
	if err != nil {
		return nil, err
	}

	body := anthropicRequest{
		Model:       c.cfg.AnthropicModel,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: *c.cfg.Temperature,
		System:      SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: UserPrompt(attrs)}},
		Tools: []anthropicTool{{
			Name:        routineToolName,
			Description: "Record the personalised weekly gym routine",
			InputSchema: schema,
		}},
		ToolChoice: anthropicToolChoice{Type: "tool", Name: routineToolName},
	}

	headers := http.Header{}
	headers.Set("x-api-key", cred.Reveal())
	headers.Set("anthropic-version", AnthropicVersion)

	var resp anthropicResponse
	if err := c.post(ctx, routine.ProviderAnthropic, c.cfg.AnthropicBaseURL+"/v1/messages", headers, body, &resp); err != nil {
		return nil, err
	}

	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == routineToolName {
			return routine.DecodeRoutine(block.Input)
		}
	}
	return nil, oops.Code("PROVIDER_NO_ROUTINE").
		With("provider", string(routine.ProviderAnthropic)).
		With("stop_reason", resp.StopReason).
		Errorf("response did not contain the routine tool call")
}
