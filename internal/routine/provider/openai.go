// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package provider

import (
	"context"
	"net/http"

	"github.com/samber/oops"

	"github.com/gymbuddy/gymbuddy/internal/profile"
	"github.com/gymbuddy/gymbuddy/internal/routine"
)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIJSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	// Strict mode rejects minItems, which the routine schema relies on.
	Strict bool `json:"strict"`
}

type openAIResponseFormat struct {
	Type       string           `json:"type"`
	JSONSchema openAIJSONSchema `json:"json_schema"`
}

type openAIRequest struct {
	Model          string               `json:"model"`
	Temperature    float64              `json:"temperature"`
	Messages       []openAIMessage      `json:"messages"`
	ResponseFormat openAIResponseFormat `json:"response_format"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
			Refusal *string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) openAI(ctx context.Context, attrs profile.Attributes, cred routine.Credential) (*routine.WeeklyRoutine, error) {
	schema, err := routine.Schema()
	if err != nil {
		return nil, err
	}

	body := openAIRequest{
		Model:       c.cfg.OpenAIModel,
		Temperature: *c.cfg.Temperature,
		Messages: []openAIMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: UserPrompt(attrs)},
		},
		ResponseFormat: openAIResponseFormat{
			Type:       "json_schema",
			JSONSchema: openAIJSONSchema{Name: routineToolName, Schema: schema},
		},
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+cred.Reveal())

	var resp openAIResponse
	if err := c.post(ctx, routine.ProviderOpenAI, c.cfg.OpenAIBaseURL+"/v1/chat/completions", headers, body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, oops.Code("PROVIDER_NO_ROUTINE").
			With("provider", string(routine.ProviderOpenAI)).
			Errorf("response had no choices")
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != nil && *msg.Refusal != "" {
		return nil, oops.Code("PROVIDER_REFUSED").
			With("provider", string(routine.ProviderOpenAI)).
			Errorf("model refused the request")
	}
	if msg.Content == nil || *msg.Content == "" {
		return nil, oops.Code("PROVIDER_NO_ROUTINE").
			With("provider", string(routine.ProviderOpenAI)).
			With("finish_reason", resp.Choices[0].FinishReason).
			Errorf("response had no content")
	}
	return routine.DecodeRoutine([]byte(*msg.Content))
}
