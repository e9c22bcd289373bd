// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

// Package provider implements routine.Generator over the Anthropic Messages
// and OpenAI Chat Completions HTTP APIs.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/gymbuddy/gymbuddy/internal/profile"
	"github.com/gymbuddy/gymbuddy/internal/routine"
)

// Defaults for Config.
const (
	DefaultAnthropicBaseURL = "https://api.anthropic.com"
	DefaultAnthropicModel   = "claude-3-5-sonnet-latest"
	DefaultOpenAIBaseURL    = "https://api.openai.com"
	DefaultOpenAIModel      = "gpt-4o"
	DefaultTemperature      = 0.7
	DefaultMaxTokens        = 8192
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 4 << 20

// routineToolName names the structured-output tool and schema.
const routineToolName = "weekly_routine"

// Config selects endpoints and models.
type Config struct {
	AnthropicBaseURL string
	AnthropicModel   string
	OpenAIBaseURL    string
	OpenAIModel      string
	// Temperature is sent as given, including 0. Nil selects
	// DefaultTemperature.
	Temperature *float64
	MaxTokens   int
	// HTTPClient defaults to a client without a timeout; callers bound
	// requests through the context.
	HTTPClient *http.Client
}

func (c Config) withDefaults() Config {
	if c.AnthropicBaseURL == "" {
		c.AnthropicBaseURL = DefaultAnthropicBaseURL
	}
	if c.AnthropicModel == "" {
		c.AnthropicModel = DefaultAnthropicModel
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = DefaultOpenAIBaseURL
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = DefaultOpenAIModel
	}
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	c.AnthropicBaseURL = strings.TrimRight(c.AnthropicBaseURL, "/")
	c.OpenAIBaseURL = strings.TrimRight(c.OpenAIBaseURL, "/")
	return c
}

// Client dispatches routine generation to the selected provider. It keeps
// no credential between calls.
type Client struct {
	cfg    Config
	logger *slog.Logger
}

var _ routine.Generator = (*Client)(nil)

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	return NewClientWithLogger(cfg, slog.Default())
}

// NewClientWithLogger creates a Client that logs provider calls to logger.
func NewClientWithLogger(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg.withDefaults(), logger: logger}
}

// GenerateRoutine implements routine.Generator.
func (c *Client) GenerateRoutine(ctx context.Context, attrs profile.Attributes, p routine.Provider, cred routine.Credential) (*routine.WeeklyRoutine, error) {
	if cred.IsZero() {
		return nil, oops.Code("PROVIDER_CREDENTIAL_REQUIRED").With("provider", string(p)).Errorf("provider credential is required")
	}

	start := time.Now()
	var (
		w   *routine.WeeklyRoutine
		err error
	)
	switch p {
	case routine.ProviderAnthropic:
		w, err = c.anthropic(ctx, attrs, cred)
	case routine.ProviderOpenAI:
		w, err = c.openAI(ctx, attrs, cred)
	default:
		return nil, oops.Code("PROVIDER_UNSUPPORTED").With("provider", string(p)).Errorf("unsupported provider %q", p)
	}
	c.logger.DebugContext(ctx, "provider call finished",
		"provider", string(p),
		"duration", time.Since(start),
		"ok", err == nil)
	return w, err
}

// post sends body as JSON and decodes a 2xx response into out. Non-2xx
// responses surface the status and the provider's error type only.
func (c *Client) post(ctx context.Context, p routine.Provider, url string, headers http.Header, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return oops.Code("PROVIDER_ENCODE_FAILED").With("provider", string(p)).Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return oops.Code("PROVIDER_REQUEST_FAILED").With("provider", string(p)).Wrap(err)
	}
	req.Header = headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return oops.Code("PROVIDER_REQUEST_FAILED").With("provider", string(p)).Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return oops.Code("PROVIDER_READ_FAILED").With("provider", string(p)).Wrap(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error struct {
				Type string `json:"type"`
			} `json:"error"`
		}
		_ = json.Unmarshal(data, &apiErr)
		return oops.Code("PROVIDER_HTTP_STATUS").
			With("provider", string(p)).
			With("status", resp.StatusCode).
			With("error_type", apiErr.Error.Type).
			Errorf("provider responded with status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return oops.Code("PROVIDER_DECODE_FAILED").With("provider", string(p)).Wrap(err)
	}
	return nil
}
