// Package openai provides the generation client for an OpenAI-compatible
// API: structured text completions and image generation.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mealforge/mealforge/internal/infrastructure/config"
	"github.com/mealforge/mealforge/internal/ports/outbound"
	"github.com/mealforge/mealforge/pkg/errors"
)

// Client implements outbound.GenerationClient against the chat
// completions and image generation endpoints.
type Client struct {
	cfg    config.AIConfig
	client *http.Client
	logger *zap.Logger
}

// NewClient creates a generation client from configuration
func NewClient(cfg config.AIConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger,
	}
}

type chatCompletionRequest struct {
	Model          string                 `json:"model"`
	Messages       []outbound.ChatMessage `json:"messages"`
	Temperature    float64                `json:"temperature"`
	MaxTokens      int                    `json:"max_tokens"`
	ResponseFormat *responseFormat        `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      outbound.ChatMessage `json:"message"`
		FinishReason string               `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type imageGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type imageGenerationResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// GenerateText runs a completion, optionally constrained to a JSON
// schema, and returns the structured result.
func (c *Client) GenerateText(ctx context.Context, messages []outbound.ChatMessage, model string, responseSchema []byte) (*outbound.TextResult, error) {
	if model == "" {
		model = c.cfg.TextModel
	}

	reqBody := chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	if len(responseSchema) > 0 {
		reqBody.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: responseSchema,
		}
	}

	var resp chatCompletionResponse
	if err := c.post(ctx, "/chat/completions", reqBody, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, errors.NewUpstreamError("text generation", fmt.Errorf("response carried no choices"))
	}

	return &outbound.TextResult{
		Content:   resp.Choices[0].Message.Content,
		ModelUsed: resp.Model,
		Usage: outbound.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// GenerateImages requests count images one call at a time. Individual
// failures shrink the result; it errors only when nothing succeeded.
func (c *Client) GenerateImages(ctx context.Context, prompt string, count int) ([][]byte, error) {
	var buffers [][]byte
	var lastErr error

	for i := 0; i < count; i++ {
		reqBody := imageGenerationRequest{
			Model:          c.cfg.ImageModel,
			Prompt:         prompt,
			N:              1,
			Size:           "1024x1024",
			ResponseFormat: "b64_json",
		}

		var resp imageGenerationResponse
		if err := c.post(ctx, "/images/generations", reqBody, &resp); err != nil {
			c.logger.Warn("image generation request failed",
				zap.Int("index", i),
				zap.Error(err))
			lastErr = err
			continue
		}

		for _, item := range resp.Data {
			data, err := base64.StdEncoding.DecodeString(item.B64JSON)
			if err != nil {
				c.logger.Warn("discarding undecodable image payload", zap.Error(err))
				continue
			}
			buffers = append(buffers, data)
		}
	}

	if len(buffers) == 0 && lastErr != nil {
		return nil, errors.NewUpstreamError("image generation", lastErr)
	}
	return buffers, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.NewUpstreamError("generation service", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.NewUpstreamError("generation service", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.NewUpstreamError("generation service", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewUpstreamError("generation service", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Raw upstream bodies stay in logs, never in surfaced errors
		c.logger.Error("generation service returned non-2xx",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(data, 2048)))
		return errors.NewUpstreamError("generation service",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewUpstreamError("generation service", fmt.Errorf("malformed response body: %w", err))
	}
	return nil
}

func truncate(data []byte, max int) []byte {
	if len(data) <= max {
		return data
	}
	return data[:max]
}

var _ outbound.GenerationClient = (*Client)(nil)
