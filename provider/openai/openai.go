// Package openai_provider implements the chat-completion provider against
// the OpenAI-compatible HTTP API. The base URL is configurable so the same
// client serves self-hosted gateways.
package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/layaask/answerbot/config"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the reply content plus token usage.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// request represents a request to the chat completions endpoint
type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// response represents a response from the chat completions endpoint
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client calls an OpenAI-compatible chat completions API.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewClient creates a new OpenAI-compatible client from config.
func NewClient(cfg config.LLMConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     base,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// ChatCompletion sends the conversation and returns the first choice.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message) (Completion, error) {
	requestBody := request{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return Completion{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return Completion{}, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp response
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return Completion{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Error != nil {
		return Completion{}, fmt.Errorf("API error (%s): %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return Completion{}, fmt.Errorf("API returned status: %d", resp.StatusCode)
	}
	if len(apiResp.Choices) == 0 {
		return Completion{}, fmt.Errorf("no choices in response")
	}

	return Completion{
		Content:          apiResp.Choices[0].Message.Content,
		PromptTokens:     apiResp.Usage.PromptTokens,
		CompletionTokens: apiResp.Usage.CompletionTokens,
	}, nil
}
