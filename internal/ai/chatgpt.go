package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ChatGPT represents a client for the OpenAI chat completions API
type ChatGPT struct {
	apiKey      string
	apiURL      string
	model       string
	temperature float64
	client      *http.Client
}

// New creates a new ChatGPT client
func New(apiKey, model string, temperature float64) (*ChatGPT, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is not set")
	}

	return &ChatGPT{
		apiKey:      apiKey,
		apiURL:      "https://api.openai.com/v1/chat/completions",
		model:       model,
		temperature: temperature,
		client:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Message represents a message in the conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the chat completions API
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse represents a response from the chat completions API
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the ordered messages to the model and returns its text.
// The configured temperature is used when temperature is negative.
func (c *ChatGPT) Complete(ctx context.Context, messages []Message, temperature float64) (string, error) {
	if temperature < 0 {
		temperature = c.temperature
	}

	request := ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewBuffer(requestData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %v", err)
	}

	if response.Error != nil {
		return "", fmt.Errorf("API error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
