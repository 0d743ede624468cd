// Package reasoning wraps the external reasoning service behind a small
// chat-completions client. Requests carry an enforced json_schema
// response format; the caller decides what to do with the raw content.
package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const completionsPath = "/v1/chat/completions"

// maxResponseSize bounds the response body read.
const maxResponseSize = 10 * 1024 * 1024

type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// Message is one chat turn. Content is either a plain string or a list
// of Part values when images are attached.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type Part struct {
	Type     string    `json:"type"` // "text" or "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageRef `json:"image_url,omitempty"`
}

type ImageRef struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// ResponseFormat requests strict schema conformance from the service.
type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Invoke sends the messages and returns the raw content of the first
// choice. No retry: a failed call surfaces to the caller, who treats it
// as retryable by resubmission.
func (c *Client) Invoke(ctx context.Context, messages []Message, format *ResponseFormat) (string, error) {
	payload := request{
		Model:          c.model,
		Messages:       messages,
		ResponseFormat: format,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("reasoning service status %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", errors.New("reasoning service returned no content")
	}
	return out.Choices[0].Message.Content, nil
}
