// Package llm is the client for the hosted generative-language service
// (an Ollama-compatible HTTP API). Raw transport errors never escape
// this package: every failure maps to a typed error carrying a fixed
// user-safe message.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// User-safe messages surfaced to callers in place of raw errors.
const (
	UserMsgUnreachable = "Error: Could not connect to the AI service."
	UserMsgService     = "Error: The AI service encountered an internal error."
)

// TransportError means the service was unreachable (network failure or
// timeout).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("inference transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// UserMessage is the fixed string safe to show to a patient.
func (e *TransportError) UserMessage() string { return UserMsgUnreachable }

// ServiceError means the service answered with a non-success status.
type ServiceError struct {
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("inference service: status %d", e.Status)
}

func (e *ServiceError) UserMessage() string { return UserMsgService }

// Turn is one prior conversational exchange.
type Turn struct {
	UserText string
	AIText   string
}

// Message is a role-tagged entry in the chat payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the inference boundary consumed by the pipeline and the
// chat handler.
type Client interface {
	// Generate is one-shot: a prompt plus zero or more inline images,
	// no conversation state.
	Generate(ctx context.Context, prompt string, images [][]byte) (string, error)
	// Chat appends a new role-tagged turn to the flattened prior
	// exchanges and returns the generated reply.
	Chat(ctx context.Context, prompt, role string, history []Turn) (string, error)
}

// OllamaClient talks to an Ollama-compatible endpoint. Every request
// carries a bounded timeout and failures get a single retry before the
// error is surfaced.
type OllamaClient struct {
	baseURL string
	model   string
	http    *http.Client
}

func NewOllamaClient(baseURL, model string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Stream bool     `json:"stream"`
	Images []string `json:"images,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *OllamaClient) Generate(ctx context.Context, prompt string, images [][]byte) (string, error) {
	req := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	}
	for _, img := range images {
		if len(img) == 0 {
			continue
		}
		req.Images = append(req.Images, base64.StdEncoding.EncodeToString(img))
	}

	var resp generateResponse
	if err := c.post(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Done    bool `json:"done"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func (c *OllamaClient) Chat(ctx context.Context, prompt, role string, history []Turn) (string, error) {
	req := chatRequest{
		Model:    c.model,
		Messages: BuildMessages(prompt, role, history),
		Stream:   false,
	}

	var resp chatResponse
	if err := c.post(ctx, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	if !resp.Done {
		return "", &ServiceError{Status: http.StatusOK, Body: "response did not complete"}
	}
	return resp.Message.Content, nil
}

// BuildMessages flattens prior turns into an alternating role-tagged
// sequence (user, then assistant, in original order) and appends the
// new turn.
func BuildMessages(prompt, role string, history []Turn) []Message {
	messages := make([]Message, 0, 2*len(history)+1)
	for _, turn := range history {
		if turn.UserText != "" {
			messages = append(messages, Message{Role: "user", Content: turn.UserText})
		}
		if turn.AIText != "" {
			messages = append(messages, Message{Role: "assistant", Content: turn.AIText})
		}
	}
	return append(messages, Message{Role: role, Content: prompt})
}

// post sends one JSON request with a single retry on transport failure
// or server-side error.
func (c *OllamaClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			slog.Warn("retrying inference request", "path", path, "error", lastErr)
			select {
			case <-ctx.Done():
				return &TransportError{Err: ctx.Err()}
			case <-time.After(time.Second):
			}
		}

		lastErr = c.doOnce(ctx, path, payload, out)
		if lastErr == nil {
			return nil
		}

		// Client-side rejections will not succeed on retry.
		var svcErr *ServiceError
		if errors.As(lastErr, &svcErr) && svcErr.Status >= 400 && svcErr.Status < 500 {
			return lastErr
		}
	}
	return lastErr
}

func (c *OllamaClient) doOnce(ctx context.Context, path string, payload []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Full detail is logged server-side only; callers see the
		// user-safe message.
		slog.Error("inference service error", "path", path, "status", resp.StatusCode, "body", string(data))
		return &ServiceError{Status: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &ServiceError{Status: resp.StatusCode, Body: "malformed response body"}
	}
	return nil
}
