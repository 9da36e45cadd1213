// Package llm wraps the Gemini API: model routing per task, fallback
// chains, bounded retries, and JSON response handling.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Known model names, cheapest to most capable.
const (
	ModelFlashLite = "gemini-2.5-flash-lite"
	ModelFlash     = "gemini-2.5-flash"
	ModelPro       = "gemini-2.5-pro"
)

// Task identifies what a model call is for; routing picks the model chain.
type Task int

const (
	// TaskQueries generates research search queries.
	TaskQueries Task = iota
	// TaskResearch processes raw research material.
	TaskResearch
	// TaskSummary condenses research into a structured synthesis.
	TaskSummary
	// TaskDocuments drafts the final planning documents.
	TaskDocuments
)

// chainFor returns the ordered models to try for a task. The first entry
// is the preferred model, the rest are fallbacks.
func chainFor(task Task) []string {
	switch task {
	case TaskQueries, TaskSummary:
		return []string{ModelFlashLite, ModelFlash}
	case TaskResearch:
		return []string{ModelFlash, ModelFlashLite}
	case TaskDocuments:
		return []string{ModelPro, ModelFlash, ModelFlashLite}
	default:
		return []string{ModelFlash}
	}
}

const maxAttempts = 3

// Client is a Gemini API client with per-task model routing.
type Client struct {
	genai *genai.Client

	// call is swapped in tests.
	call func(ctx context.Context, model, prompt string, jsonMode bool) (string, error)
}

// NewClient builds a Client for the given API key.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("llm: API key is empty")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create client: %w", err)
	}
	c := &Client{genai: gc}
	c.call = c.callGemini
	return c, nil
}

// GenerateText runs the prompt through the task's model chain and returns
// the raw text response.
func (c *Client) GenerateText(ctx context.Context, task Task, prompt string) (string, error) {
	return c.generate(ctx, task, prompt, false)
}

// GenerateJSON runs the prompt in JSON response mode and unmarshals the
// result into out.
func (c *Client) GenerateJSON(ctx context.Context, task Task, prompt string, out any) error {
	text, err := c.generate(ctx, task, prompt, true)
	if err != nil {
		return err
	}
	cleaned := StripCodeFence(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("llm: decode model response: %w", err)
	}
	return nil
}

// generate tries every model in the task's chain, with retries and
// exponential backoff per model, returning the first success.
func (c *Client) generate(ctx context.Context, task Task, prompt string, jsonMode bool) (string, error) {
	var errs []error
	for _, model := range chainFor(task) {
		text, err := c.callWithRetry(ctx, model, prompt, jsonMode)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("llm: %w", ctx.Err())
		}
		log.Printf("WARNING: llm: %s failed, trying next model: %v", model, err)
		errs = append(errs, fmt.Errorf("%s: %w", model, err))
	}
	return "", fmt.Errorf("llm: all models failed: %w", errors.Join(errs...))
}

func (c *Client) callWithRetry(ctx context.Context, model, prompt string, jsonMode bool) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
		text, err := c.call(ctx, model, prompt, jsonMode)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable(err) {
			return "", err
		}
		log.Printf("WARNING: llm: %s attempt %d/%d: %v", model, attempt+1, maxAttempts, err)
	}
	return "", lastErr
}

// callGemini performs one GenerateContent request.
func (c *Client) callGemini(ctx context.Context, model, prompt string, jsonMode bool) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.4),
	}
	if jsonMode {
		cfg.ResponseMIMEType = "application/json"
	}
	resp, err := c.genai.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response")
	}
	return text, nil
}

// retryable reports whether an API error is worth another attempt.
// Rate limits and server-side failures are; bad requests are not.
func retryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	// Network-level errors surface as plain errors; retry those too.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// StripCodeFence removes a wrapping markdown code fence from a model
// response, if present.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop a language tag on the opening fence.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		first := strings.TrimSpace(s[:i])
		if first == "json" || first == "markdown" || first == "" {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
