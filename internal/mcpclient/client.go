// Package mcpclient holds the HTTP clients the agent uses to talk to the
// supervised helper services.
package mcpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Default base URLs for the helper services, overridable per client via
// environment variables.
const (
	DefaultFilesURL    = "http://127.0.0.1:8081"
	DefaultSearchURL   = "http://127.0.0.1:8082"
	DefaultMarkdownURL = "http://127.0.0.1:8083"

	FilesURLEnv    = "FILE_MANAGER_MCP_URL"
	SearchURLEnv   = "GOOGLE_SEARCH_MCP_URL"
	MarkdownURLEnv = "MARKDOWNIFY_MCP_URL"
)

const (
	maxAttempts    = 3
	requestTimeout = 30 * time.Second
)

// baseClient carries the retry loop shared by the typed clients.
type baseClient struct {
	baseURL string
	http    *http.Client
}

func newBaseClient(envVar, fallback string) baseClient {
	base := os.Getenv(envVar)
	if base == "" {
		base = fallback
	}
	return baseClient{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// postJSON sends the request body to path and decodes the response into
// out, retrying transient failures with exponential backoff.
func (c *baseClient) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			log.Printf("WARNING: mcpclient: retrying %s in %s: %v", path, backoff, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		lastErr = c.doOnce(ctx, path, payload, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", path, maxAttempts, lastErr)
}

func (c *baseClient) doOnce(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
