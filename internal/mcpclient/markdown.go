package mcpclient

import "context"

// MarkdownClient talks to the markdown formatting helper service.
type MarkdownClient struct {
	baseClient
}

// NewMarkdownClient reads the base URL from MARKDOWNIFY_MCP_URL, falling
// back to the default local port.
func NewMarkdownClient() *MarkdownClient {
	return &MarkdownClient{newBaseClient(MarkdownURLEnv, DefaultMarkdownURL)}
}

// NewMarkdownClientAt targets an explicit base URL.
func NewMarkdownClientAt(baseURL string) *MarkdownClient {
	c := newBaseClient("", baseURL)
	return &MarkdownClient{c}
}

// Format normalizes a markdown document.
func (c *MarkdownClient) Format(ctx context.Context, content string) (string, error) {
	req := map[string]string{"content": content}
	var out struct {
		Formatted string `json:"formatted"`
	}
	if err := c.postJSON(ctx, "/format", req, &out); err != nil {
		return "", err
	}
	return out.Formatted, nil
}
