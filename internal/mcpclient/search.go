package mcpclient

import "context"

// SearchClient talks to the web search helper service.
type SearchClient struct {
	baseClient
}

// NewSearchClient reads the base URL from GOOGLE_SEARCH_MCP_URL, falling
// back to the default local port.
func NewSearchClient() *SearchClient {
	return &SearchClient{newBaseClient(SearchURLEnv, DefaultSearchURL)}
}

// NewSearchClientAt targets an explicit base URL.
func NewSearchClientAt(baseURL string) *SearchClient {
	c := newBaseClient("", baseURL)
	return &SearchClient{c}
}

// SearchResult is one web result.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Search runs a web search, returning up to numResults hits.
func (c *SearchClient) Search(ctx context.Context, query string, numResults int) ([]SearchResult, error) {
	req := map[string]any{"query": query, "num_results": numResults}
	var out struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.postJSON(ctx, "/search", req, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}
