// Package search implements the web search helper service, backed by the
// Google Custom Search API.
package search

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/planforge/planforge/internal/services"
)

// DefaultPort is where the supervisor expects this service.
const DefaultPort = 8082

// Credential environment variables.
const (
	APIKeyEnv   = "GOOGLE_API_KEY"
	EngineIDEnv = "GOOGLE_SEARCH_ENGINE_ID"
)

const maxResults = 10

// searchEndpoint is a package variable so tests can point it at a stub.
var searchEndpoint = "https://www.googleapis.com/customsearch/v1"

// Server handles the search endpoints.
type Server struct {
	apiKey   string
	engineID string
	client   *http.Client
}

// New reads credentials from the environment. Missing credentials do not
// fail construction; /search answers 503 until they are set.
func New() *Server {
	return &Server{
		apiKey:   os.Getenv(APIKeyEnv),
		engineID: os.Getenv(EngineIDEnv),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Handler returns the service's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", services.Health("google-search"))
	mux.HandleFunc("/search", services.PostOnly(s.handleSearch))
	return mux
}

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query      string `json:"query"`
		NumResults int    `json:"num_results"`
	}
	if err := services.ReadJSON(r, &req); err != nil {
		services.WriteError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Query == "" {
		services.WriteError(w, http.StatusBadRequest, "query is required")
		return
	}
	if s.apiKey == "" || s.engineID == "" {
		services.WriteError(w, http.StatusServiceUnavailable,
			"search credentials not configured: set %s and %s", APIKeyEnv, EngineIDEnv)
		return
	}

	n := req.NumResults
	if n <= 0 {
		n = 3
	}
	if n > maxResults {
		n = maxResults
	}

	results, err := s.query(req.Query, n)
	if err != nil {
		services.WriteError(w, http.StatusBadGateway, "search upstream: %v", err)
		return
	}
	services.WriteJSON(w, http.StatusOK, map[string]any{
		"query":   req.Query,
		"results": results,
	})
}

func (s *Server) query(q string, n int) ([]Result, error) {
	params := url.Values{}
	params.Set("key", s.apiKey)
	params.Set("cx", s.engineID)
	params.Set("q", q)
	params.Set("num", fmt.Sprint(n))

	resp, err := s.client.Get(searchEndpoint + "?" + params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var body struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]Result, 0, len(body.Items))
	for _, it := range body.Items {
		results = append(results, Result{Title: it.Title, Link: it.Link, Snippet: it.Snippet})
	}
	return results, nil
}
