// Package markdown implements the markdown formatting helper service.
package markdown

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/planforge/planforge/internal/services"
)

// DefaultPort is where the supervisor expects this service.
const DefaultPort = 8083

// Server handles the formatting endpoints.
type Server struct{}

// New builds the markdown service.
func New() *Server { return &Server{} }

// Handler returns the service's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", services.Health("markdownify"))
	mux.HandleFunc("/format", services.PostOnly(s.handleFormat))
	return mux
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := services.ReadJSON(r, &req); err != nil {
		services.WriteError(w, http.StatusBadRequest, "%v", err)
		return
	}
	services.WriteJSON(w, http.StatusOK, map[string]string{
		"formatted": Format(req.Content),
	})
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// Format normalizes a markdown document: line endings, heading spacing,
// blank-line runs, and unterminated code fences.
func Format(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	var out []string
	fences := 0
	for i, line := range lines {
		t := strings.TrimRight(line, " \t")
		if strings.HasPrefix(strings.TrimSpace(t), "```") {
			fences++
		}
		// Headings get a blank line before them.
		if isHeading(t) && i > 0 && len(out) > 0 && out[len(out)-1] != "" {
			out = append(out, "")
		}
		out = append(out, t)
	}
	result := strings.Join(out, "\n")
	result = blankRunRe.ReplaceAllString(result, "\n\n")

	if fences%2 != 0 {
		result = strings.TrimRight(result, "\n") + "\n```"
	}

	result = strings.TrimRight(result, "\n") + "\n"
	return result
}

func isHeading(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "#") {
		return false
	}
	rest := strings.TrimLeft(t, "#")
	return strings.HasPrefix(rest, " ")
}
