// Package files implements the file manager helper service: sandboxed
// file writes, zip assembly, and markdown validation.
package files

import (
	"archive/zip"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/planforge/planforge/internal/services"
)

// DefaultPort is where the supervisor expects this service.
const DefaultPort = 8081

// Server handles the file manager endpoints. All paths in requests are
// resolved under Root; anything escaping it is rejected.
type Server struct {
	Root string
}

// New builds a Server rooted at dir (created if missing).
func New(dir string) (*Server, error) {
	if dir == "" {
		dir = "output"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("files: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("files: create root: %w", err)
	}
	return &Server{Root: abs}, nil
}

// Handler returns the service's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", services.Health("file-manager"))
	mux.HandleFunc("/create_file", services.PostOnly(s.handleCreateFile))
	mux.HandleFunc("/create_zip_from_memory", services.PostOnly(s.handleZipFromMemory))
	mux.HandleFunc("/validate_markdown", services.PostOnly(s.handleValidateMarkdown))
	mux.HandleFunc("/zip_files", services.PostOnly(s.handleZipFiles))
	return mux
}

// resolve maps a request path into the sandbox, rejecting escapes.
func (s *Server) resolve(reqPath string) (string, error) {
	if reqPath == "" {
		return "", fmt.Errorf("empty path")
	}
	full := filepath.Join(s.Root, filepath.FromSlash(reqPath))
	full = filepath.Clean(full)
	if full != s.Root && !strings.HasPrefix(full, s.Root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the output directory", reqPath)
	}
	return full, nil
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := services.ReadJSON(r, &req); err != nil {
		services.WriteError(w, http.StatusBadRequest, "%v", err)
		return
	}
	full, err := s.resolve(req.Path)
	if err != nil {
		services.WriteError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		services.WriteError(w, http.StatusInternalServerError, "create parent: %v", err)
		return
	}
	if err := os.WriteFile(full, []byte(req.Content), 0o644); err != nil {
		services.WriteError(w, http.StatusInternalServerError, "write file: %v", err)
		return
	}
	services.WriteJSON(w, http.StatusOK, map[string]any{
		"path":  full,
		"bytes": len(req.Content),
	})
}

func (s *Server) handleZipFromMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ZipName string            `json:"zip_name"`
		Files   map[string]string `json:"files"`
	}
	if err := services.ReadJSON(r, &req); err != nil {
		services.WriteError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if len(req.Files) == 0 {
		services.WriteError(w, http.StatusBadRequest, "no files to archive")
		return
	}
	zipPath, err := s.resolve(req.ZipName)
	if err != nil {
		services.WriteError(w, http.StatusBadRequest, "%v", err)
		return
	}

	out, err := os.Create(zipPath)
	if err != nil {
		services.WriteError(w, http.StatusInternalServerError, "create archive: %v", err)
		return
	}
	defer out.Close()

	// Deterministic member order.
	names := make([]string, 0, len(req.Files))
	for name := range req.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(out)
	var total int64
	for _, name := range names {
		f, err := zw.Create(name)
		if err != nil {
			zw.Close()
			services.WriteError(w, http.StatusInternalServerError, "add %s: %v", name, err)
			return
		}
		n, err := f.Write([]byte(req.Files[name]))
		if err != nil {
			zw.Close()
			services.WriteError(w, http.StatusInternalServerError, "write %s: %v", name, err)
			return
		}
		total += int64(n)
	}
	if err := zw.Close(); err != nil {
		services.WriteError(w, http.StatusInternalServerError, "finalize archive: %v", err)
		return
	}

	services.WriteJSON(w, http.StatusOK, map[string]any{
		"zip_path":    zipPath,
		"file_count":  len(names),
		"total_bytes": total,
	})
}

func (s *Server) handleValidateMarkdown(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := services.ReadJSON(r, &req); err != nil {
		services.WriteError(w, http.StatusBadRequest, "%v", err)
		return
	}
	issues := lintMarkdown(req.Content)
	services.WriteJSON(w, http.StatusOK, map[string]any{
		"valid":  len(issues) == 0,
		"issues": issues,
	})
}

// lintMarkdown reports structural problems in a markdown document.
func lintMarkdown(content string) []string {
	issues := []string{}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return append(issues, "document is empty")
	}

	fences := 0
	hasHeading := false
	for _, line := range strings.Split(content, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "```") {
			fences++
		}
		if strings.HasPrefix(t, "# ") {
			hasHeading = true
		}
	}
	if fences%2 != 0 {
		issues = append(issues, "unbalanced code fences")
	}
	if !hasHeading {
		issues = append(issues, "missing top-level heading")
	}
	return issues
}

func (s *Server) handleZipFiles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ZipName string   `json:"zip_name"`
		Paths   []string `json:"paths"`
	}
	if err := services.ReadJSON(r, &req); err != nil {
		services.WriteError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if len(req.Paths) == 0 {
		services.WriteError(w, http.StatusBadRequest, "no paths to archive")
		return
	}
	zipPath, err := s.resolve(req.ZipName)
	if err != nil {
		services.WriteError(w, http.StatusBadRequest, "%v", err)
		return
	}

	out, err := os.Create(zipPath)
	if err != nil {
		services.WriteError(w, http.StatusInternalServerError, "create archive: %v", err)
		return
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	var total int64
	for _, p := range req.Paths {
		full, err := s.resolve(p)
		if err != nil {
			zw.Close()
			services.WriteError(w, http.StatusBadRequest, "%v", err)
			return
		}
		data, err := os.ReadFile(full)
		if err != nil {
			zw.Close()
			services.WriteError(w, http.StatusBadRequest, "read %s: %v", p, err)
			return
		}
		f, err := zw.Create(filepath.Base(full))
		if err != nil {
			zw.Close()
			services.WriteError(w, http.StatusInternalServerError, "add %s: %v", p, err)
			return
		}
		n, err := f.Write(data)
		if err != nil {
			zw.Close()
			services.WriteError(w, http.StatusInternalServerError, "write %s: %v", p, err)
			return
		}
		total += int64(n)
	}
	if err := zw.Close(); err != nil {
		services.WriteError(w, http.StatusInternalServerError, "finalize archive: %v", err)
		return
	}

	services.WriteJSON(w, http.StatusOK, map[string]any{
		"zip_path":    zipPath,
		"file_count":  len(req.Paths),
		"total_bytes": total,
	})
}
