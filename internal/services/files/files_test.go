package files

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["service"] != "file-manager" {
		t.Errorf("health body = %v", body)
	}
}

func TestCreateFile(t *testing.T) {
	s, ts := newTestServer(t)
	resp := post(t, ts.URL+"/create_file", map[string]string{
		"path":    "docs/plan.md",
		"content": "# Plan",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	data, err := os.ReadFile(filepath.Join(s.Root, "docs", "plan.md"))
	if err != nil {
		t.Fatalf("read created file: %v", err)
	}
	if string(data) != "# Plan" {
		t.Errorf("content = %q", data)
	}
}

func TestCreateFileRejectsEscape(t *testing.T) {
	tests := []string{"../outside.md", "/etc/passwd", "a/../../b.md"}
	_, ts := newTestServer(t)
	for _, p := range tests {
		resp := post(t, ts.URL+"/create_file", map[string]string{"path": p, "content": "x"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("path %q: status = %d, want 400", p, resp.StatusCode)
		}
	}
}

func TestCreateZipFromMemory(t *testing.T) {
	s, ts := newTestServer(t)
	resp := post(t, ts.URL+"/create_zip_from_memory", map[string]any{
		"zip_name": "bundle.zip",
		"files": map[string]string{
			"01_overview.md": "# Overview",
			"README.md":      "# Contents",
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		ZipPath   string `json:"zip_path"`
		FileCount int    `json:"file_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.FileCount != 2 {
		t.Errorf("file_count = %d", body.FileCount)
	}

	zr, err := zip.OpenReader(filepath.Join(s.Root, "bundle.zip"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["01_overview.md"] || !names["README.md"] {
		t.Errorf("archive members = %v", names)
	}
}

func TestZipFromMemoryEmpty(t *testing.T) {
	_, ts := newTestServer(t)
	resp := post(t, ts.URL+"/create_zip_from_memory", map[string]any{
		"zip_name": "empty.zip",
		"files":    map[string]string{},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestZipFiles(t *testing.T) {
	s, ts := newTestServer(t)
	if err := os.WriteFile(filepath.Join(s.Root, "a.md"), []byte("# A"), 0o644); err != nil {
		t.Fatal(err)
	}
	resp := post(t, ts.URL+"/zip_files", map[string]any{
		"zip_name": "from_disk.zip",
		"paths":    []string{"a.md"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if _, err := zip.OpenReader(filepath.Join(s.Root, "from_disk.zip")); err != nil {
		t.Errorf("open archive: %v", err)
	}
}

func TestValidateMarkdown(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantValid bool
		wantIssue string
	}{
		{"valid", "# Title\n\nsome text\n", true, ""},
		{"empty", "   \n", false, "document is empty"},
		{"unbalanced fence", "# T\n```go\ncode\n", false, "unbalanced code fences"},
		{"no heading", "just text\n", false, "missing top-level heading"},
	}
	_, ts := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/validate_markdown", map[string]string{"content": tt.content})
			var body struct {
				Valid  bool     `json:"valid"`
				Issues []string `json:"issues"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v (issues %v)", body.Valid, tt.wantValid, body.Issues)
			}
			if tt.wantIssue != "" && !strings.Contains(strings.Join(body.Issues, ";"), tt.wantIssue) {
				t.Errorf("issues = %v, want mention of %q", body.Issues, tt.wantIssue)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/create_file")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}
