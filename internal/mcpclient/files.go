package mcpclient

import "context"

// FilesClient talks to the file manager helper service.
type FilesClient struct {
	baseClient
}

// NewFilesClient reads the base URL from FILE_MANAGER_MCP_URL, falling
// back to the default local port.
func NewFilesClient() *FilesClient {
	return &FilesClient{newBaseClient(FilesURLEnv, DefaultFilesURL)}
}

// NewFilesClientAt targets an explicit base URL.
func NewFilesClientAt(baseURL string) *FilesClient {
	c := newBaseClient("", baseURL)
	return &FilesClient{c}
}

// CreateFile writes content to path under the service's sandbox root.
func (c *FilesClient) CreateFile(ctx context.Context, path, content string) error {
	req := map[string]string{"path": path, "content": content}
	return c.postJSON(ctx, "/create_file", req, nil)
}

// ZipResult describes a created archive.
type ZipResult struct {
	ZipPath    string `json:"zip_path"`
	FileCount  int    `json:"file_count"`
	TotalBytes int64  `json:"total_bytes"`
}

// CreateZipFromMemory builds an archive from in-memory file contents.
func (c *FilesClient) CreateZipFromMemory(ctx context.Context, zipName string, files map[string]string) (*ZipResult, error) {
	req := map[string]any{"zip_name": zipName, "files": files}
	var out ZipResult
	if err := c.postJSON(ctx, "/create_zip_from_memory", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkdownReport is the verdict from a markdown validation call.
type MarkdownReport struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues"`
}

// ValidateMarkdown asks the service to lint a markdown document.
func (c *FilesClient) ValidateMarkdown(ctx context.Context, content string) (*MarkdownReport, error) {
	req := map[string]string{"content": content}
	var out MarkdownReport
	if err := c.postJSON(ctx, "/validate_markdown", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ZipFiles archives files that already exist on disk.
func (c *FilesClient) ZipFiles(ctx context.Context, zipName string, paths []string) (*ZipResult, error) {
	req := map[string]any{"zip_name": zipName, "paths": paths}
	var out ZipResult
	if err := c.postJSON(ctx, "/zip_files", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
