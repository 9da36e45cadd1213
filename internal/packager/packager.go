// Package packager turns the generated documents into a named zip
// archive, preferring the file manager helper service and falling back to
// writing the archive locally.
package packager

import (
	"archive/zip"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/planforge/planforge/internal/mcpclient"
)

// DocumentFile maps a generator output key to its place in the archive.
type DocumentFile struct {
	Key      string
	Filename string
	Title    string
}

// DocumentFiles lists every document a complete plan contains, in archive
// order.
var DocumentFiles = []DocumentFile{
	{"overview_md", "01_overview.md", "Product Overview"},
	{"features_md", "02_features.md", "MVP Features"},
	{"architecture_md", "03_architecture.md", "Architecture"},
	{"design_md", "04_design.md", "Design"},
	{"user_flow_md", "05_user_flow.md", "User Flow"},
	{"roadmap_md", "06_roadmap.md", "Roadmap"},
	{"business_model_md", "07_business_model.md", "Business Model"},
	{"testing_plan_md", "08_testing_plan.md", "Testing Plan"},
}

// Documents maps generator output keys to markdown content.
type Documents map[string]string

// MissingKeys returns the required document keys absent or empty in docs.
func MissingKeys(docs Documents) []string {
	var missing []string
	for _, df := range DocumentFiles {
		if strings.TrimSpace(docs[df.Key]) == "" {
			missing = append(missing, df.Key)
		}
	}
	return missing
}

// Packager writes plan archives.
type Packager struct {
	Files     *mcpclient.FilesClient // nil disables the helper path
	OutputDir string
}

// Package assembles the archive for idea from docs and returns its path.
func (p *Packager) Package(ctx context.Context, idea string, docs Documents) (string, error) {
	if missing := MissingKeys(docs); len(missing) > 0 {
		return "", fmt.Errorf("packager: documents missing: %s", strings.Join(missing, ", "))
	}

	files := buildFileSet(idea, docs, time.Now())
	name := ArchiveName(idea, time.Now())

	if p.Files != nil {
		res, err := p.Files.CreateZipFromMemory(ctx, name, files)
		if err == nil {
			return res.ZipPath, nil
		}
		log.Printf("WARNING: packager: file service unavailable, writing archive locally: %v", err)
	}

	dir := p.OutputDir
	if dir == "" {
		dir = "output"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("packager: create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := writeZip(path, files); err != nil {
		return "", fmt.Errorf("packager: write archive: %w", err)
	}
	return path, nil
}

// buildFileSet maps keys to final filenames and adds the README.
func buildFileSet(idea string, docs Documents, now time.Time) map[string]string {
	files := make(map[string]string, len(DocumentFiles)+1)
	for _, df := range DocumentFiles {
		files[df.Filename] = SanitizeMarkdown(docs[df.Key])
	}
	files["README.md"] = readme(idea, now)
	return files
}

func readme(idea string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# MVP Plan\n\n")
	fmt.Fprintf(&b, "**Idea:** %s\n\n", strings.TrimSpace(idea))
	fmt.Fprintf(&b, "**Generated:** %s\n\n", now.Format("2006-01-02 15:04"))
	b.WriteString("## Contents\n\n")
	for _, df := range DocumentFiles {
		fmt.Fprintf(&b, "- **%s** - %s\n", df.Filename, df.Title)
	}
	b.WriteString("\nStart with the overview, then work through the files in order.\n")
	return b.String()
}

// ArchiveName builds the zip filename for an idea.
func ArchiveName(idea string, now time.Time) string {
	return fmt.Sprintf("mvp_%s_%s.zip", SafeIdeaSlug(idea), now.Format("20060102_150405"))
}

// SafeIdeaSlug reduces an idea to a filesystem-safe fragment: the first 30
// characters, keeping letters, digits, spaces, dashes and underscores,
// with spaces folded to underscores.
func SafeIdeaSlug(idea string) string {
	runes := []rune(strings.TrimSpace(idea))
	if len(runes) > 30 {
		runes = runes[:30]
	}
	var b strings.Builder
	for _, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		return "mvp"
	}
	return slug
}

// SanitizeMarkdown strips byte order marks, zero-width characters, and
// control characters other than tab and newline, and normalizes line
// endings.
func SanitizeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\uFEFF' || (r >= '\u200B' && r <= '\u200D'):
			// BOM and zero-width characters.
		case r == '\t' || r == '\n':
			b.WriteRune(r)
		case unicode.IsControl(r):
			// Dropped.
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func writeZip(path string, files map[string]string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(out)
	for _, name := range names {
		f, err := zw.Create(name)
		if err != nil {
			zw.Close()
			return fmt.Errorf("add %s: %w", name, err)
		}
		if _, err := f.Write([]byte(files[name])); err != nil {
			zw.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return zw.Close()
}
