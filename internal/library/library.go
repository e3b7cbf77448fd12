package library

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/local/docsections/internal/filetype"
)

// DefaultPagePattern matches the original data layout: page_001.pdf etc.
const DefaultPagePattern = "page_%03d.pdf"

// Library maps page numbers to single-page PDF files under a data directory.
type Library struct {
	dataDir  string
	pattern  string
	detector *filetype.Detector
}

// New creates a Library over dataDir. An empty pattern falls back to
// DefaultPagePattern.
func New(dataDir, pattern string) *Library {
	if pattern == "" {
		pattern = DefaultPagePattern
	}
	return &Library{dataDir: dataDir, pattern: pattern, detector: filetype.New()}
}

// DataDir returns the configured data directory.
func (l *Library) DataDir() string { return l.dataDir }

// PagePath returns the expected file path for a page number.
func (l *Library) PagePath(page int) string {
	return filepath.Join(l.dataDir, fmt.Sprintf(l.pattern, page))
}

// PageFile returns the path for page after checking the file exists and is a
// regular file.
func (l *Library) PageFile(page int) (string, error) {
	if page <= 0 {
		return "", fmt.Errorf("page number %d must be positive", page)
	}
	p := l.PagePath(page)
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("page file %s not found in %s", filepath.Base(p), l.dataDir)
		}
		return "", fmt.Errorf("stat page file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("page path %s is a directory", p)
	}
	return p, nil
}

// HasPage reports whether the page file exists.
func (l *Library) HasPage(page int) bool {
	_, err := l.PageFile(page)
	return err == nil
}

// MissingPages returns the subset of pages whose files are absent.
func (l *Library) MissingPages(pages []int) []int {
	var missing []int
	for _, p := range pages {
		if !l.HasPage(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// ValidatePage checks that the page file exists, is a real PDF by magic
// bytes, and holds exactly one page.
func (l *Library) ValidatePage(page int) error {
	p, err := l.PageFile(page)
	if err != nil {
		return err
	}
	isPDF, err := l.detector.IsPDF(p)
	if err != nil {
		return err
	}
	if !isPDF {
		return fmt.Errorf("page file %s is not a PDF", filepath.Base(p))
	}
	n, err := api.PageCountFile(p)
	if err != nil {
		return fmt.Errorf("pdf page count failed: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("page file %s has %d pages, expected 1", filepath.Base(p), n)
	}
	return nil
}

// CheckDataDir verifies the data directory exists and is a directory.
func (l *Library) CheckDataDir() error {
	info, err := os.Stat(l.dataDir)
	if err != nil {
		return fmt.Errorf("data dir %s: %w", l.dataDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", l.dataDir)
	}
	return nil
}
