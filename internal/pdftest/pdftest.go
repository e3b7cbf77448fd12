package pdftest

import (
	"errors"
	"fmt"
	"regexp"
)

// PageProbe captures the result of probing a single page file.
type PageProbe struct {
	Page      int    `json:"page"`
	CharCount int    `json:"char_count"`
	Err       string `json:"err,omitempty"`
}

// Diagnostics describes a text-extractability check over a set of page files.
type Diagnostics struct {
	ProbedPages        int         `json:"probed_pages"`
	TotalChars         int         `json:"total_chars"`
	Threshold          int         `json:"threshold"`
	Probes             []PageProbe `json:"probes"`
	HasExtractableText bool        `json:"has_extractable_text"`
}

// DefaultThreshold is used when a non-positive threshold is passed in.
const DefaultThreshold = 300

var whitespaceRegex = regexp.MustCompile(`\s+`)

func stripWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(s, "")
}

// Doc abstracts an open PDF document for text probing.
type Doc interface {
	NumPage() int
	Text(i int) (string, error)
	Close() error
}

// Opener abstracts opening a PDF path into a Doc.
type Opener interface {
	Open(path string) (Doc, error)
}

// defaultOpener is provided in doc_open_fitz.go using go-fitz.
var defaultOpener Opener

func setDefaultOpener(o Opener) { defaultOpener = o }

// ProbePages checks whether the page files identified by pathFor contain
// extractable text. pages holds 1-based page numbers; pathFor maps a page
// number to its single-page PDF file. Probing stops early once threshold
// characters (whitespace stripped) have been seen.
func ProbePages(pages []int, pathFor func(int) string, threshold int) (bool, *Diagnostics, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if defaultOpener == nil {
		return false, nil, errors.New("no PDF opener configured")
	}

	diag := &Diagnostics{Threshold: threshold}
	for _, page := range pages {
		probe := PageProbe{Page: page}
		chars, err := probeFile(pathFor(page))
		if err != nil {
			probe.Err = err.Error()
		} else {
			probe.CharCount = chars
			diag.TotalChars += chars
		}
		diag.Probes = append(diag.Probes, probe)
		diag.ProbedPages++
		if diag.TotalChars >= threshold {
			break
		}
	}
	diag.HasExtractableText = diag.TotalChars >= threshold
	return diag.HasExtractableText, diag, nil
}

// probeFile counts non-whitespace runes across every page of one file.
func probeFile(path string) (int, error) {
	d, err := defaultOpener.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer d.Close()

	total := 0
	for i := 0; i < d.NumPage(); i++ {
		text, err := d.Text(i)
		if err != nil {
			continue
		}
		total += len([]rune(stripWhitespace(text)))
	}
	return total, nil
}
