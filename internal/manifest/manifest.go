package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Section is one named page range from the manifest. Start and End are
// inclusive 1-based page numbers with Start <= End.
type Section struct {
	Start int
	End   int
	Name  string
}

// Pages expands the section into its constituent page numbers.
func (s Section) Pages() []int {
	pages := make([]int, 0, s.End-s.Start+1)
	for p := s.Start; p <= s.End; p++ {
		pages = append(pages, p)
	}
	return pages
}

// PageCount returns the number of pages covered by the section.
func (s Section) PageCount() int { return s.End - s.Start + 1 }

// Contains reports whether page falls inside the section range.
func (s Section) Contains(page int) bool { return page >= s.Start && page <= s.End }

// Parse reads a line-based section manifest. Each line has the form
//
//	start#end#name
//
// Blank lines are skipped silently; malformed lines (missing fields,
// non-integer bounds, start > end) are logged and skipped so one bad line
// never takes down the whole manifest.
func Parse(r io.Reader) ([]Section, error) {
	var sections []Section
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		sec, err := parseLine(line)
		if err != nil {
			log.Warn().Int("line", lineNo).Str("text", line).Err(err).Msg("skipping invalid manifest line")
			continue
		}
		sections = append(sections, sec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return sections, nil
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string) ([]Section, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// parseLine splits a single manifest line into a Section. The name keeps
// any further '#' characters it contains.
func parseLine(line string) (Section, error) {
	parts := strings.SplitN(line, "#", 3)
	if len(parts) < 3 {
		return Section{}, fmt.Errorf("expected start#end#name, got %d field(s)", len(parts))
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Section{}, fmt.Errorf("start page: %w", err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Section{}, fmt.Errorf("end page: %w", err)
	}
	name := strings.TrimSpace(parts[2])
	if name == "" {
		return Section{}, fmt.Errorf("empty section name")
	}
	if start <= 0 {
		return Section{}, fmt.Errorf("start page %d must be positive", start)
	}
	if start > end {
		return Section{}, fmt.Errorf("start page %d after end page %d", start, end)
	}
	return Section{Start: start, End: end, Name: name}, nil
}
