// Package segment splits a markdown document into addressable section units.
package segment

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Heading levels recognized as section boundaries.
const (
	levelSection    = 2 // "## "
	levelSubsection = 3 // "### "
)

// Section is one addressable unit of a source document.
type Section struct {
	// HeadingPath is the breadcrumb of headings identifying the section:
	// ["SSH"] for an H2, ["SSH", "Keys"] for an H3 under it.
	HeadingPath []string
	// Level is the markdown heading level (2 or 3).
	Level int
	// Content is the trimmed text between this heading and the next heading
	// at the same or a higher level. An H2 section therefore spans its H3
	// subsections, which also appear as sections of their own.
	Content string
}

// KeyPrefix marks unit keys that belong to document sections, as opposed to
// directly added memories.
const KeyPrefix = "section:"

// Key returns the stable identity of the section, derived from its heading
// path. Sections keep their key across re-indexing as long as the headings
// are unchanged. Sections with a duplicated heading path share a key, so
// during indexing the last one in document order wins.
func (s *Section) Key() string {
	return KeyPrefix + strings.Join(s.HeadingPath, " > ")
}

// Title returns the section's own heading text.
func (s *Section) Title() string {
	if len(s.HeadingPath) == 0 {
		return ""
	}
	return s.HeadingPath[len(s.HeadingPath)-1]
}

// Segment splits a markdown document on H2/H3 headings. Every heading starts
// a unit; text before the first heading is ignored. Headings with empty
// bodies still produce a section with empty content. An empty document
// yields nil.
func Segment(document string) []*Section {
	lines := strings.Split(document, "\n")

	type headingLine struct {
		line  int
		level int
		text  string
	}
	var headings []headingLine
	for i, line := range lines {
		if level, text, ok := parseHeading(line); ok {
			headings = append(headings, headingLine{line: i, level: level, text: text})
		}
	}
	if len(headings) == 0 {
		return nil
	}

	sections := make([]*Section, 0, len(headings))
	var currentH2 string
	for i, h := range headings {
		// Content runs to the next heading at the same or higher level.
		end := len(lines)
		for _, next := range headings[i+1:] {
			if next.level <= h.level {
				end = next.line
				break
			}
		}
		body := strings.TrimSpace(strings.Join(lines[h.line+1:end], "\n"))

		var path []string
		switch h.level {
		case levelSection:
			currentH2 = h.text
			path = []string{h.text}
		case levelSubsection:
			if currentH2 != "" {
				path = []string{currentH2, h.text}
			} else {
				path = []string{h.text}
			}
		}
		sections = append(sections, &Section{
			HeadingPath: path,
			Level:       h.level,
			Content:     body,
		})
	}
	return sections
}

// parseHeading reports whether line is an H2 or H3 markdown heading and
// returns its level and trimmed heading text.
func parseHeading(line string) (level int, text string, ok bool) {
	trimmed := strings.TrimLeft(line, " ")
	switch {
	case strings.HasPrefix(trimmed, "### "):
		return levelSubsection, strings.TrimSpace(trimmed[4:]), true
	case strings.HasPrefix(trimmed, "## "):
		return levelSection, strings.TrimSpace(trimmed[3:]), true
	}
	return 0, "", false
}

// Hash returns the SHA-256 hex digest of content, used to detect changed
// sections without comparing full text.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
