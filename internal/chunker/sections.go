package chunker

import (
	"regexp"
	"strings"
	"unicode"
)

// section is a [start,end) range of the source text introduced by a header
// line. A document's leading text before any header forms a headerless
// section.
type section struct {
	start  int
	end    int
	header string
}

var (
	keywordHeading  = regexp.MustCompile(`^(ARTICLE|SECTION|SCHEDULE|EXHIBIT|APPENDIX|ANNEX)\b[\s.:]*([IVXLCDM]+|\d+)?`)
	numberedHeading = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+[A-Z]`)
	markdownHeading = regexp.MustCompile(`^#{1,6}\s+\S`)
)

// splitSections splits text into sections at detected header lines.
func splitSections(text string) []section {
	var sections []section
	secStart := 0
	header := ""

	pos := 0
	for pos < len(text) {
		lineEnd := strings.IndexByte(text[pos:], '\n')
		var next int
		var line string
		if lineEnd < 0 {
			line = text[pos:]
			next = len(text)
		} else {
			line = text[pos : pos+lineEnd]
			next = pos + lineEnd + 1
		}

		if trimmed := strings.TrimSpace(line); isSectionHeader(trimmed) {
			if pos > secStart {
				sections = append(sections, section{start: secStart, end: pos, header: header})
			}
			secStart = pos
			header = strings.TrimLeft(trimmed, "# ")
		}
		pos = next
	}

	if secStart < len(text) {
		sections = append(sections, section{start: secStart, end: len(text), header: header})
	}
	return sections
}

// isSectionHeader reports whether a trimmed line looks like a legal section
// heading: a keyword marker (ARTICLE IV, SECTION 2), a numbered heading
// (7.1 Termination), an ALL-CAPS line, or a markdown heading.
func isSectionHeader(line string) bool {
	if line == "" || len(line) > 120 {
		return false
	}
	if keywordHeading.MatchString(line) {
		return true
	}
	// Numbered headings are short title lines, not numbered body sentences.
	if numberedHeading.MatchString(line) && len(line) <= 80 && !strings.HasSuffix(line, ".") {
		return true
	}
	if markdownHeading.MatchString(line) {
		return true
	}
	return isAllCapsHeading(line)
}

// isAllCapsHeading matches short lines whose letters are all uppercase, e.g.
// "GOVERNING LAW AND JURISDICTION". Requires at least three letters so
// stray abbreviations do not start sections.
func isAllCapsHeading(line string) bool {
	if len(line) > 80 {
		return false
	}
	letters := 0
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 3
}
