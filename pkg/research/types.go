package research

import (
	"strings"
	"unicode/utf8"
)

// Keys of CompanyInfo.
const (
	KeyWikipedia = "wikipedia"
	KeyWebsite   = "website"
)

// DefaultTextBudget is the maximum number of characters kept per source.
const DefaultTextBudget = 5000

// ContentBlock is the narrative text extracted from one visited page.
type ContentBlock struct {
	SourceURL string `json:"source_url"`
	Depth     int    `json:"depth"`
	Text      string `json:"text"`
}

// CompanyInfo holds the researched text for a company under at most two
// keys, "wikipedia" and "website". An empty map is a valid result.
type CompanyInfo map[string]string

// Wikipedia returns the encyclopedic text, if any.
func (c CompanyInfo) Wikipedia() (string, bool) {
	v, ok := c[KeyWikipedia]
	return v, ok
}

// Website returns the primary-source text, if any.
func (c CompanyInfo) Website() (string, bool) {
	v, ok := c[KeyWebsite]
	return v, ok
}

// FormatCompanyInfo renders info as the plain-text context handed to the
// company analysis step.
func FormatCompanyInfo(info CompanyInfo) string {
	var b strings.Builder
	if text, ok := info.Wikipedia(); ok {
		b.WriteString("Wikipedia Info:\n")
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	if text, ok := info.Website(); ok {
		b.WriteString("Website Info:\n")
		b.WriteString(text)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "No information found."
	}
	return b.String()
}

// TruncateRunes cuts s to at most limit characters without splitting a
// multi-byte sequence. A non-positive limit returns s unchanged.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
