package tools

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// minFragmentLen drops labels, bylines and other short boilerplate.
const minFragmentLen = 20

// ExtractText returns the narrative text of doc: the trimmed text of every
// h1, h2, h3 and p element longer than 20 characters, joined by newlines in
// document order.
func ExtractText(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}

	var texts []string
	doc.Find("h1, h2, h3, p").Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(content) > minFragmentLen {
			texts = append(texts, content)
		}
	})
	return strings.Join(texts, "\n")
}
