package tools

import (
	"net/url"
	"strings"
)

// LinkClassifier decides which anchors a site crawl follows. Matching is
// case-insensitive substring matching against the resolved URL (and, for the
// relevance vocabulary, the anchor text).
type LinkClassifier struct {
	// SkipPatterns rejects binary, mail and script targets.
	SkipPatterns []string
	// DenyKeywords rejects low-value or sensitive pages.
	DenyKeywords []string
	// AllowKeywords must match the URL or anchor text for a link to be followed.
	AllowKeywords []string
}

// DefaultLinkClassifier returns the classifier used for company websites.
func DefaultLinkClassifier() LinkClassifier {
	return LinkClassifier{
		SkipPatterns: []string{".pdf", ".jpg", ".jpeg", ".png", ".gif", "mailto:", "javascript:"},
		DenyKeywords: []string{"login", "signup", "register", "job", "career", "privacy", "terms", "subscribe", "contact"},
		AllowKeywords: []string{
			"about", "team", "history", "company", "leadership",
			"product", "service", "news", "press", "blog",
		},
	}
}

// ShouldFollow resolves href against base and reports whether the result
// should be crawled. The resolved absolute URL, without its fragment, is
// returned alongside the decision.
func (c LinkClassifier) ShouldFollow(href, anchorText string, base *url.URL, baseDomain string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || base == nil {
		return "", false
	}

	lowerHref := strings.ToLower(href)
	if strings.HasPrefix(lowerHref, "mailto:") || strings.HasPrefix(lowerHref, "javascript:") {
		return "", false
	}

	target, err := base.Parse(href)
	if err != nil {
		return "", false
	}
	target.Fragment = ""
	full := target.String()

	if !strings.EqualFold(target.Host, baseDomain) {
		return full, false
	}

	lowerURL := strings.ToLower(full)
	if containsAny(lowerURL, c.SkipPatterns) {
		return full, false
	}
	if containsAny(lowerURL, c.DenyKeywords) {
		return full, false
	}

	lowerText := strings.ToLower(anchorText)
	if containsAny(lowerURL, c.AllowKeywords) || containsAny(lowerText, c.AllowKeywords) {
		return full, true
	}
	return full, false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}
