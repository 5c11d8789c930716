package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// SearchResult is one ranked entry returned by a search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchProvider runs keyword searches.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
	Name() string
}

const duckDuckGoHTMLEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGoSearch scrapes the DuckDuckGo HTML results page.
type DuckDuckGoSearch struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
}

// NewDuckDuckGoSearch returns a provider with its own request timeout.
func NewDuckDuckGoSearch(userAgent string, timeout time.Duration) *DuckDuckGoSearch {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DuckDuckGoSearch{
		Endpoint:  duckDuckGoHTMLEndpoint,
		UserAgent: userAgent,
		Client:    &http.Client{Timeout: timeout},
	}
}

func (d *DuckDuckGoSearch) Name() string { return "duckduckgo" }

// Search returns up to maxResults organic results in rank order.
func (d *DuckDuckGoSearch) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = duckDuckGoHTMLEndpoint
	}
	params := url.Values{}
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	results := make([]SearchResult, 0, maxResults)
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := unwrapRedirect(href)
		if target == "" {
			return true
		}
		results = append(results, SearchResult{
			Title:   strings.TrimSpace(link.Text()),
			URL:     target,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return len(results) < maxResults
	})

	return results, nil
}

// unwrapRedirect turns DuckDuckGo's "/l/?uddg=<target>" links into the
// target URL. Direct links are returned as-is.
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
