package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const arxivEndpoint = "https://export.arxiv.org/api/query"

// ArxivEntry struct to hold arXiv entry data
type ArxivEntry struct {
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	ID        string        `xml:"id"`
	Authors   []ArxivAuthor `xml:"author"`
	Link      []ArxivLink   `xml:"link"`
}

type ArxivAuthor struct {
	Name string `xml:"name"`
}

// ArxivLink struct to hold arXiv link data
type ArxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

// ArxivFeed struct to hold the entire arXiv feed
type ArxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entry   []ArxivEntry `xml:"entry"`
}

// Paper is a research paper reference.
type Paper struct {
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	URL     string   `json:"url"`
}

// ArxivClient queries the arXiv Atom API.
type ArxivClient struct {
	Endpoint string
	Client   *http.Client
	Logger   *slog.Logger
}

func NewArxivClient(timeout time.Duration) *ArxivClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ArxivClient{
		Endpoint: arxivEndpoint,
		Client:   &http.Client{Timeout: timeout},
		Logger:   slog.Default(),
	}
}

// SearchPapers returns up to maxResults papers matching query. The PDF link
// is preferred; the abstract page is used when no PDF link is listed.
func (a *ArxivClient) SearchPapers(ctx context.Context, query string, maxResults int) ([]Paper, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	params := url.Values{}
	params.Add("search_query", "all:"+query)
	params.Add("max_results", strconv.Itoa(maxResults))
	params.Add("start", "0")
	apiURL := a.Endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build API request: %w", err)
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		a.logger().Error("API returned non-200 status code", "status", resp.StatusCode, "body", string(bodyBytes))
		return nil, fmt.Errorf("API returned non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var feed ArxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal XML: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Entry))
	for _, entry := range feed.Entry {
		p := Paper{
			Title: strings.Join(strings.Fields(entry.Title), " "),
			URL:   strings.TrimSpace(entry.ID),
		}
		for _, link := range entry.Link {
			if link.Type == "application/pdf" {
				p.URL = link.Href
				break
			}
		}
		for _, author := range entry.Authors {
			if name := strings.TrimSpace(author.Name); name != "" {
				p.Authors = append(p.Authors, name)
			}
		}
		if p.Title != "" {
			papers = append(papers, p)
		}
	}

	a.logger().Info("arXiv search complete", "query", query, "count", len(papers))
	return papers, nil
}

func (a *ArxivClient) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
