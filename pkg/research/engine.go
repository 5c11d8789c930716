package research

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mikeboe/usecase-scout/pkg/research/tools"
)

const encyclopedicDomain = "wikipedia.org"

// EngineOptions tunes company research.
type EngineOptions struct {
	// MaxResults is the number of search results requested. Defaults to 10.
	MaxResults int
	// WebsiteDepth bounds the crawl of the official site. Defaults to 1.
	WebsiteDepth int
	// TextBudget caps each CompanyInfo entry in characters. Defaults to 5000.
	TextBudget int
}

// Engine researches a company: it searches the web, reads the encyclopedic
// entry and crawls the official website.
type Engine struct {
	Search  tools.SearchProvider
	Fetcher tools.PageFetcher
	Crawler *Crawler
	Options EngineOptions
	Logger  *slog.Logger
}

func NewEngine(search tools.SearchProvider, fetcher tools.PageFetcher, crawler *Crawler, opts EngineOptions, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10
	}
	if opts.WebsiteDepth <= 0 {
		opts.WebsiteDepth = 1
	}
	if opts.TextBudget <= 0 {
		opts.TextBudget = DefaultTextBudget
	}
	return &Engine{
		Search:  search,
		Fetcher: fetcher,
		Crawler: crawler,
		Options: opts,
		Logger:  logger,
	}
}

// GetCompanyInfo gathers text about name. It never fails: search and fetch
// problems are logged and the affected key is left out, so the worst case is
// an empty CompanyInfo.
func (e *Engine) GetCompanyInfo(ctx context.Context, name string) CompanyInfo {
	info := CompanyInfo{}
	logger := e.Logger.With("company", name)

	results, err := e.Search.Search(ctx, name, e.Options.MaxResults)
	if err != nil {
		logger.Warn("search failed, continuing without results", "provider", e.Search.Name(), "error", err)
		results = nil
	}
	logger.Info("search complete", "provider", e.Search.Name(), "results", len(results))

	wikiURL, officialURL := SelectSeeds(results)

	if wikiURL != "" {
		doc, err := e.Fetcher.Fetch(ctx, wikiURL)
		if err != nil {
			logger.Warn("encyclopedic page unavailable", "url", wikiURL, "error", err)
		} else if text := tools.ExtractText(doc); text != "" {
			info[KeyWikipedia] = TruncateRunes(text, e.Options.TextBudget)
		}
	}

	if officialURL != "" {
		// The crawl's depth-0 visit supplies the landing page text.
		blocks := e.Crawler.Crawl(ctx, officialURL, e.Options.WebsiteDepth)
		if text := RenderBlocks(blocks); text != "" {
			info[KeyWebsite] = TruncateRunes(text, e.Options.TextBudget)
		}
	}

	logger.Info("company research complete", "wikipedia_url", wikiURL, "website_url", officialURL, "keys", len(info))
	return info
}

// SelectSeeds picks the first encyclopedic result and the first other result
// in provider rank order. Either may be empty.
func SelectSeeds(results []tools.SearchResult) (wikiURL, officialURL string) {
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		if isEncyclopedic(r.URL) {
			if wikiURL == "" {
				wikiURL = r.URL
			}
		} else if officialURL == "" {
			officialURL = r.URL
		}
		if wikiURL != "" && officialURL != "" {
			break
		}
	}
	return wikiURL, officialURL
}

func isEncyclopedic(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.Contains(strings.ToLower(rawURL), encyclopedicDomain)
	}
	return strings.Contains(strings.ToLower(u.Host), encyclopedicDomain)
}
