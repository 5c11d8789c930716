package research

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/mikeboe/usecase-scout/pkg/research/tools"
)

// CrawlOptions bounds a site crawl.
type CrawlOptions struct {
	// MaxPages caps fetch attempts per crawl. Zero or less means no cap.
	MaxPages int
	// Workers is the number of concurrent fetches within one depth level.
	Workers int
	// Classifier overrides the default link vocabulary.
	Classifier *tools.LinkClassifier
}

// Crawler walks one site breadth-first from a seed URL.
type Crawler struct {
	fetcher    tools.PageFetcher
	classifier tools.LinkClassifier
	maxPages   int
	workers    int
	logger     *slog.Logger
}

func NewCrawler(fetcher tools.PageFetcher, opts CrawlOptions, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	classifier := tools.DefaultLinkClassifier()
	if opts.Classifier != nil {
		classifier = *opts.Classifier
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Crawler{
		fetcher:    fetcher,
		classifier: classifier,
		maxPages:   opts.MaxPages,
		workers:    workers,
		logger:     logger,
	}
}

type frontierEntry struct {
	url   string
	depth int
}

type fetchResult struct {
	entry frontierEntry
	doc   *goquery.Document
	err   error
}

// Crawl visits seedURL and the relevant same-site pages reachable from it
// within maxDepth hops. Pages are visited in breadth-first order, each at
// most once. Unreachable pages are logged and skipped; the blocks gathered
// so far are returned when ctx is cancelled.
func (c *Crawler) Crawl(ctx context.Context, seedURL string, maxDepth int) []ContentBlock {
	seed, err := url.Parse(seedURL)
	if err != nil || seed.Host == "" {
		c.logger.Warn("invalid seed url", "url", seedURL, "error", err)
		return nil
	}
	baseDomain := seed.Host

	visited := make(map[string]struct{})
	frontier := []frontierEntry{{url: seedURL, depth: 0}}
	attempts := 0
	var blocks []ContentBlock

	for len(frontier) > 0 {
		if ctx.Err() != nil {
			c.logger.Warn("crawl cancelled", "seed", seedURL, "pages", len(blocks))
			break
		}

		// The frontier only ever holds one depth level at a time.
		var batch []frontierEntry
		for _, entry := range frontier {
			if _, seen := visited[entry.url]; seen || entry.depth > maxDepth {
				continue
			}
			if c.maxPages > 0 && attempts >= c.maxPages {
				c.logger.Info("crawl page budget reached", "seed", seedURL, "max_pages", c.maxPages)
				break
			}
			visited[entry.url] = struct{}{}
			attempts++
			batch = append(batch, entry)
		}
		frontier = nil

		for _, res := range c.fetchAll(ctx, batch) {
			if res.err != nil {
				c.logger.Warn("skipping page", "url", res.entry.url, "depth", res.entry.depth, "error", res.err)
				continue
			}

			blocks = append(blocks, ContentBlock{
				SourceURL: res.entry.url,
				Depth:     res.entry.depth,
				Text:      tools.ExtractText(res.doc),
			})

			if res.entry.depth == 0 && res.doc.Url != nil && res.doc.Url.Host != "" {
				// Follow the site to where the seed redirected.
				baseDomain = res.doc.Url.Host
			}
			if res.entry.depth >= maxDepth {
				continue
			}
			frontier = append(frontier, c.expand(res, baseDomain, visited)...)
		}

		if c.maxPages > 0 && attempts >= c.maxPages {
			break
		}
	}

	c.logger.Info("crawl complete", "seed", seedURL, "max_depth", maxDepth, "pages", len(blocks), "attempts", attempts)
	return blocks
}

// CrawlText crawls seedURL and renders the blocks in visitation order, each
// prefixed with its source URL.
func (c *Crawler) CrawlText(ctx context.Context, seedURL string, maxDepth int) string {
	return RenderBlocks(c.Crawl(ctx, seedURL, maxDepth))
}

// RenderBlocks joins blocks as "Content from <url>:\n<text>\n" sections.
func RenderBlocks(blocks []ContentBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, fmt.Sprintf("Content from %s:\n%s\n", b.SourceURL, b.Text))
	}
	return strings.Join(parts, "\n")
}

func (c *Crawler) expand(res fetchResult, baseDomain string, visited map[string]struct{}) []frontierEntry {
	base := res.doc.Url
	if base == nil {
		parsed, err := url.Parse(res.entry.url)
		if err != nil {
			return nil
		}
		base = parsed
	}

	var children []frontierEntry
	res.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		target, ok := c.classifier.ShouldFollow(href, s.Text(), base, baseDomain)
		if !ok {
			return
		}
		if _, seen := visited[target]; seen {
			return
		}
		children = append(children, frontierEntry{url: target, depth: res.entry.depth + 1})
	})

	c.logger.Debug("expanded links", "url", res.entry.url, "children", len(children))
	return children
}

// fetchAll fetches batch with at most c.workers requests in flight and
// returns the results in batch order.
func (c *Crawler) fetchAll(ctx context.Context, batch []frontierEntry) []fetchResult {
	results := make([]fetchResult, len(batch))
	if c.workers == 1 {
		for i, entry := range batch {
			doc, err := c.fetcher.Fetch(ctx, entry.url)
			results[i] = fetchResult{entry: entry, doc: doc, err: err}
		}
		return results
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.workers)
	for i, entry := range batch {
		wg.Add(1)
		go func(i int, entry frontierEntry) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			doc, err := c.fetcher.Fetch(ctx, entry.url)
			results[i] = fetchResult{entry: entry, doc: doc, err: err}
		}(i, entry)
	}
	wg.Wait()
	return results
}
