package research

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/usecase-scout/pkg/research/tools"
)

// fakeFetcher serves canned HTML by URL and records every fetch.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages}
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &tools.FetchError{URL: rawURL, Reason: tools.ReasonTransport, Err: err}
	}
	html, ok := f.pages[rawURL]
	if !ok {
		return nil, &tools.FetchError{URL: rawURL, Reason: tools.ReasonHTTPStatus, StatusCode: http.StatusNotFound}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	doc.Url, _ = url.Parse(rawURL)
	return doc, nil
}

func (f *fakeFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func page(body string) string {
	return "<html><body>" + body + "</body></html>"
}

func sourceURLs(blocks []ContentBlock) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.SourceURL)
	}
	return out
}

func TestCrawlFollowsRelevantLinksWithinDepth(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		"https://acme.com/": page(`
			<h1>Acme Corporation welcomes you</h1>
			<a href="/about">About us</a>
			<a href="/careers">Careers</a>
			<a href="/widgets">Widgets</a>
			<a href="https://other.com/about">Partner</a>`),
		"https://acme.com/about": page(`
			<p>Acme was founded in 1920 in the desert.</p>
			<a href="/about/history">Our history</a>
			<a href="/">Home</a>`),
		"https://acme.com/careers":       page(`<p>Join the Acme team and build rockets.</p>`),
		"https://acme.com/about/history": page(`<p>A long and storied history of anvils.</p>`),
	})
	c := NewCrawler(fetcher, CrawlOptions{}, nil)

	blocks := c.Crawl(t.Context(), "https://acme.com/", 1)

	assert.Equal(t, []string{"https://acme.com/", "https://acme.com/about"}, sourceURLs(blocks))
	assert.Equal(t, []string{"https://acme.com/", "https://acme.com/about"}, fetcher.fetched())
	assert.Equal(t, 0, blocks[0].Depth)
	assert.Equal(t, 1, blocks[1].Depth)
	assert.Equal(t, "Acme was founded in 1920 in the desert.", blocks[1].Text)
}

func TestCrawlDepthZeroFetchesSeedOnly(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		"https://acme.com/":      page(`<p>Acme landing page with plenty of text.</p><a href="/about">About</a>`),
		"https://acme.com/about": page(`<p>About Acme and its leadership team.</p>`),
	})
	c := NewCrawler(fetcher, CrawlOptions{}, nil)

	blocks := c.Crawl(t.Context(), "https://acme.com/", 0)

	assert.Equal(t, []string{"https://acme.com/"}, sourceURLs(blocks))
	assert.Equal(t, []string{"https://acme.com/"}, fetcher.fetched())
}

func TestCrawlVisitsEachURLOnce(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		"https://acme.com/": page(`
			<a href="/about">About</a>
			<a href="/team">Team</a>
			<a href="/about#mission">About mission</a>`),
		"https://acme.com/about": page(`<a href="/team">Team</a><a href="/">Company home</a>`),
		"https://acme.com/team":  page(`<a href="/about">About</a><a href="/team">Team</a>`),
	})
	c := NewCrawler(fetcher, CrawlOptions{}, nil)

	blocks := c.Crawl(t.Context(), "https://acme.com/", 3)

	urls := sourceURLs(blocks)
	seen := map[string]int{}
	for _, u := range urls {
		seen[u]++
	}
	for u, n := range seen {
		assert.Equal(t, 1, n, "visited %s %d times", u, n)
	}
	assert.ElementsMatch(t, []string{"https://acme.com/", "https://acme.com/about", "https://acme.com/team"}, urls)
}

func TestCrawlSkipsDeadLinks(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		"https://acme.com/": page(`
			<a href="/news">News</a>
			<a href="/about">About</a>`),
		"https://acme.com/about": page(`<p>About Acme, a company of many talents.</p>`),
	})
	c := NewCrawler(fetcher, CrawlOptions{}, nil)

	blocks := c.Crawl(t.Context(), "https://acme.com/", 1)

	assert.Equal(t, []string{"https://acme.com/", "https://acme.com/about"}, sourceURLs(blocks))
	assert.Equal(t, []string{"https://acme.com/", "https://acme.com/news", "https://acme.com/about"}, fetcher.fetched())
}

func TestCrawlPageBudget(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		"https://acme.com/": page(`
			<a href="/about">About</a>
			<a href="/team">Team</a>
			<a href="/news">News</a>`),
		"https://acme.com/about": page(`<p>About</p>`),
		"https://acme.com/team":  page(`<p>Team</p>`),
		"https://acme.com/news":  page(`<p>News</p>`),
	})
	c := NewCrawler(fetcher, CrawlOptions{MaxPages: 2}, nil)

	blocks := c.Crawl(t.Context(), "https://acme.com/", 1)

	assert.Equal(t, []string{"https://acme.com/", "https://acme.com/about"}, sourceURLs(blocks))
	assert.Len(t, fetcher.fetched(), 2)
}

func TestCrawlConcurrentWorkersKeepOrder(t *testing.T) {
	pages := map[string]string{}
	var links strings.Builder
	for i := 0; i < 8; i++ {
		u := fmt.Sprintf("https://acme.com/news/%d", i)
		fmt.Fprintf(&links, `<a href="/news/%d">News %d</a>`, i, i)
		pages[u] = page(fmt.Sprintf(`<p>Press release number %d from Acme.</p>`, i))
	}
	pages["https://acme.com/"] = page(links.String())

	sequential := NewCrawler(newFakeFetcher(pages), CrawlOptions{}, nil).Crawl(t.Context(), "https://acme.com/", 1)
	parallel := NewCrawler(newFakeFetcher(pages), CrawlOptions{Workers: 4}, nil).Crawl(t.Context(), "https://acme.com/", 1)

	require.Len(t, parallel, 9)
	assert.Equal(t, sequential, parallel)
}

func TestCrawlCancelled(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		"https://acme.com/": page(`<p>Acme landing page with plenty of text.</p>`),
	})
	c := NewCrawler(fetcher, CrawlOptions{}, nil)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	assert.Empty(t, c.Crawl(ctx, "https://acme.com/", 1))
	assert.Empty(t, fetcher.fetched())
}

func TestCrawlInvalidSeed(t *testing.T) {
	c := NewCrawler(newFakeFetcher(nil), CrawlOptions{}, nil)
	assert.Empty(t, c.Crawl(t.Context(), "not a url", 1))
}

func TestCrawlOverHTTP(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()

		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, page(`<h1>Welcome to the Acme website</h1>
				<a href="/about">About</a>
				<a href="/brochure.pdf">Company brochure</a>
				<a href="/services">What we do</a>
				<a href="/products">Products</a>`))
		case "/about":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, page(`<p>Acme builds rockets for coyotes everywhere.</p><a href="/about/team">Team</a>`))
		case "/services":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"services":[]}`)
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fetcher := tools.NewFetcher(tools.FetchOptions{Timeout: time.Second})
	c := NewCrawler(fetcher, CrawlOptions{}, nil)

	text := c.CrawlText(t.Context(), srv.URL+"/", 1)

	assert.Contains(t, text, "Content from "+srv.URL+"/:\nWelcome to the Acme website\n")
	assert.Contains(t, text, "Content from "+srv.URL+"/about:\nAcme builds rockets for coyotes everywhere.\n")
	assert.NotContains(t, text, "/services")
	assert.NotContains(t, text, "/products")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits["/"])
	assert.Equal(t, 1, hits["/about"])
	assert.Equal(t, 0, hits["/brochure.pdf"])
	assert.Equal(t, 0, hits["/about/team"])
}

func TestRenderBlocks(t *testing.T) {
	got := RenderBlocks([]ContentBlock{
		{SourceURL: "https://acme.com/", Text: "one"},
		{SourceURL: "https://acme.com/about", Text: "two"},
	})
	assert.Equal(t, "Content from https://acme.com/:\none\n\nContent from https://acme.com/about:\ntwo\n", got)
	assert.Empty(t, RenderBlocks(nil))
}
