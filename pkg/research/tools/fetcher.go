package tools

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
)

// Reason tags why a fetch produced no document.
type Reason string

const (
	ReasonTransport  Reason = "transport error"
	ReasonHTTPStatus Reason = "http error status"
	ReasonNonMarkup  Reason = "non-markup content-type"
)

// FetchError is the absence outcome of a fetch. Every variant is recoverable:
// crawlers skip the URL and move on.
type FetchError struct {
	URL         string
	Reason      Reason
	StatusCode  int
	ContentType string
	Err         error
}

func (e *FetchError) Error() string {
	switch e.Reason {
	case ReasonHTTPStatus:
		return fmt.Sprintf("fetch %s: %s %d", e.URL, e.Reason, e.StatusCode)
	case ReasonNonMarkup:
		return fmt.Sprintf("fetch %s: %s %q", e.URL, e.Reason, e.ContentType)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetchReason reports the tagged reason carried by err, if any.
func FetchReason(err error) (Reason, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason, true
	}
	return "", false
}

// FetchOptions controls page fetching.
type FetchOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	// Client replaces the default HTTP client, mainly for tests.
	Client *http.Client
}

// PageFetcher retrieves a page and parses it into a document.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*goquery.Document, error)
}

// Fetcher performs single GET requests and returns parsed HTML documents.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

// NewFetcher builds a Fetcher from opts, applying a 10s timeout and a 5MB
// body cap when unset.
func NewFetcher(opts FetchOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 * 1024 * 1024
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Fetcher{
		client:       client,
		userAgent:    opts.UserAgent,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

// Fetch downloads rawURL. It makes exactly one round trip and never retries.
// Failures are returned as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonTransport, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: rawURL, Reason: ReasonHTTPStatus, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "html") {
		return nil, &FetchError{URL: rawURL, Reason: ReasonNonMarkup, StatusCode: resp.StatusCode, ContentType: contentType}
	}

	body, err := f.readBody(resp)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonTransport, StatusCode: resp.StatusCode, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonTransport, Err: fmt.Errorf("parse html: %w", err)}
	}

	// Relative links resolve against the post-redirect location.
	if resp.Request != nil && resp.Request.URL != nil {
		doc.Url = resp.Request.URL
	} else if u, perr := url.Parse(rawURL); perr == nil {
		doc.Url = u
	}
	return doc, nil
}

func (f *Fetcher) readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	body, err := io.ReadAll(io.LimitReader(reader, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("response body exceeds limit of %d bytes", f.maxBodyBytes)
	}
	return body, nil
}
