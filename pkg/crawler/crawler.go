// Package crawler walks a web site breadth-first and extracts page text.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/eora/internal/logging"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/htmltext"
	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultTimeout   = 10 * time.Second
	DefaultDelay     = time.Second
	// maxBodySize caps how much of a page is read.
	maxBodySize = 5 << 20
)

// skippedExtensions mark URLs that are never crawled.
var skippedExtensions = []string{".pdf", ".jpg", ".png", ".gif", ".css", ".js"}

// Page is the extracted content of one URL.
type Page struct {
	URL      string          `json:"url"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Metadata domain.Metadata `json:"metadata"`
	Links    []string        `json:"-"`
}

// Document converts the page into an indexable document.
func (p Page) Document() domain.Document {
	return domain.NewDocument(p.Content, p.Metadata)
}

// Crawler fetches pages of a single host.
type Crawler struct {
	base      *url.URL
	client    *http.Client
	userAgent string
	delay     time.Duration
	limiter   *rate.Limiter
	attempts  uint
	backoff   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	visited map[string]bool
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithDelay sets the minimum interval between two requests.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		c.delay = d
	}
}

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) {
		c.client = client
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(c *Crawler) {
		c.userAgent = ua
	}
}

// WithRetry sets how many times a fetch is attempted and the pause between attempts.
func WithRetry(attempts uint, backoff time.Duration) Option {
	return func(c *Crawler) {
		c.attempts = attempts
		c.backoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a crawler rooted at baseURL.
func New(baseURL string, opts ...Option) (*Crawler, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid crawl base url %q", domain.ErrConfiguration, baseURL)
	}
	if base.Path == "" {
		base.Path = "/"
	}
	c := &Crawler{
		base:      base,
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
		delay:     DefaultDelay,
		attempts:  3,
		backoff:   500 * time.Millisecond,
		logger:    logging.NewNop(),
		visited:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	limit := rate.Inf
	if c.delay > 0 {
		limit = rate.Every(c.delay)
	}
	c.limiter = rate.NewLimiter(limit, 1)
	return c, nil
}

// BaseURL returns the crawl root.
func (c *Crawler) BaseURL() string {
	return c.base.String()
}

// CrawlPage fetches url and extracts its title, visible text and links.
func (c *Crawler) CrawlPage(ctx context.Context, pageURL string) (*Page, error) {
	body, err := c.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := htmltext.Parse(strings.NewReader(body))
	if err != nil {
		return nil, domain.Wrap(domain.ErrWebCrawler, "crawl_page", err)
	}

	title := doc.Title()
	page := &Page{
		URL:     pageURL,
		Title:   title,
		Content: doc.Text(),
		Metadata: domain.Metadata{
			domain.MetaSource: "web",
			domain.MetaURL:    pageURL,
			domain.MetaTitle:  title,
		},
	}
	ref, err := url.Parse(pageURL)
	if err == nil {
		for _, link := range doc.Links(ref) {
			if c.IsValidURL(link) {
				page.Links = append(page.Links, link)
			}
		}
	}
	return page, nil
}

// Links returns the crawlable links found on pageURL.
func (c *Crawler) Links(ctx context.Context, pageURL string) ([]string, error) {
	page, err := c.CrawlPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return page.Links, nil
}

// IsValidURL reports whether u is on the crawled host, not visited yet and
// not a static asset.
func (c *Crawler) IsValidURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host != c.base.Host {
		return false
	}
	lower := strings.ToLower(u)
	for _, ext := range skippedExtensions {
		if strings.Contains(lower, ext) {
			return false
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.visited[u]
}

// CrawlSite visits the site breadth-first from the base URL until maxPages
// pages were extracted or no links remain. Pages that fail are logged and skipped.
// On cancellation the pages gathered so far are returned with the context error.
func (c *Crawler) CrawlSite(ctx context.Context, maxPages int) ([]Page, error) {
	var pages []Page
	queue := []string{c.base.String()}

	for len(queue) > 0 && len(pages) < maxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		next := queue[0]
		queue = queue[1:]

		if !c.markVisited(next) {
			continue
		}

		page, err := c.CrawlPage(ctx, next)
		if err != nil {
			if ctx.Err() != nil {
				return pages, ctx.Err()
			}
			c.logger.Warn("failed to crawl page", "url", next, "error", err)
			continue
		}
		c.logger.Debug("page crawled", "url", next, "links", len(page.Links))
		pages = append(pages, *page)
		queue = append(queue, page.Links...)
	}
	return pages, nil
}

// Reset forgets visited URLs.
func (c *Crawler) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visited = make(map[string]bool)
}

func (c *Crawler) markVisited(u string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.visited[u] {
		return false
	}
	c.visited[u] = true
	return true
}

type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func (c *Crawler) fetch(ctx context.Context, pageURL string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	body, err := retry.DoWithData(func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return "", retry.Unrecoverable(err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			serr := statusError{code: resp.StatusCode}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return "", serr
			}
			return "", retry.Unrecoverable(serr)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return "", err
		}
		return string(data), nil
	},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.backoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", domain.Wrap(domain.ErrWebCrawler, "fetch", fmt.Errorf("%s: %w", pageURL, err))
	}
	return body, nil
}
