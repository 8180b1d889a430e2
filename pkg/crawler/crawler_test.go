package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/eora/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSite(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var flaky atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><head><title>EORA</title></head><body>
			<p>Мы   делаем ботов</p>
			<a href="/cases">Кейсы</a>
			<a href="/about">О нас</a>
			<a href="/logo.png">logo</a>
			<a href="/missing">404</a>
			<a href="https://other.example.com/">external</a>
			<a href="/">home</a>
		</body></html>`)
	})
	mux.HandleFunc("/cases", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Кейсы</title><style>.x{}</style></head><body>
			<p>Бот для Магнита</p><a href="/flaky">flaky</a></body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.UserAgent(), "Mozilla/5.0")
		fmt.Fprint(w, `<html><head><title>О нас</title></head><body>EORA</body></html>`)
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if flaky.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `<html><head><title>Flaky</title></head><body>ok</body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &flaky
}

func newCrawler(t *testing.T, base string) *Crawler {
	t.Helper()
	c, err := New(base, WithDelay(0), WithRetry(2, time.Millisecond))
	require.NoError(t, err)
	return c
}

func TestNew_InvalidBase(t *testing.T) {
	_, err := New("not a url")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestCrawlPage(t *testing.T) {
	srv, _ := newSite(t)
	c := newCrawler(t, srv.URL)

	page, err := c.CrawlPage(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, "EORA", page.Title)
	assert.Contains(t, page.Content, "Мы делаем ботов")
	assert.Equal(t, "web", page.Metadata.String(domain.MetaSource))
	assert.Equal(t, srv.URL+"/", page.Metadata.String(domain.MetaURL))
	assert.Equal(t, "EORA", page.Metadata.String(domain.MetaTitle))

	assert.Contains(t, page.Links, srv.URL+"/cases")
	assert.Contains(t, page.Links, srv.URL+"/about")
	assert.NotContains(t, page.Links, srv.URL+"/logo.png")
	assert.NotContains(t, page.Links, "https://other.example.com/")

	doc := page.Document()
	assert.Equal(t, page.Content, doc.Content)
}

func TestCrawlPage_NotFound(t *testing.T) {
	srv, _ := newSite(t)
	c := newCrawler(t, srv.URL)

	_, err := c.CrawlPage(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, domain.ErrWebCrawler)
}

func TestCrawlPage_RetriesServerErrors(t *testing.T) {
	srv, flaky := newSite(t)
	c := newCrawler(t, srv.URL)

	page, err := c.CrawlPage(context.Background(), srv.URL+"/flaky")
	require.NoError(t, err)
	assert.Equal(t, "Flaky", page.Title)
	assert.Equal(t, int32(2), flaky.Load())
}

func TestIsValidURL(t *testing.T) {
	c, err := New("https://eora.ru")
	require.NoError(t, err)

	assert.True(t, c.IsValidURL("https://eora.ru/cases"))
	assert.False(t, c.IsValidURL("https://google.com/"))
	assert.False(t, c.IsValidURL("https://eora.ru/files/deck.PDF"))
	assert.False(t, c.IsValidURL("https://eora.ru/static/app.js"))
	assert.False(t, c.IsValidURL("https://eora.ru/img/a.jpg"))

	require.True(t, c.markVisited("https://eora.ru/cases"))
	assert.False(t, c.IsValidURL("https://eora.ru/cases"))

	c.Reset()
	assert.True(t, c.IsValidURL("https://eora.ru/cases"))
}

func TestCrawlSite(t *testing.T) {
	srv, _ := newSite(t)

	t.Run("Breadth first and skips failures", func(t *testing.T) {
		c := newCrawler(t, srv.URL)
		pages, err := c.CrawlSite(context.Background(), 10)
		require.NoError(t, err)

		var titles []string
		for _, p := range pages {
			titles = append(titles, p.Title)
		}
		assert.Equal(t, []string{"EORA", "Кейсы", "О нас", "Flaky"}, titles)
	})

	t.Run("Stops at max pages", func(t *testing.T) {
		c := newCrawler(t, srv.URL)
		pages, err := c.CrawlSite(context.Background(), 2)
		require.NoError(t, err)
		assert.Len(t, pages, 2)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		c := newCrawler(t, srv.URL)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		pages, err := c.CrawlSite(ctx, 10)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, pages)
	})
}

func TestCrawlSite_RespectsDelay(t *testing.T) {
	srv, _ := newSite(t)
	c, err := New(srv.URL, WithDelay(50*time.Millisecond), WithRetry(1, 0))
	require.NoError(t, err)

	start := time.Now()
	pages, err := c.CrawlSite(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
