// Package rag implements the retrieval-augmented answering pipeline: documents
// are loaded, chunked and embedded once, then every question retrieves the
// closest chunks and asks the chat model to answer from them only.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/eora/internal/logging"
	"github.com/aretw0/eora/internal/prompts"
	"github.com/aretw0/eora/pkg/crawler"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/loader"
	"github.com/aretw0/eora/pkg/observability"
	"github.com/aretw0/eora/pkg/ports"
	"github.com/aretw0/eora/pkg/splitter"
	"github.com/aretw0/eora/pkg/validation"
	"github.com/aretw0/eora/pkg/vectorstore"
)

const (
	DefaultSearchK       = 5
	DefaultCrawlMaxPages = 20
)

// Models are the language model backends used by the chain.
type Models struct {
	Chat     ports.ChatModel
	Embedder ports.Embedder
	// EmbeddingModel identifies the embedder in index fingerprints.
	EmbeddingModel string
}

// Chain is safe for concurrent use. LoadDocuments swaps the index atomically,
// so questions keep being answered from the previous index while it runs.
type Chain struct {
	models        Models
	splitter      *splitter.Splitter
	loader        *loader.Loader
	crawler       *crawler.Crawler
	crawlMaxPages int
	sources       []ports.DocumentSource
	prompts       *prompts.Set
	index         ports.IndexStore
	metrics       *observability.Metrics
	searchK       int
	logger        *slog.Logger

	mu    sync.RWMutex
	store *vectorstore.Store
}

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chain) {
		c.logger = l
	}
}

// WithSplitter sets the chunker used for every document source.
func WithSplitter(s *splitter.Splitter) Option {
	return func(c *Chain) {
		c.splitter = s
	}
}

// WithCrawler enables web pages as a document source. Without it web crawling is disabled.
func WithCrawler(cr *crawler.Crawler, maxPages int) Option {
	return func(c *Chain) {
		c.crawler = cr
		if maxPages > 0 {
			c.crawlMaxPages = maxPages
		}
	}
}

// WithSources adds document sources such as the markdown knowledge base.
func WithSources(srcs ...ports.DocumentSource) Option {
	return func(c *Chain) {
		c.sources = append(c.sources, srcs...)
	}
}

// WithIndexStore persists embedded indexes so unchanged documents are not re-embedded.
func WithIndexStore(idx ports.IndexStore) Option {
	return func(c *Chain) {
		c.index = idx
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Chain) {
		c.metrics = m
	}
}

// WithSearchK sets how many chunks are retrieved per question.
func WithSearchK(k int) Option {
	return func(c *Chain) {
		if k > 0 {
			c.searchK = k
		}
	}
}

// WithPrompts replaces the built-in prompt set.
func WithPrompts(p *prompts.Set) Option {
	return func(c *Chain) {
		c.prompts = p
	}
}

// New creates a chain. Models.Chat and Models.Embedder are required.
func New(models Models, opts ...Option) (*Chain, error) {
	if models.Chat == nil || models.Embedder == nil {
		return nil, fmt.Errorf("%w: chat model and embedder are required", domain.ErrConfiguration)
	}
	c := &Chain{
		models:        models,
		crawlMaxPages: DefaultCrawlMaxPages,
		searchK:       DefaultSearchK,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.splitter == nil {
		sp, err := splitter.New(1000, 200)
		if err != nil {
			return nil, err
		}
		c.splitter = sp
	}
	if c.prompts == nil {
		c.prompts = prompts.Default()
	}
	c.loader = loader.New(c.splitter, loader.WithLogger(c.logger))
	return c, nil
}

// LoadDocuments indexes the files under dataPath, the extra sources and, when
// includeWeb is set and a crawler is configured, the web site. It returns the
// number of indexed chunks; 0 means nothing was found and the previous index
// is kept.
func (c *Chain) LoadDocuments(ctx context.Context, dataPath string, includeWeb bool) (int, error) {
	start := time.Now()
	memBefore := observability.MemoryMB()

	var all []domain.Document

	if _, err := os.Stat(dataPath); err == nil {
		c.logger.Info("loading documents", "path", dataPath)
		chunks, err := c.loader.LoadDirectory(ctx, dataPath)
		if err != nil {
			return 0, c.loadError(err)
		}
		c.logger.Info("files loaded", "chunks", len(chunks))
		all = append(all, chunks...)
	}

	for _, src := range c.sources {
		docs, err := src.Documents(ctx)
		if err != nil {
			c.logger.Warn("document source failed", "source", src.Name(), "error", err)
			continue
		}
		chunks := c.splitter.SplitDocuments(docs)
		c.logger.Info("source loaded", "source", src.Name(), "documents", len(docs), "chunks", len(chunks))
		all = append(all, chunks...)
	}

	switch {
	case includeWeb && c.crawler != nil:
		c.logger.Info("crawling web site", "base_url", c.crawler.BaseURL(), "max_pages", c.crawlMaxPages)
		c.crawler.Reset()
		pages := domain.SafeExecute(c.logger, "crawl_site", []crawler.Page(nil), func() ([]crawler.Page, error) {
			return c.crawler.CrawlSite(ctx, c.crawlMaxPages)
		})
		c.metrics.AddCrawledPages(len(pages))
		var docs []domain.Document
		for _, p := range pages {
			if strings.TrimSpace(p.Content) != "" {
				docs = append(docs, p.Document())
			}
		}
		all = append(all, c.splitter.SplitDocuments(docs)...)
		c.logger.Info("web pages loaded", "pages", len(pages))
	case includeWeb:
		c.logger.Info("web crawling is disabled")
	}

	if err := ctx.Err(); err != nil {
		return 0, c.loadError(err)
	}

	all = c.usable(all)
	if len(all) == 0 {
		c.logger.Warn("no documents found")
		return 0, nil
	}

	c.logger.Info("building vector index", "documents", len(all))
	store, err := c.buildStore(ctx, all)
	if err != nil {
		return 0, c.loadError(err)
	}

	c.mu.Lock()
	c.store = store
	c.mu.Unlock()

	elapsed := time.Since(start)
	c.metrics.ObserveIndex(len(all), elapsed)
	c.logger.Info("load_documents finished",
		"documents", len(all),
		"duration", elapsed.Round(time.Millisecond),
		"memory_delta_mb", fmt.Sprintf("%.2f", observability.MemoryMB()-memBefore),
	)
	return len(all), nil
}

func (c *Chain) loadError(err error) error {
	c.logger.Error("load_documents failed", "error", err)
	return domain.Wrap(domain.ErrDocumentLoad, "load_documents", err)
}

// usable drops chunks too short to be useful and chunks that cannot be cited.
func (c *Chain) usable(docs []domain.Document) []domain.Document {
	out := docs[:0]
	for _, d := range docs {
		if !validation.ValidDocumentContent(d.Content) {
			continue
		}
		if err := validation.ValidateMetadata(d.Metadata); err != nil {
			c.logger.Debug("dropping chunk without source", "error", err)
			continue
		}
		out = append(out, d)
	}
	return out
}

func (c *Chain) buildStore(ctx context.Context, docs []domain.Document) (*vectorstore.Store, error) {
	if c.index == nil {
		return vectorstore.FromDocuments(ctx, docs, c.models.Embedder)
	}

	fp := vectorstore.Fingerprint(c.models.EmbeddingModel, docs)
	store, ok, err := vectorstore.Restore(ctx, c.index, fp, c.models.Embedder)
	if err != nil {
		c.logger.Warn("failed to restore index snapshot", "error", err)
	}
	if ok {
		c.logger.Info("vector index restored from snapshot", "fingerprint", fp[:12])
		return store, nil
	}

	store, err = vectorstore.FromDocuments(ctx, docs, c.models.Embedder)
	if err != nil {
		return nil, err
	}
	if err := store.Snapshot(ctx, c.index, fp); err != nil {
		c.logger.Warn("failed to save index snapshot", "error", err)
	}
	return store, nil
}

// Ready reports whether an index is loaded.
func (c *Chain) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store != nil
}

// DocumentCount returns the number of indexed chunks.
func (c *Chain) DocumentCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.store == nil {
		return 0
	}
	return c.store.Len()
}

// SearchRelevant returns the k chunks closest to query, or the configured
// default when k <= 0. It returns nothing before the first successful load.
func (c *Chain) SearchRelevant(ctx context.Context, query string, k int) ([]domain.Document, error) {
	c.mu.RLock()
	store := c.store
	c.mu.RUnlock()
	if store == nil {
		return nil, nil
	}
	if k <= 0 {
		k = c.searchK
	}
	return store.SimilaritySearch(ctx, query, k)
}

// GenerateAnswer answers query at the given complexity level.
func (c *Chain) GenerateAnswer(ctx context.Context, query string, level domain.ComplexityLevel) (*domain.Answer, error) {
	start := time.Now()
	answer, err := c.generate(ctx, query, level)
	elapsed := time.Since(start)

	c.metrics.ObserveAnswer(string(level), elapsed, errorKind(err))
	if err != nil {
		c.logger.Error("generate_answer failed", "error", err, "duration", elapsed.Round(time.Millisecond))
		return nil, err
	}
	c.logger.Info("generate_answer finished", "sources", len(answer.Sources), "duration", elapsed.Round(time.Millisecond))
	return answer, nil
}

func (c *Chain) generate(ctx context.Context, query string, level domain.ComplexityLevel) (*domain.Answer, error) {
	if err := validation.ValidateQuery(query); err != nil {
		return nil, err
	}
	if err := validation.ValidateComplexity(level); err != nil {
		return nil, err
	}
	query = validation.SanitizeQuery(query)

	c.logger.Info("generating answer", "query", truncate(query, 50), "level", level)
	docs, err := c.SearchRelevant(ctx, query, 0)
	if err != nil {
		return nil, domain.Wrap(domain.ErrLLM, "generate_answer", err)
	}
	if len(docs) == 0 {
		c.logger.Warn("no relevant documents found")
		return &domain.Answer{
			Answer:          domain.NoInformationAnswer,
			Sources:         []domain.Metadata{},
			ComplexityLevel: level,
		}, nil
	}

	sources := make([]domain.Metadata, len(docs))
	for i, d := range docs {
		sources[i] = d.Metadata.Clone()
	}
	c.logger.Info("relevant documents found", "count", len(docs))

	prompt, err := c.prompts.Render(level, BuildContext(docs, level), query)
	if err != nil {
		return nil, err
	}
	text, err := c.models.Chat.Complete(ctx, []ports.ChatMessage{{Role: ports.RoleUser, Content: prompt}})
	if err != nil {
		return nil, domain.Wrap(domain.ErrLLM, "generate_answer", err)
	}

	answer := &domain.Answer{
		Answer:          validation.StripControls(text),
		Sources:         sources,
		ComplexityLevel: level,
	}
	if err := validation.ValidateAnswer(answer); err != nil {
		return nil, err
	}
	if err := validation.ValidateSources(sources); err != nil {
		return nil, err
	}
	return answer, nil
}

// ExampleQuestions returns sample questions for the UI.
func (c *Chain) ExampleQuestions() []string {
	return c.prompts.ExampleQuestions()
}

// BuildContext renders retrieved chunks for the prompt. The easy level gets
// the bare texts; the other levels number each chunk and name its source.
func BuildContext(docs []domain.Document, level domain.ComplexityLevel) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		if level == domain.LevelEasy {
			parts[i] = d.Content
			continue
		}
		parts[i] = fmt.Sprintf("[%d] (%s):\n%s", i+1, domain.SourceName(d.Metadata, i+1), d.Content)
	}
	return strings.Join(parts, "\n\n")
}

// FormatSources returns the suffix appended to a displayed answer. Only the
// medium level lists its sources; hard answers cite inline.
func FormatSources(sources []domain.Metadata, level domain.ComplexityLevel) string {
	if level != domain.LevelMedium || len(sources) == 0 {
		return ""
	}
	refs := make([]string, len(sources))
	for i := range sources {
		refs[i] = fmt.Sprintf("[%d]", i+1)
	}
	return "\n\nИсточники: " + strings.Join(refs, ", ")
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, domain.ErrVectorStore):
		return "vector_store"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "llm"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
