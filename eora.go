package eora

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/aretw0/eora/internal/config"
	"github.com/aretw0/eora/internal/logging"
	"github.com/aretw0/eora/pkg/adapters/file"
	loamAdapter "github.com/aretw0/eora/pkg/adapters/loam"
	"github.com/aretw0/eora/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/eora/pkg/adapters/redis"
	"github.com/aretw0/eora/pkg/adapters/sqlite"
	"github.com/aretw0/eora/pkg/crawler"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/llm"
	"github.com/aretw0/eora/pkg/observability"
	"github.com/aretw0/eora/pkg/persistence/middleware"
	"github.com/aretw0/eora/pkg/ports"
	"github.com/aretw0/eora/pkg/rag"
	"github.com/aretw0/eora/pkg/session"
	"github.com/aretw0/eora/pkg/splitter"
	"github.com/aretw0/eora/pkg/validation"
	backend "github.com/redis/go-redis/v9"
)

const (
	llmErrorPrefix        = "Ошибка LLM: "
	unexpectedErrorPrefix = "Неожиданная ошибка при генерации ответа: "
)

// Assistant answers questions about EORA and keeps per-session chat histories.
// It is safe for concurrent use.
type Assistant struct {
	cfg      *config.Config
	chain    *rag.Chain
	sessions *session.Manager
	metrics  *observability.Metrics
	logger   *slog.Logger

	models     *rag.Models
	store      ports.ConversationStore
	httpClient *http.Client
	knowledge  *loamAdapter.KnowledgeBase
	closers    []func() error

	indexMu sync.Mutex
	watch   watchHub
}

var _ ports.Assistant = (*Assistant)(nil)

// Option configures the Assistant.
type Option func(*Assistant)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// WithModels injects the chat model and embedder, bypassing the provider factory.
func WithModels(models rag.Models) Option {
	return func(a *Assistant) {
		a.models = &models
	}
}

// WithStore injects a conversation store, bypassing the configured backend.
// Encryption and PII redaction from the configuration still apply.
func WithStore(store ports.ConversationStore) Option {
	return func(a *Assistant) {
		a.store = store
	}
}

// WithMetrics sets the metrics sink. By default a fresh registry is created.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Assistant) {
		a.metrics = m
	}
}

// WithHTTPClient sets the client used by the web crawler.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Assistant) {
		a.httpClient = client
	}
}

// New wires the assistant from the configuration: model provider, document
// sources, vector index, conversation store and session manager.
func New(cfg *config.Config, opts ...Option) (*Assistant, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration is required", domain.ErrConfiguration)
	}
	a := &Assistant{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	if a.metrics == nil {
		a.metrics = observability.NewMetrics()
	}

	if err := a.init(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Assistant) init() error {
	cfg := a.cfg

	models, err := a.resolveModels()
	if err != nil {
		return err
	}

	sp, err := splitter.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return err
	}

	chainOpts := []rag.Option{
		rag.WithLogger(a.logger),
		rag.WithSplitter(sp),
		rag.WithMetrics(a.metrics),
		rag.WithSearchK(cfg.SearchK),
	}

	if cfg.Crawl.Enabled {
		crawlOpts := []crawler.Option{
			crawler.WithDelay(cfg.CrawlDelay()),
			crawler.WithLogger(a.logger),
		}
		if a.httpClient != nil {
			crawlOpts = append(crawlOpts, crawler.WithHTTPClient(a.httpClient))
		}
		cr, err := crawler.New(cfg.Crawl.BaseURL, crawlOpts...)
		if err != nil {
			return err
		}
		chainOpts = append(chainOpts, rag.WithCrawler(cr, cfg.Crawl.MaxPages))
	}

	if dirExists(cfg.KnowledgePath) {
		kb, err := loamAdapter.Open(cfg.KnowledgePath)
		if err != nil {
			a.logger.Warn("knowledge base unavailable", "path", cfg.KnowledgePath, "err", err)
		} else {
			a.knowledge = kb
			chainOpts = append(chainOpts, rag.WithSources(kb))
		}
	}

	var rdb *backend.Client
	if cfg.Redis.Addr != "" && (cfg.Session.Backend == config.BackendRedis || cfg.Index.Persist) {
		rdb = backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, rdb.Close)
	}
	if cfg.Index.Persist && rdb != nil {
		chainOpts = append(chainOpts, rag.WithIndexStore(redisAdapter.NewIndexStore(rdb, cfg.Redis.Prefix, 0)))
	}

	a.chain, err = rag.New(models, chainOpts...)
	if err != nil {
		return err
	}

	store, err := a.resolveStore(rdb)
	if err != nil {
		return err
	}

	sessOpts := []session.Option{
		session.WithLogger(a.logger),
		session.WithHistoryLimit(cfg.Session.MaxMessages, cfg.Session.KeepMessages),
	}
	if cfg.Session.Backend == config.BackendRedis && rdb != nil {
		sessOpts = append(sessOpts, session.WithLocker(redisAdapter.NewLocker(rdb, cfg.Redis.Prefix)))
	}
	a.sessions = session.NewManager(store, sessOpts...)
	return nil
}

func (a *Assistant) resolveModels() (rag.Models, error) {
	if a.models != nil {
		return *a.models, nil
	}
	p, err := llm.NewProvider(a.cfg, a.logger)
	if err != nil {
		return rag.Models{}, err
	}
	a.logger.Info("model provider ready", "provider", p.Name, "embeddings", p.EmbeddingModel)
	return rag.Models{Chat: p.Chat, Embedder: p.Embedder, EmbeddingModel: p.EmbeddingModel}, nil
}

func (a *Assistant) resolveStore(rdb *backend.Client) (ports.ConversationStore, error) {
	cfg := a.cfg
	store := a.store
	if store == nil {
		switch cfg.Session.Backend {
		case config.BackendMemory, "":
			store = memory.NewStore()
		case config.BackendFile:
			store = file.New(cfg.Session.Dir)
		case config.BackendSQLite:
			s, err := sqlite.Open(context.Background(), cfg.SQLite.Path)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
			}
			a.closers = append(a.closers, s.Close)
			store = s
		case config.BackendRedis:
			if rdb == nil {
				return nil, fmt.Errorf("%w: REDIS_ADDR is required for the redis session backend", domain.ErrConfiguration)
			}
			store = redisAdapter.NewFromClient(rdb,
				redisAdapter.WithPrefix(cfg.Redis.Prefix),
				redisAdapter.WithTTL(cfg.Session.TTL),
			)
		default:
			return nil, fmt.Errorf("%w: unsupported session backend %q", domain.ErrConfiguration, cfg.Session.Backend)
		}
	}

	var mws []middleware.Middleware
	if cfg.Session.RedactPII {
		mws = append(mws, middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns))
	}
	key, err := cfg.EncryptionKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	if key != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return middleware.Chain(store, mws...), nil
}

// Index (re)builds the vector index from the data directory, the knowledge
// base and, when enabled, the web site. It returns the number of indexed chunks.
func (a *Assistant) Index(ctx context.Context) (int, error) {
	a.indexMu.Lock()
	defer a.indexMu.Unlock()
	return a.chain.LoadDocuments(ctx, a.cfg.DataPath, a.cfg.Crawl.Enabled)
}

// Ready reports whether an index is loaded.
func (a *Assistant) Ready() bool {
	return a.chain.Ready()
}

// Ask answers question inside the session and records the exchange.
//
// Invalid input is returned as an error and nothing is recorded. A failed
// generation is recorded as an error message in the history and returned in
// the reply with Message.IsError set, so front ends can show it like an answer.
// An empty sessionID starts a new session.
func (a *Assistant) Ask(ctx context.Context, sessionID, question string, level domain.ComplexityLevel) (*domain.Reply, error) {
	if level == "" {
		level = domain.LevelEasy
	}
	if err := validation.ValidateComplexity(level); err != nil {
		return nil, err
	}
	clean, err := validation.SanitizeInput(question)
	if err != nil {
		return nil, &domain.Error{Kind: domain.ErrInvalidInput, Op: "ask", Err: err}
	}
	if err := validation.ValidateQuery(clean); err != nil {
		return nil, err
	}
	if sessionID == "" {
		sessionID = domain.NewID("sess")
	}

	userMsg := domain.NewMessage(domain.RoleUser, clean, nil)
	reply := &domain.Reply{SessionID: sessionID}

	answer, genErr := a.chain.GenerateAnswer(ctx, clean, level)
	var assistantMsg domain.Message
	if genErr != nil {
		text := describeFailure(genErr)
		a.logger.Error("answer generation failed", "session_id", sessionID, "err", genErr)
		assistantMsg = domain.NewMessage(domain.RoleAssistant, text, []domain.Metadata{})
		assistantMsg.IsError = true
		reply.Answer = domain.Answer{Answer: text, Sources: []domain.Metadata{}, ComplexityLevel: level}
		reply.Formatted = text
	} else {
		formatted := answer.Answer + rag.FormatSources(answer.Sources, level)
		assistantMsg = domain.NewMessage(domain.RoleAssistant, formatted, answer.Sources)
		reply.Answer = *answer
		reply.Formatted = formatted
	}
	reply.Message = assistantMsg

	// Persisting uses a fresh context so a client disconnect does not lose the exchange.
	_, err = a.sessions.Update(context.WithoutCancel(ctx), sessionID, func(c *domain.Conversation) error {
		c.Level = level
		c.Append(userMsg, assistantMsg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// describeFailure renders a generation error for the chat history.
func describeFailure(err error) string {
	if !errors.Is(err, domain.ErrLLM) {
		return unexpectedErrorPrefix + err.Error()
	}
	var de *domain.Error
	if errors.As(err, &de) && de.Err != nil {
		return llmErrorPrefix + de.Err.Error()
	}
	return llmErrorPrefix + err.Error()
}

// History returns the conversation of a session; unknown sessions are empty.
func (a *Assistant) History(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	conv, err := a.sessions.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewConversation(sessionID), nil
	}
	return conv, err
}

// Clear empties the conversation of a session.
func (a *Assistant) Clear(ctx context.Context, sessionID string) error {
	_, err := a.sessions.Update(ctx, sessionID, func(c *domain.Conversation) error {
		c.Clear()
		return nil
	})
	return err
}

// Delete removes a session entirely.
func (a *Assistant) Delete(ctx context.Context, sessionID string) error {
	return a.sessions.Delete(ctx, sessionID)
}

// Sessions lists the stored session IDs.
func (a *Assistant) Sessions(ctx context.Context) ([]string, error) {
	return a.sessions.List(ctx)
}

// Examples returns suggested questions.
func (a *Assistant) Examples() []string {
	return a.chain.ExampleQuestions()
}

// Stats reports the message count of a session, the index size and process memory.
func (a *Assistant) Stats(ctx context.Context, sessionID string) (domain.Stats, error) {
	stats := domain.Stats{
		Documents: a.chain.DocumentCount(),
		MemoryMB:  observability.MemoryMB(),
	}
	if sessionID == "" {
		return stats, nil
	}
	conv, err := a.History(ctx, sessionID)
	if err != nil {
		return stats, err
	}
	stats.Messages = len(conv.Messages)
	return stats, nil
}

// Metrics returns the metrics sink.
func (a *Assistant) Metrics() *observability.Metrics {
	return a.metrics
}

// Close stops the knowledge base watcher and releases database and Redis connections.
func (a *Assistant) Close() error {
	a.watch.stop()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
