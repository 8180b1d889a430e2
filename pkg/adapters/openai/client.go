// Package openai adapts the OpenAI chat and embedding APIs to the model ports.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/aretw0/eora/internal/logging"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/ports"
	"github.com/avast/retry-go/v4"
	goopenai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel          = "gpt-3.5-turbo"
	DefaultEmbeddingModel = "text-embedding-ada-002"
	DefaultTemperature    = 0.1
)

// Client talks to an OpenAI compatible endpoint.
type Client struct {
	api            *goopenai.Client
	model          string
	embeddingModel string
	temperature    float32
	attempts       uint
	backoff        time.Duration
	logger         *slog.Logger
}

var (
	_ ports.ChatModel = (*Client)(nil)
	_ ports.Embedder  = (*Client)(nil)
)

type options struct {
	baseURL        string
	httpClient     *http.Client
	model          string
	embeddingModel string
	temperature    float32
	attempts       uint
	backoff        time.Duration
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL points the client at a different API root, e.g. a proxy.
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithModel sets the chat model name.
func WithModel(name string) Option {
	return func(o *options) {
		if name != "" {
			o.model = name
		}
	}
}

// WithEmbeddingModel sets the embedding model name.
func WithEmbeddingModel(name string) Option {
	return func(o *options) {
		if name != "" {
			o.embeddingModel = name
		}
	}
}

// WithTemperature sets the sampling temperature. Zero is sent as the smallest
// positive float32 so the request never falls back to the API default.
func WithTemperature(t float32) Option {
	return func(o *options) {
		o.temperature = t
	}
}

// WithRetry sets the number of attempts per call and the initial backoff.
func WithRetry(attempts uint, backoff time.Duration) Option {
	return func(o *options) {
		o.attempts = attempts
		o.backoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a client authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is required", domain.ErrConfiguration)
	}
	o := options{
		model:          DefaultModel,
		embeddingModel: DefaultEmbeddingModel,
		temperature:    DefaultTemperature,
		attempts:       3,
		backoff:        time.Second,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}
	return &Client{
		api:            goopenai.NewClientWithConfig(cfg),
		model:          o.model,
		embeddingModel: o.embeddingModel,
		temperature:    o.temperature,
		attempts:       o.attempts,
		backoff:        o.backoff,
		logger:         o.logger,
	}, nil
}

// Model returns the chat model name.
func (c *Client) Model() string { return c.model }

// EmbeddingModel returns the embedding model name.
func (c *Client) EmbeddingModel() string { return c.embeddingModel }

// Complete implements ports.ChatModel.
func (c *Client) Complete(ctx context.Context, messages []ports.ChatMessage) (string, error) {
	temperature := c.temperature
	if temperature == 0 {
		// go-openai omits a zero temperature, which would select the API default.
		temperature = math.SmallestNonzeroFloat32
	}
	req := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages:    make([]goopenai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := retry.DoWithData(func() (goopenai.ChatCompletionResponse, error) {
		return c.api.CreateChatCompletion(ctx, req)
	}, c.retryOptions(ctx, "chat")...)
	if err != nil {
		return "", domain.Wrap(domain.ErrLLM, "chat_completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.Wrap(domain.ErrLLM, "chat_completion", errors.New("response has no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed implements ports.Embedder.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(c.embeddingModel),
	}
	resp, err := retry.DoWithData(func() (goopenai.EmbeddingResponse, error) {
		return c.api.CreateEmbeddings(ctx, req)
	}, c.retryOptions(ctx, "embeddings")...)
	if err != nil {
		return nil, domain.Wrap(domain.ErrLLM, "embeddings", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.Wrap(domain.ErrLLM, "embeddings",
			fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}

	out := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) {
			idx = i
		}
		out[idx] = d.Embedding
	}
	return out, nil
}

func (c *Client) retryOptions(ctx context.Context, call string) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.backoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("openai call failed, retrying", "call", call, "attempt", n+1, "error", err)
		}),
	}
}

// retryable reports whether err is worth another attempt: rate limits, server
// errors and transport failures are, other client errors are not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}
