// Package llm selects the chat model and embedder for the configured provider.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/eora/internal/config"
	"github.com/aretw0/eora/internal/logging"
	"github.com/aretw0/eora/pkg/adapters/local"
	"github.com/aretw0/eora/pkg/adapters/openai"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/ports"
)

// Provider bundles the models of one backend.
type Provider struct {
	Name     string
	Chat     ports.ChatModel
	Embedder ports.Embedder
	// EmbeddingModel names the embedder in index fingerprints.
	EmbeddingModel string
}

// AvailableProviders lists the hosted providers that can be configured.
func AvailableProviders() []string {
	return []string{config.ProviderOpenAI, config.ProviderGigaChat}
}

// NewProvider builds the provider named by cfg.ModelProvider.
//
// Embeddings come from OpenAI whenever an OpenAI key is configured, since the
// other providers have no embedding endpoint here; otherwise the offline hash
// embedder is used.
func NewProvider(cfg *config.Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	var oa *openai.Client
	if cfg.OpenAIAPIKey != "" {
		c, err := openai.New(cfg.OpenAIAPIKey,
			openai.WithBaseURL(cfg.OpenAIBaseURL),
			openai.WithModel(cfg.ModelName),
			openai.WithEmbeddingModel(cfg.EmbeddingModel),
			openai.WithTemperature(cfg.Temperature),
			openai.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		oa = c
	}

	name := strings.ToLower(cfg.ModelProvider)
	p := &Provider{Name: name}
	switch name {
	case config.ProviderOpenAI:
		if oa == nil {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is required for provider %q", domain.ErrConfiguration, cfg.ModelProvider)
		}
		p.Chat = oa
	case config.ProviderGigaChat:
		if cfg.GigaChatAPIKey == "" {
			return nil, fmt.Errorf("%w: GIGACHAT_API_KEY is required for provider %q", domain.ErrConfiguration, cfg.ModelProvider)
		}
		p.Chat = GigaChat{}
	case config.ProviderLocal:
		p.Chat = local.NewExtractiveModel(0)
	default:
		return nil, fmt.Errorf("%w: unknown model provider %q", domain.ErrConfiguration, cfg.ModelProvider)
	}

	if oa != nil {
		p.Embedder = oa
		p.EmbeddingModel = oa.EmbeddingModel()
	} else {
		logger.Warn("no OpenAI key configured, using offline hash embeddings")
		p.Embedder = local.NewHashEmbedder(local.DefaultDimensions)
		p.EmbeddingModel = fmt.Sprintf("hash-%d", local.DefaultDimensions)
	}
	return p, nil
}

// GigaChat is a placeholder for the Sber GigaChat API. It is selectable but
// every call fails with a domain.ErrLLM that also matches domain.ErrNotImplemented.
type GigaChat struct{}

// Complete implements ports.ChatModel.
func (GigaChat) Complete(context.Context, []ports.ChatMessage) (string, error) {
	return "", &domain.Error{Kind: domain.ErrLLM, Op: "gigachat", Err: fmt.Errorf("GigaChat provider: %w", domain.ErrNotImplemented)}
}
