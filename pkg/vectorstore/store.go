// Package vectorstore keeps embedded documents in memory and answers
// nearest-neighbour queries by cosine similarity.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/ports"
)

// DefaultBatchSize is the number of texts sent to the embedder per call.
const DefaultBatchSize = 64

// Result is a document with its similarity to the query.
type Result struct {
	Document domain.Document
	Score    float32
}

// Store is a flat in-memory index. It is safe for concurrent use.
type Store struct {
	embedder  ports.Embedder
	batchSize int

	mu      sync.RWMutex
	docs    []domain.Document
	vectors [][]float32
	norms   []float32
}

// Option configures a Store.
type Option func(*Store)

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// New creates an empty store that embeds with embedder.
func New(embedder ports.Embedder, opts ...Option) *Store {
	s := &Store{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromDocuments embeds docs and returns a store holding them.
func FromDocuments(ctx context.Context, docs []domain.Document, embedder ports.Embedder, opts ...Option) (*Store, error) {
	s := New(embedder, opts...)
	if err := s.Add(ctx, docs); err != nil {
		return nil, err
	}
	return s, nil
}

// Add embeds and appends docs.
func (s *Store) Add(ctx context.Context, docs []domain.Document) error {
	vectors := make([][]float32, 0, len(docs))
	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))
		texts := make([]string, 0, end-start)
		for _, d := range docs[start:end] {
			texts = append(texts, d.Content)
		}
		batch, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return domain.Wrap(domain.ErrVectorStore, "embed_documents", err)
		}
		if len(batch) != len(texts) {
			return domain.Wrap(domain.ErrVectorStore, "embed_documents",
				fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), len(texts)))
		}
		vectors = append(vectors, batch...)
	}
	return s.insert(docs, vectors)
}

func (s *Store) insert(docs []domain.Document, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	if len(s.vectors) > 0 {
		dim = len(s.vectors[0])
	}
	// The batch is all or nothing.
	for i, v := range vectors {
		if len(v) != dim {
			return domain.Wrap(domain.ErrVectorStore, "insert",
				fmt.Errorf("dimension mismatch at %d: got %d, index has %d", i, len(v), dim))
		}
	}
	for i, v := range vectors {
		s.docs = append(s.docs, docs[i])
		s.vectors = append(s.vectors, v)
		s.norms = append(s.norms, norm(v))
	}
	return nil
}

// SimilaritySearch returns the k documents closest to query, best first.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]domain.Document, error) {
	results, err := s.SimilaritySearchWithScore(ctx, query, k)
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, len(results))
	for i, r := range results {
		docs[i] = r.Document
	}
	return docs, nil
}

// SimilaritySearchWithScore is SimilaritySearch with cosine scores.
// Ties keep insertion order.
func (s *Store) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 || s.Len() == 0 {
		return nil, nil
	}
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, domain.Wrap(domain.ErrVectorStore, "similarity_search", err)
	}
	if len(vecs) != 1 {
		return nil, domain.Wrap(domain.ErrVectorStore, "similarity_search",
			fmt.Errorf("embedder returned %d vectors for the query", len(vecs)))
	}
	q := vecs[0]
	qn := norm(q)

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Result, len(s.docs))
	for i, v := range s.vectors {
		results[i] = Result{Document: s.docs[i], Score: cosine(q, qn, v, s.norms[i])}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of indexed documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Documents returns a copy of the indexed documents in insertion order.
func (s *Store) Documents() []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Document(nil), s.docs...)
}

func norm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

func cosine(a []float32, an float32, b []float32, bn float32) float32 {
	if an == 0 || bn == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (float64(an) * float64(bn)))
}
