package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/ports"
)

type snapshot struct {
	Documents []domain.Document `json:"documents"`
	Vectors   [][]float32       `json:"vectors"`
}

// Fingerprint identifies a document set embedded with a given model.
// Chunk ids are random and do not take part.
func Fingerprint(model string, docs []domain.Document) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00", model, len(docs))
	for i, d := range docs {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00", d.Content,
			d.Metadata.String(domain.MetaFilePath), domain.SourceName(d.Metadata, i+1))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Snapshot writes the index to idx under fingerprint.
func (s *Store) Snapshot(ctx context.Context, idx ports.IndexStore, fingerprint string) error {
	s.mu.RLock()
	data, err := json.Marshal(snapshot{Documents: s.docs, Vectors: s.vectors})
	s.mu.RUnlock()
	if err != nil {
		return domain.Wrap(domain.ErrVectorStore, "snapshot", err)
	}
	if err := idx.SaveIndex(ctx, fingerprint, data); err != nil {
		return domain.Wrap(domain.ErrVectorStore, "snapshot", err)
	}
	return nil
}

// Restore loads a snapshot saved under fingerprint. It reports false when
// there is none.
func Restore(ctx context.Context, idx ports.IndexStore, fingerprint string, embedder ports.Embedder, opts ...Option) (*Store, bool, error) {
	data, ok, err := idx.LoadIndex(ctx, fingerprint)
	if err != nil {
		return nil, false, domain.Wrap(domain.ErrVectorStore, "restore", err)
	}
	if !ok {
		return nil, false, nil
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, domain.Wrap(domain.ErrVectorStore, "restore", err)
	}
	if len(snap.Documents) != len(snap.Vectors) {
		return nil, false, domain.Wrap(domain.ErrVectorStore, "restore",
			fmt.Errorf("corrupt snapshot: %d documents, %d vectors", len(snap.Documents), len(snap.Vectors)))
	}
	s := New(embedder, opts...)
	if err := s.insert(snap.Documents, snap.Vectors); err != nil {
		return nil, false, err
	}
	return s, true, nil
}
