package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/eora/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

var _ ports.IndexStore = (*IndexStore)(nil)

// IndexStore keeps vector index snapshots under <prefix>index:<fingerprint>.
type IndexStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// NewIndexStore creates an index store. A zero ttl keeps snapshots forever.
func NewIndexStore(client *backend.Client, prefix string, ttl time.Duration) *IndexStore {
	return &IndexStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *IndexStore) key(fingerprint string) string {
	return s.prefix + "index:" + fingerprint
}

// SaveIndex implements ports.IndexStore.
func (s *IndexStore) SaveIndex(ctx context.Context, fingerprint string, snapshot []byte) error {
	if err := s.client.Set(ctx, s.key(fingerprint), snapshot, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save index snapshot: %w", err)
	}
	return nil
}

// LoadIndex implements ports.IndexStore.
func (s *IndexStore) LoadIndex(ctx context.Context, fingerprint string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(fingerprint)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load index snapshot: %w", err)
	}
	return data, true, nil
}
