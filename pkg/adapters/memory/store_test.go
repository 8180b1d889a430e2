package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/eora/pkg/adapters/memory"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunConversationStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	conv := domain.NewConversation("s")
	conv.Append(domain.NewMessage(domain.RoleUser, "первый", nil))
	require.NoError(t, store.Save(ctx, "s", conv))

	conv.Append(domain.NewMessage(domain.RoleUser, "второй", nil))

	loaded, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, loaded.Messages, 1)

	loaded.Messages[0].Content = "changed"
	again, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "первый", again.Messages[0].Content)
}
