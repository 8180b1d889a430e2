package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/eora/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunConversationStoreContract runs a suite of tests to verify that a ConversationStore
// implementation adheres to the defined interface contract.
func RunConversationStoreContract(t *testing.T, store ConversationStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		conv := domain.NewConversation(sessionID)
		conv.Level = domain.LevelMedium
		conv.Append(
			domain.NewMessage(domain.RoleUser, "Что вы делали для Dodo Pizza?", nil),
			domain.NewMessage(domain.RoleAssistant, "Мы сделали бота [1]", []domain.Metadata{
				{domain.MetaSourceFile: "dodo.pdf", domain.MetaPage: 2},
			}),
		)

		err := store.Save(ctx, sessionID, conv)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, conv.ID, loaded.ID)
		assert.Equal(t, domain.LevelMedium, loaded.Level)
		require.Len(t, loaded.Messages, 2)
		assert.Equal(t, domain.RoleUser, loaded.Messages[0].Role)
		assert.Equal(t, "Мы сделали бота [1]", loaded.Messages[1].Content)
		require.Len(t, loaded.Messages[1].Sources, 1)
		assert.Equal(t, "dodo.pdf", loaded.Messages[1].Sources[0].String(domain.MetaSourceFile))
		// JSON persistence may turn ints into float64, only presence is checked.
		assert.NotNil(t, loaded.Messages[1].Sources[0][domain.MetaPage])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		conv := domain.NewConversation(sessionID)
		require.NoError(t, store.Save(ctx, sessionID, conv))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, loaded.Messages)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewConversation(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewConversation(id1))
		_ = store.Save(ctx, id2, domain.NewConversation(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
