package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/eora/pkg/adapters/file"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunConversationStoreContract(t, store)
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	conv := domain.NewConversation("session-1")
	conv.Append(domain.NewMessage(domain.RoleUser, "Какие кейсы есть у EORA?", nil))
	require.NoError(t, store.Save(ctx, "session-1", conv))

	path := filepath.Join(dir, "session-1.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Какие кейсы есть у EORA?")

	// Leftover temp files are not sessions.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-x-123.json"), []byte("{}"), 0o644))
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"session-1"}, ids)
}

func TestFileStore_InvalidIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "../escape", `a\b`, ".."} {
		err := store.Save(ctx, id, domain.NewConversation(id))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, id)
	}
}

func TestFileStore_MissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "absent"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_DefaultDir(t *testing.T) {
	assert.Equal(t, file.DefaultDir, file.New("").BasePath)
}
