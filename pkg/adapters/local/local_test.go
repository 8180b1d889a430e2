package local

import (
	"context"
	"testing"

	"github.com/aretw0/eora/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"что", "умеет", "eora", "2024"}, Tokens("Что умеет EORA, в 2024?"))
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(64)
	vecs, err := e.Embed(context.Background(), []string{"чат-бот для HR", "чат-бот для HR", ""})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Len(t, vecs[0], 64)
	assert.Equal(t, vecs[0], vecs[1])

	var n float32
	for _, x := range vecs[0] {
		n += x * x
	}
	assert.InDelta(t, 1.0, n, 1e-5)

	for _, x := range vecs[2] {
		assert.Zero(t, x)
	}
}

func TestHashEmbedder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEmbedder(0).Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractiveModel(t *testing.T) {
	prompt := "Используя только предоставленную информацию, ответьте на вопрос.\n\n" +
		"Контекст:\nEORA основана в Казани. Компания сделала бота для Магнита. Погода сегодня хорошая.\n\n" +
		"Вопрос: Какого бота сделали для Магнита?\n\nОтвет:"

	m := NewExtractiveModel(1)
	got, err := m.Complete(context.Background(), []ports.ChatMessage{{Role: ports.RoleUser, Content: prompt}})
	require.NoError(t, err)
	assert.Equal(t, "Компания сделала бота для Магнита.", got)
}

func TestExtractiveModel_KeepsContextOrder(t *testing.T) {
	prompt := "Контекст:\nПервое про ботов. Второе про погоду. Третье про ботов и HR.\n\nВопрос: боты HR ботов"
	got, err := NewExtractiveModel(2).Complete(context.Background(), []ports.ChatMessage{{Role: ports.RoleUser, Content: prompt}})
	require.NoError(t, err)
	assert.Equal(t, "Первое про ботов. Третье про ботов и HR.", got)
}

func TestExtractiveModel_EmptyContext(t *testing.T) {
	got, err := NewExtractiveModel(0).Complete(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
