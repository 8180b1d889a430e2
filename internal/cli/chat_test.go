package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/eora/internal/logging"
	"github.com/aretw0/eora/internal/testutils"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRunChat(t *testing.T) {
	a := new(testutils.MockAssistant)
	a.On("Ask", mock.Anything, "c1", "Что сделали для Магнита?", domain.LevelMedium).Return(testutils.SampleReply("c1"), nil)
	a.On("Ask", mock.Anything, "c1", "ок", domain.LevelMedium).Return(nil, domain.Invalid("question too short"))
	a.On("Examples").Return([]string{"Что вы делали для Dodo Pizza?"})
	a.On("Stats", mock.Anything, "c1").Return(domain.Stats{Messages: 2, Documents: 5, MemoryMB: 12.5}, nil)
	a.On("Clear", mock.Anything, "c1").Return(nil)

	input := strings.Join([]string{
		"/level medium",
		"Что сделали для Магнита?",
		"ок",
		"/examples",
		"/stats",
		"/clear",
		"/level expert",
		"/unknown",
		"/exit",
		"never asked",
	}, "\n")
	var out bytes.Buffer

	err := RunChat(context.Background(), a, ChatOptions{
		In:        strings.NewReader(input),
		Out:       &out,
		SessionID: "c1",
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Уровень: Со списком источников")
	assert.Contains(t, text, "Бот для Магнита")
	assert.Contains(t, text, "1. magnit.txt")
	assert.Contains(t, text, "Вопрос отклонен")
	assert.Contains(t, text, "1. Что вы делали для Dodo Pizza?")
	assert.Contains(t, text, "Сообщений: 2, документов: 5, память: 12.5 MB")
	assert.Contains(t, text, "История очищена")
	assert.Contains(t, text, "invalid complexity level")
	assert.Contains(t, text, "Неизвестная команда /unknown")
	assert.Contains(t, text, "До свидания!")
	a.AssertExpectations(t)
}

func TestRunChat_EOFAndCancel(t *testing.T) {
	a := new(testutils.MockAssistant)
	var out bytes.Buffer
	require.NoError(t, RunChat(context.Background(), a, ChatOptions{In: strings.NewReader(""), Out: &out}))
	assert.Contains(t, out.String(), "Сессия cli_")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunChat(ctx, a, ChatOptions{In: strings.NewReader("вопрос\n"), Out: &out})
	assert.ErrorIs(t, err, context.Canceled)
	a.AssertNotCalled(t, "Ask")
}

type fakeWatcher chan string

func (f fakeWatcher) Watch(ctx context.Context) (<-chan string, error) { return f, nil }

func TestRunWatch(t *testing.T) {
	events := make(fakeWatcher, 2)
	events <- "cases/magnit"
	close(events)

	var logs bytes.Buffer
	err := RunWatch(context.Background(), events, logging.NewWithWriter(&logs, 0))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "note=cases/magnit")
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "local")
	cfg, logger, err := LoadConfig(Options{LogLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NotNil(t, logger)

	_, _, err = LoadConfig(Options{LogLevel: "loud"})
	assert.Error(t, err)
}
