package testutils

import (
	"context"

	"github.com/aretw0/eora/pkg/domain"
	"github.com/stretchr/testify/mock"
)

// MockAssistant is a testify mock of ports.Assistant for front end tests.
type MockAssistant struct {
	mock.Mock
}

func (m *MockAssistant) Ask(ctx context.Context, sessionID, question string, level domain.ComplexityLevel) (*domain.Reply, error) {
	args := m.Called(ctx, sessionID, question, level)
	if r, ok := args.Get(0).(*domain.Reply); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAssistant) History(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	args := m.Called(ctx, sessionID)
	if c, ok := args.Get(0).(*domain.Conversation); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAssistant) Clear(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockAssistant) Sessions(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *MockAssistant) Examples() []string {
	return m.Called().Get(0).([]string)
}

func (m *MockAssistant) Stats(ctx context.Context, sessionID string) (domain.Stats, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(domain.Stats), args.Error(1)
}

// SampleReply builds a successful medium level reply about Magnit.
func SampleReply(sessionID string) *domain.Reply {
	sources := []domain.Metadata{{domain.MetaSourceFile: "magnit.txt"}}
	msg := domain.NewMessage(domain.RoleAssistant, "Бот для Магнита\n\nИсточники: [1]", sources)
	return &domain.Reply{
		SessionID: sessionID,
		Answer:    domain.Answer{Answer: "Бот для Магнита", Sources: sources, ComplexityLevel: domain.LevelMedium},
		Formatted: msg.Content,
		Message:   msg,
	}
}
