package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/eora/internal/logging"
	"github.com/aretw0/eora/internal/testutils"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestServer(a *testutils.MockAssistant) *Server {
	return NewServer(a, logging.NewNop())
}

func TestHandleAsk(t *testing.T) {
	a := new(testutils.MockAssistant)
	a.On("Ask", mock.Anything, "s1", "Что сделали для Магнита?", domain.LevelMedium).Return(testutils.SampleReply("s1"), nil)
	s := newTestServer(a)

	resp, err := s.handleAsk(context.Background(), mcp.CallToolRequest{}, AskArgs{
		Question:  "Что сделали для Магнита?",
		Level:     "medium",
		SessionID: "s1",
	})
	require.NoError(t, err)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Contains(t, resp.Answer, "Источники: [1]")
	require.Len(t, resp.Sources, 1)
	assert.False(t, resp.IsError)
	a.AssertExpectations(t)
}

func TestHandleAsk_Errors(t *testing.T) {
	a := new(testutils.MockAssistant)
	a.On("Ask", mock.Anything, "", "ок", domain.LevelEasy).Return(nil, domain.Invalid("question too short"))
	s := newTestServer(a)

	_, err := s.handleAsk(context.Background(), mcp.CallToolRequest{}, AskArgs{Question: "Вопрос", Level: "expert"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.handleAsk(context.Background(), mcp.CallToolRequest{}, AskArgs{Question: "ок"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	a.AssertExpectations(t)
}

func TestHandleHistoryAndClear(t *testing.T) {
	a := new(testutils.MockAssistant)
	conv := domain.NewConversation("s1")
	conv.Append(domain.NewMessage(domain.RoleUser, "Привет, EORA", nil))
	a.On("History", mock.Anything, "s1").Return(conv, nil)
	a.On("Clear", mock.Anything, "s1").Return(nil)
	a.On("Clear", mock.Anything, "broken").Return(errors.New("store down"))
	s := newTestServer(a)
	ctx := context.Background()

	res, err := s.handleHistory(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	text := res.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, "Привет, EORA")

	res, err = s.handleHistory(ctx, mcp.CallToolRequest{}, SessionArgs{})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleClear(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleClear(ctx, mcp.CallToolRequest{}, SessionArgs{SessionID: "broken"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	a.AssertExpectations(t)
}

func TestEncodingFailures(t *testing.T) {
	a := new(testutils.MockAssistant)
	conv := domain.NewConversation("s1")
	conv.Append(domain.NewMessage(domain.RoleAssistant, "Ответ", []domain.Metadata{
		{domain.MetaSourceFile: "magnit.txt", "broken": make(chan int)},
	}))
	a.On("History", mock.Anything, "s1").Return(conv, nil)
	s := newTestServer(a)

	res, err := s.handleHistory(context.Background(), mcp.CallToolRequest{}, SessionArgs{SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	_, err = jsonResource(levelsURI, func() {})
	assert.ErrorContains(t, err, levelsURI)
	a.AssertExpectations(t)
}

func TestToolsList(t *testing.T) {
	s := newTestServer(new(testutils.MockAssistant))

	msg := s.MCPServer().HandleMessage(context.Background(), json.RawMessage(
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	for _, name := range []string{"ask", "history", "clear_history", "examples"} {
		assert.Contains(t, string(raw), `"name":"`+name+`"`)
	}
}

func TestExamplesResource(t *testing.T) {
	a := new(testutils.MockAssistant)
	a.On("Examples").Return([]string{"Что вы делали для Dodo Pizza?"})
	s := newTestServer(a)

	msg := s.MCPServer().HandleMessage(context.Background(), json.RawMessage(
		`{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"eora://examples"}}`))
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Dodo Pizza")
	a.AssertExpectations(t)
}
