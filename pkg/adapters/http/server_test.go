package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/eora/internal/testutils"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type watchFunc func(ctx context.Context) (<-chan string, error)

func (f watchFunc) Watch(ctx context.Context) (<-chan string, error) { return f(ctx) }

func TestAsk(t *testing.T) {
	a := new(testutils.MockAssistant)
	a.On("Ask", mock.Anything, "s1", "Что сделали для Магнита?", domain.LevelMedium).Return(testutils.SampleReply("s1"), nil)
	handler := NewHandler(a)

	body := `{"session_id":"s1","question":"Что сделали для Магнита?","level":"medium"}`
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var reply domain.Reply
	require.NoError(t, json.NewDecoder(w.Body).Decode(&reply))
	assert.Equal(t, "s1", reply.SessionID)
	assert.Equal(t, "Бот для Магнита", reply.Answer.Answer)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	a.AssertExpectations(t)
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed body", `{"question":`, nil, http.StatusBadRequest},
		{"bad level", `{"question":"Что такое EORA?","level":"expert"}`, nil, http.StatusBadRequest},
		{"invalid question", `{"question":"ок"}`, domain.Invalid("question too short"), http.StatusBadRequest},
		{"internal failure", `{"question":"Что такое EORA?"}`, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := new(testutils.MockAssistant)
			if tt.err != nil {
				a.On("Ask", mock.Anything, "", mock.Anything, domain.LevelEasy).Return(nil, tt.err)
			}
			handler := NewHandler(a)

			req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			var resp map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp["error"])
			a.AssertExpectations(t)
		})
	}
}

func TestSessions(t *testing.T) {
	a := new(testutils.MockAssistant)
	conv := domain.NewConversation("s1")
	conv.Append(domain.NewMessage(domain.RoleUser, "Привет, EORA", nil))
	a.On("Sessions", mock.Anything).Return(nil, nil)
	a.On("History", mock.Anything, "s1").Return(conv, nil)
	a.On("Clear", mock.Anything, "s1").Return(nil)
	handler := NewHandler(a)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions":[]}`, w.Body.String())

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/s1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Conversation
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "Привет, EORA", got.Messages[0].Content)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/sessions/s1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	a.AssertExpectations(t)
}

func TestExamplesLevelsStats(t *testing.T) {
	a := new(testutils.MockAssistant)
	a.On("Examples").Return([]string{"Что вы делали для Магнита?"})
	a.On("Stats", mock.Anything, "s1").Return(domain.Stats{Messages: 4, Documents: 12, MemoryMB: 3.5}, nil)
	handler := NewHandler(a)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/examples", nil))
	assert.JSONEq(t, `{"questions":["Что вы делали для Магнита?"]}`, w.Body.String())

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/levels", nil))
	var levels []levelInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&levels))
	require.Len(t, levels, 3)
	assert.Equal(t, domain.LevelEasy, levels[0].ID)
	assert.Equal(t, "Простой", levels[0].Label)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats?session_id=s1", nil))
	assert.JSONEq(t, `{"messages":4,"documents":12,"memory_mb":3.5}`, w.Body.String())
	a.AssertExpectations(t)
}

func TestHealthInfoAndPage(t *testing.T) {
	handler := NewHandler(new(testutils.MockAssistant), WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("eora_questions_total 1\n"))
	})))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/info", nil))
	var info map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, "eora-http", info["app"])
	assert.Equal(t, "1.0.0", info["api_version"])
	assert.NotEmpty(t, info["version"])

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/api/ask")

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "eora_questions_total")

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/ask", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoadSpec(t *testing.T) {
	doc, err := LoadSpec(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/api/ask"))
}

func TestSubscribeEvents_Global(t *testing.T) {
	watcher := watchFunc(func(ctx context.Context) (<-chan string, error) {
		ch := make(chan string, 1)
		ch <- "reload"
		close(ch)
		return ch, nil
	})
	handler := NewHandler(new(testutils.MockAssistant), WithWatcher(watcher))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "event: ping")
	assert.Contains(t, w.Body.String(), "data: reload")
}

func TestSubscribeEvents_NoWatcher(t *testing.T) {
	handler := NewHandler(new(testutils.MockAssistant))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestSubscribeEvents_Session(t *testing.T) {
	a := new(testutils.MockAssistant)
	a.On("Ask", mock.Anything, "s1", "Что сделали для Магнита?", domain.LevelEasy).Return(testutils.SampleReply("s1"), nil)
	streams := NewStreamManager()
	srv := httptest.NewServer(NewHandler(a, WithStreams(streams)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?session_id=s1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Eventually(t, func() bool { return streams.Subscribers("s1") == 1 }, 2*time.Second, 10*time.Millisecond)

	askResp, err := http.Post(srv.URL+"/api/ask", "application/json",
		strings.NewReader(`{"session_id":"s1","question":"Что сделали для Магнита?"}`))
	require.NoError(t, err)
	askResp.Body.Close()
	require.Equal(t, http.StatusOK, askResp.StatusCode)

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") && line != "data: connected" {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	var msg domain.Message
	require.NoError(t, json.Unmarshal([]byte(data), &msg))
	assert.Equal(t, domain.RoleAssistant, msg.Role)
	assert.Contains(t, msg.Content, "Магнита")
}

func TestStreamManager(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe("s1")
	sm.Broadcast("s1", "hello")
	sm.Broadcast("s2", "ignored")
	assert.Equal(t, "hello", <-ch)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, sm.Subscribers("s1"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(domain.Invalid("x")))
	assert.Equal(t, http.StatusNotFound, StatusFor(domain.Wrap(domain.ErrSessionNotFound, "load", errors.New("gone"))))
	assert.Equal(t, http.StatusNotImplemented, StatusFor(domain.ErrNotImplemented))
	assert.Equal(t, http.StatusGatewayTimeout, StatusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}

func TestListenAndServe_Shutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ListenAndServe(ctx, "127.0.0.1:0", NewHandler(new(testutils.MockAssistant)), time.Second)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
