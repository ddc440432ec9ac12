package play

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

type fakeService struct {
	mu        sync.Mutex
	started   []int
	continued []string
	sessions  map[string]*story.Session
	startErr  error
}

func (f *fakeService) Start(_ context.Context, storyName string, maxChoices int) (*story.Turn, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.mu.Lock()
	f.started = append(f.started, maxChoices)
	f.mu.Unlock()
	return &story.Turn{
		NarrativeNode:    story.NarrativeNode{Text: "At the gates of " + storyName, Mood: story.MoodNeutral, Choices: []string{"Enter"}},
		SessionID:        "s-1",
		ChoicesRemaining: maxChoices,
	}, nil
}

func (f *fakeService) Continue(_ context.Context, _, sessionID, choiceText string) (*story.Turn, error) {
	f.mu.Lock()
	f.continued = append(f.continued, choiceText)
	f.mu.Unlock()
	return &story.Turn{
		NarrativeNode:    story.NarrativeNode{Text: "You chose " + choiceText, Mood: story.MoodTense, Choices: []string{}},
		ChoicesRemaining: 9,
	}, nil
}

func (f *fakeService) Get(_ context.Context, sessionID string) (*story.Session, error) {
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, story.ErrNotFound
	}
	return sess, nil
}

func (f *fakeService) calls() ([]int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.started...), append([]string(nil), f.continued...)
}

func dial(t *testing.T, svc Service) *websocket.Conn {
	t.Helper()
	return dialHandler(t, New(svc, nil, []string{"*"}))
}

func dialHandler(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello Outbound
	require.NoError(t, readMessage(conn, &hello))
	require.Equal(t, "connected", hello.Type)
	return conn
}

func readMessage(conn *websocket.Conn, msg *Outbound) error {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn.ReadJSON(msg)
}

func roundTrip(t *testing.T, conn *websocket.Conn, in Inbound) Outbound {
	t.Helper()
	require.NoError(t, conn.WriteJSON(in))
	var out Outbound
	require.NoError(t, readMessage(conn, &out))
	return out
}

func TestPlayStartUsesDefaultBudget(t *testing.T) {
	svc := &fakeService{}
	conn := dial(t, svc)

	out := roundTrip(t, conn, Inbound{Type: "start", StoryName: "koroghlu"})
	require.Equal(t, "turn", out.Type)
	assert.Equal(t, "s-1", out.SessionID)

	var turn story.Turn
	require.NoError(t, json.Unmarshal(out.Data, &turn))
	assert.Equal(t, story.DefaultChoices, turn.ChoicesRemaining)
	started, _ := svc.calls()
	assert.Equal(t, []int{story.DefaultChoices}, started)
}

func TestPlayContinueAndSession(t *testing.T) {
	svc := &fakeService{sessions: map[string]*story.Session{
		"s-1": {SessionID: "s-1", StoryName: "koroghlu", MaxChoices: 10, ChoicesMade: 1},
	}}
	conn := dial(t, svc)

	out := roundTrip(t, conn, Inbound{Type: "continue", StoryName: "koroghlu", SessionID: "s-1", ChoiceText: "Enter"})
	require.Equal(t, "turn", out.Type)
	_, continued := svc.calls()
	assert.Equal(t, []string{"Enter"}, continued)

	out = roundTrip(t, conn, Inbound{Type: "session", SessionID: "s-1"})
	require.Equal(t, "session", out.Type)
	var sess story.Session
	require.NoError(t, json.Unmarshal(out.Data, &sess))
	assert.Equal(t, 1, sess.ChoicesMade)
}

func TestPlayReportsErrors(t *testing.T) {
	svc := &fakeService{startErr: story.ErrGeneration}
	conn := dial(t, svc)

	out := roundTrip(t, conn, Inbound{Type: "start", StoryName: "koroghlu"})
	require.Equal(t, "error", out.Type)
	assert.Contains(t, string(out.Data), "generation_error")

	out = roundTrip(t, conn, Inbound{Type: "session", SessionID: "missing"})
	require.Equal(t, "error", out.Type)
	assert.Contains(t, string(out.Data), "not_found")

	out = roundTrip(t, conn, Inbound{Type: "dance"})
	require.Equal(t, "error", out.Type)
	assert.Contains(t, string(out.Data), "validation_error")
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})

	req := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(req), "requests without an origin are accepted")

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker(nil)(req))
	assert.True(t, originChecker([]string{"*"})(req))
}

type slowService struct {
	fakeService
	delay time.Duration
}

func (s *slowService) Start(ctx context.Context, storyName string, maxChoices int) (*story.Turn, error) {
	time.Sleep(s.delay)
	return s.fakeService.Start(ctx, storyName, maxChoices)
}

func TestSlowGenerationKeepsConnectionOpen(t *testing.T) {
	svc := &slowService{delay: 300 * time.Millisecond}
	h := New(svc, nil, []string{"*"})
	h.readTimeout = 100 * time.Millisecond
	h.pingInterval = time.Hour
	conn := dialHandler(t, h)

	first := roundTrip(t, conn, Inbound{Type: "start", StoryName: "koroghlu"})
	assert.Equal(t, "turn", first.Type)

	second := roundTrip(t, conn, Inbound{Type: "start", StoryName: "koroghlu"})
	assert.Equal(t, "turn", second.Type)

	started, _ := svc.calls()
	assert.Len(t, started, 2)
}
