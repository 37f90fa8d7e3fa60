package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/kirpich/internal/domain"
	"github.com/soyeahso/kirpich/internal/logging"
)

func TestRealtimeURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/ws", RealtimeURL("http://localhost:8080"))
	assert.Equal(t, "wss://api.example.com/ws", RealtimeURL("https://api.example.com/"))
}

// backendWS serves /ws and pushes frames to every connection.
func backendWS(t *testing.T, frames []any) (*httptest.Server, <-chan string) {
	t.Helper()
	tokens := make(chan string, 4)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		tokens <- r.URL.Query().Get("token")
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, tokens
}

func TestSubscriber_ForwardsNewMessages(t *testing.T) {
	frames := []any{
		map[string]any{"type": "typing", "chat_id": "c1"},
		map[string]any{"type": "new_message", "message": map[string]any{
			"id": "m1", "chat_id": "c1", "sender_id": "u2", "content": "hello",
			"created_at": "2026-05-01T10:00:00Z",
		}},
		map[string]any{"type": "new_message", "message": map[string]any{
			"id": "m2", "chat_id": "c1", "sender_id": "me", "content": "mine",
		}},
		map[string]any{"type": "new_message", "message": map[string]any{
			"id": "m3", "chat_id": "c2", "content": "system",
		}},
	}
	srv, tokens := backendWS(t, frames)

	var mu sync.Mutex
	var got []domain.InboundMessage
	done := make(chan struct{})
	handle := func(_ context.Context, msg domain.InboundMessage) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg)
		if len(got) == 2 {
			close(done)
		}
		return nil
	}

	sub := NewSubscriber(srv.URL, func() (string, error) { return "tok", nil }, handle,
		logging.New(nil, "silent"), WithSelf(func() string { return "me" }))
	sub.Start(context.Background())
	defer sub.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("messages not forwarded")
	}

	assert.Equal(t, "tok", <-tokens)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, domain.InboundMessage{
		ID: "m1", ChatID: "c1", SenderID: "u2", Body: "hello",
		Timestamp: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}, got[0])
	assert.Equal(t, "m3", got[1].ID)
}

func TestSubscriber_StartStop(t *testing.T) {
	srv, _ := backendWS(t, nil)
	sub := NewSubscriber(srv.URL, func() (string, error) { return "tok", nil },
		func(context.Context, domain.InboundMessage) error { return nil }, logging.New(nil, "silent"))

	assert.False(t, sub.Running())
	sub.Start(context.Background())
	sub.Start(context.Background())
	assert.True(t, sub.Running())

	stopped := make(chan struct{})
	go func() { sub.Stop(); close(stopped) }()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.False(t, sub.Running())
	sub.Stop()
}

func TestSubscriber_RetriesWithoutSession(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	token := func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return "", errors.New("not signed in")
	}
	sub := NewSubscriber("http://127.0.0.1:1", token,
		func(context.Context, domain.InboundMessage) error { return nil },
		logging.New(nil, "silent"), WithBackoff(time.Millisecond, 2*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := sub.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, calls, 1)
}
