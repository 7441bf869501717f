package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secretsanta/internal/models"
	"secretsanta/internal/store"
)

type fakeSource struct {
	subscribed chan struct{}
	onUpdate   func(models.Event)
	onError    func(error)
}

func newFakeSource() *fakeSource {
	return &fakeSource{subscribed: make(chan struct{})}
}

func (f *fakeSource) Subscribe(_ context.Context, onUpdate func(models.Event), onError func(error)) func() {
	f.onUpdate = onUpdate
	f.onError = onError
	close(f.subscribed)
	return func() {}
}

func startHub(t *testing.T) (*fakeSource, *httptest.Server, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	src := newFakeSource()
	hub := NewHub()
	go hub.Run(ctx, src)
	<-src.subscribed

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return src, srv, cancel
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL, err := WatchURL(srv.URL)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readType skips frames until one of the given type arrives. A client that
// registers while a change is published may see that change twice.
func readType(t *testing.T, conn *websocket.Conn, typ MessageType) Message {
	t.Helper()
	for {
		if msg := read(t, conn); msg.Type == typ {
			return msg
		}
	}
}

func TestHub(t *testing.T) {
	src, srv, _ := startHub(t)

	first := dial(t, srv)

	ev := models.Event{
		Users:          []models.User{{Name: "Ana", Password: "secret"}, {Name: "Bruno", Password: "hidden"}},
		Assignments:    []models.Assignment{{Giver: "Ana", Receiver: "Bruno"}, {Giver: "Bruno", Receiver: "Ana"}},
		IsDrawComplete: true,
	}
	src.onUpdate(ev)

	msg := read(t, first)
	assert.Equal(t, MessageEvent, msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, ev.Public(), *msg.Event)

	t.Run("Test late clients get the latest state", func(t *testing.T) {
		late := dial(t, srv)
		msg := read(t, late)
		require.NotNil(t, msg.Event)
		assert.Equal(t, []models.Participant{{Name: "Ana"}, {Name: "Bruno"}}, msg.Event.Participants)
	})

	t.Run("Test secrets never reach clients", func(t *testing.T) {
		src.onUpdate(ev)
		first.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := first.ReadMessage()
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "secret")
		assert.NotContains(t, string(raw), "receiver")
	})

	t.Run("Test errors are relayed", func(t *testing.T) {
		src.onError(fmt.Errorf("get event: %w", store.ErrNotProvisioned))
		msg := readType(t, first, MessageError)
		assert.True(t, msg.SetupNeeded)

		src.onError(errors.New("connection reset"))
		msg = read(t, first)
		assert.Equal(t, MessageError, msg.Type)
		assert.False(t, msg.SetupNeeded)
		assert.Equal(t, "connection reset", msg.Error)
	})
}

func TestHub_Shutdown(t *testing.T) {
	_, srv, cancel := startHub(t)
	conn := dial(t, srv)

	cancel()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "clients are disconnected when the hub stops")
}

func TestWatch(t *testing.T) {
	src, srv, _ := startHub(t)
	src.onUpdate(models.Event{Users: []models.User{{Name: "Ana"}}})

	wsURL, err := WatchURL(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var got []Message
	err = Watch(ctx, wsURL, func(msg Message) {
		got = append(got, msg)
		cancel()
	})
	assert.NoError(t, err, "cancelling the context ends Watch cleanly")
	require.NotEmpty(t, got)
	assert.Equal(t, "Ana", got[0].Event.Participants[0].Name)

	err = Watch(context.Background(), "ws://127.0.0.1:1/ws", func(Message) {})
	assert.Error(t, err)
}

func TestWatchURL(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{in: "localhost:8080", want: "ws://localhost:8080/ws"},
		{in: "http://santa.example.com", want: "ws://santa.example.com/ws"},
		{in: "https://santa.example.com/", want: "wss://santa.example.com/ws"},
		{in: "wss://santa.example.com/feed", want: "wss://santa.example.com/feed"},
		{in: "ftp://santa.example.com", wantErr: true},
		{in: "http://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := WatchURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasPrefix(got, "ws"))
		})
	}
}
