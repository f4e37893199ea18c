package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/examdeck/examdeck-backend/internal/model"
)

// newConnPair dials a WebSocket against an in-process server and
// returns both ends.
func newConnPair(t *testing.T) (server *websocket.Conn, peer *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	peer, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { peer.Close() })

	select {
	case server = <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("no connection accepted")
	}
	t.Cleanup(func() { server.Close() })
	return server, peer
}

func TestPublishReachesSubscriber(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	server, peer := newConnPair(t)

	client := hub.Subscribe(1, server)
	defer hub.Unsubscribe(1, client)

	hub.Publish(1, &model.SessionSnapshot{ExamID: 1, Mode: model.ModeInProgress})

	var got StateResponse
	peer.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := peer.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Event != EventState || got.Data == nil || got.Data.ExamID != 1 {
		t.Fatalf("got %+v, want a state event for exam 1", got)
	}
}

func TestPublishSkipsOtherExams(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	server, peer := newConnPair(t)

	client := hub.Subscribe(1, server)
	defer hub.Unsubscribe(1, client)

	hub.Publish(2, &model.SessionSnapshot{ExamID: 2})

	peer.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var got StateResponse
	if err := peer.ReadJSON(&got); err == nil {
		t.Fatalf("got %+v, want no message for another exam", got)
	}
}

// Broadcasts arrive from whatever goroutine mutated the session while
// the read loop replies on its own; both must share the per-client
// write lock or the connection panics on concurrent writes.
func TestConcurrentBroadcastAndDirectWrites(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	server, peer := newConnPair(t)

	client := hub.Subscribe(1, server)
	defer hub.Unsubscribe(1, client)

	const writes = 50
	received := make(chan struct{}, 2*writes)
	go func() {
		for {
			var got StateResponse
			if err := peer.ReadJSON(&got); err != nil {
				return
			}
			if got.Event != EventState || got.Data == nil {
				t.Errorf("got %+v, want intact state frames", got)
				return
			}
			received <- struct{}{}
		}
	}()

	snap := &model.SessionSnapshot{ExamID: 1, Mode: model.ModeInProgress}
	payload := &StateResponse{Event: EventState, Data: snap}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			hub.Publish(1, snap)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			if err := client.WriteState(payload); err != nil {
				t.Errorf("write: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	for i := 0; i < 2*writes; i++ {
		select {
		case <-received:
		case <-time.After(5 * time.Second):
			t.Fatalf("received %d of %d frames", i, 2*writes)
		}
	}
}

func TestPublishDropsDeadSubscriber(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	server, peer := newConnPair(t)

	client := hub.Subscribe(1, server)
	peer.Close()
	server.Close()

	// The first publish after the close fails the write and drops the
	// subscriber; further publishes find nobody.
	hub.Publish(1, &model.SessionSnapshot{ExamID: 1})

	hub.mu.Lock()
	_, still := hub.subs[1][client]
	hub.mu.Unlock()
	if still {
		t.Fatal("dead subscriber must be dropped after a failed write")
	}
}
