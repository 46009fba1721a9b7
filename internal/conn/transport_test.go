// README: Websocket transport tests against a real local server.
package conn

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsEchoServer upgrades every request and collects the frames it receives.
type wsEchoServer struct {
	upgrader websocket.Upgrader

	mu     sync.Mutex
	frames []envelope
}

func (s *wsEchoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()
	for {
		var env envelope
		if err := c.ReadJSON(&env); err != nil {
			return
		}
		s.mu.Lock()
		s.frames = append(s.frames, env)
		s.mu.Unlock()
	}
}

func (s *wsEchoServer) received() []envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]envelope(nil), s.frames...)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebsocketDialer_RoundTrip(t *testing.T) {
	echo := &wsEchoServer{}
	srv := httptest.NewServer(echo)
	defer srv.Close()

	tr, err := WebsocketDialer(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Close()

	data, _ := json.Marshal(map[string]string{"request_id": "r1"})
	if err := tr.WriteJSON(envelope{Event: "accept_request", Data: data}); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := echo.received(); len(got) == 1 {
			if got[0].Event != "accept_request" {
				t.Fatalf("event: %q", got[0].Event)
			}
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("frame never arrived")
}

// Emit is reached concurrently from handler goroutines and the location
// reporter while the session loop owns the handshake; every frame must
// arrive intact.
func TestManager_ConcurrentEmits(t *testing.T) {
	echo := &wsEchoServer{}
	srv := httptest.NewServer(echo)
	defer srv.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(Config{
		URL:          wsURL(srv),
		BackoffFloor: time.Millisecond,
		BackoffCap:   5 * time.Millisecond,
	}, WebsocketDialer, testIdentity, &recordingPublisher{}, log)
	defer m.Disconnect()

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, m.IsConnected, "connected")

	const writers = 16
	const perWriter = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				if err := m.Emit("update_location", map[string]float64{"lat": 17.53, "lng": 78.44}); err != nil {
					t.Errorf("emit: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	// handshake + every emit
	want := 1 + writers*perWriter
	waitFor(t, func() bool { return len(echo.received()) == want }, "all frames received")
	for _, env := range echo.received()[1:] {
		if env.Event != "update_location" {
			t.Fatalf("corrupted frame: %+v", env)
		}
	}
}
