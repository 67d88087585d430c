package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/talentboard/internal/candidate"
	"github.com/onnwee/talentboard/internal/evaluation"
)

// newTestServer upgrades every request and subscribes the connection until
// the client goes away.
func newTestServer(t *testing.T, b *Broadcaster) (*httptest.Server, chan struct{}) {
	t.Helper()
	subscribed := make(chan struct{}, 4)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		b.Subscribe(conn)
		subscribed <- struct{}{}
		defer func() {
			b.Unsubscribe(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, subscribed
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitSubscribed(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscription")
	}
}

func TestBroadcaster_PublishRankings(t *testing.T) {
	b := NewBroadcaster(0)
	srv, subscribed := newTestServer(t, b)

	c1 := dial(t, srv)
	waitSubscribed(t, subscribed)
	c2 := dial(t, srv)
	waitSubscribed(t, subscribed)

	if got := b.ConnectionCount(); got != 2 {
		t.Fatalf("ConnectionCount() = %d, want 2", got)
	}

	update := evaluation.RankingsUpdate{
		Type:        evaluation.EventRankingsUpdated,
		Trigger:     evaluation.TriggerEvaluate,
		CandidateID: 2,
		RankedCount: 1,
		Leaderboard: []*candidate.Profile{{
			Candidate: candidate.Candidate{ID: 2, Name: "Bob Smith"},
			Ranking:   &candidate.Ranking{CandidateID: 2, OverallScore: 95, Rank: 1},
		}},
		At: time.Now().UTC(),
	}
	b.PublishRankings(context.Background(), update)

	for i, conn := range []*websocket.Conn{c1, c2} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("client %d ReadMessage() error = %v", i, err)
		}
		var got evaluation.RankingsUpdate
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("client %d: invalid JSON: %v", i, err)
		}
		if got.Type != evaluation.EventRankingsUpdated || got.CandidateID != 2 {
			t.Errorf("client %d: unexpected update %+v", i, got)
		}
		if len(got.Leaderboard) != 1 || got.Leaderboard[0].Ranking.Rank != 1 {
			t.Errorf("client %d: unexpected leaderboard %+v", i, got.Leaderboard)
		}
	}
}

func TestBroadcaster_UnsubscribeOnDisconnect(t *testing.T) {
	b := NewBroadcaster(0)
	srv, subscribed := newTestServer(t, b)

	conn := dial(t, srv)
	waitSubscribed(t, subscribed)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for b.ConnectionCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := b.ConnectionCount(); got != 0 {
		t.Errorf("ConnectionCount() = %d after disconnect, want 0", got)
	}

	// Publishing with no subscribers is a no-op.
	b.PublishRankings(context.Background(), evaluation.RankingsUpdate{Type: evaluation.EventRankingsUpdated})
}

func TestBroadcaster_Send(t *testing.T) {
	b := NewBroadcaster(time.Second)
	srv, subscribed := newTestServer(t, b)

	conn := dial(t, srv)
	waitSubscribed(t, subscribed)

	var serverConn *websocket.Conn
	b.mu.RLock()
	for c := range b.subs {
		serverConn = c
	}
	b.mu.RUnlock()

	if err := b.Send(serverConn, map[string]string{"type": "snapshot"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if !strings.Contains(string(data), `"snapshot"`) {
		t.Errorf("unexpected message %s", data)
	}
}
