// Package live pushes leaderboard updates to WebSocket subscribers.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/talentboard/internal/evaluation"
)

const (
	// DefaultWriteTimeout bounds a single WebSocket write.
	DefaultWriteTimeout = 5 * time.Second

	// sendBuffer is the number of queued messages per subscriber. A subscriber
	// that falls further behind misses updates.
	sendBuffer = 8
)

// EventSnapshot is the type of the first message each new subscriber
// receives: the current leaderboard, shaped like evaluation.RankingsUpdate.
const EventSnapshot = "leaderboard_snapshot"

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Broadcaster fans ranking updates out to WebSocket connections. Each
// connection has its own writer goroutine so a slow client never blocks
// publishers.
type Broadcaster struct {
	mu           sync.RWMutex
	subs         map[*websocket.Conn]*subscriber
	writeTimeout time.Duration
}

// NewBroadcaster creates a Broadcaster. A zero writeTimeout uses DefaultWriteTimeout.
func NewBroadcaster(writeTimeout time.Duration) *Broadcaster {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Broadcaster{
		subs:         make(map[*websocket.Conn]*subscriber),
		writeTimeout: writeTimeout,
	}
}

// Subscribe registers a connection. The caller must call Unsubscribe when the
// connection ends.
func (b *Broadcaster) Subscribe(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[conn]; ok {
		return
	}
	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	b.subs[conn] = sub
	go b.writeLoop(sub)
}

// Unsubscribe removes a connection and stops its writer.
func (b *Broadcaster) Unsubscribe(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[conn]; ok {
		close(sub.send)
		delete(b.subs, conn)
	}
}

// Send queues v for a single subscribed connection.
func (b *Broadcaster) Send(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if sub, ok := b.subs[conn]; ok {
		b.enqueue(sub, data)
	}
	return nil
}

// PublishRankings implements evaluation.Publisher.
func (b *Broadcaster) PublishRankings(ctx context.Context, update evaluation.RankingsUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.subs) == 0 {
		return
	}

	// Serialize once for every subscriber.
	data, err := json.Marshal(update)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal rankings update", "error", err)
		return
	}

	for _, sub := range b.subs {
		b.enqueue(sub, data)
	}
}

// ConnectionCount returns the number of subscribed connections.
func (b *Broadcaster) ConnectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// enqueue must be called with b.mu held.
func (b *Broadcaster) enqueue(sub *subscriber, data []byte) {
	select {
	case sub.send <- data:
	default:
		slog.Warn("dropping leaderboard update for slow websocket client",
			"remote_addr", sub.conn.RemoteAddr().String())
	}
}

func (b *Broadcaster) writeLoop(sub *subscriber) {
	for data := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
		if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Warn("failed to send message to websocket client", "error", err)
			// Drain until the reader side unsubscribes.
			for range sub.send {
			}
			return
		}
	}
}
