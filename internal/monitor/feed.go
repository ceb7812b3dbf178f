package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"

	"github.com/reverie-ai/reverie/internal/models"
	"github.com/reverie-ai/reverie/internal/observability"
)

// RedisChannel is the pub/sub channel live thoughts are mirrored to
// when a redis client is attached.
const RedisChannel = "reverie:thoughts"

const clientSendBuffer = 16

// Feed fans one thought stream out to websocket clients and,
// optionally, a redis pub/sub channel. A slow websocket client is
// disconnected rather than allowed to stall the feed; redis publish
// failures are logged and skipped. The feed itself never blocks the
// producing engines beyond their own bounded channel.
type Feed struct {
	upgrader websocket.Upgrader
	redis    *redis.Client
	log      *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

// NewFeed builds a feed. redisClient may be nil.
func NewFeed(redisClient *redis.Client) *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		redis:   redisClient,
		log:     observability.WithComponent("feed"),
		clients: map[*websocket.Conn]chan []byte{},
	}
}

// Run drains events until the channel closes or ctx is cancelled,
// broadcasting each thought to all connected clients.
func (f *Feed) Run(ctx context.Context, events <-chan models.Thought) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-events:
			if !ok {
				return
			}
			f.Broadcast(ctx, t)
		}
	}
}

// Broadcast sends one thought to every connected client and mirrors it
// to redis when configured.
func (f *Feed) Broadcast(ctx context.Context, t models.Thought) {
	payload, err := json.Marshal(t)
	if err != nil {
		f.log.Error("feed encode failed", "id", t.ID, "error", err)
		return
	}

	f.mu.Lock()
	for conn, send := range f.clients {
		select {
		case send <- payload:
		default:
			// Slow client. Drop it; the durable store is the source of
			// truth, the feed is best-effort.
			close(send)
			delete(f.clients, conn)
			f.log.Info("dropped slow feed client", "remote", conn.RemoteAddr().String())
		}
	}
	f.mu.Unlock()

	if f.redis != nil {
		if err := f.redis.Publish(ctx, RedisChannel, payload).Err(); err != nil {
			f.log.Error("redis publish failed", "error", err)
		}
	}
}

// HandleWS upgrades the request and streams thoughts until the client
// disconnects.
func (f *Feed) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Error("websocket upgrade failed", "error", err)
		return
	}

	send := make(chan []byte, clientSendBuffer)
	f.mu.Lock()
	f.clients[conn] = send
	f.mu.Unlock()

	go f.writeLoop(conn, send)
	f.readLoop(conn)
}

func (f *Feed) writeLoop(conn *websocket.Conn, send <-chan []byte) {
	for payload := range send {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			f.remove(conn)
			return
		}
	}
	conn.Close()
}

// readLoop discards inbound frames; it exists to notice disconnects.
func (f *Feed) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			f.remove(conn)
			return
		}
	}
}

func (f *Feed) remove(conn *websocket.Conn) {
	f.mu.Lock()
	if send, ok := f.clients[conn]; ok {
		close(send)
		delete(f.clients, conn)
	}
	f.mu.Unlock()
	conn.Close()
}

// ClientCount reports connected websocket clients.
func (f *Feed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}
