// Package chatstub is an in-memory development stand-in for the messaging
// backend. It speaks the client's wire contract and nothing more: no
// persistence, no history, no routing beyond a single process-wide hub.
// Presence is connection-derived, so an "operator" is whoever connects with
// the operator's user id.
package chatstub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/avalier/sitechat/internal/channel"
)

// Server relays messages between connected users and answers presence
// queries with connection-derived reachability.
type Server struct {
	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	userID string
	conn   *websocket.Conn

	// Writes are serialized per connection; the relay path and the reply
	// path can race otherwise.
	writeMu sync.Mutex
}

// NewServer creates an empty hub.
func NewServer() *Server {
	return &Server{clients: make(map[string]*client)}
}

// Router assembles the HTTP surface: the websocket endpoint and a health
// probe.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/sockets", s.ServeWS)
	return r
}

// ServeWS upgrades the request and runs the per-connection loop.
// Credentials arrive as connection-level query parameters; an empty user id
// or api key is rejected before the upgrade.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	apiKey := r.URL.Query().Get("api_key")
	if userID == "" || apiKey == "" {
		http.Error(w, "missing credentials", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept websocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "session ended")
	}()

	c := &client{userID: userID, conn: conn}
	s.register(c)
	defer s.unregister(c)

	ctx := r.Context()
	if err := c.write(ctx, channel.Frame{Type: channel.TypeConnected}); err != nil {
		slog.Debug("Failed to send connected ack", "error", err, "user_id", userID)
		return
	}
	slog.Info("Client connected", "user_id", userID)

	s.readLoop(ctx, c)
	slog.Info("Client disconnected", "user_id", userID)
}

func (s *Server) readLoop(ctx context.Context, c *client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Client closed connection", "user_id", c.userID)
			}
			return
		}

		var frame channel.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			_ = c.write(ctx, channel.Frame{Type: channel.TypeError, Message: "invalid frame"})
			continue
		}

		switch frame.Type {
		case channel.TypeHeartbeat:
			_ = c.write(ctx, channel.Frame{Type: channel.TypeHeartbeatAck})
		case channel.TypeCheckPresence:
			_ = c.write(ctx, channel.Frame{
				Type:      channel.TypePresenceStatus,
				SubjectID: frame.SubjectID,
				Online:    s.isOnline(frame.SubjectID),
			})
		case channel.TypeSendMessage:
			s.relay(ctx, c, frame)
		default:
			_ = c.write(ctx, channel.Frame{Type: channel.TypeError, Message: "unknown frame type: " + frame.Type})
		}
	}
}

// relay delivers the message to the recipient when connected and always
// acknowledges the sender. Offline recipients receive nothing here;
// asynchronous delivery is the real backend's job.
func (s *Server) relay(ctx context.Context, from *client, frame channel.Frame) {
	out := channel.Frame{
		Type:          channel.TypeMessage,
		MessageID:     uuid.NewString(),
		Content:       frame.Content,
		SenderID:      from.userID,
		RecipientID:   frame.RecipientID,
		SenderName:    frame.SenderName,
		RecipientName: frame.RecipientName,
		Timestamp:     time.Now().Format(time.RFC3339Nano),
	}

	if recipient := s.lookup(frame.RecipientID); recipient != nil {
		if err := recipient.write(ctx, out); err != nil {
			slog.Warn("Failed to relay message", "recipient_id", frame.RecipientID, "error", err)
		}
	}

	_ = from.write(ctx, channel.Frame{
		Type:      channel.TypeMessageAccepted,
		MessageID: out.MessageID,
	})
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.clients[c.userID]; ok && existing != c {
		_ = existing.conn.Close(websocket.StatusNormalClosure, "connection replaced")
	}
	s.clients[c.userID] = c
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.clients[c.userID]; ok && current == c {
		delete(s.clients, c.userID)
	}
}

func (s *Server) lookup(userID string) *client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients[userID]
}

func (s *Server) isOnline(userID string) bool {
	return s.lookup(userID) != nil
}

func (c *client) write(ctx context.Context, frame channel.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}
