// Package channel owns the lifecycle of the real-time connection to the
// messaging backend: connect, authenticate, heartbeat, reconnect,
// disconnect.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/avalier/sitechat/internal/domain"
	"github.com/avalier/sitechat/internal/shared"
)

// State is the lifecycle state of the channel connection. Exactly one
// instance exists for the widget's lifetime, owned by the Manager.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Authenticated
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Authenticated:
		return "authenticated"
	default:
		return "disconnected"
	}
}

// EventKind classifies events delivered to the widget loop.
type EventKind int

const (
	// EventAuthenticated fires when the server acknowledges the connection.
	EventAuthenticated EventKind = iota
	// EventDisconnected fires when the channel is lost; Err carries the cause.
	EventDisconnected
	// EventFrame delivers a decoded server frame.
	EventFrame
)

// Event is a single occurrence on the channel, consumed one at a time by
// the widget loop.
type Event struct {
	Kind  EventKind
	Frame Frame
	Err   error
}

// missedHeartbeatLimit is the number of consecutive unacknowledged
// heartbeats tolerated before the connection is recycled.
const missedHeartbeatLimit = 3

// redialTimeout bounds the single reconnection attempt after a heartbeat
// failure.
const redialTimeout = 10 * time.Second

// errDialSuperseded marks a dial that completed after Disconnect had already
// torn the channel down; the fresh socket is discarded, not installed.
var errDialSuperseded = errors.New("channel torn down during dial")

// Manager owns the channel connection and its liveness probe. Its mutable
// state is internally synchronized because the read loop, the heartbeat
// loop, and the widget loop all touch it.
type Manager struct {
	endpoint          string
	apiKey            string
	heartbeatInterval time.Duration

	events chan Event

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	cancel  context.CancelFunc
	session *domain.UserSession

	// gen changes whenever connection ownership changes; a dial may only
	// install its socket if the generation it started under is still current.
	gen uint64

	missedHeartbeats atomic.Int32
}

// NewManager creates a manager for the given endpoint and capability token.
func NewManager(endpoint, apiKey string, heartbeatInterval time.Duration) *Manager {
	return &Manager{
		endpoint:          endpoint,
		apiKey:            apiKey,
		heartbeatInterval: heartbeatInterval,
		events:            make(chan Event, 32),
	}
}

// Events returns the stream of channel events for the widget loop.
func (m *Manager) Events() <-chan Event { return m.events }

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Authenticated reports whether messages may be sent.
func (m *Manager) Authenticated() bool {
	return m.State() == Authenticated
}

// Connect validates credentials and opens the channel. An empty session id
// or capability token fails with a ConfigurationError before any network
// action. A successful dial leaves the channel Connected; Authenticated is
// reached only when the server acknowledges the connection.
func (m *Manager) Connect(ctx context.Context, session *domain.UserSession) error {
	if session == nil || session.ID == "" {
		return &shared.ConfigurationError{Field: "session id"}
	}
	if m.apiKey == "" {
		return &shared.ConfigurationError{Field: "capability token"}
	}

	m.mu.Lock()
	if m.state != Disconnected {
		m.mu.Unlock()
		return fmt.Errorf("connect: channel is %s, disconnect first", m.state)
	}
	m.session = session
	m.state = Connecting
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	return m.dial(ctx, gen)
}

// Disconnect tears down the probe and the channel unconditionally. Safe to
// call from any state, including Disconnected, where it is a no-op.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	conn := m.conn
	cancel := m.cancel
	m.conn = nil
	m.cancel = nil
	m.session = nil
	m.state = Disconnected
	m.gen++
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "widget closed")
		slog.Info("Channel disconnected")
	}
}

// Send transmits a visitor message. The channel must be Authenticated.
func (m *Manager) Send(ctx context.Context, msg domain.ChatMessage) error {
	conn, err := m.authenticatedConn("send")
	if err != nil {
		return err
	}

	frame := Frame{
		Type:          TypeSendMessage,
		RecipientID:   msg.RecipientID,
		SenderName:    msg.SenderName,
		RecipientName: msg.RecipientName,
		Content:       msg.Content,
		ContentType:   "text",
	}
	if err := m.writeFrame(ctx, conn, frame); err != nil {
		return &shared.ConnectionError{Op: "send", Err: err}
	}
	return nil
}

// CheckPresence asks the backend whether the subject is currently reachable.
func (m *Manager) CheckPresence(ctx context.Context, subjectID string) error {
	conn, err := m.authenticatedConn("check_presence")
	if err != nil {
		return err
	}
	if err := m.writeFrame(ctx, conn, Frame{Type: TypeCheckPresence, SubjectID: subjectID}); err != nil {
		return &shared.ConnectionError{Op: "check_presence", Err: err}
	}
	return nil
}

func (m *Manager) authenticatedConn(op string) (*websocket.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Authenticated || m.conn == nil {
		return nil, &shared.ConnectionError{Op: op, Err: fmt.Errorf("channel is %s", m.state)}
	}
	return m.conn, nil
}

func (m *Manager) dial(ctx context.Context, gen uint64) error {
	target, err := m.dialURL()
	if err != nil {
		m.abortDial(gen)
		return &shared.ConnectionError{Op: "dial", Err: err}
	}

	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		m.abortDial(gen)
		return &shared.ConnectionError{Op: "dial", Err: err}
	}

	// The loops outlive the dial context; Disconnect cancels them.
	loopCtx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if m.gen != gen {
		// Disconnect ran while the dial was in flight. Installing the socket
		// now would leak loops nothing can ever stop.
		m.mu.Unlock()
		cancel()
		_ = conn.Close(websocket.StatusNormalClosure, "connection superseded")
		return &shared.ConnectionError{Op: "dial", Err: errDialSuperseded}
	}
	m.conn = conn
	m.cancel = cancel
	m.state = Connected
	m.mu.Unlock()
	m.missedHeartbeats.Store(0)

	go m.readLoop(loopCtx, conn)
	go m.heartbeatLoop(loopCtx, conn)

	slog.Info("Channel connected, awaiting server acknowledgment", "endpoint", m.endpoint)
	return nil
}

// abortDial marks the failed attempt Disconnected unless ownership has
// already moved on.
func (m *Manager) abortDial(gen uint64) {
	m.mu.Lock()
	if m.gen == gen {
		m.state = Disconnected
	}
	m.mu.Unlock()
}

func (m *Manager) dialURL() (string, error) {
	u, err := url.Parse(m.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	// Authentication travels as connection-level credentials, not a frame.
	q := u.Query()
	q.Set("user_id", m.sessionID())
	q.Set("api_key", m.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (m *Manager) sessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.ID
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled by Disconnect or recycle; teardown is handled there.
				return
			}
			slog.Warn("Channel read failed", "error", err)
			m.teardown(ctx, conn, &shared.ConnectionError{Op: "read", Err: err})
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			perr := &shared.ProtocolError{FrameType: "unknown", Err: err}
			slog.Warn("Dropping malformed frame", "error", perr)
			continue
		}

		switch frame.Type {
		case TypeConnected:
			m.setState(Authenticated)
			slog.Info("Channel authenticated")
			m.emit(ctx, Event{Kind: EventAuthenticated})
		case TypeHeartbeatAck:
			m.missedHeartbeats.Store(0)
		case TypePresenceStatus, TypeMessage, TypeMessageAccepted, TypeError:
			m.emit(ctx, Event{Kind: EventFrame, Frame: frame})
		default:
			perr := &shared.ProtocolError{FrameType: frame.Type}
			slog.Warn("Ignoring unexpected frame", "error", perr)
		}
	}
}

// heartbeatLoop sends the periodic liveness probe. Missing reciprocal acks
// are tolerated up to missedHeartbeatLimit, then the connection is recycled
// with a single redial.
func (m *Manager) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(m.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if missed := m.missedHeartbeats.Load(); missed >= missedHeartbeatLimit {
				slog.Warn("Heartbeat acks missing, recycling connection", "missed", missed)
				m.recycle(conn)
				return
			}
			if err := m.writeFrame(ctx, conn, Frame{Type: TypeHeartbeat}); err != nil {
				if ctx.Err() == nil {
					slog.Warn("Heartbeat write failed", "error", err)
				}
				return
			}
			m.missedHeartbeats.Add(1)
		}
	}
}

// recycle tears the current socket down and attempts one redial with the
// same credentials. A failed redial degrades to a normal disconnect event.
func (m *Manager) recycle(conn *websocket.Conn) {
	m.teardownQuiet(conn)

	m.mu.Lock()
	if m.session == nil {
		// Disconnect won the race; stay down.
		m.mu.Unlock()
		return
	}
	m.state = Connecting
	gen := m.gen
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), redialTimeout)
	defer cancel()
	if err := m.dial(ctx, gen); err != nil {
		if errors.Is(err, errDialSuperseded) {
			return
		}
		slog.Warn("Redial failed", "error", err)
		// The old loop context died with the old socket; a one-shot notice
		// can use the buffer best-effort.
		select {
		case m.events <- Event{Kind: EventDisconnected, Err: err}:
		default:
			slog.Warn("Event buffer full, dropping disconnect event")
		}
	}
}

// teardown reports the disconnect to the widget loop and then closes the
// socket and stops both loops. The event goes first, while ctx can still
// guard its delivery.
func (m *Manager) teardown(ctx context.Context, conn *websocket.Conn, cause error) {
	m.emit(ctx, Event{Kind: EventDisconnected, Err: cause})
	m.teardownQuiet(conn)
}

func (m *Manager) teardownQuiet(conn *websocket.Conn) {
	m.mu.Lock()
	if m.conn != conn {
		// A newer connection already took over.
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.conn = nil
	m.cancel = nil
	m.state = Disconnected
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	_ = conn.Close(websocket.StatusNormalClosure, "connection recycled")
}

func (m *Manager) writeFrame(ctx context.Context, conn *websocket.Conn, frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", frame.Type, err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// emit delivers an event to the widget loop, blocking until it is consumed
// or the connection's loop context ends. A burst of frames backpressures the
// read loop; it must never drop a message.
func (m *Manager) emit(ctx context.Context, ev Event) {
	select {
	case m.events <- ev:
	case <-ctx.Done():
		slog.Debug("Loop stopped before event delivery", "kind", ev.Kind)
	}
}
