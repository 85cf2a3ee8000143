// Package conversation drives the onboarding flow and the message log.
package conversation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/avalier/sitechat/internal/domain"
	"github.com/avalier/sitechat/internal/presence"
	"github.com/avalier/sitechat/internal/shared"
	"github.com/avalier/sitechat/internal/store"
)

// Step is the sole authority on how the next submitted line of text is
// interpreted.
type Step int

const (
	StepAwaitingOpen Step = iota
	StepAwaitingName
	StepAwaitingPresence
	StepAwaitingEmail
	StepLiveChat
)

func (s Step) String() string {
	switch s {
	case StepAwaitingName:
		return "awaiting_name"
	case StepAwaitingPresence:
		return "awaiting_presence"
	case StepAwaitingEmail:
		return "awaiting_email"
	case StepLiveChat:
		return "live_chat"
	default:
		return "awaiting_open"
	}
}

// Connector is the slice of the connection manager the machine drives.
type Connector interface {
	Connect(ctx context.Context, session *domain.UserSession) error
	Send(ctx context.Context, msg domain.ChatMessage) error
	Authenticated() bool
}

// Machine drives the onboarding conversation: name, presence check, then
// live chat or email collection. It owns the conversation step and the
// visitor session and is mutated only from the widget event loop.
type Machine struct {
	store store.SessionStore
	conn  Connector
	log   *Log

	operatorID   string
	operatorName string

	step    Step
	session *domain.UserSession

	// At most the latest line typed while presence is still resolving.
	pending      string
	pendingAcked bool
}

// NewMachine creates a conversation machine in the AwaitingOpen step.
func NewMachine(sessionStore store.SessionStore, conn Connector, log *Log, operatorID, operatorName string) *Machine {
	return &Machine{
		store:        sessionStore,
		conn:         conn,
		log:          log,
		operatorID:   operatorID,
		operatorName: operatorName,
	}
}

// Step returns the current conversation step.
func (m *Machine) Step() Step { return m.step }

// Session returns the current visitor session, nil before onboarding.
func (m *Machine) Session() *domain.UserSession { return m.session }

// Open starts the conversation when the widget is first shown. A persisted
// session skips onboarding and waits only for the presence check.
func (m *Machine) Open(ctx context.Context) {
	if m.step != StepAwaitingOpen {
		return
	}

	if session := m.store.Load(ctx); session != nil {
		// Known visitor: no re-prompting. Presence still has to resolve, so
		// the step waits there; anything typed meanwhile is buffered and
		// flushed into live chat.
		m.session = session
		m.step = StepAwaitingPresence
		m.system("Welcome back, " + session.Name + "! How can I help you today?")
		m.connect(ctx)
		return
	}

	m.step = StepAwaitingName
	m.system("I am happy that you are here! Whom shall I call you?")
}

// Submit interprets one line of visitor input according to the current
// step. Empty and whitespace-only lines never transition or produce a
// message, at any step.
func (m *Machine) Submit(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	switch m.step {
	case StepAwaitingOpen:
		slog.Debug("Input before widget opened, ignoring")
	case StepAwaitingName:
		m.submitName(ctx, text)
	case StepAwaitingPresence:
		m.bufferPending(text)
	case StepAwaitingEmail:
		m.submitEmail(ctx, text)
	case StepLiveChat:
		m.sendChat(ctx, text)
	}
}

// HandlePresence reacts to an operator reachability transition.
func (m *Machine) HandlePresence(ctx context.Context, tr presence.Transition) {
	if m.step == StepAwaitingPresence {
		m.resolvePresence(ctx, tr)
		return
	}

	switch {
	case tr.To == presence.Offline && m.step == StepLiveChat:
		// An in-progress conversation is never interrupted; the step stays
		// in live chat and offline sends become asynchronous deliveries.
		if m.session.HasEmail() {
			m.system(m.operatorName + " just went offline. Replies will reach you at " + m.session.Email + ".")
		} else {
			m.system(m.operatorName + " just went offline. Leave your email if you'd like a reply later.")
		}
	case tr.To == presence.Online && tr.From == presence.Offline:
		m.system(m.operatorName + " is back online! Feel free to continue the conversation.")
	case tr.To == presence.Online:
		m.system(m.operatorName + " is online! Feel free to ask any questions.")
	}
}

// HandleConnectionLost degrades the conversation when the channel cannot be
// established or is lost. A presence check that will never be answered
// resolves as offline, so a fresh visitor falls back to email capture
// instead of waiting on an answer that cannot arrive.
func (m *Machine) HandleConnectionLost(ctx context.Context) {
	if m.step != StepAwaitingPresence {
		return
	}
	m.resolvePresence(ctx, presence.Transition{From: presence.Unknown, To: presence.Offline})
}

// SystemNotice appends a client-generated notice to the message log.
func (m *Machine) SystemNotice(content string) {
	m.system(content)
}

func (m *Machine) submitName(ctx context.Context, name string) {
	m.session = &domain.UserSession{
		ID:   uuid.NewString(),
		Name: name,
	}
	if err := m.store.Save(ctx, m.session); err != nil {
		slog.Warn("Failed to persist session", "error", err)
	}

	m.step = StepAwaitingPresence
	m.system("Nice to meet you, " + name + "!")
	m.connect(ctx)
}

func (m *Machine) submitEmail(ctx context.Context, email string) {
	// Shape validation of the address is a UI nicety, not a correctness
	// requirement; only non-emptiness is enforced.
	m.session.Email = email
	if err := m.store.Save(ctx, m.session); err != nil {
		slog.Warn("Failed to persist session email", "error", err)
	}

	m.step = StepLiveChat
	m.system("Thank you! We've saved your email and will contact you soon.")
}

func (m *Machine) bufferPending(text string) {
	m.pending = text
	if !m.pendingAcked {
		m.pendingAcked = true
		m.system("One moment while we check who's available...")
	}
}

func (m *Machine) resolvePresence(ctx context.Context, tr presence.Transition) {
	if tr.To == presence.Online {
		m.system(m.operatorName + " is online! Feel free to ask any questions.")
		m.step = StepLiveChat
		m.flushPending(ctx)
		return
	}

	if m.session.HasEmail() {
		// Known visitors are never blocked from typing; the backend accepts
		// offline sends as asynchronous deliveries.
		m.system(m.operatorName + " is currently offline. Your messages will be delivered as soon as possible.")
		m.step = StepLiveChat
		m.flushPending(ctx)
		return
	}

	m.system(m.operatorName + " is currently offline. Please leave your email and we'll get back to you soon.")
	m.step = StepAwaitingEmail
	m.pending = ""
}

func (m *Machine) flushPending(ctx context.Context) {
	if m.pending == "" {
		return
	}
	line := m.pending
	m.pending = ""
	m.sendChat(ctx, line)
}

func (m *Machine) sendChat(ctx context.Context, text string) {
	if !m.conn.Authenticated() {
		m.system("Not connected to the chat server. Please try again in a moment.")
		return
	}

	msg := domain.NewLocalMessage(text, m.session, m.operatorID, m.operatorName)
	// Optimistic local echo, before any server acknowledgment.
	m.log.Append(msg)
	if err := m.conn.Send(ctx, msg); err != nil {
		slog.Warn("Failed to send message", "error", err)
		m.system("Your message could not be delivered. Please try again.")
	}
}

func (m *Machine) connect(ctx context.Context) {
	if err := m.conn.Connect(ctx, m.session); err != nil {
		if shared.IsConfigurationError(err) {
			slog.Error("Chat is not configured", "error", err)
			m.system("Chat is not configured correctly. Please try again later.")
		} else {
			slog.Warn("Failed to connect to chat server", "error", err)
			m.system("Failed to connect to the chat server. Please try again later.")
		}
		m.HandleConnectionLost(ctx)
	}
}

func (m *Machine) system(content string) {
	m.log.Append(domain.NewSystemMessage(content, m.session))
}
