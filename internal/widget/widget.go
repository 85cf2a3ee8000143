// Package widget wires the chat core together and runs its event loop.
package widget

import (
	"context"
	"log/slog"

	"github.com/avalier/sitechat/internal/channel"
	"github.com/avalier/sitechat/internal/config"
	"github.com/avalier/sitechat/internal/conversation"
	"github.com/avalier/sitechat/internal/presence"
	"github.com/avalier/sitechat/internal/store"
)

// Widget is the coordinator that owns the session, the channel, the
// presence tracker, and the conversation state machine. All of them are
// mutated only from the single event loop in Run, so each event is handled
// to completion before the next one is looked at.
type Widget struct {
	cfg     *config.Config
	mgr     *channel.Manager
	tracker *presence.Tracker
	machine *conversation.Machine
	log     *conversation.Log

	submissions chan string
}

// New assembles a widget from configuration and a session store.
func New(cfg *config.Config, sessionStore store.SessionStore) *Widget {
	log := conversation.NewLog()
	mgr := channel.NewManager(cfg.Endpoint, cfg.APIKey, cfg.HeartbeatInterval)
	machine := conversation.NewMachine(sessionStore, mgr, log, cfg.OperatorID, cfg.OperatorName)

	return &Widget{
		cfg:         cfg,
		mgr:         mgr,
		tracker:     presence.NewTracker(cfg.OperatorID),
		machine:     machine,
		log:         log,
		submissions: make(chan string, 8),
	}
}

// Log exposes the message log, the sole input to rendering.
func (w *Widget) Log() *conversation.Log { return w.log }

// Machine exposes the conversation state machine.
func (w *Widget) Machine() *conversation.Machine { return w.machine }

// Submit queues one line of visitor input for the event loop.
func (w *Widget) Submit(text string) {
	select {
	case w.submissions <- text:
	default:
		slog.Warn("Submission buffer full, dropping input")
	}
}

// Run opens the conversation and consumes events until ctx is cancelled.
// The channel is torn down on the way out, so no timers survive Run.
func (w *Widget) Run(ctx context.Context) {
	w.machine.Open(ctx)

	for {
		select {
		case <-ctx.Done():
			w.mgr.Disconnect()
			return
		case text := <-w.submissions:
			w.machine.Submit(ctx, text)
		case ev := <-w.mgr.Events():
			w.handleChannelEvent(ctx, ev)
		}
	}
}

func (w *Widget) handleChannelEvent(ctx context.Context, ev channel.Event) {
	switch ev.Kind {
	case channel.EventAuthenticated:
		w.onAuthenticated(ctx)
	case channel.EventDisconnected:
		slog.Warn("Channel lost", "error", ev.Err)
		w.machine.SystemNotice("Connection to the chat server was lost.")
		w.machine.HandleConnectionLost(ctx)
	case channel.EventFrame:
		w.handleFrame(ctx, ev.Frame)
	}
}

func (w *Widget) onAuthenticated(ctx context.Context) {
	if w.cfg.PresenceDisabled {
		// Degraded configuration: behave as if the operator is always online.
		if tr, changed := w.tracker.Observe(w.cfg.OperatorID, true); changed {
			w.machine.HandlePresence(ctx, tr)
		}
		return
	}

	if err := w.mgr.CheckPresence(ctx, w.cfg.OperatorID); err != nil {
		slog.Warn("Presence query failed", "error", err)
	}
}

func (w *Widget) handleFrame(ctx context.Context, frame channel.Frame) {
	switch frame.Type {
	case channel.TypePresenceStatus:
		if tr, changed := w.tracker.Observe(frame.SubjectID, frame.Online); changed {
			w.machine.HandlePresence(ctx, tr)
		}
	case channel.TypeMessage:
		sessionID := ""
		if session := w.machine.Session(); session != nil {
			sessionID = session.ID
		}
		msg := frame.ChatMessage(sessionID)
		if !w.log.Append(msg) {
			slog.Debug("Duplicate message dropped", "message_id", msg.MessageID)
		}
	case channel.TypeMessageAccepted:
		slog.Debug("Message accepted by server", "message_id", frame.MessageID)
	case channel.TypeError:
		w.machine.SystemNotice("Error: " + frame.Message)
	}
}
