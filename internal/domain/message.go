package domain

import (
	"time"

	"github.com/google/uuid"
)

// Origin classifies who produced a chat message.
type Origin string

const (
	// OriginLocal marks a message the visitor sent from this widget.
	OriginLocal Origin = "local"
	// OriginRemote marks a message received from the operator.
	OriginRemote Origin = "remote"
	// OriginSystem marks a client-generated notice.
	OriginSystem Origin = "system"
)

// SystemSenderID is the sender id used for client-generated notices.
const SystemSenderID = "system"

// ChatMessage is a single entry in the message log. Entries are append-only
// and kept in insertion order; Origin is derived once at construction and
// never mutated.
type ChatMessage struct {
	MessageID     string    `json:"message_id"`
	Content       string    `json:"content"`
	SenderID      string    `json:"sender_id"`
	RecipientID   string    `json:"recipient_id"`
	SenderName    string    `json:"sender_name"`
	RecipientName string    `json:"recipient_name"`
	Timestamp     time.Time `json:"timestamp"`
	Origin        Origin    `json:"origin"`
}

// NewSystemMessage builds a client-generated notice addressed to the visitor.
// The session may be nil before onboarding completes.
func NewSystemMessage(content string, session *UserSession) ChatMessage {
	msg := ChatMessage{
		MessageID:  uuid.NewString(),
		Content:    content,
		SenderID:   SystemSenderID,
		SenderName: "System",
		Timestamp:  time.Now(),
		Origin:     OriginSystem,
	}
	if session != nil {
		msg.RecipientID = session.ID
		msg.RecipientName = session.Name
	}
	return msg
}

// NewLocalMessage builds a visitor-sent message for optimistic local echo.
func NewLocalMessage(content string, session *UserSession, recipientID, recipientName string) ChatMessage {
	return ChatMessage{
		MessageID:     uuid.NewString(),
		Content:       content,
		SenderID:      session.ID,
		RecipientID:   recipientID,
		SenderName:    session.Name,
		RecipientName: recipientName,
		Timestamp:     time.Now(),
		Origin:        OriginLocal,
	}
}

// OriginFor derives a message origin from its sender: messages sent by the
// current session are local, everything else is remote.
func OriginFor(senderID, sessionID string) Origin {
	if senderID == sessionID && senderID != "" {
		return OriginLocal
	}
	return OriginRemote
}
