package channel

import (
	"time"

	"github.com/avalier/sitechat/internal/domain"
)

// Client-originated frame types. Authentication is not a frame: credentials
// travel as connection-level query parameters on the dial URL.
const (
	TypeCheckPresence = "check_presence"
	TypeSendMessage   = "send_message"
	TypeHeartbeat     = "heartbeat"
)

// Server-originated frame types.
const (
	TypeConnected       = "connected"
	TypePresenceStatus  = "presence_status"
	TypeMessage         = "message"
	TypeMessageAccepted = "message_accepted"
	TypeError           = "error"
	TypeHeartbeatAck    = "heartbeat_ack"
)

// Frame is the flat JSON envelope exchanged with the messaging backend.
// Which fields are populated depends on Type; unknown fields are ignored on
// decode.
type Frame struct {
	Type string `json:"type"`

	// presence_status / check_presence
	SubjectID string `json:"subject_id,omitempty"`
	Online    bool   `json:"online,omitempty"`

	// message / send_message / message_accepted
	MessageID     string `json:"message_id,omitempty"`
	Content       string `json:"content,omitempty"`
	ContentType   string `json:"content_type,omitempty"`
	SenderID      string `json:"sender_id,omitempty"`
	RecipientID   string `json:"recipient_id,omitempty"`
	SenderName    string `json:"sender_name,omitempty"`
	RecipientName string `json:"recipient_name,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// ChatMessage converts a server message frame into a log entry. Origin is
// derived from the sender id; an unparseable timestamp falls back to arrival
// time rather than dropping the message.
func (f Frame) ChatMessage(sessionID string) domain.ChatMessage {
	ts, err := time.Parse(time.RFC3339Nano, f.Timestamp)
	if err != nil {
		ts = time.Now()
	}
	return domain.ChatMessage{
		MessageID:     f.MessageID,
		Content:       f.Content,
		SenderID:      f.SenderID,
		RecipientID:   f.RecipientID,
		SenderName:    f.SenderName,
		RecipientName: f.RecipientName,
		Timestamp:     ts,
		Origin:        domain.OriginFor(f.SenderID, sessionID),
	}
}
