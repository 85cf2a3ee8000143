package domain

import "testing"

func TestOriginFor(t *testing.T) {
	tests := []struct {
		name      string
		senderID  string
		sessionID string
		want      Origin
	}{
		{"own message", "u-1", "u-1", OriginLocal},
		{"operator message", "operator", "u-1", OriginRemote},
		{"empty sender", "", "u-1", OriginRemote},
		{"both empty", "", "", OriginRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OriginFor(tt.senderID, tt.sessionID); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestHasEmail(t *testing.T) {
	var nilSession *UserSession
	if nilSession.HasEmail() {
		t.Error("Expected a nil session to have no email")
	}
	if (&UserSession{ID: "u-1", Name: "Ada"}).HasEmail() {
		t.Error("Expected an empty email to report false")
	}
	if !(&UserSession{ID: "u-1", Name: "Ada", Email: "ada@example.com"}).HasEmail() {
		t.Error("Expected a set email to report true")
	}
}

func TestNewSystemMessage(t *testing.T) {
	session := &UserSession{ID: "u-1", Name: "Ada"}

	msg := NewSystemMessage("welcome", session)
	if msg.Origin != OriginSystem {
		t.Errorf("Expected a system origin, got %s", msg.Origin)
	}
	if msg.SenderID != SystemSenderID {
		t.Errorf("Expected the system sender, got %q", msg.SenderID)
	}
	if msg.MessageID == "" {
		t.Error("Expected a generated message id")
	}
	if msg.Timestamp.IsZero() {
		t.Error("Expected a timestamp")
	}
}

func TestNewLocalMessage(t *testing.T) {
	session := &UserSession{ID: "u-1", Name: "Ada"}

	msg := NewLocalMessage("hello", session, "operator", "Pascal")
	if msg.Origin != OriginLocal {
		t.Errorf("Expected a local origin, got %s", msg.Origin)
	}
	if msg.SenderID != "u-1" || msg.SenderName != "Ada" {
		t.Errorf("Unexpected sender identity: %+v", msg)
	}
	if msg.RecipientID != "operator" || msg.RecipientName != "Pascal" {
		t.Errorf("Unexpected recipient identity: %+v", msg)
	}
}
