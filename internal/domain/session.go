// Package domain contains core domain types for the sitechat client.
package domain

// UserSession identifies a visitor across runs of the widget. It is created
// once, on first name submission, and persisted by the session store; the ID
// never changes for the lifetime of the local profile.
type UserSession struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// HasEmail reports whether the visitor has left a contact email.
func (s *UserSession) HasEmail() bool {
	return s != nil && s.Email != ""
}
