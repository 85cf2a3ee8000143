package conversation

import (
	"iter"

	"github.com/avalier/sitechat/internal/domain"
)

// Log is the ordered, deduplicated view of all exchanged messages. Entries
// are kept in insertion order for the life of the widget instance; only
// message ids are deduplicated, never content.
type Log struct {
	entries  []domain.ChatMessage
	seen     map[string]struct{}
	onAppend func(domain.ChatMessage)
}

// NewLog creates an empty message log.
func NewLog() *Log {
	return &Log{seen: make(map[string]struct{})}
}

// SetNotify installs a callback invoked for every appended message. The
// widget event loop is single-threaded, so the callback needs no locking.
func (l *Log) SetNotify(fn func(domain.ChatMessage)) {
	l.onAppend = fn
}

// Append adds a message in insertion order and reports whether it was new.
// A message id that was already appended is a no-op; server replays must not
// duplicate entries.
func (l *Log) Append(msg domain.ChatMessage) bool {
	if _, dup := l.seen[msg.MessageID]; dup {
		return false
	}
	l.seen[msg.MessageID] = struct{}{}
	l.entries = append(l.entries, msg)
	if l.onAppend != nil {
		l.onAppend(msg)
	}
	return true
}

// All returns a restartable view over the log in insertion order.
func (l *Log) All() iter.Seq[domain.ChatMessage] {
	return func(yield func(domain.ChatMessage) bool) {
		for _, msg := range l.entries {
			if !yield(msg) {
				return
			}
		}
	}
}

// Len returns the number of appended messages.
func (l *Log) Len() int {
	return len(l.entries)
}
