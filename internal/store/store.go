// Package store provides session persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/avalier/sitechat/internal/domain"
)

// SessionStore persists the visitor's session record across widget runs.
//
// Load is fail-closed: any read or scan failure behaves as if no session
// exists rather than surfacing an error. Save always overwrites the full
// record; callers read-modify-write, there is no partial-field merge.
type SessionStore interface {
	// Load retrieves the persisted session, or nil when none exists.
	Load(ctx context.Context) *domain.UserSession

	// Save creates or overwrites the session record. Idempotent.
	Save(ctx context.Context, session *domain.UserSession) error

	// Clear removes the persisted session record.
	Clear(ctx context.Context) error

	// Close closes the underlying storage.
	Close() error
}
