package ports

import (
	"context"
	"time"

	"barreplay/internal/domain"
)

// SessionInfo summarizes a stored replay session.
type SessionInfo struct {
	Key       string
	UpdatedAt time.Time
}

// SessionRepository is an opaque key -> JSON-document store for saved replay
// sessions and templates. Semantics are last-write-wins; the core never
// assumes transactional guarantees beyond that.
type SessionRepository interface {
	// SaveSession stores the document under key, overwriting any previous
	// document.
	SaveSession(ctx context.Context, key string, document []byte) error
	// LoadSession retrieves the document stored under key.
	// Returns ErrNotFound if the key does not exist.
	LoadSession(ctx context.Context, key string) ([]byte, error)
	// ListSessions returns stored sessions ordered by most recent update.
	ListSessions(ctx context.Context) ([]SessionInfo, error)
	// DeleteSession removes the document stored under key, if present.
	DeleteSession(ctx context.Context, key string) error
}

// TradeJournal records closed trades per session for "recent trades"
// displays and offline analysis.
type TradeJournal interface {
	// RecordClosedTrades appends closed trades for a session.
	RecordClosedTrades(ctx context.Context, sessionKey string, trades []domain.Trade) error
	// FindClosedTrades retrieves the most recent closed trades for a
	// session, up to limit, ordered by exit time descending.
	FindClosedTrades(ctx context.Context, sessionKey string, limit int) ([]domain.Trade, error)
}
