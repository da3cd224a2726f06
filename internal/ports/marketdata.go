package ports

import (
	"context"
	"time"

	"barreplay/internal/domain"
)

// BarProvider supplies ordered historical bars for a (symbol, interval)
// pair. Providers own retry/backoff; the replay core treats an empty result
// as a terminal condition, not a retryable one.
type BarProvider interface {
	// GetBars retrieves the most recent bars up to limit.
	GetBars(ctx context.Context, symbol, interval string, limit int) ([]domain.Bar, error)

	// GetBarsRange retrieves all bars between start and end, paginating as
	// needed.
	GetBarsRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.Bar, error)
}
