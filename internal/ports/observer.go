package ports

import (
	"context"

	"barreplay/internal/domain"
)

// ReplayObserver receives the full ledger snapshot and replay state after
// every applied tick (and after user operations that change either).
// Observers are called synchronously once the tick is fully applied, so the
// delivered state is never a partial view; they must render and return, and
// must never call back into the replay service.
type ReplayObserver interface {
	OnTick(ctx context.Context, snapshot domain.LedgerSnapshot, state domain.ReplayState)
}

// ObserverFunc adapts a plain function to the ReplayObserver interface.
type ObserverFunc func(ctx context.Context, snapshot domain.LedgerSnapshot, state domain.ReplayState)

// OnTick calls f.
func (f ObserverFunc) OnTick(ctx context.Context, snapshot domain.LedgerSnapshot, state domain.ReplayState) {
	f(ctx, snapshot, state)
}
