// Package ledger owns the set of open and closed simulated trades for one
// replay session. It is the single writer of trade state: the exit detector
// and observers only ever see copies taken via Snapshot.
package ledger

import (
	"fmt"
	"time"

	"barreplay/internal/domain"
	"barreplay/internal/idgen"
	"barreplay/internal/ports"
)

// Ledger applies entry, exit and flatten operations and keeps the running
// realized P&L. It is not safe for concurrent use; the replay service
// serializes access.
type Ledger struct {
	symbol string
	open   []*domain.Trade
	closed []*domain.Trade
	pnl    float64

	newID func() string // Injectable for deterministic tests
}

// New creates an empty ledger for the given symbol.
func New(symbol string) *Ledger {
	return &Ledger{symbol: symbol, newID: idgen.New}
}

// PlaceTrade validates and opens a new trade at the given entry price.
// Validation failures wrap ports.ErrValidation and leave the ledger
// untouched. The returned trade is a copy; the ledger keeps the
// authoritative one.
func (l *Ledger) PlaceTrade(side domain.Side, quantity, entryPrice float64, entryTime time.Time, stopLoss, takeProfit *float64) (domain.Trade, error) {
	if side != domain.Buy && side != domain.Sell {
		return domain.Trade{}, fmt.Errorf("unknown side %q: %w", side, ports.ErrValidation)
	}
	if quantity <= 0 {
		return domain.Trade{}, fmt.Errorf("quantity must be positive, got %v: %w", quantity, ports.ErrValidation)
	}
	if entryPrice <= 0 {
		return domain.Trade{}, fmt.Errorf("entry price must be positive, got %v: %w", entryPrice, ports.ErrValidation)
	}
	if err := validateLevels(side, entryPrice, stopLoss, takeProfit); err != nil {
		return domain.Trade{}, err
	}

	t := &domain.Trade{
		ID:         l.newID(),
		Symbol:     l.symbol,
		Side:       side,
		Quantity:   quantity,
		EntryPrice: entryPrice,
		EntryTime:  entryTime,
		StopLoss:   copyLevel(stopLoss),
		TakeProfit: copyLevel(takeProfit),
		Status:     domain.StatusOpen,
	}
	l.open = append(l.open, t)
	return *t, nil
}

// validateLevels checks stop/target ordering relative to the trade side:
// for a Buy, stopLoss < entryPrice < takeProfit for whichever levels are
// set; for a Sell the inequalities invert.
func validateLevels(side domain.Side, entryPrice float64, stopLoss, takeProfit *float64) error {
	if side == domain.Buy {
		if stopLoss != nil && *stopLoss >= entryPrice {
			return fmt.Errorf("buy stop-loss %v must be below entry %v: %w", *stopLoss, entryPrice, ports.ErrValidation)
		}
		if takeProfit != nil && *takeProfit <= entryPrice {
			return fmt.Errorf("buy take-profit %v must be above entry %v: %w", *takeProfit, entryPrice, ports.ErrValidation)
		}
		return nil
	}
	if stopLoss != nil && *stopLoss <= entryPrice {
		return fmt.Errorf("sell stop-loss %v must be above entry %v: %w", *stopLoss, entryPrice, ports.ErrValidation)
	}
	if takeProfit != nil && *takeProfit >= entryPrice {
		return fmt.Errorf("sell take-profit %v must be below entry %v: %w", *takeProfit, entryPrice, ports.ErrValidation)
	}
	return nil
}

// CloseTrade closes the open trade with the given id at exitPrice, computes
// its realized P&L and moves it to the closed sequence. Closing an unknown
// or already-closed id returns ports.ErrNotFound and changes nothing, so
// the cumulative P&L is updated exactly once per trade.
func (l *Ledger) CloseTrade(id string, exitPrice float64, exitTime time.Time, reason domain.CloseReason) (domain.Trade, error) {
	idx := -1
	for i, t := range l.open {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Trade{}, fmt.Errorf("open trade %q: %w", id, ports.ErrNotFound)
	}

	t := l.open[idx]
	t.ExitPrice = exitPrice
	t.ExitTime = exitTime
	t.RealizedPnL = t.PnLAt(exitPrice)
	t.Status = domain.StatusClosed
	t.CloseReason = reason

	// Remove by id, preserving the relative order of the remaining open
	// trades.
	l.open = append(l.open[:idx], l.open[idx+1:]...)
	l.closed = append(l.closed, t)
	l.pnl += t.RealizedPnL
	return *t, nil
}

// FlattenAll closes every open trade at the same price and time, in the
// order they were opened. The aggregate P&L is applied as one step so no
// observer ever sees a partially flattened book.
func (l *Ledger) FlattenAll(exitPrice float64, exitTime time.Time) []domain.Trade {
	if len(l.open) == 0 {
		return nil
	}
	closed := make([]domain.Trade, 0, len(l.open))
	var delta float64
	for _, t := range l.open {
		t.ExitPrice = exitPrice
		t.ExitTime = exitTime
		t.RealizedPnL = t.PnLAt(exitPrice)
		t.Status = domain.StatusClosed
		t.CloseReason = domain.CloseReasonFlatten
		delta += t.RealizedPnL
		l.closed = append(l.closed, t)
		closed = append(closed, *t)
	}
	l.open = l.open[:0]
	l.pnl += delta
	return closed
}

// UnrealizedPnL returns the P&L the open trades would realize at the given
// mark price. Pure read, no state change.
func (l *Ledger) UnrealizedPnL(markPrice float64) float64 {
	var total float64
	for _, t := range l.open {
		total += t.PnLAt(markPrice)
	}
	return total
}

// OpenTrades returns a copy of the open trades in entry order.
func (l *Ledger) OpenTrades() []domain.Trade {
	out := make([]domain.Trade, len(l.open))
	for i, t := range l.open {
		out[i] = *t
	}
	return out
}

// OpenCount returns the number of open trades.
func (l *Ledger) OpenCount() int {
	return len(l.open)
}

// CumulativeRealizedPnL returns the realized P&L across all closed trades.
func (l *Ledger) CumulativeRealizedPnL() float64 {
	return l.pnl
}

// Snapshot returns a consistent copy of the whole book.
func (l *Ledger) Snapshot() domain.LedgerSnapshot {
	snap := domain.LedgerSnapshot{
		OpenTrades:            make([]domain.Trade, len(l.open)),
		ClosedTrades:          make([]domain.Trade, len(l.closed)),
		CumulativeRealizedPnL: l.pnl,
	}
	for i, t := range l.open {
		snap.OpenTrades[i] = *t
	}
	for i, t := range l.closed {
		snap.ClosedTrades[i] = *t
	}
	return snap
}

// Restore replaces the ledger contents with a previously saved snapshot.
// Used when loading a stored session.
func (l *Ledger) Restore(snap domain.LedgerSnapshot) {
	l.open = make([]*domain.Trade, len(snap.OpenTrades))
	for i := range snap.OpenTrades {
		t := snap.OpenTrades[i]
		l.open[i] = &t
	}
	l.closed = make([]*domain.Trade, len(snap.ClosedTrades))
	for i := range snap.ClosedTrades {
		t := snap.ClosedTrades[i]
		l.closed[i] = &t
	}
	l.pnl = snap.CumulativeRealizedPnL
}

// Reset clears both trade collections and zeroes the cumulative P&L.
// Used when selecting a new simulation start point.
func (l *Ledger) Reset() {
	l.open = nil
	l.closed = nil
	l.pnl = 0
}

func copyLevel(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
