package domain

import "time"

// Trade represents a simulated position opened during bar replay.
// StopLoss and TakeProfit are optional levels; nil means the level is not
// set and the trade never auto-exits on that side.
type Trade struct {
	ID          string      `json:"id"`
	Symbol      string      `json:"symbol"`
	Side        Side        `json:"side"`
	Quantity    float64     `json:"quantity"`
	EntryPrice  float64     `json:"entry_price"`
	EntryTime   time.Time   `json:"entry_time"`
	StopLoss    *float64    `json:"stop_loss,omitempty"`
	TakeProfit  *float64    `json:"take_profit,omitempty"`
	ExitPrice   float64     `json:"exit_price,omitempty"`   // Zero while open
	ExitTime    time.Time   `json:"exit_time,omitempty"`    // Zero value while open
	RealizedPnL float64     `json:"realized_pnl,omitempty"` // Set exactly once on close
	Status      TradeStatus `json:"status"`
	CloseReason CloseReason `json:"close_reason,omitempty"`
}

// IsOpen reports whether the trade has not been closed yet.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}

// PnLAt returns the profit or loss the trade would realize if exited at the
// given price.
func (t *Trade) PnLAt(price float64) float64 {
	if t.Side == Sell {
		return (t.EntryPrice - price) * t.Quantity
	}
	return (price - t.EntryPrice) * t.Quantity
}
