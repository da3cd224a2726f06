package domain

// LedgerSnapshot is a consistent, immutable view of the trade ledger.
// ClosedTrades are ordered by closure, OpenTrades by entry.
type LedgerSnapshot struct {
	OpenTrades            []Trade `json:"open_trades"`
	ClosedTrades          []Trade `json:"closed_trades"`
	CumulativeRealizedPnL float64 `json:"cumulative_realized_pnl"`
}

// ReplayState describes the replay clock at a point in time. Everything a
// renderer derives (visible bar window, running P&L) is a pure function of
// this state plus the bar series and ledger snapshot.
type ReplayState struct {
	Cursor       int          `json:"cursor"`
	Status       ReplayStatus `json:"status"`
	Speed        int          `json:"speed"`       // Bars advanced per timer tick
	IntervalMS   int64        `json:"interval_ms"` // Timer tick interval
	SeriesLength int          `json:"series_length"`
}
