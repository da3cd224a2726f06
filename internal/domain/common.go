package domain

// Side represents the direction of a simulated trade (BUY or SELL).
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// TradeStatus represents the lifecycle state of a simulated trade.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// CloseReason indicates why a trade was closed.
type CloseReason string

const (
	CloseReasonStopLoss   CloseReason = "SL"
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonManual     CloseReason = "MANUAL"  // Explicit close at a caller-supplied price
	CloseReasonFlatten    CloseReason = "FLATTEN" // Closed as part of a flatten-all request
)

// ReplayStatus represents the state of the replay clock.
type ReplayStatus string

const (
	ReplayIdle     ReplayStatus = "idle"
	ReplayPlaying  ReplayStatus = "playing"
	ReplayPaused   ReplayStatus = "paused"
	ReplayFinished ReplayStatus = "finished"
)
