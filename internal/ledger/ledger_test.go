package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barreplay/internal/domain"
	"barreplay/internal/ports"
)

func ptr(v float64) *float64 { return &v }

// newTestLedger returns a ledger with deterministic sequential trade ids.
func newTestLedger() *Ledger {
	l := New("ETHUSDT")
	var n int
	l.newID = func() string {
		n++
		return fmt.Sprintf("trade-%d", n)
	}
	return l
}

func TestPlaceTradeValidation(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name       string
		side       domain.Side
		quantity   float64
		entryPrice float64
		stopLoss   *float64
		takeProfit *float64
		wantErr    bool
	}{
		{name: "valid buy with both levels", side: domain.Buy, quantity: 1, entryPrice: 100, stopLoss: ptr(95), takeProfit: ptr(110)},
		{name: "valid sell with both levels", side: domain.Sell, quantity: 1, entryPrice: 100, stopLoss: ptr(105), takeProfit: ptr(90)},
		{name: "valid buy with no levels", side: domain.Buy, quantity: 1, entryPrice: 100},
		{name: "zero quantity", side: domain.Buy, quantity: 0, entryPrice: 100, wantErr: true},
		{name: "negative quantity", side: domain.Buy, quantity: -5, entryPrice: 100, wantErr: true},
		{name: "zero entry price", side: domain.Buy, quantity: 1, entryPrice: 0, wantErr: true},
		{name: "buy stop above entry", side: domain.Buy, quantity: 1, entryPrice: 100, stopLoss: ptr(101), wantErr: true},
		{name: "buy stop equal to entry", side: domain.Buy, quantity: 1, entryPrice: 100, stopLoss: ptr(100), wantErr: true},
		{name: "buy target below entry", side: domain.Buy, quantity: 1, entryPrice: 100, takeProfit: ptr(99), wantErr: true},
		{name: "sell stop below entry", side: domain.Sell, quantity: 1, entryPrice: 100, stopLoss: ptr(99), wantErr: true},
		{name: "sell target above entry", side: domain.Sell, quantity: 1, entryPrice: 100, takeProfit: ptr(101), wantErr: true},
		{name: "unknown side", side: domain.Side("HOLD"), quantity: 1, entryPrice: 100, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger()
			trade, err := l.PlaceTrade(tt.side, tt.quantity, tt.entryPrice, now, tt.stopLoss, tt.takeProfit)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ports.ErrValidation)
				// Rejected operations leave the ledger untouched.
				assert.Equal(t, 0, l.OpenCount())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.StatusOpen, trade.Status)
			assert.NotEmpty(t, trade.ID)
			assert.Equal(t, 1, l.OpenCount())
		})
	}
}

func TestPlaceTradeReturnsCopy(t *testing.T) {
	l := newTestLedger()
	trade, err := l.PlaceTrade(domain.Buy, 1, 100, time.Now(), ptr(95), nil)
	require.NoError(t, err)

	// Mutating the returned value must not affect the ledger's copy.
	trade.Quantity = 999
	*trade.StopLoss = 1

	snap := l.Snapshot()
	assert.Equal(t, 1.0, snap.OpenTrades[0].Quantity)
	assert.Equal(t, 95.0, *snap.OpenTrades[0].StopLoss)
}

func TestCloseTrade(t *testing.T) {
	l := newTestLedger()
	now := time.Now()
	trade, err := l.PlaceTrade(domain.Buy, 100, 100, now, ptr(95), ptr(110))
	require.NoError(t, err)

	exitTime := now.Add(time.Minute)
	closed, err := l.CloseTrade(trade.ID, 95, exitTime, domain.CloseReasonStopLoss)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusClosed, closed.Status)
	assert.Equal(t, 95.0, closed.ExitPrice)
	assert.Equal(t, exitTime, closed.ExitTime)
	assert.Equal(t, -500.0, closed.RealizedPnL)
	assert.Equal(t, domain.CloseReasonStopLoss, closed.CloseReason)
	assert.Equal(t, 0, l.OpenCount())
	assert.Equal(t, -500.0, l.CumulativeRealizedPnL())
}

func TestCloseTradeSellSide(t *testing.T) {
	l := newTestLedger()
	now := time.Now()
	trade, err := l.PlaceTrade(domain.Sell, 50, 50, now, ptr(52), nil)
	require.NoError(t, err)

	closed, err := l.CloseTrade(trade.ID, 52, now.Add(time.Minute), domain.CloseReasonStopLoss)
	require.NoError(t, err)
	assert.Equal(t, -100.0, closed.RealizedPnL)
}

func TestCloseTradeIdempotency(t *testing.T) {
	l := newTestLedger()
	now := time.Now()
	trade, err := l.PlaceTrade(domain.Buy, 10, 100, now, nil, nil)
	require.NoError(t, err)

	_, err = l.CloseTrade(trade.ID, 105, now, domain.CloseReasonManual)
	require.NoError(t, err)
	assert.Equal(t, 50.0, l.CumulativeRealizedPnL())

	// Closing the same id again is an error, not a silent no-op, and the
	// cumulative P&L changes only once.
	_, err = l.CloseTrade(trade.ID, 200, now, domain.CloseReasonManual)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrNotFound)
	assert.Equal(t, 50.0, l.CumulativeRealizedPnL())
	assert.Len(t, l.Snapshot().ClosedTrades, 1)
}

func TestCloseUnknownTrade(t *testing.T) {
	l := newTestLedger()
	_, err := l.CloseTrade("nope", 100, time.Now(), domain.CloseReasonManual)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestCloseTradePreservesOpenOrder(t *testing.T) {
	l := newTestLedger()
	now := time.Now()
	first, _ := l.PlaceTrade(domain.Buy, 1, 100, now, nil, nil)
	second, _ := l.PlaceTrade(domain.Buy, 1, 101, now, nil, nil)
	third, _ := l.PlaceTrade(domain.Buy, 1, 102, now, nil, nil)

	_, err := l.CloseTrade(second.ID, 105, now, domain.CloseReasonManual)
	require.NoError(t, err)

	open := l.OpenTrades()
	require.Len(t, open, 2)
	assert.Equal(t, first.ID, open[0].ID)
	assert.Equal(t, third.ID, open[1].ID)
}

func TestFlattenAll(t *testing.T) {
	l := newTestLedger()
	now := time.Now()
	buy, _ := l.PlaceTrade(domain.Buy, 2, 90, now, nil, nil)
	sell, _ := l.PlaceTrade(domain.Sell, 3, 120, now, nil, nil)

	exitTime := now.Add(time.Hour)
	closed := l.FlattenAll(100, exitTime)

	// Two closed trades, in original open order.
	require.Len(t, closed, 2)
	assert.Equal(t, buy.ID, closed[0].ID)
	assert.Equal(t, sell.ID, closed[1].ID)
	assert.Equal(t, 0, l.OpenCount())

	snap := l.Snapshot()
	assert.Len(t, snap.ClosedTrades, 2)
	for _, c := range closed {
		assert.Equal(t, domain.CloseReasonFlatten, c.CloseReason)
		assert.Equal(t, 100.0, c.ExitPrice)
		assert.Equal(t, exitTime, c.ExitTime)
	}

	// Conservation: cumulative P&L equals the independent per-trade sums.
	wantBuy := (100.0 - 90.0) * 2  // +20
	wantSell := (120.0 - 100.0) * 3 // +60
	assert.Equal(t, wantBuy, closed[0].RealizedPnL)
	assert.Equal(t, wantSell, closed[1].RealizedPnL)
	assert.Equal(t, wantBuy+wantSell, l.CumulativeRealizedPnL())
}

func TestFlattenAllEmpty(t *testing.T) {
	l := newTestLedger()
	assert.Nil(t, l.FlattenAll(100, time.Now()))
	assert.Equal(t, 0.0, l.CumulativeRealizedPnL())
}

func TestUnrealizedPnL(t *testing.T) {
	l := newTestLedger()
	now := time.Now()
	l.PlaceTrade(domain.Buy, 2, 100, now, nil, nil)
	l.PlaceTrade(domain.Sell, 1, 100, now, nil, nil)

	// Buy gains (105-100)*2 = +10, sell loses (100-105)*1 = -5.
	assert.Equal(t, 5.0, l.UnrealizedPnL(105))
	// Marking does not mutate anything.
	assert.Equal(t, 2, l.OpenCount())
	assert.Equal(t, 0.0, l.CumulativeRealizedPnL())
}

func TestReset(t *testing.T) {
	l := newTestLedger()
	now := time.Now()
	trade, _ := l.PlaceTrade(domain.Buy, 1, 100, now, nil, nil)
	l.CloseTrade(trade.ID, 110, now, domain.CloseReasonManual)
	l.PlaceTrade(domain.Buy, 1, 100, now, nil, nil)

	l.Reset()
	snap := l.Snapshot()
	assert.Empty(t, snap.OpenTrades)
	assert.Empty(t, snap.ClosedTrades)
	assert.Equal(t, 0.0, snap.CumulativeRealizedPnL)
}

func TestRestoreRoundTrip(t *testing.T) {
	l := newTestLedger()
	now := time.Now()
	trade, _ := l.PlaceTrade(domain.Buy, 1, 100, now, ptr(95), nil)
	l.CloseTrade(trade.ID, 110, now, domain.CloseReasonManual)
	l.PlaceTrade(domain.Sell, 2, 120, now, nil, nil)
	snap := l.Snapshot()

	restored := newTestLedger()
	restored.Restore(snap)
	assert.Equal(t, snap, restored.Snapshot())
	assert.Equal(t, snap.CumulativeRealizedPnL, restored.CumulativeRealizedPnL())
}
