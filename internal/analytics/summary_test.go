package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barreplay/internal/domain"
)

func closedTrade(pnl float64, entry, exit time.Time) domain.Trade {
	return domain.Trade{
		Symbol:      "ETHUSDT",
		Side:        domain.Buy,
		Quantity:    1,
		EntryTime:   entry,
		ExitTime:    exit,
		RealizedPnL: pnl,
		Status:      domain.StatusClosed,
	}
}

func closedPnL(pnls ...float64) []domain.Trade {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trades := make([]domain.Trade, len(pnls))
	for i, p := range pnls {
		entry := base.Add(time.Duration(i) * time.Hour)
		trades[i] = closedTrade(p, entry, entry.Add(30*time.Minute))
	}
	return trades
}

func TestComputeSummaryEmpty(t *testing.T) {
	s := ComputeSummary(nil)
	assert.Equal(t, 0, s.TotalTrades)
	assert.Equal(t, 0.0, s.WinRate)
	assert.Equal(t, 0.0, s.ProfitFactor)
	assert.Equal(t, 0.0, s.TotalPnL)
	assert.False(t, math.IsNaN(s.WinRate))
}

func TestComputeSummary(t *testing.T) {
	s := ComputeSummary(closedPnL(100, -50, 200, -25, 0))

	assert.Equal(t, 5, s.TotalTrades)
	assert.Equal(t, 2, s.WinningTrades)
	// Break-even trades count as losses.
	assert.Equal(t, 3, s.LosingTrades)
	assert.Equal(t, 0.4, s.WinRate)
	assert.Equal(t, 225.0, s.TotalPnL)
	assert.Equal(t, 300.0, s.GrossProfit)
	assert.Equal(t, 75.0, s.GrossLoss)
	assert.Equal(t, 4.0, s.ProfitFactor)
	assert.Equal(t, 200.0, s.BiggestWin)
	assert.Equal(t, -50.0, s.BiggestLoss)
	assert.Equal(t, 150.0, s.AverageWin)
	assert.Equal(t, -25.0, s.AverageLoss)
}

func TestComputeSummaryNoLosses(t *testing.T) {
	s := ComputeSummary(closedPnL(100, 50))
	assert.True(t, math.IsInf(s.ProfitFactor, 1))
	assert.Equal(t, 1.0, s.WinRate)
	assert.Equal(t, 0.0, s.AverageLoss)
}

func TestComputeSummaryAllLosses(t *testing.T) {
	s := ComputeSummary(closedPnL(-100, -50))
	assert.Equal(t, 0.0, s.ProfitFactor)
	assert.Equal(t, 0.0, s.WinRate)
	assert.Equal(t, 150.0, s.GrossLoss)
	assert.Equal(t, -75.0, s.AverageLoss)
}

func TestAnalyzePerformanceEmpty(t *testing.T) {
	p := AnalyzePerformance(nil, 10000)
	assert.Equal(t, 0, p.TotalTrades)
	assert.Empty(t, p.EquityCurve)
	assert.Equal(t, 0.0, p.MaxDrawdown)
}

func TestAnalyzePerformance(t *testing.T) {
	// Equity from 1000: 1100, 1050, 1000, 1200. Peak 1100 until the last
	// trade, deepest trough 1000 for a 100/1100 drawdown.
	p := AnalyzePerformance(closedPnL(100, -50, -50, 200), 1000)

	require.Len(t, p.EquityCurve, 4)
	assert.Equal(t, 1100.0, p.EquityCurve[0].Value)
	assert.Equal(t, 1050.0, p.EquityCurve[1].Value)
	assert.Equal(t, 1000.0, p.EquityCurve[2].Value)
	assert.Equal(t, 1200.0, p.EquityCurve[3].Value)
	assert.InDelta(t, 100.0/1100.0, p.MaxDrawdown, 1e-9)

	assert.Equal(t, 1, p.MaxConsecutiveWins)
	assert.Equal(t, 2, p.MaxConsecutiveLosses)
	assert.Equal(t, 30*time.Minute, p.AverageDuration)

	// Expectancy: 0.5*150 + 0.5*(-50) = 50 per trade.
	assert.InDelta(t, 50.0, p.Expectancy, 1e-9)
}

func TestAnalyzePerformanceStreaks(t *testing.T) {
	p := AnalyzePerformance(closedPnL(10, 10, 10, -5, -5, 10), 1000)
	assert.Equal(t, 3, p.MaxConsecutiveWins)
	assert.Equal(t, 2, p.MaxConsecutiveLosses)
}
