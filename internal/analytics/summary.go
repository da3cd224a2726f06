// Package analytics derives summary statistics from closed trades for
// presentation. All functions are pure over a ledger snapshot.
package analytics

import (
	"math"
	"time"

	"barreplay/internal/domain"
)

// Summary holds the headline statistics shown next to a replay session.
type Summary struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	TotalPnL      float64
	GrossProfit   float64
	GrossLoss     float64 // Reported as a positive magnitude
	ProfitFactor  float64 // math.Inf(1) when there are profits but no losses yet
	BiggestWin    float64
	BiggestLoss   float64
	AverageWin    float64
	AverageLoss   float64
}

// ComputeSummary calculates the headline statistics over closed trades.
// An empty input yields the zero Summary: win rate 0, never NaN.
//
// Profit factor with zero gross loss and positive gross profit is positive
// infinity ("no losses yet"); with no trades at all it is 0. Biggest
// win/loss ties resolve to the first occurrence.
func ComputeSummary(closedTrades []domain.Trade) Summary {
	var s Summary
	for _, t := range closedTrades {
		s.TotalTrades++
		s.TotalPnL += t.RealizedPnL
		if t.RealizedPnL > 0 {
			s.WinningTrades++
			s.GrossProfit += t.RealizedPnL
			if t.RealizedPnL > s.BiggestWin {
				s.BiggestWin = t.RealizedPnL
			}
		} else {
			s.LosingTrades++
			s.GrossLoss += -t.RealizedPnL
			if t.RealizedPnL < s.BiggestLoss {
				s.BiggestLoss = t.RealizedPnL
			}
		}
	}
	if s.TotalTrades == 0 {
		return s
	}
	s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades)
	if s.WinningTrades > 0 {
		s.AverageWin = s.GrossProfit / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AverageLoss = -s.GrossLoss / float64(s.LosingTrades)
	}
	switch {
	case s.GrossLoss > 0:
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	case s.GrossProfit > 0:
		s.ProfitFactor = math.Inf(1)
	}
	return s
}

// EquityPoint is a point on the realized equity curve.
type EquityPoint struct {
	Time     time.Time
	Value    float64
	Drawdown float64
}

// Performance extends Summary with the path-dependent metrics a session
// report shows: drawdown, streaks, expectancy, the equity curve.
type Performance struct {
	Summary
	MaxDrawdown          float64 // Fraction of the peak equity
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	Expectancy           float64
	AverageDuration      time.Duration
	EquityCurve          []EquityPoint
}

// AnalyzePerformance walks the closed trades in closure order, tracking the
// equity curve from initialBalance and the drawdown against the running
// peak.
func AnalyzePerformance(closedTrades []domain.Trade, initialBalance float64) Performance {
	p := Performance{Summary: ComputeSummary(closedTrades)}
	if p.TotalTrades == 0 {
		return p
	}

	balance := initialBalance
	peak := initialBalance
	var wins, losses int
	var totalDuration time.Duration

	for _, t := range closedTrades {
		balance += t.RealizedPnL
		if balance > peak {
			peak = balance
		}
		var dd float64
		if peak > 0 {
			dd = (peak - balance) / peak
		}
		if dd > p.MaxDrawdown {
			p.MaxDrawdown = dd
		}
		p.EquityCurve = append(p.EquityCurve, EquityPoint{
			Time:     t.ExitTime,
			Value:    balance,
			Drawdown: dd,
		})

		if t.RealizedPnL > 0 {
			wins++
			losses = 0
		} else {
			losses++
			wins = 0
		}
		if wins > p.MaxConsecutiveWins {
			p.MaxConsecutiveWins = wins
		}
		if losses > p.MaxConsecutiveLosses {
			p.MaxConsecutiveLosses = losses
		}
		totalDuration += t.ExitTime.Sub(t.EntryTime)
	}

	p.Expectancy = p.WinRate*p.AverageWin + (1-p.WinRate)*p.AverageLoss
	p.AverageDuration = totalDuration / time.Duration(p.TotalTrades)
	return p
}
