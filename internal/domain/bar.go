package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSeries marks a bar slice whose open times are not strictly
// increasing. Declared here rather than in ports so the constructor can
// return it; ports re-exports it.
var ErrInvalidSeries = errors.New("bar series is not strictly time-ordered")

// Bar represents a single OHLC candlestick for a fixed time interval.
// Bars are immutable once produced by a data provider.
type Bar struct {
	OpenTime  time.Time `json:"open_time"`  // Start time of the interval
	CloseTime time.Time `json:"close_time"` // End time of the interval
	Symbol    string    `json:"symbol"`     // Trading symbol
	Interval  string    `json:"interval"`   // Bar interval (e.g., "1m", "1h")
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Series is an immutable, time-ordered sequence of bars for one
// symbol/timeframe. Ordering is the provider's responsibility, but the
// constructor validates it defensively: open times must be strictly
// increasing, no duplicates.
type Series struct {
	bars []Bar
}

// NewSeries validates and wraps a slice of bars. The slice is copied so
// later mutation by the caller cannot affect the series.
func NewSeries(bars []Bar) (*Series, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].OpenTime.After(bars[i-1].OpenTime) {
			return nil, fmt.Errorf("bar %d open time %s is not after bar %d open time %s: %w",
				i, bars[i].OpenTime, i-1, bars[i-1].OpenTime, ErrInvalidSeries)
		}
	}
	copied := make([]Bar, len(bars))
	copy(copied, bars)
	return &Series{bars: copied}, nil
}

// Len returns the number of bars in the series.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.bars)
}

// At returns the bar at index i. Panics on out-of-range access; callers
// clamp the cursor before reading.
func (s *Series) At(i int) Bar {
	return s.bars[i]
}

// Window returns the bars in [0, end], the portion visible when the replay
// cursor sits at index end. end is clamped to the series bounds.
func (s *Series) Window(end int) []Bar {
	if s.Len() == 0 {
		return nil
	}
	if end < 0 {
		end = 0
	}
	if end > len(s.bars)-1 {
		end = len(s.bars) - 1
	}
	out := make([]Bar, end+1)
	copy(out, s.bars[:end+1])
	return out
}

// Bars returns a copy of all bars in the series.
func (s *Series) Bars() []Bar {
	return s.Window(s.Len() - 1)
}
