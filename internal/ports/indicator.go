package ports

import (
	"context"

	"barreplay/internal/domain"
)

// IndicatorKind identifies a derived-series calculation.
type IndicatorKind string

const (
	IndicatorSMA       IndicatorKind = "SMA"
	IndicatorEMA       IndicatorKind = "EMA"
	IndicatorRSI       IndicatorKind = "RSI"
	IndicatorMACD      IndicatorKind = "MACD"
	IndicatorBollinger IndicatorKind = "BBANDS"
)

// IndicatorRequest declares which indicator to compute and with which
// parameters (e.g. {"period": 14}).
type IndicatorRequest struct {
	Kind   IndicatorKind
	Params map[string]float64
}

// IndicatorSeries is a warm-up-adjusted sequence of derived values parallel
// to the bar series: Values[i] corresponds to the bar at index Offset+i.
type IndicatorSeries struct {
	Kind   IndicatorKind
	Offset int
	Values []float64
}

// IndicatorCalculator computes derived series over a bar series. The replay
// core does not recompute or validate indicator math; it only forwards
// results for presentation.
type IndicatorCalculator interface {
	Compute(ctx context.Context, series *domain.Series, req IndicatorRequest) (*IndicatorSeries, error)
}
