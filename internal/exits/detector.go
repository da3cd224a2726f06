// Package exits decides which open trades hit their stop-loss or
// take-profit levels within a bar, and at what price.
package exits

import "barreplay/internal/domain"

// Exit describes one triggered exit for the trade ledger to apply.
type Exit struct {
	TradeID string
	Price   float64
	Reason  domain.CloseReason
}

// Detect evaluates every open trade against the bar's high/low. Bars carry
// no sub-bar resolution, so both levels are checked against the same bar;
// when a bar gaps through both, the stop-loss wins. That is a deliberate
// conservative tie-break favoring the worse-case fill so backtest
// performance is never overstated.
//
// A trade with neither level set never auto-exits.
func Detect(openTrades []domain.Trade, bar domain.Bar) []Exit {
	var out []Exit
	for i := range openTrades {
		if e, ok := detectOne(&openTrades[i], bar); ok {
			out = append(out, e)
		}
	}
	return out
}

func detectOne(t *domain.Trade, bar domain.Bar) (Exit, bool) {
	if t.Side == domain.Sell {
		// A sell stops out when price rises to the stop, takes profit when
		// price falls to the target.
		if t.StopLoss != nil && bar.High >= *t.StopLoss {
			return Exit{TradeID: t.ID, Price: *t.StopLoss, Reason: domain.CloseReasonStopLoss}, true
		}
		if t.TakeProfit != nil && bar.Low <= *t.TakeProfit {
			return Exit{TradeID: t.ID, Price: *t.TakeProfit, Reason: domain.CloseReasonTakeProfit}, true
		}
		return Exit{}, false
	}
	if t.StopLoss != nil && bar.Low <= *t.StopLoss {
		return Exit{TradeID: t.ID, Price: *t.StopLoss, Reason: domain.CloseReasonStopLoss}, true
	}
	if t.TakeProfit != nil && bar.High >= *t.TakeProfit {
		return Exit{TradeID: t.ID, Price: *t.TakeProfit, Reason: domain.CloseReasonTakeProfit}, true
	}
	return Exit{}, false
}
