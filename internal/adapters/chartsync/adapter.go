// Package chartsync translates ledger and replay state into chart
// annotations. It is the only place that diffs against previously rendered
// state; the core hands it immutable snapshots and never reads rendering
// state back.
package chartsync

import (
	"context"
	"sort"
	"time"

	"barreplay/internal/domain"
	"barreplay/internal/ports"
)

// AnnotationKind identifies a chart primitive.
type AnnotationKind string

const (
	KindEntryLine   AnnotationKind = "entry_line"  // Horizontal line at an open trade's entry
	KindStopLine    AnnotationKind = "stop_line"   // Horizontal line at an open trade's stop-loss
	KindTargetLine  AnnotationKind = "target_line" // Horizontal line at an open trade's take-profit
	KindEntryMarker AnnotationKind = "entry_marker"
	KindExitMarker  AnnotationKind = "exit_marker"
)

// Annotation is one chart primitive, modeled purely as data. ID is stable
// across ticks (tradeID + kind) so renderers can track object identity.
type Annotation struct {
	ID      string
	Kind    AnnotationKind
	TradeID string
	Side    domain.Side
	Price   float64
	Time    time.Time
}

// OpKind distinguishes diff operations.
type OpKind string

const (
	OpAdd    OpKind = "add"
	OpRemove OpKind = "remove"
)

// Op is a single rendering instruction produced by the diff.
type Op struct {
	Kind       OpKind
	Annotation Annotation
}

// Renderer consumes diff operations. Implementations draw on the charting
// surface; the test renderer just records.
type Renderer interface {
	Apply(ctx context.Context, ops []Op)
}

// Adapter implements ports.ReplayObserver by diffing the desired annotation
// set against what was last rendered and forwarding add/remove ops.
type Adapter struct {
	renderer Renderer
	rendered map[string]Annotation
}

var _ ports.ReplayObserver = (*Adapter)(nil)

// New creates an adapter with an empty rendered set.
func New(renderer Renderer) *Adapter {
	return &Adapter{
		renderer: renderer,
		rendered: make(map[string]Annotation),
	}
}

// OnTick diffs the snapshot against the previously rendered annotations.
// Removes are emitted before adds, each sorted by ID, so op sequences are
// deterministic for a given pair of states.
func (a *Adapter) OnTick(ctx context.Context, snapshot domain.LedgerSnapshot, state domain.ReplayState) {
	desired := desiredAnnotations(snapshot)

	var ops []Op
	for id, ann := range a.rendered {
		if _, ok := desired[id]; !ok {
			ops = append(ops, Op{Kind: OpRemove, Annotation: ann})
		}
	}
	for id, ann := range desired {
		if _, ok := a.rendered[id]; !ok {
			ops = append(ops, Op{Kind: OpAdd, Annotation: ann})
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Kind != ops[j].Kind {
			return ops[i].Kind == OpRemove
		}
		return ops[i].Annotation.ID < ops[j].Annotation.ID
	})

	a.rendered = desired
	if len(ops) > 0 && a.renderer != nil {
		a.renderer.Apply(ctx, ops)
	}
}

// Rendered returns a copy of the currently rendered annotations, keyed by
// ID.
func (a *Adapter) Rendered() map[string]Annotation {
	out := make(map[string]Annotation, len(a.rendered))
	for k, v := range a.rendered {
		out[k] = v
	}
	return out
}

// desiredAnnotations derives the full annotation set for a snapshot: price
// lines and an entry marker for each open trade, entry and exit markers for
// each closed trade.
func desiredAnnotations(snap domain.LedgerSnapshot) map[string]Annotation {
	out := make(map[string]Annotation)
	add := func(kind AnnotationKind, t domain.Trade, price float64, at time.Time) {
		id := t.ID + "/" + string(kind)
		out[id] = Annotation{
			ID:      id,
			Kind:    kind,
			TradeID: t.ID,
			Side:    t.Side,
			Price:   price,
			Time:    at,
		}
	}

	for _, t := range snap.OpenTrades {
		add(KindEntryLine, t, t.EntryPrice, t.EntryTime)
		add(KindEntryMarker, t, t.EntryPrice, t.EntryTime)
		if t.StopLoss != nil {
			add(KindStopLine, t, *t.StopLoss, t.EntryTime)
		}
		if t.TakeProfit != nil {
			add(KindTargetLine, t, *t.TakeProfit, t.EntryTime)
		}
	}
	for _, t := range snap.ClosedTrades {
		add(KindEntryMarker, t, t.EntryPrice, t.EntryTime)
		add(KindExitMarker, t, t.ExitPrice, t.ExitTime)
	}
	return out
}
