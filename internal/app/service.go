package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"barreplay/internal/analytics"
	"barreplay/internal/domain"
	"barreplay/internal/exits"
	"barreplay/internal/ledger"
	"barreplay/internal/ports"
	"barreplay/internal/replay"
)

const (
	defaultInterval = time.Second
	defaultSpeed    = 1
)

// ReplayService orchestrates one bar-replay session: it owns the bar
// series, the trade ledger and the replay clock, runs exit detection on
// every advance, and pushes consistent snapshots to observers.
//
// A single mutex serializes user operations (place/close/flatten/seek)
// against in-flight ticks, so trades placed while playing are applied
// between bars, never mid-evaluation. Rejected operations leave cursor and
// ledger exactly as they were.
type ReplayService struct {
	logger   ports.Logger
	calc     ports.IndicatorCalculator
	sessions ports.SessionRepository
	journal  ports.TradeJournal
	interval time.Duration
	speed    int

	mu        sync.Mutex
	series    *domain.Series
	symbol    string
	barIntv   string
	ledger    *ledger.Ledger
	clock     *replay.Clock
	cursor    int // Index of the last fully-processed bar
	observers []ports.ReplayObserver
	rng       *rand.Rand
}

// Config holds the collaborators and defaults for a replay service.
// Logger is required; Calculator, Sessions and Journal are optional.
type Config struct {
	Logger     ports.Logger
	Calculator ports.IndicatorCalculator
	Sessions   ports.SessionRepository
	Journal    ports.TradeJournal
	Interval   time.Duration // Timer tick interval, default 1s
	Speed      int           // Bars per tick, default 1
}

// NewReplayService creates a service with no series loaded.
func NewReplayService(cfg Config) (*ReplayService, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for ReplayService: %w", ports.ErrConfiguration)
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	speed := cfg.Speed
	if speed <= 0 {
		speed = defaultSpeed
	}
	return &ReplayService{
		logger:   cfg.Logger,
		calc:     cfg.Calculator,
		sessions: cfg.Sessions,
		journal:  cfg.Journal,
		interval: interval,
		speed:    speed,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// LoadSeries installs a validated bar series and resets the session: fresh
// ledger, clock at cursor 0, Idle. An empty series is a terminal error (the
// provider owns retries).
func (s *ReplayService) LoadSeries(ctx context.Context, series *domain.Series) error {
	if series.Len() == 0 {
		return fmt.Errorf("cannot load series: %w", ports.ErrEmptySeries)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stop the previous clock so its timer goroutine dies; advances it
	// already committed are dropped by the source check in handleAdvance.
	if s.clock != nil {
		s.clock.Pause()
	}

	first := series.At(0)
	var clock *replay.Clock
	clock, err := replay.NewClock(replay.Config{
		Length:   series.Len(),
		Interval: s.interval,
		Speed:    s.speed,
		OnAdvance: func(adv replay.Advance) {
			s.handleAdvance(clock, adv)
		},
	})
	if err != nil {
		return err
	}
	s.series = series
	s.symbol = first.Symbol
	s.barIntv = first.Interval
	s.ledger = ledger.New(first.Symbol)
	s.clock = clock
	s.cursor = 0

	s.logger.Info(ctx, "Bar series loaded", map[string]interface{}{
		"symbol":   first.Symbol,
		"interval": first.Interval,
		"bars":     series.Len(),
	})
	s.notifyLocked(ctx)
	return nil
}

// RegisterObserver adds a visual-sync observer. Observers are notified in
// registration order after every applied tick.
func (s *ReplayService) RegisterObserver(obs ports.ReplayObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// handleAdvance is the clock's sole advance callback: it runs exit
// detection against the newly reached bar, applies the results to the
// ledger atomically with respect to further advancement, and only then
// notifies observers. Advances from a clock that is no longer the current
// one (the series was reloaded mid-tick) are discarded.
func (s *ReplayService) handleAdvance(src *replay.Clock, adv replay.Advance) {
	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.series == nil || src != s.clock {
		return
	}
	s.cursor = adv.Cursor
	bar := s.series.At(adv.Cursor)
	for _, e := range exits.Detect(s.ledger.OpenTrades(), bar) {
		closed, err := s.ledger.CloseTrade(e.TradeID, e.Price, bar.CloseTime, e.Reason)
		if err != nil {
			// Detector results come straight from the ledger's own open
			// set; a miss here is a programmer error in the tick sequence.
			panic(fmt.Sprintf("exit for unknown trade %s: %v", e.TradeID, err))
		}
		s.logger.Debug(ctx, "Trade auto-exited", map[string]interface{}{
			"tradeID": closed.ID,
			"reason":  string(closed.CloseReason),
			"price":   closed.ExitPrice,
			"pnl":     closed.RealizedPnL,
		})
	}
	if adv.Finished {
		s.logger.Info(ctx, "Replay finished", map[string]interface{}{"cursor": adv.Cursor})
	}
	s.notifyLocked(ctx)
}

// notifyLocked pushes the current snapshot and state to all observers.
// Caller holds s.mu; observers render and return without calling back.
func (s *ReplayService) notifyLocked(ctx context.Context) {
	if s.clock == nil {
		return
	}
	snap := s.ledger.Snapshot()
	state := s.clock.State()
	for _, obs := range s.observers {
		obs.OnTick(ctx, snap, state)
	}
}

// Play starts timer-driven playback.
func (s *ReplayService) Play(ctx context.Context) error {
	clock, err := s.requireClock()
	if err != nil {
		return err
	}
	if err := clock.Play(); err != nil {
		return err
	}
	s.logger.Info(ctx, "Playback started")
	return nil
}

// Pause stops timer-driven playback synchronously.
func (s *ReplayService) Pause(ctx context.Context) error {
	clock, err := s.requireClock()
	if err != nil {
		return err
	}
	clock.Pause()
	s.logger.Info(ctx, "Playback paused")
	return nil
}

// Step advances or rewinds the cursor by n bars. Each effective step runs
// the full tick sequence, including exit detection.
func (s *ReplayService) Step(ctx context.Context, n int) error {
	clock, err := s.requireClock()
	if err != nil {
		return err
	}
	return clock.Step(n)
}

// Seek scrubs the cursor to index and forces Paused. No exit evaluation
// happens on a seek; the engine never evaluates exits for bars the cursor
// skipped over.
func (s *ReplayService) Seek(ctx context.Context, index int) error {
	clock, err := s.requireClock()
	if err != nil {
		return err
	}
	if err := clock.Seek(index); err != nil {
		return err
	}
	s.mu.Lock()
	s.cursor = index
	s.notifyLocked(ctx)
	s.mu.Unlock()
	return nil
}

// SetSpeed changes the bars-per-tick multiplier, effective on the next
// tick.
func (s *ReplayService) SetSpeed(ctx context.Context, n int) error {
	clock, err := s.requireClock()
	if err != nil {
		return err
	}
	return clock.SetSpeed(n)
}

// SelectStart resets the ledger and moves the cursor to index, the "start
// simulation from this bar" operation.
func (s *ReplayService) SelectStart(ctx context.Context, index int) error {
	clock, err := s.requireClock()
	if err != nil {
		return err
	}
	if err := clock.Seek(index); err != nil {
		return err
	}
	s.mu.Lock()
	s.cursor = index
	s.ledger.Reset()
	s.logger.Info(ctx, "Simulation restarted", map[string]interface{}{"startIndex": index})
	s.notifyLocked(ctx)
	s.mu.Unlock()
	return nil
}

// SelectRandomStart picks a random start index in the first three quarters
// of the series, leaving room to actually replay, and resets there.
func (s *ReplayService) SelectRandomStart(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.series == nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("no series loaded: %w", ports.ErrEmptySeries)
	}
	span := s.series.Len() * 3 / 4
	if span < 1 {
		span = 1
	}
	index := s.rng.Intn(span)
	s.mu.Unlock()

	if err := s.SelectStart(ctx, index); err != nil {
		return 0, err
	}
	return index, nil
}

// PlaceTrade opens a trade at the close of the last fully-processed bar.
// Trades placed while playing are serialized between ticks: an in-flight
// advance whose exit processing has not run yet does not move the entry
// bar forward, so a new trade is never evaluated against a bar that closed
// before it existed.
func (s *ReplayService) PlaceTrade(ctx context.Context, side domain.Side, quantity float64, stopLoss, takeProfit *float64) (domain.Trade, error) {
	if _, err := s.requireClock(); err != nil {
		return domain.Trade{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bar := s.series.At(s.cursor)
	trade, err := s.ledger.PlaceTrade(side, quantity, bar.Close, bar.CloseTime, stopLoss, takeProfit)
	if err != nil {
		return domain.Trade{}, err
	}
	s.logger.Info(ctx, "Trade placed", map[string]interface{}{
		"tradeID": trade.ID,
		"side":    string(trade.Side),
		"qty":     trade.Quantity,
		"entry":   trade.EntryPrice,
	})
	s.notifyLocked(ctx)
	return trade, nil
}

// CloseTradeAt closes one open trade manually at a caller-supplied price,
// stamped with the last fully-processed bar's close time.
func (s *ReplayService) CloseTradeAt(ctx context.Context, tradeID string, price float64) (domain.Trade, error) {
	if _, err := s.requireClock(); err != nil {
		return domain.Trade{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bar := s.series.At(s.cursor)
	closed, err := s.ledger.CloseTrade(tradeID, price, bar.CloseTime, domain.CloseReasonManual)
	if err != nil {
		return domain.Trade{}, err
	}
	s.logger.Info(ctx, "Trade closed manually", map[string]interface{}{
		"tradeID": closed.ID,
		"exit":    closed.ExitPrice,
		"pnl":     closed.RealizedPnL,
	})
	s.notifyLocked(ctx)
	return closed, nil
}

// FlattenAll closes every open trade at the last fully-processed bar's
// close price, in the order they were opened.
func (s *ReplayService) FlattenAll(ctx context.Context) ([]domain.Trade, error) {
	if _, err := s.requireClock(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	bar := s.series.At(s.cursor)
	closed := s.ledger.FlattenAll(bar.Close, bar.CloseTime)
	if len(closed) > 0 {
		s.logger.Info(ctx, "Flattened all open trades", map[string]interface{}{
			"count": len(closed),
			"price": bar.Close,
		})
		s.notifyLocked(ctx)
	}
	return closed, nil
}

// UnrealizedPnL marks the open trades against the close of the last
// fully-processed bar.
func (s *ReplayService) UnrealizedPnL() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.series == nil {
		return 0
	}
	bar := s.series.At(s.cursor)
	return s.ledger.UnrealizedPnL(bar.Close)
}

// Snapshot returns a consistent copy of the trade book.
func (s *ReplayService) Snapshot() domain.LedgerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ledger == nil {
		return domain.LedgerSnapshot{}
	}
	return s.ledger.Snapshot()
}

// State returns the current replay state.
func (s *ReplayService) State() domain.ReplayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clock == nil {
		return domain.ReplayState{Status: domain.ReplayIdle}
	}
	return s.clock.State()
}

// Summary computes the headline statistics over the closed trades.
func (s *ReplayService) Summary() analytics.Summary {
	return analytics.ComputeSummary(s.Snapshot().ClosedTrades)
}

// Performance computes the extended session report.
func (s *ReplayService) Performance(initialBalance float64) analytics.Performance {
	return analytics.AnalyzePerformance(s.Snapshot().ClosedTrades, initialBalance)
}

// Indicator forwards an indicator request to the configured calculator over
// the loaded series. The core does not validate the math.
func (s *ReplayService) Indicator(ctx context.Context, req ports.IndicatorRequest) (*ports.IndicatorSeries, error) {
	s.mu.Lock()
	series := s.series
	calc := s.calc
	s.mu.Unlock()

	if calc == nil {
		return nil, fmt.Errorf("no indicator calculator configured: %w", ports.ErrConfiguration)
	}
	if series == nil {
		return nil, fmt.Errorf("no series loaded: %w", ports.ErrEmptySeries)
	}
	return calc.Compute(ctx, series, req)
}

func (s *ReplayService) requireClock() (*replay.Clock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clock == nil {
		return nil, fmt.Errorf("no series loaded: %w", ports.ErrEmptySeries)
	}
	return s.clock, nil
}
