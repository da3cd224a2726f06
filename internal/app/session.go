package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"barreplay/internal/domain"
	"barreplay/internal/ports"
)

// SessionDocument is the JSON shape stored in the session repository. The
// bar series itself is not stored; it is re-fetched from the provider by
// (symbol, interval) when the session is resumed.
type SessionDocument struct {
	Symbol     string                `json:"symbol"`
	Interval   string                `json:"interval"`
	Cursor     int                   `json:"cursor"`
	Speed      int                   `json:"speed"`
	IntervalMS int64                 `json:"interval_ms"`
	Ledger     domain.LedgerSnapshot `json:"ledger"`
	SavedAt    time.Time             `json:"saved_at"`
}

// SaveSession serializes the current session under key, last-write-wins,
// and mirrors the closed trades into the trade journal when one is
// configured.
func (s *ReplayService) SaveSession(ctx context.Context, key string) error {
	if s.sessions == nil {
		return fmt.Errorf("no session repository configured: %w", ports.ErrConfiguration)
	}
	if key == "" {
		return fmt.Errorf("session key must not be empty: %w", ports.ErrValidation)
	}

	s.mu.Lock()
	if s.clock == nil {
		s.mu.Unlock()
		return fmt.Errorf("no series loaded: %w", ports.ErrEmptySeries)
	}
	state := s.clock.State()
	doc := SessionDocument{
		Symbol:     s.symbol,
		Interval:   s.barIntv,
		Cursor:     state.Cursor,
		Speed:      state.Speed,
		IntervalMS: state.IntervalMS,
		Ledger:     s.ledger.Snapshot(),
		SavedAt:    time.Now().UTC(),
	}
	s.mu.Unlock()

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize session %q: %w", key, err)
	}
	if err := s.sessions.SaveSession(ctx, key, raw); err != nil {
		return err
	}
	if s.journal != nil && len(doc.Ledger.ClosedTrades) > 0 {
		if err := s.journal.RecordClosedTrades(ctx, key, doc.Ledger.ClosedTrades); err != nil {
			// The session document is already stored; journal mirroring is
			// best-effort.
			s.logger.Warn(ctx, "Failed to journal closed trades", map[string]interface{}{
				"sessionKey": key, "error": err.Error(),
			})
		}
	}
	s.logger.Info(ctx, "Session saved", map[string]interface{}{
		"sessionKey": key,
		"cursor":     doc.Cursor,
		"trades":     len(doc.Ledger.ClosedTrades) + len(doc.Ledger.OpenTrades),
	})
	return nil
}

// LoadSession restores a stored session into the currently loaded series:
// ledger contents, cursor (clamped, forced Paused) and speed. The series
// for the document's (symbol, interval) must already be loaded.
func (s *ReplayService) LoadSession(ctx context.Context, key string) error {
	if s.sessions == nil {
		return fmt.Errorf("no session repository configured: %w", ports.ErrConfiguration)
	}
	raw, err := s.sessions.LoadSession(ctx, key)
	if err != nil {
		return err
	}
	var doc SessionDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse session %q: %w", key, err)
	}

	clock, err := s.requireClock()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if doc.Symbol != s.symbol || doc.Interval != s.barIntv {
		s.mu.Unlock()
		return fmt.Errorf("session %q is for %s/%s, loaded series is %s/%s: %w",
			key, doc.Symbol, doc.Interval, s.symbol, s.barIntv, ports.ErrValidation)
	}
	cursor := doc.Cursor
	if max := s.series.Len() - 1; cursor > max {
		cursor = max
	}
	if cursor < 0 {
		cursor = 0
	}
	s.mu.Unlock()

	if err := clock.Seek(cursor); err != nil {
		return err
	}
	if doc.Speed > 0 {
		if err := clock.SetSpeed(doc.Speed); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.cursor = cursor
	s.ledger.Restore(doc.Ledger)
	s.logger.Info(ctx, "Session restored", map[string]interface{}{
		"sessionKey": key,
		"cursor":     cursor,
		"open":       len(doc.Ledger.OpenTrades),
		"closed":     len(doc.Ledger.ClosedTrades),
	})
	s.notifyLocked(ctx)
	s.mu.Unlock()
	return nil
}
