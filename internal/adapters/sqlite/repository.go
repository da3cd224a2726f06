package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"barreplay/internal/domain"
	"barreplay/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.SessionRepository and ports.TradeJournal on
// SQLite. Session documents are stored as opaque JSON, last-write-wins.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository opens (creating if needed) the session database.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/replay_sessions.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency between the replay loop and saves.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Session database ready", map[string]interface{}{"path": dbPath})
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		key        TEXT PRIMARY KEY,
		document   TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS replay_trades (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		session_key  TEXT NOT NULL,
		trade_id     TEXT NOT NULL,
		symbol       TEXT NOT NULL,
		side         TEXT NOT NULL,
		quantity     REAL NOT NULL,
		entry_price  REAL NOT NULL,
		exit_price   REAL NOT NULL,
		pnl          REAL NOT NULL,
		entry_time   TIMESTAMP NOT NULL,
		exit_time    TIMESTAMP NOT NULL,
		close_reason TEXT NULL,
		stop_loss    REAL NULL,
		take_profit  REAL NULL
	);
	CREATE INDEX IF NOT EXISTS idx_replay_trades_session_exit ON replay_trades (session_key, exit_time);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing session database")
		return r.db.Close()
	}
	return nil
}

// --- SessionRepository Implementation ---

// SaveSession upserts the document under key, last-write-wins.
func (r *Repository) SaveSession(ctx context.Context, key string, document []byte) error {
	if !json.Valid(document) {
		return fmt.Errorf("session document for %q is not valid JSON: %w", key, ports.ErrValidation)
	}
	const query = `
	INSERT INTO sessions (key, document, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, key, string(document), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save session %q: %w", key, err)
	}
	r.logger.Debug(ctx, "Session document saved", map[string]interface{}{"sessionKey": key, "bytes": len(document)})
	return nil
}

// LoadSession retrieves the document stored under key.
func (r *Repository) LoadSession(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT document FROM sessions WHERE key = ?`
	var document string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %q: %w", key, ports.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %q: %w", key, err)
	}
	return []byte(document), nil
}

// ListSessions returns stored sessions, most recently updated first.
func (r *Repository) ListSessions(ctx context.Context) ([]ports.SessionInfo, error) {
	const query = `SELECT key, updated_at FROM sessions ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []ports.SessionInfo
	for rows.Next() {
		var info ports.SessionInfo
		if err := rows.Scan(&info.Key, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteSession removes the session and its journaled trades.
func (r *Repository) DeleteSession(ctx context.Context, key string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete for session %q: %w", key, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete session %q: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM replay_trades WHERE session_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete journal for session %q: %w", key, err)
	}
	return tx.Commit()
}

// --- TradeJournal Implementation ---

// RecordClosedTrades replaces the journaled trades for the session. Saves
// are idempotent this way: re-saving a session does not duplicate rows.
func (r *Repository) RecordClosedTrades(ctx context.Context, sessionKey string, trades []domain.Trade) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin journal write for %q: %w", sessionKey, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM replay_trades WHERE session_key = ?`, sessionKey); err != nil {
		return fmt.Errorf("failed to clear journal for %q: %w", sessionKey, err)
	}

	const insert = `
	INSERT INTO replay_trades (session_key, trade_id, symbol, side, quantity, entry_price, exit_price, pnl, entry_time, exit_time, close_reason, stop_loss, take_profit)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, t := range trades {
		var stopLoss, takeProfit sql.NullFloat64
		if t.StopLoss != nil {
			stopLoss = sql.NullFloat64{Float64: *t.StopLoss, Valid: true}
		}
		if t.TakeProfit != nil {
			takeProfit = sql.NullFloat64{Float64: *t.TakeProfit, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insert,
			sessionKey, t.ID, t.Symbol, string(t.Side), t.Quantity, t.EntryPrice, t.ExitPrice,
			t.RealizedPnL, t.EntryTime, t.ExitTime, string(t.CloseReason), stopLoss, takeProfit); err != nil {
			return fmt.Errorf("failed to journal trade %s: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit journal for %q: %w", sessionKey, err)
	}
	r.logger.Debug(ctx, "Closed trades journaled", map[string]interface{}{"sessionKey": sessionKey, "count": len(trades)})
	return nil
}

// FindClosedTrades retrieves the most recent closed trades for a session.
func (r *Repository) FindClosedTrades(ctx context.Context, sessionKey string, limit int) ([]domain.Trade, error) {
	const query = `
	SELECT trade_id, symbol, side, quantity, entry_price, exit_price, pnl, entry_time, exit_time, close_reason, stop_loss, take_profit
	FROM replay_trades
	WHERE session_key = ?
	ORDER BY exit_time DESC
	LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, sessionKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal for %q: %w", sessionKey, err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side, reason string
		var stopLoss, takeProfit sql.NullFloat64
		if err := rows.Scan(&t.ID, &t.Symbol, &side, &t.Quantity, &t.EntryPrice, &t.ExitPrice,
			&t.RealizedPnL, &t.EntryTime, &t.ExitTime, &reason, &stopLoss, &takeProfit); err != nil {
			return nil, fmt.Errorf("failed to scan journaled trade: %w", err)
		}
		t.Side = domain.Side(side)
		t.CloseReason = domain.CloseReason(reason)
		t.Status = domain.StatusClosed
		if stopLoss.Valid {
			v := stopLoss.Float64
			t.StopLoss = &v
		}
		if takeProfit.Valid {
			v := takeProfit.Float64
			t.TakeProfit = &v
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
