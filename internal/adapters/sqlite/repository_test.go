package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barreplay/internal/domain"
	"barreplay/internal/ports"
)

type noopLogger struct{}

func (noopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (noopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestRepo creates a repository backed by a temp-dir database that is
// cleaned up with the test.
func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(Config{
		DBPath: filepath.Join(t.TempDir(), "test_sessions.db"),
		Logger: noopLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func ptr(v float64) *float64 { return &v }

func closedTrade(id string, exitTime time.Time) domain.Trade {
	return domain.Trade{
		ID:          id,
		Symbol:      "ETHUSDT",
		Side:        domain.Buy,
		Quantity:    2,
		EntryPrice:  100,
		EntryTime:   exitTime.Add(-time.Hour),
		StopLoss:    ptr(95),
		ExitPrice:   110,
		ExitTime:    exitTime,
		RealizedPnL: 20,
		Status:      domain.StatusClosed,
		CloseReason: domain.CloseReasonTakeProfit,
	}
}

func TestNewRepositoryRequiresLogger(t *testing.T) {
	_, err := NewRepository(Config{DBPath: filepath.Join(t.TempDir(), "x.db")})
	assert.Error(t, err)
}

func TestSaveAndLoadSession(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	doc := []byte(`{"symbol":"ETHUSDT","cursor":42}`)
	require.NoError(t, repo.SaveSession(ctx, "sess-1", doc))

	got, err := repo.LoadSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.JSONEq(t, string(doc), string(got))
}

func TestSaveSessionOverwrites(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveSession(ctx, "sess-1", []byte(`{"cursor":1}`)))
	require.NoError(t, repo.SaveSession(ctx, "sess-1", []byte(`{"cursor":2}`)))

	got, err := repo.LoadSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"cursor":2}`, string(got))

	sessions, err := repo.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestSaveSessionRejectsInvalidJSON(t *testing.T) {
	repo := setupTestRepo(t)
	err := repo.SaveSession(context.Background(), "sess-1", []byte(`{not json`))
	assert.ErrorIs(t, err, ports.ErrValidation)
}

func TestLoadSessionNotFound(t *testing.T) {
	repo := setupTestRepo(t)
	_, err := repo.LoadSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestListSessionsMostRecentFirst(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveSession(ctx, "older", []byte(`{}`)))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.SaveSession(ctx, "newer", []byte(`{}`)))

	sessions, err := repo.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "newer", sessions[0].Key)
	assert.Equal(t, "older", sessions[1].Key)
	assert.False(t, sessions[0].UpdatedAt.IsZero())
}

func TestDeleteSessionRemovesJournal(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveSession(ctx, "sess-1", []byte(`{}`)))
	require.NoError(t, repo.RecordClosedTrades(ctx, "sess-1", []domain.Trade{
		closedTrade("t1", time.Now().UTC()),
	}))

	require.NoError(t, repo.DeleteSession(ctx, "sess-1"))

	_, err := repo.LoadSession(ctx, "sess-1")
	assert.ErrorIs(t, err, ports.ErrNotFound)
	trades, err := repo.FindClosedTrades(ctx, "sess-1", 10)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestDeleteSessionMissingKeyIsNoOp(t *testing.T) {
	repo := setupTestRepo(t)
	assert.NoError(t, repo.DeleteSession(context.Background(), "missing"))
}

func TestRecordAndFindClosedTrades(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	trades := []domain.Trade{
		closedTrade("t1", base),
		closedTrade("t2", base.Add(time.Hour)),
		closedTrade("t3", base.Add(2*time.Hour)),
	}
	require.NoError(t, repo.RecordClosedTrades(ctx, "sess-1", trades))

	got, err := repo.FindClosedTrades(ctx, "sess-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Most recent exit first.
	assert.Equal(t, "t3", got[0].ID)
	assert.Equal(t, "t2", got[1].ID)
	assert.Equal(t, "t1", got[2].ID)

	first := got[2]
	assert.Equal(t, domain.Buy, first.Side)
	assert.Equal(t, domain.CloseReasonTakeProfit, first.CloseReason)
	assert.Equal(t, domain.StatusClosed, first.Status)
	assert.Equal(t, 20.0, first.RealizedPnL)
	require.NotNil(t, first.StopLoss)
	assert.Equal(t, 95.0, *first.StopLoss)
	assert.Nil(t, first.TakeProfit)
	assert.True(t, first.ExitTime.Equal(base))
}

func TestRecordClosedTradesLimit(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordClosedTrades(ctx, "sess-1", []domain.Trade{
		closedTrade("t1", base),
		closedTrade("t2", base.Add(time.Hour)),
		closedTrade("t3", base.Add(2*time.Hour)),
	}))

	got, err := repo.FindClosedTrades(ctx, "sess-1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t3", got[0].ID)
}

func TestRecordClosedTradesIdempotentResave(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	trades := []domain.Trade{closedTrade("t1", base), closedTrade("t2", base.Add(time.Hour))}
	require.NoError(t, repo.RecordClosedTrades(ctx, "sess-1", trades))
	require.NoError(t, repo.RecordClosedTrades(ctx, "sess-1", trades))

	got, err := repo.FindClosedTrades(ctx, "sess-1", 100)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestJournalIsolatedPerSession(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordClosedTrades(ctx, "a", []domain.Trade{closedTrade("t1", base)}))
	require.NoError(t, repo.RecordClosedTrades(ctx, "b", []domain.Trade{closedTrade("t2", base)}))

	got, err := repo.FindClosedTrades(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)
}
