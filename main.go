package main

import (
	"context"
	"fmt"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"math"
	"os"
	"os/signal"
	"syscall"

	"barreplay/config"
	"barreplay/internal/adapters/binanceclient"
	"barreplay/internal/adapters/chartsync"
	"barreplay/internal/adapters/logger"
	"barreplay/internal/adapters/sqlite"
	"barreplay/internal/app"
	"barreplay/internal/domain"
	"barreplay/internal/idgen"
	"barreplay/internal/ports"
	"barreplay/internal/utils"
)

// logRenderer is a stand-in charting surface: it logs the annotation ops a
// real renderer would draw.
type logRenderer struct {
	logger ports.Logger
}

func (r *logRenderer) Apply(ctx context.Context, ops []chartsync.Op) {
	for _, op := range ops {
		r.logger.Debug(ctx, "Chart annotation op", map[string]interface{}{
			"op":      string(op.Kind),
			"id":      op.Annotation.ID,
			"kind":    string(op.Annotation.Kind),
			"price":   op.Annotation.Price,
			"tradeID": op.Annotation.TradeID,
		})
	}
}

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize session repository")
		log.Fatalf("FATAL: Failed to initialize session repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing session repository")
		}
	}()

	// 4. Load the bar series
	bars, err := loadBars(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load bars")
		log.Fatalf("FATAL: Failed to load bars: %v", err)
	}
	series, err := domain.NewSeries(bars)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Bar series failed validation")
		log.Fatalf("FATAL: Bar series failed validation: %v", err)
	}

	// 5. Initialize the replay service
	svc, err := app.NewReplayService(app.Config{
		Logger:   appLogger,
		Sessions: repo,
		Journal:  repo,
		Interval: cfg.ReplayInterval,
		Speed:    cfg.SpeedMultiplier,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize replay service")
		log.Fatalf("FATAL: Failed to initialize replay service: %v", err)
	}

	// 6. Wire observers before any bar is reached
	svc.RegisterObserver(chartsync.New(&logRenderer{logger: appLogger}))
	finished := make(chan struct{}, 1)
	svc.RegisterObserver(ports.ObserverFunc(func(ctx context.Context, _ domain.LedgerSnapshot, state domain.ReplayState) {
		if state.Status == domain.ReplayFinished {
			select {
			case finished <- struct{}{}:
			default:
			}
		}
	}))

	if err := svc.LoadSeries(ctx, series); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load series into replay service")
		log.Fatalf("FATAL: Failed to load series into replay service: %v", err)
	}

	if cfg.RandomStart {
		start, err := svc.SelectRandomStart(ctx)
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to pick random start")
			log.Fatalf("FATAL: Failed to pick random start: %v", err)
		}
		appLogger.Info(ctx, "Random start selected", map[string]interface{}{"startIndex": start})
	}

	// 7. Place the configured demo trade, if any levels were set
	if cfg.StopLossPct > 0 || cfg.TakeProfitPct > 0 {
		entry := series.At(svc.State().Cursor).Close
		var stopLoss, takeProfit *float64
		if cfg.StopLossPct > 0 {
			v := entry * (1 - cfg.StopLossPct)
			stopLoss = &v
		}
		if cfg.TakeProfitPct > 0 {
			v := entry * (1 + cfg.TakeProfitPct)
			takeProfit = &v
		}
		if _, err := svc.PlaceTrade(ctx, domain.Buy, cfg.Quantity, stopLoss, takeProfit); err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to place opening trade")
			log.Fatalf("FATAL: Failed to place opening trade: %v", err)
		}
	}

	// 8. Play to the end (or until interrupted)
	if err := svc.Play(ctx); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to start playback")
		log.Fatalf("FATAL: Failed to start playback: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-finished:
		appLogger.Info(ctx, "Replay ran to the final bar")
	case sig := <-sigCh:
		appLogger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		if err := svc.Pause(ctx); err != nil {
			appLogger.Error(ctx, err, "Failed to pause playback")
		}
	}

	// 9. Flatten whatever is still open and report
	if _, err := svc.FlattenAll(ctx); err != nil {
		appLogger.Error(ctx, err, "Failed to flatten open trades")
	}
	printSummary(svc)

	// 10. Save the session
	key := cfg.SessionKey
	if key == "" {
		key = idgen.New()
	}
	if err := svc.SaveSession(ctx, key); err != nil {
		appLogger.Error(ctx, err, "Failed to save session", map[string]interface{}{"sessionKey": key})
	} else {
		appLogger.Info(ctx, "Session stored", map[string]interface{}{"sessionKey": key})
	}
}

// loadBars fetches bars from the configured source.
func loadBars(ctx context.Context, cfg *config.Config, appLogger ports.Logger) ([]domain.Bar, error) {
	switch cfg.BarSource {
	case config.SourceCSV:
		appLogger.Info(ctx, "Loading bars from CSV", map[string]interface{}{"path": cfg.CSVPath})
		return utils.ReadBarsFromCSV(cfg.CSVPath)
	case config.SourceBinance:
		client, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.APIKey,
			SecretKey:  cfg.SecretKey,
			UseTestnet: cfg.IsTestnet,
			Logger:     appLogger,
		})
		if err != nil {
			return nil, err
		}
		appLogger.Info(ctx, "Fetching bars from Binance", map[string]interface{}{
			"symbol": cfg.Symbol, "interval": cfg.Interval, "limit": cfg.BarLimit,
		})
		return client.GetBars(ctx, cfg.Symbol, cfg.Interval, cfg.BarLimit)
	default:
		return nil, fmt.Errorf("unknown bar source %q", cfg.BarSource)
	}
}

func printSummary(svc *app.ReplayService) {
	s := svc.Summary()
	fmt.Println("=== Replay Summary ===")
	fmt.Printf("Total trades:   %d (W %d / L %d)\n", s.TotalTrades, s.WinningTrades, s.LosingTrades)
	fmt.Printf("Win rate:       %.1f%%\n", s.WinRate*100)
	fmt.Printf("Total P&L:      %.2f\n", s.TotalPnL)
	if math.IsInf(s.ProfitFactor, 1) {
		fmt.Println("Profit factor:  +Inf (no losses yet)")
	} else {
		fmt.Printf("Profit factor:  %.2f\n", s.ProfitFactor)
	}
	fmt.Printf("Biggest win:    %.2f\n", s.BiggestWin)
	fmt.Printf("Biggest loss:   %.2f\n", s.BiggestLoss)
}
