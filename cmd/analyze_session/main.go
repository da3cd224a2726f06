package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"

	"barreplay/config"
	"barreplay/internal/adapters/logger"
	"barreplay/internal/adapters/sqlite"
	"barreplay/internal/analytics"
	"barreplay/internal/app"
)

func main() {
	key := flag.String("key", "", "session key to analyze (empty lists stored sessions)")
	balance := flag.Float64("balance", 10000, "initial balance for the equity curve")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to open session repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()

	if *key == "" {
		sessions, err := repo.ListSessions(ctx)
		if err != nil {
			log.Fatalf("Failed to list sessions: %v", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No stored sessions.")
			return
		}
		fmt.Println("Stored sessions:")
		for _, s := range sessions {
			fmt.Printf("  %s  (updated %s)\n", s.Key, s.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return
	}

	raw, err := repo.LoadSession(ctx, *key)
	if err != nil {
		log.Fatalf("Failed to load session %q: %v", *key, err)
	}
	var doc app.SessionDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Fatalf("Failed to parse session %q: %v", *key, err)
	}

	perf := analytics.AnalyzePerformance(doc.Ledger.ClosedTrades, *balance)
	printReport(*key, doc, perf)
}

func printReport(key string, doc app.SessionDocument, p analytics.Performance) {
	fmt.Printf("=== Session %s (%s %s, saved %s) ===\n", key, doc.Symbol, doc.Interval, doc.SavedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Cursor:               %d\n", doc.Cursor)
	fmt.Printf("Open trades:          %d\n", len(doc.Ledger.OpenTrades))
	fmt.Printf("Closed trades:        %d (W %d / L %d)\n", p.TotalTrades, p.WinningTrades, p.LosingTrades)
	fmt.Printf("Win rate:             %.1f%%\n", p.WinRate*100)
	fmt.Printf("Total P&L:            %.2f\n", p.TotalPnL)
	if math.IsInf(p.ProfitFactor, 1) {
		fmt.Println("Profit factor:        +Inf (no losses yet)")
	} else {
		fmt.Printf("Profit factor:        %.2f\n", p.ProfitFactor)
	}
	fmt.Printf("Biggest win/loss:     %.2f / %.2f\n", p.BiggestWin, p.BiggestLoss)
	fmt.Printf("Average win/loss:     %.2f / %.2f\n", p.AverageWin, p.AverageLoss)
	fmt.Printf("Max drawdown:         %.1f%%\n", p.MaxDrawdown*100)
	fmt.Printf("Max consecutive W/L:  %d / %d\n", p.MaxConsecutiveWins, p.MaxConsecutiveLosses)
	fmt.Printf("Expectancy:           %.2f\n", p.Expectancy)
	fmt.Printf("Average duration:     %s\n", p.AverageDuration)
}
