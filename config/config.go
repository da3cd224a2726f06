package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"barreplay/internal/adapters/logger" // Import the logger package for LogLevel
)

// BarSource selects where the replay bars come from.
type BarSource string

const (
	SourceCSV     BarSource = "csv"
	SourceBinance BarSource = "binance"
)

// Config holds all application configuration.
type Config struct {
	// Bar data
	BarSource BarSource
	CSVPath   string // Bar file when BarSource == csv
	Symbol    string
	Interval  string // Bar interval (e.g., "1m", "1h")
	BarLimit  int    // Max bars fetched for a session

	// Binance API (public market data only; keys optional)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Replay Parameters
	ReplayInterval  time.Duration // Wall-clock delay between timer ticks
	SpeedMultiplier int           // Bars advanced per tick
	Quantity        float64       // Default trade quantity
	StopLossPct     float64       // Optional default stop distance (e.g., 0.01 for 1%), 0 disables
	TakeProfitPct   float64       // Optional default target distance, 0 disables
	RandomStart     bool          // Pick a random start bar instead of index 0

	// Persistence
	DBPath     string
	SessionKey string // Key the finished session is saved under

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	cfg.BarSource = BarSource(strings.ToLower(getEnv("BAR_SOURCE", string(SourceCSV))))
	switch cfg.BarSource {
	case SourceCSV, SourceBinance:
	default:
		errs = append(errs, fmt.Sprintf("BAR_SOURCE must be %q or %q", SourceCSV, SourceBinance))
	}

	cfg.CSVPath = getEnv("CSV_PATH", "")
	if cfg.BarSource == SourceCSV && cfg.CSVPath == "" {
		errs = append(errs, "CSV_PATH must be set when BAR_SOURCE=csv")
	}

	cfg.Symbol = getEnv("SYMBOL", "ETHUSDT")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}
	cfg.Interval = getEnv("INTERVAL", "1m")

	cfg.BarLimit = getEnvAsInt("BAR_LIMIT", 1000)
	if cfg.BarLimit <= 0 {
		errs = append(errs, "BAR_LIMIT must be positive")
	}

	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	intervalMS := getEnvAsInt("REPLAY_INTERVAL_MS", 1000)
	if intervalMS <= 0 {
		errs = append(errs, "REPLAY_INTERVAL_MS must be positive")
	}
	cfg.ReplayInterval = time.Duration(intervalMS) * time.Millisecond

	cfg.SpeedMultiplier = getEnvAsInt("SPEED_MULTIPLIER", 1)
	if cfg.SpeedMultiplier <= 0 {
		errs = append(errs, "SPEED_MULTIPLIER must be positive")
	}

	cfg.Quantity, err = getEnvAsFloat("QUANTITY", 1.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid QUANTITY: %v", err))
	} else if cfg.Quantity <= 0 {
		errs = append(errs, "QUANTITY must be positive")
	}

	cfg.StopLossPct, err = getEnvAsFloat("STOP_LOSS_PCT", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOP_LOSS_PCT: %v", err))
	} else if cfg.StopLossPct < 0 || cfg.StopLossPct >= 1.0 {
		errs = append(errs, "STOP_LOSS_PCT must be in [0.0, 1.0)")
	}

	cfg.TakeProfitPct, err = getEnvAsFloat("TAKE_PROFIT_PCT", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TAKE_PROFIT_PCT: %v", err))
	} else if cfg.TakeProfitPct < 0 {
		errs = append(errs, "TAKE_PROFIT_PCT must not be negative")
	}

	cfg.RandomStart = getEnvAsBool("RANDOM_START", false)

	cfg.DBPath = getEnv("DB_PATH", "./data/replay_sessions.db")
	cfg.SessionKey = getEnv("SESSION_KEY", "")

	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// --- Environment variable helpers ---

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(valueStr, 64)
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
