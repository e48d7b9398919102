// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Transports
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Ledger backends
const (
	LedgerJSON   = "json"
	LedgerSQLite = "sqlite"
)

// Config carries environment-driven settings for the server process
type Config struct {
	DataDir     string
	CatalogFile string
	OrdersFile  string
	Ledger      string
	SQLitePath  string
	Currency    string
	Transport   string
	HTTPAddr    string
	MetricsAddr string
	LogLevel    slog.Level
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints
func LoadConfig() (Config, error) {
	dataDir := envDefault("VOICECART_DATA_DIR", "shared-data")
	cfg := Config{
		DataDir:     dataDir,
		CatalogFile: envDefault("VOICECART_CATALOG_FILE", filepath.Join(dataDir, "catalog.json")),
		OrdersFile:  envDefault("VOICECART_ORDERS_FILE", filepath.Join(dataDir, "orders.json")),
		Ledger:      strings.ToLower(envDefault("VOICECART_LEDGER", LedgerJSON)),
		SQLitePath:  envDefault("VOICECART_SQLITE_PATH", filepath.Join(dataDir, "orders.db")),
		Currency:    strings.ToUpper(envDefault("VOICECART_CURRENCY", "INR")),
		Transport:   strings.ToLower(envDefault("VOICECART_TRANSPORT", TransportStdio)),
		HTTPAddr:    envDefault("VOICECART_HTTP_ADDR", ":8080"),
		MetricsAddr: strings.TrimSpace(os.Getenv("VOICECART_METRICS_ADDR")),
	}

	switch cfg.Ledger {
	case LedgerJSON, LedgerSQLite:
	default:
		return Config{}, fmt.Errorf("VOICECART_LEDGER must be %q or %q, got %q", LedgerJSON, LedgerSQLite, cfg.Ledger)
	}

	switch cfg.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return Config{}, fmt.Errorf("VOICECART_TRANSPORT must be %q or %q, got %q", TransportStdio, TransportHTTP, cfg.Transport)
	}

	level, err := ParseLogLevel(envDefault("VOICECART_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels
func ParseLogLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo, fmt.Errorf("VOICECART_LOG_LEVEL: %w", err)
	}
	return level, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
