package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dshills/voicecart-mcp/pkg/types"
)

// Repository persists the full order ledger. There is no partial write:
// callers load every order, mutate in memory and save every order back.
type Repository interface {
	// LoadAll returns every order ever recorded, in insertion order
	LoadAll(ctx context.Context) ([]types.Order, error)

	// SaveAll replaces the stored ledger with orders
	SaveAll(ctx context.Context, orders []types.Order) error

	Close() error
}

// Backend names a Repository implementation
type Backend string

const (
	BackendJSON   Backend = "json"
	BackendSQLite Backend = "sqlite"
)

// Config selects and locates the ledger backend
type Config struct {
	Backend    Backend
	FilePath   string // JSON ledger file
	SQLitePath string // SQLite database file
}

// Open creates the repository described by cfg
func Open(cfg Config, logger *slog.Logger) (Repository, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	switch Backend(strings.ToLower(string(cfg.Backend))) {
	case BackendJSON, "":
		return NewFileRepository(cfg.FilePath, logger), nil
	case BackendSQLite:
		repo, err := NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("sqlite ledger opened", "path", cfg.SQLitePath, "driver", DriverName, "build_mode", BuildMode)
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}
