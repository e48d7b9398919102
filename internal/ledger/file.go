package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dshills/voicecart-mcp/internal/jsonfile"
	"github.com/dshills/voicecart-mcp/pkg/types"
)

// FileRepository stores the ledger as a single JSON document
type FileRepository struct {
	path   string
	logger *slog.Logger
}

var _ Repository = (*FileRepository)(nil)

// NewFileRepository creates a repository backed by the JSON file at path.
// A nil logger discards output.
func NewFileRepository(path string, logger *slog.Logger) *FileRepository {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FileRepository{path: path, logger: logger}
}

// LoadAll reads every order. A missing file is an empty ledger. A file that
// cannot be read or decoded is moved aside with jsonfile.Quarantine and the
// ledger starts empty, so the next save does not overwrite it.
func (r *FileRepository) LoadAll(ctx context.Context) ([]types.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var orders []types.Order
	if err := jsonfile.Read(r.path, &orders); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []types.Order{}, nil
		}
		backup, qerr := jsonfile.Quarantine(r.path, time.Now())
		if qerr != nil {
			r.logger.Warn("failed to read order ledger, treating as empty", "path", r.path, "error", err, "quarantine_error", qerr)
		} else {
			r.logger.Warn("failed to read order ledger, moved aside and treating as empty", "path", r.path, "backup", backup, "error", err)
		}
		return []types.Order{}, nil
	}
	if orders == nil {
		orders = []types.Order{}
	}

	for _, o := range orders {
		if raw := o.CreatedAt.Unparsed(); raw != "" {
			r.logger.Warn("order has unparseable created_at, kept verbatim", "order_id", o.ID, "created_at", raw)
		}
	}
	return orders, nil
}

// SaveAll overwrites the ledger file with orders
func (r *FileRepository) SaveAll(ctx context.Context, orders []types.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if orders == nil {
		orders = []types.Order{}
	}
	if err := jsonfile.Write(r.path, orders); err != nil {
		return fmt.Errorf("failed to save order ledger: %w", err)
	}
	r.logger.Debug("order ledger saved", "path", r.path, "orders", len(orders))
	return nil
}

// Close is a no-op for file storage
func (r *FileRepository) Close() error {
	return nil
}
