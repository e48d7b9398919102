package catalog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dshills/voicecart-mcp/internal/jsonfile"
	"github.com/dshills/voicecart-mcp/pkg/types"
)

// ErrProductNotFound is returned when a product ID is not in the catalog
var ErrProductNotFound = errors.New("product not found")

// Store holds the product catalog in memory and mirrors it to a JSON file.
// Every record read from the file is written back by Persist, including
// invalid entries and repeated IDs; those are only hidden from lookups.
type Store struct {
	mu      sync.RWMutex
	path    string
	records []types.Product
	active  []int          // positions in records visible to lookups, in catalog order
	index   map[string]int // product ID to position in records
	logger  *slog.Logger
}

// StockLevels maps product IDs to stock counts
type StockLevels map[string]int

// Load reads the catalog at path. A missing file yields an empty catalog. An
// unreadable one is moved aside with jsonfile.Quarantine first, so the next
// Persist cannot overwrite it. Callers never see a load error.
func Load(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var products []types.Product
	if err := jsonfile.Read(path, &products); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("catalog file not found, starting empty", "path", path)
		} else if backup, qerr := jsonfile.Quarantine(path, time.Now()); qerr != nil {
			logger.Warn("failed to load catalog, starting empty", "path", path, "error", err, "quarantine_error", qerr)
		} else {
			logger.Warn("failed to load catalog, moved aside and starting empty", "path", path, "backup", backup, "error", err)
		}
		products = nil
	}

	s := New(path, products, logger)
	logger.Info("catalog loaded", "path", path, "products", s.Len())
	return s
}

// New creates a store over products. Invalid products and repeated IDs are
// kept for Persist but hidden from lookups, with a warning; the first valid
// occurrence of an ID wins.
func New(path string, products []types.Product, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Store{
		path:    path,
		records: make([]types.Product, 0, len(products)),
		active:  make([]int, 0, len(products)),
		index:   make(map[string]int, len(products)),
		logger:  logger,
	}
	for _, p := range products {
		pos := len(s.records)
		s.records = append(s.records, p.Clone())

		if err := p.Validate(); err != nil {
			logger.Warn("ignoring invalid product", "id", p.ID, "error", err)
			continue
		}
		if _, dup := s.index[p.ID]; dup {
			logger.Warn("ignoring duplicate product", "id", p.ID)
			continue
		}
		s.index[p.ID] = pos
		s.active = append(s.active, pos)
	}
	return s
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of products
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// Query returns copies of the products matching every set filter, in catalog order
func (s *Store) Query(filters types.ProductFilters) []types.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]types.Product, 0, len(s.active))
	for _, pos := range s.active {
		if p := s.records[pos]; filters.Matches(p) {
			results = append(results, p.Clone())
		}
	}
	return results
}

// Get returns a copy of the product with the given ID
func (s *Store) Get(id string) (types.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.index[id]
	if !ok {
		return types.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return s.records[idx].Clone(), nil
}

// AdjustStock adds delta to the product's stock. Negative deltas deduct.
// The store does not check that stock stays non-negative; callers validate
// availability before deducting.
func (s *Store) AdjustStock(id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	s.records[idx].Stock += delta
	return nil
}

// Snapshot captures the current stock of every product
func (s *Store) Snapshot() StockLevels {
	s.mu.RLock()
	defer s.mu.RUnlock()

	levels := make(StockLevels, len(s.index))
	for id, pos := range s.index {
		levels[id] = s.records[pos].Stock
	}
	return levels
}

// Restore resets stock to the levels of a previous Snapshot
func (s *Store) Restore(levels StockLevels) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, stock := range levels {
		if idx, ok := s.index[id]; ok {
			s.records[idx].Stock = stock
		}
	}
}

// Persist writes the full catalog to the backing file, replacing its contents
func (s *Store) Persist() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := jsonfile.Write(s.path, s.records); err != nil {
		return fmt.Errorf("failed to persist catalog: %w", err)
	}
	s.logger.Debug("catalog persisted", "path", s.path, "records", len(s.records))
	return nil
}
