package orders

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/voicecart-mcp/internal/catalog"
	"github.com/dshills/voicecart-mcp/pkg/types"
)

var (
	// ErrProductNotFound is returned when a requested product is not in the catalog
	ErrProductNotFound = catalog.ErrProductNotFound
	// ErrOrderNotFound is returned when no order has the given ID
	ErrOrderNotFound = errors.New("order not found")
	// ErrItemNotFound is returned when an order has no line item for the product
	ErrItemNotFound = errors.New("product not found in this order")
	// ErrAlreadyCancelled is returned when removing an item from a cancelled order
	ErrAlreadyCancelled = errors.New("order is already cancelled")
	// ErrInvalidQuantity is returned for quantities below one
	ErrInvalidQuantity = types.ErrInvalidQuantity
	// ErrNoItems is returned when an order request has no line items
	ErrNoItems = errors.New("order must contain at least one item")
	// ErrPersistence wraps failures to write the catalog or the ledger
	ErrPersistence = errors.New("failed to persist changes")
)

// NeedsSizeError asks the caller to pick a size before the order can be placed.
// It is a disambiguation request rather than a failure.
type NeedsSizeError struct {
	ProductID      string
	AvailableSizes []string
}

func (e *NeedsSizeError) Error() string {
	return fmt.Sprintf("product %s needs a size: one of %s", e.ProductID, strings.Join(e.AvailableSizes, ", "))
}

// InsufficientStockError reports that fewer units remain than were requested
type InsufficientStockError struct {
	ProductID string
	Requested int
	Remaining int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d left in stock for %s", e.Remaining, e.ProductID)
}
