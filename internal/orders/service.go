package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dshills/voicecart-mcp/internal/catalog"
	"github.com/dshills/voicecart-mcp/internal/ledger"
	"github.com/dshills/voicecart-mcp/pkg/types"
)

// DefaultCurrency labels orders and totals when none is configured
const DefaultCurrency = "INR"

// Service validates and applies order operations against the catalog and
// the ledger. Operations are serialized: each one runs its check-then-act
// sequence without interleaving with another.
type Service struct {
	mu       sync.Mutex
	catalog  *catalog.Store
	ledger   ledger.Repository
	currency string
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithCurrency sets the currency label for orders and totals
func WithCurrency(currency string) Option {
	return func(s *Service) {
		if currency != "" {
			s.currency = currency
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the random order ID generator
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates an order service over the given catalog and ledger
func NewService(store *catalog.Store, repo ledger.Repository, opts ...Option) *Service {
	s := &Service{
		catalog:  store,
		ledger:   repo,
		currency: DefaultCurrency,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Currency returns the currency label used for orders and totals
func (s *Service) Currency() string {
	return s.currency
}

// ItemRequest is one requested line of a new order
type ItemRequest struct {
	ProductID string
	Quantity  int
	// Size must be one the product offers. It is ignored, and not recorded
	// on the line item, for products without sizes.
	Size string
}

// CreateOrder validates every requested item before touching stock, then
// deducts stock, records the order and persists both stores. Either the whole
// order is created or nothing changes.
//
// Validation failures are returned as ErrProductNotFound, ErrInvalidQuantity,
// *NeedsSizeError or *InsufficientStockError.
func (s *Service) CreateOrder(ctx context.Context, items []ItemRequest) (*types.Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]types.Product, len(items))
	requested := make(map[string]int, len(items))
	for i, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: %s has quantity %d", ErrInvalidQuantity, item.ProductID, item.Quantity)
		}

		product, err := s.catalog.Get(item.ProductID)
		if err != nil {
			return nil, err
		}

		if product.HasSizes() && !product.OffersSize(item.Size) {
			return nil, &NeedsSizeError{ProductID: product.ID, AvailableSizes: product.Sizes}
		}

		// Lines for the same product draw on the same stock
		requested[product.ID] += item.Quantity
		if requested[product.ID] > product.Stock {
			return nil, &InsufficientStockError{
				ProductID: product.ID,
				Requested: requested[product.ID],
				Remaining: product.Stock,
			}
		}

		products[i] = product
	}

	orders, err := s.ledger.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	snapshot := s.catalog.Snapshot()
	order := types.Order{
		ID:        s.uniqueOrderID(orders),
		Items:     make([]types.LineItem, 0, len(items)),
		Currency:  s.currency,
		CreatedAt: types.NewTimestamp(s.now()),
		Status:    types.StatusConfirmed,
	}

	for i, item := range items {
		product := products[i]
		if err := s.catalog.AdjustStock(product.ID, -item.Quantity); err != nil {
			s.catalog.Restore(snapshot)
			return nil, err
		}

		size := ""
		if product.HasSizes() {
			size = item.Size
		}
		order.Items = append(order.Items, types.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			Size:      size,
			Currency:  s.productCurrency(product),
		})
	}
	order.Recalculate()

	if err := s.catalog.Persist(); err != nil {
		return nil, s.rollback(snapshot, err)
	}

	orders = append(orders, order)
	if err := s.ledger.SaveAll(ctx, orders); err != nil {
		return nil, s.rollback(snapshot, err)
	}

	s.logger.Info("order created",
		"order_id", order.ID,
		"items", len(order.Items),
		"total", order.Total.String(),
		"currency", order.Currency)

	return &order, nil
}

// CancelResult describes the outcome of CancelOrder
type CancelResult struct {
	OrderID          string
	AlreadyCancelled bool
}

// CancelOrder cancels a confirmed order and returns its stock to the catalog.
// Cancelling an order that is already cancelled changes nothing and reports
// AlreadyCancelled.
func (s *Service) CancelOrder(ctx context.Context, orderID string) (*CancelResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, idx, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order := &orders[idx]
	if order.IsCancelled() {
		return &CancelResult{OrderID: orderID, AlreadyCancelled: true}, nil
	}

	snapshot := s.catalog.Snapshot()
	for _, item := range order.Items {
		s.restoreStock(orderID, item)
	}
	if err := s.catalog.Persist(); err != nil {
		return nil, s.rollback(snapshot, err)
	}

	order.Status = types.StatusCancelled
	if err := s.ledger.SaveAll(ctx, orders); err != nil {
		return nil, s.rollback(snapshot, err)
	}

	s.logger.Info("order cancelled", "order_id", orderID, "items_restored", len(order.Items))
	return &CancelResult{OrderID: orderID}, nil
}

// ItemCancellation describes the outcome of CancelOrderItem
type ItemCancellation struct {
	OrderID          string
	RemovedProductID string
	NewTotal         decimal.Decimal
	Currency         string
	Status           types.Status
}

// CancelOrderItem removes the line item for productID from a confirmed order,
// returns its quantity to stock and recomputes the total. Removing the last
// item cancels the order. Unlike CancelOrder, a cancelled order is rejected
// with ErrAlreadyCancelled.
func (s *Service) CancelOrderItem(ctx context.Context, orderID, productID string) (*ItemCancellation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, idx, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order := &orders[idx]
	if order.IsCancelled() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyCancelled, orderID)
	}

	itemIdx, ok := order.FindItem(productID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, productID)
	}

	snapshot := s.catalog.Snapshot()
	s.restoreStock(orderID, order.Items[itemIdx])
	if err := s.catalog.Persist(); err != nil {
		return nil, s.rollback(snapshot, err)
	}

	order.RemoveItem(itemIdx)
	if len(order.Items) == 0 {
		order.Status = types.StatusCancelled
	}

	if err := s.ledger.SaveAll(ctx, orders); err != nil {
		return nil, s.rollback(snapshot, err)
	}

	s.logger.Info("order item cancelled",
		"order_id", orderID,
		"product_id", productID,
		"new_total", order.Total.String(),
		"status", order.Status)

	return &ItemCancellation{
		OrderID:          orderID,
		RemovedProductID: productID,
		NewTotal:         order.Total,
		Currency:         order.Currency,
		Status:           order.Status,
	}, nil
}

// SpendSummary aggregates confirmed orders
type SpendSummary struct {
	Total      decimal.Decimal
	Currency   string
	OrderCount int
}

// TotalSpent sums the totals of all confirmed orders
func (s *Service) TotalSpent(ctx context.Context) (*SpendSummary, error) {
	return s.summarize(ctx, func(types.Order) bool { return true })
}

// TotalToday sums the totals of confirmed orders created on the current UTC date
func (s *Service) TotalToday(ctx context.Context) (*SpendSummary, error) {
	y, m, d := s.now().UTC().Date()
	return s.summarize(ctx, func(o types.Order) bool {
		oy, om, od := o.CreatedAt.UTC().Date()
		return oy == y && om == m && od == d
	})
}

// ListOrders returns the ledger newest first, optionally limited to one status
func (s *Service) ListOrders(ctx context.Context, status types.Status) ([]types.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.ledger.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	result := make([]types.Order, 0, len(orders))
	for _, o := range orders {
		if status == "" || o.Status == status {
			result = append(result, o)
		}
	}
	slices.Reverse(result)
	slices.SortStableFunc(result, func(a, b types.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt.Time)
	})
	return result, nil
}

func (s *Service) summarize(ctx context.Context, include func(types.Order) bool) (*SpendSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.ledger.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	summary := &SpendSummary{Total: decimal.Zero, Currency: s.currency}
	for _, o := range orders {
		if o.Status != types.StatusConfirmed || !include(o) {
			continue
		}
		summary.Total = summary.Total.Add(o.Total)
		summary.OrderCount++
	}
	return summary, nil
}

// findOrder loads the ledger and locates orderID in it
func (s *Service) findOrder(ctx context.Context, orderID string) ([]types.Order, int, error) {
	orders, err := s.ledger.LoadAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load ledger: %w", err)
	}
	idx := slices.IndexFunc(orders, func(o types.Order) bool { return o.ID == orderID })
	if idx < 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return orders, idx, nil
}

// restoreStock returns an item's quantity to the catalog. Products that have
// disappeared from the catalog are skipped.
func (s *Service) restoreStock(orderID string, item types.LineItem) {
	if err := s.catalog.AdjustStock(item.ProductID, item.Quantity); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			s.logger.Warn("product no longer in catalog, stock not restored",
				"order_id", orderID, "product_id", item.ProductID, "quantity", item.Quantity)
			return
		}
		s.logger.Error("failed to restore stock", "order_id", orderID, "product_id", item.ProductID, "error", err)
	}
}

// rollback resets in-memory stock to snapshot after a failed write and tries
// to bring the catalog file back in line with it
func (s *Service) rollback(snapshot catalog.StockLevels, cause error) error {
	s.catalog.Restore(snapshot)
	if err := s.catalog.Persist(); err != nil {
		s.logger.Error("failed to persist catalog after rollback", "error", err, "cause", cause)
	} else {
		s.logger.Warn("stock changes rolled back", "cause", cause)
	}
	return fmt.Errorf("%w: %w", ErrPersistence, cause)
}

// uniqueOrderID draws IDs until one is not already in the ledger
func (s *Service) uniqueOrderID(orders []types.Order) string {
	for {
		id := s.newID()
		taken := slices.ContainsFunc(orders, func(o types.Order) bool { return o.ID == id })
		if !taken {
			return id
		}
		s.logger.Warn("order ID collision, drawing again", "order_id", id)
	}
}

func (s *Service) productCurrency(p types.Product) string {
	if p.Currency != "" {
		return p.Currency
	}
	return s.currency
}
