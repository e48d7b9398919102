package orders

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/voicecart-mcp/internal/catalog"
	"github.com/dshills/voicecart-mcp/internal/ledger"
	"github.com/dshills/voicecart-mcp/pkg/types"
)

var fixedNow = time.Date(2025, 11, 28, 12, 0, 0, 0, time.UTC)

func testProducts() []types.Product {
	return []types.Product{
		{ID: "P1", Name: "Mug", Category: "mug", Color: "white", Price: decimal.NewFromInt(100), Currency: "INR", Stock: 5},
		{ID: "P2", Name: "Hoodie", Category: "hoodie", Color: "black", Price: decimal.NewFromInt(1500), Currency: "INR", Stock: 3, Sizes: []string{"S", "M"}},
		{ID: "P3", Name: "Sticker", Category: "sticker", Color: "red", Price: decimal.NewFromInt(50), Stock: 10},
	}
}

type fixture struct {
	svc         *Service
	store       *catalog.Store
	repo        *flakyRepo
	catalogPath string
	ledgerPath  string
}

// flakyRepo wraps a real repository and fails SaveAll or LoadAll on demand
type flakyRepo struct {
	ledger.Repository
	saveErr error
	loadErr error
	saves   int
}

func (f *flakyRepo) LoadAll(ctx context.Context) ([]types.Order, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.Repository.LoadAll(ctx)
}

func (f *flakyRepo) SaveAll(ctx context.Context, orders []types.Order) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	return f.Repository.SaveAll(ctx, orders)
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.json")
	ledgerPath := filepath.Join(dir, "orders.json")

	store := catalog.New(catalogPath, testProducts(), nil)
	repo := &flakyRepo{Repository: ledger.NewFileRepository(ledgerPath, nil)}

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return &fixture{
		svc:         NewService(store, repo, opts...),
		store:       store,
		repo:        repo,
		catalogPath: catalogPath,
		ledgerPath:  ledgerPath,
	}
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Get(id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) stocks(t *testing.T) map[string]int {
	t.Helper()
	return map[string]int(f.store.Snapshot())
}

func (f *fixture) ledgerOrders(t *testing.T) []types.Order {
	t.Helper()
	orders, err := f.repo.Repository.LoadAll(context.Background())
	require.NoError(t, err)
	return orders
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("deducts stock and records the order", func(t *testing.T) {
		f := newFixture(t)

		order, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 2}})
		require.NoError(t, err)

		assert.NotEmpty(t, order.ID)
		assert.True(t, order.Total.Equal(decimal.NewFromInt(200)))
		assert.Equal(t, types.StatusConfirmed, order.Status)
		assert.Equal(t, "INR", order.Currency)
		assert.True(t, order.CreatedAt.Equal(fixedNow))
		require.Len(t, order.Items, 1)
		assert.Equal(t, "Mug", order.Items[0].Name)
		assert.True(t, order.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)))

		assert.Equal(t, 3, f.stock(t, "P1"))

		persisted := catalog.Load(f.catalogPath, nil)
		p, err := persisted.Get("P1")
		require.NoError(t, err)
		assert.Equal(t, 3, p.Stock, "catalog file should reflect the deduction")

		orders := f.ledgerOrders(t)
		require.Len(t, orders, 1)
		assert.Equal(t, order.ID, orders[0].ID)
	})

	t.Run("snapshots size and falls back to service currency", func(t *testing.T) {
		f := newFixture(t, WithCurrency("USD"))

		order, err := f.svc.CreateOrder(ctx, []ItemRequest{
			{ProductID: "P2", Quantity: 1, Size: "M"},
			{ProductID: "P3", Quantity: 4, Size: "ignored"},
		})
		require.NoError(t, err)

		assert.Equal(t, "M", order.Items[0].Size)
		assert.Equal(t, "INR", order.Items[0].Currency)
		assert.Equal(t, "", order.Items[1].Size, "size is only kept for sized products")
		assert.Equal(t, "USD", order.Items[1].Currency)
		assert.Equal(t, "USD", order.Currency)
		assert.True(t, order.Total.Equal(decimal.NewFromInt(1700)))
	})

	t.Run("needs size", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P2", Quantity: 1}})

		var needsSize *NeedsSizeError
		require.ErrorAs(t, err, &needsSize)
		assert.Equal(t, "P2", needsSize.ProductID)
		assert.Equal(t, []string{"S", "M"}, needsSize.AvailableSizes)
		assert.Equal(t, 3, f.stock(t, "P2"))
		assert.Empty(t, f.ledgerOrders(t))
	})

	t.Run("unoffered size also needs size", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P2", Quantity: 1, Size: "XXL"}})

		var needsSize *NeedsSizeError
		require.ErrorAs(t, err, &needsSize)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 6}})

		var insufficient *InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 5, insufficient.Remaining)
		assert.Equal(t, 6, insufficient.Requested)
		assert.Equal(t, 5, f.stock(t, "P1"))
	})

	t.Run("repeated product lines share stock", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateOrder(ctx, []ItemRequest{
			{ProductID: "P1", Quantity: 3},
			{ProductID: "P1", Quantity: 3},
		})

		var insufficient *InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 5, f.stock(t, "P1"), "stock must never go negative")
	})

	t.Run("rejects empty and non-positive requests", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.CreateOrder(ctx, nil)
		assert.ErrorIs(t, err, ErrNoItems)

		_, err = f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 0}})
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})
}

func TestCreateOrder_AllOrNothing(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		items   []ItemRequest
		checkFn func(t *testing.T, err error)
	}{
		{
			name:  "unknown product after a valid one",
			items: []ItemRequest{{ProductID: "P1", Quantity: 2}, {ProductID: "ghost", Quantity: 1}},
			checkFn: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrProductNotFound)
			},
		},
		{
			name:  "missing size after a valid one",
			items: []ItemRequest{{ProductID: "P3", Quantity: 1}, {ProductID: "P2", Quantity: 1}},
			checkFn: func(t *testing.T, err error) {
				var target *NeedsSizeError
				assert.ErrorAs(t, err, &target)
			},
		},
		{
			name:  "insufficient stock after a valid one",
			items: []ItemRequest{{ProductID: "P1", Quantity: 1}, {ProductID: "P3", Quantity: 11}},
			checkFn: func(t *testing.T, err error) {
				var target *InsufficientStockError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, 10, target.Remaining)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			before := f.stocks(t)

			order, err := f.svc.CreateOrder(ctx, tt.items)
			require.Error(t, err)
			assert.Nil(t, order)
			tt.checkFn(t, err)

			assert.Equal(t, before, f.stocks(t))
			assert.Empty(t, f.ledgerOrders(t))
			assert.NoFileExists(t, f.catalogPath, "catalog must not be rewritten")
		})
	}
}

func TestCreateOrder_TotalsMatchItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	order, err := f.svc.CreateOrder(ctx, []ItemRequest{
		{ProductID: "P1", Quantity: 2},
		{ProductID: "P2", Quantity: 1, Size: "S"},
		{ProductID: "P3", Quantity: 7},
		{ProductID: "P1", Quantity: 3},
	})
	require.NoError(t, err)

	want := decimal.Zero
	for _, item := range order.Items {
		want = want.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	assert.True(t, order.Total.Equal(want))
	assert.True(t, order.Total.Equal(decimal.NewFromInt(2350)))

	assert.Equal(t, 0, f.stock(t, "P1"))
	assert.Equal(t, 2, f.stock(t, "P2"))
	assert.Equal(t, 3, f.stock(t, "P3"))
}

func TestCreateOrder_RerollsCollidingIDs(t *testing.T) {
	ctx := context.Background()
	ids := []string{"dup", "dup", "fresh"}
	next := 0
	f := newFixture(t, WithIDGenerator(func() string {
		id := ids[next]
		next++
		return id
	}))

	first, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, "dup", first.ID)

	second, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, "fresh", second.ID)
}

func TestCreateOrder_LedgerFailureRollsBackStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.repo.saveErr = errors.New("disk full")

	_, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 2}})
	require.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "disk full")

	assert.Equal(t, 5, f.stock(t, "P1"))
	persisted := catalog.Load(f.catalogPath, nil)
	p, err := persisted.Get("P1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock, "catalog file should be restored too")
}

func TestCreateOrder_KeepsOrdersWithUnparseableTimestamps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	legacy := []types.Order{
		{ID: "old-1", Currency: "INR", CreatedAt: types.TimestampOrRaw("28/11/2025"), Status: types.StatusConfirmed,
			Items: []types.LineItem{{ProductID: "P1", Name: "Mug", Quantity: 1, UnitPrice: decimal.NewFromInt(100), Currency: "INR"}}},
		{ID: "old-2", Currency: "INR", CreatedAt: types.NewTimestamp(fixedNow.Add(-48 * time.Hour)), Status: types.StatusConfirmed,
			Items: []types.LineItem{{ProductID: "P3", Name: "Sticker", Quantity: 2, UnitPrice: decimal.NewFromInt(50), Currency: "INR"}}},
	}
	for i := range legacy {
		legacy[i].Recalculate()
	}
	require.NoError(t, f.repo.Repository.SaveAll(ctx, legacy))

	_, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 1}})
	require.NoError(t, err)

	orders := f.ledgerOrders(t)
	require.Len(t, orders, 3)
	assert.Equal(t, "28/11/2025", orders[0].CreatedAt.Unparsed())

	spent, err := f.svc.TotalSpent(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(spent.Total))

	today, err := f.svc.TotalToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, today.OrderCount)
}

func TestCreateOrder_LedgerLoadFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.repo.loadErr = errors.New("database locked")

	_, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 2}})
	require.Error(t, err)
	assert.Equal(t, 5, f.stock(t, "P1"))
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("restores stock and marks cancelled", func(t *testing.T) {
		f := newFixture(t)
		before := f.stocks(t)
		order, err := f.svc.CreateOrder(ctx, []ItemRequest{
			{ProductID: "P1", Quantity: 2},
			{ProductID: "P2", Quantity: 1, Size: "S"},
		})
		require.NoError(t, err)

		result, err := f.svc.CancelOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.ID, result.OrderID)
		assert.False(t, result.AlreadyCancelled)

		assert.Equal(t, before, f.stocks(t))
		orders := f.ledgerOrders(t)
		require.Len(t, orders, 1, "cancelled orders stay in the ledger")
		assert.Equal(t, types.StatusCancelled, orders[0].Status)
		assert.Len(t, orders[0].Items, 2)
	})

	t.Run("second cancel is informational and changes nothing", func(t *testing.T) {
		f := newFixture(t)
		order, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 2}})
		require.NoError(t, err)

		_, err = f.svc.CancelOrder(ctx, order.ID)
		require.NoError(t, err)
		afterFirst := f.stocks(t)
		saves := f.repo.saves

		result, err := f.svc.CancelOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, result.AlreadyCancelled)
		assert.Equal(t, afterFirst, f.stocks(t))
		assert.Equal(t, saves, f.repo.saves, "ledger must not be rewritten")
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CancelOrder(ctx, "nope")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("skips products no longer in the catalog", func(t *testing.T) {
		f := newFixture(t)
		order, err := f.svc.CreateOrder(ctx, []ItemRequest{
			{ProductID: "P1", Quantity: 1},
			{ProductID: "P3", Quantity: 2},
		})
		require.NoError(t, err)

		// Same ledger, catalog without P3
		reduced := catalog.New(f.catalogPath, testProducts()[:1], nil)
		svc := NewService(reduced, f.repo)

		_, err = svc.CancelOrder(ctx, order.ID)
		require.NoError(t, err)
		p, err := reduced.Get("P1")
		require.NoError(t, err)
		assert.Equal(t, 6, p.Stock)
	})

	t.Run("ledger failure restores stock", func(t *testing.T) {
		f := newFixture(t)
		order, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 2}})
		require.NoError(t, err)

		f.repo.saveErr = errors.New("read-only filesystem")
		_, err = f.svc.CancelOrder(ctx, order.ID)
		require.ErrorIs(t, err, ErrPersistence)
		assert.Equal(t, 3, f.stock(t, "P1"))

		f.repo.saveErr = nil
		assert.Equal(t, types.StatusConfirmed, f.ledgerOrders(t)[0].Status)
	})
}

func TestCancelOrderItem(t *testing.T) {
	ctx := context.Background()

	t.Run("removes item and recomputes total", func(t *testing.T) {
		f := newFixture(t)
		order, err := f.svc.CreateOrder(ctx, []ItemRequest{
			{ProductID: "P1", Quantity: 2},
			{ProductID: "P3", Quantity: 1},
		})
		require.NoError(t, err)
		require.True(t, order.Total.Equal(decimal.NewFromInt(250)))

		result, err := f.svc.CancelOrderItem(ctx, order.ID, "P3")
		require.NoError(t, err)

		assert.Equal(t, "P3", result.RemovedProductID)
		assert.True(t, result.NewTotal.Equal(decimal.NewFromInt(200)))
		assert.Equal(t, types.StatusConfirmed, result.Status)
		assert.Equal(t, 10, f.stock(t, "P3"))
		assert.Equal(t, 3, f.stock(t, "P1"))

		stored := f.ledgerOrders(t)[0]
		assert.Len(t, stored.Items, 1)
		assert.True(t, stored.Total.Equal(decimal.NewFromInt(200)))
	})

	t.Run("removing the last item cancels the order", func(t *testing.T) {
		f := newFixture(t)
		order, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 2}})
		require.NoError(t, err)

		result, err := f.svc.CancelOrderItem(ctx, order.ID, "P1")
		require.NoError(t, err)
		assert.True(t, result.NewTotal.IsZero())
		assert.Equal(t, types.StatusCancelled, result.Status)
		assert.Equal(t, types.StatusCancelled, f.ledgerOrders(t)[0].Status)
	})

	t.Run("cancelled order is rejected", func(t *testing.T) {
		f := newFixture(t)
		order, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 2}})
		require.NoError(t, err)
		_, err = f.svc.CancelOrder(ctx, order.ID)
		require.NoError(t, err)
		before := f.stocks(t)

		_, err = f.svc.CancelOrderItem(ctx, order.ID, "P1")
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
		assert.Equal(t, before, f.stocks(t))
	})

	t.Run("unknown order and item", func(t *testing.T) {
		f := newFixture(t)
		order, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 1}})
		require.NoError(t, err)

		_, err = f.svc.CancelOrderItem(ctx, "nope", "P1")
		assert.ErrorIs(t, err, ErrOrderNotFound)

		_, err = f.svc.CancelOrderItem(ctx, order.ID, "P3")
		assert.ErrorIs(t, err, ErrItemNotFound)
		assert.Equal(t, 4, f.stock(t, "P1"))
	})

	t.Run("uses the price snapshot, not the current catalog", func(t *testing.T) {
		f := newFixture(t)
		order, err := f.svc.CreateOrder(ctx, []ItemRequest{
			{ProductID: "P1", Quantity: 2},
			{ProductID: "P3", Quantity: 1},
		})
		require.NoError(t, err)

		repriced := testProducts()
		repriced[0].Price = decimal.NewFromInt(999)
		svc := NewService(catalog.New(f.catalogPath, repriced, nil), f.repo)

		result, err := svc.CancelOrderItem(ctx, order.ID, "P3")
		require.NoError(t, err)
		assert.True(t, result.NewTotal.Equal(decimal.NewFromInt(200)))
	})
}

func TestItemByItemMatchesWholeCancel(t *testing.T) {
	ctx := context.Background()
	items := []ItemRequest{
		{ProductID: "P1", Quantity: 2},
		{ProductID: "P2", Quantity: 2, Size: "M"},
		{ProductID: "P3", Quantity: 5},
	}

	whole := newFixture(t)
	order, err := whole.svc.CreateOrder(ctx, items)
	require.NoError(t, err)
	_, err = whole.svc.CancelOrder(ctx, order.ID)
	require.NoError(t, err)

	piecewise := newFixture(t)
	order, err = piecewise.svc.CreateOrder(ctx, items)
	require.NoError(t, err)
	for _, item := range items {
		_, err := piecewise.svc.CancelOrderItem(ctx, order.ID, item.ProductID)
		require.NoError(t, err)
	}

	assert.Equal(t, whole.stocks(t), piecewise.stocks(t))
	assert.Equal(t, types.StatusCancelled, piecewise.ledgerOrders(t)[0].Status)
}

func TestTotals(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	f := newFixture(t, WithClock(func() time.Time { return now }))

	empty, err := f.svc.TotalSpent(ctx)
	require.NoError(t, err)
	assert.True(t, empty.Total.IsZero())
	assert.Equal(t, 0, empty.OrderCount)
	assert.Equal(t, "INR", empty.Currency)

	// Yesterday
	now = fixedNow.Add(-24 * time.Hour)
	_, err = f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 1}})
	require.NoError(t, err)

	// Today
	now = fixedNow
	second, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P3", Quantity: 2}})
	require.NoError(t, err)
	third, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P1", Quantity: 3}})
	require.NoError(t, err)

	spent, err := f.svc.TotalSpent(ctx)
	require.NoError(t, err)
	assert.True(t, spent.Total.Equal(decimal.NewFromInt(100+100+300)))
	assert.Equal(t, 3, spent.OrderCount)

	today, err := f.svc.TotalToday(ctx)
	require.NoError(t, err)
	assert.True(t, today.Total.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, 2, today.OrderCount)

	_, err = f.svc.CancelOrder(ctx, third.ID)
	require.NoError(t, err)

	spent, err = f.svc.TotalSpent(ctx)
	require.NoError(t, err)
	assert.True(t, spent.Total.Equal(decimal.NewFromInt(200)), "cancelled orders do not count")
	assert.Equal(t, 2, spent.OrderCount)

	today, err = f.svc.TotalToday(ctx)
	require.NoError(t, err)
	assert.True(t, today.Total.Equal(second.Total))
	assert.Equal(t, 1, today.OrderCount)
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	f := newFixture(t, WithClock(func() time.Time { return now }))

	var ids []string
	for i := 0; i < 3; i++ {
		now = fixedNow.Add(time.Duration(i) * time.Minute)
		order, err := f.svc.CreateOrder(ctx, []ItemRequest{{ProductID: "P3", Quantity: 1}})
		require.NoError(t, err, fmt.Sprintf("order %d", i))
		ids = append(ids, order.ID)
	}
	_, err := f.svc.CancelOrder(ctx, ids[1])
	require.NoError(t, err)

	all, err := f.svc.ListOrders(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})

	cancelled, err := f.svc.ListOrders(ctx, types.StatusCancelled)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, ids[1], cancelled[0].ID)
}
