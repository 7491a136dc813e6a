package checkout

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dcastellanos/marketbay-backend/internal/inventory"
	"github.com/dcastellanos/marketbay-backend/internal/payments"
	"github.com/dcastellanos/marketbay-backend/pkg/config"
	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
	"github.com/dcastellanos/marketbay-backend/pkg/metrics"
	"github.com/dcastellanos/marketbay-backend/pkg/types"
)

type fakeLocker struct {
	mu     sync.Mutex
	held   map[string]bool
	busy   bool
	dels   []string
	setErr error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (f *fakeLocker) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return false, f.setErr
	}
	if f.busy || f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLocker) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.held, key)
		f.dels = append(f.dels, key)
	}
	return nil
}

func (f *fakeLocker) CheckoutLockKey(buyerID string) string {
	return "mb:checkout_lock:" + buyerID
}

type fakeCarts struct {
	mu      sync.Mutex
	items   types.CartItems
	loadErr error
	cleared int
}

func (f *fakeCarts) GetSavedItems(_ context.Context, _ uuid.UUID) (types.CartItems, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.items.Clone(), nil
}

func (f *fakeCarts) ClearBoth(_ context.Context, _, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	f.items = types.CartItems{}
	return nil
}

type fakeInventory struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Item
	// onGetItem mutates the returned copy, to simulate a validation snapshot
	// that goes stale before the commit phase.
	onGetItem func(item *models.Item)
}

func (f *fakeInventory) GetItem(_ context.Context, itemID uuid.UUID) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *item
	if f.onGetItem != nil {
		f.onGetItem(&copied)
	}
	return &copied, nil
}

func (f *fakeInventory) DecrementQuantity(_ context.Context, itemID, sellerID uuid.UUID, by int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	if item.SellerID != sellerID {
		return 0, gorm.ErrRecordNotFound
	}
	if item.Quantity < by {
		return item.Quantity, inventory.ErrInsufficientStock
	}
	item.Quantity -= by
	return item.Quantity, nil
}

type fakeLedger struct {
	mu           sync.Mutex
	transactions []models.Transaction
	purchases    []models.Purchase
	txnErr       error
	purchaseErr  error
}

func (f *fakeLedger) RecordTransaction(_ context.Context, buyerID uuid.UUID, cardLast4 string, amount decimal.Decimal, approved bool) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.txnErr != nil {
		return uuid.Nil, f.txnErr
	}
	txn := models.Transaction{ID: uuid.New(), BuyerID: buyerID, CardLast4: cardLast4, Amount: amount, Approved: approved}
	f.transactions = append(f.transactions, txn)
	return txn.ID, nil
}

func (f *fakeLedger) RecordPurchase(_ context.Context, buyerID, transactionID uuid.UUID, itemIDs []string, total decimal.Decimal) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purchaseErr != nil {
		return uuid.Nil, f.purchaseErr
	}
	purchase := models.Purchase{ID: uuid.New(), BuyerID: buyerID, TransactionID: transactionID, ItemIDs: itemIDs, Total: total}
	f.purchases = append(f.purchases, purchase)
	return purchase.ID, nil
}

type fakeGateway struct {
	mu      sync.Mutex
	approve bool
	err     error
	calls   int
}

func (f *fakeGateway) Authorize(_ context.Context, _ payments.Card, _ decimal.Decimal) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.approve, f.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func testCard() payments.Card {
	return payments.Card{CardholderName: "Alice Example", Number: "4111111111111111", ExpiryMonth: 12, ExpiryYear: 2030, CVV: "123"}
}

type world struct {
	coordinator *Coordinator
	locker      *fakeLocker
	carts       *fakeCarts
	inventory   *fakeInventory
	ledger      *fakeLedger
	gateway     *fakeGateway
}

func newWorld(t *testing.T, carts *fakeCarts, inv *fakeInventory, gw *fakeGateway) *world {
	t.Helper()
	locker := newFakeLocker()
	ledger := &fakeLedger{}
	coordinator, err := NewCoordinator(
		config.CheckoutConfig{LockTTL: time.Minute},
		locker, carts, inv, ledger, gw,
		metrics.NewCheckoutMetrics(prometheus.NewRegistry()),
		testLogger(),
	)
	if err != nil {
		t.Fatalf("NewCoordinator error: %v", err)
	}
	return &world{coordinator: coordinator, locker: locker, carts: carts, inventory: inv, ledger: ledger, gateway: gw}
}

func seededWorld(t *testing.T) (*world, uuid.UUID, uuid.UUID) {
	t.Helper()
	item7 := uuid.New()
	item9 := uuid.New()
	carts := &fakeCarts{items: types.CartItems{item7: 2, item9: 1}}
	inv := &fakeInventory{items: map[uuid.UUID]*models.Item{
		item7: {ID: item7, SellerID: uuid.New(), SalePrice: decimal.RequireFromString("10.00"), Quantity: 5},
		item9: {ID: item9, SellerID: uuid.New(), SalePrice: decimal.RequireFromString("20.00"), Quantity: 1},
	}}
	return newWorld(t, carts, inv, &fakeGateway{approve: true}), item7, item9
}

func TestCheckoutCompletesSeededCart(t *testing.T) {
	w, item7, item9 := seededWorld(t)
	buyerID := uuid.New()

	result, err := w.coordinator.Checkout(context.Background(), buyerID, uuid.New(), testCard())
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if !result.Amount.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected amount 40.00, got %s", result.Amount)
	}
	if len(w.ledger.transactions) != 1 || !w.ledger.transactions[0].Approved {
		t.Fatalf("expected exactly one approved transaction, got %+v", w.ledger.transactions)
	}
	if len(w.ledger.purchases) != 1 || w.ledger.purchases[0].TransactionID != w.ledger.transactions[0].ID {
		t.Fatalf("expected one purchase referencing the transaction, got %+v", w.ledger.purchases)
	}
	if got := w.inventory.items[item7].Quantity; got != 3 {
		t.Fatalf("expected item7 quantity 3, got %d", got)
	}
	if got := w.inventory.items[item9].Quantity; got != 0 {
		t.Fatalf("expected item9 quantity 0, got %d", got)
	}
	if w.carts.cleared != 1 {
		t.Fatalf("expected carts cleared once, got %d", w.carts.cleared)
	}
	if len(result.ItemIDs) != 3 {
		t.Fatalf("expected one entry per purchased unit, got %v", result.ItemIDs)
	}
	if len(w.locker.dels) != 1 {
		t.Fatalf("expected lock released once, got %v", w.locker.dels)
	}
}

func TestCheckoutEmptyCartIsNoOp(t *testing.T) {
	w := newWorld(t, &fakeCarts{items: types.CartItems{}}, &fakeInventory{items: map[uuid.UUID]*models.Item{}}, &fakeGateway{approve: true})

	result, err := w.coordinator.Checkout(context.Background(), uuid.New(), uuid.New(), testCard())
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if result.Status != StatusEmptyCart {
		t.Fatalf("expected empty cart status, got %s", result.Status)
	}
	if w.gateway.calls != 0 {
		t.Fatal("gateway must not be called for an empty cart")
	}
	if len(w.ledger.transactions) != 0 || w.carts.cleared != 0 {
		t.Fatal("empty cart must cause no writes")
	}
}

func TestCheckoutDeclineHasNoSideEffects(t *testing.T) {
	itemID := uuid.New()
	carts := &fakeCarts{items: types.CartItems{itemID: 1}}
	inv := &fakeInventory{items: map[uuid.UUID]*models.Item{
		itemID: {ID: itemID, SalePrice: decimal.RequireFromString("10.00"), Quantity: 5},
	}}
	w := newWorld(t, carts, inv, &fakeGateway{approve: false})

	_, err := w.coordinator.Checkout(context.Background(), uuid.New(), uuid.New(), testCard())
	if !pkgerrors.Is(err, pkgerrors.CodePaymentDeclined) {
		t.Fatalf("expected decline, got %v", err)
	}
	if len(w.ledger.transactions) != 0 || len(w.ledger.purchases) != 0 {
		t.Fatal("decline must write no ledger rows")
	}
	if w.inventory.items[itemID].Quantity != 5 {
		t.Fatal("decline must not touch inventory")
	}
	if w.carts.cleared != 0 {
		t.Fatal("decline must leave the cart untouched")
	}
	if len(w.locker.dels) != 1 {
		t.Fatal("lock must be released after a decline")
	}
}

func TestCheckoutInsufficientStockAbortsBeforePayment(t *testing.T) {
	itemID := uuid.New()
	carts := &fakeCarts{items: types.CartItems{itemID: 3}}
	inv := &fakeInventory{items: map[uuid.UUID]*models.Item{
		itemID: {ID: itemID, SalePrice: decimal.RequireFromString("10.00"), Quantity: 2},
	}}
	w := newWorld(t, carts, inv, &fakeGateway{approve: true})

	_, err := w.coordinator.Checkout(context.Background(), uuid.New(), uuid.New(), testCard())
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if w.gateway.calls != 0 {
		t.Fatal("gateway must not be called when validation fails")
	}
}

func TestCheckoutVanishedItemAbortsBeforePayment(t *testing.T) {
	carts := &fakeCarts{items: types.CartItems{uuid.New(): 1}}
	w := newWorld(t, carts, &fakeInventory{items: map[uuid.UUID]*models.Item{}}, &fakeGateway{approve: true})

	_, err := w.coordinator.Checkout(context.Background(), uuid.New(), uuid.New(), testCard())
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if w.gateway.calls != 0 {
		t.Fatal("gateway must not be called when validation fails")
	}
}

func TestCheckoutSoldOutAfterPaymentIsInconsistent(t *testing.T) {
	item7 := uuid.New()
	item9 := uuid.New()
	carts := &fakeCarts{items: types.CartItems{item7: 2, item9: 1}}
	inv := &fakeInventory{items: map[uuid.UUID]*models.Item{
		item7: {ID: item7, SellerID: uuid.New(), SalePrice: decimal.RequireFromString("10.00"), Quantity: 5},
		item9: {ID: item9, SellerID: uuid.New(), SalePrice: decimal.RequireFromString("20.00"), Quantity: 1},
	}}
	w := newWorld(t, carts, inv, &fakeGateway{approve: true})

	// Another buyer takes the last unit between validation and commit:
	// validation still sees one unit, the decrement finds none.
	w.inventory.items[item9].Quantity = 0
	w.inventory.onGetItem = func(item *models.Item) {
		if item.ID == item9 {
			item.Quantity = 1
		}
	}

	_, err := w.coordinator.Checkout(context.Background(), uuid.New(), uuid.New(), testCard())
	if !pkgerrors.Is(err, pkgerrors.CodePaymentInconsistent) {
		t.Fatalf("expected payment inconsistent, got %v", err)
	}

	appErr := pkgerrors.As(err)
	details, ok := appErr.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", appErr.Details())
	}
	if details["transaction_id"] != w.ledger.transactions[0].ID.String() {
		t.Fatalf("inconsistent error must carry the transaction id, got %v", details)
	}
	if details["step"] != StepDecrementInventory {
		t.Fatalf("expected failing step in details, got %v", details)
	}
	if meta := pkgerrors.MetadataFor(appErr.Code()); meta.Retryable {
		t.Fatal("payment inconsistent must never be marked retryable")
	}
	if w.carts.cleared != 0 {
		t.Fatal("cart must survive an inconsistent attempt for reconciliation")
	}
}

func TestCheckoutTransactionWriteFailureIsInconsistentWithoutID(t *testing.T) {
	itemID := uuid.New()
	carts := &fakeCarts{items: types.CartItems{itemID: 1}}
	inv := &fakeInventory{items: map[uuid.UUID]*models.Item{
		itemID: {ID: itemID, SalePrice: decimal.RequireFromString("10.00"), Quantity: 5},
	}}
	w := newWorld(t, carts, inv, &fakeGateway{approve: true})
	w.ledger.txnErr = errors.New("ledger unavailable")

	_, err := w.coordinator.Checkout(context.Background(), uuid.New(), uuid.New(), testCard())
	if !pkgerrors.Is(err, pkgerrors.CodePaymentInconsistent) {
		t.Fatalf("expected payment inconsistent, got %v", err)
	}
	details := pkgerrors.As(err).Details().(map[string]any)
	if _, present := details["transaction_id"]; present {
		t.Fatalf("no transaction id exists to report, got %v", details)
	}
}

func TestCheckoutCommitRunsDespiteCancelledCaller(t *testing.T) {
	w, item7, _ := seededWorld(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The fakes ignore ctx, so this asserts the coordinator itself does not
	// bail out of the commit phase on a dead caller context.
	result, err := w.coordinator.Checkout(ctx, uuid.New(), uuid.New(), testCard())
	if err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", result.Status)
	}
	if w.inventory.items[item7].Quantity != 3 {
		t.Fatal("commit phase did not run to completion")
	}
}

func TestCheckoutLockBusy(t *testing.T) {
	w, _, _ := seededWorld(t)
	w.locker.busy = true

	_, err := w.coordinator.Checkout(context.Background(), uuid.New(), uuid.New(), testCard())
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict while locked, got %v", err)
	}
	if w.gateway.calls != 0 {
		t.Fatal("a busy lock must stop the attempt before any step")
	}
}

func TestConcurrentCheckoutsSameBuyerOnlyOneSucceeds(t *testing.T) {
	w, _, _ := seededWorld(t)
	buyerID := uuid.New()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = w.coordinator.Checkout(context.Background(), buyerID, uuid.New(), testCard())
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case pkgerrors.Is(err, pkgerrors.CodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// The loser either hit the lock or found the cart already emptied; both
	// are allowed, but two full purchases from one saved cart are not.
	if successes < 1 || len(w.ledger.purchases) > 1 {
		t.Fatalf("expected at most one purchase, got %d purchases, %d successes, %d conflicts",
			len(w.ledger.purchases), successes, conflicts)
	}
}
