package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dcastellanos/marketbay-backend/internal/payments"
	"github.com/dcastellanos/marketbay-backend/pkg/config"
	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
	"github.com/dcastellanos/marketbay-backend/pkg/metrics"
	"github.com/dcastellanos/marketbay-backend/pkg/redis"
	"github.com/dcastellanos/marketbay-backend/pkg/types"
)

// Saga step names, used for metrics labels and error context.
const (
	StepLoadCart           = "load_cart"
	StepValidateItems      = "validate_items"
	StepComputeTotal       = "compute_total"
	StepAuthorizePayment   = "authorize_payment"
	StepRecordTransaction  = "record_transaction"
	StepRecordPurchase     = "record_purchase"
	StepDecrementInventory = "decrement_inventory"
	StepClearCart          = "clear_cart"
)

type cartRepo interface {
	GetSavedItems(ctx context.Context, buyerID uuid.UUID) (types.CartItems, error)
	ClearBoth(ctx context.Context, buyerID, sessionID uuid.UUID) error
}

type inventoryRepo interface {
	GetItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error)
	DecrementQuantity(ctx context.Context, itemID, sellerID uuid.UUID, by int) (int, error)
}

type ledger interface {
	RecordTransaction(ctx context.Context, buyerID uuid.UUID, cardLast4 string, amount decimal.Decimal, approved bool) (uuid.UUID, error)
	RecordPurchase(ctx context.Context, buyerID, transactionID uuid.UUID, itemIDs []string, total decimal.Decimal) (uuid.UUID, error)
}

// Status is the terminal state of one checkout attempt that did not error.
type Status string

const (
	// StatusCompleted means payment was captured, the ledgers were written,
	// inventory was decremented and both carts were emptied.
	StatusCompleted Status = "completed"
	// StatusEmptyCart means the saved cart held nothing; the attempt is a
	// no-op with no gateway call and no writes.
	StatusEmptyCart Status = "empty_cart"
)

// Service is the coordinator surface the API layer depends on.
type Service interface {
	Checkout(ctx context.Context, buyerID, sessionID uuid.UUID, card payments.Card) (*Result, error)
}

// Result summarizes a finished attempt.
type Result struct {
	Status        Status
	TransactionID uuid.UUID
	PurchaseID    uuid.UUID
	Amount        decimal.Decimal
	ItemIDs       []string
}

// Coordinator drives the checkout saga: load cart, validate against live
// inventory, authorize payment, then commit. Payment is the only step with
// no compensation, so it runs after all validation and before any durable
// write; everything past it must finish even if the caller goes away, and a
// partial commit surfaces as a payment-inconsistent error rather than being
// coerced into success or decline.
type Coordinator struct {
	cfg       config.CheckoutConfig
	locker    redis.Locker
	carts     cartRepo
	inventory inventoryRepo
	ledger    ledger
	gateway   payments.Gateway
	metrics   *metrics.CheckoutMetrics
	logger    *logger.Logger
}

// NewCoordinator wires the saga's collaborators.
func NewCoordinator(
	cfg config.CheckoutConfig,
	locker redis.Locker,
	carts cartRepo,
	inventoryRepo inventoryRepo,
	ledger ledger,
	gateway payments.Gateway,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (*Coordinator, error) {
	if locker == nil {
		return nil, fmt.Errorf("checkout locker required")
	}
	if carts == nil {
		return nil, fmt.Errorf("checkout cart repository required")
	}
	if inventoryRepo == nil {
		return nil, fmt.Errorf("checkout inventory repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("checkout ledger required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("checkout payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("checkout logger required")
	}
	return &Coordinator{
		cfg:       cfg,
		locker:    locker,
		carts:     carts,
		inventory: inventoryRepo,
		ledger:    ledger,
		gateway:   gateway,
		metrics:   checkoutMetrics,
		logger:    logg,
	}, nil
}

type validatedLine struct {
	itemID   uuid.UUID
	sellerID uuid.UUID
	qty      int
	price    decimal.Decimal
}

// Checkout runs one attempt for the buyer. Attempts for the same buyer are
// serialized by a lock held for the whole attempt, so one saved-cart snapshot
// can never feed two purchases.
func (c *Coordinator) Checkout(ctx context.Context, buyerID, sessionID uuid.UUID, card payments.Card) (*Result, error) {
	ctx = c.logger.WithBuyerID(ctx, buyerID.String())

	lockKey := c.locker.CheckoutLockKey(buyerID.String())
	acquired, err := c.locker.SetNX(ctx, lockKey, sessionID.String(), c.cfg.LockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire checkout lock")
	}
	if !acquired {
		c.metrics.IncLockBusy()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a checkout for this buyer is already in progress")
	}
	// The lock must come off even when the caller's context is already dead.
	defer func() {
		if err := c.locker.Del(context.WithoutCancel(ctx), lockKey); err != nil {
			c.logger.Warn(c.logger.WithField(ctx, "error", err.Error()), "checkout lock not released, will expire by ttl")
		}
	}()

	result, err := c.run(ctx, buyerID, sessionID, card)
	c.metrics.IncOutcome(outcomeFor(result, err))
	return result, err
}

func (c *Coordinator) run(ctx context.Context, buyerID, sessionID uuid.UUID, card payments.Card) (*Result, error) {
	items, err := step(c, StepLoadCart, func() (types.CartItems, error) {
		return c.carts.GetSavedItems(ctx, buyerID)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load saved cart")
	}
	if len(items) == 0 {
		c.logger.Info(ctx, "checkout on empty cart, nothing to do")
		return &Result{Status: StatusEmptyCart, Amount: decimal.Zero}, nil
	}

	lines, err := step(c, StepValidateItems, func() ([]validatedLine, error) {
		return c.validateItems(ctx, items)
	})
	if err != nil {
		return nil, err
	}

	total, _ := step(c, StepComputeTotal, func() (decimal.Decimal, error) {
		sum := decimal.Zero
		for _, line := range lines {
			sum = sum.Add(line.price.Mul(decimal.NewFromInt(int64(line.qty))))
		}
		return sum, nil
	})

	approved, err := step(c, StepAuthorizePayment, func() (bool, error) {
		return c.gateway.Authorize(ctx, card, total)
	})
	if err != nil {
		return nil, err
	}
	if !approved {
		c.logger.Info(ctx, "payment declined, cart untouched")
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, "payment was declined")
	}

	// Payment is captured. From here the saga runs to completion regardless
	// of the caller's deadline; any failure now is a partial commit and must
	// surface as such, never as success or decline.
	commitCtx := context.WithoutCancel(ctx)
	return c.commit(commitCtx, buyerID, sessionID, card, lines, total)
}

func (c *Coordinator) commit(ctx context.Context, buyerID, sessionID uuid.UUID, card payments.Card, lines []validatedLine, total decimal.Decimal) (*Result, error) {
	transactionID, err := step(c, StepRecordTransaction, func() (uuid.UUID, error) {
		return c.ledger.RecordTransaction(ctx, buyerID, card.Last4(), total, true)
	})
	if err != nil {
		return nil, c.inconsistent(ctx, uuid.Nil, StepRecordTransaction, err)
	}

	itemIDs := flattenLines(lines)
	purchaseID, err := step(c, StepRecordPurchase, func() (uuid.UUID, error) {
		return c.ledger.RecordPurchase(ctx, buyerID, transactionID, itemIDs, total)
	})
	if err != nil {
		return nil, c.inconsistent(ctx, transactionID, StepRecordPurchase, err)
	}

	if _, err := step(c, StepDecrementInventory, func() (struct{}, error) {
		for _, line := range lines {
			if _, err := c.inventory.DecrementQuantity(ctx, line.itemID, line.sellerID, line.qty); err != nil {
				return struct{}{}, fmt.Errorf("item %s: %w", line.itemID, err)
			}
		}
		return struct{}{}, nil
	}); err != nil {
		return nil, c.inconsistent(ctx, transactionID, StepDecrementInventory, err)
	}

	if _, err := step(c, StepClearCart, func() (struct{}, error) {
		return struct{}{}, c.carts.ClearBoth(ctx, buyerID, sessionID)
	}); err != nil {
		return nil, c.inconsistent(ctx, transactionID, StepClearCart, err)
	}

	ctx = c.logger.WithFields(ctx, map[string]any{
		"transaction_id": transactionID.String(),
		"purchase_id":    purchaseID.String(),
		"amount":         total.StringFixed(2),
	})
	c.logger.Info(ctx, "checkout completed")

	return &Result{
		Status:        StatusCompleted,
		TransactionID: transactionID,
		PurchaseID:    purchaseID,
		Amount:        total,
		ItemIDs:       itemIDs,
	}, nil
}

// validateItems checks existence and availability against live inventory.
// Any failure here aborts the attempt before the gateway is ever called.
func (c *Coordinator) validateItems(ctx context.Context, items types.CartItems) ([]validatedLine, error) {
	lines := make([]validatedLine, 0, len(items))
	for _, itemID := range sortedIDs(items) {
		qty := items[itemID]
		item, err := c.inventory.GetItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item no longer exists").
					WithDetails(map[string]any{"item_id": itemID.String()})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate cart item")
		}
		if item.Quantity < qty {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for cart item").
				WithDetails(map[string]any{
					"item_id":   itemID.String(),
					"requested": qty,
					"available": item.Quantity,
				})
		}
		lines = append(lines, validatedLine{itemID: itemID, sellerID: item.SellerID, qty: qty, price: item.SalePrice})
	}
	return lines, nil
}

// inconsistent builds the one error that must never be retried: payment went
// through but the commit phase did not fully complete.
func (c *Coordinator) inconsistent(ctx context.Context, transactionID uuid.UUID, step string, cause error) error {
	details := map[string]any{"step": step}
	if transactionID != uuid.Nil {
		details["transaction_id"] = transactionID.String()
	}
	ctx = c.logger.WithFields(ctx, details)
	c.logger.Error(ctx, "checkout partially committed after captured payment", cause)
	return pkgerrors.Wrap(pkgerrors.CodePaymentInconsistent,
		cause,
		"payment was captured but the order did not fully complete; do not retry, contact support for reconciliation",
	).WithDetails(details)
}

// step times one saga step. A free function because methods cannot carry
// type parameters.
func step[T any](c *Coordinator, name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	c.metrics.ObserveStep(name, time.Since(start))
	return out, err
}

func outcomeFor(result *Result, err error) string {
	switch {
	case err == nil && result != nil:
		return metrics.OutcomeSuccess
	case pkgerrors.Is(err, pkgerrors.CodePaymentDeclined):
		return metrics.OutcomeDeclined
	case pkgerrors.Is(err, pkgerrors.CodePaymentInconsistent):
		return metrics.OutcomeInconsistent
	default:
		return metrics.OutcomeAborted
	}
}

func sortedIDs(items types.CartItems) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// flattenLines expands each line into one entry per purchased unit, so the
// purchase row carries quantities without a separate column.
func flattenLines(lines []validatedLine) []string {
	var ids []string
	for _, line := range lines {
		for i := 0; i < line.qty; i++ {
			ids = append(ids, line.itemID.String())
		}
	}
	return ids
}
