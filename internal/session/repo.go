package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dcastellanos/marketbay-backend/pkg/db"
	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	"github.com/dcastellanos/marketbay-backend/pkg/types"
)

// ErrCartMissing signals that no active cart row matched the mutation. The
// service layer resolves it into the precise caller-facing error.
var ErrCartMissing = errors.New("active cart row not found")

// Repository encapsulates session and cart persistence. Every mutation that
// races with another request flow is a single conditional statement, never a
// read followed by a separate write.
type Repository struct {
	client *db.Client
}

// NewRepository constructs a session repository backed by the shared DB client.
func NewRepository(client *db.Client) *Repository {
	return &Repository{client: client}
}

// CreateSession inserts the session row and its active cart in one
// transaction so neither is observable without the other.
func (r *Repository) CreateSession(ctx context.Context, sess *models.Session, cart *models.ActiveCart) error {
	return r.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(sess).Error; err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		if err := tx.Create(cart).Error; err != nil {
			return fmt.Errorf("insert active cart: %w", err)
		}
		return nil
	})
}

type principalRow struct {
	PrincipalID   uuid.UUID           `gorm:"column:principal_id"`
	PrincipalKind enums.PrincipalKind `gorm:"column:principal_kind"`
}

// ValidateAndRefresh advances last_active_at iff the session is still inside
// the idle window, returning the bound principal. The check and the refresh
// are one conditional UPDATE so two concurrent requests on the same session
// cannot disagree about its liveness. A miss returns (nil, nil); the caller
// decides between expiry cleanup and plain not-found.
func (r *Repository) ValidateAndRefresh(ctx context.Context, sessionID uuid.UUID, window time.Duration) (*principalRow, error) {
	now := time.Now().UTC()
	var rows []principalRow
	err := r.client.DB().WithContext(ctx).Raw(`
		UPDATE sessions
		SET last_active_at = ?
		WHERE session_id = ?
		  AND last_active_at >= ?
		RETURNING principal_id, principal_kind`,
		now, sessionID, now.Add(-window),
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("validate session: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// DeleteSession removes the session row; the active cart goes with it via
// the FK cascade. Deleting an already-deleted session succeeds, so two
// requests expiring the same session both observe "gone".
func (r *Repository) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	return r.client.DB().WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.Session{}).
		Error
}

// jsonPath builds the sqlite json path for a cart key. Keys are item UUIDs,
// so no quoting beyond the wrapper is needed.
func jsonPath(key string) string {
	return `$."` + key + `"`
}

// UpsertItem adds qty to the cart's entry for itemID, inserting the key when
// absent. One atomic jsonb upsert, correct under concurrent double-submits.
// The cart mutations carry a sqlite variant so the in-memory repo tests run
// the same single-statement guards.
func (r *Repository) UpsertItem(ctx context.Context, sessionID, itemID uuid.UUID, qty int) error {
	key := itemID.String()
	tx := r.client.DB().WithContext(ctx)
	var res *gorm.DB
	if tx.Name() == "sqlite" {
		path := jsonPath(key)
		res = tx.Exec(`
			UPDATE active_carts
			SET items = json_set(items, ?, COALESCE(json_extract(items, ?), 0) + ?),
			    updated_at = CURRENT_TIMESTAMP
			WHERE session_id = ?`,
			path, path, qty, sessionID,
		)
	} else {
		res = tx.Exec(`
			UPDATE active_carts
			SET items = jsonb_set(items, ARRAY[?], to_jsonb(COALESCE((items->>?)::int, 0) + ?)),
			    updated_at = NOW()
			WHERE session_id = ?`,
			key, key, qty, sessionID,
		)
	}
	if res.Error != nil {
		return fmt.Errorf("upsert cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCartMissing
	}
	return nil
}

// DecrementItem removes qty units of itemID from the cart. When qty equals
// the stored quantity the key is deleted outright; when it is lower the value
// is decremented. Both branches live inside one guarded UPDATE whose WHERE
// clause refuses to match if the key is absent or qty exceeds the stored
// quantity, so an over-remove never mutates state. Returns the number of
// matched rows; zero means the guard rejected the mutation.
func (r *Repository) DecrementItem(ctx context.Context, sessionID, itemID uuid.UUID, qty int) (int64, error) {
	key := itemID.String()
	tx := r.client.DB().WithContext(ctx)
	var res *gorm.DB
	if tx.Name() == "sqlite" {
		path := jsonPath(key)
		res = tx.Exec(`
			UPDATE active_carts
			SET items = CASE
			      WHEN CAST(json_extract(items, ?) AS INTEGER) = ? THEN json_remove(items, ?)
			      ELSE json_set(items, ?, CAST(json_extract(items, ?) AS INTEGER) - ?)
			    END,
			    updated_at = CURRENT_TIMESTAMP
			WHERE session_id = ?
			  AND CAST(json_extract(items, ?) AS INTEGER) >= ?`,
			path, qty, path, path, path, qty, sessionID, path, qty,
		)
	} else {
		res = tx.Exec(`
			UPDATE active_carts
			SET items = CASE
			      WHEN (items->>?)::int = ? THEN items - ?
			      ELSE jsonb_set(items, ARRAY[?], to_jsonb((items->>?)::int - ?))
			    END,
			    updated_at = NOW()
			WHERE session_id = ?
			  AND (items->>?)::int >= ?`,
			key, qty, key, key, key, qty, sessionID, key, qty,
		)
	}
	if res.Error != nil {
		return 0, fmt.Errorf("decrement cart item: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// GetActiveItems loads the item map for a session's active cart.
func (r *Repository) GetActiveItems(ctx context.Context, sessionID uuid.UUID) (types.CartItems, error) {
	var cart models.ActiveCart
	err := r.client.DB().WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&cart).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartMissing
		}
		return nil, fmt.Errorf("load active cart: %w", err)
	}
	if cart.Items == nil {
		return types.CartItems{}, nil
	}
	return cart.Items, nil
}

// GetSavedItems loads the durable cart for a buyer.
func (r *Repository) GetSavedItems(ctx context.Context, buyerID uuid.UUID) (types.CartItems, error) {
	return savedItems(r.client.DB().WithContext(ctx), buyerID)
}

func savedItems(tx *gorm.DB, buyerID uuid.UUID) (types.CartItems, error) {
	var buyer models.Buyer
	if err := tx.Where("buyer_id = ?", buyerID).First(&buyer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("buyer %s: %w", buyerID, gorm.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("load buyer: %w", err)
	}
	var cart models.SavedCart
	if err := tx.Where("cart_id = ?", buyer.SavedCartID).First(&cart).Error; err != nil {
		return nil, fmt.Errorf("load saved cart: %w", err)
	}
	if cart.Items == nil {
		return types.CartItems{}, nil
	}
	return cart.Items, nil
}

// ReplaceSavedItems overwrites the buyer's saved cart wholesale with the
// provided snapshot.
func (r *Repository) ReplaceSavedItems(ctx context.Context, buyerID uuid.UUID, items types.CartItems) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	res := r.client.DB().WithContext(ctx).Exec(`
		UPDATE saved_carts
		SET items = ?, updated_at = CURRENT_TIMESTAMP
		WHERE cart_id = (SELECT saved_cart_id FROM buyers WHERE buyer_id = ?)`,
		string(payload), buyerID,
	)
	if res.Error != nil {
		return fmt.Errorf("replace saved cart: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("buyer %s: %w", buyerID, gorm.ErrRecordNotFound)
	}
	return nil
}

// ClearBoth empties the session's active cart and the buyer's saved cart in
// one transaction.
func (r *Repository) ClearBoth(ctx context.Context, buyerID, sessionID uuid.UUID) error {
	return r.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec(`
			UPDATE active_carts SET items = '{}', updated_at = CURRENT_TIMESTAMP
			WHERE session_id = ?`, sessionID).Error; err != nil {
			return fmt.Errorf("clear active cart: %w", err)
		}
		if err := tx.Exec(`
			UPDATE saved_carts SET items = '{}', updated_at = CURRENT_TIMESTAMP
			WHERE cart_id = (SELECT saved_cart_id FROM buyers WHERE buyer_id = ?)`, buyerID).Error; err != nil {
			return fmt.Errorf("clear saved cart: %w", err)
		}
		return nil
	})
}
