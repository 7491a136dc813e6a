package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dcastellanos/marketbay-backend/pkg/config"
	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/logger"
	"github.com/dcastellanos/marketbay-backend/pkg/redis"
	"github.com/dcastellanos/marketbay-backend/pkg/types"
)

type repository interface {
	CreateSession(ctx context.Context, sess *models.Session, cart *models.ActiveCart) error
	ValidateAndRefresh(ctx context.Context, sessionID uuid.UUID, window time.Duration) (*principalRow, error)
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
	UpsertItem(ctx context.Context, sessionID, itemID uuid.UUID, qty int) error
	DecrementItem(ctx context.Context, sessionID, itemID uuid.UUID, qty int) (int64, error)
	GetActiveItems(ctx context.Context, sessionID uuid.UUID) (types.CartItems, error)
	GetSavedItems(ctx context.Context, buyerID uuid.UUID) (types.CartItems, error)
	ReplaceSavedItems(ctx context.Context, buyerID uuid.UUID, items types.CartItems) error
	ClearBoth(ctx context.Context, buyerID, sessionID uuid.UUID) error
}

// Principal identifies the account a validated session is bound to.
type Principal struct {
	ID   uuid.UUID
	Kind enums.PrincipalKind
}

// SessionDTO is returned on login.
type SessionDTO struct {
	SessionID uuid.UUID
	Principal Principal
}

// Service owns the session lifecycle and the active/saved cart duality.
type Service interface {
	CreateSession(ctx context.Context, principalID uuid.UUID, kind enums.PrincipalKind) (*SessionDTO, error)
	Validate(ctx context.Context, sessionID uuid.UUID) (*Principal, error)
	Destroy(ctx context.Context, sessionID uuid.UUID) error
	AddItem(ctx context.Context, sessionID, itemID uuid.UUID, qty int) error
	RemoveItem(ctx context.Context, sessionID, itemID uuid.UUID, qty int) error
	GetActiveCart(ctx context.Context, sessionID uuid.UUID) (types.CartItems, error)
	SaveCart(ctx context.Context, sessionID uuid.UUID) error
	ClearBoth(ctx context.Context, buyerID, sessionID uuid.UUID) error
}

type service struct {
	repo   repository
	locker redis.Locker
	cfg    config.SessionConfig
	logg   *logger.Logger
}

// NewService builds the session service. The locker is the same per-buyer
// lock the checkout coordinator holds for the whole saga; saved-cart writes
// take it too so they never interleave with an in-flight checkout.
func NewService(repo repository, locker redis.Locker, cfg config.SessionConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.IdleWindow <= 0 {
		return nil, fmt.Errorf("idle window must be positive")
	}
	if cfg.CartLockTTL <= 0 {
		return nil, fmt.Errorf("cart lock ttl must be positive")
	}
	return &service{repo: repo, locker: locker, cfg: cfg, logg: logg}, nil
}

func (s *service) CreateSession(ctx context.Context, principalID uuid.UUID, kind enums.PrincipalKind) (*SessionDTO, error) {
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid principal kind")
	}

	seed := types.CartItems{}
	if kind == enums.PrincipalKindBuyer {
		saved, err := s.repo.GetSavedItems(ctx, principalID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load saved cart")
		}
		// by value, so active-cart edits never leak into the saved cart
		seed = saved.Clone()
	}

	sess := &models.Session{
		ID:            uuid.New(),
		PrincipalID:   principalID,
		PrincipalKind: kind,
		LastActiveAt:  time.Now().UTC(),
	}
	cart := &models.ActiveCart{
		ID:        uuid.New(),
		SessionID: sess.ID,
		Items:     seed,
	}
	if err := s.repo.CreateSession(ctx, sess, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}

	ctx = s.logg.WithSessionID(ctx, sess.ID.String())
	s.logg.Info(ctx, "session created")

	return &SessionDTO{
		SessionID: sess.ID,
		Principal: Principal{ID: principalID, Kind: kind},
	}, nil
}

// Validate refreshes the sliding window and returns the bound principal. An
// idle or unknown session is deleted (idempotently) and reported expired; a
// second caller racing the same expiry sees the same answer.
func (s *service) Validate(ctx context.Context, sessionID uuid.UUID) (*Principal, error) {
	row, err := s.repo.ValidateAndRefresh(ctx, sessionID, s.cfg.IdleWindow)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if row == nil {
		if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire session")
		}
		return nil, pkgerrors.New(pkgerrors.CodeSessionExpired, "session expired")
	}
	return &Principal{ID: row.PrincipalID, Kind: row.PrincipalKind}, nil
}

func (s *service) Destroy(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "destroy session")
	}
	return nil
}

func (s *service) AddItem(ctx context.Context, sessionID, itemID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if _, err := s.Validate(ctx, sessionID); err != nil {
		return err
	}
	if err := s.repo.UpsertItem(ctx, sessionID, itemID, qty); err != nil {
		if errors.Is(err, ErrCartMissing) {
			return pkgerrors.New(pkgerrors.CodeSessionExpired, "session expired")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	return nil
}

func (s *service) RemoveItem(ctx context.Context, sessionID, itemID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if _, err := s.Validate(ctx, sessionID); err != nil {
		return err
	}
	affected, err := s.repo.DecrementItem(ctx, sessionID, itemID, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	if affected > 0 {
		return nil
	}

	// The guard rejected the mutation: tell the caller whether the item was
	// missing outright or the requested quantity overshot.
	items, err := s.repo.GetActiveItems(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrCartMissing) {
			return pkgerrors.New(pkgerrors.CodeSessionExpired, "session expired")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inspect cart")
	}
	if _, ok := items[itemID]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "remove quantity exceeds cart quantity")
}

func (s *service) GetActiveCart(ctx context.Context, sessionID uuid.UUID) (types.CartItems, error) {
	if _, err := s.Validate(ctx, sessionID); err != nil {
		return nil, err
	}
	items, err := s.repo.GetActiveItems(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrCartMissing) {
			return nil, pkgerrors.New(pkgerrors.CodeSessionExpired, "session expired")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active cart")
	}
	return items, nil
}

// withBuyerLock runs fn while holding the buyer's checkout lock. The
// coordinator holds the same key for the whole saga, so a saved-cart write
// landing mid-checkout is refused with CONFLICT instead of being silently
// overwritten or wiped.
func (s *service) withBuyerLock(ctx context.Context, buyerID uuid.UUID, fn func() error) error {
	lockKey := s.locker.CheckoutLockKey(buyerID.String())
	acquired, err := s.locker.SetNX(ctx, lockKey, "cart", s.cfg.CartLockTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire buyer lock")
	}
	if !acquired {
		return pkgerrors.New(pkgerrors.CodeConflict, "a checkout for this buyer is already in progress")
	}
	defer func() {
		if err := s.locker.Del(context.WithoutCancel(ctx), lockKey); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "buyer lock not released, will expire by ttl")
		}
	}()
	return fn()
}

// SaveCart replaces the buyer's saved cart wholesale with the session's
// active cart snapshot. It takes the buyer lock for the snapshot-and-replace
// so the write cannot land between a checkout's cart load and its clear.
func (s *service) SaveCart(ctx context.Context, sessionID uuid.UUID) error {
	principal, err := s.Validate(ctx, sessionID)
	if err != nil {
		return err
	}
	if principal.Kind != enums.PrincipalKindBuyer {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only buyers have a saved cart")
	}
	return s.withBuyerLock(ctx, principal.ID, func() error {
		items, err := s.repo.GetActiveItems(ctx, sessionID)
		if err != nil {
			if errors.Is(err, ErrCartMissing) {
				return pkgerrors.New(pkgerrors.CodeSessionExpired, "session expired")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active cart")
		}
		if err := s.repo.ReplaceSavedItems(ctx, principal.ID, items); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
		}
		return nil
	})
}

func (s *service) ClearBoth(ctx context.Context, buyerID, sessionID uuid.UUID) error {
	return s.withBuyerLock(ctx, buyerID, func() error {
		if err := s.repo.ClearBoth(ctx, buyerID, sessionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear carts")
		}
		return nil
	})
}
