package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dcastellanos/marketbay-backend/pkg/config"
	"github.com/dcastellanos/marketbay-backend/pkg/db"
	"github.com/dcastellanos/marketbay-backend/pkg/db/models"
	"github.com/dcastellanos/marketbay-backend/pkg/enums"
	pkgerrors "github.com/dcastellanos/marketbay-backend/pkg/errors"
	"github.com/dcastellanos/marketbay-backend/pkg/security"
	"github.com/dcastellanos/marketbay-backend/pkg/types"
)

const (
	minUsernameLen = 3
	minPasswordLen = 8
)

type repository interface {
	CreateBuyer(ctx context.Context, buyer *models.Buyer, cart *models.SavedCart) error
	CreateSeller(ctx context.Context, seller *models.Seller) error
	FindBuyerByUsername(ctx context.Context, username string) (*models.Buyer, error)
	FindSellerByUsername(ctx context.Context, username string) (*models.Seller, error)
	GetSeller(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error)
}

// AccountDTO is the service-facing view of a registered account.
type AccountDTO struct {
	ID       uuid.UUID
	Username string
	Kind     enums.PrincipalKind
}

// SellerRatingDTO carries a seller's aggregate feedback.
type SellerRatingDTO struct {
	SellerID   uuid.UUID
	ThumbsUp   int
	ThumbsDown int
}

// Service exposes account registration and credential verification.
type Service interface {
	RegisterBuyer(ctx context.Context, username, password string) (*AccountDTO, error)
	RegisterSeller(ctx context.Context, username, password string) (*AccountDTO, error)
	VerifyCredentials(ctx context.Context, kind enums.PrincipalKind, username, password string) (*AccountDTO, error)
	GetSellerRating(ctx context.Context, sellerID uuid.UUID) (*SellerRatingDTO, error)
}

type service struct {
	repo        repository
	passwordCfg config.PasswordConfig
}

// NewService builds the accounts service.
func NewService(repo repository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg}, nil
}

func (s *service) RegisterBuyer(ctx context.Context, username, password string) (*AccountDTO, error) {
	username, hash, err := s.prepareCredentials(username, password)
	if err != nil {
		return nil, err
	}

	cart := &models.SavedCart{
		ID:    uuid.New(),
		Items: types.CartItems{},
	}
	buyer := &models.Buyer{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		SavedCartID:  cart.ID,
	}
	if err := s.repo.CreateBuyer(ctx, buyer, cart); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create buyer")
	}
	return &AccountDTO{ID: buyer.ID, Username: username, Kind: enums.PrincipalKindBuyer}, nil
}

func (s *service) RegisterSeller(ctx context.Context, username, password string) (*AccountDTO, error) {
	username, hash, err := s.prepareCredentials(username, password)
	if err != nil {
		return nil, err
	}

	seller := &models.Seller{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.repo.CreateSeller(ctx, seller); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create seller")
	}
	return &AccountDTO{ID: seller.ID, Username: username, Kind: enums.PrincipalKindSeller}, nil
}

// VerifyCredentials checks a username/password pair against the stored hash.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *service) VerifyCredentials(ctx context.Context, kind enums.PrincipalKind, username, password string) (*AccountDTO, error) {
	username = strings.TrimSpace(username)

	var (
		id   uuid.UUID
		hash string
	)
	switch kind {
	case enums.PrincipalKindBuyer:
		buyer, err := s.repo.FindBuyerByUsername(ctx, username)
		if err != nil {
			return nil, credentialLookupError(err)
		}
		id, hash = buyer.ID, buyer.PasswordHash
	case enums.PrincipalKindSeller:
		seller, err := s.repo.FindSellerByUsername(ctx, username)
		if err != nil {
			return nil, credentialLookupError(err)
		}
		id, hash = seller.ID, seller.PasswordHash
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid principal kind")
	}

	ok, err := security.VerifyPassword(password, hash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return &AccountDTO{ID: id, Username: username, Kind: kind}, nil
}

func (s *service) GetSellerRating(ctx context.Context, sellerID uuid.UUID) (*SellerRatingDTO, error) {
	seller, err := s.repo.GetSeller(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	return &SellerRatingDTO{
		SellerID:   seller.ID,
		ThumbsUp:   seller.ThumbsUp,
		ThumbsDown: seller.ThumbsDown,
	}, nil
}

func (s *service) prepareCredentials(username, password string) (string, string, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("username must be at least %d characters", minUsernameLen))
	}
	if len(password) < minPasswordLen {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return username, hash, nil
}

func credentialLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup account")
}
