package listing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/apperrors"
	"github.com/nkiryanov/bazaar/internal/models"
	"github.com/nkiryanov/bazaar/internal/repository"
)

// Used when the seller does not set bid increment
var DefaultMinBidIncrement = decimal.RequireFromString("1.00")

type CreateParams struct {
	OwnerID         uuid.UUID
	Title           string
	Price           decimal.Decimal
	IsAuction       bool
	AuctionEndTime  time.Time
	MinBidIncrement decimal.Decimal
}

type ListingService struct {
	storage repository.Storage
	now     func() time.Time
}

func NewService(storage repository.Storage) *ListingService {
	return &ListingService{
		storage: storage,
		now:     time.Now,
	}
}

func (s *ListingService) Create(ctx context.Context, p CreateParams) (models.Listing, error) {
	now := s.now().UTC()

	increment := p.MinBidIncrement
	if increment.IsZero() {
		increment = DefaultMinBidIncrement
	}

	switch {
	case strings.TrimSpace(p.Title) == "":
		return models.Listing{}, fmt.Errorf("title is empty: %w", apperrors.ErrInvalidListing)
	case p.Price.IsNegative():
		return models.Listing{}, fmt.Errorf("price is negative: %w", apperrors.ErrInvalidListing)
	case !models.IsMoney(p.Price) || !models.IsMoney(increment):
		return models.Listing{}, fmt.Errorf("price and bid increment must be whole cents below 10^12: %w", apperrors.ErrInvalidListing)
	case !increment.IsPositive():
		return models.Listing{}, fmt.Errorf("bid increment must be positive: %w", apperrors.ErrInvalidListing)
	case p.IsAuction && !p.AuctionEndTime.After(now):
		return models.Listing{}, fmt.Errorf("auction end time must be in the future: %w", apperrors.ErrInvalidListing)
	}

	l := models.Listing{
		ID:              uuid.New(),
		OwnerID:         p.OwnerID,
		Title:           p.Title,
		Price:           p.Price,
		IsAuction:       p.IsAuction,
		MinBidIncrement: increment,
		ShippingStatus:  models.ShippingWaitingPayment,
		PaymentStatus:   models.PaymentNone,
		CreatedAt:       now,
		ModifiedAt:      now,
	}
	if p.IsAuction {
		l.AuctionEndTime = p.AuctionEndTime.UTC()
	}

	return s.storage.Listing().CreateListing(ctx, l)
}

func (s *ListingService) Get(ctx context.Context, id uuid.UUID) (models.Listing, error) {
	return s.storage.Listing().GetListing(ctx, id)
}
