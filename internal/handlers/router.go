package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/handlers/middleware"
	"github.com/nkiryanov/bazaar/internal/logger"
	"github.com/nkiryanov/bazaar/internal/metrics"
	"github.com/nkiryanov/bazaar/internal/models"
	"github.com/nkiryanov/bazaar/internal/service/listing"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type Services struct {
	Auth     authenticator
	Listings listingService
	Bids     bidService
	Escrow   escrowService
	Earnings earningsService
	Rewards  rewardService
	DB       pinger
}

func NewRouter(s Services, m *metrics.Metrics, logger logger.Logger) http.Handler {
	withAuth := middleware.AuthMiddleware(s.Auth)

	mux := http.NewServeMux()

	mux.Handle("POST /api/listings", withAuth(handleCreateListing(s.Listings, logger)))
	mux.Handle("GET /api/listings/{id}", handleGetListing(s.Listings, logger))
	mux.Handle("POST /api/listings/{id}/bids", withAuth(handlePlaceBid(s.Bids, logger)))
	mux.Handle("GET /api/listings/{id}/bids", handleListBids(s.Bids, logger))

	mux.Handle("POST /api/transactions", withAuth(handleCreateTransaction(s.Escrow, logger)))
	mux.Handle("GET /api/transactions/{id}", withAuth(handleTransaction(s.Escrow.Get, logger)))
	mux.Handle("POST /api/transactions/{id}/ship", withAuth(handleTransaction(s.Escrow.Ship, logger)))
	mux.Handle("POST /api/transactions/{id}/receive", withAuth(handleTransaction(s.Escrow.Receive, logger)))

	mux.Handle("GET /api/balance", withAuth(handleBalance(s.Earnings, logger)))
	mux.Handle("POST /api/balance/withdraw", withAuth(handleWithdraw(s.Earnings, logger)))
	mux.Handle("GET /api/withdrawals", withAuth(handleListWithdrawals(s.Earnings, logger)))

	mux.Handle("POST /api/reviews/five-star", withAuth(handleFiveStarReview(s.Rewards, logger)))
	mux.Handle("GET /api/rewards/points", withAuth(handleRewardPoints(s.Rewards, logger)))

	mux.Handle("GET /healthz", handleHealth(s.DB, logger))
	mux.Handle("GET /metrics", m.Handler())

	handler := chain(mux,
		middleware.LoggerMiddleware(logger),
		middleware.MetricsMiddleware(m),
	)

	return handler
}

type authenticator interface {
	// Return caller id or error if request is not authenticated
	Auth(r *http.Request) (uuid.UUID, error)
}

type listingService interface {
	Create(ctx context.Context, p listing.CreateParams) (models.Listing, error)
	Get(ctx context.Context, id uuid.UUID) (models.Listing, error)
}

type bidService interface {
	PlaceBid(ctx context.Context, listingID uuid.UUID, bidderID uuid.UUID, amount decimal.Decimal) (models.Bid, models.Listing, error)
	ListBids(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error)
}

type escrowService interface {
	Create(ctx context.Context, listingID uuid.UUID, buyerID uuid.UUID, paymentMethod string) (models.Transaction, error)
	Ship(ctx context.Context, transactionID uuid.UUID, callerID uuid.UUID) (models.Transaction, error)
	Receive(ctx context.Context, transactionID uuid.UUID, callerID uuid.UUID) (models.Transaction, error)
	Get(ctx context.Context, transactionID uuid.UUID, callerID uuid.UUID) (models.Transaction, error)
}

type earningsService interface {
	Balance(ctx context.Context, sellerID uuid.UUID) (models.Balance, error)
	RequestWithdrawal(ctx context.Context, sellerID uuid.UUID, amount decimal.Decimal, method string, details string) (models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, sellerID uuid.UUID) ([]models.Withdrawal, error)
}

type rewardService interface {
	RecordFiveStarReview(ctx context.Context, sellerID uuid.UUID, reviewID uuid.UUID) (models.RewardEvent, error)
	Points(ctx context.Context, userID uuid.UUID) (int, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}
