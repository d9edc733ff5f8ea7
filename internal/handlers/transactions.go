package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazaar/internal/handlers/render"
	"github.com/nkiryanov/bazaar/internal/logger"
	"github.com/nkiryanov/bazaar/internal/models"
)

func handleCreateTransaction(escrowService escrowService, l logger.Logger) http.Handler {
	type request struct {
		ListingID     uuid.UUID `json:"listing_id" validate:"required"`
		PaymentMethod string    `json:"payment_method" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		t, err := escrowService.Create(r.Context(), req.ListingID, userID, req.PaymentMethod)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSONWithStatus(w, newTransactionResponse(t), http.StatusCreated)
	})
}

// transitionFunc is one of escrow Ship, Receive or Get
type transitionFunc func(ctx context.Context, transactionID uuid.UUID, callerID uuid.UUID) (models.Transaction, error)

func handleTransaction(fn transitionFunc, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		transactionID, ok := pathID(w, r)
		if !ok {
			return
		}

		t, err := fn(r.Context(), transactionID, userID)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSON(w, newTransactionResponse(t))
	})
}
