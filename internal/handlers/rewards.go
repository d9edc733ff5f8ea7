package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazaar/internal/handlers/render"
	"github.com/nkiryanov/bazaar/internal/logger"
)

// Reviews live in another service, it reports five star reviews here
func handleFiveStarReview(rewardService rewardService, l logger.Logger) http.Handler {
	type request struct {
		SellerID uuid.UUID `json:"seller_id" validate:"required"`
		ReviewID uuid.UUID `json:"review_id" validate:"required"`
	}

	type response struct {
		ID     uuid.UUID `json:"id"`
		Points int       `json:"points"`
		Reason string    `json:"reason"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		e, err := rewardService.RecordFiveStarReview(r.Context(), req.SellerID, req.ReviewID)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSONWithStatus(w, response{ID: e.ID, Points: e.Points, Reason: e.Reason}, http.StatusAccepted)
	})
}

func handleRewardPoints(rewardService rewardService, l logger.Logger) http.Handler {
	type response struct {
		Points int `json:"points"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		points, err := rewardService.Points(r.Context(), userID)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSON(w, response{Points: points})
	})
}
