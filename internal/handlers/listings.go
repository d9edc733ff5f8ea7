package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/handlers/render"
	"github.com/nkiryanov/bazaar/internal/logger"
	"github.com/nkiryanov/bazaar/internal/service/listing"
)

func handleCreateListing(listingService listingService, l logger.Logger) http.Handler {
	type request struct {
		Title           string          `json:"title" validate:"required"`
		Price           decimal.Decimal `json:"price" validate:"money"`
		IsAuction       bool            `json:"is_auction"`
		AuctionEndTime  time.Time       `json:"auction_end_time"`
		MinBidIncrement decimal.Decimal `json:"min_bid_increment" validate:"money"`
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

		created, err := listingService.Create(r.Context(), listing.CreateParams{
			OwnerID:         userID,
			Title:           req.Title,
			Price:           req.Price,
			IsAuction:       req.IsAuction,
			AuctionEndTime:  req.AuctionEndTime,
			MinBidIncrement: req.MinBidIncrement,
		})
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSONWithStatus(w, newListingResponse(created), http.StatusCreated)
	})
}

func handleGetListing(listingService listingService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		found, err := listingService.Get(r.Context(), id)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSON(w, newListingResponse(found))
	})
}

func handlePlaceBid(bidService bidService, l logger.Logger) http.Handler {
	type request struct {
		Amount decimal.Decimal `json:"amount" validate:"positive,money"`
	}

	type response struct {
		Bid     bidResponse     `json:"bid"`
		Listing listingResponse `json:"listing"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		listingID, ok := pathID(w, r)
		if !ok {
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		bid, updated, err := bidService.PlaceBid(r.Context(), listingID, userID, req.Amount)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSONWithStatus(w, response{newBidResponse(bid), newListingResponse(updated)}, http.StatusCreated)
	})
}

func handleListBids(bidService bidService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		listingID, ok := pathID(w, r)
		if !ok {
			return
		}

		bids, err := bidService.ListBids(r.Context(), listingID)
		if err != nil {
			renderError(w, err, l)
			return
		}

		res := make([]bidResponse, 0, len(bids))
		for _, b := range bids {
			res = append(res, newBidResponse(b))
		}
		render.JSON(w, res)
	})
}
