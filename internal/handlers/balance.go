package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/handlers/render"
	"github.com/nkiryanov/bazaar/internal/logger"
)

func handleBalance(earningsService earningsService, l logger.Logger) http.Handler {
	type response struct {
		Available   decimal.Decimal `json:"available"`
		Earned      decimal.Decimal `json:"earned"`
		Outstanding decimal.Decimal `json:"outstanding"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		balance, err := earningsService.Balance(r.Context(), userID)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSON(w, response{
			Available:   balance.Available(),
			Earned:      balance.Earned,
			Outstanding: balance.Outstanding,
		})
	})
}

func handleWithdraw(earningsService earningsService, l logger.Logger) http.Handler {
	type request struct {
		Amount  decimal.Decimal `json:"amount" validate:"positive,money"`
		Method  string          `json:"method" validate:"required"`
		Details string          `json:"details" validate:"required"`
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

		withdrawal, err := earningsService.RequestWithdrawal(r.Context(), userID, req.Amount, req.Method, req.Details)
		if err != nil {
			renderError(w, err, l)
			return
		}

		render.JSONWithStatus(w, newWithdrawalResponse(withdrawal), http.StatusCreated)
	})
}

func handleListWithdrawals(earningsService earningsService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		withdrawals, err := earningsService.ListWithdrawals(r.Context(), userID)
		if err != nil {
			renderError(w, err, l)
			return
		}

		res := make([]withdrawalResponse, 0, len(withdrawals))
		for _, wd := range withdrawals {
			res = append(res, newWithdrawalResponse(wd))
		}
		render.JSON(w, res)
	})
}
