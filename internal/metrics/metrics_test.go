package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/bazaar/internal/apperrors"
)

func TestResult(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, ResultOK},
		{apperrors.ErrListingNotFound, ResultNotFound},
		{apperrors.ErrNotSeller, ResultUnauthorized},
		{apperrors.ErrAuctionEnded, ResultInvalidState},
		{fmt.Errorf("place bid: %w", apperrors.NewThresholdError(apperrors.ErrBidTooLow, decimal.Zero)), ResultPolicyViolation},
		{apperrors.Transient(errors.New("conn reset")), ResultTransient},
		{errors.New("boom"), ResultError},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			require.Equal(t, tt.expected, Result(tt.err))
		})
	}
}

func TestMetrics(t *testing.T) {
	t.Run("counters", func(t *testing.T) {
		m := New()

		m.ObserveBid(nil)
		m.ObserveBid(nil)
		m.ObserveBid(apperrors.ErrAuctionEnded)
		m.ObserveEscrowTransition("shipped")

		require.InDelta(t, 2, testutil.ToFloat64(m.bids.WithLabelValues(ResultOK)), 0)
		require.InDelta(t, 1, testutil.ToFloat64(m.bids.WithLabelValues(ResultInvalidState)), 0)
		require.InDelta(t, 1, testutil.ToFloat64(m.escrowTransitions.WithLabelValues("shipped")), 0)
	})

	t.Run("nil is safe", func(t *testing.T) {
		var m *Metrics

		require.NotPanics(t, func() {
			m.ObserveBid(nil)
			m.ObserveEscrowTransition("held")
			m.ObserveWithdrawal(nil)
			m.ObserveRewardDelivery(nil)
			m.ObserveHTTP(http.MethodGet, "/api/balance", http.StatusOK, time.Millisecond)
		})
	})

	t.Run("handler exposes collected", func(t *testing.T) {
		m := New()
		m.ObserveHTTP(http.MethodGet, "GET /api/balance", http.StatusOK, time.Millisecond)

		w := httptest.NewRecorder()
		m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "bazaar_http_requests_total")
		require.Contains(t, w.Body.String(), "bazaar_http_request_duration_seconds")
	})
}
