// Package metrics holds Prometheus collectors of the marketplace
//
// All methods are safe on nil *Metrics, so collectors are optional for services
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nkiryanov/bazaar/internal/apperrors"
)

// Result labels
const (
	ResultOK              = "ok"
	ResultNotFound        = "not_found"
	ResultUnauthorized    = "unauthorized"
	ResultInvalidState    = "invalid_state"
	ResultPolicyViolation = "policy_violation"
	ResultTransient       = "transient"
	ResultError           = "error"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	bids              *prometheus.CounterVec
	escrowTransitions *prometheus.CounterVec
	withdrawals       *prometheus.CounterVec
	rewardDeliveries  *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
}

// New registers collectors in a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,

		bids: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bazaar_bids_total",
			Help: "Bid admission attempts by result",
		}, []string{"result"}),

		escrowTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bazaar_escrow_transitions_total",
			Help: "Escrow transactions entering a status",
		}, []string{"to"}),

		withdrawals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bazaar_withdrawals_total",
			Help: "Withdrawal requests by result",
		}, []string{"result"}),

		rewardDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bazaar_reward_deliveries_total",
			Help: "Reward event delivery attempts by result",
		}, []string{"result"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bazaar_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bazaar_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Result maps operation error to its label
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, apperrors.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, apperrors.ErrUnauthorized):
		return ResultUnauthorized
	case errors.Is(err, apperrors.ErrInvalidState):
		return ResultInvalidState
	case errors.Is(err, apperrors.ErrPolicyViolation):
		return ResultPolicyViolation
	case errors.Is(err, apperrors.ErrTransient):
		return ResultTransient
	default:
		return ResultError
	}
}

func (m *Metrics) ObserveBid(err error) {
	if m == nil {
		return
	}
	m.bids.WithLabelValues(Result(err)).Inc()
}

func (m *Metrics) ObserveEscrowTransition(to string) {
	if m == nil {
		return
	}
	m.escrowTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) ObserveWithdrawal(err error) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(Result(err)).Inc()
}

func (m *Metrics) ObserveRewardDelivery(err error) {
	if m == nil {
		return
	}
	m.rewardDeliveries.WithLabelValues(Result(err)).Inc()
}

// ObserveHTTP records one served request
// path is the route pattern, not the raw url, to keep label cardinality bounded
func (m *Metrics) ObserveHTTP(method string, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Handler exposes collected metrics
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
