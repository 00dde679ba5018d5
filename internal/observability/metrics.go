package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors exported by the session and checkout core.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	cartMutations       *prometheus.CounterVec
	checkoutTransitions *prometheus.CounterVec
	backendRequests     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation and result.",
		}, []string{"op", "result"}),
		checkoutTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkout_transitions_total",
			Help:      "Checkout pipeline transitions by target state.",
		}, []string{"to"}),
		backendRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "backend_request_seconds",
			Help:      "Backend request latency by endpoint and status class.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "code"}),
	}

	for _, c := range []prometheus.Collector{m.cartMutations, m.checkoutTransitions, m.backendRequests} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// CartMutation counts one cart mutation outcome
func (m *Metrics) CartMutation(op string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.cartMutations.WithLabelValues(op, result).Inc()
}

// CheckoutTransition counts a move of the checkout pipeline into state
func (m *Metrics) CheckoutTransition(state string) {
	if m == nil {
		return
	}
	m.checkoutTransitions.WithLabelValues(state).Inc()
}

// BackendRequest observes a backend call. code is "error" when no response arrived.
func (m *Metrics) BackendRequest(endpoint, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.backendRequests.WithLabelValues(endpoint, code).Observe(elapsed.Seconds())
}
