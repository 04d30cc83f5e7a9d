// Package observability keeps prometheus counters for wallet activity. The
// CLI is short-lived, so metrics are exported by writing a node_exporter
// textfile rather than serving an endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roulendz/timebank/internal/constants"
	"github.com/roulendz/timebank/internal/events"
)

const namespace = "timebank"

// BalanceFunc reports a user's available balance in milliseconds
type BalanceFunc func(userID string) int64

type Metrics struct {
	registry *prometheus.Registry
	balance  BalanceFunc

	events        *prometheus.CounterVec
	hooks         *prometheus.CounterVec
	usageConsumed *prometheus.CounterVec
	forcedStops   prometheus.Counter
	available     *prometheus.GaugeVec
}

// New registers the timebank collectors on a private registry. balance may
// be nil, in which case the available gauge is only set via SetAvailable.
func New(balance BalanceFunc) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		balance:  balance,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "events_total",
			Help:      "Number of ledger change notifications by event name.",
		}, []string{"event"}),
		hooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feedback",
			Name:      "hooks_total",
			Help:      "Number of feedback hooks fired by hook name.",
		}, []string{"hook"}),
		usageConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "usage",
			Name:      "consumed_milliseconds_total",
			Help:      "Earned time spent, in milliseconds, per user.",
		}, []string{"user"}),
		forcedStops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "usage",
			Name:      "forced_stops_total",
			Help:      "Number of usage sessions stopped because the budget ran out.",
		}),
		available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "wallet",
			Name:      "available_milliseconds",
			Help:      "Time available to spend today, per user.",
		}, []string{"user"}),
	}
	m.registry.MustRegister(m.events, m.hooks, m.usageConsumed, m.forcedStops, m.available)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Attach counts every event and hook published on bus. The returned
// function detaches.
func (m *Metrics) Attach(bus *events.Bus) func() {
	cancels := []func(){bus.On(m.observe)}
	for _, name := range []constants.HookName{
		constants.HookTransferSucceeded,
		constants.HookBalanceExhausted,
		constants.HookUsageRejected,
	} {
		cancels = append(cancels, bus.OnHook(name, m.observeHook))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

func (m *Metrics) observe(e events.Event) {
	m.events.WithLabelValues(string(e.Name)).Inc()
	if e.Name == constants.EventActivityListChanged && m.balance != nil && e.UserID != "" {
		m.SetAvailable(e.UserID, m.balance(e.UserID))
	}
}

func (m *Metrics) observeHook(e events.HookEvent) {
	m.hooks.WithLabelValues(string(e.Name)).Inc()
	if e.Name == constants.HookBalanceExhausted {
		m.forcedStops.Inc()
		m.RecordUsage(e.UserID, e.Amount)
	}
}

// RecordUsage adds consumed milliseconds for a user. Non-positive amounts
// are ignored.
func (m *Metrics) RecordUsage(userID string, ms int64) {
	if ms <= 0 {
		return
	}
	m.usageConsumed.WithLabelValues(userID).Add(float64(ms))
}

func (m *Metrics) SetAvailable(userID string, ms int64) {
	m.available.WithLabelValues(userID).Set(float64(ms))
}

// WriteToTextfile writes the current values in the text exposition format,
// atomically, for the node_exporter textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
