// Package metrics holds the Prometheus collectors of a chat session.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the session collectors. Construct with New.
type Metrics struct {
	// Transactions counts submitted transactions by kind (create, update,
	// delete, delete_all) and result (ok, error).
	Transactions *prometheus.CounterVec

	// PresencePublishes counts presence announcements by result.
	PresencePublishes *prometheus.CounterVec

	// Snapshots counts message snapshots delivered to the session.
	Snapshots prometheus.Counter

	// TypingSignals counts keystrokes forwarded to the typing channel.
	TypingSignals prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transactions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livechat_transactions_total",
				Help: "Total transactions submitted to the sync engine",
			},
			[]string{"kind", "result"},
		),
		PresencePublishes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livechat_presence_publishes_total",
				Help: "Total presence announcements",
			},
			[]string{"result"},
		),
		Snapshots: f.NewCounter(
			prometheus.CounterOpts{
				Name: "livechat_snapshots_total",
				Help: "Total message snapshots received",
			},
		),
		TypingSignals: f.NewCounter(
			prometheus.CounterOpts{
				Name: "livechat_typing_signals_total",
				Help: "Total keystrokes forwarded to the typing indicator",
			},
		),
	}
}

// ObserveTransaction records one transaction of kind with its outcome.
func (m *Metrics) ObserveTransaction(kind string, err error) {
	m.Transactions.WithLabelValues(kind, result(err)).Inc()
}

// ObservePresence records one presence announcement.
func (m *Metrics) ObservePresence(err error) {
	m.PresencePublishes.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
