// Package metrics defines and registers all custom Prometheus metrics for the
// shipment legs API. It is the single source of truth for metric names,
// labels, and help strings. Metrics register with the default registry on
// package init through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shipment_legs"

// ── Leg lifecycle ─────────────────────────────────────────────────────────────

// LegTransitionsTotal counts successful lifecycle calls.
// Label:
//   - status: the leg status after the call (e.g. "DELIVERED")
var LegTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leg_transitions_total",
		Help:      "Total number of successful leg lifecycle calls, by resulting status.",
	},
	[]string{"status"},
)

// RequestsRejectedTotal counts client-facing failures.
// Label:
//   - reason: short error class (e.g. "invalid_transition", "insufficient_balance")
var RequestsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_rejected_total",
		Help:      "Total number of requests rejected with a domain error, by reason.",
	},
	[]string{"reason"},
)

// ShipmentsDispatchedTotal counts orders decomposed into legs.
var ShipmentsDispatchedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shipments_dispatched_total",
		Help:      "Total number of shipment orders dispatched.",
	},
)

// LegsPerShipment observes how many hops each dispatched order has.
var LegsPerShipment = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "legs_per_shipment",
		Help:      "Number of legs per dispatched shipment order.",
		Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
	},
)

// ── Ledger ────────────────────────────────────────────────────────────────────

// DepositsTotal counts deposit attempts.
// Label:
//   - result: "accepted", "replayed" or "rejected"
var DepositsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cod_deposits_total",
		Help:      "Total number of COD deposit attempts, by result.",
	},
	[]string{"result"},
)

// ── Proofs ────────────────────────────────────────────────────────────────────

// ProofUploadBytes observes the size of uploaded proof images.
var ProofUploadBytes = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "proof_upload_bytes",
		Help:      "Size of proof-of-delivery uploads in bytes.",
		Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 10), // 16KiB … 8MiB
	},
)

// ── Event stream ──────────────────────────────────────────────────────────────

// EventsDeliveredTotal counts events handed to the sink.
// Labels:
//   - type: event type (e.g. "leg.transitioned")
//   - result: "ok" or "error"
var EventsDeliveredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_delivered_total",
		Help:      "Total number of leg events delivered to the sink, by type and result.",
	},
	[]string{"type", "result"},
)

// EventsDroppedTotal counts events dropped because a worker queue was full
// or the dispatcher had stopped.
var EventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Total number of leg events dropped before delivery.",
	},
)

// EventsQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
