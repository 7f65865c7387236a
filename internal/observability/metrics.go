package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain metrics for the bridge. They register on the default registry, which
// the /metrics route serves next to the HTTP middleware collectors.
var (
	// SuperchatsTotal counts submit outcomes: posted, duplicate, invalid,
	// chat_unavailable, post_failed.
	SuperchatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "superchat_submissions_total",
		Help: "Payment submissions by outcome.",
	}, []string{"outcome"})

	// PostDuration observes provider post latency in seconds.
	PostDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "superchat_post_duration_seconds",
		Help:    "Chat provider post latency in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	// LedgerUnpersisted is the number of posted superchats whose durable
	// write is still outstanding. Anything above zero needs an operator.
	LedgerUnpersisted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "superchat_ledger_unpersisted",
		Help: "Posted superchats not yet written to the durable ledger.",
	})

	// LedgerRecords is the size of the in-memory ledger index.
	LedgerRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "superchat_ledger_records",
		Help: "Records in the ledger index.",
	})

	// MonitorSessions gauges sessions by status.
	MonitorSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "superchat_monitor_sessions",
		Help: "Monitor sessions by status.",
	}, []string{"status"})

	// MonitorPolls counts provider reads by result: ok, transient, ended, error.
	MonitorPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "superchat_monitor_polls_total",
		Help: "Live chat polls by result.",
	}, []string{"result"})

	// ForgedLines counts chat lines that look like superchats but are not in the ledger.
	ForgedLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "superchat_forged_lines_total",
		Help: "Chat lines carrying the superchat decoration without a ledger record.",
	})

	// Subscribers gauges open event-stream subscriptions.
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "superchat_event_subscribers",
		Help: "Open event stream subscriptions.",
	})

	// EventsDropped counts events not delivered because a subscriber buffer was full.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "superchat_events_dropped_total",
		Help: "Events dropped for slow subscribers.",
	})
)
