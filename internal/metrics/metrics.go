package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal counts submissions sent to the agent runtime, by op kind
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codex_submissions_total",
			Help: "Total number of submissions sent, by operation type",
		},
		[]string{"op"},
	)

	// EventsTotal counts events received from the agent runtime, by message kind
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codex_events_total",
			Help: "Total number of events received, by message type",
		},
		[]string{"type"},
	)

	// ParseFailuresTotal counts payloads the pump could not decode
	ParseFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codex_event_parse_failures_total",
			Help: "Total number of inbound payloads skipped due to parse errors",
		},
	)

	// ActiveConversations tracks conversations with a live pump
	ActiveConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codex_active_conversations",
			Help: "Number of conversations with an active event pump",
		},
	)

	// EventSubscribers tracks live event stream iterators
	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codex_event_subscribers",
			Help: "Number of live event stream subscribers",
		},
	)

	// ConnectRetries counts retried transport construction attempts
	ConnectRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codex_connect_retries_total",
			Help: "Total number of retried connection attempts",
		},
	)

	// SubmitFailures counts submissions rejected by the transport
	SubmitFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codex_submit_failures_total",
			Help: "Total number of failed submissions, by operation type",
		},
		[]string{"op"},
	)

	// RecorderWrites counts events persisted by the recorder plugin
	RecorderWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codex_recorder_writes_total",
			Help: "Total number of events persisted by the recorder plugin",
		},
	)
)
