// Package metrics provides Prometheus observability for the dispatch
// engine: admission outcomes, assignment throughput, queue depths, and
// background tick timings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the custom prometheus registry for the chat system
var Registry = prometheus.NewRegistry()

// factory registers metrics against our custom Registry directly
var factory = promauto.With(Registry)

// SessionsCreatedTotal counts sessions admitted into the queue.
var SessionsCreatedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "chat",
	Name:      "sessions_created_total",
	Help:      "Number of chat sessions accepted and enqueued",
})

// SessionsRefusedTotal counts sessions refused at admission.
var SessionsRefusedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "chat",
	Name:      "sessions_refused_total",
	Help:      "Number of chat sessions refused because the queues were full",
})

// AssignmentsTotal counts committed session-to-agent assignments by team.
var AssignmentsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chat",
	Name:      "assignments_total",
	Help:      "Number of committed assignments, labelled by team",
}, []string{"team"})

// AssignmentFailuresTotal counts assignment attempts that lost the capacity
// race and returned the session to the queue.
var AssignmentFailuresTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "chat",
	Name:      "assignment_failures_total",
	Help:      "Number of assignment attempts aborted by a capacity conflict",
})

// SessionsInactivatedTotal counts sessions dropped by the liveness monitor.
var SessionsInactivatedTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "chat",
	Name:      "sessions_inactivated_total",
	Help:      "Number of sessions inactivated after missed polls",
})

// OverflowPromotionsTotal counts sessions moved from the main queue to
// overflow.
var OverflowPromotionsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "chat",
	Name:      "overflow_promotions_total",
	Help:      "Number of sessions promoted from the main queue to overflow",
})

// MainQueueDepth tracks the current main queue length.
var MainQueueDepth = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "chat",
	Name:      "main_queue_depth",
	Help:      "Current number of sessions waiting in the main queue",
})

// OverflowQueueDepth tracks the current overflow queue length.
var OverflowQueueDepth = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "chat",
	Name:      "overflow_queue_depth",
	Help:      "Current number of sessions waiting in the overflow queue",
})

// AgentsAccepting tracks how many agents can currently take a new chat.
var AgentsAccepting = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "chat",
	Name:      "agents_accepting",
	Help:      "Number of agents currently able to accept a new chat",
})

// DispatchTickDuration observes how long each dispatcher tick takes.
var DispatchTickDuration = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "chat",
	Name:      "dispatch_tick_duration_seconds",
	Help:      "Duration of dispatcher ticks",
	Buckets:   prometheus.DefBuckets,
})

// MonitorTickDuration observes how long each monitor tick takes.
var MonitorTickDuration = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "chat",
	Name:      "monitor_tick_duration_seconds",
	Help:      "Duration of liveness monitor ticks",
	Buckets:   prometheus.DefBuckets,
})
