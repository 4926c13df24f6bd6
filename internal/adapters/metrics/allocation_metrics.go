package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AllocationMetricsCollector records auction events: rounds opened and
// closed, bids received, allocations and their failure modes. It implements
// the auction's MetricsRecorder port.
type AllocationMetricsCollector struct {
	roundsOpened         prometheus.Counter
	roundDuration        prometheus.Histogram
	announcedTasks       prometheus.Histogram
	bidsTotal            *prometheus.CounterVec
	allocationsTotal     prometheus.Counter
	noAllocationsTotal   prometheus.Counter
	alternativeTimeslots prometheus.Counter
}

// NewAllocationMetricsCollector creates the collector and registers its
// metrics with the given registry.
func NewAllocationMetricsCollector(registry *prometheus.Registry) *AllocationMetricsCollector {
	collector := &AllocationMetricsCollector{
		roundsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rounds_opened_total",
			Help:      "Total number of auction rounds opened",
		}),
		roundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "round_duration_seconds",
			Help:      "Auction round duration from open to finish",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		announcedTasks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "announced_tasks",
			Help:      "Number of tasks announced per round",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),
		bidsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bids_total",
			Help:      "Total number of bids received by kind",
		}, []string{"kind"}),
		allocationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "allocations_total",
			Help:      "Total number of tasks allocated",
		}),
		noAllocationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "no_allocations_total",
			Help:      "Total number of rounds that ended without a winner",
		}),
		alternativeTimeslots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alternative_timeslots_total",
			Help:      "Total number of allocations parked pending user confirmation of an alternative timeslot",
		}),
	}

	if registry != nil {
		registry.MustRegister(
			collector.roundsOpened,
			collector.roundDuration,
			collector.announcedTasks,
			collector.bidsTotal,
			collector.allocationsTotal,
			collector.noAllocationsTotal,
			collector.alternativeTimeslots,
		)
	}
	return collector
}

// RecordRoundOpened records a round opening with the number of announced tasks.
func (c *AllocationMetricsCollector) RecordRoundOpened(nTasks int) {
	c.roundsOpened.Inc()
	c.announcedTasks.Observe(float64(nTasks))
}

// RecordRoundClosed records a finished round's duration.
func (c *AllocationMetricsCollector) RecordRoundClosed(duration time.Duration) {
	c.roundDuration.Observe(duration.Seconds())
}

// RecordBid records a received bid or no-bid.
func (c *AllocationMetricsCollector) RecordBid(noBid bool) {
	kind := "bid"
	if noBid {
		kind = "no_bid"
	}
	c.bidsTotal.WithLabelValues(kind).Inc()
}

// RecordAllocation records a successful allocation.
func (c *AllocationMetricsCollector) RecordAllocation() {
	c.allocationsTotal.Inc()
}

// RecordNoAllocation records a round that elected no winner.
func (c *AllocationMetricsCollector) RecordNoAllocation() {
	c.noAllocationsTotal.Inc()
}

// RecordAlternativeTimeSlot records an allocation parked for confirmation.
func (c *AllocationMetricsCollector) RecordAlternativeTimeSlot() {
	c.alternativeTimeslots.Inc()
}
