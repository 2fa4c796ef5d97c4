// Package metrics provides Prometheus metrics for the dealwatch service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dealwatch"

// Manager owns every collector registered for the service.
type Manager struct {
	registry *prometheus.Registry

	// Check pipeline
	checksTotal   *prometheus.CounterVec
	checkDuration prometheus.Histogram
	checkRetries  prometheus.Counter
	channelFallbacks prometheus.Counter

	// Scheduler
	cycleDuration   prometheus.Histogram
	cyclesTotal     prometheus.Counter
	budgetExhausted prometheus.Counter
	enqueueDropped  prometheus.Counter
	dueBacklog      *prometheus.GaugeVec

	// Queue
	queueDepth *prometheus.GaugeVec

	// Deals
	dealsTotal            *prometheus.CounterVec
	notificationsEnqueued prometheus.Counter

	// Store
	storeErrors prometheus.Counter
}

func newManager() *Manager {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Manager{
		registry: reg,
		checksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Product checks by outcome.",
		}, []string{"outcome"}),
		checkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Wall time of a single product check.",
			Buckets:   prometheus.DefBuckets,
		}),
		checkRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_retries_total",
			Help:      "Transient-failure retries performed by workers.",
		}),
		channelFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_fallbacks_total",
			Help:      "Products degraded from the API channel to scraping.",
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_cycle_duration_seconds",
			Help:      "Duration of one scheduler cycle.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		cyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_cycles_total",
			Help:      "Scheduler cycles executed.",
		}),
		budgetExhausted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_budget_exhausted_total",
			Help:      "Cycles that hit the global throughput ceiling.",
		}),
		enqueueDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_enqueue_dropped_total",
			Help:      "Work items dropped on enqueue; retried next cycle.",
		}),
		dueBacklog: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "due_backlog",
			Help:      "Due-but-unclaimed products per tier.",
		}, []string{"tier"}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Work items waiting per priority lane.",
		}, []string{"lane"}),
		dealsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deals_total",
			Help:      "Deal transitions by kind: created, updated, deactivated.",
		}, []string{"transition"}),
		notificationsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_enqueued_total",
			Help:      "Deal notifications handed to the dispatcher outbox.",
		}),
		storeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Product store failures.",
		}),
	}
}

var manager = newManager()

// GetRegistry returns the registry backing all service metrics.
func GetRegistry() *prometheus.Registry {
	return manager.registry
}

// Check pipeline helpers.

func RecordCheck(outcome string, seconds float64) {
	manager.checksTotal.WithLabelValues(outcome).Inc()
	manager.checkDuration.Observe(seconds)
}

func RecordCheckRetry()      { manager.checkRetries.Inc() }
func RecordChannelFallback() { manager.channelFallbacks.Inc() }

// Scheduler helpers.

func RecordCycle(seconds float64) {
	manager.cyclesTotal.Inc()
	manager.cycleDuration.Observe(seconds)
}

func RecordBudgetExhausted() { manager.budgetExhausted.Inc() }
func RecordEnqueueDropped()  { manager.enqueueDropped.Inc() }

func UpdateDueBacklog(tier int, count int64) {
	manager.dueBacklog.WithLabelValues(strconv.Itoa(tier)).Set(float64(count))
}

// Queue helpers.

func UpdateQueueDepth(lane, depth int) {
	manager.queueDepth.WithLabelValues(strconv.Itoa(lane)).Set(float64(depth))
}

// Deal helpers.

func RecordDealTransition(transition string) { manager.dealsTotal.WithLabelValues(transition).Inc() }
func RecordNotificationEnqueued()            { manager.notificationsEnqueued.Inc() }

// Store helpers.

func RecordStoreError() { manager.storeErrors.Inc() }
