package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the shift calendar.
type SchedulingMetrics struct {
	createdTotal  *prometheus.CounterVec
	conflictTotal *prometheus.CounterVec
	lockBusyTotal prometheus.Counter
	opDuration    *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		createdTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "shifts_created_total",
			Help:      "Shifts persisted, by creation path",
		}, []string{"source"}),
		conflictTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "conflicts_total",
			Help:      "Bookings rejected or skipped because of an overlapping shift",
		}, []string{"operation"}),
		lockBusyTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "lock_busy_total",
			Help:      "Writes refused because the calendar date was locked by another writer",
		}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "operation_duration_seconds",
			Help:      "Latency of scheduling operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.createdTotal, m.conflictTotal, m.lockBusyTotal, m.opDuration)
	return m
}

func (m *SchedulingMetrics) ObserveCreated(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.createdTotal.WithLabelValues(source).Add(float64(n))
}

func (m *SchedulingMetrics) ObserveConflict(operation string) {
	if m == nil {
		return
	}
	m.conflictTotal.WithLabelValues(operation).Inc()
}

func (m *SchedulingMetrics) ObserveLockBusy() {
	if m == nil {
		return
	}
	m.lockBusyTotal.Inc()
}

func (m *SchedulingMetrics) ObserveDuration(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(operation).Observe(seconds)
}
