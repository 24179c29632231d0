package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OfferRecalcTotal counts offer recalculation outcomes.
	OfferRecalcTotal *prometheus.CounterVec
	// OfferItemWritesTotal counts item create/update/delete outcomes.
	OfferItemWritesTotal *prometheus.CounterVec
	// ReservationConflictsTotal counts reservations rejected for stock conflicts.
	ReservationConflictsTotal prometheus.Counter
	// JobRunsTotal counts background task outcomes per task kind.
	JobRunsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OfferRecalcTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offer_recalculations_total",
			Help:      "Count of offer total recalculations by result.",
		}, []string{"result"})
		OfferItemWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offer_item_writes_total",
			Help:      "Count of offer item write operations by kind and result.",
		}, []string{"op", "result"})
		ReservationConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_conflicts_total",
			Help:      "Number of reservation attempts rejected due to overlapping stock.",
		})
		JobRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Count of background job executions by task kind and result.",
		}, []string{"task", "result"})

		registerOrReuse(reg, OfferRecalcTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OfferRecalcTotal = v
			}
		})
		registerOrReuse(reg, OfferItemWritesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OfferItemWritesTotal = v
			}
		})
		registerOrReuse(reg, ReservationConflictsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ReservationConflictsTotal = v
			}
		})
		registerOrReuse(reg, JobRunsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				JobRunsTotal = v
			}
		})
	})
}
