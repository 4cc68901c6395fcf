package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RecordsActivated  *prometheus.CounterVec
	RecordsCancelled  *prometheus.CounterVec
	RecordsExpired    *prometheus.CounterVec
	OverlapRejections *prometheus.CounterVec
	PaymentsRecorded  prometheus.Counter
	PaymentsVerified  prometheus.Counter
	PaymentsRejected  prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RecordsActivated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetcomply_records_activated_total",
			Help: "Compliance records activated, by kind",
		}, []string{"kind"}),
		RecordsCancelled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetcomply_records_cancelled_total",
			Help: "Compliance records cancelled, by kind",
		}, []string{"kind"}),
		RecordsExpired: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetcomply_records_expired_total",
			Help: "Compliance records expired, by kind",
		}, []string{"kind"}),
		OverlapRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetcomply_overlap_rejections_total",
			Help: "Activations rejected by overlap or type-conflict checks, by kind",
		}, []string{"kind"}),
		PaymentsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleetcomply_payments_recorded_total",
			Help: "Policy payments recorded",
		}),
		PaymentsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleetcomply_payments_verified_total",
			Help: "Policy payments verified",
		}),
		PaymentsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fleetcomply_payments_rejected_total",
			Help: "Policy payments rejected",
		}),
	}
}
