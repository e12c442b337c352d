package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aleksaelezovic/quadstore/pkg/store"
)

// Result label values
const (
	ResultOK           = "ok"
	ResultInvalid      = "invalid"
	ResultStorageError = "storage_error"
	ResultError        = "error"
)

// Observer records store operations as Prometheus metrics
type Observer struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	quadsTotal        *prometheus.CounterVec
	conflictsTotal    *prometheus.CounterVec
}

var _ store.Observer = (*Observer)(nil)

// NewObserver creates the store metrics under namespace and registers them
// with reg.
func NewObserver(namespace string, reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of store operations by operation and result",
		}, []string{"op", "result"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of store operations in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"op"}),
		quadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quads_total",
			Help:      "Total number of quads inserted or removed",
		}, []string{"op"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Total number of write transactions retried after a conflict",
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{o.operationsTotal, o.operationDuration, o.quadsTotal, o.conflictsTotal} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register store metrics: %w", err)
		}
	}
	return o, nil
}

func (o *Observer) OnOperation(op string, d time.Duration, err error) {
	o.operationsTotal.WithLabelValues(op, result(err)).Inc()
	o.operationDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (o *Observer) OnQuads(op string, n int) {
	if n > 0 {
		o.quadsTotal.WithLabelValues(op).Add(float64(n))
	}
}

func (o *Observer) OnConflict(op string) {
	o.conflictsTotal.WithLabelValues(op).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case store.IsStorageFailure(err):
		return ResultStorageError
	case errors.Is(err, store.ErrInvalidQuad):
		return ResultInvalid
	default:
		return ResultError
	}
}
