// Package instrumented decorates an entitystore.Backend with Prometheus metrics.
package instrumented

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trezcool/shule/entitystore"
)

type Metrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
	records  *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shule",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Backend operations by op, collection and result.",
		}, []string{"op", "collection", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shule",
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Backend operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		records: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "shule",
			Subsystem: "storage",
			Name:      "collection_records",
			Help:      "Number of records last written per collection.",
		}, []string{"collection"}),
	}
}

type Backend struct {
	next    entitystore.Backend
	metrics *Metrics
}

var _ entitystore.Backend = (*Backend)(nil) // interface compliance check

func New(next entitystore.Backend, metrics *Metrics) *Backend {
	return &Backend{next: next, metrics: metrics}
}

func (b *Backend) observe(op, collection string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	b.metrics.ops.WithLabelValues(op, collection, result).Inc()
	b.metrics.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (b *Backend) Read(ctx context.Context, collection string) ([]entitystore.Record, error) {
	start := time.Now()
	records, err := b.next.Read(ctx, collection)
	b.observe("read", collection, start, err)
	return records, err
}

func (b *Backend) Write(ctx context.Context, collection string, records []entitystore.Record) error {
	start := time.Now()
	err := b.next.Write(ctx, collection, records)
	b.observe("write", collection, start, err)
	if err == nil {
		b.metrics.records.WithLabelValues(collection).Set(float64(len(records)))
	}
	return err
}

func (b *Backend) Collections(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := b.next.Collections(ctx)
	b.observe("collections", "", start, err)
	return names, err
}

func (b *Backend) Close() error {
	return b.next.Close()
}
