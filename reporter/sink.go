package reporter

import (
	"context"
	"errors"

	"github.com/michaelpento.lv/arbbot/utils/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LogSink writes each record as a structured log line
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, record Record) error {
	s.logger.Info("Balance report",
		zap.String("symbol", record.Symbol),
		zap.Stringer("bps", record.BasisPointDelta),
		zap.String("percent", Percent(record).StringFixed(2)),
		zap.Stringer("current", record.Balance.Current),
		zap.Stringer("start", record.Balance.Start))
	return nil
}

// Percent renders the basis-point delta as a percentage
func Percent(record Record) decimal.Decimal {
	if record.BasisPointDelta == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(record.BasisPointDelta, -2)
}

// MetricsSink exports each delta as a gauge labelled by symbol
type MetricsSink struct {
	metrics *metrics.ReporterMetrics
}

func NewMetricsSink(m *metrics.ReporterMetrics) *MetricsSink {
	return &MetricsSink{metrics: m}
}

func (s *MetricsSink) Emit(ctx context.Context, record Record) error {
	bps, _ := decimal.NewFromBigInt(record.BasisPointDelta, 0).Float64()
	s.metrics.BasisPoints.WithLabelValues(record.Symbol).Set(bps)
	return nil
}

// MultiSink fans a record out to every sink
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, record Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
