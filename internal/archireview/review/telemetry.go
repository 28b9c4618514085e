package review

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("archireview.review")
	meter  = otel.Meter("archireview.review")
)

var (
	reviewLatency    metric.Float64Histogram
	evaluationsTotal metric.Int64Counter
	resultsTotal     metric.Int64Counter
	faultsTotal      metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		reviewLatency, err = meter.Float64Histogram(
			"review_duration_seconds",
			metric.WithDescription("Duration of review invocations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		evaluationsTotal, err = meter.Int64Counter(
			"review_evaluations_total",
			metric.WithDescription("Number of (unit, rule) evaluations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		resultsTotal, err = meter.Int64Counter(
			"review_results_total",
			metric.WithDescription("Number of evaluation results produced"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		faultsTotal, err = meter.Int64Counter(
			"review_faults_total",
			metric.WithDescription("Number of rule evaluation faults"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startReviewSpan(ctx context.Context, req Request) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Reviewer.Review",
		trace.WithAttributes(
			attribute.String("review.project", req.Project),
			attribute.String("review.file", req.File),
			attribute.Bool("review.semantic", req.semantic()),
		),
	)
}

func setReviewSpanResult(span trace.Span, units, evaluations int, r *Report) {
	span.SetAttributes(
		attribute.Int("review.units", units),
		attribute.Int("review.evaluations", evaluations),
		attribute.Int("review.results", len(r.Results)),
		attribute.Int("review.faults", len(r.Faults)),
	)
}

func recordReviewMetrics(ctx context.Context, duration time.Duration, evaluations int, r *Report, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	reviewLatency.Record(ctx, duration.Seconds(), attrs)
	evaluationsTotal.Add(ctx, int64(evaluations), attrs)

	if r != nil {
		resultsTotal.Add(ctx, int64(len(r.Results)))
		faultsTotal.Add(ctx, int64(len(r.Faults)))
	}
}
