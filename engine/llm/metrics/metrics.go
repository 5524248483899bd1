package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	namespace = "responder"

	labelOutcome   = "outcome"
	labelErrorCode = "error_code"
	labelModel     = "model"

	unitSeconds = "s"

	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// generationBuckets span quick single-turn replies up to long tool loops.
var generationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// Generation summarizes one finished generation.
type Generation struct {
	Outcome         string
	ErrorCode       string
	Model           string
	Duration        time.Duration
	Credits         decimal.Decimal
	ToolCalls       int
	FailedToolCalls int
	Iterations      int
}

// Recorder records generation metrics.
type Recorder interface {
	RecordGeneration(ctx context.Context, g *Generation)
}

type recorder struct {
	duration    metric.Float64Histogram
	generations metric.Int64Counter
	credits     metric.Float64Counter
	toolCalls   metric.Int64Counter
	iterations  metric.Int64Histogram
}

type nopRecorder struct{}

// Nop returns a recorder that drops everything.
func Nop() Recorder {
	return nopRecorder{}
}

func (nopRecorder) RecordGeneration(context.Context, *Generation) {}

func metricName(name string) string {
	return namespace + "_" + name
}

// NewRecorder registers the generation instruments on meter. A nil meter
// yields Nop.
func NewRecorder(meter metric.Meter) (Recorder, error) {
	if meter == nil {
		return Nop(), nil
	}
	duration, err := meter.Float64Histogram(
		metricName("generation_seconds"),
		metric.WithDescription("Wall time of one response generation"),
		metric.WithUnit(unitSeconds),
		metric.WithExplicitBucketBoundaries(generationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create generation histogram: %w", err)
	}
	generations, err := meter.Int64Counter(
		metricName("generations_total"),
		metric.WithDescription("Finished generations by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create generations counter: %w", err)
	}
	credits, err := meter.Float64Counter(
		metricName("credits_total"),
		metric.WithDescription("Credits charged by model and tool calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("create credits counter: %w", err)
	}
	toolCalls, err := meter.Int64Counter(
		metricName("tool_calls_total"),
		metric.WithDescription("Attempted tool calls by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tool calls counter: %w", err)
	}
	iterations, err := meter.Int64Histogram(
		metricName("tool_iterations"),
		metric.WithDescription("Tool-bearing loop iterations per generation"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 8, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create iterations histogram: %w", err)
	}
	return &recorder{
		duration:    duration,
		generations: generations,
		credits:     credits,
		toolCalls:   toolCalls,
		iterations:  iterations,
	}, nil
}

func (r *recorder) RecordGeneration(ctx context.Context, g *Generation) {
	if g == nil {
		return
	}
	outcome := strings.TrimSpace(g.Outcome)
	if outcome == "" {
		outcome = OutcomeSuccess
	}
	model := strings.TrimSpace(g.Model)
	if model == "" {
		model = "unknown"
	}
	attrs := metric.WithAttributes(
		attribute.String(labelOutcome, outcome),
		attribute.String(labelErrorCode, g.ErrorCode),
		attribute.String(labelModel, model),
	)
	r.generations.Add(ctx, 1, attrs)
	if g.Duration >= 0 {
		r.duration.Record(ctx, g.Duration.Seconds(), attrs)
	}
	r.iterations.Record(ctx, int64(g.Iterations), attrs)
	if g.Credits.IsPositive() {
		r.credits.Add(ctx, g.Credits.InexactFloat64(), metric.WithAttributes(attribute.String(labelModel, model)))
	}
	if ok := g.ToolCalls - g.FailedToolCalls; ok > 0 {
		r.toolCalls.Add(ctx, int64(ok), metric.WithAttributes(attribute.String(labelOutcome, OutcomeSuccess)))
	}
	if g.FailedToolCalls > 0 {
		r.toolCalls.Add(ctx, int64(g.FailedToolCalls), metric.WithAttributes(attribute.String(labelOutcome, OutcomeFailure)))
	}
}
