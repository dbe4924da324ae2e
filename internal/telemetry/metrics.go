package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the pipeline's application metrics.
type Metrics struct {
	RequestCounter    metric.Int64Counter
	RequestDuration   metric.Float64Histogram
	CommentsProcessed metric.Int64Counter
	DMAttempts        metric.Int64Counter
}

// InitMetrics initializes all application metrics. Without a
// configured meter provider the instruments are no-ops, so this is
// safe to call unconditionally.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("viral-kid-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	commentsProcessed, err := meter.Int64Counter(
		"instagram.comments.processed",
		metric.WithDescription("Comments replied to by automations"),
	)
	if err != nil {
		return nil, err
	}

	dmAttempts, err := meter.Int64Counter(
		"instagram.dm.attempts",
		metric.WithDescription("Direct message send attempts"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:    requestCounter,
		RequestDuration:   requestDuration,
		CommentsProcessed: commentsProcessed,
		DMAttempts:        dmAttempts,
	}, nil
}

// RecordRequest records HTTP request metrics.
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordCommentProcessed records one automated comment reply.
func (m *Metrics) RecordCommentProcessed(keyword string) {
	m.CommentsProcessed.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("automation.keyword", keyword),
	))
}

// RecordDMAttempt records a DM send outcome. Provider rejections show
// up here with success=false.
func (m *Metrics) RecordDMAttempt(success bool) {
	m.DMAttempts.Add(context.Background(), 1, metric.WithAttributes(
		attribute.Bool("dm.success", success),
	))
}
