// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, tracing helpers, structured logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A
// Prometheus exporter bridge is available via [InitProvider] so metrics
// can be scraped from the standard /metrics endpoint. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for
// convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/asterbyte/jarvis"

// Metrics holds all OpenTelemetry metric instruments for the assistant.
// All fields are safe for concurrent use — the underlying OTel types
// handle their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// RecognitionDuration tracks speech recognition latency per segment.
	RecognitionDuration metric.Float64Histogram

	// DispatchDuration tracks end-to-end command pipeline latency
	// (analysis through delivery).
	DispatchDuration metric.Float64Histogram

	// SynthesisDuration tracks spoken delivery latency (synthesis plus
	// playback).
	SynthesisDuration metric.Float64Histogram

	// --- Counters ---

	// Commands counts dispatched commands. Use with attributes:
	//   attribute.String("intent", ...), attribute.String("source", ...), attribute.String("status", ...)
	Commands metric.Int64Counter

	// WakeDetections counts wake phrase matches. Use with attribute:
	//   attribute.String("phrase", ...)
	WakeDetections metric.Int64Counter

	// SegmentsDropped counts audio segments evicted under backpressure.
	SegmentsDropped metric.Int64Counter

	// CommandsDropped counts commands rejected or evicted by the queue.
	CommandsDropped metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks the number of commands waiting for dispatch.
	QueueDepth metric.Int64UpDownCounter

	// ActiveWebClients tracks the number of connected WebSocket clients.
	ActiveWebClients metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds)
// optimised for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the
// given [metric.MeterProvider]. Returns an error if any instrument
// creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.RecognitionDuration, err = m.Float64Histogram("jarvis.recognition.duration",
		metric.WithDescription("Latency of speech recognition per audio segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DispatchDuration, err = m.Float64Histogram("jarvis.dispatch.duration",
		metric.WithDescription("End-to-end command pipeline latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("jarvis.synthesis.duration",
		metric.WithDescription("Latency of spoken response synthesis and playback."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Commands, err = m.Int64Counter("jarvis.commands",
		metric.WithDescription("Total dispatched commands by intent, source, and status."),
	); err != nil {
		return nil, err
	}
	if met.WakeDetections, err = m.Int64Counter("jarvis.wake.detections",
		metric.WithDescription("Total wake phrase detections by phrase."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsDropped, err = m.Int64Counter("jarvis.audio.segments_dropped",
		metric.WithDescription("Total audio segments evicted under backpressure."),
	); err != nil {
		return nil, err
	}
	if met.CommandsDropped, err = m.Int64Counter("jarvis.queue.commands_dropped",
		metric.WithDescription("Total commands rejected or evicted by the dispatch queue."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("jarvis.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.QueueDepth, err = m.Int64UpDownCounter("jarvis.queue.depth",
		metric.WithDescription("Number of commands waiting for dispatch."),
	); err != nil {
		return nil, err
	}
	if met.ActiveWebClients, err = m.Int64UpDownCounter("jarvis.web.active_clients",
		metric.WithDescription("Number of connected WebSocket clients."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("jarvis.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating
// it on first call using [otel.GetMeterProvider]. Subsequent calls
// return the same pointer. Panics if instrument creation fails (should
// not happen with the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity
// at call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCommand records one dispatched command: the counter increment
// and the pipeline latency sample share the same attribute set.
func (m *Metrics) RecordCommand(ctx context.Context, intent, source, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("intent", intent),
		attribute.String("source", source),
		attribute.String("status", status),
	)
	m.Commands.Add(ctx, 1, attrs)
	m.DispatchDuration.Record(ctx, seconds, attrs)
}

// RecordWakeDetection records one wake phrase match.
func (m *Metrics) RecordWakeDetection(ctx context.Context, phrase string) {
	m.WakeDetections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("phrase", phrase)),
	)
}

// RecordProviderError records one provider failure.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
