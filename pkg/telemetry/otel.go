package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/daireb/reactor/pkg/reactor"
)

// Default tracer name for reactor propagation spans.
const defaultTracerName = "reactor"

// TracerConfig configures the OpenTelemetry monitor.
type TracerConfig struct {
	// TracerName is the name of the tracer (default: "reactor").
	TracerName string

	// Context is the base context for propagation spans.
	// Default: context.Background().
	Context context.Context

	// MinMarked skips spans for passes that marked fewer derivations,
	// keeping trace volume down on chatty graphs. Default 0 traces
	// everything.
	MinMarked int
}

// TracerOption configures the OpenTelemetry monitor.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithContext sets the base context spans are started from.
func WithContext(ctx context.Context) TracerOption {
	return func(c *TracerConfig) {
		c.Context = ctx
	}
}

// WithMinMarked only records spans for passes marking at least n
// derivations.
func WithMinMarked(n int) TracerOption {
	return func(c *TracerConfig) {
		c.MinMarked = n
	}
}

// Tracer records one span per propagation pass. Monitor calls are
// paired and single-threaded per graph, but they nest when an observer
// callback writes, so in-flight spans form a stack. The stack is not
// synchronized: a Tracer serves one driving goroutine, not graphs on
// several goroutines at once.
type Tracer struct {
	config TracerConfig
	tracer trace.Tracer

	spans []trace.Span
}

// NewTracer creates an OpenTelemetry monitor using the globally
// registered tracer provider.
func NewTracer(opts ...TracerOption) *Tracer {
	config := TracerConfig{
		TracerName: defaultTracerName,
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&config)
	}

	return &Tracer{
		config: config,
		tracer: otel.Tracer(config.TracerName),
	}
}

// PropagationBegin implements reactor.Monitor.
func (t *Tracer) PropagationBegin(sources int) {
	ctx := t.config.Context
	if len(t.spans) > 0 {
		// Nest under the pass whose callback triggered this write.
		ctx = trace.ContextWithSpan(ctx, t.spans[len(t.spans)-1])
	}
	_, span := t.tracer.Start(ctx, "reactor.propagate",
		trace.WithAttributes(attribute.Int("reactor.sources", sources)),
	)
	t.spans = append(t.spans, span)
}

// PropagationEnd implements reactor.Monitor.
func (t *Tracer) PropagationEnd(stats reactor.PropagationStats) {
	if len(t.spans) == 0 {
		return
	}
	span := t.spans[len(t.spans)-1]
	t.spans = t.spans[:len(t.spans)-1]

	if stats.Marked < t.config.MinMarked {
		// Below the volume threshold; drop by ending unsampled work
		// immediately without attributes.
		span.End()
		return
	}

	span.SetAttributes(
		attribute.Int("reactor.marked", stats.Marked),
		attribute.Int("reactor.recomputed", stats.Recomputed),
		attribute.Int("reactor.unchanged", stats.Unchanged),
		attribute.Int("reactor.notified", stats.Notified),
	)
	span.End()
}

var _ reactor.Monitor = (*Tracer)(nil)
