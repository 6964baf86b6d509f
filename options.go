package inject

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option configures an Injector.
type Option func(*options)

type options struct {
	logger         *zap.Logger
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
	introspector   Introspector

	compliance bool
	eager      bool
	strict     bool
}

func defaultOptions() *options {
	return &options{
		logger: zap.NewNop(),
	}
}

// WithLogger sets the logger. The injector logs registrations, freezes and
// singleton creation at debug level and advisory problems at warn level.
// Resolution errors are returned, never logged. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics registers Prometheus collectors for resolutions, constructions
// and cache hits on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider used for
// resolution and freeze spans. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithIntrospector replaces the introspector used to synthesize bindings for
// self-constructible types. Defaults to a ReflectIntrospector.
func WithIntrospector(i Introspector) Option {
	return func(o *options) {
		o.introspector = i
	}
}

// WithCompliance enables strict checks at registration: injection points with
// more than one qualifier, unassignable fields and injection points out of
// the standard order are rejected.
func WithCompliance() Option {
	return func(o *options) {
		o.compliance = true
	}
}

// WithEagerSingletons constructs every explicit Singleton binding during
// Freeze.
func WithEagerSingletons() Option {
	return func(o *options) {
		o.eager = true
	}
}

// WithStrictScopes makes scope conflicts found by Freeze fatal.
func WithStrictScopes() Option {
	return func(o *options) {
		o.strict = true
	}
}
