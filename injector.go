package inject

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/junioryono/inject/internal/graph"
)

// Injector is the composition root. It owns a binding table and a singleton
// cache; injectors share nothing with each other.
//
// Registration is not safe for concurrent use and must finish before the
// first resolution. Resolution is safe for concurrent use.
type Injector struct {
	id string

	table    *bindingTable
	resolver *resolver
	reflect  *ReflectIntrospector

	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *metrics
	opts    *options

	freezeMu sync.Mutex
	warnings []ScopeConflictError
}

// New creates an empty Injector.
func New(opts ...Option) *Injector {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	in := &Injector{
		id:      uuid.NewString(),
		reflect: NewReflectIntrospector(),
		logger:  o.logger,
		tracer:  newTracer(o.tracerProvider),
		opts:    o,
	}
	in.logger = in.logger.With(zap.String("injector", in.id))

	m, err := newMetrics(o.registerer, in.id)
	if err != nil {
		in.logger.Warn("metrics disabled", zap.Error(err))
	}
	in.metrics = m

	introspector := o.introspector
	if introspector == nil {
		introspector = in.reflect
	}

	in.table = newBindingTable(introspector, o.compliance, in.logger)
	in.resolver = newResolver(in.table, in.logger, in.metrics)

	return in
}

// ID returns the unique identifier of the injector.
func (in *Injector) ID() string {
	return in.id
}

// Register binds key to strategy with the given scope. It fails with a
// DuplicateBindingError if key is already bound and with a
// ContainerFrozenError after Freeze; the table is unchanged on failure.
func (in *Injector) Register(key Key, scope Scope, strategy Strategy, opts ...BindOption) error {
	b := Binding{Key: key, Scope: scope, Strategy: strategy}
	collectBindOptions(opts).apply(&b)
	return in.RegisterBinding(b)
}

// RegisterBinding registers a fully specified binding.
func (in *Injector) RegisterBinding(b Binding) error {
	if err := in.table.register(&b); err != nil {
		return err
	}
	in.resolver.invalidate()
	return nil
}

// Provide registers a constructor function func(deps...) (T[, error]) as the
// binding for T. Parameters become dependencies in declared order; a
// parameter of type Provider[D] is a ViaProvider dependency on D. When T is a
// pointer to a struct, its `inject` fields and Inject* methods are injected
// after the constructor returns.
//
// A constructor returning more than one value fails with an
// AmbiguousBindingError.
func (in *Injector) Provide(ctor any, opts ...BindOption) error {
	d, err := in.reflect.DescribeFunc(ctor)
	if err != nil {
		return err
	}

	b := Binding{
		Key:      Key{Type: d.Type},
		Strategy: Constructor(*d),
		Source:   funcName(ctor),
	}
	collectBindOptions(opts).apply(&b)
	return in.RegisterBinding(b)
}

// BindInstance binds key to a pre-built value. Instance bindings are
// Singleton.
func (in *Injector) BindInstance(key Key, v any, opts ...BindOption) error {
	return in.Register(key, Singleton, Instance(v), opts...)
}

// BindAlias makes from resolve to whatever to resolves to.
func (in *Injector) BindAlias(from, to Key, opts ...BindOption) error {
	return in.Register(from, Unscoped, Alias(to), opts...)
}

// BindFactory binds key to a provider function.
func (in *Injector) BindFactory(key Key, fn ProviderFunc, opts ...BindOption) error {
	b := Binding{Key: key, Strategy: Factory(fn)}
	if fn != nil {
		b.Source = funcName(fn)
	}
	collectBindOptions(opts).apply(&b)
	return in.RegisterBinding(b)
}

// Freeze validates the binding table and locks it against registration.
//
// Every unsatisfied dependency and Direct cycle reachable from an explicit
// binding is reported, joined into one error; the table stays unfrozen in
// that case. Singletons capturing stateful Unscoped bindings are logged and
// available from Warnings, and fail Freeze only with WithStrictScopes. With
// WithEagerSingletons every explicit Singleton is constructed before the
// table is locked.
func (in *Injector) Freeze() error {
	in.freezeMu.Lock()
	defer in.freezeMu.Unlock()

	ctx, span := in.startSpan(context.Background(), "inject.Freeze", Key{})
	err := in.freeze(ctx)
	endSpan(span, err)
	return err
}

func (in *Injector) freeze(ctx context.Context) error {
	if in.table.isFrozen() {
		return ContainerFrozenError{}
	}

	if problems := in.table.problems(); len(problems) > 0 {
		return errors.Join(problems...)
	}

	conflicts := in.table.scopeConflicts()
	for _, c := range conflicts {
		in.logger.Warn("singleton captures stateful unscoped binding",
			zap.Stringer("key", c.Key),
			zap.Stringer("dependency", c.Dependency))
	}
	in.warnings = conflicts

	if in.opts.strict && len(conflicts) > 0 {
		errs := make([]error, len(conflicts))
		for i, c := range conflicts {
			errs[i] = c
		}
		return errors.Join(errs...)
	}

	if in.opts.eager {
		var errs []error
		for _, key := range in.table.keys() {
			b, ok := in.table.get(key)
			if !ok || b.Scope != Singleton {
				continue
			}
			if _, err := in.resolver.resolve(ctx, nil, key); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return errors.Join(errs...)
		}
	}

	in.table.freeze()
	in.logger.Debug("injector frozen",
		zap.Int("bindings", in.table.len()),
		zap.Int("warnings", len(conflicts)))

	return nil
}

// Warnings returns the scope conflicts found by the last successful
// validation in Freeze.
func (in *Injector) Warnings() []ScopeConflictError {
	in.freezeMu.Lock()
	defer in.freezeMu.Unlock()

	warnings := make([]ScopeConflictError, len(in.warnings))
	copy(warnings, in.warnings)
	return warnings
}

// GetInstance resolves key.
func (in *Injector) GetInstance(key Key) (any, error) {
	return in.GetInstanceContext(context.Background(), key)
}

// GetInstanceContext resolves key. ctx only parents the resolution span;
// resolution cannot be cancelled.
func (in *Injector) GetInstanceContext(ctx context.Context, key Key) (any, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	ctx, span := in.startSpan(ctx, "inject.Resolve", key)
	start := time.Now()

	instance, err := in.resolver.resolve(ctx, nil, key)

	in.metrics.resolved(err, time.Since(start))
	endSpan(span, err)
	return instance, err
}

// GetProvider returns a deferred accessor for key. Each Get on the accessor
// resolves key at that time.
func (in *Injector) GetProvider(key Key) (Accessor, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}

	if _, err := in.table.lookup(key, Key{}); err != nil {
		return nil, err
	}
	return &accessor{r: in.resolver, key: key}, nil
}

// Keys returns the explicitly bound keys in registration order.
func (in *Injector) Keys() []Key {
	return in.table.keys()
}

// Binding returns the explicit binding for key.
func (in *Injector) Binding(key Key) (Binding, bool) {
	b, ok := in.table.get(key)
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// Frozen reports whether Freeze has succeeded.
func (in *Injector) Frozen() bool {
	return in.table.isFrozen()
}

// CacheStats returns singleton cache statistics.
func (in *Injector) CacheStats() CacheStatistics {
	return in.resolver.cache.statistics()
}

// EntryState returns the singleton cache state of key.
func (in *Injector) EntryState(key Key) EntryState {
	return in.resolver.cache.state(key)
}

// Dependencies returns the statically known dependencies of key.
func (in *Injector) Dependencies(key Key) []Edge {
	return in.table.graph.Dependencies(key)
}

// WriteDOT writes the dependency graph in Graphviz DOT format.
func (in *Injector) WriteDOT(w io.Writer) error {
	return graph.NewVisualizer(in.table.graph).WriteDOT(w)
}

// WriteText writes a text description of the dependency graph.
func (in *Injector) WriteText(w io.Writer) error {
	return graph.NewVisualizer(in.table.graph).WriteText(w)
}

// funcName returns the name of a function value, or its type.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Sprintf("%T", fn)
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return v.Type().String()
}
