// Package inject is a dependency injection engine for Go. Given a set of
// bindings and a requested key, it plans construction, detects unsatisfiable
// or cyclic configurations and builds fully wired object graphs, caching
// singletons safely under concurrent use.
//
// # Overview
//
// The engine is built from a few small pieces:
//   - Key: a type plus an optional qualifier identifying a bindable value
//   - Binding: how to produce the value for a key (constructor, instance,
//     alias or provider function) and its Scope (Unscoped or Singleton)
//   - Descriptor: the ordered injection points of a type and a build function
//   - Injector: registers bindings, freezes the composition root and resolves
//
// # Basic Usage
//
//	in := inject.New()
//	in.Provide(NewLogger, inject.WithScope(inject.Singleton))
//	in.Provide(NewUserService)
//
//	if err := in.Freeze(); err != nil {
//	    log.Fatal(err)
//	}
//
//	users, err := inject.Resolve[*UserService](in)
//
// # Scopes
//
//   - Unscoped: a new instance on every resolution
//   - Singleton: one instance per Injector, created on first resolution and
//     reused afterwards; concurrent first resolutions build it once
//
// # Qualifiers
//
// A qualifier distinguishes bindings of the same type. Any comparable value
// works; Named covers the common case:
//
//	in.Provide(NewPrimaryDB, inject.Qualified(inject.Named("primary")))
//	db, err := inject.ResolveNamed[*sql.DB](in, "primary")
//
// # Member Injection
//
// Struct fields tagged `inject:""` and pointer methods named Inject* are
// injected too. Embedded structs are injected first and fields come before
// methods:
//
//	type UserService struct {
//	    DB    *sql.DB `inject:"" qualifier:"primary"`
//	    clock *Clock
//	}
//
//	func (s *UserService) InjectClock(c *Clock) { s.clock = c }
//
// Structs embedding Component can be resolved without being bound.
//
// # Cycles and Providers
//
// A dependency declared as Provider[T] is a ViaProvider edge: the dependent
// receives a deferred accessor instead of an instance, so it can be built
// before T exists. Cycles closed through a ViaProvider edge are legal; cycles
// made only of Direct edges fail with a CircularDependencyError whose Path
// runs from the requested key to the repeated one.
//
//	type Node struct {
//	    Next inject.Provider[*Other] `inject:""`
//	}
//
// # Validation
//
// Freeze reports every unsatisfied dependency and Direct cycle at once, warns
// about singletons capturing bindings marked AsStateful, and locks the
// binding table. WithCompliance adds strict checks of qualifiers, field
// assignability and injection order at registration.
//
// # Observability
//
// WithLogger takes a zap logger, WithMetrics a Prometheus registerer and
// WithTracerProvider an OpenTelemetry tracer provider. The inspect package
// serves bindings, the dependency graph and cache statistics over HTTP.
package inject
