package inject

import (
	"fmt"
	"reflect"

	"github.com/junioryono/inject/internal/graph"
)

// TargetKind says where a dependency is injected.
type TargetKind int

const (
	// ConstructorParam is a parameter of the constructor.
	ConstructorParam TargetKind = iota

	// Field is a struct field assigned after construction.
	Field

	// Method is a parameter of an Inject* method called after fields are set.
	Method
)

// String returns the string representation of the TargetKind.
func (k TargetKind) String() string {
	switch k {
	case ConstructorParam:
		return "ConstructorParam"
	case Field:
		return "Field"
	case Method:
		return "Method"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Dependency is a single injection point of a Descriptor.
type Dependency struct {
	// Key is the dependency to inject. For ViaProvider dependencies it is the
	// key the accessor resolves.
	Key         Key
	Indirection Indirection

	Target TargetKind

	// Name is the field or method name, or "argN" for parameters
	Name string

	// Level is the embedding depth of the declaring struct, 0 being the
	// outermost struct
	Level int

	// Qualifiers lists every qualifier found on the injection point. Key
	// carries the first one.
	Qualifiers []any

	// Immutable marks a field that cannot be assigned.
	Immutable bool
}

// point names the injection point for error messages.
func (d Dependency) point() string {
	switch d.Target {
	case Field:
		return "field " + d.Name
	case Method:
		return "method " + d.Name
	default:
		return "parameter " + d.Name
	}
}

// BuildFunc produces an instance from resolved dependencies, passed in
// descriptor order. A Direct dependency arrives as the resolved instance and a
// ViaProvider dependency as an Accessor.
type BuildFunc func(deps []any) (any, error)

// Descriptor lists the injection points of a type and how to build it from
// the resolved dependencies.
type Descriptor struct {
	Type         reflect.Type
	Dependencies []Dependency
	Build        BuildFunc

	// SelfConstructible types may be resolved without an explicit binding
	// when requested without a qualifier.
	SelfConstructible bool

	// Constructors is the number of candidate constructors found. More than
	// one makes the binding ambiguous.
	Constructors int
}

// Resolver resolves dependencies from inside a ProviderFunc. It continues the
// resolution that invoked the function, so cycles through provider functions
// are still detected.
type Resolver interface {
	Get(key Key) (any, error)
	Provider(key Key) (Accessor, error)
}

// ProviderFunc is a caller-supplied factory.
type ProviderFunc func(r Resolver) (any, error)

// StrategyKind identifies how a binding produces its value.
type StrategyKind int

const (
	ConstructorStrategy StrategyKind = iota
	InstanceStrategy
	AliasStrategy
	ProviderStrategy
)

// String returns the string representation of the StrategyKind.
func (k StrategyKind) String() string {
	switch k {
	case ConstructorStrategy:
		return "Constructor"
	case InstanceStrategy:
		return "Instance"
	case AliasStrategy:
		return "Alias"
	case ProviderStrategy:
		return "Provider"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Strategy is the production strategy of a binding.
type Strategy struct {
	kind       StrategyKind
	descriptor *Descriptor
	instance   any
	target     Key
	factory    ProviderFunc
}

// Constructor builds instances from a descriptor.
func Constructor(d Descriptor) Strategy {
	return Strategy{kind: ConstructorStrategy, descriptor: &d}
}

// Instance returns a pre-built value. Instance bindings are always Singleton.
func Instance(v any) Strategy {
	return Strategy{kind: InstanceStrategy, instance: v}
}

// Alias forwards resolution to another key.
func Alias(to Key) Strategy {
	return Strategy{kind: AliasStrategy, target: to}
}

// Factory invokes fn on every resolution, subject to the binding's scope.
func Factory(fn ProviderFunc) Strategy {
	return Strategy{kind: ProviderStrategy, factory: fn}
}

// Kind returns the strategy kind.
func (s Strategy) Kind() StrategyKind {
	return s.kind
}

// Descriptor returns the descriptor of a Constructor strategy, or nil.
func (s Strategy) Descriptor() *Descriptor {
	return s.descriptor
}

// Target returns the key an Alias strategy forwards to.
func (s Strategy) Target() Key {
	return s.target
}

var _ graph.Provider = (*Binding)(nil)

// Binding declares how to produce the value for a key and how long it lives.
type Binding struct {
	Key      Key
	Scope    Scope
	Strategy Strategy

	// Stateful marks an Unscoped binding whose instances hold per-resolution
	// state. Freeze warns when a Singleton captures one.
	Stateful bool

	// Source describes where the binding was declared.
	Source string
}

// Dependencies returns the statically known dependency edges in declared order.
func (b *Binding) Dependencies() []graph.Edge {
	switch b.Strategy.kind {
	case ConstructorStrategy:
		deps := b.Strategy.descriptor.Dependencies
		edges := make([]graph.Edge, len(deps))
		for i, dep := range deps {
			edges[i] = graph.Edge{To: dep.Key, Indirection: dep.Indirection}
		}
		return edges
	case AliasStrategy:
		return []graph.Edge{{To: b.Strategy.target, Indirection: graph.Direct}}
	default:
		return nil
	}
}

// GetKey implements graph.Provider.
func (b *Binding) GetKey() graph.NodeKey {
	return b.Key
}

// GetEdges implements graph.Provider.
func (b *Binding) GetEdges() []graph.Edge {
	return b.Dependencies()
}

// Label implements graph.Provider.
func (b *Binding) Label() string {
	if b.Strategy.kind == AliasStrategy {
		return fmt.Sprintf("%s alias", b.Scope)
	}
	return fmt.Sprintf("%s %s", b.Scope, b.Strategy.kind)
}

// BindOption configures a binding.
type BindOption interface {
	applyBindOption(*bindOptions)
}

type bindOptions struct {
	scope     Scope
	scopeSet  bool
	qualifier any
	stateful  bool
	source    string
}

type bindOptionFunc func(*bindOptions)

func (f bindOptionFunc) applyBindOption(opts *bindOptions) {
	f(opts)
}

// WithScope sets the scope of the binding. Bindings are Unscoped by default.
func WithScope(scope Scope) BindOption {
	return bindOptionFunc(func(opts *bindOptions) {
		opts.scope = scope
		opts.scopeSet = true
	})
}

// Qualified binds the value under the given qualifier.
func Qualified(qualifier any) BindOption {
	return bindOptionFunc(func(opts *bindOptions) {
		opts.qualifier = qualifier
	})
}

// AsStateful marks the binding as holding per-resolution state.
func AsStateful() BindOption {
	return bindOptionFunc(func(opts *bindOptions) {
		opts.stateful = true
	})
}

// WithSource records where the binding was declared.
func WithSource(source string) BindOption {
	return bindOptionFunc(func(opts *bindOptions) {
		opts.source = source
	})
}

func collectBindOptions(opts []BindOption) *bindOptions {
	o := &bindOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyBindOption(o)
		}
	}
	return o
}

// apply copies the options onto b.
func (o *bindOptions) apply(b *Binding) {
	if o.scopeSet {
		b.Scope = o.scope
	}
	if o.qualifier != nil {
		b.Key = b.Key.WithQualifier(o.qualifier)
	}
	if o.stateful {
		b.Stateful = true
	}
	if o.source != "" {
		b.Source = o.source
	}
}
