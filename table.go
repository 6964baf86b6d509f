package inject

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/junioryono/inject/internal/graph"
)

// bindingTable maps keys to bindings. It is mutable until frozen and owns the
// dependency graph of every explicit and implicit binding.
type bindingTable struct {
	mu       sync.RWMutex
	bindings map[Key]*Binding
	order    []Key
	frozen   bool

	// Implicit bindings are synthesized lazily for self-constructible types
	// and cached per type, failures included.
	implicitMu sync.Mutex
	implicit   map[reflect.Type]implicitBinding

	graph        *graph.DependencyGraph
	introspector Introspector
	compliance   bool
	logger       *zap.Logger
}

type implicitBinding struct {
	binding *Binding
	err     error
}

func newBindingTable(introspector Introspector, compliance bool, logger *zap.Logger) *bindingTable {
	t := &bindingTable{
		bindings:     make(map[Key]*Binding),
		implicit:     make(map[reflect.Type]implicitBinding),
		introspector: introspector,
		compliance:   compliance,
		logger:       logger,
	}
	t.graph = graph.NewDependencyGraph(t.graphLookup)
	return t
}

// register adds b. The table is left unchanged when register fails.
func (t *bindingTable) register(b *Binding) error {
	if err := t.validate(b); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ContainerFrozenError{Key: b.Key}
	}

	if existing, ok := t.bindings[b.Key]; ok {
		return DuplicateBindingError{Key: b.Key, Existing: existing.Source}
	}

	if err := t.graph.AddProvider(b); err != nil {
		return err
	}

	t.bindings[b.Key] = b
	t.order = append(t.order, b.Key)

	t.logger.Debug("binding registered",
		zap.Stringer("key", b.Key),
		zap.Stringer("scope", b.Scope),
		zap.Stringer("strategy", b.Strategy.kind),
		zap.String("source", b.Source))

	return nil
}

// validate checks a binding before it is added.
func (t *bindingTable) validate(b *Binding) error {
	if b == nil {
		return fmt.Errorf("binding cannot be nil")
	}

	if err := validKey(b.Key); err != nil {
		return err
	}

	if !b.Scope.IsValid() {
		return ScopeError{Value: int(b.Scope)}
	}

	switch b.Strategy.kind {
	case ConstructorStrategy:
		if b.Strategy.descriptor == nil {
			return fmt.Errorf("binding %s: %w", b.Key, ErrNilBuild)
		}
		return checkDescriptor(b.Key, b.Strategy.descriptor, t.compliance, t.logger)

	case InstanceStrategy:
		if b.Strategy.instance == nil {
			return fmt.Errorf("binding %s: %w", b.Key, ErrNilInstance)
		}
		if actual := reflect.TypeOf(b.Strategy.instance); !actual.AssignableTo(b.Key.Type) {
			return TypeMismatchError{Key: b.Key, Expected: b.Key.Type, Actual: actual, Context: "instance"}
		}
		b.Scope = Singleton

	case AliasStrategy:
		target := b.Strategy.target
		if err := validKey(target); err != nil {
			return err
		}
		if !target.Type.AssignableTo(b.Key.Type) {
			return TypeMismatchError{Key: b.Key, Expected: b.Key.Type, Actual: target.Type, Context: "alias target"}
		}

	case ProviderStrategy:
		if b.Strategy.factory == nil {
			return fmt.Errorf("binding %s: %w", b.Key, ErrNilFactory)
		}

	default:
		return fmt.Errorf("binding %s: unknown strategy %v", b.Key, b.Strategy.kind)
	}

	return nil
}

// lookup returns the binding for key. Without an explicit binding an
// Unscoped binding is synthesized only for unqualified keys whose type the
// introspector marks as self-constructible.
func (t *bindingTable) lookup(key, dependent Key) (*Binding, error) {
	t.mu.RLock()
	b, ok := t.bindings[key]
	t.mu.RUnlock()
	if ok {
		return b, nil
	}

	b, err := t.implicitBinding(key)
	if err != nil {
		return nil, UnsatisfiedDependencyError{Key: key, Dependent: dependent, Cause: err}
	}
	if b == nil {
		return nil, UnsatisfiedDependencyError{Key: key, Dependent: dependent}
	}
	return b, nil
}

// implicitBinding returns nil, nil when key cannot be constructed implicitly.
func (t *bindingTable) implicitBinding(key Key) (*Binding, error) {
	if key.Qualifier != nil || key.Type == nil || t.introspector == nil {
		return nil, nil
	}

	structType := key.Type
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, nil
	}

	t.implicitMu.Lock()
	cached, ok := t.implicit[key.Type]
	t.implicitMu.Unlock()
	if ok {
		return cached.binding, cached.err
	}

	var result implicitBinding
	d, err := t.introspector.Describe(key.Type)
	switch {
	case err != nil:
		result.err = err
	case d != nil && d.SelfConstructible:
		if err := checkDescriptor(key, d, t.compliance, t.logger); err != nil {
			result.err = err
			break
		}
		result.binding = &Binding{
			Key:      key,
			Scope:    Unscoped,
			Strategy: Constructor(*d),
			Source:   "implicit",
		}
	}

	t.implicitMu.Lock()
	defer t.implicitMu.Unlock()

	if cached, ok := t.implicit[key.Type]; ok {
		return cached.binding, cached.err
	}
	t.implicit[key.Type] = result

	if result.binding != nil {
		t.logger.Debug("implicit binding synthesized", zap.Stringer("key", key))
	}
	return result.binding, result.err
}

// graphLookup feeds implicit bindings to the dependency graph.
func (t *bindingTable) graphLookup(key graph.NodeKey) (graph.Provider, bool) {
	b, err := t.implicitBinding(key)
	if err != nil || b == nil {
		return nil, false
	}
	return b, true
}

// get returns the explicit binding for key.
func (t *bindingTable) get(key Key) (*Binding, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	b, ok := t.bindings[key]
	return b, ok
}

func (t *bindingTable) freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

func (t *bindingTable) isFrozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

// keys returns the explicitly bound keys in registration order.
func (t *bindingTable) keys() []Key {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := make([]Key, len(t.order))
	copy(keys, t.order)
	return keys
}

func (t *bindingTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.bindings)
}
