package inject

import (
	"reflect"

	"github.com/junioryono/inject/internal/graph"
)

// Key identifies a bindable value: a type plus an optional qualifier.
// Two keys are equal when both the type and the qualifier are equal, so a
// Key can be used directly as a map key.
//
// The qualifier is opaque to the injector. It is only ever compared, which
// means its dynamic type must be comparable.
type Key = graph.NodeKey

// Indirection describes how a dependent consumes a dependency.
type Indirection = graph.Indirection

const (
	// Direct dependencies are constructed before the dependent.
	Direct = graph.Direct

	// ViaProvider dependencies are handed over as an Accessor and resolved
	// only when the accessor is invoked.
	ViaProvider = graph.ViaProvider
)

// Edge is a statically known dependency of a binding.
type Edge = graph.Edge

// Named is a ready-made string qualifier.
//
//	inject.KeyOf[*sql.DB](inject.Named("replica"))
type Named string

// String returns the name.
func (n Named) String() string {
	return string(n)
}

// KeyOf returns the key for type T with an optional qualifier.
// Only the first qualifier is used.
func KeyOf[T any](qualifier ...any) Key {
	return TypeKey(reflect.TypeOf((*T)(nil)).Elem(), qualifier...)
}

// TypeKey returns the key for t with an optional qualifier.
// Only the first qualifier is used.
func TypeKey(t reflect.Type, qualifier ...any) Key {
	key := Key{Type: t}
	if len(qualifier) > 0 {
		key.Qualifier = qualifier[0]
	}
	return key
}

// validKey checks that a key can be stored and compared.
func validKey(key Key) error {
	if key.Type == nil {
		return ErrNilKeyType
	}

	if key.Qualifier != nil && !reflect.TypeOf(key.Qualifier).Comparable() {
		return InvalidQualifierError{
			Key:        Key{Type: key.Type},
			Qualifiers: []any{key.Qualifier},
			Reason:     "qualifier is not comparable",
		}
	}

	return nil
}
