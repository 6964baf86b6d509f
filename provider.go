package inject

import (
	"fmt"
	"reflect"
)

// Accessor is a deferred handle on a key. Each Get performs a full resolution
// of the key at that time, honoring its scope.
type Accessor interface {
	Get() (any, error)
}

// Provider is a typed Accessor. Declaring a constructor parameter or an
// injected field of type Provider[T] makes the dependency on T a ViaProvider
// edge, which is how declared cycles become satisfiable:
//
//	type Session struct {
//	    Users inject.Provider[*UserStore] `inject:""`
//	}
//
// The zero Provider is unbound and returns ErrUnboundProvider.
type Provider[T any] struct {
	acc Accessor
}

// NewProvider wraps an Accessor.
func NewProvider[T any](acc Accessor) Provider[T] {
	return Provider[T]{acc: acc}
}

// Get resolves the value.
func (p Provider[T]) Get() (T, error) {
	var zero T

	if p.acc == nil {
		return zero, ErrUnboundProvider
	}

	instance, err := p.acc.Get()
	if err != nil {
		return zero, err
	}

	if instance == nil {
		return zero, nil
	}

	result, ok := instance.(T)
	if !ok {
		return zero, TypeMismatchError{
			Key:      keyOfAccessor(p.acc, p.providedType()),
			Expected: p.providedType(),
			Actual:   reflect.TypeOf(instance),
			Context:  "type assertion",
		}
	}

	return result, nil
}

// MustGet resolves the value and panics on error.
func (p Provider[T]) MustGet() T {
	result, err := p.Get()
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %v: %v", p.providedType(), err))
	}
	return result
}

func (Provider[T]) providedType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (Provider[T]) withAccessor(acc Accessor) any {
	return Provider[T]{acc: acc}
}

// providerType is implemented by every Provider[T].
type providerType interface {
	providedType() reflect.Type
	withAccessor(acc Accessor) any
}

var providerTypeType = reflect.TypeOf((*providerType)(nil)).Elem()

// providerTarget reports whether t is a Provider[T] and returns T.
func providerTarget(t reflect.Type) (reflect.Type, bool) {
	if t == nil || t.Kind() != reflect.Struct || !t.Implements(providerTypeType) {
		return nil, false
	}
	return reflect.Zero(t).Interface().(providerType).providedType(), true
}

// wrapAccessor converts acc into a value of the Provider[T] type t.
func wrapAccessor(t reflect.Type, acc Accessor) any {
	return reflect.Zero(t).Interface().(providerType).withAccessor(acc)
}

func keyOfAccessor(acc Accessor, t reflect.Type) Key {
	if keyed, ok := acc.(interface{ Key() Key }); ok {
		return keyed.Key()
	}
	return Key{Type: t}
}
