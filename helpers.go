package inject

import (
	"context"
	"fmt"
	"reflect"
)

// Resolve is a generic helper that resolves the unqualified key of T.
func Resolve[T any](in *Injector) (T, error) {
	return resolveAs[T](context.Background(), in, KeyOf[T]())
}

// ResolveContext resolves the unqualified key of T. ctx parents the
// resolution span.
func ResolveContext[T any](ctx context.Context, in *Injector) (T, error) {
	return resolveAs[T](ctx, in, KeyOf[T]())
}

// ResolveNamed is a generic helper that resolves T qualified with Named(name).
func ResolveNamed[T any](in *Injector, name string) (T, error) {
	return resolveAs[T](context.Background(), in, KeyOf[T](Named(name)))
}

// ResolveQualified is a generic helper that resolves T with an arbitrary
// qualifier.
func ResolveQualified[T any](in *Injector, qualifier any) (T, error) {
	return resolveAs[T](context.Background(), in, KeyOf[T](qualifier))
}

// MustResolve resolves T and panics on error.
func MustResolve[T any](in *Injector) T {
	result, err := Resolve[T](in)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %v: %v", reflect.TypeOf((*T)(nil)).Elem(), err))
	}
	return result
}

// ResolveProvider returns a typed deferred accessor for T with an optional
// qualifier.
func ResolveProvider[T any](in *Injector, qualifier ...any) (Provider[T], error) {
	acc, err := in.GetProvider(KeyOf[T](qualifier...))
	if err != nil {
		return Provider[T]{}, err
	}
	return NewProvider[T](acc), nil
}

// ProvideStruct registers T, a struct or a pointer to one, built by
// allocating a zero value and injecting its `inject` fields and Inject*
// methods.
func ProvideStruct[T any](in *Injector, opts ...BindOption) error {
	t := reflect.TypeOf((*T)(nil)).Elem()

	d, err := in.reflect.Describe(t)
	if err != nil {
		return err
	}

	b := Binding{
		Key:      Key{Type: t},
		Strategy: Constructor(*d),
		Source:   t.String(),
	}
	collectBindOptions(opts).apply(&b)
	return in.RegisterBinding(b)
}

// BindValue binds the unqualified key of T, or the key given by Qualified, to
// v as a Singleton instance.
func BindValue[T any](in *Injector, v T, opts ...BindOption) error {
	return in.BindInstance(KeyOf[T](), v, opts...)
}

// BindTo binds the key of interface type I to the key of its implementation C.
func BindTo[I, C any](in *Injector, opts ...BindOption) error {
	return in.BindAlias(KeyOf[I](), KeyOf[C](), opts...)
}

func resolveAs[T any](ctx context.Context, in *Injector, key Key) (T, error) {
	var zero T

	instance, err := in.GetInstanceContext(ctx, key)
	if err != nil {
		return zero, err
	}

	if instance == nil {
		return zero, nil
	}

	result, ok := instance.(T)
	if !ok {
		return zero, TypeMismatchError{
			Key:      key,
			Expected: key.Type,
			Actual:   reflect.TypeOf(instance),
			Context:  "type assertion",
		}
	}

	return result, nil
}
