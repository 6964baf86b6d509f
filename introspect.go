package inject

import (
	"fmt"
	"reflect"

	"github.com/junioryono/inject/internal/reflection"
)

// Introspector yields the injection-point descriptor of a type. It must be
// deterministic and free of side effects; the injector caches its results.
type Introspector interface {
	Describe(t reflect.Type) (*Descriptor, error)
}

// Component marks a struct as self-constructible: it may be resolved by type
// without an explicit binding. Embed it by value.
//
//	type Clock struct {
//	    inject.Component
//	    Zone *time.Location `inject:"" qualifier:"utc"`
//	}
type Component struct{}

var componentType = reflect.TypeOf(Component{})

// ReflectIntrospector discovers injection points with reflection:
//
//   - parameters of constructor functions (DescribeFunc)
//   - struct fields tagged `inject:""`, with an optional `qualifier:"name"` tag
//     whose comma separated values become Named qualifiers
//   - parameters of exported pointer-receiver methods named Inject*
//
// Embedded structs are injected before the structs embedding them, and within
// one struct fields are injected before methods are called. Parameters and
// fields of type Provider[T] become ViaProvider dependencies on T.
type ReflectIntrospector struct {
	analyzer *reflection.Analyzer
}

// NewReflectIntrospector creates a ReflectIntrospector.
func NewReflectIntrospector() *ReflectIntrospector {
	return &ReflectIntrospector{
		analyzer: reflection.New(reflection.Options{
			ProviderTarget: providerTarget,
			Component:      componentType,
		}),
	}
}

// Describe describes a struct type or a pointer to one. The build function
// allocates a zero value and injects its members.
func (ri *ReflectIntrospector) Describe(t reflect.Type) (*Descriptor, error) {
	info, err := ri.analyzer.AnalyzeStruct(t)
	if err != nil {
		return nil, err
	}

	steps := info.Steps()
	deps := memberDependencies(info)

	return &Descriptor{
		Type:         t,
		Dependencies: deps,
		Build: func(values []any) (any, error) {
			target := reflect.New(info.Type)
			if err := injectMembers(target, steps, values); err != nil {
				return nil, err
			}

			if t.Kind() == reflect.Pointer {
				return target.Interface(), nil
			}
			return target.Elem().Interface(), nil
		},
		SelfConstructible: info.Component,
		Constructors:      1,
	}, nil
}

// DescribeFunc describes a constructor function func(deps...) (T[, error]).
// When T is a pointer to a struct with injectable members, they are injected
// after the constructor returns.
func (ri *ReflectIntrospector) DescribeFunc(ctor any) (*Descriptor, error) {
	if ctor == nil {
		return nil, ErrNilConstructor
	}

	fn := reflect.ValueOf(ctor)
	info, err := ri.analyzer.AnalyzeFunc(fn.Type())
	if err != nil {
		return nil, err
	}

	result := info.Results[0]
	if len(info.Results) > 1 {
		return nil, AmbiguousBindingError{
			Key:    Key{Type: result},
			Reason: fmt.Sprintf("constructor %v yields %d values", fn.Type(), len(info.Results)),
		}
	}

	deps := make([]Dependency, 0, len(info.Params))
	for _, p := range info.Params {
		deps = append(deps, dependency(p))
	}

	var steps []reflection.Step
	if result.Kind() == reflect.Pointer && result.Elem().Kind() == reflect.Struct {
		if members, err := ri.analyzer.AnalyzeStruct(result); err == nil && members.HasMembers() {
			steps = members.Steps()
			deps = append(deps, memberDependencies(members)...)
		}
	}

	params := len(info.Params)

	return &Descriptor{
		Type:         result,
		Dependencies: deps,
		Build: func(values []any) (any, error) {
			args := make([]any, params)
			for i, p := range info.Params {
				args[i] = fromDependency(p, values[i])
			}

			instance, err := reflection.Invoke(info, fn, args)
			if err != nil || len(steps) == 0 {
				return instance, err
			}

			target := reflect.ValueOf(instance)
			if instance == nil || target.IsNil() {
				return instance, nil
			}
			if err := injectMembers(target, steps, values[params:]); err != nil {
				return nil, err
			}
			return instance, nil
		},
		Constructors: 1,
	}, nil
}

func memberDependencies(info *reflection.StructInfo) []Dependency {
	points := info.Points()
	deps := make([]Dependency, 0, len(points))
	for _, p := range points {
		deps = append(deps, dependency(p))
	}
	return deps
}

func dependency(p reflection.Point) Dependency {
	dep := Dependency{
		Key:         Key{Type: p.Target},
		Indirection: Direct,
		Name:        p.Name,
		Level:       p.Level,
		Immutable:   !p.Settable,
	}

	switch p.Kind {
	case reflection.Field:
		dep.Target = Field
	case reflection.Method:
		dep.Target = Method
	default:
		dep.Target = ConstructorParam
	}

	if p.Provider {
		dep.Indirection = ViaProvider
	}

	for _, q := range p.Qualifiers {
		dep.Qualifiers = append(dep.Qualifiers, Named(q))
	}
	if len(dep.Qualifiers) > 0 {
		dep.Key.Qualifier = dep.Qualifiers[0]
	}

	return dep
}

// fromDependency converts a resolved dependency into the declared type of p.
func fromDependency(p reflection.Point, value any) any {
	if p.Provider {
		if acc, ok := value.(Accessor); ok {
			return wrapAccessor(p.Type, acc)
		}
	}
	return value
}

// injectMembers runs steps against target, a pointer to the struct, consuming
// values in order. Fields that cannot be assigned are skipped.
func injectMembers(target reflect.Value, steps []reflection.Step, values []any) error {
	i := 0
	for _, step := range steps {
		if step.Field != nil {
			p := *step.Field
			value := values[i]
			i++

			if !p.Settable {
				continue
			}
			if err := reflection.SetField(target, p, fromDependency(p, value)); err != nil {
				return err
			}
			continue
		}

		m := *step.Method
		args := make([]any, len(m.Params))
		for j, p := range m.Params {
			args[j] = fromDependency(p, values[i])
			i++
		}
		if err := reflection.CallMethod(target, m, args); err != nil {
			return err
		}
	}
	return nil
}
