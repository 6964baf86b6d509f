package inject

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompliance(t *testing.T) {
	t.Run("rejects multiple qualifiers", func(t *testing.T) {
		in, _ := newTestInjector(t, WithCompliance())

		err := ProvideStruct[*twoQualifiers](in)

		var invalid InvalidQualifierError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, KeyOf[*twoQualifiers](), invalid.Key)
		assert.Equal(t, "field DB", invalid.Point)
		assert.Equal(t, []any{Named("primary"), Named("replica")}, invalid.Qualifiers)
		assert.Empty(t, in.Keys())
	})

	t.Run("rejects unassignable fields", func(t *testing.T) {
		in, _ := newTestInjector(t, WithCompliance())

		err := ProvideStruct[*withHidden](in)

		var unsupported UnsupportedInjectionTargetError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, "field hidden", unsupported.Point)
		assert.ErrorIs(t, err, ErrUnsupportedInjectionTarget)
	})

	t.Run("accepts the standard order", func(t *testing.T) {
		in, _ := newTestInjector(t, WithCompliance())

		require.NoError(t, ProvideStruct[*audited](in))
		require.NoError(t, in.Provide(newInjectedByCtor))
	})

	t.Run("rejects members before constructor parameters", func(t *testing.T) {
		in, _ := newTestInjector(t, WithCompliance())

		err := in.Register(KeyOf[*Service](), Unscoped, Constructor(Descriptor{
			Type:  reflect.TypeOf(&Service{}),
			Build: func([]any) (any, error) { return &Service{}, nil },
			Dependencies: []Dependency{
				{Key: KeyOf[*Logger](), Target: Field, Name: "Logger"},
				{Key: KeyOf[*Database](), Target: ConstructorParam, Name: "arg0"},
			},
		}))

		var violation SpecViolationError
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, "parameter arg0", violation.Point)
		assert.ErrorIs(t, err, ErrSpecViolation)
	})

	t.Run("rejects outer members before embedded ones", func(t *testing.T) {
		in, _ := newTestInjector(t, WithCompliance())

		err := in.Register(KeyOf[*Service](), Unscoped, Constructor(Descriptor{
			Type:  reflect.TypeOf(&Service{}),
			Build: func([]any) (any, error) { return &Service{}, nil },
			Dependencies: []Dependency{
				{Key: KeyOf[*Logger](), Target: Field, Name: "Outer", Level: 0},
				{Key: KeyOf[*Logger](), Target: Field, Name: "Inner", Level: 1},
			},
		}))

		var violation SpecViolationError
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, "field Inner", violation.Point)
	})

	t.Run("rejects methods before fields of the same level", func(t *testing.T) {
		in, _ := newTestInjector(t, WithCompliance())

		err := in.Register(KeyOf[*Service](), Unscoped, Constructor(Descriptor{
			Type:  reflect.TypeOf(&Service{}),
			Build: func([]any) (any, error) { return &Service{}, nil },
			Dependencies: []Dependency{
				{Key: KeyOf[*Logger](), Target: Method, Name: "InjectLogger"},
				{Key: KeyOf[*Logger](), Target: Field, Name: "Logger"},
			},
		}))

		var violation SpecViolationError
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, "field Logger", violation.Point)
	})

	t.Run("order is not checked outside compliance mode", func(t *testing.T) {
		in, _ := newTestInjector(t)

		err := in.Register(KeyOf[*Service](), Unscoped, Constructor(Descriptor{
			Type:  reflect.TypeOf(&Service{}),
			Build: func([]any) (any, error) { return &Service{}, nil },
			Dependencies: []Dependency{
				{Key: KeyOf[*Logger](), Target: Method, Name: "InjectLogger"},
				{Key: KeyOf[*Logger](), Target: Field, Name: "Logger"},
			},
		}))
		assert.NoError(t, err)
	})

	t.Run("non-comparable qualifiers are always rejected", func(t *testing.T) {
		in, _ := newTestInjector(t)

		err := in.Register(KeyOf[*Service](), Unscoped, Constructor(Descriptor{
			Type:  reflect.TypeOf(&Service{}),
			Build: func([]any) (any, error) { return &Service{}, nil },
			Dependencies: []Dependency{
				{Key: KeyOf[*Logger](map[string]int{}), Target: ConstructorParam, Name: "arg0"},
			},
		}))

		assert.ErrorIs(t, err, ErrInvalidQualifier)
	})

	t.Run("dependencies need a type", func(t *testing.T) {
		in, _ := newTestInjector(t)

		err := in.Register(KeyOf[*Service](), Unscoped, Constructor(Descriptor{
			Type:         reflect.TypeOf(&Service{}),
			Build:        func([]any) (any, error) { return &Service{}, nil },
			Dependencies: []Dependency{{Name: "arg0"}},
		}))

		assert.ErrorIs(t, err, ErrNilKeyType)
	})

	t.Run("implicit bindings are checked too", func(t *testing.T) {
		type strictComponent struct {
			Component
			DB *Database `inject:"" qualifier:"a,b"`
		}

		in, _ := newTestInjector(t, WithCompliance())

		_, err := Resolve[*strictComponent](in)

		assert.True(t, IsUnsatisfied(err))
		assert.ErrorIs(t, err, ErrInvalidQualifier)
	})
}
