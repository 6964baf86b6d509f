package inject_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/inject"
)

type moduleLogger struct{ Name string }

type moduleDatabase struct{ Logger *moduleLogger }

type moduleService struct {
	DB     *moduleDatabase `inject:""`
	Logger *moduleLogger   `inject:""`
}

func newModuleLogger() *moduleLogger { return &moduleLogger{Name: "module"} }

func newModuleDatabase(l *moduleLogger) *moduleDatabase { return &moduleDatabase{Logger: l} }

func TestModule(t *testing.T) {
	t.Run("registers every option", func(t *testing.T) {
		t.Parallel()

		module := inject.Module("app",
			inject.AddConstructor(newModuleLogger, inject.WithScope(inject.Singleton)),
			inject.AddConstructor(newModuleDatabase),
			inject.AddStruct[*moduleService](),
		)

		in := inject.New()
		require.NoError(t, in.Install(module))
		assert.Len(t, in.Keys(), 3)

		svc, err := inject.Resolve[*moduleService](in)
		require.NoError(t, err)
		assert.Same(t, svc.Logger, svc.DB.Logger)
	})

	t.Run("empty module", func(t *testing.T) {
		t.Parallel()

		in := inject.New()
		require.NoError(t, in.Install(inject.Module("empty")))
		assert.Empty(t, in.Keys())
	})

	t.Run("nil options are skipped", func(t *testing.T) {
		t.Parallel()

		module := inject.Module("with-nils",
			inject.AddConstructor(newModuleLogger),
			nil,
			inject.AddConstructor(newModuleDatabase),
		)

		in := inject.New()
		require.NoError(t, in.Install(module, nil))
		assert.Len(t, in.Keys(), 2)
	})

	t.Run("nested modules", func(t *testing.T) {
		t.Parallel()

		logging := inject.Module("logging",
			inject.AddConstructor(newModuleLogger, inject.WithScope(inject.Singleton)),
		)
		data := inject.Module("data",
			logging,
			inject.AddConstructor(newModuleDatabase),
		)

		in := inject.New()
		require.NoError(t, in.Install(data))
		require.NoError(t, in.Freeze())

		db, err := inject.Resolve[*moduleDatabase](in)
		require.NoError(t, err)
		assert.Equal(t, "module", db.Logger.Name)
	})

	t.Run("instances, aliases, factories and bindings", func(t *testing.T) {
		t.Parallel()

		primary := inject.KeyOf[*moduleLogger](inject.Named("primary"))
		module := inject.Module("misc",
			inject.AddInstance(primary, &moduleLogger{Name: "primary"}),
			inject.AddAlias(inject.KeyOf[*moduleLogger](), primary),
			inject.AddFactory(inject.KeyOf[*moduleDatabase](), func(r inject.Resolver) (any, error) {
				l, err := r.Get(inject.KeyOf[*moduleLogger]())
				if err != nil {
					return nil, err
				}
				return newModuleDatabase(l.(*moduleLogger)), nil
			}),
			inject.AddBinding(inject.Binding{
				Key:      inject.KeyOf[string](inject.Named("env")),
				Strategy: inject.Instance("test"),
			}),
		)

		in := inject.New()
		require.NoError(t, in.Install(module))

		db, err := inject.Resolve[*moduleDatabase](in)
		require.NoError(t, err)
		assert.Equal(t, "primary", db.Logger.Name)

		env, err := inject.ResolveNamed[string](in, "env")
		require.NoError(t, err)
		assert.Equal(t, "test", env)
	})

	t.Run("errors name the module", func(t *testing.T) {
		t.Parallel()

		module := inject.Module("outer",
			inject.Module("inner",
				inject.AddConstructor(newModuleLogger),
				inject.AddConstructor(newModuleLogger),
			),
		)

		in := inject.New()
		err := in.Install(module)

		var moduleErr inject.ModuleError
		require.ErrorAs(t, err, &moduleErr)
		assert.Equal(t, "outer", moduleErr.Module)

		var inner inject.ModuleError
		require.True(t, errors.As(moduleErr.Cause, &inner))
		assert.Equal(t, "inner", inner.Module)

		assert.True(t, inject.IsDuplicate(err))
		assert.Len(t, in.Keys(), 1)
	})

	t.Run("install stops at the first failure", func(t *testing.T) {
		t.Parallel()

		failing := inject.Module("failing", func(*inject.Injector) error {
			return errors.New("boom")
		})
		later := inject.Module("later", inject.AddConstructor(newModuleLogger))

		in := inject.New()
		err := in.Install(failing, later)

		assert.EqualError(t, err, `module "failing": boom`)
		assert.Empty(t, in.Keys())
	})
}
