package inject

// ModuleOption represents a registration action within a module.
type ModuleOption func(*Injector) error

// Module groups related registrations under a name. The first failing
// registration stops the module and is returned wrapped in a ModuleError.
// Modules nest.
//
// Example:
//
//	var StorageModule = inject.Module("storage",
//	    inject.AddConstructor(NewDatabase, inject.WithScope(inject.Singleton)),
//	    inject.AddConstructor(NewUserRepository),
//	)
//
//	var AppModule = inject.Module("app",
//	    StorageModule,
//	    inject.AddStruct[*UserService](),
//	)
func Module(name string, opts ...ModuleOption) ModuleOption {
	return func(in *Injector) error {
		for _, opt := range opts {
			if opt == nil {
				continue
			}

			if err := opt(in); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// Install runs modules against the injector in order.
func (in *Injector) Install(modules ...ModuleOption) error {
	for _, module := range modules {
		if module == nil {
			continue
		}

		if err := module(in); err != nil {
			return err
		}
	}
	return nil
}

// AddConstructor creates a ModuleOption that calls Provide.
func AddConstructor(ctor any, opts ...BindOption) ModuleOption {
	return func(in *Injector) error {
		return in.Provide(ctor, opts...)
	}
}

// AddStruct creates a ModuleOption that calls ProvideStruct.
func AddStruct[T any](opts ...BindOption) ModuleOption {
	return func(in *Injector) error {
		return ProvideStruct[T](in, opts...)
	}
}

// AddInstance creates a ModuleOption that calls BindInstance.
func AddInstance(key Key, v any, opts ...BindOption) ModuleOption {
	return func(in *Injector) error {
		return in.BindInstance(key, v, opts...)
	}
}

// AddAlias creates a ModuleOption that calls BindAlias.
func AddAlias(from, to Key, opts ...BindOption) ModuleOption {
	return func(in *Injector) error {
		return in.BindAlias(from, to, opts...)
	}
}

// AddFactory creates a ModuleOption that calls BindFactory.
func AddFactory(key Key, fn ProviderFunc, opts ...BindOption) ModuleOption {
	return func(in *Injector) error {
		return in.BindFactory(key, fn, opts...)
	}
}

// AddBinding creates a ModuleOption that calls RegisterBinding.
func AddBinding(b Binding) ModuleOption {
	return func(in *Injector) error {
		return in.RegisterBinding(b)
	}
}
