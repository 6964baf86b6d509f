package inject

import (
	"fmt"
	"reflect"

	"go.uber.org/dig"
	"go.uber.org/zap"
)

// ExportToDig provides every explicitly bound key to a dig container, so code
// built on dig can consume values wired by the injector. Each dig constructor
// resolves the key from the injector, so scopes are still honored by the
// injector. Keys qualified with Named are provided under dig.Name; keys with
// any other qualifier cannot be expressed in dig and are skipped.
func (in *Injector) ExportToDig(c *dig.Container) error {
	if c == nil {
		return fmt.Errorf("dig container cannot be nil")
	}

	for _, key := range in.table.keys() {
		var opts []dig.ProvideOption

		switch q := key.Qualifier.(type) {
		case nil:
		case Named:
			opts = append(opts, dig.Name(string(q)))
		default:
			in.logger.Debug("key not exported to dig", zap.Stringer("key", key))
			continue
		}

		if err := c.Provide(in.digConstructor(key), opts...); err != nil {
			return fmt.Errorf("export %s to dig: %w", key, err)
		}
	}

	return nil
}

// digConstructor returns a func() (T, error) resolving key.
func (in *Injector) digConstructor(key Key) any {
	errType := reflect.TypeOf((*error)(nil)).Elem()
	fnType := reflect.FuncOf(nil, []reflect.Type{key.Type, errType}, false)

	fn := reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		instance, err := in.GetInstance(key)
		if err != nil {
			return []reflect.Value{reflect.Zero(key.Type), reflect.ValueOf(&err).Elem()}
		}

		// MakeFunc results must have the exact declared type.
		value := reflect.New(key.Type).Elem()
		if instance != nil {
			value.Set(reflect.ValueOf(instance))
		}
		return []reflect.Value{value, reflect.Zero(errType)}
	})

	return fn.Interface()
}
