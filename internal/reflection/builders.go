package reflection

import (
	"fmt"
	"reflect"
)

// ValueOf converts v to a reflect.Value assignable to t. A nil v becomes the
// zero value of t.
func ValueOf(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		default:
			return reflect.Value{}, fmt.Errorf("cannot use nil as %v", t)
		}
	}

	val := reflect.ValueOf(v)
	if !val.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("cannot use %v as %v", val.Type(), t)
	}
	return val, nil
}

// Invoke calls a constructor with the given arguments and returns its first
// result. A non-nil trailing error is returned as the error.
func Invoke(info *ConstructorInfo, fn reflect.Value, args []any) (any, error) {
	if len(args) != len(info.Params) {
		return nil, fmt.Errorf("constructor %v expects %d arguments, got %d", info.Type, len(info.Params), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		val, err := ValueOf(arg, info.Params[i].Type)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in[i] = val
	}

	out := fn.Call(in)

	if info.HasErrorReturn {
		if errVal := out[len(out)-1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
	}

	return out[0].Interface(), nil
}

// SetField assigns v to the field described by p on target, which must be a
// pointer to the analyzed struct.
func SetField(target reflect.Value, p Point, v any) error {
	if !p.Settable {
		return fmt.Errorf("field %s cannot be assigned", p.Name)
	}

	field := target.Elem().FieldByIndex(p.FieldIndex)
	val, err := ValueOf(v, p.Type)
	if err != nil {
		return fmt.Errorf("field %s: %w", p.Name, err)
	}

	field.Set(val)
	return nil
}

// CallMethod calls the Inject* method m on target with the given arguments.
func CallMethod(target reflect.Value, m MethodInfo, args []any) error {
	method := target.MethodByName(m.Name)
	if !method.IsValid() {
		return fmt.Errorf("method %s not found on %v", m.Name, target.Type())
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		val, err := ValueOf(arg, m.Params[i].Type)
		if err != nil {
			return fmt.Errorf("method %s argument %d: %w", m.Name, i, err)
		}
		in[i] = val
	}

	out := method.Call(in)
	if len(out) == 1 && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}
