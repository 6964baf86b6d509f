package reflection

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// MethodPrefix marks exported pointer-receiver methods used for setter injection.
const MethodPrefix = "Inject"

// Kind says where an injection point lives.
type Kind int

const (
	// Param is a constructor function parameter.
	Param Kind = iota

	// Field is a struct field tagged with `inject`.
	Field

	// Method is a parameter of an Inject* method.
	Method
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case Param:
		return "param"
	case Field:
		return "field"
	case Method:
		return "method"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Options configures how an Analyzer recognizes special types.
type Options struct {
	// ProviderTarget reports whether t is a deferred accessor type and, if so,
	// the type it provides.
	ProviderTarget func(t reflect.Type) (reflect.Type, bool)

	// Component is a marker type; structs embedding it are self-constructible.
	Component reflect.Type
}

// Point describes a single injection point.
type Point struct {
	Kind Kind

	// Name is the field or method name, or "argN" for parameters
	Name string

	// Type is the declared type of the parameter or field
	Type reflect.Type

	// Target is the type of the dependency: Type itself, or the provided
	// type when Provider is set
	Target   reflect.Type
	Provider bool

	// Qualifiers are the raw values of the `qualifier` tag
	Qualifiers []string

	// Level is the embedding depth of the declaring struct (0 = outermost)
	Level int

	// Settable is false for fields that reflection cannot assign
	Settable bool

	// FieldIndex is the index path for Field points
	FieldIndex []int

	// Arg is the parameter position for Param and Method points
	Arg int
}

// ConstructorInfo contains analyzed information about a constructor function.
type ConstructorInfo struct {
	Type           reflect.Type
	Params         []Point
	Results        []reflect.Type // non-error results
	HasErrorReturn bool
}

// MethodInfo describes an Inject* method.
type MethodInfo struct {
	Name   string
	Level  int
	Params []Point
}

// StructInfo contains the member injection points of a struct type.
type StructInfo struct {
	// Type is the struct type itself, never a pointer
	Type      reflect.Type
	Fields    []Point
	Methods   []MethodInfo
	Component bool
}

// HasMembers reports whether the struct declares any field or method injection.
func (s *StructInfo) HasMembers() bool {
	return len(s.Fields) > 0 || len(s.Methods) > 0
}

// Step is one member injection action: assigning a field or calling a method.
// Exactly one of Field and Method is set.
type Step struct {
	Field  *Point
	Method *MethodInfo
}

// Steps returns the member injection actions in injection order: embedded
// structs first, and within one level fields before methods.
func (s *StructInfo) Steps() []Step {
	maxLevel := 0
	for _, f := range s.Fields {
		maxLevel = max(maxLevel, f.Level)
	}
	for _, m := range s.Methods {
		maxLevel = max(maxLevel, m.Level)
	}

	var steps []Step
	for level := maxLevel; level >= 0; level-- {
		for i := range s.Fields {
			if s.Fields[i].Level == level {
				steps = append(steps, Step{Field: &s.Fields[i]})
			}
		}
		for i := range s.Methods {
			if s.Methods[i].Level == level {
				steps = append(steps, Step{Method: &s.Methods[i]})
			}
		}
	}
	return steps
}

// Points returns every member injection point in the order Steps consumes them.
func (s *StructInfo) Points() []Point {
	var points []Point
	for _, step := range s.Steps() {
		if step.Field != nil {
			points = append(points, *step.Field)
			continue
		}
		points = append(points, step.Method.Params...)
	}
	return points
}

// Analyzer performs reflection-based analysis of constructors and struct types.
// It caches analysis results per type.
type Analyzer struct {
	opts    Options
	mu      sync.RWMutex
	funcs   map[reflect.Type]*ConstructorInfo
	structs map[reflect.Type]*StructInfo
}

// New creates a new Analyzer.
func New(opts Options) *Analyzer {
	return &Analyzer{
		opts:    opts,
		funcs:   make(map[reflect.Type]*ConstructorInfo),
		structs: make(map[reflect.Type]*StructInfo),
	}
}

// AnalyzeFunc analyzes a constructor function type.
func (a *Analyzer) AnalyzeFunc(fnType reflect.Type) (*ConstructorInfo, error) {
	if fnType == nil || fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %v", fnType)
	}

	a.mu.RLock()
	cached, ok := a.funcs[fnType]
	a.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if fnType.IsVariadic() {
		return nil, fmt.Errorf("constructor %v cannot be variadic", fnType)
	}

	info := &ConstructorInfo{Type: fnType}

	for i := 0; i < fnType.NumIn(); i++ {
		info.Params = append(info.Params, a.point(Param, fmt.Sprintf("arg%d", i), fnType.In(i), 0, i))
	}

	for i := 0; i < fnType.NumOut(); i++ {
		out := fnType.Out(i)
		if i == fnType.NumOut()-1 && out == errType {
			info.HasErrorReturn = true
			continue
		}
		info.Results = append(info.Results, out)
	}

	if len(info.Results) == 0 {
		return nil, fmt.Errorf("constructor %v must return at least one value", fnType)
	}

	a.mu.Lock()
	a.funcs[fnType] = info
	a.mu.Unlock()

	return info, nil
}

// AnalyzeStruct analyzes the member injection points of a struct type or a
// pointer to one.
func (a *Analyzer) AnalyzeStruct(t reflect.Type) (*StructInfo, error) {
	if t == nil {
		return nil, fmt.Errorf("type cannot be nil")
	}

	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%v is not a struct", t)
	}

	a.mu.RLock()
	cached, ok := a.structs[base]
	a.mu.RUnlock()
	if ok {
		return cached, nil
	}

	info := &StructInfo{Type: base}
	levels := make(map[reflect.Type]int)
	a.collectFields(info, base, nil, 0, levels)

	if err := a.collectMethods(info, base, levels); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.structs[base] = info
	a.mu.Unlock()

	return info, nil
}

// collectFields walks st depth-first. Embedded structs are recorded in levels
// so methods can be attributed to the struct that declares them.
func (a *Analyzer) collectFields(info *StructInfo, st reflect.Type, index []int, level int, levels map[reflect.Type]int) {
	levels[st] = max(levels[st], level)

	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)

		idx := make([]int, len(index), len(index)+1)
		copy(idx, index)
		idx = append(idx, i)

		if f.Anonymous {
			if a.opts.Component != nil && f.Type == a.opts.Component {
				info.Component = true
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				a.collectFields(info, f.Type, idx, level+1, levels)
				continue
			}
		}

		if _, ok := f.Tag.Lookup("inject"); !ok {
			continue
		}

		p := a.point(Field, f.Name, f.Type, level, 0)
		p.FieldIndex = idx
		p.Qualifiers = parseQualifiers(f.Tag)
		// Exported fields promoted through unexported embedded structs
		// remain assignable.
		p.Settable = f.IsExported()
		info.Fields = append(info.Fields, p)
	}
}

func (a *Analyzer) collectMethods(info *StructInfo, base reflect.Type, levels map[reflect.Type]int) error {
	ptr := reflect.PointerTo(base)

	for i := 0; i < ptr.NumMethod(); i++ {
		m := ptr.Method(i)
		if !strings.HasPrefix(m.Name, MethodPrefix) {
			continue
		}

		if m.Type.IsVariadic() {
			return fmt.Errorf("inject method %v.%s cannot be variadic", base, m.Name)
		}
		switch m.Type.NumOut() {
		case 0:
		case 1:
			if m.Type.Out(0) != errType {
				return fmt.Errorf("inject method %v.%s may only return an error", base, m.Name)
			}
		default:
			return fmt.Errorf("inject method %v.%s may only return an error", base, m.Name)
		}

		// Promoted methods belong to the deepest embedded struct declaring them.
		level := 0
		for embedded, l := range levels {
			if _, ok := reflect.PointerTo(embedded).MethodByName(m.Name); ok && l > level {
				level = l
			}
		}

		method := MethodInfo{Name: m.Name, Level: level}
		// In(0) is the receiver.
		for j := 1; j < m.Type.NumIn(); j++ {
			method.Params = append(method.Params, a.point(Method, m.Name, m.Type.In(j), level, j-1))
		}
		info.Methods = append(info.Methods, method)
	}

	return nil
}

func (a *Analyzer) point(kind Kind, name string, t reflect.Type, level, arg int) Point {
	p := Point{
		Kind:     kind,
		Name:     name,
		Type:     t,
		Target:   t,
		Level:    level,
		Settable: true,
		Arg:      arg,
	}

	if a.opts.ProviderTarget != nil {
		if target, ok := a.opts.ProviderTarget(t); ok {
			p.Target = target
			p.Provider = true
		}
	}

	return p
}

// parseQualifiers reads the comma separated `qualifier` tag.
func parseQualifiers(tag reflect.StructTag) []string {
	raw, ok := tag.Lookup("qualifier")
	if !ok {
		return nil
	}

	var qualifiers []string
	for _, q := range strings.Split(raw, ",") {
		if q = strings.TrimSpace(q); q != "" {
			qualifiers = append(qualifiers, q)
		}
	}
	return qualifiers
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.funcs) + len(a.structs)
}
