package inject

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/inject/internal/graph"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// Typed errors below match these with errors.Is, so callers can test for a
// category without a type assertion.

var (
	// Registration errors.
	ErrDuplicateBinding           = errors.New("duplicate binding")
	ErrContainerFrozen            = errors.New("injector is frozen")
	ErrAmbiguousBinding           = errors.New("ambiguous binding")
	ErrInvalidQualifier           = errors.New("invalid qualifier")
	ErrUnsupportedInjectionTarget = errors.New("unsupported injection target")
	ErrSpecViolation              = errors.New("injection order violation")
	ErrScopeConflict              = errors.New("scope conflict")

	// Resolution errors.
	ErrUnsatisfiedDependency = errors.New("unsatisfied dependency")
	ErrCircularDependency    = graph.ErrCycle
	ErrConstruction          = errors.New("construction failed")
	ErrTypeMismatch          = errors.New("type mismatch")

	// Argument errors.
	ErrNilKeyType     = errors.New("key type cannot be nil")
	ErrNilBuild       = errors.New("build function cannot be nil")
	ErrNilFactory     = errors.New("provider function cannot be nil")
	ErrNilConstructor = errors.New("constructor cannot be nil")
	ErrNilInstance    = errors.New("instance cannot be nil")
	ErrInvalidScope   = errors.New("invalid scope")

	// ErrUnboundProvider is returned by the zero Provider.
	ErrUnboundProvider = errors.New("provider is not bound to an injector")
)

var (
	_ error = DuplicateBindingError{}
	_ error = ContainerFrozenError{}
	_ error = UnsatisfiedDependencyError{}
	_ error = CircularDependencyError{}
	_ error = AmbiguousBindingError{}
	_ error = ConstructionError{}
	_ error = ScopeConflictError{}
	_ error = InvalidQualifierError{}
	_ error = UnsupportedInjectionTargetError{}
	_ error = SpecViolationError{}
	_ error = ScopeError{}
	_ error = PanicError{}
	_ error = ModuleError{}
	_ error = TypeMismatchError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// DuplicateBindingError indicates a second binding for a key that is already
// bound. The first binding is kept.
type DuplicateBindingError struct {
	Key Key

	// Existing is the source of the binding that won, if known
	Existing string
}

func (e DuplicateBindingError) Error() string {
	if e.Existing != "" {
		return fmt.Sprintf("duplicate binding for %s (already bound by %s)", e.Key, e.Existing)
	}
	return fmt.Sprintf("duplicate binding for %s", e.Key)
}

func (e DuplicateBindingError) Is(target error) bool {
	return target == ErrDuplicateBinding
}

// ContainerFrozenError indicates a registration, or a second Freeze, after the
// binding table was frozen. Key is zero for Freeze.
type ContainerFrozenError struct {
	Key Key
}

func (e ContainerFrozenError) Error() string {
	if e.Key.IsZero() {
		return "injector is already frozen"
	}
	return fmt.Sprintf("cannot bind %s: injector is frozen", e.Key)
}

func (e ContainerFrozenError) Is(target error) bool {
	return target == ErrContainerFrozen
}

// UnsatisfiedDependencyError indicates a key with no binding that is not
// self-constructible. Dependent is zero when the key was requested directly.
type UnsatisfiedDependencyError struct {
	Key       Key
	Dependent Key

	// Cause is set when an implicit binding could not be synthesized
	Cause error
}

func (e UnsatisfiedDependencyError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("no binding for %s", e.Key))
	if !e.Dependent.IsZero() {
		b.WriteString(fmt.Sprintf(" (required by %s)", e.Dependent))
	}
	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}
	return b.String()
}

func (e UnsatisfiedDependencyError) Unwrap() error {
	return e.Cause
}

func (e UnsatisfiedDependencyError) Is(target error) bool {
	return target == ErrUnsatisfiedDependency
}

// CircularDependencyError indicates a cycle closed through Direct edges.
// Path runs from the resolution root to the repeated key.
type CircularDependencyError = graph.CircularDependencyError

// AmbiguousBindingError indicates a binding that cannot pick a single way to
// construct its value.
type AmbiguousBindingError struct {
	Key    Key
	Reason string
}

func (e AmbiguousBindingError) Error() string {
	return fmt.Sprintf("ambiguous binding for %s: %s", e.Key, e.Reason)
}

func (e AmbiguousBindingError) Is(target error) bool {
	return target == ErrAmbiguousBinding
}

// ConstructionError wraps a failure raised by a binding's build function.
type ConstructionError struct {
	Key   Key
	Cause error
}

func (e ConstructionError) Error() string {
	return fmt.Sprintf("failed to construct %s: %v", e.Key, e.Cause)
}

func (e ConstructionError) Unwrap() error {
	return e.Cause
}

func (e ConstructionError) Is(target error) bool {
	return target == ErrConstruction
}

// ScopeConflictError reports a Singleton that transitively captures an
// Unscoped binding marked as stateful. It is advisory unless the injector was
// created with WithStrictScopes.
type ScopeConflictError struct {
	Key        Key
	Dependency Key

	// Path runs from Key to Dependency through Direct edges
	Path []Key
}

func (e ScopeConflictError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("scope conflict: %s (%s) captures %s (%s)",
		e.Key, Singleton, e.Dependency, Unscoped))

	if len(e.Path) > 2 {
		parts := make([]string, len(e.Path))
		for i, key := range e.Path {
			parts[i] = key.String()
		}
		b.WriteString(fmt.Sprintf(" via %s", strings.Join(parts, " -> ")))
	}

	b.WriteString("\n\nThe singleton keeps the first instance it receives, so per-resolution state is shared.\n")
	b.WriteString("\nTo resolve this:\n")
	b.WriteString(fmt.Sprintf("  • Depend on a Provider for %s\n", e.Dependency))
	b.WriteString(fmt.Sprintf("  • Make %s Unscoped\n", e.Key))

	return b.String()
}

func (e ScopeConflictError) Is(target error) bool {
	return target == ErrScopeConflict
}

// InvalidQualifierError indicates an injection point with an unusable
// qualifier: more than one in compliance mode, or one that is not comparable.
type InvalidQualifierError struct {
	Key        Key
	Point      string
	Qualifiers []any
	Reason     string
}

func (e InvalidQualifierError) Error() string {
	if e.Point != "" {
		return fmt.Sprintf("invalid qualifier on %s of %s: %s %v", e.Point, e.Key, e.Reason, e.Qualifiers)
	}
	return fmt.Sprintf("invalid qualifier for %s: %s %v", e.Key, e.Reason, e.Qualifiers)
}

func (e InvalidQualifierError) Is(target error) bool {
	return target == ErrInvalidQualifier
}

// UnsupportedInjectionTargetError indicates a field that cannot be assigned.
type UnsupportedInjectionTargetError struct {
	Key   Key
	Point string
}

func (e UnsupportedInjectionTargetError) Error() string {
	return fmt.Sprintf("cannot inject into %s of %s: field is not assignable", e.Point, e.Key)
}

func (e UnsupportedInjectionTargetError) Is(target error) bool {
	return target == ErrUnsupportedInjectionTarget
}

// SpecViolationError indicates injection points declared out of the standard
// order: constructor parameters, then from the deepest embedded struct
// outward, fields before methods.
type SpecViolationError struct {
	Key    Key
	Point  string
	Reason string
}

func (e SpecViolationError) Error() string {
	return fmt.Sprintf("injection order violation in %s at %s: %s", e.Key, e.Point, e.Reason)
}

func (e SpecViolationError) Is(target error) bool {
	return target == ErrSpecViolation
}

// ScopeError indicates an invalid scope value.
type ScopeError struct {
	Value any
}

func (e ScopeError) Error() string {
	return fmt.Sprintf("invalid scope: %v", e.Value)
}

func (e ScopeError) Is(target error) bool {
	return target == ErrInvalidScope
}

// PanicError captures a panic raised by a build function. It is always the
// cause of a ConstructionError.
type PanicError struct {
	Value any
	Stack []byte
}

func (e PanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("build function panicked: %v\n", e.Value))

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// ModuleError wraps errors from module registration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// TypeMismatchError indicates a value that is not assignable to the type it
// was bound or requested as.
type TypeMismatchError struct {
	Key      Key
	Expected reflect.Type
	Actual   reflect.Type
	Context  string // "instance", "alias target", "build result", "type assertion"
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s for %s: expected %s, got %s", e.Context, e.Key, formatType(e.Expected), formatType(e.Actual))
}

func (e TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// IsUnsatisfied reports whether err is or wraps an UnsatisfiedDependencyError.
func IsUnsatisfied(err error) bool {
	return errors.Is(err, ErrUnsatisfiedDependency)
}

// IsCircular reports whether err is or wraps a CircularDependencyError.
func IsCircular(err error) bool {
	return errors.Is(err, ErrCircularDependency)
}

// IsDuplicate reports whether err is or wraps a DuplicateBindingError.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateBinding)
}

// IsFrozen reports whether err is or wraps a ContainerFrozenError.
func IsFrozen(err error) bool {
	return errors.Is(err, ErrContainerFrozen)
}

// isResolutionError reports whether err already describes a resolution
// failure and must be propagated unchanged.
func isResolutionError(err error) bool {
	return errors.Is(err, ErrUnsatisfiedDependency) ||
		errors.Is(err, ErrCircularDependency) ||
		errors.Is(err, ErrConstruction)
}

// fromGraph converts errors reported by the dependency graph.
func fromGraph(err error) error {
	var missing graph.MissingDependencyError
	if errors.As(err, &missing) {
		return UnsatisfiedDependencyError{Key: missing.Node, Dependent: missing.Dependent}
	}
	return err
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
