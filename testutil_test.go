package inject

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// ============================================================================
// Shared Test Types
// ============================================================================

// Logger is a stateless singleton-friendly dependency.
type Logger struct {
	Prefix string
}

func NewLogger() *Logger {
	return &Logger{Prefix: "app"}
}

// Service depends directly on a Logger.
type Service struct {
	Logger *Logger
}

func NewService(logger *Logger) *Service {
	return &Service{Logger: logger}
}

// Greeter is an interface used for alias bindings.
type Greeter interface {
	Greet() string
}

type englishGreeter struct {
	Name string
}

func (g *englishGreeter) Greet() string { return "hello " + g.Name }

func newEnglishGreeter() *englishGreeter {
	return &englishGreeter{Name: "world"}
}

// Database is bound under qualifiers.
type Database struct {
	Name string
}

// Repository receives qualified databases through fields.
type Repository struct {
	Primary *Database `inject:"" qualifier:"primary"`
	Replica *Database `inject:"" qualifier:"replica"`
}

// A and B form cycles in tests. Their dependencies are declared through raw
// descriptors, so the same types serve Direct and ViaProvider variants.
type A struct {
	B  *B
	PB Accessor
}

type B struct {
	A  *A
	PA Accessor
}

var (
	keyA = KeyOf[*A]()
	keyB = KeyOf[*B]()
	keyC = KeyOf[*C]()
)

type C struct {
	A *A
}

// Clock is self-constructible.
type Clock struct {
	Component
	Logger *Logger `inject:""`
}

// Session holds per-resolution state.
type Session struct {
	ID int64
}

// Cache captures a Session, which is a scope conflict when Cache is a
// Singleton and Session is stateful.
type Cache struct {
	Session *Session
}

func NewCache(s *Session) *Cache {
	return &Cache{Session: s}
}

// ============================================================================
// Test Helpers
// ============================================================================

// dep declares a dependency on key.
func dep(key Key, indirection Indirection) Dependency {
	return Dependency{Key: key, Indirection: indirection, Target: ConstructorParam}
}

// describe builds a constructor descriptor for t. build receives the
// resolved dependencies in order.
func describe(t reflect.Type, build BuildFunc, deps ...Dependency) Strategy {
	return Constructor(Descriptor{
		Type:         t,
		Dependencies: deps,
		Build:        build,
	})
}

// counted wraps a build function and counts its invocations.
func counted(calls *atomic.Int64, build BuildFunc) BuildFunc {
	return func(deps []any) (any, error) {
		calls.Add(1)
		return build(deps)
	}
}

func buildA(deps []any) (any, error) {
	a := &A{}
	for _, d := range deps {
		switch v := d.(type) {
		case *B:
			a.B = v
		case Accessor:
			a.PB = v
		}
	}
	return a, nil
}

func buildB(deps []any) (any, error) {
	b := &B{}
	for _, d := range deps {
		switch v := d.(type) {
		case *A:
			b.A = v
		case Accessor:
			b.PA = v
		}
	}
	return b, nil
}

func buildC(deps []any) (any, error) {
	return &C{A: deps[0].(*A)}, nil
}

var errBuild = errors.New("build failed")

func failingBuild([]any) (any, error) {
	return nil, errBuild
}

// newTestInjector creates an injector logging to an observer.
func newTestInjector(t *testing.T, opts ...Option) (*Injector, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	opts = append([]Option{WithLogger(zap.New(core))}, opts...)

	in := New(opts...)
	require.NotNil(t, in)
	return in, logs
}

// mustRegister registers a binding and fails the test on error.
func mustRegister(t *testing.T, in *Injector, key Key, scope Scope, strategy Strategy, opts ...BindOption) {
	t.Helper()
	require.NoError(t, in.Register(key, scope, strategy, opts...))
}
