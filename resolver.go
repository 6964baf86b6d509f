package inject

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// resolution is one top-level resolution. Its id identifies it to the scope
// cache as the owner of the entries it constructs.
type resolution struct {
	id  uint64
	ctx context.Context

	// goroutine runs every build of the resolution. It is recorded when the
	// first accessor or factory resolver is handed out.
	goroutine atomic.Uint64
}

// pin records the calling goroutine as the one running the resolution.
func (res *resolution) pin() {
	if res.goroutine.Load() == 0 {
		res.goroutine.Store(goroutineID())
	}
}

// current reports whether the caller runs on the resolution's goroutine.
func (res *resolution) current() bool {
	id := res.goroutine.Load()
	return id != 0 && id == goroutineID()
}

// goroutineID returns the id of the calling goroutine, read from the
// "goroutine N [" header of its stack.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}

	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

// chain is the visiting stack of a resolution, linked from the key being
// constructed back to the root. Nodes are immutable except for done, which is
// set once the key has been constructed.
type chain struct {
	key    Key
	parent *chain
	res    *resolution
	done   atomic.Bool
}

// contains reports whether key is under construction on this chain.
func (c *chain) contains(key Key) bool {
	for n := c; n != nil; n = n.parent {
		if n.key == key {
			return true
		}
	}
	return false
}

// path returns the keys from the root to this node followed by key.
func (c *chain) path(key Key) []Key {
	var reversed []Key
	for n := c; n != nil; n = n.parent {
		reversed = append(reversed, n.key)
	}

	path := make([]Key, 0, len(reversed)+1)
	for i := len(reversed) - 1; i >= 0; i-- {
		path = append(path, reversed[i])
	}
	return append(path, key)
}

// live returns the nearest node still under construction, or nil.
func (c *chain) live() *chain {
	for n := c; n != nil; n = n.parent {
		if !n.done.Load() {
			return n
		}
	}
	return nil
}

// resolver constructs instances bottom-up, consulting the binding table and
// the scope cache.
type resolver struct {
	table   *bindingTable
	cache   *scopeCache
	logger  *zap.Logger
	metrics *metrics

	// planned holds keys whose static plan succeeded.
	planned sync.Map

	nextID atomic.Uint64
}

func newResolver(table *bindingTable, logger *zap.Logger, m *metrics) *resolver {
	return &resolver{
		table:   table,
		cache:   newScopeCache(),
		logger:  logger,
		metrics: m,
	}
}

// begin starts a new resolution.
func (r *resolver) begin(ctx context.Context) *resolution {
	if ctx == nil {
		ctx = context.Background()
	}
	return &resolution{id: r.nextID.Add(1), ctx: ctx}
}

// invalidate forgets cached plans. Registration calls it because a new
// binding may replace an implicit one.
func (r *resolver) invalidate() {
	r.planned.Clear()
}

// resolve produces the instance for key. parent is the chain of the
// dependent, or nil for a top-level request.
func (r *resolver) resolve(ctx context.Context, parent *chain, key Key) (any, error) {
	var dependent Key
	if parent != nil {
		dependent = parent.key
	}

	b, err := r.table.lookup(key, dependent)
	if err != nil {
		return nil, err
	}

	if b.Scope == Singleton {
		if instance, ok := r.cache.get(key); ok {
			r.metrics.cacheHit()
			return instance, nil
		}
	}

	if parent.contains(key) {
		return nil, CircularDependencyError{Node: key, Path: parent.path(key)}
	}

	if err := r.plan(parent, key); err != nil {
		return nil, err
	}

	var res *resolution
	if parent != nil {
		res = parent.res
	} else {
		res = r.begin(ctx)
	}
	node := &chain{key: key, parent: parent, res: res}
	defer node.done.Store(true)

	if b.Scope != Singleton {
		return r.construct(node, b)
	}

	instance, created, err := r.cache.getOrCreate(key, res.id, func() (any, error) {
		return r.construct(node, b)
	})

	var reentry reentryError
	if errors.As(err, &reentry) {
		return nil, CircularDependencyError{Node: key, Path: parent.path(key)}
	}
	if err != nil {
		return nil, err
	}

	if created {
		r.logger.Debug("singleton created", zap.Stringer("key", key))
	} else {
		r.metrics.cacheHit()
	}
	return instance, nil
}

// plan checks the static construction plan of key once, so Direct cycles are
// reported before any build function runs or any cache entry is locked.
func (r *resolver) plan(parent *chain, key Key) error {
	if _, ok := r.planned.Load(key); ok {
		return nil
	}

	order, err := r.table.graph.Plan(key)
	if err != nil {
		var cycle CircularDependencyError
		if errors.As(err, &cycle) && parent != nil {
			cycle.Path = append(parent.path(cycle.Path[0]), cycle.Path[1:]...)
			return cycle
		}
		return fromGraph(err)
	}

	for _, k := range order {
		r.planned.Store(k, struct{}{})
	}
	return nil
}

// construct runs the binding's production strategy.
func (r *resolver) construct(node *chain, b *Binding) (any, error) {
	defer r.metrics.construction(b.Strategy.kind)

	switch b.Strategy.kind {
	case InstanceStrategy:
		return b.Strategy.instance, nil

	case AliasStrategy:
		instance, err := r.resolve(node.res.ctx, node, b.Strategy.target)
		if err != nil {
			return nil, err
		}
		return instance, r.checkType(b.Key, instance)

	case ProviderStrategy:
		node.res.pin()
		instance, err := r.call(b.Key, func() (any, error) {
			return b.Strategy.factory(&chainResolver{r: r, node: node})
		})
		if err != nil {
			return nil, err
		}
		return instance, r.checkType(b.Key, instance)

	default:
		d := b.Strategy.descriptor
		deps := make([]any, len(d.Dependencies))
		for i, dep := range d.Dependencies {
			if dep.Indirection == ViaProvider {
				node.res.pin()
				deps[i] = &accessor{r: r, key: dep.Key, origin: node}
				continue
			}

			instance, err := r.resolve(node.res.ctx, node, dep.Key)
			if err != nil {
				return nil, err
			}
			deps[i] = instance
		}

		instance, err := r.call(b.Key, func() (any, error) {
			return d.Build(deps)
		})
		if err != nil {
			return nil, err
		}
		return instance, r.checkType(b.Key, instance)
	}
}

// call invokes a build or provider function, converting failures and panics
// into a ConstructionError. Resolution errors raised by nested resolutions
// are propagated unchanged.
func (r *resolver) call(key Key, fn func() (any, error)) (instance any, err error) {
	defer func() {
		if p := recover(); p != nil {
			instance = nil
			err = ConstructionError{Key: key, Cause: PanicError{Value: p, Stack: debug.Stack()}}
		}
	}()

	instance, err = fn()
	if err != nil {
		if isResolutionError(err) {
			return nil, err
		}
		return nil, ConstructionError{Key: key, Cause: err}
	}
	return instance, nil
}

// checkType verifies that a built instance can be used as key.Type.
func (r *resolver) checkType(key Key, instance any) error {
	if instance == nil {
		switch key.Type.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return nil
		}
		return TypeMismatchError{Key: key, Expected: key.Type, Context: "build result"}
	}

	if actual := reflect.TypeOf(instance); !actual.AssignableTo(key.Type) {
		return TypeMismatchError{Key: key, Expected: key.Type, Actual: actual, Context: "build result"}
	}
	return nil
}

// accessor is the deferred accessor handed to ViaProvider dependencies and
// returned by GetProvider.
type accessor struct {
	r      *resolver
	key    Key
	origin *chain // nil for accessors created outside a resolution
}

// Get resolves the key. While the chain that created the accessor is still
// constructing, a call from the goroutine running that chain continues it,
// so an eager call closing a cycle fails with a CircularDependencyError.
// Calls from other goroutines, and calls after construction, start a new
// resolution.
func (a *accessor) Get() (any, error) {
	parent := a.origin.live()
	if parent != nil && !parent.res.current() {
		parent = nil
	}

	ctx := context.Background()
	if parent != nil {
		ctx = parent.res.ctx
	}
	return a.r.resolve(ctx, parent, a.key)
}

// Key returns the key the accessor resolves.
func (a *accessor) Key() Key {
	return a.key
}

func (a *accessor) String() string {
	return fmt.Sprintf("Accessor(%s)", a.key)
}

// chainResolver is the Resolver handed to provider functions.
type chainResolver struct {
	r    *resolver
	node *chain
}

func (c *chainResolver) Get(key Key) (any, error) {
	parent := c.node.live()
	if parent != nil && !parent.res.current() {
		parent = nil
	}
	return c.r.resolve(c.node.res.ctx, parent, key)
}

func (c *chainResolver) Provider(key Key) (Accessor, error) {
	if _, err := c.r.table.lookup(key, c.node.key); err != nil {
		return nil, err
	}
	return &accessor{r: c.r, key: key, origin: c.node}, nil
}
