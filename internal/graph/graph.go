package graph

import (
	"fmt"
	"reflect"
	"sync"
)

// Indirection describes how a dependent consumes one of its dependencies.
type Indirection int

const (
	// Direct dependencies must be fully constructed before the dependent.
	Direct Indirection = iota

	// ViaProvider dependencies are handed over as a deferred accessor, so the
	// dependent can be constructed before the dependency exists.
	ViaProvider
)

// String returns the string representation of the Indirection.
func (i Indirection) String() string {
	switch i {
	case Direct:
		return "Direct"
	case ViaProvider:
		return "ViaProvider"
	default:
		return fmt.Sprintf("Unknown(%d)", int(i))
	}
}

// NodeKey uniquely identifies a node in the graph
type NodeKey struct {
	Type      reflect.Type
	Qualifier any
}

// String returns a string representation of the node key
func (k NodeKey) String() string {
	if k.Qualifier != nil {
		return fmt.Sprintf("%v[%v]", k.Type, k.Qualifier)
	}
	return fmt.Sprintf("%v", k.Type)
}

// IsZero reports whether the key has no type.
func (k NodeKey) IsZero() bool {
	return k.Type == nil
}

// WithQualifier returns a copy of the key carrying the given qualifier.
func (k NodeKey) WithQualifier(qualifier any) NodeKey {
	return NodeKey{Type: k.Type, Qualifier: qualifier}
}

// Edge is a dependency of one node on another.
type Edge struct {
	To          NodeKey
	Indirection Indirection
}

// Provider defines the interface for bindings that can be added to the graph.
type Provider interface {
	// GetKey returns the key this provider produces
	GetKey() NodeKey

	// GetEdges returns the statically known dependencies in declared order
	GetEdges() []Edge

	// Label returns a short description used by the visualizer
	Label() string
}

// LookupFunc supplies providers for keys that were never added explicitly.
// It must return the same provider every time it is asked for the same key.
type LookupFunc func(NodeKey) (Provider, bool)

// DependencyGraph holds the declared dependency relationships between bindings.
// It plans construction orders, detects cycles closed through Direct edges
// and reports dependencies that nothing provides.
type DependencyGraph struct {
	mu     sync.RWMutex
	nodes  map[NodeKey]*Node
	order  []NodeKey // registration order
	lookup LookupFunc
}

// Node represents a binding in the dependency graph
type Node struct {
	Key      NodeKey
	Provider Provider
	Edges    []Edge

	// Implicit is set for nodes supplied by the lookup function.
	Implicit bool
}

// NewDependencyGraph creates a new dependency graph. lookup may be nil.
func NewDependencyGraph(lookup LookupFunc) *DependencyGraph {
	return &DependencyGraph{
		nodes:  make(map[NodeKey]*Node),
		lookup: lookup,
	}
}

// AddProvider adds a provider to the graph. Cycles are legal to declare and
// are only reported by Plan and Validate.
func (g *DependencyGraph) AddProvider(provider Provider) error {
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}

	key := provider.GetKey()

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.nodes[key]; ok && !existing.Implicit {
		return fmt.Errorf("node %s already exists", key)
	}

	g.nodes[key] = newNode(provider, false)
	g.order = append(g.order, key)
	return nil
}

func newNode(provider Provider, implicit bool) *Node {
	edges := provider.GetEdges()
	copied := make([]Edge, len(edges))
	copy(copied, edges)

	return &Node{
		Key:      provider.GetKey(),
		Provider: provider,
		Edges:    copied,
		Implicit: implicit,
	}
}

// node returns the node for key, consulting the lookup function for keys
// that were never added.
func (g *DependencyGraph) node(key NodeKey) (*Node, bool) {
	g.mu.RLock()
	n, ok := g.nodes[key]
	g.mu.RUnlock()
	if ok {
		return n, true
	}

	if g.lookup == nil {
		return nil, false
	}

	// The lookup runs without the graph lock, it may call back into AddProvider.
	provider, ok := g.lookup(key)
	if !ok || provider == nil {
		return nil, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if n, ok := g.nodes[key]; ok {
		return n, true
	}

	n = newNode(provider, true)
	g.nodes[key] = n
	return n, true
}

// Has reports whether a provider exists for key.
func (g *DependencyGraph) Has(key NodeKey) bool {
	_, ok := g.node(key)
	return ok
}

// GetNode returns the node for a given key
func (g *DependencyGraph) GetNode(key NodeKey) *Node {
	n, _ := g.node(key)
	return n
}

const (
	unvisited = iota
	visiting
	visited
	failed
)

// walker performs the depth-first walk shared by Plan and Validate.
type walker struct {
	g     *DependencyGraph
	state map[NodeKey]int
	order []NodeKey
}

func newWalker(g *DependencyGraph) *walker {
	return &walker{g: g, state: make(map[NodeKey]int)}
}

// visit walks Direct edges depth-first in declared order. ViaProvider targets
// are only checked for existence: the accessor defers their construction.
func (w *walker) visit(key NodeKey, path []NodeKey) error {
	switch w.state[key] {
	case visited, failed:
		return nil
	case visiting:
		cycle := make([]NodeKey, len(path), len(path)+1)
		copy(cycle, path)
		return CircularDependencyError{Node: key, Path: append(cycle, key)}
	}

	n, ok := w.g.node(key)
	if !ok {
		missing := MissingDependencyError{Node: key, Indirection: Direct}
		if len(path) > 0 {
			missing.Dependent = path[len(path)-1]
		}
		return missing
	}

	w.state[key] = visiting
	path = append(path, key)

	for _, edge := range n.Edges {
		if edge.Indirection == ViaProvider {
			if !w.g.Has(edge.To) {
				w.state[key] = failed
				return MissingDependencyError{Node: edge.To, Dependent: key, Indirection: ViaProvider}
			}
			continue
		}

		if err := w.visit(edge.To, path); err != nil {
			w.state[key] = failed
			return err
		}
	}

	w.state[key] = visited
	w.order = append(w.order, key)
	return nil
}

// Plan returns the construction order of everything root needs through
// Direct edges, dependencies first and root last. It fails with a
// CircularDependencyError whose path runs from root to the repeated key, or
// with a MissingDependencyError.
func (g *DependencyGraph) Plan(root NodeKey) ([]NodeKey, error) {
	w := newWalker(g)
	if err := w.visit(root, nil); err != nil {
		return nil, err
	}
	return w.order, nil
}

// Validate walks every explicitly added node in registration order and
// returns every problem found. Each problem is reported once.
func (g *DependencyGraph) Validate() []error {
	g.mu.RLock()
	roots := make([]NodeKey, len(g.order))
	copy(roots, g.order)
	g.mu.RUnlock()

	w := newWalker(g)

	var errs []error
	for _, root := range roots {
		if err := w.visit(root, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// IsAcyclic returns true if no cycle is closed through Direct edges and every
// dependency is provided.
func (g *DependencyGraph) IsAcyclic() bool {
	return len(g.Validate()) == 0
}

// TopologicalSort returns every known node in dependency order (dependencies
// first), ignoring ViaProvider edges. Ties keep registration order.
func (g *DependencyGraph) TopologicalSort() ([]NodeKey, error) {
	g.mu.RLock()
	roots := make([]NodeKey, len(g.order))
	copy(roots, g.order)
	g.mu.RUnlock()

	w := newWalker(g)
	for _, root := range roots {
		if err := w.visit(root, nil); err != nil {
			return nil, err
		}
	}
	return w.order, nil
}

// Dependencies returns the declared edges of a node
func (g *DependencyGraph) Dependencies(key NodeKey) []Edge {
	n, ok := g.node(key)
	if !ok {
		return nil
	}

	result := make([]Edge, len(n.Edges))
	copy(result, n.Edges)
	return result
}

// Dependents returns the known nodes that declare an edge to key
func (g *DependencyGraph) Dependents(key NodeKey) []NodeKey {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var result []NodeKey
	for _, from := range g.orderedKeysLocked() {
		for _, edge := range g.nodes[from].Edges {
			if edge.To == key {
				result = append(result, from)
				break
			}
		}
	}
	return result
}

// Nodes returns every known node, explicit nodes in registration order
// followed by implicit ones.
func (g *DependencyGraph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := g.orderedKeysLocked()
	result := make([]*Node, 0, len(keys))
	for _, key := range keys {
		result = append(result, g.nodes[key])
	}
	return result
}

// orderedKeysLocked returns explicit keys in registration order followed by
// implicit keys sorted by name. Callers hold g.mu.
func (g *DependencyGraph) orderedKeysLocked() []NodeKey {
	keys := make([]NodeKey, 0, len(g.nodes))
	keys = append(keys, g.order...)

	var implicit []NodeKey
	for key, n := range g.nodes {
		if n.Implicit {
			implicit = append(implicit, key)
		}
	}
	sortKeys(implicit)

	return append(keys, implicit...)
}

// Size returns the number of nodes in the graph
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes)
}
