package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycle matches every CircularDependencyError with errors.Is.
	ErrCycle = errors.New("circular dependency detected")

	// ErrMissing matches every MissingDependencyError with errors.Is.
	ErrMissing = errors.New("missing dependency")
)

// CircularDependencyError represents a cycle closed through Direct edges.
// Path runs from the resolution root to the repeated key, so its first and
// last repeated elements are the same key.
type CircularDependencyError struct {
	Node NodeKey
	Path []NodeKey
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")

	if len(e.Path) == 0 {
		b.WriteString(fmt.Sprintf("    %s\n", e.Node.String()))
		b.WriteString("      ↓\n")
		b.WriteString(fmt.Sprintf("    %s (cycle)\n", e.Node.String()))
	} else {
		for i, node := range e.Path {
			if i == len(e.Path)-1 {
				b.WriteString(fmt.Sprintf("    %s (cycle)\n", node.String()))
				break
			}
			b.WriteString(fmt.Sprintf("    %s\n", node.String()))
			b.WriteString("      ↓\n")
		}
	}

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Depend on a Provider to defer one side of the cycle\n")
	b.WriteString("  • Use an interface to break the dependency\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}

// Is reports whether target is ErrCycle.
func (e CircularDependencyError) Is(target error) bool {
	return target == ErrCycle
}

// PathString renders the cycle on one line, e.g. "A -> B -> A".
func (e CircularDependencyError) PathString() string {
	if len(e.Path) == 0 {
		return e.Node.String() + " -> " + e.Node.String()
	}

	parts := make([]string, len(e.Path))
	for i, node := range e.Path {
		parts[i] = node.String()
	}
	return strings.Join(parts, " -> ")
}

// MissingDependencyError reports a key that no provider produces.
// Dependent is the zero key when the missing key was the root itself.
type MissingDependencyError struct {
	Node        NodeKey
	Dependent   NodeKey
	Indirection Indirection
}

func (e MissingDependencyError) Error() string {
	if e.Dependent.IsZero() {
		return fmt.Sprintf("no binding for %s", e.Node)
	}
	return fmt.Sprintf("no binding for %s (required by %s via %s)", e.Node, e.Dependent, e.Indirection)
}

// Is reports whether target is ErrMissing.
func (e MissingDependencyError) Is(target error) bool {
	return target == ErrMissing
}
