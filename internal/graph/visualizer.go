package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Visualizer provides methods to visualize the dependency graph
type Visualizer struct {
	graph *DependencyGraph
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer(graph *DependencyGraph) *Visualizer {
	return &Visualizer{graph: graph}
}

// WriteDOT writes the graph in Graphviz DOT format. ViaProvider edges are
// drawn dashed, nodes without a provider are grayed out.
func (v *Visualizer) WriteDOT(w io.Writer) error {
	nodes := v.graph.Nodes()

	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	nodeIDs := make(map[NodeKey]string, len(nodes))
	for i, node := range nodes {
		nodeIDs[node.Key] = fmt.Sprintf("n%d", i)
	}

	missing := 0
	idFor := func(key NodeKey) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("m%d", missing)
		missing++
		nodeIDs[key] = id
		fmt.Fprintf(&b, "  %s [label=\"%s\", fillcolor=\"lightgray\", style=filled];\n", id, escapeLabel(key.String()))
		return id
	}

	for _, node := range nodes {
		fmt.Fprintf(&b, "  %s [label=\"%s\", fillcolor=\"%s\", style=filled];\n",
			nodeIDs[node.Key], v.formatNodeLabel(node), nodeColor(node))
	}

	for _, node := range nodes {
		fromID := nodeIDs[node.Key]
		for _, edge := range node.Edges {
			toID := idFor(edge.To)
			if edge.Indirection == ViaProvider {
				fmt.Fprintf(&b, "  %s -> %s [style=dashed];\n", fromID, toID)
			} else {
				fmt.Fprintf(&b, "  %s -> %s;\n", fromID, toID)
			}
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText writes a text representation of the graph
func (v *Visualizer) WriteText(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Dependency Graph:\n")
	b.WriteString("=================\n\n")

	nodes := v.graph.Nodes()
	for _, node := range nodes {
		v.writeNodeDetails(&b, node, "  ")
	}

	b.WriteString("\nStatistics:\n")
	b.WriteString("-----------\n")
	fmt.Fprintf(&b, "  Total nodes: %d\n", len(nodes))
	fmt.Fprintf(&b, "  Total edges: %d\n", countEdges(nodes))

	if errs := v.graph.Validate(); len(errs) == 0 {
		b.WriteString("  Problems: none\n")
	} else {
		fmt.Fprintf(&b, "  Problems: %d\n", len(errs))
		for _, err := range errs {
			fmt.Fprintf(&b, "    - %s\n", summarize(err))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// formatNodeLabel creates a label for a node
func (v *Visualizer) formatNodeLabel(node *Node) string {
	typeStr := fmt.Sprintf("%v", node.Key.Type)

	// Simplify type string (remove package path for readability)
	if i := strings.LastIndex(typeStr, "."); i >= 0 {
		trimmed := strings.TrimLeft(typeStr, "*[]")
		typeStr = typeStr[:len(typeStr)-len(trimmed)] + typeStr[i+1:]
	}

	label := typeStr
	if node.Key.Qualifier != nil {
		label += fmt.Sprintf("\\n[%v]", node.Key.Qualifier)
	}
	if node.Provider != nil {
		label += "\\n" + node.Provider.Label()
	}
	return escapeLabel(label)
}

func nodeColor(node *Node) string {
	switch {
	case node.Provider == nil:
		return "lightgray"
	case node.Implicit:
		return "lightyellow"
	default:
		return "lightblue"
	}
}

// writeNodeDetails writes detailed information about a node
func (v *Visualizer) writeNodeDetails(b *strings.Builder, node *Node, indent string) {
	fmt.Fprintf(b, "%s%s", indent, node.Key.String())
	if node.Provider != nil {
		fmt.Fprintf(b, " (%s)", node.Provider.Label())
	}
	if node.Implicit {
		b.WriteString(" [implicit]")
	}
	b.WriteString("\n")

	for _, edge := range node.Edges {
		fmt.Fprintf(b, "%s  -> %s (%s)\n", indent, edge.To.String(), edge.Indirection)
	}
}

func countEdges(nodes []*Node) int {
	count := 0
	for _, node := range nodes {
		count += len(node.Edges)
	}
	return count
}

func sortKeys(keys []NodeKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}

func summarize(err error) string {
	if cycle, ok := err.(CircularDependencyError); ok {
		return "cycle: " + cycle.PathString()
	}
	return err.Error()
}
