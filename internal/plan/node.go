// Package plan rebuilds query execution plan trees from their flat,
// line-oriented text form.
package plan

import (
	"encoding/json"
)

// Node is one step of an execution plan.
type Node struct {
	depth    int
	label    string
	line     int
	parent   *Node
	children []*Node
	details  []string
}

// Label returns the plan step description.
func (n *Node) Label() string { return n.label }

// Depth returns the nesting level stated by the source text (0 = root).
func (n *Node) Depth() int { return n.depth }

// Line returns the 1-based source line the node was read from.
func (n *Node) Line() int { return n.line }

// Parent returns the owning node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child nodes in source order.
func (n *Node) Children() []*Node { return n.children }

// Details returns attribute lines attached to the node, such as
// "Filter: (id > 10)" in PostgreSQL plans.
func (n *Node) Details() []string { return n.details }

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.parent == nil }

// Walk visits the forest in pre-order. Returning false from fn skips the
// node's subtree.
func Walk(roots []*Node, fn func(*Node) bool) {
	stack := make([]*Node, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			continue
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
}

// Flatten re-emits the forest as depth-tagged lines in pre-order.
// Details are not included.
func Flatten(roots []*Node) []Line {
	var lines []Line
	Walk(roots, func(n *Node) bool {
		lines = append(lines, Line{Number: n.line, Depth: n.depth, Label: n.label})
		return true
	})
	return lines
}

// Stats summarizes a forest.
type Stats struct {
	Roots    int `json:"roots" yaml:"roots"`
	Nodes    int `json:"nodes" yaml:"nodes"`
	MaxDepth int `json:"max_depth" yaml:"max_depth"`
}

// Summarize counts nodes and the deepest level of a forest.
func Summarize(roots []*Node) Stats {
	st := Stats{Roots: len(roots)}
	Walk(roots, func(n *Node) bool {
		st.Nodes++
		if n.depth > st.MaxDepth {
			st.MaxDepth = n.depth
		}
		return true
	})
	return st
}

// Step is a flattened node with integer links, used for tabular output.
type Step struct {
	ID     int    `json:"id" yaml:"id"`
	Parent int    `json:"parent" yaml:"parent"`
	Depth  int    `json:"depth" yaml:"depth"`
	Line   int    `json:"line" yaml:"line"`
	Label  string `json:"label" yaml:"label"`
}

// Steps numbers the forest in pre-order starting at 1. Roots have Parent 0.
func Steps(roots []*Node) []Step {
	ids := make(map[*Node]int)
	var steps []Step
	Walk(roots, func(n *Node) bool {
		id := len(steps) + 1
		ids[n] = id
		steps = append(steps, Step{
			ID:     id,
			Parent: ids[n.parent],
			Depth:  n.depth,
			Line:   n.line,
			Label:  n.label,
		})
		return true
	})
	return steps
}

// nodeView is the encoded form of a Node. The parent link is implied by
// nesting.
type nodeView struct {
	Depth    int      `json:"depth" yaml:"depth"`
	Label    string   `json:"label" yaml:"label"`
	Line     int      `json:"line,omitempty" yaml:"line,omitempty"`
	Details  []string `json:"details,omitempty" yaml:"details,omitempty"`
	Children []*Node  `json:"children,omitempty" yaml:"children,omitempty"`
}

func (n *Node) view() nodeView {
	return nodeView{
		Depth:    n.depth,
		Label:    n.label,
		Line:     n.line,
		Details:  n.details,
		Children: n.children,
	}
}

// MarshalJSON encodes the node and its subtree.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.view())
}

// MarshalYAML encodes the node and its subtree.
func (n *Node) MarshalYAML() (interface{}, error) {
	return n.view(), nil
}
