package visual

import (
	"maps"
	"slices"

	"github.com/roach88/phaseforge/internal/ir"
)

// NodeID identifies a node within one editing session.
type NodeID string

// EdgeID identifies an edge within one editing session.
type EdgeID string

// Position is a canvas coordinate. Layout only; never serialized.
type Position struct {
	X int64
	Y int64
}

// Node is one phase on the canvas.
type Node struct {
	ID       NodeID
	Phase    ir.Phase
	Position Position
}

// Edge is one advancement rule between two nodes.
//
// Payload holds every rule key other than the phase orders. The orders are
// derived from the endpoint nodes on demand (State.Rule) so they always
// reflect the current sortOrder of the phases.
type Edge struct {
	ID      EdgeID
	Source  NodeID
	Target  NodeID
	Payload ir.IRObject
}

// IsSelfLoop reports whether the rule advances a phase into itself.
func (e Edge) IsSelfLoop() bool {
	return e.Source == e.Target
}

// State is the in-memory graph a visual editor works on.
//
// A State is an immutable value. Operations return a new State and never
// modify their receiver, so a caller may keep any State as a known-good
// snapshot. The zero State is empty and ready to use.
type State struct {
	nodes     map[NodeID]Node
	edges     map[EdgeID]Edge
	nodeOrder []NodeID
	edgeOrder []EdgeID

	isFlexible *bool
	extra      ir.IRObject
}

// clone returns a State that shares no mutable containers with s.
// Phase extras and rule payloads are replaced wholesale by operations, never
// mutated in place, so they may be shared.
func (s State) clone() State {
	out := State{
		nodes:     maps.Clone(s.nodes),
		edges:     maps.Clone(s.edges),
		nodeOrder: slices.Clone(s.nodeOrder),
		edgeOrder: slices.Clone(s.edgeOrder),
		extra:     s.extra,
	}
	if out.nodes == nil {
		out.nodes = map[NodeID]Node{}
	}
	if out.edges == nil {
		out.edges = map[EdgeID]Edge{}
	}
	if s.isFlexible != nil {
		flex := *s.isFlexible
		out.isFlexible = &flex
	}
	return out
}

// Len returns the number of nodes.
func (s State) Len() int { return len(s.nodeOrder) }

// EdgeLen returns the number of edges.
func (s State) EdgeLen() int { return len(s.edgeOrder) }

// Nodes returns the nodes in insertion order.
func (s State) Nodes() []Node {
	out := make([]Node, len(s.nodeOrder))
	for i, id := range s.nodeOrder {
		out[i] = s.nodes[id]
	}
	return out
}

// Edges returns the edges in insertion order.
func (s State) Edges() []Edge {
	out := make([]Edge, len(s.edgeOrder))
	for i, id := range s.edgeOrder {
		out[i] = s.edges[id]
	}
	return out
}

// Node looks up a node by id.
func (s State) Node(id NodeID) (Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Edge looks up an edge by id.
func (s State) Edge(id EdgeID) (Edge, bool) {
	e, ok := s.edges[id]
	return e, ok
}

// NodesBySortOrder returns the nodes by ascending sortOrder, ties broken by
// insertion order.
func (s State) NodesBySortOrder() []Node {
	out := s.Nodes()
	slices.SortStableFunc(out, func(a, b Node) int {
		switch {
		case a.Phase.SortOrder < b.Phase.SortOrder:
			return -1
		case a.Phase.SortOrder > b.Phase.SortOrder:
			return 1
		}
		return 0
	})
	return out
}

// NodeBySortOrder returns the first node, in sort order, whose phase has the
// given sortOrder.
func (s State) NodeBySortOrder(order int64) (Node, bool) {
	for _, n := range s.NodesBySortOrder() {
		if n.Phase.SortOrder == order {
			return n, true
		}
	}
	return Node{}, false
}

// Rule returns the advancement rule an edge stands for, with phase orders
// taken from the current endpoint nodes.
func (s State) Rule(id EdgeID) (ir.AdvancementRule, bool) {
	e, ok := s.edges[id]
	if !ok {
		return ir.AdvancementRule{}, false
	}
	src, okSrc := s.nodes[e.Source]
	dst, okDst := s.nodes[e.Target]
	if !okSrc || !okDst {
		return ir.AdvancementRule{}, false
	}
	return ir.AdvancementRule{
		SourcePhaseOrder: src.Phase.SortOrder,
		TargetPhaseOrder: dst.Phase.SortOrder,
		Payload:          e.Payload,
	}, true
}

// IsFlexible returns the document's isFlexible flag, nil when absent.
func (s State) IsFlexible() *bool {
	if s.isFlexible == nil {
		return nil
	}
	flex := *s.isFlexible
	return &flex
}

// Extra returns a copy of the unrecognised top-level document keys.
func (s State) Extra() ir.IRObject {
	return s.extra.Clone()
}

// maxSortOrder returns the highest sortOrder, 0 for an empty state.
func (s State) maxSortOrder() int64 {
	var hi int64
	for i, id := range s.nodeOrder {
		if o := s.nodes[id].Phase.SortOrder; i == 0 || o > hi {
			hi = o
		}
	}
	return hi
}

// Builder assembles a State from decoded parts. It is used by the parser;
// editors change a State through the operations in ops.go.
type Builder struct {
	s State
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{s: State{}.clone()}
}

// AddNode appends a node. A duplicate id is a validation failure.
func (b *Builder) AddNode(n Node) error {
	if _, ok := b.s.nodes[n.ID]; ok {
		return Errorf(ErrValidationFailed, "build", "duplicate node id %q", n.ID)
	}
	b.s.nodes[n.ID] = n
	b.s.nodeOrder = append(b.s.nodeOrder, n.ID)
	return nil
}

// AddEdge appends an edge. Both endpoints must already exist.
func (b *Builder) AddEdge(e Edge) error {
	if _, ok := b.s.edges[e.ID]; ok {
		return Errorf(ErrValidationFailed, "build", "duplicate edge id %q", e.ID)
	}
	for _, end := range []NodeID{e.Source, e.Target} {
		if _, ok := b.s.nodes[end]; !ok {
			return Errorf(ErrNotFound, "build", "node %q", end)
		}
	}
	b.s.edges[e.ID] = e
	b.s.edgeOrder = append(b.s.edgeOrder, e.ID)
	return nil
}

// SetFlexible records the isFlexible flag; nil means absent.
func (b *Builder) SetFlexible(flex *bool) {
	if flex == nil {
		b.s.isFlexible = nil
		return
	}
	v := *flex
	b.s.isFlexible = &v
}

// SetExtra records unrecognised top-level keys.
func (b *Builder) SetExtra(extra ir.IRObject) {
	b.s.extra = extra.Clone()
}

// State returns the assembled state. The builder may keep being used; later
// calls do not affect states already returned.
func (b *Builder) State() State {
	return b.s.clone()
}
