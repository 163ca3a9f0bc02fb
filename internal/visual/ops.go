package visual

import (
	"fmt"
	"slices"

	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/taxonomy"
)

// Operation names carried in EditError.Op.
const (
	OpAddPhase     = "add_phase"
	OpRemovePhase  = "remove_phase"
	OpEditPhase    = "edit_phase"
	OpReorderPhase = "reorder_phase"
	OpMovePhase    = "move_phase"
	OpAddRule      = "add_rule"
	OpRemoveRule   = "remove_rule"
	OpEditRule     = "edit_rule"
	OpRetargetRule = "retarget_rule"
)

// PhaseInput describes a phase to add. Zero values for Name, PhaseType,
// IncomingSlotCount, BestOf and MatchDurationMinutes take registry defaults;
// zero AdvancingSlotCount and PoolCount are kept as given.
type PhaseInput struct {
	Name                 string
	PhaseType            ir.PhaseType
	IncomingSlotCount    int64
	AdvancingSlotCount   int64
	PoolCount            int64
	BestOf               int64
	MatchDurationMinutes int64
	Extra                ir.IRObject
}

// PhasePatch lists the phase fields to replace. Nil fields are left as they
// are. No cross-field validation is applied.
type PhasePatch struct {
	Name                 *string
	PhaseType            *ir.PhaseType
	IncomingSlotCount    *int64
	AdvancingSlotCount   *int64
	PoolCount            *int64
	BestOf               *int64
	MatchDurationMinutes *int64
}

// AddPhase appends a phase with the next sortOrder (max + 1, or 1 when the
// state is empty) at the first free layout slot. It returns the new state and
// the id of the created node.
func (s State) AddPhase(gen IDGenerator, reg *taxonomy.Registry, in PhaseInput) (State, NodeID, error) {
	order := s.maxSortOrder() + 1

	p := ir.Phase{
		Name:                 in.Name,
		PhaseType:            in.PhaseType,
		SortOrder:            order,
		IncomingSlotCount:    in.IncomingSlotCount,
		AdvancingSlotCount:   in.AdvancingSlotCount,
		PoolCount:            in.PoolCount,
		BestOf:               in.BestOf,
		MatchDurationMinutes: in.MatchDurationMinutes,
		Extra:                in.Extra.Clone(),
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("Phase %d", order)
	}
	if p.PhaseType == "" {
		p.PhaseType = reg.DefaultPhaseType
	}
	if p.IncomingSlotCount == 0 {
		p.IncomingSlotCount = reg.DefaultIncomingSlots
	}
	if p.BestOf == 0 {
		p.BestOf = reg.DefaultBestOf
	}
	if p.MatchDurationMinutes == 0 {
		p.MatchDurationMinutes = reg.DefaultMatchDuration
	}

	id := NodeID(gen.NewID())
	if _, dup := s.nodes[id]; dup {
		return s, "", Errorf(ErrValidationFailed, OpAddPhase, "generator reused node id %q", id)
	}

	out := s.clone()
	out.nodes[id] = Node{ID: id, Phase: p, Position: s.freeSlot(reg.Layout)}
	out.nodeOrder = append(out.nodeOrder, id)
	return out, id, nil
}

// freeSlot returns the first layout position no node occupies. n nodes
// take at most n slots, so the first n+1 slots hold a free one unless the
// layout maps several slots to one point; then the next slot is used as is.
func (s State) freeSlot(layout taxonomy.LayoutConfig) Position {
	taken := make(map[Position]bool, len(s.nodes))
	for _, n := range s.nodes {
		taken[n.Position] = true
	}
	for i := 0; i <= len(s.nodes); i++ {
		x, y := layout.Position(i)
		p := Position{X: x, Y: y}
		if !taken[p] {
			return p
		}
	}
	x, y := layout.Position(len(s.nodeOrder))
	return Position{X: x, Y: y}
}

// RemovePhase removes a node and every edge that touches it. Remaining
// phases keep their sortOrder.
func (s State) RemovePhase(id NodeID) (State, error) {
	if _, ok := s.nodes[id]; !ok {
		return s, Errorf(ErrNotFound, OpRemovePhase, "node %q", id)
	}

	out := s.clone()
	delete(out.nodes, id)
	out.nodeOrder = slices.DeleteFunc(out.nodeOrder, func(n NodeID) bool { return n == id })
	out.edgeOrder = slices.DeleteFunc(out.edgeOrder, func(eid EdgeID) bool {
		e := out.edges[eid]
		if e.Source == id || e.Target == id {
			delete(out.edges, eid)
			return true
		}
		return false
	})
	return out, nil
}

// EditPhase replaces the fields set in patch.
func (s State) EditPhase(id NodeID, patch PhasePatch) (State, error) {
	n, ok := s.nodes[id]
	if !ok {
		return s, Errorf(ErrNotFound, OpEditPhase, "node %q", id)
	}

	p := n.Phase
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.PhaseType != nil {
		p.PhaseType = *patch.PhaseType
	}
	setInt(&p.IncomingSlotCount, patch.IncomingSlotCount)
	setInt(&p.AdvancingSlotCount, patch.AdvancingSlotCount)
	setInt(&p.PoolCount, patch.PoolCount)
	setInt(&p.BestOf, patch.BestOf)
	setInt(&p.MatchDurationMinutes, patch.MatchDurationMinutes)

	out := s.clone()
	n.Phase = p
	out.nodes[id] = n
	return out, nil
}

func setInt(dst *int64, v *int64) {
	if v != nil {
		*dst = *v
	}
}

// ReorderPhase moves a phase to zero-based position index in sort order and
// renumbers every phase's sortOrder to 1..n. Edges follow their nodes.
func (s State) ReorderPhase(id NodeID, index int) (State, error) {
	if _, ok := s.nodes[id]; !ok {
		return s, Errorf(ErrNotFound, OpReorderPhase, "node %q", id)
	}
	if index < 0 || index >= len(s.nodeOrder) {
		return s, Errorf(ErrOutOfRange, OpReorderPhase, "index %d not in [0, %d)", index, len(s.nodeOrder))
	}

	sorted := s.NodesBySortOrder()
	from := slices.IndexFunc(sorted, func(n Node) bool { return n.ID == id })
	moved := sorted[from]
	sorted = slices.Delete(sorted, from, from+1)
	sorted = slices.Insert(sorted, index, moved)

	out := s.clone()
	for i, n := range sorted {
		n.Phase.SortOrder = int64(i + 1)
		out.nodes[n.ID] = n
	}
	return out, nil
}

// MovePhase changes a node's canvas position. Layout only; the document is
// unaffected.
func (s State) MovePhase(id NodeID, pos Position) (State, error) {
	n, ok := s.nodes[id]
	if !ok {
		return s, Errorf(ErrNotFound, OpMovePhase, "node %q", id)
	}
	out := s.clone()
	n.Position = pos
	out.nodes[id] = n
	return out, nil
}

// AddRule creates an edge from source to target carrying payload. A rule
// from a phase to itself is accepted; lint reports it.
func (s State) AddRule(gen IDGenerator, source, target NodeID, payload ir.IRObject) (State, EdgeID, error) {
	if err := s.requireNodes(OpAddRule, source, target); err != nil {
		return s, "", err
	}

	id := EdgeID(gen.NewID())
	if _, dup := s.edges[id]; dup {
		return s, "", Errorf(ErrValidationFailed, OpAddRule, "generator reused edge id %q", id)
	}
	if payload == nil {
		payload = ir.IRObject{}
	}

	out := s.clone()
	out.edges[id] = Edge{ID: id, Source: source, Target: target, Payload: payload.Clone()}
	out.edgeOrder = append(out.edgeOrder, id)
	return out, id, nil
}

// RemoveRule removes an edge.
func (s State) RemoveRule(id EdgeID) (State, error) {
	if _, ok := s.edges[id]; !ok {
		return s, Errorf(ErrNotFound, OpRemoveRule, "edge %q", id)
	}
	out := s.clone()
	delete(out.edges, id)
	out.edgeOrder = slices.DeleteFunc(out.edgeOrder, func(e EdgeID) bool { return e == id })
	return out, nil
}

// EditRule replaces an edge's payload.
func (s State) EditRule(id EdgeID, payload ir.IRObject) (State, error) {
	e, ok := s.edges[id]
	if !ok {
		return s, Errorf(ErrNotFound, OpEditRule, "edge %q", id)
	}
	if payload == nil {
		payload = ir.IRObject{}
	}
	out := s.clone()
	e.Payload = payload.Clone()
	out.edges[id] = e
	return out, nil
}

// RetargetRule points an existing edge at new endpoints.
func (s State) RetargetRule(id EdgeID, source, target NodeID) (State, error) {
	e, ok := s.edges[id]
	if !ok {
		return s, Errorf(ErrNotFound, OpRetargetRule, "edge %q", id)
	}
	if err := s.requireNodes(OpRetargetRule, source, target); err != nil {
		return s, err
	}
	out := s.clone()
	e.Source, e.Target = source, target
	out.edges[id] = e
	return out, nil
}

func (s State) requireNodes(op string, ids ...NodeID) error {
	for _, id := range ids {
		if _, ok := s.nodes[id]; !ok {
			return Errorf(ErrNotFound, op, "node %q", id)
		}
	}
	return nil
}

// SetFlexible sets or clears (nil) the document's isFlexible flag.
func (s State) SetFlexible(flex *bool) State {
	out := s.clone()
	out.isFlexible = nil
	if flex != nil {
		v := *flex
		out.isFlexible = &v
	}
	return out
}
