package visual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/taxonomy"
)

func TestAddPhaseAppendsAfterMaxSortOrder(t *testing.T) {
	reg := taxonomy.Default()
	s := twoPhaseState(t)

	s, err := s.EditPhase("finals", PhasePatch{})
	require.NoError(t, err)

	next, id, err := s.AddPhase(NewFixedGenerator("third"), reg, PhaseInput{
		Name:      "Placement",
		PhaseType: ir.PhaseRoundRobin,
	})
	require.NoError(t, err)

	n, _ := next.Node(id)
	assert.Equal(t, int64(3), n.Phase.SortOrder)
	assert.Equal(t, ir.PhaseRoundRobin, n.Phase.PhaseType)
	assert.Equal(t, 3, next.Len())
	assert.Equal(t, 2, s.Len(), "receiver unchanged")
}

func TestAddPhaseTakesFirstFreeSlot(t *testing.T) {
	reg := taxonomy.Default()
	gen := NewSequenceGenerator("n")

	var s State
	var err error
	for range 3 {
		s, _, err = s.AddPhase(gen, reg, PhaseInput{})
		require.NoError(t, err)
	}
	s, err = s.RemovePhase("n-2")
	require.NoError(t, err)

	s, id, err := s.AddPhase(gen, reg, PhaseInput{})
	require.NoError(t, err)

	n, _ := s.Node(id)
	x, y := reg.Layout.Position(1)
	assert.Equal(t, Position{X: x, Y: y}, n.Position)
	assert.Equal(t, int64(4), n.Phase.SortOrder)
}

func TestAddPhaseWithCollapsedLayout(t *testing.T) {
	reg := taxonomy.Default()
	reg.Layout = taxonomy.LayoutConfig{}
	gen := NewSequenceGenerator("n")

	var s State
	var err error
	for range 4 {
		s, _, err = s.AddPhase(gen, reg, PhaseInput{})
		require.NoError(t, err)
	}

	assert.Equal(t, 4, s.Len())
	for _, n := range s.Nodes() {
		assert.Equal(t, Position{}, n.Position)
	}
}

func TestAddPhaseRejectsReusedID(t *testing.T) {
	s := twoPhaseState(t)
	_, _, err := s.AddPhase(NewFixedGenerator("pools"), taxonomy.Default(), PhaseInput{})
	assert.True(t, IsValidation(err))
}

func TestRemovePhaseDropsTouchingEdges(t *testing.T) {
	s := twoPhaseState(t)

	out, err := s.RemovePhase("finals")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Len())
	assert.Equal(t, 0, out.EdgeLen())

	pools, _ := out.Node("pools")
	assert.Equal(t, int64(1), pools.Phase.SortOrder)

	assert.Equal(t, 1, s.EdgeLen(), "receiver unchanged")
}

func TestRemovePhaseKeepsSortOrderGaps(t *testing.T) {
	reg := taxonomy.Default()
	gen := NewSequenceGenerator("n")
	var s State
	var err error
	for range 3 {
		s, _, err = s.AddPhase(gen, reg, PhaseInput{})
		require.NoError(t, err)
	}

	s, err = s.RemovePhase("n-2")
	require.NoError(t, err)

	var orders []int64
	for _, n := range s.NodesBySortOrder() {
		orders = append(orders, n.Phase.SortOrder)
	}
	assert.Equal(t, []int64{1, 3}, orders)
}

func TestEditPhaseReplacesOnlyPatchedFields(t *testing.T) {
	s := twoPhaseState(t)
	pt := ir.PhaseType("Ladder")

	out, err := s.EditPhase("pools", PhasePatch{
		PhaseType: &pt,
		PoolCount: ptr(int64(4)),
		BestOf:    ptr(int64(2)),
	})
	require.NoError(t, err)

	n, _ := out.Node("pools")
	assert.Equal(t, "Pools", n.Phase.Name)
	assert.Equal(t, pt, n.Phase.PhaseType)
	assert.Equal(t, int64(4), n.Phase.PoolCount)
	assert.Equal(t, int64(2), n.Phase.BestOf, "no cross-field validation")
	assert.Equal(t, int64(8), n.Phase.IncomingSlotCount)

	orig, _ := s.Node("pools")
	assert.Equal(t, int64(0), orig.Phase.PoolCount)
}

func TestReorderPhase(t *testing.T) {
	reg := taxonomy.Default()
	gen := NewSequenceGenerator("n")
	var s State
	var err error
	for _, name := range []string{"A", "B", "C"} {
		s, _, err = s.AddPhase(gen, reg, PhaseInput{Name: name})
		require.NoError(t, err)
	}
	s, _, err = s.AddRule(gen, "n-1", "n-3", nil)
	require.NoError(t, err)

	out, err := s.ReorderPhase("n-3", 0)
	require.NoError(t, err)

	var names []string
	var orders []int64
	for _, n := range out.NodesBySortOrder() {
		names = append(names, n.Phase.Name)
		orders = append(orders, n.Phase.SortOrder)
	}
	assert.Equal(t, []string{"C", "A", "B"}, names)
	assert.Equal(t, []int64{1, 2, 3}, orders)

	e := out.Edges()[0]
	assert.Equal(t, NodeID("n-1"), e.Source)
	assert.Equal(t, NodeID("n-3"), e.Target)
}

func TestReorderPhaseErrors(t *testing.T) {
	s := twoPhaseState(t)

	_, err := s.ReorderPhase("ghost", 0)
	assert.True(t, IsNotFound(err))

	for _, idx := range []int{-1, 2} {
		_, err = s.ReorderPhase("pools", idx)
		assert.True(t, IsOutOfRange(err), "index %d", idx)
	}
}

func TestRuleOperations(t *testing.T) {
	s := twoPhaseState(t)
	gen := NewSequenceGenerator("e")

	s, id, err := s.AddRule(gen, "finals", "finals", ir.IRObject{"note": ir.IRString("loop")})
	require.NoError(t, err)
	e, _ := s.Edge(id)
	assert.True(t, e.IsSelfLoop())

	s, err = s.RetargetRule(id, "pools", "finals")
	require.NoError(t, err)
	e, _ = s.Edge(id)
	assert.False(t, e.IsSelfLoop())

	s, err = s.EditRule(id, ir.IRObject{"finishPosition": ir.IRInt(2)})
	require.NoError(t, err)
	rule, _ := s.Rule(id)
	assert.Equal(t, ir.IRObject{"finishPosition": ir.IRInt(2)}, rule.Payload)

	s, err = s.RemoveRule(id)
	require.NoError(t, err)
	assert.Equal(t, 1, s.EdgeLen())
}

func TestRuleOperationErrors(t *testing.T) {
	s := twoPhaseState(t)
	gen := NewSequenceGenerator("e")

	_, _, err := s.AddRule(gen, "pools", "ghost", nil)
	assert.True(t, IsNotFound(err))

	_, err = s.RemoveRule("ghost")
	assert.True(t, IsNotFound(err))

	_, err = s.EditRule("ghost", nil)
	assert.True(t, IsNotFound(err))

	_, err = s.RetargetRule("r1", "ghost", "finals")
	assert.True(t, IsNotFound(err))

	var ee *EditError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, OpRetargetRule, ee.Op)
	assert.Contains(t, ee.Error(), "ghost")
}

func TestMovePhaseLeavesDocumentAlone(t *testing.T) {
	s := twoPhaseState(t)

	out, err := s.MovePhase("pools", Position{X: 500, Y: 500})
	require.NoError(t, err)
	assert.True(t, Equivalent(s, out))

	n, _ := out.Node("pools")
	assert.Equal(t, Position{X: 500, Y: 500}, n.Position)

	_, err = s.MovePhase("ghost", Position{})
	assert.True(t, IsNotFound(err))
}

func TestFailedOperationReturnsReceiver(t *testing.T) {
	s := twoPhaseState(t)

	out, err := s.RemovePhase("ghost")
	require.Error(t, err)
	assert.True(t, Equivalent(s, out))
	assert.Equal(t, s.Nodes(), out.Nodes())
}

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("id")
	assert.Equal(t, "id-1", gen.NewID())
	assert.Equal(t, "id-2", gen.NewID())
}

func TestFixedGeneratorPanicsWhenExhausted(t *testing.T) {
	gen := NewFixedGenerator("only")
	assert.Equal(t, "only", gen.NewID())
	assert.Panics(t, func() { gen.NewID() })
}

func TestUUIDv7GeneratorIsUnique(t *testing.T) {
	var gen UUIDv7Generator
	a, b := gen.NewID(), gen.NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
