package visual

import "github.com/roach88/phaseforge/internal/ir"

// Equivalent reports whether a and b describe the same document: the same
// phases in the same sort order, the same rules in the same order between
// corresponding phases, and equal top-level flags and extras. Ids, positions
// and absolute sortOrder values are ignored.
func Equivalent(a, b State) bool {
	if a.Len() != b.Len() || a.EdgeLen() != b.EdgeLen() {
		return false
	}

	aNodes, bNodes := a.NodesBySortOrder(), b.NodesBySortOrder()
	aRank := make(map[NodeID]int, len(aNodes))
	bRank := make(map[NodeID]int, len(bNodes))
	for i := range aNodes {
		if !aNodes[i].Phase.EqualIgnoringOrder(bNodes[i].Phase) {
			return false
		}
		aRank[aNodes[i].ID] = i
		bRank[bNodes[i].ID] = i
	}

	aEdges, bEdges := a.Edges(), b.Edges()
	for i := range aEdges {
		ea, eb := aEdges[i], bEdges[i]
		if aRank[ea.Source] != bRank[eb.Source] || aRank[ea.Target] != bRank[eb.Target] {
			return false
		}
		if !ir.EqualValues(payloadOrEmpty(ea.Payload), payloadOrEmpty(eb.Payload)) {
			return false
		}
	}

	af, bf := a.isFlexible, b.isFlexible
	if (af == nil) != (bf == nil) || (af != nil && *af != *bf) {
		return false
	}
	return ir.EqualValues(payloadOrEmpty(a.extra), payloadOrEmpty(b.extra))
}

func payloadOrEmpty(obj ir.IRObject) ir.IRObject {
	if obj == nil {
		return ir.IRObject{}
	}
	return obj
}
