// Package codec converts between structure document text and the visual
// model.
//
// Parse is a pure function of its input text and options: it never touches
// a previously held State, so a failed parse leaves the caller's last good
// state in place. Serialize is its left inverse up to layout: ids and
// positions are dropped, everything else round-trips.
package codec

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/taxonomy"
	"github.com/roach88/phaseforge/internal/visual"
)

// DanglingPolicy decides what Parse does with a rule that references a
// phase order no phase carries.
type DanglingPolicy int

const (
	// DanglingReject fails the parse with ErrDanglingReference.
	DanglingReject DanglingPolicy = iota

	// DanglingDrop omits the rule and records it in ParseReport.Dropped.
	DanglingDrop
)

// String returns the flag spelling of the policy.
func (p DanglingPolicy) String() string {
	if p == DanglingDrop {
		return "drop"
	}
	return "reject"
}

// ParseOptions configures Parse. The zero value uses the default taxonomy,
// UUIDv7 ids and DanglingReject.
type ParseOptions struct {
	Registry *taxonomy.Registry
	IDGen    visual.IDGenerator
	Dangling DanglingPolicy
	Logger   *slog.Logger
}

func (o ParseOptions) withDefaults() ParseOptions {
	if o.Registry == nil {
		o.Registry = taxonomy.Default()
	}
	if o.IDGen == nil {
		o.IDGen = visual.UUIDv7Generator{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// DroppedRule is a rule omitted under DanglingDrop, with its index in the
// document's advancementRules array.
type DroppedRule struct {
	Index int
	Rule  ir.AdvancementRule
}

// ParseReport describes what Parse did beyond building the state.
type ParseReport struct {
	Dropped []DroppedRule
}

// Parse builds a visual state from document text.
//
// Errors are *visual.EditError of kind ErrMalformedDocument or
// ErrDanglingReference.
func Parse(text string, opts ParseOptions) (visual.State, error) {
	s, _, err := ParseWithReport(text, opts)
	return s, err
}

// ParseWithReport is Parse that also returns a report of dropped rules.
func ParseWithReport(text string, opts ParseOptions) (visual.State, ParseReport, error) {
	opts = opts.withDefaults()
	var report ParseReport

	doc, err := ir.DecodeDocument([]byte(text))
	if err != nil {
		return visual.State{}, report, visual.Errorf(visual.ErrMalformedDocument, "parse", "%v", err)
	}

	b := visual.NewBuilder()
	sorted := sortPhases(doc.Phases)

	// First phase in sort order wins when two share a sortOrder.
	byOrder := make(map[int64]visual.NodeID, len(sorted))
	for i, p := range sorted {
		x, y := opts.Registry.Layout.Position(i)
		n := visual.Node{
			ID:       visual.NodeID(opts.IDGen.NewID()),
			Phase:    p,
			Position: visual.Position{X: x, Y: y},
		}
		if err := b.AddNode(n); err != nil {
			return visual.State{}, report, err
		}
		if _, seen := byOrder[p.SortOrder]; !seen {
			byOrder[p.SortOrder] = n.ID
		}
	}

	for i, r := range doc.AdvancementRules {
		src, okSrc := byOrder[r.SourcePhaseOrder]
		dst, okDst := byOrder[r.TargetPhaseOrder]
		if !okSrc || !okDst {
			missing := r.SourcePhaseOrder
			if okSrc {
				missing = r.TargetPhaseOrder
			}
			if opts.Dangling == DanglingDrop {
				opts.Logger.Debug("dropping dangling rule", "index", i, "phase_order", missing)
				report.Dropped = append(report.Dropped, DroppedRule{Index: i, Rule: r})
				continue
			}
			return visual.State{}, report, visual.Errorf(visual.ErrDanglingReference, "parse",
				"advancementRules[%d] references phase order %d", i, missing)
		}

		e := visual.Edge{
			ID:      visual.EdgeID(opts.IDGen.NewID()),
			Source:  src,
			Target:  dst,
			Payload: r.Payload,
		}
		if err := b.AddEdge(e); err != nil {
			return visual.State{}, report, err
		}
	}

	b.SetFlexible(doc.IsFlexible)
	b.SetExtra(doc.Extra)
	return b.State(), report, nil
}

// SerializeOptions configures Serialize. Indent "" produces the compact
// storage form.
type SerializeOptions struct {
	Indent string
}

// Serialize renders a state as document text.
//
// Phases are emitted by ascending sortOrder, ties broken by insertion order.
// If any two phases share a sortOrder every phase is renumbered 1..n;
// otherwise the values, gaps included, are kept. Rules follow edge insertion
// order with endpoints written as the emitted sortOrder.
func Serialize(s visual.State, opts SerializeOptions) (string, error) {
	doc, err := ToDocument(s)
	if err != nil {
		return "", err
	}
	out, err := ir.EncodeDocument(doc, opts.Indent)
	if err != nil {
		return "", fmt.Errorf("serialize: %w", err)
	}
	return string(out), nil
}

// ToDocument is Serialize without the final encoding step.
func ToDocument(s visual.State) (ir.StructureDocument, error) {
	nodes := s.NodesBySortOrder()
	renumber := hasCollision(nodes)

	doc := ir.StructureDocument{
		Phases:           make([]ir.Phase, len(nodes)),
		AdvancementRules: make([]ir.AdvancementRule, 0, s.EdgeLen()),
		IsFlexible:       s.IsFlexible(),
		Extra:            s.Extra(),
	}
	emitted := make(map[visual.NodeID]int64, len(nodes))
	for i, n := range nodes {
		p := n.Phase
		if renumber {
			p.SortOrder = int64(i + 1)
		}
		doc.Phases[i] = p
		emitted[n.ID] = p.SortOrder
	}

	for _, e := range s.Edges() {
		src, okSrc := emitted[e.Source]
		dst, okDst := emitted[e.Target]
		if !okSrc || !okDst {
			return doc, visual.Errorf(visual.ErrDanglingReference, "serialize", "edge %q", e.ID)
		}
		doc.AdvancementRules = append(doc.AdvancementRules, ir.AdvancementRule{
			SourcePhaseOrder: src,
			TargetPhaseOrder: dst,
			Payload:          e.Payload,
		})
	}
	return doc, nil
}

// Format parses text and serializes it back: the normal form of a document.
func Format(text string, popts ParseOptions, sopts SerializeOptions) (string, ParseReport, error) {
	s, report, err := ParseWithReport(text, popts)
	if err != nil {
		return "", report, err
	}
	out, err := Serialize(s, sopts)
	return out, report, err
}

// Validate reports whether text is a syntactically valid document. Rule
// references are not resolved.
func Validate(text string) error {
	if _, err := ir.DecodeDocument([]byte(text)); err != nil {
		return visual.Errorf(visual.ErrMalformedDocument, "validate", "%v", err)
	}
	return nil
}

func hasCollision(sorted []visual.Node) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Phase.SortOrder == sorted[i-1].Phase.SortOrder {
			return true
		}
	}
	return false
}

// sortPhases orders phases by ascending sortOrder, keeping document order on
// ties.
func sortPhases(phases []ir.Phase) []ir.Phase {
	out := slices.Clone(phases)
	slices.SortStableFunc(out, func(a, b ir.Phase) int {
		return cmp.Compare(a.SortOrder, b.SortOrder)
	})
	return out
}
