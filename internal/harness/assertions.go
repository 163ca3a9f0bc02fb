package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/phaseforge/internal/codec"
	"github.com/roach88/phaseforge/internal/editor"
	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/visual"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against the session and returns
// the failure messages (does not fail-fast).
func EvaluateAssertions(s *editor.Session, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(s, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(s *editor.Session, a Assertion) error {
	state := s.State()
	switch a.Type {
	case AssertPhaseCount:
		return assertCount(a.Type, *a.Count, state.Len())
	case AssertRuleCount:
		return assertCount(a.Type, *a.Count, state.EdgeLen())
	case AssertPhase:
		return assertPhase(state, a)
	case AssertRule:
		return assertRule(state, a)
	case AssertMode:
		if got := s.Mode().String(); got != a.Mode {
			return &AssertionError{Type: a.Type, Expected: a.Mode, Actual: got}
		}
		return nil
	case AssertTextContains:
		if !strings.Contains(s.Text(), a.Text) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("text containing %q", a.Text), Actual: s.Text()}
		}
		return nil
	case AssertEquivalent:
		return assertEquivalent(state, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertCount(typ string, want, got int) error {
	if want != got {
		return &AssertionError{Type: typ, Expected: fmt.Sprint(want), Actual: fmt.Sprint(got)}
	}
	return nil
}

// assertPhase checks that the phase at a.Order carries a.Fields (subset
// match against its document form).
func assertPhase(state visual.State, a Assertion) error {
	n, ok := state.NodeBySortOrder(a.Order)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("phase with sortOrder %d", a.Order),
			Actual:   "no such phase",
		}
	}
	want, err := ir.ObjectFromGo(a.Fields)
	if err != nil {
		return fmt.Errorf("fields: %w", err)
	}
	if mismatch := subsetMismatch(want, n.Phase.ToIR()); mismatch != "" {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("phase %d with %s", a.Order, describe(want)),
			Actual:   mismatch,
		}
	}
	return nil
}

// assertRule checks that some rule joins a.Source to a.Target and carries
// a.Payload (subset match).
func assertRule(state visual.State, a Assertion) error {
	want, err := ir.ObjectFromGo(a.Payload)
	if err != nil {
		return fmt.Errorf("payload: %w", err)
	}
	var seen []string
	for _, e := range state.Edges() {
		r, ok := state.Rule(e.ID)
		if !ok {
			continue
		}
		seen = append(seen, fmt.Sprintf("%d->%d", r.SourcePhaseOrder, r.TargetPhaseOrder))
		if r.SourcePhaseOrder == a.Source && r.TargetPhaseOrder == a.Target &&
			subsetMismatch(want, r.Payload) == "" {
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("rule %d->%d with %s", a.Source, a.Target, describe(want)),
		Actual:   fmt.Sprintf("rules [%s]", strings.Join(seen, ", ")),
	}
}

func assertEquivalent(state visual.State, a Assertion) error {
	other, err := codec.Parse(a.Document, codec.ParseOptions{})
	if err != nil {
		return fmt.Errorf("document: %w", err)
	}
	if !visual.Equivalent(state, other) {
		got, _ := codec.Serialize(state, codec.SerializeOptions{})
		return &AssertionError{Type: a.Type, Expected: a.Document, Actual: got}
	}
	return nil
}

// subsetMismatch returns "" when every key of want has an equal value in
// got, else a description of the first differing key in sorted order.
func subsetMismatch(want, got ir.IRObject) string {
	keys := make([]string, 0, len(want))
	for k := range want {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		g, ok := got[k]
		if !ok {
			return fmt.Sprintf("%s missing", k)
		}
		if !ir.EqualValues(want[k], g) {
			data, _ := ir.MarshalIRValue(g)
			return fmt.Sprintf("%s = %s", k, data)
		}
	}
	return ""
}

func describe(obj ir.IRObject) string {
	if len(obj) == 0 {
		return "any values"
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return fmt.Sprint(obj)
	}
	return string(data)
}
