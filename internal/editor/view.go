package editor

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/visual"
)

// VisualEditor is one way of presenting and changing a visual state.
// Implementations never modify the state they render; a change is a new
// state passed to Emit.
type VisualEditor interface {
	Render(w io.Writer, s visual.State) error
	Emit(s visual.State) error
}

// ListEditor presents the state as a phase table followed by the rules.
type ListEditor struct {
	// OnChange receives emitted states. Usually Session.Replace.
	OnChange func(visual.State) error

	// KnownPhaseType marks phase types outside the taxonomy. Optional.
	KnownPhaseType func(ir.PhaseType) bool
}

// Render writes the phase table and rule list.
func (l ListEditor) Render(w io.Writer, s visual.State) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tNAME\tTYPE\tIN\tADV\tPOOLS\tBEST OF\tMINUTES")
	for _, n := range s.NodesBySortOrder() {
		p := n.Phase
		typ := string(p.PhaseType)
		if l.KnownPhaseType != nil && !l.KnownPhaseType(p.PhaseType) {
			typ += " (unknown)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			p.SortOrder, p.Name, typ, p.IncomingSlotCount, p.AdvancingSlotCount,
			p.PoolCount, p.BestOf, p.MatchDurationMinutes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if s.EdgeLen() == 0 {
		_, err := fmt.Fprintln(w, "\nno advancement rules")
		return err
	}
	fmt.Fprintln(w, "\nadvancement rules:")
	for _, line := range ruleLines(s) {
		if _, err := fmt.Fprintln(w, "  "+line); err != nil {
			return err
		}
	}
	return nil
}

// Emit hands a new state to OnChange.
func (l ListEditor) Emit(s visual.State) error {
	if l.OnChange == nil {
		return nil
	}
	return l.OnChange(s)
}

// CanvasEditor draws nodes as boxes on a character grid. Distinct X
// positions become columns and distinct Y positions become rows, so a moved
// node keeps its place relative to the others.
type CanvasEditor struct {
	OnChange func(visual.State) error

	// CellWidth is the box width in characters. Zero means 22.
	CellWidth int
}

// Render draws the grid followed by the rules.
func (c CanvasEditor) Render(w io.Writer, s visual.State) error {
	width := c.CellWidth
	if width <= 0 {
		width = 22
	}

	nodes := s.NodesBySortOrder()
	if len(nodes) == 0 {
		_, err := fmt.Fprintln(w, "(empty canvas)")
		return err
	}

	var xs, ys []int64
	for _, n := range nodes {
		xs = append(xs, n.Position.X)
		ys = append(ys, n.Position.Y)
	}
	xs, ys = distinctSorted(xs), distinctSorted(ys)

	cells := make([][][]string, len(ys))
	for r := range cells {
		cells[r] = make([][]string, len(xs))
	}
	for _, n := range nodes {
		r, _ := slices.BinarySearch(ys, n.Position.Y)
		col, _ := slices.BinarySearch(xs, n.Position.X)
		cells[r][col] = append(cells[r][col], fmt.Sprintf("%d %s", n.Phase.SortOrder, n.Phase.Name))
	}

	border := "+" + strings.Repeat(strings.Repeat("-", width)+"+", len(xs))
	var b strings.Builder
	b.WriteString(border + "\n")
	for _, row := range cells {
		b.WriteString("|")
		for _, cell := range row {
			b.WriteString(pad(strings.Join(cell, ", "), width))
			b.WriteString("|")
		}
		b.WriteString("\n" + border + "\n")
	}
	for _, line := range ruleLines(s) {
		b.WriteString(line + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Emit hands a new state to OnChange.
func (c CanvasEditor) Emit(s visual.State) error {
	if c.OnChange == nil {
		return nil
	}
	return c.OnChange(s)
}

// ruleLines formats each edge as "src -> dst  payload", self-loops marked.
func ruleLines(s visual.State) []string {
	var lines []string
	for _, e := range s.Edges() {
		src, _ := s.Node(e.Source)
		dst, _ := s.Node(e.Target)
		line := fmt.Sprintf("%s -> %s", src.Phase.Name, dst.Phase.Name)
		if len(e.Payload) > 0 {
			if body, err := ir.MarshalIRValue(e.Payload); err == nil {
				line += "  " + string(body)
			}
		}
		if e.IsSelfLoop() {
			line += "  (self-loop)"
		}
		lines = append(lines, line)
	}
	return lines
}

func distinctSorted(v []int64) []int64 {
	slices.Sort(v)
	return slices.Compact(v)
}

// pad fits s into exactly width characters, with one leading space.
func pad(s string, width int) string {
	r := []rune(" " + s)
	if len(r) > width {
		r = append(r[:width-1], '~')
	}
	return string(r) + strings.Repeat(" ", width-len(r))
}
