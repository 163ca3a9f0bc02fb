package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/roach88/phaseforge/internal/codec"
	"github.com/roach88/phaseforge/internal/editor"
	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/visual"
)

// Error kinds a step can expect.
const (
	KindNotFound   = "not_found"
	KindOutOfRange = "out_of_range"
	KindMalformed  = "malformed"
	KindDangling   = "dangling"
	KindValidation = "validation"
	KindWrongMode  = "wrong_mode"
	KindOther      = "error"
)

func isKnownKind(k string) bool {
	switch k {
	case KindNotFound, KindOutOfRange, KindMalformed, KindDangling, KindValidation, KindWrongMode:
		return true
	}
	return false
}

// errorKind classifies an edit error.
func errorKind(err error) string {
	switch {
	case visual.IsNotFound(err):
		return KindNotFound
	case visual.IsOutOfRange(err):
		return KindOutOfRange
	case visual.IsMalformed(err):
		return KindMalformed
	case visual.IsDangling(err):
		return KindDangling
	case visual.IsValidation(err):
		return KindValidation
	case errors.Is(err, editor.ErrWrongMode):
		return KindWrongMode
	}
	return KindOther
}

// Harness executes one scenario against a fresh session.
type Harness struct {
	session *editor.Session
	nodes   map[string]visual.NodeID
	edges   map[string]visual.EdgeID
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh editor session with sequential ids, so the
// same scenario always produces the same document and trace.
//
// Execution flow:
// 1. Load the starting document (template, inline or default)
// 2. Apply each step, checking its expected outcome
// 3. Evaluate assertions against the final session
//
// A returned error means the scenario could not run at all; step and
// assertion failures are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	prefix := scenario.IDPrefix
	if prefix == "" {
		prefix = "n"
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	opts := editor.Options{
		IDGen:  visual.NewSequenceGenerator(prefix),
		Logger: logger,
	}
	if scenario.DropDangling {
		opts.Dangling = codec.DanglingDrop
	}

	text, err := startingDocument(scenario)
	if err != nil {
		return nil, err
	}

	var session *editor.Session
	if text == "" {
		session, err = editor.New(opts)
	} else {
		session, err = editor.Open(ir.TemplateRecord{Name: scenario.Name, StructureJSON: text}, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load starting document: %w", err)
	}

	result := NewResult()
	Replay(session, scenario.Steps, result, logger)

	for _, msg := range EvaluateAssertions(session, scenario.Assertions) {
		result.AddError(msg)
	}

	result.Document = session.Text()
	result.Mode = session.Mode().String()
	return result, nil
}

// Replay applies steps to an existing session in order, recording each in
// result. Aliases are local to one call. A nil logger discards step logs.
func Replay(session *editor.Session, steps []Step, result *Result, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Harness{
		session: session,
		nodes:   make(map[string]visual.NodeID),
		edges:   make(map[string]visual.EdgeID),
		logger:  logger,
	}
	for i, step := range steps {
		h.executeStep(i, step, result)
	}
}

func startingDocument(s *Scenario) (string, error) {
	switch {
	case s.Document != "":
		return s.Document, nil
	case s.Template != "":
		data, err := os.ReadFile(s.Template)
		if err != nil {
			return "", fmt.Errorf("failed to read template: %w", err)
		}
		return string(data), nil
	}
	return "", nil
}

// executeStep applies one step and records its outcome.
func (h *Harness) executeStep(index int, step Step, result *Result) {
	ref, err := h.apply(step)

	outcome := "ok"
	if err != nil {
		outcome = errorKind(err)
	}
	state := h.session.State()
	result.AddTrace(step.Op, ref, outcome, state.Len(), state.EdgeLen())

	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("steps[%d] %s: %v", index, step.Op, err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected %s error, got success", index, step.Op, step.ExpectError))
	case step.ExpectError != "" && outcome != step.ExpectError:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected %s error, got %s: %v", index, step.Op, step.ExpectError, outcome, err))
	}
	if err != nil {
		h.logger.Debug("step failed", "index", index, "op", step.Op, "error", err)
	}
}

// apply runs the session operation for step and returns the id it created
// or touched.
func (h *Harness) apply(step Step) (string, error) {
	s := h.session
	switch step.Op {
	case OpAddPhase:
		in, err := phaseInput(step.Fields)
		if err != nil {
			return "", err
		}
		id, err := s.AddPhase(in)
		if err != nil {
			return "", err
		}
		if step.As != "" {
			h.nodes[step.As] = id
		}
		return string(id), nil

	case OpRemovePhase:
		id, err := h.node(step.Phase)
		if err != nil {
			return "", err
		}
		return string(id), s.RemovePhase(id)

	case OpEditPhase:
		id, err := h.node(step.Phase)
		if err != nil {
			return "", err
		}
		patch, err := phasePatch(step.Fields)
		if err != nil {
			return string(id), err
		}
		return string(id), s.EditPhase(id, patch)

	case OpReorderPhase:
		id, err := h.node(step.Phase)
		if err != nil {
			return "", err
		}
		return string(id), s.ReorderPhase(id, *step.Index)

	case OpMovePhase:
		id, err := h.node(step.Phase)
		if err != nil {
			return "", err
		}
		return string(id), s.MovePhase(id, visual.Position{X: step.X, Y: step.Y})

	case OpAddRule:
		src, dst, err := h.endpoints(step)
		if err != nil {
			return "", err
		}
		payload, err := ir.ObjectFromGo(step.Payload)
		if err != nil {
			return "", visual.Errorf(visual.ErrValidationFailed, step.Op, "payload: %v", err)
		}
		id, err := s.AddRule(src, dst, payload)
		if err != nil {
			return "", err
		}
		if step.As != "" {
			h.edges[step.As] = id
		}
		return string(id), nil

	case OpRemoveRule:
		id, err := h.edge(step.Rule)
		if err != nil {
			return "", err
		}
		return string(id), s.RemoveRule(id)

	case OpEditRule:
		id, err := h.edge(step.Rule)
		if err != nil {
			return "", err
		}
		payload, err := ir.ObjectFromGo(step.Payload)
		if err != nil {
			return string(id), visual.Errorf(visual.ErrValidationFailed, step.Op, "payload: %v", err)
		}
		return string(id), s.EditRule(id, payload)

	case OpRetargetRule:
		id, err := h.edge(step.Rule)
		if err != nil {
			return "", err
		}
		src, dst, err := h.endpoints(step)
		if err != nil {
			return string(id), err
		}
		return string(id), s.RetargetRule(id, src, dst)

	case OpSetFlexible:
		return "", s.SetFlexible(step.Flexible)

	case OpToRaw:
		s.ToRawText()
		return "", nil

	case OpRawText:
		return "", s.SetRawText(step.Text)

	case OpToVisual:
		return "", s.ToVisual()
	}
	return "", fmt.Errorf("unknown op %q", step.Op)
}

func (h *Harness) endpoints(step Step) (visual.NodeID, visual.NodeID, error) {
	src, err := h.node(step.Source)
	if err != nil {
		return "", "", err
	}
	dst, err := h.node(step.Target)
	if err != nil {
		return "", "", err
	}
	return src, dst, nil
}

// node resolves an alias or a sort order. Unresolvable references pass
// through as ids so the session reports them as not found.
func (h *Harness) node(ref string) (visual.NodeID, error) {
	if id, ok := h.nodes[ref]; ok {
		return id, nil
	}
	if order, err := strconv.ParseInt(ref, 10, 64); err == nil {
		n, ok := h.session.State().NodeBySortOrder(order)
		if !ok {
			return "", visual.Errorf(visual.ErrNotFound, "resolve", "no phase with sortOrder %d", order)
		}
		return n.ID, nil
	}
	return visual.NodeID(ref), nil
}

// edge resolves an alias or a 1-based position in rule order.
func (h *Harness) edge(ref string) (visual.EdgeID, error) {
	if id, ok := h.edges[ref]; ok {
		return id, nil
	}
	if pos, err := strconv.Atoi(ref); err == nil {
		edges := h.session.State().Edges()
		if pos < 1 || pos > len(edges) {
			return "", visual.Errorf(visual.ErrNotFound, "resolve", "no rule at position %d", pos)
		}
		return edges[pos-1].ID, nil
	}
	return visual.EdgeID(ref), nil
}
