// Package editor implements the template editing session: a visual model and
// its document text kept in lockstep, a raw-text mode that bypasses the
// model, and the gate in front of saving.
//
// The session has two modes. In ModeVisual every edit runs against the
// visual state and is serialized straight away, so the model and the text
// never disagree. In ModeRawText the text is edited directly and the model
// is left alone until ToVisual parses it back.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/roach88/phaseforge/internal/codec"
	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/taxonomy"
	"github.com/roach88/phaseforge/internal/visual"
)

// Mode is the active editing view.
type Mode int

const (
	ModeVisual Mode = iota
	ModeRawText
)

func (m Mode) String() string {
	if m == ModeRawText {
		return "raw"
	}
	return "visual"
}

var (
	// ErrWrongMode is returned when an operation needs the other mode.
	ErrWrongMode = errors.New("operation not available in current mode")

	// ErrSaveInProgress is returned when Save is called while a save is
	// still outstanding.
	ErrSaveInProgress = errors.New("save already in progress")
)

// Saver persists template records. *template.Service satisfies it.
type Saver interface {
	Create(ctx context.Context, rec ir.TemplateRecord) (ir.TemplateRecord, error)
	Update(ctx context.Context, rec ir.TemplateRecord) (ir.TemplateRecord, error)
}

// Options configures a session. Zero values fall back to the default
// taxonomy, UUIDv7 ids, DanglingReject and slog.Default.
type Options struct {
	Registry *taxonomy.Registry
	IDGen    visual.IDGenerator
	Dangling codec.DanglingPolicy
	Logger   *slog.Logger
}

// Session is one open template editor.
//
// Edit operations are expected from a single goroutine. Save may run
// concurrently with edits; the mutex keeps the two from tearing the
// record.
type Session struct {
	mu     sync.Mutex
	saving atomic.Bool

	reg      *taxonomy.Registry
	gen      visual.IDGenerator
	dangling codec.DanglingPolicy
	logger   *slog.Logger

	record ir.TemplateRecord
	state  visual.State
	text   string
	mode   Mode
}

func newSession(opts Options) *Session {
	if opts.Registry == nil {
		opts.Registry = taxonomy.Default()
	}
	if opts.IDGen == nil {
		opts.IDGen = visual.UUIDv7Generator{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{
		reg:      opts.Registry,
		gen:      opts.IDGen,
		dangling: opts.Dangling,
		logger:   opts.Logger,
		mode:     ModeVisual,
	}
}

// Open starts a session on an existing record, in visual mode.
// A stored document that does not parse fails the open.
func Open(rec ir.TemplateRecord, opts Options) (*Session, error) {
	s := newSession(opts)
	s.record = rec
	if err := s.loadText(rec.StructureJSON); err != nil {
		return nil, err
	}
	s.logger.Debug("session opened", "template_id", rec.ID, "phases", s.state.Len())
	return s, nil
}

// New starts a session on an unsaved record holding the registry's default
// structure, in visual mode.
func New(opts Options) (*Session, error) {
	s := newSession(opts)
	s.record = DefaultRecord(s.reg)
	if err := s.loadText(s.reg.DefaultStructure); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultRecord is the metadata of a new template: the registry's default
// category and unit bounds, active, with no name and no structure.
func DefaultRecord(reg *taxonomy.Registry) ir.TemplateRecord {
	return ir.TemplateRecord{
		Category:     reg.DefaultCategory,
		MinUnits:     reg.MinUnits,
		MaxUnits:     reg.DefaultIncomingSlots,
		DefaultUnits: reg.DefaultIncomingSlots,
		IsActive:     true,
	}
}

func (s *Session) parseOptions() codec.ParseOptions {
	return codec.ParseOptions{
		Registry: s.reg,
		IDGen:    s.gen,
		Dangling: s.dangling,
		Logger:   s.logger,
	}
}

// loadText parses text and installs it with its serialized form.
func (s *Session) loadText(text string) error {
	state, report, err := codec.ParseWithReport(text, s.parseOptions())
	if err != nil {
		return err
	}
	out, err := codec.Serialize(state, codec.SerializeOptions{})
	if err != nil {
		return err
	}
	for _, d := range report.Dropped {
		s.logger.Warn("dropped dangling rule", "index", d.Index,
			"source", d.Rule.SourcePhaseOrder, "target", d.Rule.TargetPhaseOrder)
	}
	s.state, s.text = state, out
	return nil
}

// Mode returns the active mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// State returns the visual state. In raw mode it is the state from before
// raw editing began.
func (s *Session) State() visual.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Text returns the current document text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Record returns the template record with StructureJSON set to the current
// text.
func (s *Session) Record() ir.TemplateRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.record
	rec.StructureJSON = s.text
	return rec
}

// Registry returns the taxonomy the session was opened with.
func (s *Session) Registry() *taxonomy.Registry { return s.reg }

// UpdateRecord edits template metadata. Changes fn makes to ID or
// StructureJSON are discarded.
func (s *Session) UpdateRecord(fn func(*ir.TemplateRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.record
	fn(&rec)
	rec.ID = s.record.ID
	rec.StructureJSON = s.record.StructureJSON
	s.record = rec
}

// Apply runs fn against the visual state and re-serializes. On error the
// session is unchanged.
func (s *Session) Apply(op string, fn func(visual.State) (visual.State, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeVisual {
		return fmt.Errorf("%s: %w", op, ErrWrongMode)
	}
	next, err := fn(s.state)
	if err != nil {
		return err
	}
	text, err := codec.Serialize(next, codec.SerializeOptions{})
	if err != nil {
		return err
	}
	s.state, s.text = next, text
	s.logger.Debug("edit applied", "op", op, "phases", next.Len(), "rules", next.EdgeLen())
	return nil
}

// Replace installs a state produced by a visual editor.
func (s *Session) Replace(next visual.State) error {
	return s.Apply("replace", func(visual.State) (visual.State, error) { return next, nil })
}

// AddPhase appends a phase and returns its node id.
func (s *Session) AddPhase(in visual.PhaseInput) (visual.NodeID, error) {
	var id visual.NodeID
	err := s.Apply(visual.OpAddPhase, func(st visual.State) (visual.State, error) {
		next, nid, err := st.AddPhase(s.gen, s.reg, in)
		id = nid
		return next, err
	})
	return id, err
}

// RemovePhase removes a phase and its rules.
func (s *Session) RemovePhase(id visual.NodeID) error {
	return s.Apply(visual.OpRemovePhase, func(st visual.State) (visual.State, error) {
		return st.RemovePhase(id)
	})
}

// EditPhase replaces the patched fields of a phase.
func (s *Session) EditPhase(id visual.NodeID, patch visual.PhasePatch) error {
	return s.Apply(visual.OpEditPhase, func(st visual.State) (visual.State, error) {
		return st.EditPhase(id, patch)
	})
}

// ReorderPhase moves a phase to index in sort order.
func (s *Session) ReorderPhase(id visual.NodeID, index int) error {
	return s.Apply(visual.OpReorderPhase, func(st visual.State) (visual.State, error) {
		return st.ReorderPhase(id, index)
	})
}

// MovePhase repositions a node on the canvas.
func (s *Session) MovePhase(id visual.NodeID, pos visual.Position) error {
	return s.Apply(visual.OpMovePhase, func(st visual.State) (visual.State, error) {
		return st.MovePhase(id, pos)
	})
}

// AddRule links two phases and returns the edge id.
func (s *Session) AddRule(source, target visual.NodeID, payload ir.IRObject) (visual.EdgeID, error) {
	var id visual.EdgeID
	err := s.Apply(visual.OpAddRule, func(st visual.State) (visual.State, error) {
		next, eid, err := st.AddRule(s.gen, source, target, payload)
		id = eid
		return next, err
	})
	return id, err
}

// RemoveRule removes a rule.
func (s *Session) RemoveRule(id visual.EdgeID) error {
	return s.Apply(visual.OpRemoveRule, func(st visual.State) (visual.State, error) {
		return st.RemoveRule(id)
	})
}

// EditRule replaces a rule's payload.
func (s *Session) EditRule(id visual.EdgeID, payload ir.IRObject) error {
	return s.Apply(visual.OpEditRule, func(st visual.State) (visual.State, error) {
		return st.EditRule(id, payload)
	})
}

// RetargetRule points a rule at new endpoints.
func (s *Session) RetargetRule(id visual.EdgeID, source, target visual.NodeID) error {
	return s.Apply(visual.OpRetargetRule, func(st visual.State) (visual.State, error) {
		return st.RetargetRule(id, source, target)
	})
}

// SetFlexible sets or clears the document's isFlexible flag.
func (s *Session) SetFlexible(flex *bool) error {
	return s.Apply("set_flexible", func(st visual.State) (visual.State, error) {
		return st.SetFlexible(flex), nil
	})
}

// ToRawText switches to raw mode. The text is already the serialized state.
func (s *Session) ToRawText() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeRawText
}

// SetRawText replaces the document text verbatim. Only valid in raw mode;
// invalid text is accepted and kept so the user can fix it.
func (s *Session) SetRawText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeRawText {
		return fmt.Errorf("set_raw_text: %w", ErrWrongMode)
	}
	s.text = text
	return nil
}

// RawTextValid reports whether the current text is a syntactically valid
// document.
func (s *Session) RawTextValid() error {
	return codec.Validate(s.Text())
}

// ToVisual parses the raw text and switches to visual mode. On failure the
// session stays in raw mode with the text untouched.
func (s *Session) ToVisual() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeVisual {
		return nil
	}
	// Untouched text keeps the current state and its node and edge ids.
	if current, err := codec.Serialize(s.state, codec.SerializeOptions{}); err == nil && current == s.text {
		s.mode = ModeVisual
		return nil
	}
	if err := s.loadText(s.text); err != nil {
		return err
	}
	s.mode = ModeVisual
	return nil
}

// Save validates the record and persists it through saver. A document that
// would not parse under the session's dangling policy is refused; under
// DanglingDrop the stored text omits the dropped rules. The first
// successful save of a new record assigns its id. On failure nothing in the
// session changes and Save may be retried.
func (s *Session) Save(ctx context.Context, saver Saver) (ir.TemplateRecord, error) {
	if !s.saving.CompareAndSwap(false, true) {
		return ir.TemplateRecord{}, ErrSaveInProgress
	}
	defer s.saving.Store(false)

	rec := s.Record()
	if strings.TrimSpace(rec.Name) == "" {
		return ir.TemplateRecord{}, visual.Errorf(visual.ErrValidationFailed, "save", "name is required")
	}
	// The stored document must open again under this session's policy.
	check := s.parseOptions()
	check.IDGen = visual.NewSequenceGenerator("save")
	state, report, err := codec.ParseWithReport(rec.StructureJSON, check)
	if err != nil {
		return ir.TemplateRecord{}, fmt.Errorf("save: %w", err)
	}
	if len(report.Dropped) > 0 {
		if rec.StructureJSON, err = codec.Serialize(state, codec.SerializeOptions{}); err != nil {
			return ir.TemplateRecord{}, fmt.Errorf("save: %w", err)
		}
		s.logger.Warn("saving without dangling rules", "dropped", len(report.Dropped))
	}
	rec.IsSystemTemplate = false

	var saved ir.TemplateRecord
	if rec.IsNew() {
		saved, err = saver.Create(ctx, rec)
	} else {
		saved, err = saver.Update(ctx, rec)
	}
	if err != nil {
		s.logger.Warn("save failed", "template_id", rec.ID, "error", err)
		return ir.TemplateRecord{}, fmt.Errorf("save: %w", err)
	}

	s.mu.Lock()
	s.record.ID = saved.ID
	s.record.CreatedAt = saved.CreatedAt
	s.record.UpdatedAt = saved.UpdatedAt
	s.mu.Unlock()

	s.logger.Info("template saved", "template_id", saved.ID, "name", saved.Name)
	return saved, nil
}
