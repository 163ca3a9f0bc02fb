package compiler

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/taxonomy"
)

// Lint codes (E100-E199). Lint findings never block a save; they describe
// structures that are legal but probably not what the author meant.
const (
	// Phase checks (E101-E109)
	ErrPhaseNameEmpty     = "E101" // phase has no name
	ErrIncomingSlots      = "E102" // incomingSlotCount below 1
	ErrNegativeCount      = "E103" // advancingSlotCount or poolCount negative
	ErrBestOf             = "E104" // bestOf below 1 or even
	ErrMatchDuration      = "E105" // matchDurationMinutes not positive
	ErrUnknownPhaseType   = "E106" // phaseType outside the registry
	ErrDuplicateSortOrder = "E107" // two phases share a sortOrder
	ErrPoolsWithoutPools  = "E108" // pooled format with poolCount 0
	ErrAdvancingExceedsIn = "E109" // more advance than enter

	// Rule checks (E110-E119)
	ErrSelfLoopRule      = "E110" // rule source equals target
	ErrDanglingRule      = "E111" // rule references a missing phase
	ErrAdvancementCycle  = "E112" // rules form a cycle across phases
	ErrSlotCountMismatch = "E113" // consecutive phases disagree on slots

	// Record checks (E120-E129)
	ErrUnknownCategory = "E120" // category outside the registry
	ErrSchemaViolation = "E121" // document fails the structural schema
)

// Severity ranks a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationError is one lint or schema finding.
type ValidationError struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Line     int      `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// HasErrors reports whether any finding has SeverityError.
func HasErrors(errs []ValidationError) bool {
	return slices.ContainsFunc(errs, func(e ValidationError) bool {
		return e.Severity == SeverityError
	})
}

// Lint checks a decoded document against reg. Returns all findings in
// document order (does not fail-fast). A nil registry means
// taxonomy.Default.
func Lint(doc ir.StructureDocument, reg *taxonomy.Registry) []ValidationError {
	if reg == nil {
		reg = taxonomy.Default()
	}
	var errs []ValidationError
	add := func(sev Severity, code, field, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:    field,
			Message:  fmt.Sprintf(format, args...),
			Code:     code,
			Severity: sev,
		})
	}

	seen := make(map[int64]int)
	for i, p := range doc.Phases {
		field := fmt.Sprintf("phases[%d]", i)

		if strings.TrimSpace(p.Name) == "" {
			add(SeverityWarning, ErrPhaseNameEmpty, field+".name", "phase has no name")
		}
		if p.IncomingSlotCount < 1 {
			add(SeverityWarning, ErrIncomingSlots, field+".incomingSlotCount",
				"incomingSlotCount %d is below 1", p.IncomingSlotCount)
		}
		if p.AdvancingSlotCount < 0 {
			add(SeverityWarning, ErrNegativeCount, field+".advancingSlotCount",
				"advancingSlotCount %d is negative", p.AdvancingSlotCount)
		}
		if p.PoolCount < 0 {
			add(SeverityWarning, ErrNegativeCount, field+".poolCount",
				"poolCount %d is negative", p.PoolCount)
		}
		switch {
		case p.BestOf < 1:
			add(SeverityWarning, ErrBestOf, field+".bestOf", "bestOf %d is below 1", p.BestOf)
		case p.BestOf%2 == 0:
			add(SeverityWarning, ErrBestOf, field+".bestOf", "bestOf %d is even and allows ties", p.BestOf)
		}
		if p.MatchDurationMinutes < 1 {
			add(SeverityWarning, ErrMatchDuration, field+".matchDurationMinutes",
				"matchDurationMinutes %d is not positive", p.MatchDurationMinutes)
		}
		if !reg.IsKnownPhaseType(p.PhaseType) {
			add(SeverityWarning, ErrUnknownPhaseType, field+".phaseType",
				"unknown phase type %q is kept as-is", p.PhaseType)
		}
		if p.PhaseType.IsPooled() && p.PoolCount == 0 {
			add(SeverityInfo, ErrPoolsWithoutPools, field+".poolCount",
				"%s phase has poolCount 0", p.PhaseType)
		}
		if p.AdvancingSlotCount > p.IncomingSlotCount && p.IncomingSlotCount > 0 {
			add(SeverityWarning, ErrAdvancingExceedsIn, field+".advancingSlotCount",
				"advancingSlotCount %d exceeds incomingSlotCount %d", p.AdvancingSlotCount, p.IncomingSlotCount)
		}
		if first, dup := seen[p.SortOrder]; dup {
			add(SeverityWarning, ErrDuplicateSortOrder, field+".sortOrder",
				"sortOrder %d already used by phases[%d]", p.SortOrder, first)
		} else {
			seen[p.SortOrder] = i
		}
	}

	for i, r := range doc.AdvancementRules {
		field := fmt.Sprintf("advancementRules[%d]", i)
		if _, ok := seen[r.SourcePhaseOrder]; !ok {
			add(SeverityError, ErrDanglingRule, field+".sourcePhaseOrder",
				"no phase has sortOrder %d", r.SourcePhaseOrder)
		}
		if _, ok := seen[r.TargetPhaseOrder]; !ok {
			add(SeverityError, ErrDanglingRule, field+".targetPhaseOrder",
				"no phase has sortOrder %d", r.TargetPhaseOrder)
		}
		if r.SourcePhaseOrder == r.TargetPhaseOrder {
			add(SeverityWarning, ErrSelfLoopRule, field,
				"phase %d advances into itself", r.SourcePhaseOrder)
		}
	}

	for _, w := range AnalyzeCycles(doc) {
		if len(w.Path) <= 2 && w.Path[0] == w.Path[len(w.Path)-1] {
			continue // self-loops are reported per rule above
		}
		add(SeverityWarning, ErrAdvancementCycle, "advancementRules", "%s", w.Message)
	}

	errs = append(errs, lintSlotCounts(doc)...)
	return errs
}

// lintSlotCounts compares each phase's advancing slots with the incoming
// slots of the next phase in sort order. The document format does not
// require them to agree, so mismatches are informational.
func lintSlotCounts(doc ir.StructureDocument) []ValidationError {
	phases := slices.Clone(doc.Phases)
	slices.SortStableFunc(phases, func(a, b ir.Phase) int {
		return cmp.Compare(a.SortOrder, b.SortOrder)
	})

	var errs []ValidationError
	for i := 1; i < len(phases); i++ {
		prev, next := phases[i-1], phases[i]
		if prev.AdvancingSlotCount <= 0 || prev.AdvancingSlotCount == next.IncomingSlotCount {
			continue
		}
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("sortOrder %d", next.SortOrder),
			Message: fmt.Sprintf("%q advances %d but %q takes %d",
				prev.Name, prev.AdvancingSlotCount, next.Name, next.IncomingSlotCount),
			Code:     ErrSlotCountMismatch,
			Severity: SeverityInfo,
		})
	}
	return errs
}

// LintRecord lints the record fields and its document. A document that
// does not decode yields a single schema finding.
func LintRecord(rec ir.TemplateRecord, reg *taxonomy.Registry) []ValidationError {
	if reg == nil {
		reg = taxonomy.Default()
	}
	var errs []ValidationError
	if rec.Category != "" && !reg.IsKnownCategory(rec.Category) {
		errs = append(errs, ValidationError{
			Field:    "category",
			Message:  fmt.Sprintf("unknown category %q is kept as-is", rec.Category),
			Code:     ErrUnknownCategory,
			Severity: SeverityWarning,
		})
	}

	doc, err := ir.DecodeDocument([]byte(rec.StructureJSON))
	if err != nil {
		return append(errs, ValidationError{
			Field:    "structureJson",
			Message:  err.Error(),
			Code:     ErrSchemaViolation,
			Severity: SeverityError,
		})
	}
	return append(errs, Lint(doc, reg)...)
}
