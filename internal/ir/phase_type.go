package ir

// PhaseType tags the format of a phase. The closed set of tags belongs to the
// surrounding application's taxonomy; tags this version does not know are
// stored and round-tripped verbatim rather than rejected.
type PhaseType string

// Known phase types.
const (
	PhaseSingleElimination PhaseType = "SingleElimination"
	PhaseDoubleElimination PhaseType = "DoubleElimination"
	PhaseRoundRobin        PhaseType = "RoundRobin"
	PhasePools             PhaseType = "Pools"
	PhaseSwiss             PhaseType = "Swiss"
	PhaseBracket           PhaseType = "Bracket"
	PhaseBracketRound      PhaseType = "BracketRound"
	PhaseAward             PhaseType = "Award"
	PhaseDraw              PhaseType = "Draw"
)

// KnownPhaseTypes lists the built-in phase types in display order.
var KnownPhaseTypes = []PhaseType{
	PhaseSingleElimination,
	PhaseDoubleElimination,
	PhaseRoundRobin,
	PhasePools,
	PhaseSwiss,
	PhaseBracket,
	PhaseBracketRound,
	PhaseAward,
	PhaseDraw,
}

// Known reports whether t is one of KnownPhaseTypes.
// An unknown tag is a legacy or newer-version value, not an error.
func (t PhaseType) Known() bool {
	for _, k := range KnownPhaseTypes {
		if k == t {
			return true
		}
	}
	return false
}

// IsPooled reports whether the phase format splits competitors into groups.
func (t PhaseType) IsPooled() bool {
	return t == PhasePools || t == PhaseRoundRobin
}
