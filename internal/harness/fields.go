package harness

import (
	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/visual"
)

// phaseInput converts step fields to an add_phase input. Keys outside the
// phase grammar become the phase's extra keys.
func phaseInput(fields map[string]any) (visual.PhaseInput, error) {
	var in visual.PhaseInput
	obj, err := ir.ObjectFromGo(fields)
	if err != nil {
		return in, visual.Errorf(visual.ErrValidationFailed, OpAddPhase, "fields: %v", err)
	}

	for k, v := range obj {
		var err error
		switch k {
		case ir.KeyName:
			in.Name, err = stringValue(k, v)
		case ir.KeyPhaseType:
			var s string
			s, err = stringValue(k, v)
			in.PhaseType = ir.PhaseType(s)
		case ir.KeyIncomingSlotCount:
			in.IncomingSlotCount, err = intValue(k, v)
		case ir.KeyAdvancingSlotCount:
			in.AdvancingSlotCount, err = intValue(k, v)
		case ir.KeyPoolCount:
			in.PoolCount, err = intValue(k, v)
		case ir.KeyBestOf:
			in.BestOf, err = intValue(k, v)
		case ir.KeyMatchDurationMinutes:
			in.MatchDurationMinutes, err = intValue(k, v)
		case ir.KeySortOrder:
			err = visual.Errorf(visual.ErrValidationFailed, OpAddPhase, "sortOrder is assigned by the editor")
		default:
			if in.Extra == nil {
				in.Extra = ir.IRObject{}
			}
			in.Extra[k] = v
		}
		if err != nil {
			return in, err
		}
	}
	return in, nil
}

// phasePatch converts step fields to an edit_phase patch. Only the editable
// phase keys are accepted.
func phasePatch(fields map[string]any) (visual.PhasePatch, error) {
	var patch visual.PhasePatch
	obj, err := ir.ObjectFromGo(fields)
	if err != nil {
		return patch, visual.Errorf(visual.ErrValidationFailed, OpEditPhase, "fields: %v", err)
	}

	for k, v := range obj {
		switch k {
		case ir.KeyName:
			s, err := stringValue(k, v)
			if err != nil {
				return patch, err
			}
			patch.Name = &s
		case ir.KeyPhaseType:
			s, err := stringValue(k, v)
			if err != nil {
				return patch, err
			}
			t := ir.PhaseType(s)
			patch.PhaseType = &t
		case ir.KeyIncomingSlotCount, ir.KeyAdvancingSlotCount, ir.KeyPoolCount,
			ir.KeyBestOf, ir.KeyMatchDurationMinutes:
			n, err := intValue(k, v)
			if err != nil {
				return patch, err
			}
			switch k {
			case ir.KeyIncomingSlotCount:
				patch.IncomingSlotCount = &n
			case ir.KeyAdvancingSlotCount:
				patch.AdvancingSlotCount = &n
			case ir.KeyPoolCount:
				patch.PoolCount = &n
			case ir.KeyBestOf:
				patch.BestOf = &n
			case ir.KeyMatchDurationMinutes:
				patch.MatchDurationMinutes = &n
			}
		default:
			return patch, visual.Errorf(visual.ErrValidationFailed, OpEditPhase, "%q is not an editable phase field", k)
		}
	}
	return patch, nil
}

func stringValue(key string, v ir.IRValue) (string, error) {
	s, ok := v.(ir.IRString)
	if !ok {
		return "", visual.Errorf(visual.ErrValidationFailed, "fields", "%q must be a string", key)
	}
	return string(s), nil
}

func intValue(key string, v ir.IRValue) (int64, error) {
	n, ok := v.(ir.IRInt)
	if !ok {
		return 0, visual.Errorf(visual.ErrValidationFailed, "fields", "%q must be an integer", key)
	}
	return int64(n), nil
}
