package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDocumentSyntax marks text that is not a structure document.
var ErrDocumentSyntax = errors.New("malformed structure document")

func syntaxErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDocumentSyntax, fmt.Sprintf(format, args...))
}

// DecodeDocument parses document text.
//
// The grammar is a JSON object with a required "phases" array, an optional
// "advancementRules" array and an optional "isFlexible" boolean. Known keys
// must carry the expected JSON type; unknown keys are kept in Extra.
// Every failure wraps ErrDocumentSyntax.
func DecodeDocument(text []byte) (StructureDocument, error) {
	trimmed := bytes.TrimSpace(text)
	if len(trimmed) == 0 {
		return StructureDocument{}, syntaxErrorf("empty document")
	}
	if trimmed[0] != '{' {
		return StructureDocument{}, syntaxErrorf("document must be a JSON object")
	}

	var obj IRObject
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return StructureDocument{}, syntaxErrorf("%v", err)
	}
	return DocumentFromIR(obj)
}

// DocumentFromIR converts a decoded object into a StructureDocument.
func DocumentFromIR(obj IRObject) (StructureDocument, error) {
	var doc StructureDocument

	rawPhases, ok := obj[KeyPhases]
	if !ok {
		return doc, syntaxErrorf("missing %q", KeyPhases)
	}
	phases, ok := rawPhases.(IRArray)
	if !ok {
		return doc, syntaxErrorf("%q must be an array", KeyPhases)
	}
	doc.Phases = make([]Phase, 0, len(phases))
	for i, raw := range phases {
		po, ok := raw.(IRObject)
		if !ok {
			return doc, syntaxErrorf("phases[%d] must be an object", i)
		}
		p, err := phaseFromIR(po)
		if err != nil {
			return doc, fmt.Errorf("phases[%d]: %w", i, err)
		}
		doc.Phases = append(doc.Phases, p)
	}

	doc.AdvancementRules = []AdvancementRule{}
	if rawRules, ok := obj[KeyAdvancementRules]; ok {
		rules, ok := rawRules.(IRArray)
		if !ok {
			return doc, syntaxErrorf("%q must be an array", KeyAdvancementRules)
		}
		for i, raw := range rules {
			ro, ok := raw.(IRObject)
			if !ok {
				return doc, syntaxErrorf("advancementRules[%d] must be an object", i)
			}
			r, err := ruleFromIR(ro)
			if err != nil {
				return doc, fmt.Errorf("advancementRules[%d]: %w", i, err)
			}
			doc.AdvancementRules = append(doc.AdvancementRules, r)
		}
	}

	if rawFlex, ok := obj[KeyIsFlexible]; ok {
		b, ok := rawFlex.(IRBool)
		if !ok {
			return doc, syntaxErrorf("%q must be a boolean", KeyIsFlexible)
		}
		flex := bool(b)
		doc.IsFlexible = &flex
	}

	for k, v := range obj {
		switch k {
		case KeyPhases, KeyAdvancementRules, KeyIsFlexible:
			continue
		}
		if doc.Extra == nil {
			doc.Extra = IRObject{}
		}
		doc.Extra[k] = v
	}

	return doc, nil
}

func phaseFromIR(obj IRObject) (Phase, error) {
	var p Phase
	var err error

	name, err := stringField(obj, KeyName)
	if err != nil {
		return p, err
	}
	p.Name = name

	phaseType, err := stringField(obj, KeyPhaseType)
	if err != nil {
		return p, err
	}
	p.PhaseType = PhaseType(phaseType)

	ints := []struct {
		key string
		dst *int64
	}{
		{KeySortOrder, &p.SortOrder},
		{KeyIncomingSlotCount, &p.IncomingSlotCount},
		{KeyAdvancingSlotCount, &p.AdvancingSlotCount},
		{KeyPoolCount, &p.PoolCount},
		{KeyBestOf, &p.BestOf},
		{KeyMatchDurationMinutes, &p.MatchDurationMinutes},
	}
	for _, f := range ints {
		if *f.dst, err = intField(obj, f.key); err != nil {
			return p, err
		}
	}

	for k, v := range obj {
		if isPhaseKey(k) {
			continue
		}
		if p.Extra == nil {
			p.Extra = IRObject{}
		}
		p.Extra[k] = v
	}
	return p, nil
}

func ruleFromIR(obj IRObject) (AdvancementRule, error) {
	var r AdvancementRule
	for _, key := range []string{KeySourcePhaseOrder, KeyTargetPhaseOrder} {
		if _, ok := obj[key]; !ok {
			return r, syntaxErrorf("missing %q", key)
		}
	}

	var err error
	if r.SourcePhaseOrder, err = intField(obj, KeySourcePhaseOrder); err != nil {
		return r, err
	}
	if r.TargetPhaseOrder, err = intField(obj, KeyTargetPhaseOrder); err != nil {
		return r, err
	}

	r.Payload = IRObject{}
	for k, v := range obj {
		if k == KeySourcePhaseOrder || k == KeyTargetPhaseOrder {
			continue
		}
		r.Payload[k] = v
	}
	return r, nil
}

func isPhaseKey(k string) bool {
	switch k {
	case KeyName, KeyPhaseType, KeySortOrder, KeyIncomingSlotCount,
		KeyAdvancingSlotCount, KeyPoolCount, KeyBestOf, KeyMatchDurationMinutes:
		return true
	}
	return false
}

// stringField returns obj[key] as a string; an absent key yields "".
func stringField(obj IRObject, key string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", nil
	}
	s, ok := v.(IRString)
	if !ok {
		return "", syntaxErrorf("%q must be a string", key)
	}
	return string(s), nil
}

// intField returns obj[key] as an integer; an absent key yields 0.
func intField(obj IRObject, key string) (int64, error) {
	v, ok := obj[key]
	if !ok {
		return 0, nil
	}
	n, ok := v.(IRInt)
	if !ok {
		return 0, syntaxErrorf("%q must be an integer", key)
	}
	return int64(n), nil
}

// EncodeDocument writes doc as JSON with a fixed key order: phases,
// advancementRules, isFlexible, then unrecognised keys sorted. Phase keys
// follow the order of the published document example. An empty indent
// produces compact output.
func EncodeDocument(doc StructureDocument, indent string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeKey(&buf, KeyPhases, true)
	buf.WriteByte('[')
	for i, p := range doc.Phases {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writePhase(&buf, p); err != nil {
			return nil, fmt.Errorf("phases[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')

	writeKey(&buf, KeyAdvancementRules, false)
	buf.WriteByte('[')
	for i, r := range doc.AdvancementRules {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeRule(&buf, r); err != nil {
			return nil, fmt.Errorf("advancementRules[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')

	if doc.IsFlexible != nil {
		writeKey(&buf, KeyIsFlexible, false)
		writeBool(&buf, *doc.IsFlexible)
	}

	if err := writeExtra(&buf, doc.Extra); err != nil {
		return nil, err
	}
	buf.WriteByte('}')

	if indent == "" {
		return buf.Bytes(), nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writePhase(buf *bytes.Buffer, p Phase) error {
	buf.WriteByte('{')
	writeKey(buf, KeyName, true)
	if err := writeJSONString(buf, p.Name); err != nil {
		return err
	}
	writeKey(buf, KeyPhaseType, false)
	if err := writeJSONString(buf, string(p.PhaseType)); err != nil {
		return err
	}
	for _, f := range []struct {
		key string
		val int64
	}{
		{KeySortOrder, p.SortOrder},
		{KeyIncomingSlotCount, p.IncomingSlotCount},
		{KeyAdvancingSlotCount, p.AdvancingSlotCount},
		{KeyPoolCount, p.PoolCount},
		{KeyBestOf, p.BestOf},
		{KeyMatchDurationMinutes, p.MatchDurationMinutes},
	} {
		writeKey(buf, f.key, false)
		fmt.Fprintf(buf, "%d", f.val)
	}
	if err := writeExtra(buf, p.Extra); err != nil {
		return err
	}
	buf.WriteByte('}')
	return nil
}

func writeRule(buf *bytes.Buffer, r AdvancementRule) error {
	buf.WriteByte('{')
	writeKey(buf, KeySourcePhaseOrder, true)
	fmt.Fprintf(buf, "%d", r.SourcePhaseOrder)
	writeKey(buf, KeyTargetPhaseOrder, false)
	fmt.Fprintf(buf, "%d", r.TargetPhaseOrder)
	if err := writeExtra(buf, r.Payload); err != nil {
		return err
	}
	buf.WriteByte('}')
	return nil
}

func writeExtra(buf *bytes.Buffer, extra IRObject) error {
	for _, k := range extra.SortedKeys() {
		writeKey(buf, k, false)
		if err := writeIRValue(buf, extra[k]); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
	}
	return nil
}

func writeKey(buf *bytes.Buffer, key string, first bool) {
	if !first {
		buf.WriteByte(',')
	}
	_ = writeJSONString(buf, key)
	buf.WriteByte(':')
}

// ToIR returns the document as an IRObject, the input to canonical hashing.
func (d StructureDocument) ToIR() IRObject {
	phases := make(IRArray, len(d.Phases))
	for i, p := range d.Phases {
		phases[i] = p.ToIR()
	}

	rules := make(IRArray, len(d.AdvancementRules))
	for i, r := range d.AdvancementRules {
		ro := r.Payload.Clone()
		if ro == nil {
			ro = IRObject{}
		}
		ro[KeySourcePhaseOrder] = IRInt(r.SourcePhaseOrder)
		ro[KeyTargetPhaseOrder] = IRInt(r.TargetPhaseOrder)
		rules[i] = ro
	}

	obj := d.Extra.Clone()
	if obj == nil {
		obj = IRObject{}
	}
	obj[KeyPhases] = phases
	obj[KeyAdvancementRules] = rules
	if d.IsFlexible != nil {
		obj[KeyIsFlexible] = IRBool(*d.IsFlexible)
	}
	return obj
}

// ToIR returns the phase as the JSON object the document format uses.
func (p Phase) ToIR() IRObject {
	po := p.Extra.Clone()
	if po == nil {
		po = IRObject{}
	}
	po[KeyName] = IRString(p.Name)
	po[KeyPhaseType] = IRString(p.PhaseType)
	po[KeySortOrder] = IRInt(p.SortOrder)
	po[KeyIncomingSlotCount] = IRInt(p.IncomingSlotCount)
	po[KeyAdvancingSlotCount] = IRInt(p.AdvancingSlotCount)
	po[KeyPoolCount] = IRInt(p.PoolCount)
	po[KeyBestOf] = IRInt(p.BestOf)
	po[KeyMatchDurationMinutes] = IRInt(p.MatchDurationMinutes)
	return po
}

// EqualIgnoringOrder compares every field of two phases except SortOrder.
func (p Phase) EqualIgnoringOrder(q Phase) bool {
	p.SortOrder, q.SortOrder = 0, 0
	return EqualValues(p.ToIR(), q.ToIR())
}

// Equal reports whether two documents carry the same logical content:
// same phases in the same order with the same field values, same rules in
// the same order with the same payloads.
func (d StructureDocument) Equal(other StructureDocument) bool {
	return EqualValues(d.ToIR(), other.ToIR())
}

// MarshalJSON implements json.Marshaler with compact EncodeDocument output.
func (d StructureDocument) MarshalJSON() ([]byte, error) {
	return EncodeDocument(d, "")
}

// UnmarshalJSON implements json.Unmarshaler via DecodeDocument.
func (d *StructureDocument) UnmarshalJSON(data []byte) error {
	doc, err := DecodeDocument(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}
