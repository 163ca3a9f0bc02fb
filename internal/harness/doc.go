// Package harness replays scripted editing sessions against structure
// documents.
//
// A scenario loads a starting document, applies a list of edit steps through
// an editor.Session and checks assertions against the final state. Node ids
// come from a sequence generator, so runs are reproducible and the final
// document plus step trace can be compared against golden files.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: pools_then_final
//	description: "Add a final after the pools"
//	template: documents/pools.json   # or document: '{"phases":[...]}'
//	steps:
//	  - op: add_phase
//	    as: final
//	    fields: { name: Final, phaseType: SingleElimination, incomingSlotCount: 2 }
//	  - op: add_rule
//	    source: 1            # sortOrder, or an alias bound with "as"
//	    target: final
//	    payload: { finishPosition: 1 }
//	  - op: reorder_phase
//	    phase: final
//	    index: 0
//	  - op: to_visual
//	    expect_error: malformed
//	assertions:
//	  - type: phase_count
//	    count: 2
//	  - type: phase
//	    order: 1
//	    fields: { name: Final }
//
// Without template or document the scenario starts from the registry's
// default structure.
//
// # Step Operations
//
//   - add_phase, remove_phase, edit_phase, reorder_phase, move_phase
//   - add_rule, remove_rule, edit_rule, retarget_rule
//   - set_flexible, to_raw, raw_text, to_visual
//
// Phase references are aliases or sort orders at the time the step runs.
// Rule references are aliases or 1-based positions in rule order.
//
// # Assertion Types
//
//   - phase_count, rule_count: exact counts
//   - phase: the phase at a sort order has the given field values
//   - rule: a rule joins two sort orders, optionally with payload values
//   - mode: "visual" or "raw"
//   - text_contains: the current document text contains a substring
//   - equivalent: the state is equivalent to the given document
package harness
