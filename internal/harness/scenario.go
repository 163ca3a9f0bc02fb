package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted editing session with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Template is a path to a JSON document, relative to the scenario file.
	Template string `yaml:"template,omitempty"`

	// Document is an inline JSON document. At most one of Template and
	// Document may be set.
	Document string `yaml:"document,omitempty"`

	// DropDangling parses the starting document with DanglingDrop.
	DropDangling bool `yaml:"drop_dangling,omitempty"`

	// IDPrefix prefixes generated node and edge ids. Defaults to "n".
	IDPrefix string `yaml:"id_prefix,omitempty"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one edit operation.
type Step struct {
	// Op names the operation (see the Op* constants).
	Op string `yaml:"op"`

	// As binds the node or edge created by add_phase or add_rule to an alias.
	As string `yaml:"as,omitempty"`

	// Phase references the node an operation acts on.
	Phase string `yaml:"phase,omitempty"`

	// Rule references the edge an operation acts on.
	Rule string `yaml:"rule,omitempty"`

	// Source and Target reference rule endpoints.
	Source string `yaml:"source,omitempty"`
	Target string `yaml:"target,omitempty"`

	// Index is the destination position for reorder_phase.
	Index *int `yaml:"index,omitempty"`

	// X and Y are the canvas position for move_phase.
	X int64 `yaml:"x,omitempty"`
	Y int64 `yaml:"y,omitempty"`

	// Fields are phase values for add_phase and edit_phase, keyed by
	// document key (name, phaseType, incomingSlotCount, ...).
	Fields map[string]any `yaml:"fields,omitempty"`

	// Payload is the rule payload for add_rule and edit_rule.
	Payload map[string]any `yaml:"payload,omitempty"`

	// Text replaces the raw document text for raw_text.
	Text string `yaml:"text,omitempty"`

	// Flexible is the isFlexible value for set_flexible; omitted clears it.
	Flexible *bool `yaml:"flexible,omitempty"`

	// ExpectError names the error kind the step must fail with (see the
	// Kind* constants). Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step operations.
const (
	OpAddPhase     = "add_phase"
	OpRemovePhase  = "remove_phase"
	OpEditPhase    = "edit_phase"
	OpReorderPhase = "reorder_phase"
	OpMovePhase    = "move_phase"
	OpAddRule      = "add_rule"
	OpRemoveRule   = "remove_rule"
	OpEditRule     = "edit_rule"
	OpRetargetRule = "retarget_rule"
	OpSetFlexible  = "set_flexible"
	OpToRaw        = "to_raw"
	OpRawText      = "raw_text"
	OpToVisual     = "to_visual"
)

// Assertion validates the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "phase_count": exactly Count phases
	// - "rule_count": exactly Count rules
	// - "phase": the phase at Order has the given Fields
	// - "rule": a rule joins Source and Target orders, with Payload values
	// - "mode": the editor is in Mode
	// - "text_contains": the document text contains Text
	// - "equivalent": the state is equivalent to Document
	Type string `yaml:"type"`

	Count    *int           `yaml:"count,omitempty"`
	Order    int64          `yaml:"order,omitempty"`
	Fields   map[string]any `yaml:"fields,omitempty"`
	Source   int64          `yaml:"source,omitempty"`
	Target   int64          `yaml:"target,omitempty"`
	Payload  map[string]any `yaml:"payload,omitempty"`
	Mode     string         `yaml:"mode,omitempty"`
	Text     string         `yaml:"text,omitempty"`
	Document string         `yaml:"document,omitempty"`
}

// Assertion type constants.
const (
	AssertPhaseCount   = "phase_count"
	AssertRuleCount    = "rule_count"
	AssertPhase        = "phase"
	AssertRule         = "rule"
	AssertMode         = "mode"
	AssertTextContains = "text_contains"
	AssertEquivalent   = "equivalent"
)

// LoadScenario reads and parses a scenario YAML file. A relative Template
// path is resolved against the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Template != "" && !filepath.IsAbs(scenario.Template) {
		scenario.Template = filepath.Join(filepath.Dir(path), scenario.Template)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Script is a bare list of steps, as read by the edit command.
type Script struct {
	Steps []Step `yaml:"steps"`
}

// LoadScript reads and validates an edit script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}

	var script Script
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&script); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("invalid script: no steps")
	}
	for i, step := range script.Steps {
		if err := validateStep(step, i); err != nil {
			return nil, fmt.Errorf("invalid script: %w", err)
		}
	}
	return &script, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Template != "" && s.Document != "" {
		return fmt.Errorf("template and document are mutually exclusive")
	}

	for i, step := range s.Steps {
		if err := validateStep(step, i); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step, index int) error {
	require := func(ok bool, what string) error {
		if !ok {
			return fmt.Errorf("steps[%d]: %s is required for %s", index, what, step.Op)
		}
		return nil
	}

	var err error
	switch step.Op {
	case OpAddPhase, OpSetFlexible, OpToRaw, OpRawText, OpToVisual:
	case OpRemovePhase, OpMovePhase:
		err = require(step.Phase != "", "phase")
	case OpEditPhase:
		if err = require(step.Phase != "", "phase"); err == nil {
			err = require(len(step.Fields) > 0, "fields")
		}
	case OpReorderPhase:
		if err = require(step.Phase != "", "phase"); err == nil {
			err = require(step.Index != nil, "index")
		}
	case OpAddRule:
		if err = require(step.Source != "", "source"); err == nil {
			err = require(step.Target != "", "target")
		}
	case OpRemoveRule, OpEditRule:
		err = require(step.Rule != "", "rule")
	case OpRetargetRule:
		if err = require(step.Rule != "", "rule"); err == nil {
			if err = require(step.Source != "", "source"); err == nil {
				err = require(step.Target != "", "target")
			}
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
	if err != nil {
		return err
	}

	if step.ExpectError != "" && !isKnownKind(step.ExpectError) {
		return fmt.Errorf("steps[%d]: unknown expect_error %q", index, step.ExpectError)
	}
	return nil
}

func validateAssertion(a Assertion, index int) error {
	switch a.Type {
	case AssertPhaseCount, AssertRuleCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for %s", index, a.Type)
		}
	case AssertPhase:
		if len(a.Fields) == 0 {
			return fmt.Errorf("assertions[%d]: fields are required for phase", index)
		}
	case AssertRule:
	case AssertMode:
		if a.Mode != "visual" && a.Mode != "raw" {
			return fmt.Errorf("assertions[%d]: mode must be visual or raw", index)
		}
	case AssertTextContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for text_contains", index)
		}
	case AssertEquivalent:
		if a.Document == "" {
			return fmt.Errorf("assertions[%d]: document is required for equivalent", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
