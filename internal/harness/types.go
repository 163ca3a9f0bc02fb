package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int    `json:"seq"`
	Op      string `json:"op"`
	Ref     string `json:"ref,omitempty"` // Node or edge id the step created or touched
	Outcome string `json:"outcome"`       // "ok" or the error kind
	Phases  int    `json:"phases"`        // Phase count after the step
	Rules   int    `json:"rules"`         // Rule count after the step
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace lists the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Document is the final document text and Mode the final editor mode.
	Document string `json:"document"`
	Mode     string `json:"mode"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(op, ref, outcome string, phases, rules int) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     len(r.Trace) + 1,
		Op:      op,
		Ref:     ref,
		Outcome: outcome,
		Phases:  phases,
		Rules:   rules,
	})
}
