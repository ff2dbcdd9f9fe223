package harness

// TraceEvent is the editor state after one scenario step.
type TraceEvent struct {
	// Seq is the editor clock after the step.
	Seq       int64    `json:"seq"`
	Step      string   `json:"step"`
	Phase     string   `json:"phase,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	Mutations int      `json:"mutations"`
	Citations []string `json:"citations"`
}

// FinalState is the document as the scenario left it.
type FinalState struct {
	Citations    []string `json:"citations"`
	Bibliography string   `json:"bibliography"`
	Decorations  []string `json:"decorations"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Final  FinalState   `json:"final"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
