package harness

import "github.com/roach88/orchestra/internal/ir"

// TraceEvent records one applied step.
type TraceEvent struct {
	Seq     int64    `json:"seq"`               // dispatcher log sequence
	Step    int      `json:"step"`              // index in the scenario steps
	Action  string   `json:"action"`            // action type, e.g. FO_STORE_INSERT
	Store   string   `json:"store"`             // target store or external
	Changed []string `json:"changed,omitempty"` // views that emitted, declaration order
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// DispatcherID identifies the dispatcher the scenario ran on.
	DispatcherID string `json:"dispatcher_id"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures and selector errors.
	Errors []string `json:"errors,omitempty"`

	// Views holds the final resolved entities of each store in insertion
	// order.
	Views map[string]ir.IRArray `json:"views"`

	// Complete holds the ids of each store's entities carrying every
	// completion key.
	Complete map[string][]string `json:"complete"`

	// Missing holds the final missing ids reported to each store.
	Missing map[string][]string `json:"missing"`

	// Digests holds the content digest of each final view. Two runs
	// resolving the same entities agree on it.
	Digests map[string]string `json:"digests"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Views:    make(map[string]ir.IRArray),
		Complete: make(map[string][]string),
		Missing:  make(map[string][]string),
		Digests:  make(map[string]string),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a trace event.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
