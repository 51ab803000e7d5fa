package harness

// Trace event types.
const (
	EventCount  = "count"
	EventSelect = "select"
)

// TraceEvent records one command the pager sent to the database.
type TraceEvent struct {
	Type   string         `json:"type"` // "count" or "select"
	SQL    string         `json:"sql"`
	Params map[string]any `json:"params,omitempty"`
	Seq    int64          `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Where and OrderBy are the compiled fragments. OrderBy includes the
	// key column the pager appends.
	Where   string `json:"where"`
	OrderBy string `json:"order_by"`

	// Trace contains the commands run, in order.
	Trace []TraceEvent `json:"trace"`

	// Total and Rows are the paging outcome.
	Total int64            `json:"total"`
	Rows  []map[string]any `json:"rows"`

	// Failure is the compile or paging error, if any.
	Failure error `json:"-"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Rows:   []map[string]any{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addTrace appends a command to the trace.
func (r *Result) addTrace(kind, sql string, params map[string]any) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   kind,
		SQL:    sql,
		Params: params,
		Seq:    int64(len(r.Trace) + 1),
	})
}
