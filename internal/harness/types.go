package harness

// ErrorSpec is one resolve error reported by a step.
type ErrorSpec struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// StepResult is the observed outcome of one step.
type StepResult struct {
	Action   string      `json:"action"`
	Token    string      `json:"token,omitempty"`
	BatchID  string      `json:"batch_id,omitempty"`
	Seq      int64       `json:"seq,omitempty"`
	Rejected bool        `json:"rejected,omitempty"`
	Order    []int64     `json:"order,omitempty"`
	Changed  []KeySpec   `json:"changed,omitempty"`
	Errors   []ErrorSpec `json:"errors,omitempty"`
}

// FinalItem is one stored row after the last step. A nil SortOrder is a
// null key.
type FinalItem struct {
	ID        int64  `json:"id"`
	SortOrder *int64 `json:"sort_order,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	Steps []StepResult `json:"steps"`

	// Final is the stored list in snapshot order after the last step.
	Final []FinalItem `json:"final"`

	// JournalLength is the number of batches journaled for the list.
	JournalLength int `json:"journal_length"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Final:  []FinalItem{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
