package harness

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates overall scenario success.
	// True if the expectation and every assertion hold.
	Pass bool `json:"pass"`

	// Contradiction is true when the profile compiled to a contradiction.
	Contradiction bool `json:"contradiction"`

	// RowSpecs is the sorted RowSpec listing.
	RowSpecs []string `json:"row_specs"`

	// Rows is the number of rows generated for row assertions.
	Rows int `json:"rows,omitempty"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		RowSpecs: []string{},
		Errors:   []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
