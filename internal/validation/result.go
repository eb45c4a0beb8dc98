// Package validation implements the field validation rule set and the
// validator that applies kind defaults, per-field rules, and settings-derived
// constraints to submitted values.
package validation

// Result holds the outcome of applying one or more validation rules.
// The zero value is not valid; use OK or Fail to construct results.
type Result struct {
	Valid  bool
	Errors []string
}

// OK returns a passing result.
func OK() Result {
	return Result{Valid: true}
}

// Fail returns a failing result with the given error messages.
func Fail(errors ...string) Result {
	return Result{Valid: false, Errors: errors}
}

// Merge combines r with other results. The merge is associative: any failure
// makes the combined result a failure, and error messages concatenate in
// order.
func (r Result) Merge(others ...Result) Result {
	merged := Result{Valid: r.Valid, Errors: append([]string(nil), r.Errors...)}
	for _, o := range others {
		if !o.Valid {
			merged.Valid = false
		}
		merged.Errors = append(merged.Errors, o.Errors...)
	}
	return merged
}
