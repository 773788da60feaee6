package approval

// ValidationError indicates malformed or missing approval input. It aborts
// the approval before any mutation occurs.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return "invalid approval input: " + e.Reason
}

// Is matches any ValidationError when the target carries an empty reason
func (e ValidationError) Is(target error) bool {
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}
