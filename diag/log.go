package diag

// Log is the append-only diagnostics list of one run. Records that fail
// envelope validation are never surfaced; they are handed to the reject
// callback instead.
type Log struct {
	entries   []Diagnostic
	validator Validator
	onReject  func(Diagnostic, error)
	rejected  int
}

// NewLog creates a log. A nil validator accepts every record.
func NewLog(v Validator, onReject func(Diagnostic, error)) *Log {
	return &Log{validator: v, onReject: onReject}
}

// Add validates and appends d. It reports whether d was accepted.
func (l *Log) Add(d Diagnostic) bool {
	if d.Phase == "" {
		d.Phase = PhaseGenerate
	}
	if l.validator != nil {
		if err := l.validator.Validate(d); err != nil {
			l.rejected++
			if l.onReject != nil {
				l.onReject(d, err)
			}
			return false
		}
	}
	l.entries = append(l.entries, d)
	return true
}

// Entries returns a copy of the accepted records in emission order.
func (l *Log) Entries() []Diagnostic {
	out := make([]Diagnostic, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of accepted records.
func (l *Log) Len() int {
	return len(l.entries)
}

// Rejected returns how many records failed validation.
func (l *Log) Rejected() int {
	return l.rejected
}

// Count returns how many accepted records carry code.
func (l *Log) Count(code Code) int {
	n := 0
	for _, d := range l.entries {
		if d.Code == code {
			n++
		}
	}
	return n
}
