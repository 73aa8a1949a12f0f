package game

// Human-readable names of required settings, in prompt order.
const (
	FieldRange    = "number range"
	FieldTime     = "time limit"
	FieldAttempts = "attempt count"
)

// MissingSettings reports which required settings are unset, in a
// stable order. A nil record yields all fields; callers distinguish
// "no record at all" via ErrNoSettings before calling this.
func MissingSettings(s *Settings) []string {
	if s == nil {
		return []string{FieldRange, FieldTime, FieldAttempts}
	}
	var missing []string
	if s.RangeStart == nil || s.RangeEnd == nil {
		missing = append(missing, FieldRange)
	}
	if s.TimeLimit == nil {
		missing = append(missing, FieldTime)
	}
	if s.Attempts == nil {
		missing = append(missing, FieldAttempts)
	}
	return missing
}
