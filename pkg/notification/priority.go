package notification

// Priority orders tasks across queue tiers. Higher values strictly preempt
// lower ones at dequeue time.
type Priority int8

const (
	PriorityLow    Priority = 0
	PriorityMedium Priority = 1
	PriorityHigh   Priority = 2
	PriorityUrgent Priority = 3

	PriorityDefault = PriorityMedium
)

// Valid reports whether p is one of the four known tiers.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// ParsePriority maps a wire value to a Priority, falling back to the default
// tier for unknown input.
func ParsePriority(s string) Priority {
	switch s {
	case "low":
		return PriorityLow
	case "medium":
		return PriorityMedium
	case "high":
		return PriorityHigh
	case "urgent":
		return PriorityUrgent
	default:
		return PriorityDefault
	}
}

// MarshalText implements encoding.TextMarshaler so priorities serialize as
// their names rather than raw integers.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(b []byte) error {
	*p = ParsePriority(string(b))
	return nil
}
