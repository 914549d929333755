package types

// Priority ranks a CrawlRequest relative to others in the same frontier.
// Engines are free to ignore it (the core scheduler is FIFO per spec) but
// it is threaded through so a caller-supplied scheduler extension can use
// it, and so it survives round-trips through a result sink.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// String renders the priority using its wire value.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityUrgent:
		return "URGENT"
	default:
		return "NORMAL"
	}
}

// ParsePriority parses the wire value produced by String, defaulting to
// PriorityNormal for anything unrecognised.
func ParsePriority(s string) Priority {
	switch s {
	case "LOW":
		return PriorityLow
	case "HIGH":
		return PriorityHigh
	case "URGENT":
		return PriorityUrgent
	default:
		return PriorityNormal
	}
}
