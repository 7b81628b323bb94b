package orders

import "slices"

type Status string

const (
	Pending   Status = "Pending"
	Shipped   Status = "Shipped"
	Completed Status = "Completed"
	Cancelled Status = "Cancelled"
)

// sequence is the fixed total order. A status may only move to a later position.
var sequence = []Status{Pending, Shipped, Completed, Cancelled}

// normalize reads a missing status as Pending.
func normalize(s Status) Status {
	if s == "" {
		return Pending
	}
	return s
}

func (s Status) Known() bool {
	return slices.Contains(sequence, normalize(s))
}

// AvailableTransitions lists every status strictly after current. Cancelled and
// unknown statuses have none.
func AvailableTransitions(current Status) []Status {
	idx := slices.Index(sequence, normalize(current))
	if idx < 0 {
		return []Status{}
	}
	return slices.Clone(sequence[idx+1:])
}

func CanTransition(current, next Status) bool {
	return slices.Contains(AvailableTransitions(current), next)
}
