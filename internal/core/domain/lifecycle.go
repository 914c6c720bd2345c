package domain

// transitionTable lists, per status, the statuses an entity may move to.
type transitionTable[S ~string] map[S][]S

func (t transitionTable[S]) allows(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// guard returns an InvalidTransitionError naming the current status unless
// from -> to is an edge of the table.
func (t transitionTable[S]) guard(entity, operation string, from, to S) error {
	if t.allows(from, to) {
		return nil
	}
	return &InvalidTransitionError{
		Entity:    entity,
		Operation: operation,
		Current:   string(from),
	}
}

// terminal reports whether s has no outgoing edges.
func (t transitionTable[S]) terminal(s S) bool {
	return len(t[s]) == 0
}
