package term

import "errors"

// Phase represents one stage of the academic term cycle. Phases advance along
// a fixed ring; there is no other legal transition.
type Phase uint8

const (
	OffSeason Phase = iota
	Planning
	Applying
	Trading
	Active
)

// Valid reports whether the phase value is within the supported range.
func (p Phase) Valid() bool {
	switch p {
	case OffSeason, Planning, Applying, Trading, Active:
		return true
	default:
		return false
	}
}

func (p Phase) String() string {
	switch p {
	case OffSeason:
		return "offseason"
	case Planning:
		return "planning"
	case Applying:
		return "applying"
	case Trading:
		return "trading"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// ParsePhase resolves a phase from its string form.
func ParsePhase(s string) (Phase, bool) {
	switch s {
	case "offseason":
		return OffSeason, true
	case "planning":
		return Planning, true
	case "applying":
		return Applying, true
	case "trading":
		return Trading, true
	case "active":
		return Active, true
	default:
		return OffSeason, false
	}
}

// Next returns the successor phase on the ring.
func (p Phase) Next() Phase {
	if p == Active {
		return OffSeason
	}
	return p + 1
}

var (
	// ErrTermEnded signals an advance request against a term that already
	// completed its cycle.
	ErrTermEnded = errors.New("term: semester has already ended")
	// ErrInvalidPhase signals a stored phase outside the supported ring.
	ErrInvalidPhase = errors.New("term: invalid phase")
)

// Term is the durable record for one enrollment cycle. A term is created in
// Planning by the orchestrator and closes permanently when the ring returns to
// the off season.
type Term struct {
	ID     uint64
	Phase  Phase
	Closed bool
}

// Clone returns a copy callers can mutate safely.
func (t *Term) Clone() *Term {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// Advance moves the term one step along the ring. Advancing a closed term
// fails with ErrTermEnded. Reaching the off season closes the term for good.
func (t *Term) Advance() (Phase, error) {
	if t == nil || t.Closed {
		return OffSeason, ErrTermEnded
	}
	if !t.Phase.Valid() {
		return t.Phase, ErrInvalidPhase
	}
	t.Phase = t.Phase.Next()
	if t.Phase == OffSeason {
		t.Closed = true
	}
	return t.Phase, nil
}
