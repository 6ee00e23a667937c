package enrollment

import "math/big"

// MarkMode selects how repeated grading of the same seat behaves.
type MarkMode uint8

const (
	// MarkOverwrite replaces the recorded grade on every call.
	MarkOverwrite MarkMode = iota
	// MarkAccumulate adds each grade onto the previous total, matching the
	// accumulating transcript variant.
	MarkAccumulate
)

// Valid reports whether the mode is one of the supported values.
func (m MarkMode) Valid() bool {
	return m == MarkOverwrite || m == MarkAccumulate
}

// Course is the per-term enrollment record for one catalog course. The
// waitlist is dense: slot k lives at Waitlist[k-1] and slots fill strictly
// left to right. A slot's occupant may be overwritten by a later applicant
// until the slot is claimed; overwritten tokens are remembered in Evicted so
// their claims can be rejected precisely.
type Course struct {
	ID           uint64
	TeacherToken uint64
	SeatLimit    uint64
	Price        *big.Int
	Waitlist     []uint64
	Claimed      []bool
	SlotSeats    []uint64
	Evicted      []uint64
}

// Clone returns a deep copy callers can mutate safely.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Price != nil {
		clone.Price = new(big.Int).Set(c.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	clone.Waitlist = append([]uint64(nil), c.Waitlist...)
	clone.Claimed = append([]bool(nil), c.Claimed...)
	clone.SlotSeats = append([]uint64(nil), c.SlotSeats...)
	clone.Evicted = append([]uint64(nil), c.Evicted...)
	return &clone
}

// HighestUsedIndex returns the rightmost occupied slot index, 0 when empty.
func (c *Course) HighestUsedIndex() uint64 {
	if c == nil {
		return 0
	}
	return uint64(len(c.Waitlist))
}

// Seat is one confirmed enrollment, minted on claim and owned by whichever
// address currently holds it (the student, or the marketplace in escrow).
type Seat struct {
	ID           uint64
	TermID       uint64
	CourseID     uint64
	SlotIndex    uint64
	StudentToken uint64
	Owner        [20]byte
	Marked       bool
	Mark         uint64
}

// Clone returns a copy callers can mutate safely.
func (s *Seat) Clone() *Seat {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// SeatRef addresses one seat across terms; the per-student index of refs is
// what degree computation walks.
type SeatRef struct {
	TermID uint64
	SeatID uint64
}
