package events

import (
	"strconv"

	"campuschain/core/types"
	"campuschain/crypto"
)

const (
	TypeCourseAdded   = "enrollment.course.added"
	TypeCourseApplied = "enrollment.course.applied"
	TypeSeatClaimed   = "enrollment.seat.claimed"
	TypeSeatMarked    = "enrollment.seat.marked"
	TypeSeatMoved     = "enrollment.seat.transferred"
)

// CourseAdded is emitted when a teacher registers a course for the term.
type CourseAdded struct {
	TermID    uint64
	CourseID  uint64
	SeatLimit uint64
}

// EventType implements the Event interface.
func (CourseAdded) EventType() string { return TypeCourseAdded }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e CourseAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeCourseAdded,
		Attributes: map[string]string{
			"termId":    strconv.FormatUint(e.TermID, 10),
			"courseId":  strconv.FormatUint(e.CourseID, 10),
			"seatLimit": strconv.FormatUint(e.SeatLimit, 10),
		},
	}
}

// CourseApplied is emitted when a student takes (or takes over) a waitlist slot.
type CourseApplied struct {
	TermID       uint64
	CourseID     uint64
	SlotIndex    uint64
	StudentToken uint64
	Evicted      uint64
}

// EventType implements the Event interface.
func (CourseApplied) EventType() string { return TypeCourseApplied }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e CourseApplied) Event() *types.Event {
	attrs := map[string]string{
		"termId":       strconv.FormatUint(e.TermID, 10),
		"courseId":     strconv.FormatUint(e.CourseID, 10),
		"slotIndex":    strconv.FormatUint(e.SlotIndex, 10),
		"studentToken": strconv.FormatUint(e.StudentToken, 10),
	}
	if e.Evicted != 0 {
		attrs["evictedToken"] = strconv.FormatUint(e.Evicted, 10)
	}
	return &types.Event{Type: TypeCourseApplied, Attributes: attrs}
}

// SeatClaimed is emitted when a waitlisted student converts a slot into a seat token.
type SeatClaimed struct {
	TermID    uint64
	CourseID  uint64
	SlotIndex uint64
	SeatID    uint64
	Owner     [20]byte
}

// EventType implements the Event interface.
func (SeatClaimed) EventType() string { return TypeSeatClaimed }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e SeatClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeSeatClaimed,
		Attributes: map[string]string{
			"termId":    strconv.FormatUint(e.TermID, 10),
			"courseId":  strconv.FormatUint(e.CourseID, 10),
			"slotIndex": strconv.FormatUint(e.SlotIndex, 10),
			"seatId":    strconv.FormatUint(e.SeatID, 10),
			"owner":     crypto.NewAddress(crypto.CampusPrefix, e.Owner[:]).String(),
		},
	}
}

// SeatMarked is emitted when the owning teacher records a grade on a seat.
type SeatMarked struct {
	TermID uint64
	SeatID uint64
	Grade  uint64
}

// EventType implements the Event interface.
func (SeatMarked) EventType() string { return TypeSeatMarked }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e SeatMarked) Event() *types.Event {
	return &types.Event{
		Type: TypeSeatMarked,
		Attributes: map[string]string{
			"termId": strconv.FormatUint(e.TermID, 10),
			"seatId": strconv.FormatUint(e.SeatID, 10),
			"grade":  strconv.FormatUint(e.Grade, 10),
		},
	}
}

// SeatMoved is emitted on a seat token ownership transfer during trading.
type SeatMoved struct {
	TermID uint64
	SeatID uint64
	From   [20]byte
	To     [20]byte
}

// EventType implements the Event interface.
func (SeatMoved) EventType() string { return TypeSeatMoved }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e SeatMoved) Event() *types.Event {
	return &types.Event{
		Type: TypeSeatMoved,
		Attributes: map[string]string{
			"termId": strconv.FormatUint(e.TermID, 10),
			"seatId": strconv.FormatUint(e.SeatID, 10),
			"from":   crypto.NewAddress(crypto.CampusPrefix, e.From[:]).String(),
			"to":     crypto.NewAddress(crypto.CampusPrefix, e.To[:]).String(),
		},
	}
}
