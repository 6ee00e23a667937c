package enrollment

import (
	"errors"
	"fmt"
	"math/big"

	"campuschain/core/events"
	"campuschain/native/registry"
	"campuschain/native/term"
)

var (
	errNilState = errors.New("enrollment: state not configured")

	// Phase violations. Every mutating operation is legal in exactly one
	// phase of the term ring.
	ErrNotPlanningPhase = errors.New("enrollment: not the planning state")
	ErrNotApplyingPhase = errors.New("enrollment: not the applying state")
	ErrNotTradingPhase  = errors.New("enrollment: not the trading state")
	ErrNotActivePhase   = errors.New("enrollment: not the active state")

	// ErrUnknownTerm signals an operation against a term id that was never
	// created.
	ErrUnknownTerm = errors.New("enrollment: unknown term")
	// ErrTermClosed signals a mutation against a historical term.
	ErrTermClosed = errors.New("enrollment: term is closed")

	// ErrDuplicateCourse signals a second registration of a course id
	// within one term.
	ErrDuplicateCourse = errors.New("enrollment: course already added")
	// ErrUnknownCourse signals an operation against a course id absent
	// from the term.
	ErrUnknownCourse = errors.New("enrollment: no course with this id")
	// ErrInvalidSeatLimit rejects courses without a single seat.
	ErrInvalidSeatLimit = errors.New("enrollment: seat limit must be positive")

	// ErrIndexTooHigh rejects applications that would leave a gap in the
	// waitlist or exceed the seat limit.
	ErrIndexTooHigh = errors.New("enrollment: index too high to apply")
	// ErrDuplicateApplicant rejects a second application by a student who
	// already occupies a slot in the course.
	ErrDuplicateApplicant = errors.New("enrollment: student already applied")

	// ErrNotStudent signals a caller without a student identity token.
	ErrNotStudent = errors.New("enrollment: caller must be a student")
	// ErrNotTeacher signals a caller who does not own the course's teacher
	// token.
	ErrNotTeacher = errors.New("enrollment: caller must be the course teacher")
	// ErrOwnershipMismatch signals a claim against a slot held by a
	// different, still-live applicant.
	ErrOwnershipMismatch = errors.New("enrollment: not the owner of this slot")
	// ErrNoPlace signals a claim by a student with no live place at the
	// slot: the slot was never filled, or the student was evicted by a
	// later applicant.
	ErrNoPlace = errors.New("enrollment: no place in this course")
	// ErrAlreadyClaimed signals a second claim of the same slot.
	ErrAlreadyClaimed = errors.New("enrollment: slot already claimed")
	// ErrUnknownSeat signals an operation against a seat token that was
	// never minted.
	ErrUnknownSeat = errors.New("enrollment: no seat with this id")
	// ErrNotOwner signals a transfer from an address that does not hold
	// the seat.
	ErrNotOwner = errors.New("enrollment: sender does not own the seat")
)

// State is the storage surface the enrollment ledger relies on. It is
// implemented by the core state manager; engine tests supply an in-memory
// double.
type State interface {
	TermGet(id uint64) (*term.Term, bool, error)
	CoursePut(termID uint64, course *Course) error
	CourseGet(termID, courseID uint64) (*Course, bool, error)
	CourseIndexAppend(termID, courseID uint64) error
	CourseIndex(termID uint64) ([]uint64, error)
	SeatPut(termID uint64, seat *Seat) error
	SeatGet(termID, seatID uint64) (*Seat, bool, error)
	SeatNextID(termID uint64) (uint64, error)
	StudentSeatAppend(studentToken uint64, ref SeatRef) error
	StudentSeats(studentToken uint64) ([]SeatRef, error)
	RoleTokenIDByOwner(role string, owner [20]byte) (uint64, bool, error)
	RoleTokenGet(role string, id uint64) (*registry.Token, bool, error)
}

// Engine is the per-term enrollment ledger: course catalog for the term,
// index-addressed waitlists, minted seat tokens and recorded grades. All
// operations are phase gated against the term's own state; the orchestrator
// guarantees only the active term is passed in for mutation.
type Engine struct {
	state    State
	emitter  events.Emitter
	markMode MarkMode
}

// NewEngine creates an enrollment engine with a no-op emitter and overwrite
// mark semantics.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetMarkMode selects overwrite or accumulate grading semantics.
func (e *Engine) SetMarkMode(mode MarkMode) {
	if mode.Valid() {
		e.markMode = mode
	}
}

func (e *Engine) termInPhase(termID uint64, want term.Phase, phaseErr error) (*term.Term, error) {
	t, ok, err := e.state.TermGet(termID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTerm, termID)
	}
	if t.Closed {
		return nil, ErrTermClosed
	}
	if t.Phase != want {
		return nil, phaseErr
	}
	return t, nil
}

func (e *Engine) studentTokenOf(caller [20]byte) (uint64, error) {
	token, ok, err := e.state.RoleTokenIDByOwner(string(registry.RoleStudent), caller)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotStudent
	}
	return token, nil
}

// AddCourse registers a catalog course into the term with the given seat
// limit and optional per-application price. Legal only during planning.
// Teacher authorization happens at the orchestrator boundary; the engine
// records the verified teacher token.
func (e *Engine) AddCourse(termID, courseID, teacherToken, seatLimit uint64, price *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if _, err := e.termInPhase(termID, term.Planning, ErrNotPlanningPhase); err != nil {
		return err
	}
	if seatLimit == 0 {
		return ErrInvalidSeatLimit
	}
	if _, ok, err := e.state.CourseGet(termID, courseID); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %d", ErrDuplicateCourse, courseID)
	}
	course := &Course{
		ID:           courseID,
		TeacherToken: teacherToken,
		SeatLimit:    seatLimit,
		Price:        big.NewInt(0),
	}
	if price != nil {
		if price.Sign() < 0 {
			return fmt.Errorf("enrollment: negative course price")
		}
		course.Price = new(big.Int).Set(price)
	}
	if err := e.state.CoursePut(termID, course); err != nil {
		return err
	}
	if err := e.state.CourseIndexAppend(termID, courseID); err != nil {
		return err
	}
	e.emitter.Emit(events.CourseAdded{TermID: termID, CourseID: courseID, SeatLimit: seatLimit})
	return nil
}

// Apply writes the student token into the waitlist slot. Slots fill strictly
// left to right: an application may target at most one past the highest used
// index, capped by the seat limit. Applying at an occupied, unclaimed slot
// overwrites it; the previous occupant is evicted and keeps no claimable
// place. The evicted token (0 when none) is returned so the orchestrator can
// unwind any escrowed payment.
func (e *Engine) Apply(termID, courseID, slotIndex, studentToken uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if _, err := e.termInPhase(termID, term.Applying, ErrNotApplyingPhase); err != nil {
		return 0, err
	}
	course, ok, err := e.state.CourseGet(termID, courseID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownCourse, courseID)
	}
	highest := course.HighestUsedIndex()
	limit := course.SeatLimit
	if next := highest + 1; next < limit {
		limit = next
	}
	if slotIndex == 0 || slotIndex > limit {
		return 0, ErrIndexTooHigh
	}
	for _, occupant := range course.Waitlist {
		if occupant == studentToken {
			return 0, ErrDuplicateApplicant
		}
	}
	var evicted uint64
	if slotIndex <= highest {
		evicted = course.Waitlist[slotIndex-1]
		course.Waitlist[slotIndex-1] = studentToken
		course.Evicted = append(course.Evicted, evicted)
	} else {
		course.Waitlist = append(course.Waitlist, studentToken)
		course.Claimed = append(course.Claimed, false)
		course.SlotSeats = append(course.SlotSeats, 0)
	}
	if err := e.state.CoursePut(termID, course); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.CourseApplied{
		TermID:       termID,
		CourseID:     courseID,
		SlotIndex:    slotIndex,
		StudentToken: studentToken,
		Evicted:      evicted,
	})
	return evicted, nil
}

// Claim converts a waitlist slot into a minted seat token for the calling
// student. Legal only during trading; each slot yields exactly one seat.
func (e *Engine) Claim(termID, courseID, slotIndex uint64, caller [20]byte) (*Seat, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if _, err := e.termInPhase(termID, term.Trading, ErrNotTradingPhase); err != nil {
		return nil, err
	}
	callerToken, err := e.studentTokenOf(caller)
	if err != nil {
		return nil, err
	}
	course, ok, err := e.state.CourseGet(termID, courseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCourse, courseID)
	}
	if slotIndex == 0 || slotIndex > course.HighestUsedIndex() {
		return nil, ErrNoPlace
	}
	if course.Claimed[slotIndex-1] {
		return nil, ErrAlreadyClaimed
	}
	if course.Waitlist[slotIndex-1] != callerToken {
		// An evicted applicant has no claimable place anywhere; a student
		// whose live place is at another index is merely claiming the
		// wrong slot.
		for _, evicted := range course.Evicted {
			if evicted == callerToken {
				return nil, ErrNoPlace
			}
		}
		return nil, ErrOwnershipMismatch
	}
	seatID, err := e.state.SeatNextID(termID)
	if err != nil {
		return nil, err
	}
	seat := &Seat{
		ID:           seatID,
		TermID:       termID,
		CourseID:     courseID,
		SlotIndex:    slotIndex,
		StudentToken: callerToken,
		Owner:        caller,
	}
	if err := e.state.SeatPut(termID, seat); err != nil {
		return nil, err
	}
	course.Claimed[slotIndex-1] = true
	course.SlotSeats[slotIndex-1] = seatID
	if err := e.state.CoursePut(termID, course); err != nil {
		return nil, err
	}
	if err := e.state.StudentSeatAppend(callerToken, SeatRef{TermID: termID, SeatID: seatID}); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.SeatClaimed{
		TermID:    termID,
		CourseID:  courseID,
		SlotIndex: slotIndex,
		SeatID:    seatID,
		Owner:     caller,
	})
	return seat.Clone(), nil
}

// Mark records a grade on a seat token. Legal only while the term is active
// and only for the teacher owning the seat's course.
func (e *Engine) Mark(termID, seatID uint64, caller [20]byte, grade uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if _, err := e.termInPhase(termID, term.Active, ErrNotActivePhase); err != nil {
		return err
	}
	seat, ok, err := e.state.SeatGet(termID, seatID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSeat, seatID)
	}
	course, ok, err := e.state.CourseGet(termID, seat.CourseID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCourse, seat.CourseID)
	}
	teacher, ok, err := e.state.RoleTokenGet(string(registry.RoleTeacher), course.TeacherToken)
	if err != nil {
		return err
	}
	if !ok || teacher.Owner != caller {
		return ErrNotTeacher
	}
	if e.markMode == MarkAccumulate && seat.Marked {
		seat.Mark += grade
	} else {
		seat.Mark = grade
	}
	seat.Marked = true
	if err := e.state.SeatPut(termID, seat); err != nil {
		return err
	}
	e.emitter.Emit(events.SeatMarked{TermID: termID, SeatID: seatID, Grade: seat.Mark})
	return nil
}

// TransferSeat moves seat custody between addresses. Legal only during
// trading; callers are authorized at the orchestrator boundary (the holder,
// or the marketplace moving escrowed seats).
func (e *Engine) TransferSeat(termID, seatID uint64, from, to [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if _, err := e.termInPhase(termID, term.Trading, ErrNotTradingPhase); err != nil {
		return err
	}
	seat, ok, err := e.state.SeatGet(termID, seatID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSeat, seatID)
	}
	if seat.Owner != from {
		return ErrNotOwner
	}
	seat.Owner = to
	if err := e.state.SeatPut(termID, seat); err != nil {
		return err
	}
	e.emitter.Emit(events.SeatMoved{TermID: termID, SeatID: seatID, From: from, To: to})
	return nil
}

// Course returns a copy of the term's course record. Historical terms stay
// queryable.
func (e *Engine) Course(termID, courseID uint64) (*Course, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	course, ok, err := e.state.CourseGet(termID, courseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCourse, courseID)
	}
	return course.Clone(), nil
}

// Courses returns the ids of every course registered in the term.
func (e *Engine) Courses(termID uint64) ([]uint64, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.CourseIndex(termID)
}

// Seat returns a copy of the seat token.
func (e *Engine) Seat(termID, seatID uint64) (*Seat, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	seat, ok, err := e.state.SeatGet(termID, seatID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSeat, seatID)
	}
	return seat.Clone(), nil
}

// SeatsOf returns the seats claimed by the student token across all terms.
func (e *Engine) SeatsOf(studentToken uint64) ([]SeatRef, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.StudentSeats(studentToken)
}
