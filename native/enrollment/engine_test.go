package enrollment

import (
	"errors"
	"math/big"
	"testing"

	"campuschain/native/registry"
	"campuschain/native/term"
)

type mockState struct {
	terms         map[uint64]*term.Term
	courses       map[uint64]map[uint64]*Course
	index         map[uint64][]uint64
	seats         map[uint64]map[uint64]*Seat
	seatSeq       map[uint64]uint64
	studentSeats  map[uint64][]SeatRef
	tokens        map[string]map[uint64]*registry.Token
	tokensByOwner map[string]map[[20]byte]uint64
}

func newMockState() *mockState {
	return &mockState{
		terms:         make(map[uint64]*term.Term),
		courses:       make(map[uint64]map[uint64]*Course),
		index:         make(map[uint64][]uint64),
		seats:         make(map[uint64]map[uint64]*Seat),
		seatSeq:       make(map[uint64]uint64),
		studentSeats:  make(map[uint64][]SeatRef),
		tokens:        make(map[string]map[uint64]*registry.Token),
		tokensByOwner: make(map[string]map[[20]byte]uint64),
	}
}

func (m *mockState) TermGet(id uint64) (*term.Term, bool, error) {
	t, ok := m.terms[id]
	if !ok {
		return nil, false, nil
	}
	return t.Clone(), true, nil
}

func (m *mockState) CoursePut(termID uint64, course *Course) error {
	if m.courses[termID] == nil {
		m.courses[termID] = make(map[uint64]*Course)
	}
	m.courses[termID][course.ID] = course.Clone()
	return nil
}

func (m *mockState) CourseGet(termID, courseID uint64) (*Course, bool, error) {
	course, ok := m.courses[termID][courseID]
	if !ok {
		return nil, false, nil
	}
	return course.Clone(), true, nil
}

func (m *mockState) CourseIndexAppend(termID, courseID uint64) error {
	m.index[termID] = append(m.index[termID], courseID)
	return nil
}

func (m *mockState) CourseIndex(termID uint64) ([]uint64, error) {
	return append([]uint64(nil), m.index[termID]...), nil
}

func (m *mockState) SeatPut(termID uint64, seat *Seat) error {
	if m.seats[termID] == nil {
		m.seats[termID] = make(map[uint64]*Seat)
	}
	m.seats[termID][seat.ID] = seat.Clone()
	return nil
}

func (m *mockState) SeatGet(termID, seatID uint64) (*Seat, bool, error) {
	seat, ok := m.seats[termID][seatID]
	if !ok {
		return nil, false, nil
	}
	return seat.Clone(), true, nil
}

func (m *mockState) SeatNextID(termID uint64) (uint64, error) {
	m.seatSeq[termID]++
	return m.seatSeq[termID], nil
}

func (m *mockState) StudentSeatAppend(studentToken uint64, ref SeatRef) error {
	m.studentSeats[studentToken] = append(m.studentSeats[studentToken], ref)
	return nil
}

func (m *mockState) StudentSeats(studentToken uint64) ([]SeatRef, error) {
	return append([]SeatRef(nil), m.studentSeats[studentToken]...), nil
}

func (m *mockState) RoleTokenIDByOwner(role string, owner [20]byte) (uint64, bool, error) {
	id, ok := m.tokensByOwner[role][owner]
	return id, ok, nil
}

func (m *mockState) RoleTokenGet(role string, id uint64) (*registry.Token, bool, error) {
	token, ok := m.tokens[role][id]
	if !ok {
		return nil, false, nil
	}
	clone := *token
	return &clone, true, nil
}

func (m *mockState) addToken(role string, id uint64, owner [20]byte) {
	if m.tokens[role] == nil {
		m.tokens[role] = make(map[uint64]*registry.Token)
		m.tokensByOwner[role] = make(map[[20]byte]uint64)
	}
	m.tokens[role][id] = &registry.Token{ID: id, Owner: owner}
	m.tokensByOwner[role][owner] = id
}

func (m *mockState) setTerm(id uint64, phase term.Phase) {
	m.terms[id] = &term.Term{ID: id, Phase: phase}
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func newTestEngine(t *testing.T) (*Engine, *mockState) {
	t.Helper()
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	return engine, state
}

func TestAddCourseGates(t *testing.T) {
	engine, state := newTestEngine(t)

	if err := engine.AddCourse(1, 10, 1, 3, nil); !errors.Is(err, ErrUnknownTerm) {
		t.Fatalf("expected unknown term, got %v", err)
	}

	state.setTerm(1, term.Applying)
	if err := engine.AddCourse(1, 10, 1, 3, nil); !errors.Is(err, ErrNotPlanningPhase) {
		t.Fatalf("expected planning gate, got %v", err)
	}

	state.setTerm(1, term.Planning)
	if err := engine.AddCourse(1, 10, 1, 0, nil); !errors.Is(err, ErrInvalidSeatLimit) {
		t.Fatalf("expected seat limit error, got %v", err)
	}
	if err := engine.AddCourse(1, 10, 1, 3, nil); err != nil {
		t.Fatalf("add course: %v", err)
	}
	if err := engine.AddCourse(1, 10, 1, 3, nil); !errors.Is(err, ErrDuplicateCourse) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	ids, err := engine.Courses(1)
	if err != nil || len(ids) != 1 || ids[0] != 10 {
		t.Fatalf("unexpected course index %v (%v)", ids, err)
	}
}

func TestAddCourseOnClosedTerm(t *testing.T) {
	engine, state := newTestEngine(t)
	state.terms[1] = &term.Term{ID: 1, Phase: term.OffSeason, Closed: true}
	if err := engine.AddCourse(1, 10, 1, 3, nil); !errors.Is(err, ErrTermClosed) {
		t.Fatalf("expected closed term, got %v", err)
	}
}

func TestApplyDenseIndexRule(t *testing.T) {
	engine, state := newTestEngine(t)
	state.setTerm(1, term.Planning)
	if err := engine.AddCourse(1, 10, 1, 2, nil); err != nil {
		t.Fatalf("add course: %v", err)
	}
	state.setTerm(1, term.Applying)

	// Slot 2 before slot 1 would leave a gap.
	if _, err := engine.Apply(1, 10, 2, 101); !errors.Is(err, ErrIndexTooHigh) {
		t.Fatalf("expected index too high, got %v", err)
	}
	if _, err := engine.Apply(1, 10, 0, 101); !errors.Is(err, ErrIndexTooHigh) {
		t.Fatalf("expected index too high for slot 0, got %v", err)
	}
	if _, err := engine.Apply(1, 10, 1, 101); err != nil {
		t.Fatalf("apply slot 1: %v", err)
	}
	if _, err := engine.Apply(1, 10, 2, 102); err != nil {
		t.Fatalf("apply slot 2: %v", err)
	}
	// Seat limit caps the reachable index even with a full prefix.
	if _, err := engine.Apply(1, 10, 3, 103); !errors.Is(err, ErrIndexTooHigh) {
		t.Fatalf("expected seat limit cap, got %v", err)
	}
	// A student already on the waitlist cannot apply twice, even at a bad
	// index the bound check rejects first.
	if _, err := engine.Apply(1, 10, 3, 101); !errors.Is(err, ErrIndexTooHigh) {
		t.Fatalf("expected bound check before duplicate scan, got %v", err)
	}
	if _, err := engine.Apply(1, 10, 1, 102); !errors.Is(err, ErrDuplicateApplicant) {
		t.Fatalf("expected duplicate applicant, got %v", err)
	}
}

func TestApplyOverwriteEvicts(t *testing.T) {
	engine, state := newTestEngine(t)
	state.setTerm(1, term.Planning)
	if err := engine.AddCourse(1, 10, 1, 3, nil); err != nil {
		t.Fatalf("add course: %v", err)
	}
	state.setTerm(1, term.Applying)

	if _, err := engine.Apply(1, 10, 1, 101); err != nil {
		t.Fatalf("apply: %v", err)
	}
	evicted, err := engine.Apply(1, 10, 1, 102)
	if err != nil {
		t.Fatalf("overwrite apply: %v", err)
	}
	if evicted != 101 {
		t.Fatalf("expected eviction of 101, got %d", evicted)
	}

	course, err := engine.Course(1, 10)
	if err != nil {
		t.Fatalf("course: %v", err)
	}
	if len(course.Waitlist) != 1 || course.Waitlist[0] != 102 {
		t.Fatalf("unexpected waitlist %v", course.Waitlist)
	}
	if len(course.Evicted) != 1 || course.Evicted[0] != 101 {
		t.Fatalf("unexpected evicted list %v", course.Evicted)
	}
}

func TestClaimMintsSeatOnce(t *testing.T) {
	engine, state := newTestEngine(t)
	alice := newTestAddress(0x01)
	bob := newTestAddress(0x02)
	state.addToken(string(registry.RoleStudent), 101, alice)
	state.addToken(string(registry.RoleStudent), 102, bob)

	state.setTerm(1, term.Planning)
	if err := engine.AddCourse(1, 10, 1, 3, nil); err != nil {
		t.Fatalf("add course: %v", err)
	}
	state.setTerm(1, term.Applying)
	if _, err := engine.Apply(1, 10, 1, 101); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// Claiming is a trading operation.
	if _, err := engine.Claim(1, 10, 1, alice); !errors.Is(err, ErrNotTradingPhase) {
		t.Fatalf("expected trading gate, got %v", err)
	}
	state.setTerm(1, term.Trading)

	seat, err := engine.Claim(1, 10, 1, alice)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if seat.StudentToken != 101 || seat.SlotIndex != 1 || seat.Owner != alice {
		t.Fatalf("unexpected seat %+v", seat)
	}
	if _, err := engine.Claim(1, 10, 1, alice); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected already claimed, got %v", err)
	}
	// An unfilled slot never yields a seat.
	if _, err := engine.Claim(1, 10, 2, bob); !errors.Is(err, ErrNoPlace) {
		t.Fatalf("expected no place, got %v", err)
	}

	refs, err := engine.SeatsOf(101)
	if err != nil || len(refs) != 1 || refs[0].SeatID != seat.ID {
		t.Fatalf("unexpected seat refs %v (%v)", refs, err)
	}
}

func TestClaimAfterEviction(t *testing.T) {
	engine, state := newTestEngine(t)
	alice := newTestAddress(0x01)
	bob := newTestAddress(0x02)
	carol := newTestAddress(0x03)
	state.addToken(string(registry.RoleStudent), 101, alice)
	state.addToken(string(registry.RoleStudent), 102, bob)
	state.addToken(string(registry.RoleStudent), 103, carol)

	state.setTerm(1, term.Planning)
	if err := engine.AddCourse(1, 10, 1, 3, nil); err != nil {
		t.Fatalf("add course: %v", err)
	}
	state.setTerm(1, term.Applying)
	if _, err := engine.Apply(1, 10, 1, 101); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := engine.Apply(1, 10, 2, 103); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := engine.Apply(1, 10, 1, 102); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	state.setTerm(1, term.Trading)

	// The evicted student has no claimable place anywhere in the course.
	if _, err := engine.Claim(1, 10, 1, alice); !errors.Is(err, ErrNoPlace) {
		t.Fatalf("expected no place for evicted student, got %v", err)
	}
	// A live applicant claiming someone else's slot is an ownership error.
	if _, err := engine.Claim(1, 10, 1, carol); !errors.Is(err, ErrOwnershipMismatch) {
		t.Fatalf("expected ownership mismatch, got %v", err)
	}
	if _, err := engine.Claim(1, 10, 1, bob); err != nil {
		t.Fatalf("claim by live occupant: %v", err)
	}
}

func TestClaimRequiresStudent(t *testing.T) {
	engine, state := newTestEngine(t)
	state.setTerm(1, term.Trading)
	if _, err := engine.Claim(1, 10, 1, newTestAddress(0x09)); !errors.Is(err, ErrNotStudent) {
		t.Fatalf("expected not student, got %v", err)
	}
}

func TestMarkModes(t *testing.T) {
	engine, state := newTestEngine(t)
	teacher := newTestAddress(0x0A)
	alice := newTestAddress(0x01)
	state.addToken(string(registry.RoleTeacher), 1, teacher)
	state.addToken(string(registry.RoleStudent), 101, alice)

	state.setTerm(1, term.Planning)
	if err := engine.AddCourse(1, 10, 1, 3, nil); err != nil {
		t.Fatalf("add course: %v", err)
	}
	state.setTerm(1, term.Applying)
	if _, err := engine.Apply(1, 10, 1, 101); err != nil {
		t.Fatalf("apply: %v", err)
	}
	state.setTerm(1, term.Trading)
	seat, err := engine.Claim(1, 10, 1, alice)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := engine.Mark(1, seat.ID, teacher, 80); !errors.Is(err, ErrNotActivePhase) {
		t.Fatalf("expected active gate, got %v", err)
	}
	state.setTerm(1, term.Active)

	if err := engine.Mark(1, seat.ID, alice, 80); !errors.Is(err, ErrNotTeacher) {
		t.Fatalf("expected teacher gate, got %v", err)
	}
	if err := engine.Mark(1, seat.ID, teacher, 80); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := engine.Mark(1, seat.ID, teacher, 90); err != nil {
		t.Fatalf("second mark: %v", err)
	}
	got, err := engine.Seat(1, seat.ID)
	if err != nil {
		t.Fatalf("seat: %v", err)
	}
	if !got.Marked || got.Mark != 90 {
		t.Fatalf("overwrite mode: expected mark 90, got %+v", got)
	}

	engine.SetMarkMode(MarkAccumulate)
	if err := engine.Mark(1, seat.ID, teacher, 10); err != nil {
		t.Fatalf("accumulate mark: %v", err)
	}
	got, err = engine.Seat(1, seat.ID)
	if err != nil {
		t.Fatalf("seat: %v", err)
	}
	if got.Mark != 100 {
		t.Fatalf("accumulate mode: expected mark 100, got %d", got.Mark)
	}
}

func TestTransferSeat(t *testing.T) {
	engine, state := newTestEngine(t)
	alice := newTestAddress(0x01)
	bob := newTestAddress(0x02)
	state.addToken(string(registry.RoleStudent), 101, alice)

	state.setTerm(1, term.Planning)
	if err := engine.AddCourse(1, 10, 1, 3, big.NewInt(0)); err != nil {
		t.Fatalf("add course: %v", err)
	}
	state.setTerm(1, term.Applying)
	if _, err := engine.Apply(1, 10, 1, 101); err != nil {
		t.Fatalf("apply: %v", err)
	}
	state.setTerm(1, term.Trading)
	seat, err := engine.Claim(1, 10, 1, alice)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := engine.TransferSeat(1, seat.ID, bob, alice); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	if err := engine.TransferSeat(1, seat.ID, alice, bob); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	got, err := engine.Seat(1, seat.ID)
	if err != nil {
		t.Fatalf("seat: %v", err)
	}
	if got.Owner != bob {
		t.Fatalf("expected bob as owner, got %x", got.Owner)
	}
	// The student token on the seat never changes custody.
	if got.StudentToken != 101 {
		t.Fatalf("student token changed: %d", got.StudentToken)
	}
}
