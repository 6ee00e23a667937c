package core

import (
	"errors"
	"math/big"
	"testing"

	"campuschain/core/events"
	"campuschain/native/bank"
	"campuschain/native/degree"
	"campuschain/native/enrollment"
	"campuschain/native/term"
	"campuschain/storage"
)

type recordingEmitter struct {
	types []string
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.types = append(r.types, evt.EventType())
}

func testAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func newTestUniversity(t *testing.T) (*University, *recordingEmitter, [20]byte) {
	t.Helper()
	emitter := &recordingEmitter{}
	admin := testAddress(0xAD)
	uni := NewUniversity(storage.NewMemDB(), Config{
		Admin:   admin,
		Emitter: emitter,
	})
	return uni, emitter, admin
}

func mustMint(t *testing.T, u *University, admin, to [20]byte, amount int64) {
	t.Helper()
	if err := u.MintFunds(admin, to, big.NewInt(amount)); err != nil {
		t.Fatalf("mint funds: %v", err)
	}
}

func balance(t *testing.T, u *University, addr [20]byte) int64 {
	t.Helper()
	bal, err := u.BalanceOf(addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal.Int64()
}

func advance(t *testing.T, u *University, admin [20]byte, want term.Phase) {
	t.Helper()
	phase, err := u.Advance(admin)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if phase != want {
		t.Fatalf("advance = %v, want %v", phase, want)
	}
}

func TestAdminAndOffSeasonGates(t *testing.T) {
	uni, _, admin := newTestUniversity(t)
	outsider := testAddress(0x01)

	if _, err := uni.CreateTeacher(outsider, outsider); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected admin gate, got %v", err)
	}
	if _, err := uni.StartTerm(outsider); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected admin gate, got %v", err)
	}
	if err := uni.MintFunds(outsider, outsider, big.NewInt(1)); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected admin gate, got %v", err)
	}

	if _, err := uni.StartTerm(admin); err != nil {
		t.Fatalf("start term: %v", err)
	}
	// Identity issuance and a second term are off-season operations.
	if _, err := uni.CreateStudent(admin, testAddress(0x02)); !errors.Is(err, ErrNotOffSeason) {
		t.Fatalf("expected off-season gate, got %v", err)
	}
	if _, err := uni.StartTerm(admin); !errors.Is(err, ErrNotOffSeason) {
		t.Fatalf("expected off-season gate, got %v", err)
	}
}

func TestAdvanceWithoutOpenTerm(t *testing.T) {
	uni, _, admin := newTestUniversity(t)
	if _, err := uni.Advance(admin); !errors.Is(err, term.ErrTermEnded) {
		t.Fatalf("expected ended term, got %v", err)
	}
}

// TestFullTermLifecycle walks one complete term: planning, application with an
// eviction refund, claiming with fee settlement, marking, closing, and the
// degree issued afterwards.
func TestFullTermLifecycle(t *testing.T) {
	uni, _, admin := newTestUniversity(t)
	teacher := testAddress(0x10)
	bob := testAddress(0x20)
	carol := testAddress(0x30)

	if _, err := uni.CreateTeacher(admin, teacher); err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	bobToken, err := uni.CreateStudent(admin, bob)
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	carolToken, err := uni.CreateStudent(admin, carol)
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	mustMint(t, uni, admin, bob, 100)
	mustMint(t, uni, admin, carol, 100)

	defID, err := uni.RegisterCourse(teacher, 200)
	if err != nil {
		t.Fatalf("register course: %v", err)
	}

	termID, err := uni.StartTerm(admin)
	if err != nil {
		t.Fatalf("start term: %v", err)
	}
	if termID != 1 {
		t.Fatalf("term id = %d, want 1", termID)
	}
	if phase, err := uni.CurrentPhase(); err != nil || phase != term.Planning {
		t.Fatalf("phase = %v, %v; want planning", phase, err)
	}

	if err := uni.AddCourse(teacher, defID, 3, big.NewInt(50)); err != nil {
		t.Fatalf("add course: %v", err)
	}
	if err := uni.AddCourse(bob, defID, 3, nil); !errors.Is(err, enrollment.ErrNotTeacher) {
		t.Fatalf("expected teacher gate, got %v", err)
	}

	advance(t, uni, admin, term.Applying)

	if err := uni.Apply(bob, defID, 1, bobToken); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := balance(t, uni, bob); got != 50 {
		t.Fatalf("bob after escrow = %d, want 50", got)
	}
	// Carol overwrites slot 1; bob is evicted and refunded in the same step.
	if err := uni.Apply(carol, defID, 1, carolToken); err != nil {
		t.Fatalf("apply overwrite: %v", err)
	}
	if got := balance(t, uni, bob); got != 100 {
		t.Fatalf("bob after eviction refund = %d, want 100", got)
	}
	if got := balance(t, uni, carol); got != 50 {
		t.Fatalf("carol after escrow = %d, want 50", got)
	}
	if got := balance(t, uni, uni.CustodyAddress()); got != 50 {
		t.Fatalf("custody = %d, want 50", got)
	}

	advance(t, uni, admin, term.Trading)

	// The evicted applicant has no claimable place anywhere.
	if _, err := uni.Claim(bob, defID, 1); !errors.Is(err, enrollment.ErrNoPlace) {
		t.Fatalf("expected no place for evicted, got %v", err)
	}
	seat, err := uni.Claim(carol, defID, 1)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if seat.StudentToken != carolToken || seat.Owner != carol {
		t.Fatalf("unexpected seat %+v", seat)
	}
	if got := balance(t, uni, teacher); got != 50 {
		t.Fatalf("teacher after settlement = %d, want 50", got)
	}
	if got := balance(t, uni, uni.CustodyAddress()); got != 0 {
		t.Fatalf("custody after settlement = %d, want 0", got)
	}

	advance(t, uni, admin, term.Active)

	if err := uni.MarkStudent(carol, seat.ID, 95); !errors.Is(err, enrollment.ErrNotTeacher) {
		t.Fatalf("expected marking teacher gate, got %v", err)
	}
	if err := uni.MarkStudent(teacher, seat.ID, 95); err != nil {
		t.Fatalf("mark: %v", err)
	}

	advance(t, uni, admin, term.OffSeason)

	if id, err := uni.CurrentTermID(); err != nil || id != 0 {
		t.Fatalf("open term after close = %d, %v; want 0", id, err)
	}
	closed, ok, err := uni.Term(termID)
	if err != nil || !ok {
		t.Fatalf("term lookup: %v, %v", ok, err)
	}
	if !closed.Closed {
		t.Fatalf("term not closed: %+v", closed)
	}

	// 200 graded weight clears the default threshold of 180.
	record, err := uni.MintDegree(carol, carolToken)
	if err != nil {
		t.Fatalf("mint degree: %v", err)
	}
	wantCredit := degree.DefaultCreditPolicy(200, 95)
	if record.Credit != wantCredit {
		t.Fatalf("credit = %d, want %d", record.Credit, wantCredit)
	}
	if _, err := uni.MintDegree(bob, bobToken); !errors.Is(err, degree.ErrInsufficientCredit) {
		t.Fatalf("expected insufficient credit, got %v", err)
	}

	var hash [32]byte
	hash[0] = 0x5E
	if err := uni.AttachDegreeHash(carol, carolToken, hash); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected admin gate, got %v", err)
	}
	if err := uni.AttachDegreeHash(admin, carolToken, hash); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := uni.AttachDegreeHash(admin, carolToken, hash); !errors.Is(err, degree.ErrAlreadyAttached) {
		t.Fatalf("expected attach-once, got %v", err)
	}

	// Historical terms stay queryable and the next term gets a fresh id.
	nextID, err := uni.StartTerm(admin)
	if err != nil {
		t.Fatalf("second term: %v", err)
	}
	if nextID != 2 {
		t.Fatalf("second term id = %d, want 2", nextID)
	}
}

// TestApplyRevertsWithoutResidue rejects an underfunded application and leaves
// neither waitlist entries nor balance movement behind.
func TestApplyRevertsWithoutResidue(t *testing.T) {
	uni, emitter, admin := newTestUniversity(t)
	teacher := testAddress(0x10)
	poor := testAddress(0x40)

	if _, err := uni.CreateTeacher(admin, teacher); err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	poorToken, err := uni.CreateStudent(admin, poor)
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	defID, err := uni.RegisterCourse(teacher, 100)
	if err != nil {
		t.Fatalf("register course: %v", err)
	}
	if _, err := uni.StartTerm(admin); err != nil {
		t.Fatalf("start term: %v", err)
	}
	if err := uni.AddCourse(teacher, defID, 2, big.NewInt(75)); err != nil {
		t.Fatalf("add course: %v", err)
	}
	advance(t, uni, admin, term.Applying)

	emitted := len(emitter.types)
	if err := uni.Apply(poor, defID, 1, poorToken); !errors.Is(err, bank.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if len(emitter.types) != emitted {
		t.Fatalf("rejected operation emitted events: %v", emitter.types[emitted:])
	}
	course, err := uni.Course(1, defID)
	if err != nil {
		t.Fatalf("course: %v", err)
	}
	if len(course.Waitlist) != 0 {
		t.Fatalf("waitlist residue after revert: %v", course.Waitlist)
	}
	if got := balance(t, uni, uni.CustodyAddress()); got != 0 {
		t.Fatalf("custody residue = %d", got)
	}
}

// TestCloseRefundsUnclaimedEscrow returns fees for waitlist places never
// converted into seats when the term closes.
func TestCloseRefundsUnclaimedEscrow(t *testing.T) {
	uni, _, admin := newTestUniversity(t)
	teacher := testAddress(0x10)
	bob := testAddress(0x20)
	carol := testAddress(0x30)

	if _, err := uni.CreateTeacher(admin, teacher); err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	bobToken, err := uni.CreateStudent(admin, bob)
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	carolToken, err := uni.CreateStudent(admin, carol)
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	mustMint(t, uni, admin, bob, 100)
	mustMint(t, uni, admin, carol, 100)

	defID, err := uni.RegisterCourse(teacher, 100)
	if err != nil {
		t.Fatalf("register course: %v", err)
	}
	if _, err := uni.StartTerm(admin); err != nil {
		t.Fatalf("start term: %v", err)
	}
	if err := uni.AddCourse(teacher, defID, 3, big.NewInt(40)); err != nil {
		t.Fatalf("add course: %v", err)
	}
	advance(t, uni, admin, term.Applying)
	if err := uni.Apply(bob, defID, 1, bobToken); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := uni.Apply(carol, defID, 2, carolToken); err != nil {
		t.Fatalf("apply: %v", err)
	}
	advance(t, uni, admin, term.Trading)
	if _, err := uni.Claim(bob, defID, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}
	advance(t, uni, admin, term.Active)
	advance(t, uni, admin, term.OffSeason)

	// Bob's fee settled to the teacher; carol's unclaimed escrow came back.
	if got := balance(t, uni, teacher); got != 40 {
		t.Fatalf("teacher = %d, want 40", got)
	}
	if got := balance(t, uni, carol); got != 100 {
		t.Fatalf("carol = %d, want 100", got)
	}
	if got := balance(t, uni, uni.CustodyAddress()); got != 0 {
		t.Fatalf("custody = %d, want 0", got)
	}
}

func TestMarketRoundTrip(t *testing.T) {
	uni, _, admin := newTestUniversity(t)
	teacher := testAddress(0x10)
	seller := testAddress(0x20)
	buyer := testAddress(0x30)

	if _, err := uni.CreateTeacher(admin, teacher); err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	sellerToken, err := uni.CreateStudent(admin, seller)
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	if _, err := uni.CreateStudent(admin, buyer); err != nil {
		t.Fatalf("create student: %v", err)
	}
	mustMint(t, uni, admin, buyer, 500)

	defID, err := uni.RegisterCourse(teacher, 120)
	if err != nil {
		t.Fatalf("register course: %v", err)
	}
	termID, err := uni.StartTerm(admin)
	if err != nil {
		t.Fatalf("start term: %v", err)
	}
	if err := uni.AddCourse(teacher, defID, 2, nil); err != nil {
		t.Fatalf("add course: %v", err)
	}
	advance(t, uni, admin, term.Applying)
	if err := uni.Apply(seller, defID, 1, sellerToken); err != nil {
		t.Fatalf("apply: %v", err)
	}
	advance(t, uni, admin, term.Trading)
	seat, err := uni.Claim(seller, defID, 1)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	listing, err := uni.ListSeat(seller, defID, 1, big.NewInt(150))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if listing.Price.Int64() != 150 {
		t.Fatalf("listing price = %v", listing.Price)
	}
	escrowed, err := uni.Seat(termID, seat.ID)
	if err != nil {
		t.Fatalf("seat: %v", err)
	}
	if escrowed.Owner != uni.MarketEscrowAddress() {
		t.Fatalf("seat not escrowed: %x", escrowed.Owner)
	}

	if err := uni.CancelSeatListing(buyer, defID, 1); err == nil {
		t.Fatal("expected lister-only cancel")
	}
	if err := uni.CancelSeatListing(seller, defID, 1); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	returned, err := uni.Seat(termID, seat.ID)
	if err != nil {
		t.Fatalf("seat: %v", err)
	}
	if returned.Owner != seller {
		t.Fatalf("seat not returned: %x", returned.Owner)
	}

	if _, err := uni.ListSeat(seller, defID, 1, big.NewInt(150)); err != nil {
		t.Fatalf("relist: %v", err)
	}
	bought, err := uni.BuySeat(buyer, defID, 1)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if bought.Owner != buyer {
		t.Fatalf("seat owner = %x, want buyer", bought.Owner)
	}
	if bought.StudentToken != sellerToken {
		t.Fatalf("claim identity moved with the seat: %d", bought.StudentToken)
	}
	if got := balance(t, uni, seller); got != 150 {
		t.Fatalf("seller = %d, want 150", got)
	}
	if got := balance(t, uni, buyer); got != 350 {
		t.Fatalf("buyer = %d, want 350", got)
	}
	if _, ok, err := uni.SeatListing(termID, defID, 1); err != nil || ok {
		t.Fatalf("listing survived purchase: %v, %v", ok, err)
	}
}

func TestApplyIdentityGates(t *testing.T) {
	uni, _, admin := newTestUniversity(t)
	teacher := testAddress(0x10)
	bob := testAddress(0x20)
	carol := testAddress(0x30)
	stranger := testAddress(0x40)

	if _, err := uni.CreateTeacher(admin, teacher); err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	bobToken, err := uni.CreateStudent(admin, bob)
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	if _, err := uni.CreateStudent(admin, carol); err != nil {
		t.Fatalf("create student: %v", err)
	}
	defID, err := uni.RegisterCourse(teacher, 100)
	if err != nil {
		t.Fatalf("register course: %v", err)
	}
	if _, err := uni.StartTerm(admin); err != nil {
		t.Fatalf("start term: %v", err)
	}
	if err := uni.AddCourse(teacher, defID, 2, nil); err != nil {
		t.Fatalf("add course: %v", err)
	}
	advance(t, uni, admin, term.Applying)

	if err := uni.Apply(stranger, defID, 1, bobToken); !errors.Is(err, enrollment.ErrNotStudent) {
		t.Fatalf("expected student gate, got %v", err)
	}
	if err := uni.Apply(carol, defID, 1, bobToken); !errors.Is(err, ErrNotTokenOwner) {
		t.Fatalf("expected token ownership gate, got %v", err)
	}
}

func TestEventsFlushOnCommit(t *testing.T) {
	uni, emitter, admin := newTestUniversity(t)
	if _, err := uni.CreateTeacher(admin, testAddress(0x10)); err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	if len(emitter.types) != 1 || emitter.types[0] != events.TypeIdentityIssued {
		t.Fatalf("events = %v, want one identity issuance", emitter.types)
	}
	if _, err := uni.StartTerm(admin); err != nil {
		t.Fatalf("start term: %v", err)
	}
	if emitter.types[len(emitter.types)-1] != events.TypeTermStarted {
		t.Fatalf("events = %v, want term start last", emitter.types)
	}
}
