package core

import (
	"errors"
	"log/slog"
	"math/big"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"campuschain/core/events"
	"campuschain/core/state"
	"campuschain/native/bank"
	"campuschain/native/catalog"
	"campuschain/native/degree"
	"campuschain/native/enrollment"
	"campuschain/native/market"
	"campuschain/native/registry"
	"campuschain/native/term"
	"campuschain/storage"
)

var (
	// ErrNotAdmin signals an administrative call from a non-administrator.
	ErrNotAdmin = errors.New("university: caller is not the administrator")
	// ErrNotOffSeason gates identity issuance and term creation to the
	// off season.
	ErrNotOffSeason = errors.New("university: not the off season state")
	// ErrNotTokenOwner signals an application that names a student token
	// the caller does not hold.
	ErrNotTokenOwner = errors.New("university: caller is not the owner of this id")
)

// moduleAddress derives a deterministic custody address for an internal
// module account.
func moduleAddress(label string) [20]byte {
	hash := ethcrypto.Keccak256([]byte("campuschain/module/" + label))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}

// Config carries the orchestrator's operating parameters.
type Config struct {
	Admin               [20]byte
	MarkMode            enrollment.MarkMode
	GraduationThreshold uint64
	CreditPolicy        degree.CreditPolicy
	Emitter             events.Emitter
	Logger              *slog.Logger
}

// University is the orchestrator: it owns the canonical term lifecycle,
// verifies caller identity once at the boundary, proxies operations into the
// native engines, and wraps every mutation in one atomic commit against the
// state manager. All failures fully revert; a rejected operation leaves no
// residue in state and emits no events.
type University struct {
	mu sync.Mutex

	db      storage.Database
	state   *state.Manager
	admin   [20]byte
	custody [20]byte

	registry *registry.Engine
	catalog  *catalog.Engine
	bank     *bank.Engine
	enroll   *enrollment.Engine
	market   *market.Engine
	degree   *degree.Engine

	emitter events.Emitter
	buffer  *eventBuffer
	logger  *slog.Logger
}

type eventBuffer struct {
	pending []events.Event
}

func (b *eventBuffer) Emit(evt events.Event) {
	b.pending = append(b.pending, evt)
}

func (b *eventBuffer) reset() { b.pending = nil }

func (b *eventBuffer) flush(sink events.Emitter) {
	if sink == nil {
		b.pending = nil
		return
	}
	for _, evt := range b.pending {
		sink.Emit(evt)
	}
	b.pending = nil
}

// NewUniversity wires the native engines onto one state manager backed by
// the supplied database.
func NewUniversity(db storage.Database, cfg Config) *University {
	manager := state.NewManager(db)
	buffer := &eventBuffer{}

	u := &University{
		db:      db,
		state:   manager,
		admin:   cfg.Admin,
		custody: moduleAddress("university/custody"),
		emitter: cfg.Emitter,
		buffer:  buffer,
		logger:  cfg.Logger,
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}

	u.registry = registry.NewEngine()
	u.registry.SetState(manager)
	u.registry.SetEmitter(buffer)

	u.catalog = catalog.NewEngine()
	u.catalog.SetState(manager)
	u.catalog.SetEmitter(buffer)

	u.bank = bank.NewEngine()
	u.bank.SetState(manager)

	u.enroll = enrollment.NewEngine()
	u.enroll.SetState(manager)
	u.enroll.SetEmitter(buffer)
	u.enroll.SetMarkMode(cfg.MarkMode)

	u.market = market.NewEngine(u.enroll, u.bank, moduleAddress("market/escrow"))
	u.market.SetState(manager)
	u.market.SetEmitter(buffer)

	u.degree = degree.NewEngine()
	u.degree.SetState(manager)
	u.degree.SetEmitter(buffer)
	u.degree.SetPolicy(cfg.CreditPolicy)
	if cfg.GraduationThreshold > 0 {
		u.degree.SetThreshold(cfg.GraduationThreshold)
	}

	return u
}

// Admin returns the administrator address.
func (u *University) Admin() [20]byte { return u.admin }

// CustodyAddress returns the orchestrator's escrow account for course fees.
func (u *University) CustodyAddress() [20]byte { return u.custody }

// MarketEscrowAddress returns the marketplace custody account.
func (u *University) MarketEscrowAddress() [20]byte { return u.market.EscrowAddress() }

// run executes one mutating operation atomically: on failure the staged
// state and buffered events are discarded, on success both are committed.
func (u *University) run(op string, fn func() error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := fn(); err != nil {
		u.state.Discard()
		u.buffer.reset()
		u.logger.Debug("operation rejected", "op", op, "err", err)
		return err
	}
	if err := u.state.Commit(); err != nil {
		u.buffer.reset()
		u.logger.Error("state commit failed", "op", op, "err", err)
		return err
	}
	u.buffer.flush(u.emitter)
	return nil
}

func (u *University) requireAdmin(caller [20]byte) error {
	if caller != u.admin {
		return ErrNotAdmin
	}
	return nil
}

func (u *University) requireOffSeason() error {
	phase, err := u.state.CurrentPhase()
	if err != nil {
		return err
	}
	if phase != term.OffSeason {
		return ErrNotOffSeason
	}
	return nil
}

// --- identity ---

// CreateTeacher mints a teacher identity token for the address.
// Administrator only, off season only.
func (u *University) CreateTeacher(caller, addr [20]byte) (uint64, error) {
	var id uint64
	err := u.run("createTeacher", func() error {
		if err := u.requireAdmin(caller); err != nil {
			return err
		}
		if err := u.requireOffSeason(); err != nil {
			return err
		}
		var err error
		id, err = u.registry.Issue(registry.RoleTeacher, addr)
		return err
	})
	return id, err
}

// CreateStudent mints a student identity token for the address.
// Administrator only, off season only.
func (u *University) CreateStudent(caller, addr [20]byte) (uint64, error) {
	var id uint64
	err := u.run("createStudent", func() error {
		if err := u.requireAdmin(caller); err != nil {
			return err
		}
		if err := u.requireOffSeason(); err != nil {
			return err
		}
		var err error
		id, err = u.registry.Issue(registry.RoleStudent, addr)
		return err
	})
	return id, err
}

// TokenOf returns the identity token the address holds for a role.
func (u *University) TokenOf(role registry.Role, addr [20]byte) (uint64, bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.registry.TokenOf(role, addr)
}

// HoldsRole reports whether the address carries the role.
func (u *University) HoldsRole(addr [20]byte, role registry.Role) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.registry.HoldsRole(addr, role)
}

// --- catalog ---

// RegisterCourse mints a catalog definition for the calling teacher.
func (u *University) RegisterCourse(caller [20]byte, creditWeight uint64) (uint64, error) {
	var id uint64
	err := u.run("registerCourse", func() error {
		var err error
		id, err = u.catalog.Register(caller, creditWeight)
		return err
	})
	return id, err
}

// BurnCourse retires a catalog definition owned by the caller.
func (u *University) BurnCourse(caller [20]byte, courseID uint64) error {
	return u.run("burnCourse", func() error {
		return u.catalog.Burn(caller, courseID)
	})
}

// SetCourseURI updates catalog metadata for a definition owned by the caller.
func (u *University) SetCourseURI(caller [20]byte, courseID uint64, uri string) error {
	return u.run("setCourseURI", func() error {
		return u.catalog.SetURI(caller, courseID, uri)
	})
}

// CatalogCourse returns the catalog definition.
func (u *University) CatalogCourse(courseID uint64) (*catalog.Course, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.catalog.Get(courseID)
}

// --- payments ---

// MintFunds credits payment units to an address. Administrator only; used by
// genesis and faucet flows.
func (u *University) MintFunds(caller, to [20]byte, amount *big.Int) error {
	return u.run("mintFunds", func() error {
		if err := u.requireAdmin(caller); err != nil {
			return err
		}
		return u.bank.Mint(to, amount)
	})
}

// TransferFunds moves payment units between addresses.
func (u *University) TransferFunds(caller, to [20]byte, amount *big.Int) error {
	return u.run("transferFunds", func() error {
		return u.bank.Transfer(caller, to, amount)
	})
}

// ApproveFunds sets the allowance a spender may pull from the caller.
func (u *University) ApproveFunds(caller, spender [20]byte, amount *big.Int) error {
	return u.run("approveFunds", func() error {
		return u.bank.Approve(caller, spender, amount)
	})
}

// TransferFundsFrom moves approved units on behalf of the caller.
func (u *University) TransferFundsFrom(caller, from, to [20]byte, amount *big.Int) error {
	return u.run("transferFundsFrom", func() error {
		return u.bank.TransferFrom(caller, from, to, amount)
	})
}

// BalanceOf returns the payment balance of the address.
func (u *University) BalanceOf(addr [20]byte) (*big.Int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.bank.BalanceOf(addr)
}

// --- term lifecycle ---

// StartTerm opens a new term in planning. Administrator only; legal only
// from the off season.
func (u *University) StartTerm(caller [20]byte) (uint64, error) {
	var id uint64
	err := u.run("startTerm", func() error {
		if err := u.requireAdmin(caller); err != nil {
			return err
		}
		if err := u.requireOffSeason(); err != nil {
			return err
		}
		var err error
		id, err = u.state.NextTermID()
		if err != nil {
			return err
		}
		t := &term.Term{ID: id, Phase: term.Planning}
		if err := u.state.TermPut(t); err != nil {
			return err
		}
		if err := u.state.SetActiveTermID(id); err != nil {
			return err
		}
		u.buffer.Emit(events.TermStarted{TermID: id})
		return nil
	})
	return id, err
}

// Advance moves the active term one step along the phase ring, atomically
// for the orchestrator and the term. Reaching the off season closes the term
// and refunds every unclaimed course-fee escrow.
func (u *University) Advance(caller [20]byte) (term.Phase, error) {
	var phase term.Phase
	err := u.run("advance", func() error {
		if err := u.requireAdmin(caller); err != nil {
			return err
		}
		active, err := u.state.ActiveTermID()
		if err != nil {
			return err
		}
		if active == 0 {
			return term.ErrTermEnded
		}
		t, ok, err := u.state.TermGet(active)
		if err != nil {
			return err
		}
		if !ok {
			return term.ErrTermEnded
		}
		from := t.Phase
		phase, err = t.Advance()
		if err != nil {
			return err
		}
		if err := u.state.TermPut(t); err != nil {
			return err
		}
		u.buffer.Emit(events.TermAdvanced{TermID: t.ID, From: uint8(from), To: uint8(phase)})
		if t.Closed {
			if err := u.refundOutstanding(t.ID); err != nil {
				return err
			}
			if err := u.state.SetActiveTermID(0); err != nil {
				return err
			}
			u.buffer.Emit(events.TermClosed{TermID: t.ID})
		}
		return nil
	})
	return phase, err
}

// refundOutstanding returns escrowed course fees for every waitlist place
// that was never converted into a seat.
func (u *University) refundOutstanding(termID uint64) error {
	courseIDs, err := u.state.CourseIndex(termID)
	if err != nil {
		return err
	}
	for _, courseID := range courseIDs {
		course, ok, err := u.state.CourseGet(termID, courseID)
		if err != nil {
			return err
		}
		if !ok || course.Price == nil || course.Price.Sign() == 0 {
			continue
		}
		for i, occupant := range course.Waitlist {
			if occupant == 0 || course.Claimed[i] {
				continue
			}
			owner, err := u.registry.OwnerOf(registry.RoleStudent, occupant)
			if err != nil {
				return err
			}
			if err := u.bank.Transfer(u.custody, owner, course.Price); err != nil {
				return err
			}
		}
	}
	return nil
}

// CurrentPhase returns the orchestrator's phase: the active term's phase or
// the off season.
func (u *University) CurrentPhase() (term.Phase, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state.CurrentPhase()
}

// CurrentTermID returns the id of the open term, zero in the off season.
func (u *University) CurrentTermID() (uint64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state.ActiveTermID()
}

// Term returns the record for any term, historical terms included.
func (u *University) Term(id uint64) (*term.Term, bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	t, ok, err := u.state.TermGet(id)
	if err != nil || !ok {
		return nil, ok, err
	}
	return t.Clone(), true, nil
}

// --- enrollment ---

func (u *University) activeTermID() (uint64, error) {
	return u.state.ActiveTermID()
}

// AddCourse registers a catalog course into the active term. The caller must
// hold a teacher token and own the referenced catalog definition.
func (u *University) AddCourse(caller [20]byte, courseID, seatLimit uint64, price *big.Int) error {
	return u.run("addCourse", func() error {
		teacherToken, ok, err := u.registry.TokenOf(registry.RoleTeacher, caller)
		if err != nil {
			return err
		}
		if !ok {
			return enrollment.ErrNotTeacher
		}
		def, defOK, err := u.state.CatalogCourseGet(courseID)
		if err != nil {
			return err
		}
		if !defOK || def.Owner != caller {
			return enrollment.ErrNotTeacher
		}
		active, err := u.activeTermID()
		if err != nil {
			return err
		}
		if active == 0 {
			return enrollment.ErrNotPlanningPhase
		}
		return u.enroll.AddCourse(active, courseID, teacherToken, seatLimit, price)
	})
}

// Apply books the student token into a waitlist slot of the active term's
// course, escrowing the course fee when one is set. An evicted applicant is
// refunded in the same atomic step.
func (u *University) Apply(caller [20]byte, courseID, slotIndex, studentToken uint64) error {
	return u.run("apply", func() error {
		if !u.registry.HoldsRole(caller, registry.RoleStudent) {
			return enrollment.ErrNotStudent
		}
		owner, err := u.registry.OwnerOf(registry.RoleStudent, studentToken)
		if err != nil {
			return err
		}
		if owner != caller {
			return ErrNotTokenOwner
		}
		active, err := u.activeTermID()
		if err != nil {
			return err
		}
		if active == 0 {
			return enrollment.ErrNotApplyingPhase
		}
		evicted, err := u.enroll.Apply(active, courseID, slotIndex, studentToken)
		if err != nil {
			return err
		}
		course, _, err := u.state.CourseGet(active, courseID)
		if err != nil {
			return err
		}
		if course.Price != nil && course.Price.Sign() > 0 {
			if err := u.bank.Transfer(caller, u.custody, course.Price); err != nil {
				return err
			}
			if evicted != 0 {
				evictedOwner, err := u.registry.OwnerOf(registry.RoleStudent, evicted)
				if err != nil {
					return err
				}
				if err := u.bank.Transfer(u.custody, evictedOwner, course.Price); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Claim converts the caller's waitlist place into a seat token. Any escrowed
// course fee settles to the teacher in the same atomic step.
func (u *University) Claim(caller [20]byte, courseID, slotIndex uint64) (*enrollment.Seat, error) {
	var seat *enrollment.Seat
	err := u.run("claim", func() error {
		active, err := u.activeTermID()
		if err != nil {
			return err
		}
		if active == 0 {
			return enrollment.ErrNotTradingPhase
		}
		seat, err = u.enroll.Claim(active, courseID, slotIndex, caller)
		if err != nil {
			return err
		}
		course, _, err := u.state.CourseGet(active, courseID)
		if err != nil {
			return err
		}
		if course.Price != nil && course.Price.Sign() > 0 {
			teacher, err := u.registry.OwnerOf(registry.RoleTeacher, course.TeacherToken)
			if err != nil {
				return err
			}
			if err := u.bank.Transfer(u.custody, teacher, course.Price); err != nil {
				return err
			}
		}
		return nil
	})
	return seat, err
}

// MarkStudent records a grade on a seat of the active term. Teacher of the
// seat's course only.
func (u *University) MarkStudent(caller [20]byte, seatID, grade uint64) error {
	return u.run("markStudent", func() error {
		active, err := u.activeTermID()
		if err != nil {
			return err
		}
		if active == 0 {
			return enrollment.ErrNotActivePhase
		}
		return u.enroll.Mark(active, seatID, caller, grade)
	})
}

// TransferSeat moves a seat the caller owns to another address. Legal only
// while the term is trading.
func (u *University) TransferSeat(caller, to [20]byte, seatID uint64) error {
	return u.run("transferSeat", func() error {
		active, err := u.activeTermID()
		if err != nil {
			return err
		}
		if active == 0 {
			return enrollment.ErrNotTradingPhase
		}
		return u.enroll.TransferSeat(active, seatID, caller, to)
	})
}

// Course returns the enrollment record of a course in any term.
func (u *University) Course(termID, courseID uint64) (*enrollment.Course, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.enroll.Course(termID, courseID)
}

// Seat returns a seat token of any term.
func (u *University) Seat(termID, seatID uint64) (*enrollment.Seat, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.enroll.Seat(termID, seatID)
}

// --- marketplace ---

// ListSeat places the caller's claimed seat into marketplace escrow.
func (u *University) ListSeat(caller [20]byte, courseID, slotIndex uint64, price *big.Int) (*market.Listing, error) {
	var listing *market.Listing
	err := u.run("listSeat", func() error {
		active, err := u.activeTermID()
		if err != nil {
			return err
		}
		if active == 0 {
			return enrollment.ErrNotTradingPhase
		}
		listing, err = u.market.List(caller, active, courseID, slotIndex, price)
		return err
	})
	return listing, err
}

// CancelSeatListing returns an escrowed seat to its lister.
func (u *University) CancelSeatListing(caller [20]byte, courseID, slotIndex uint64) error {
	return u.run("cancelSeatListing", func() error {
		active, err := u.activeTermID()
		if err != nil {
			return err
		}
		if active == 0 {
			return enrollment.ErrNotTradingPhase
		}
		return u.market.Cancel(caller, active, courseID, slotIndex)
	})
}

// BuySeat settles a listing against the caller's payment balance.
func (u *University) BuySeat(caller [20]byte, courseID, slotIndex uint64) (*enrollment.Seat, error) {
	var seat *enrollment.Seat
	err := u.run("buySeat", func() error {
		active, err := u.activeTermID()
		if err != nil {
			return err
		}
		if active == 0 {
			return enrollment.ErrNotTradingPhase
		}
		seat, err = u.market.Buy(caller, active, courseID, slotIndex)
		return err
	})
	return seat, err
}

// SeatListing returns the live listing for a slot in any term.
func (u *University) SeatListing(termID, courseID, slotIndex uint64) (*market.Listing, bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.market.Listing(termID, courseID, slotIndex)
}

// --- degrees ---

// MintDegree issues the terminal credential to the student holding the
// token.
func (u *University) MintDegree(caller [20]byte, studentToken uint64) (*degree.Record, error) {
	var record *degree.Record
	err := u.run("mintDegree", func() error {
		var err error
		record, err = u.degree.Mint(caller, studentToken)
		return err
	})
	return record, err
}

// AttachDegreeHash anchors the external credential hash. Administrator only,
// exactly once per degree.
func (u *University) AttachDegreeHash(caller [20]byte, studentToken uint64, hash [32]byte) error {
	return u.run("attachDegreeHash", func() error {
		if err := u.requireAdmin(caller); err != nil {
			return err
		}
		return u.degree.AttachHash(studentToken, hash)
	})
}

// Degree returns the issued degree record for a student, if any.
func (u *University) Degree(studentToken uint64) (*degree.Record, bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.degree.Get(studentToken)
}

// ComputeCredit returns the student's graded totals and policy credit.
func (u *University) ComputeCredit(studentToken uint64) (weightSum, gradeSum, credit uint64, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.degree.ComputeCredit(studentToken)
}
