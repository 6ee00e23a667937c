package market

import (
	"errors"
	"fmt"
	"math/big"

	"campuschain/core/events"
	"campuschain/native/bank"
	"campuschain/native/enrollment"
	"campuschain/native/registry"
)

var (
	errNilState  = errors.New("market: state not configured")
	errNilEngine = errors.New("market: enrollment engine not configured")

	// ErrNotStudent signals a caller without a student identity token.
	ErrNotStudent = errors.New("market: caller must be a student")
	// ErrNotOwner signals a caller who is not the seat owner or lister.
	ErrNotOwner = errors.New("market: caller is not the owner")
	// ErrUnknownSeat signals a listing request against a slot that was
	// never claimed.
	ErrUnknownSeat = errors.New("market: seat was never claimed")
	// ErrAlreadyListed signals a second listing of the same seat.
	ErrAlreadyListed = errors.New("market: seat already listed")
	// ErrUnknownListing signals a cancel or purchase of a listing that
	// does not exist.
	ErrUnknownListing = errors.New("market: no listing for this slot")
	// ErrSelfPurchase rejects a seller buying their own listing.
	ErrSelfPurchase = errors.New("market: cannot buy own listing")
	// ErrDuplicateSeat rejects a purchase by a student who already holds a
	// seat in the course.
	ErrDuplicateSeat = errors.New("market: buyer already holds a seat in this course")
)

// Listing exists only while the marketplace holds custody of the seat token.
type Listing struct {
	TermID    uint64
	CourseID  uint64
	SlotIndex uint64
	SeatID    uint64
	Seller    [20]byte
	Price     *big.Int
}

// Clone returns a deep copy callers can mutate safely.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	} else {
		clone.Price = big.NewInt(0)
	}
	return &clone
}

// State is the storage surface the marketplace relies on.
type State interface {
	ListingPut(*Listing) error
	ListingGet(termID, courseID, slotIndex uint64) (*Listing, bool, error)
	ListingDelete(termID, courseID, slotIndex uint64) error
	CourseGet(termID, courseID uint64) (*enrollment.Course, bool, error)
	SeatGet(termID, seatID uint64) (*enrollment.Seat, bool, error)
	RoleTokenIDByOwner(role string, owner [20]byte) (uint64, bool, error)
}

// Engine implements the escrow-based secondary market for claimed seats.
// Custody moves through the escrow address on every listing; the phase gate
// is enforced by the enrollment engine's transfer path, so listings exist
// only while the term is trading.
type Engine struct {
	state   State
	enroll  *enrollment.Engine
	bank    *bank.Engine
	escrow  [20]byte
	emitter events.Emitter
}

// NewEngine constructs a marketplace bound to the enrollment and payment
// engines. The escrow address is the marketplace's custody account.
func NewEngine(enroll *enrollment.Engine, payments *bank.Engine, escrow [20]byte) *Engine {
	return &Engine{
		enroll:  enroll,
		bank:    payments,
		escrow:  escrow,
		emitter: events.NoopEmitter{},
	}
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

// EscrowAddress returns the marketplace custody address.
func (e *Engine) EscrowAddress() [20]byte { return e.escrow }

func (e *Engine) requireStudent(caller [20]byte) error {
	_, ok, err := e.state.RoleTokenIDByOwner(string(registry.RoleStudent), caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotStudent
	}
	return nil
}

func (e *Engine) claimedSeat(termID, courseID, slotIndex uint64) (*enrollment.Seat, *enrollment.Course, error) {
	course, ok, err := e.state.CourseGet(termID, courseID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: course %d", ErrUnknownSeat, courseID)
	}
	if slotIndex == 0 || slotIndex > course.HighestUsedIndex() || !course.Claimed[slotIndex-1] {
		return nil, nil, ErrUnknownSeat
	}
	seat, ok, err := e.state.SeatGet(termID, course.SlotSeats[slotIndex-1])
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrUnknownSeat
	}
	return seat, course, nil
}

// holdsSeatInCourse reports whether addr already holds a claimed seat in the
// course, counting seats the address parked in escrow under its own listings.
// The slot being purchased is excluded.
func (e *Engine) holdsSeatInCourse(addr [20]byte, termID uint64, course *enrollment.Course, skipSlot uint64) (bool, error) {
	for i, claimed := range course.Claimed {
		slot := uint64(i) + 1
		if !claimed || slot == skipSlot {
			continue
		}
		seat, ok, err := e.state.SeatGet(termID, course.SlotSeats[i])
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		if seat.Owner == addr {
			return true, nil
		}
		if seat.Owner != e.escrow {
			continue
		}
		listing, ok, err := e.state.ListingGet(termID, course.ID, slot)
		if err != nil {
			return false, err
		}
		if ok && listing.Seller == addr {
			return true, nil
		}
	}
	return false, nil
}

// List moves the caller's seat into marketplace escrow and records the
// listing at the asked price.
func (e *Engine) List(caller [20]byte, termID, courseID, slotIndex uint64, price *big.Int) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.enroll == nil {
		return nil, errNilEngine
	}
	if err := e.requireStudent(caller); err != nil {
		return nil, err
	}
	seat, _, err := e.claimedSeat(termID, courseID, slotIndex)
	if err != nil {
		return nil, err
	}
	if seat.Owner != caller {
		return nil, ErrNotOwner
	}
	if _, ok, err := e.state.ListingGet(termID, courseID, slotIndex); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyListed
	}
	if err := e.enroll.TransferSeat(termID, seat.ID, caller, e.escrow); err != nil {
		return nil, err
	}
	listing := &Listing{
		TermID:    termID,
		CourseID:  courseID,
		SlotIndex: slotIndex,
		SeatID:    seat.ID,
		Seller:    caller,
		Price:     big.NewInt(0),
	}
	if price != nil {
		if price.Sign() < 0 {
			return nil, fmt.Errorf("market: negative price")
		}
		listing.Price = new(big.Int).Set(price)
	}
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.MarketListed{
		TermID:    termID,
		CourseID:  courseID,
		SlotIndex: slotIndex,
		Seller:    caller,
		Price:     listing.Price.String(),
	})
	return listing.Clone(), nil
}

// Cancel returns custody of the listed seat to the original lister and
// deletes the listing.
func (e *Engine) Cancel(caller [20]byte, termID, courseID, slotIndex uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.enroll == nil {
		return errNilEngine
	}
	if err := e.requireStudent(caller); err != nil {
		return err
	}
	if _, _, err := e.claimedSeat(termID, courseID, slotIndex); err != nil {
		return err
	}
	listing, ok, err := e.state.ListingGet(termID, courseID, slotIndex)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownListing
	}
	if listing.Seller != caller {
		return ErrNotOwner
	}
	if err := e.enroll.TransferSeat(termID, listing.SeatID, e.escrow, caller); err != nil {
		return err
	}
	if err := e.state.ListingDelete(termID, courseID, slotIndex); err != nil {
		return err
	}
	e.emitter.Emit(events.MarketCancelled{
		TermID:    termID,
		CourseID:  courseID,
		SlotIndex: slotIndex,
		Seller:    caller,
	})
	return nil
}

// Buy settles a listing: the buyer pays the seller through the payment
// ledger and receives custody of the escrowed seat. Payment and custody move
// inside the same transactional boundary; a failure on either leg rejects
// the whole operation.
func (e *Engine) Buy(caller [20]byte, termID, courseID, slotIndex uint64) (*enrollment.Seat, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.enroll == nil || e.bank == nil {
		return nil, errNilEngine
	}
	if err := e.requireStudent(caller); err != nil {
		return nil, err
	}
	_, course, err := e.claimedSeat(termID, courseID, slotIndex)
	if err != nil {
		return nil, err
	}
	listing, ok, err := e.state.ListingGet(termID, courseID, slotIndex)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownListing
	}
	if listing.Seller == caller {
		return nil, ErrSelfPurchase
	}
	if held, err := e.holdsSeatInCourse(caller, termID, course, slotIndex); err != nil {
		return nil, err
	} else if held {
		return nil, ErrDuplicateSeat
	}
	if listing.Price != nil && listing.Price.Sign() > 0 {
		if err := e.bank.Transfer(caller, listing.Seller, listing.Price); err != nil {
			return nil, err
		}
	}
	if err := e.enroll.TransferSeat(termID, listing.SeatID, e.escrow, caller); err != nil {
		return nil, err
	}
	if err := e.state.ListingDelete(termID, courseID, slotIndex); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.MarketSold{
		TermID:    termID,
		CourseID:  courseID,
		SlotIndex: slotIndex,
		Seller:    listing.Seller,
		Buyer:     caller,
		Price:     listing.Price.String(),
	})
	seat, _, err := e.state.SeatGet(termID, listing.SeatID)
	if err != nil {
		return nil, err
	}
	return seat.Clone(), nil
}

// Listing returns the live listing for the slot, if any.
func (e *Engine) Listing(termID, courseID, slotIndex uint64) (*Listing, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	listing, ok, err := e.state.ListingGet(termID, courseID, slotIndex)
	if err != nil || !ok {
		return nil, ok, err
	}
	return listing.Clone(), true, nil
}
