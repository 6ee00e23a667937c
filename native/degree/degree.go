package degree

import (
	"errors"
	"fmt"

	"campuschain/core/events"
	"campuschain/native/catalog"
	"campuschain/native/enrollment"
	"campuschain/native/registry"
)

// DefaultGraduationThreshold is the graded credit weight a student must
// accumulate before a degree can be issued.
const DefaultGraduationThreshold uint64 = 180

var (
	errNilState = errors.New("degree: state not configured")

	// ErrInsufficientCredit signals a mint attempt below the graduation
	// threshold.
	ErrInsufficientCredit = errors.New("degree: not enough credits")
	// ErrNotOwner signals a mint attempt by an address that does not hold
	// the student token.
	ErrNotOwner = errors.New("degree: sender does not own the token")
	// ErrAlreadyIssued signals a second mint for the same student.
	ErrAlreadyIssued = errors.New("degree: already issued")
	// ErrUnknownDegree signals a hash attachment for a student without an
	// issued degree.
	ErrUnknownDegree = errors.New("degree: no degree for this student")
	// ErrAlreadyAttached signals a second hash attachment on one degree.
	ErrAlreadyAttached = errors.New("degree: hash already attached")
	// ErrUnknownStudent signals a computation for a token never issued.
	ErrUnknownStudent = errors.New("degree: no student with this token")
)

// CreditPolicy folds a student's graded totals into the credit figure stored
// on the degree record. The aggregation arithmetic is deliberately pluggable:
// the reference vector is combine(250, 180) = 14333.
type CreditPolicy func(weightSum, gradeSum uint64) uint64

// DefaultCreditPolicy reproduces the reference vector with integer
// arithmetic: (weightSum + gradeSum) * 100 / 3.
func DefaultCreditPolicy(weightSum, gradeSum uint64) uint64 {
	return (weightSum + gradeSum) * 100 / 3
}

// Record is one issued credential, created at most once per student. The
// external hash is attachable exactly once after minting.
type Record struct {
	StudentToken uint64
	Owner        [20]byte
	Credit       uint64
	HashSet      bool
	Hash         [32]byte
}

// Clone returns a copy callers can mutate safely.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// State is the storage surface degree issuance relies on.
type State interface {
	DegreePut(*Record) error
	DegreeGet(studentToken uint64) (*Record, bool, error)
	StudentSeats(studentToken uint64) ([]enrollment.SeatRef, error)
	SeatGet(termID, seatID uint64) (*enrollment.Seat, bool, error)
	CourseGet(termID, courseID uint64) (*enrollment.Course, bool, error)
	CatalogCourseGet(id uint64) (*catalog.Course, bool, error)
	RoleTokenGet(role string, id uint64) (*registry.Token, bool, error)
}

// Engine aggregates graded seat history into credit and mints the terminal
// credential once the threshold is met.
type Engine struct {
	state     State
	policy    CreditPolicy
	threshold uint64
	emitter   events.Emitter
}

// NewEngine creates a degree engine with the default policy and threshold.
func NewEngine() *Engine {
	return &Engine{
		policy:    DefaultCreditPolicy,
		threshold: DefaultGraduationThreshold,
		emitter:   events.NoopEmitter{},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetPolicy overrides the credit aggregation policy. Passing nil restores
// the default.
func (e *Engine) SetPolicy(policy CreditPolicy) {
	if policy == nil {
		e.policy = DefaultCreditPolicy
		return
	}
	e.policy = policy
}

// SetThreshold overrides the graduation threshold.
func (e *Engine) SetThreshold(threshold uint64) { e.threshold = threshold }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// ComputeCredit walks every seat the student has claimed, sums the credit
// weight and grade of the marked ones, and folds them through the policy.
func (e *Engine) ComputeCredit(studentToken uint64) (weightSum, gradeSum, credit uint64, err error) {
	if e == nil || e.state == nil {
		return 0, 0, 0, errNilState
	}
	refs, err := e.state.StudentSeats(studentToken)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, ref := range refs {
		seat, ok, err := e.state.SeatGet(ref.TermID, ref.SeatID)
		if err != nil {
			return 0, 0, 0, err
		}
		if !ok || !seat.Marked {
			continue
		}
		def, ok, err := e.state.CatalogCourseGet(seat.CourseID)
		if err != nil {
			return 0, 0, 0, err
		}
		if !ok {
			// Burned definitions keep their recorded seats but no
			// longer contribute weight.
			continue
		}
		weightSum += def.CreditWeight
		gradeSum += seat.Mark
	}
	return weightSum, gradeSum, e.policy(weightSum, gradeSum), nil
}

// Mint issues the degree to the student once their graded credit weight
// crosses the threshold. Exactly one degree exists per student.
func (e *Engine) Mint(caller [20]byte, studentToken uint64) (*Record, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	token, ok, err := e.state.RoleTokenGet(string(registry.RoleStudent), studentToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStudent, studentToken)
	}
	if token.Owner != caller {
		return nil, ErrNotOwner
	}
	weightSum, _, credit, err := e.ComputeCredit(studentToken)
	if err != nil {
		return nil, err
	}
	if weightSum < e.threshold {
		return nil, ErrInsufficientCredit
	}
	if _, exists, err := e.state.DegreeGet(studentToken); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrAlreadyIssued
	}
	record := &Record{
		StudentToken: studentToken,
		Owner:        token.Owner,
		Credit:       credit,
	}
	if err := e.state.DegreePut(record); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.DegreeMinted{StudentToken: studentToken, Credit: credit, Owner: token.Owner})
	return record.Clone(), nil
}

// AttachHash anchors the external credential hash on an issued degree.
// Administrator authorization happens at the orchestrator boundary; the
// engine enforces the attach-exactly-once rule.
func (e *Engine) AttachHash(studentToken uint64, hash [32]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	record, ok, err := e.state.DegreeGet(studentToken)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDegree, studentToken)
	}
	if record.HashSet {
		return ErrAlreadyAttached
	}
	record.HashSet = true
	record.Hash = hash
	if err := e.state.DegreePut(record); err != nil {
		return err
	}
	e.emitter.Emit(events.DegreeHashAttached{StudentToken: studentToken, Hash: hash})
	return nil
}

// Get returns the issued degree record for the student, if any.
func (e *Engine) Get(studentToken uint64) (*Record, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	record, ok, err := e.state.DegreeGet(studentToken)
	if err != nil || !ok {
		return nil, ok, err
	}
	return record.Clone(), true, nil
}
