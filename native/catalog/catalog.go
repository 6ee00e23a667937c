package catalog

import (
	"errors"
	"fmt"

	"campuschain/core/events"
	"campuschain/native/registry"
	"campuschain/native/term"
)

var (
	errNilState = errors.New("catalog: state not configured")

	// ErrNotTeacher signals a registration attempt by an address without a
	// teacher identity token.
	ErrNotTeacher = errors.New("catalog: only a teacher can mint a course")
	// ErrNotOwner signals a mutation by an address that does not own the
	// course definition.
	ErrNotOwner = errors.New("catalog: sender is not the owner")
	// ErrUnknownCourse signals a lookup for a definition that was never
	// registered or has been burned.
	ErrUnknownCourse = errors.New("catalog: no course with this id")
	// ErrNotOffSeason gates mint and burn to the off season.
	ErrNotOffSeason = errors.New("catalog: not in the off season")
	// ErrNotModifiable gates metadata updates to phases where the catalog
	// is not feeding an open enrollment cycle.
	ErrNotModifiable = errors.New("catalog: cannot be modified in the current state")
)

// Course is one catalog definition. The credit weight feeds degree
// computation; the definition itself is immutable outside the off season.
type Course struct {
	ID           uint64
	Owner        [20]byte
	CreditWeight uint64
	URI          string
}

// Clone returns a copy callers can mutate safely.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// State is the narrow storage surface the catalog engine relies on.
type State interface {
	CatalogCoursePut(*Course) error
	CatalogCourseGet(id uint64) (*Course, bool, error)
	CatalogCourseDelete(id uint64) error
	CatalogNextCourseID() (uint64, error)
	CurrentPhase() (term.Phase, error)
	RoleTokenIDByOwner(role string, owner [20]byte) (uint64, bool, error)
}

// Engine manages course definitions and their credit weights.
type Engine struct {
	state   State
	emitter events.Emitter
}

// NewEngine creates a catalog engine with a no-op emitter.
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

func (e *Engine) requirePhase(allowed ...term.Phase) error {
	phase, err := e.state.CurrentPhase()
	if err != nil {
		return err
	}
	for _, p := range allowed {
		if phase == p {
			return nil
		}
	}
	if len(allowed) == 1 && allowed[0] == term.OffSeason {
		return ErrNotOffSeason
	}
	return ErrNotModifiable
}

// Register mints a course definition owned by the calling teacher. Legal only
// in the off season so an open cycle never sees its catalog shift underneath.
func (e *Engine) Register(caller [20]byte, creditWeight uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if err := e.requirePhase(term.OffSeason); err != nil {
		return 0, err
	}
	if _, ok, err := e.state.RoleTokenIDByOwner(string(registry.RoleTeacher), caller); err != nil {
		return 0, err
	} else if !ok {
		return 0, ErrNotTeacher
	}
	id, err := e.state.CatalogNextCourseID()
	if err != nil {
		return 0, err
	}
	course := &Course{ID: id, Owner: caller, CreditWeight: creditWeight}
	if err := e.state.CatalogCoursePut(course); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.CourseMinted{CourseID: id, CreditWeight: creditWeight, Owner: caller})
	return id, nil
}

// Burn retires a course definition. Owner only, off season only.
func (e *Engine) Burn(caller [20]byte, id uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requirePhase(term.OffSeason); err != nil {
		return err
	}
	course, ok, err := e.state.CatalogCourseGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCourse, id)
	}
	if course.Owner != caller {
		return ErrNotOwner
	}
	if err := e.state.CatalogCourseDelete(id); err != nil {
		return err
	}
	e.emitter.Emit(events.CourseBurned{CourseID: id})
	return nil
}

// SetURI updates course metadata. Owner only. Metadata may move in the off
// season and during planning, never once applications have opened.
func (e *Engine) SetURI(caller [20]byte, id uint64, uri string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.requirePhase(term.OffSeason, term.Planning); err != nil {
		return err
	}
	course, ok, err := e.state.CatalogCourseGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCourse, id)
	}
	if course.Owner != caller {
		return ErrNotOwner
	}
	course.URI = uri
	return e.state.CatalogCoursePut(course)
}

// Get returns the course definition for the id.
func (e *Engine) Get(id uint64) (*Course, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	course, ok, err := e.state.CatalogCourseGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCourse, id)
	}
	return course.Clone(), nil
}

// OwnerOf resolves the teacher address that owns the course definition.
func (e *Engine) OwnerOf(id uint64) ([20]byte, error) {
	course, err := e.Get(id)
	if err != nil {
		return [20]byte{}, err
	}
	return course.Owner, nil
}

// CreditWeightOf returns the credit weight carried by the course definition.
func (e *Engine) CreditWeightOf(id uint64) (uint64, error) {
	course, err := e.Get(id)
	if err != nil {
		return 0, err
	}
	return course.CreditWeight, nil
}
