package catalog

import (
	"errors"
	"testing"

	"campuschain/native/registry"
	"campuschain/native/term"
)

type mockState struct {
	courses  map[uint64]*Course
	seq      uint64
	phase    term.Phase
	teachers map[[20]byte]uint64
}

func newMockState() *mockState {
	return &mockState{
		courses:  make(map[uint64]*Course),
		teachers: make(map[[20]byte]uint64),
	}
}

func (m *mockState) CatalogCoursePut(course *Course) error {
	m.courses[course.ID] = course.Clone()
	return nil
}

func (m *mockState) CatalogCourseGet(id uint64) (*Course, bool, error) {
	course, ok := m.courses[id]
	if !ok {
		return nil, false, nil
	}
	return course.Clone(), true, nil
}

func (m *mockState) CatalogCourseDelete(id uint64) error {
	delete(m.courses, id)
	return nil
}

func (m *mockState) CatalogNextCourseID() (uint64, error) {
	m.seq++
	return m.seq, nil
}

func (m *mockState) CurrentPhase() (term.Phase, error) {
	return m.phase, nil
}

func (m *mockState) RoleTokenIDByOwner(role string, owner [20]byte) (uint64, bool, error) {
	if role != string(registry.RoleTeacher) {
		return 0, false, nil
	}
	id, ok := m.teachers[owner]
	return id, ok, nil
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestRegisterRequiresTeacherAndOffSeason(t *testing.T) {
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	teacher := newTestAddress(0x0A)
	outsider := newTestAddress(0x0B)
	state.teachers[teacher] = 1

	state.phase = term.Planning
	if _, err := engine.Register(teacher, 100); !errors.Is(err, ErrNotOffSeason) {
		t.Fatalf("expected off season gate, got %v", err)
	}

	state.phase = term.OffSeason
	if _, err := engine.Register(outsider, 100); !errors.Is(err, ErrNotTeacher) {
		t.Fatalf("expected teacher gate, got %v", err)
	}
	id, err := engine.Register(teacher, 100)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	course, err := engine.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if course.Owner != teacher || course.CreditWeight != 100 {
		t.Fatalf("unexpected course %+v", course)
	}
	weight, err := engine.CreditWeightOf(id)
	if err != nil || weight != 100 {
		t.Fatalf("CreditWeightOf = %d, %v", weight, err)
	}
}

func TestBurnOwnerOnly(t *testing.T) {
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	teacher := newTestAddress(0x0A)
	other := newTestAddress(0x0B)
	state.teachers[teacher] = 1
	state.phase = term.OffSeason

	id, err := engine.Register(teacher, 100)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := engine.Burn(other, id); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected owner gate, got %v", err)
	}
	state.phase = term.Active
	if err := engine.Burn(teacher, id); !errors.Is(err, ErrNotOffSeason) {
		t.Fatalf("expected off season gate, got %v", err)
	}
	state.phase = term.OffSeason
	if err := engine.Burn(teacher, id); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if _, err := engine.Get(id); !errors.Is(err, ErrUnknownCourse) {
		t.Fatalf("expected unknown after burn, got %v", err)
	}
	if err := engine.Burn(teacher, id); !errors.Is(err, ErrUnknownCourse) {
		t.Fatalf("expected unknown on double burn, got %v", err)
	}
}

func TestSetURIPhaseWindow(t *testing.T) {
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	teacher := newTestAddress(0x0A)
	state.teachers[teacher] = 1
	state.phase = term.OffSeason

	id, err := engine.Register(teacher, 100)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := engine.SetURI(teacher, id, "ipfs://one"); err != nil {
		t.Fatalf("set uri off season: %v", err)
	}
	state.phase = term.Planning
	if err := engine.SetURI(teacher, id, "ipfs://two"); err != nil {
		t.Fatalf("set uri planning: %v", err)
	}
	state.phase = term.Applying
	if err := engine.SetURI(teacher, id, "ipfs://three"); !errors.Is(err, ErrNotModifiable) {
		t.Fatalf("expected frozen catalog, got %v", err)
	}

	course, err := engine.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if course.URI != "ipfs://two" {
		t.Fatalf("unexpected uri %q", course.URI)
	}
}
