package term

import (
	"errors"
	"testing"
)

func TestPhaseRing(t *testing.T) {
	order := []Phase{OffSeason, Planning, Applying, Trading, Active}
	for i, phase := range order {
		next := order[(i+1)%len(order)]
		if got := phase.Next(); got != next {
			t.Fatalf("%s.Next() = %s, want %s", phase, got, next)
		}
	}
}

func TestParsePhaseRoundTrip(t *testing.T) {
	for _, phase := range []Phase{OffSeason, Planning, Applying, Trading, Active} {
		parsed, ok := ParsePhase(phase.String())
		if !ok || parsed != phase {
			t.Fatalf("ParsePhase(%q) = %v, %v", phase.String(), parsed, ok)
		}
	}
	if _, ok := ParsePhase("finals"); ok {
		t.Fatal("expected unknown phase to fail")
	}
}

func TestAdvanceClosesOnOffSeason(t *testing.T) {
	trm := &Term{ID: 1, Phase: Planning}
	want := []Phase{Applying, Trading, Active, OffSeason}
	for _, expected := range want {
		got, err := trm.Advance()
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if got != expected {
			t.Fatalf("advance = %s, want %s", got, expected)
		}
	}
	if !trm.Closed {
		t.Fatal("term should be closed after returning to the off season")
	}
	if _, err := trm.Advance(); !errors.Is(err, ErrTermEnded) {
		t.Fatalf("expected terminal error, got %v", err)
	}
	// The error is permanent.
	if _, err := trm.Advance(); !errors.Is(err, ErrTermEnded) {
		t.Fatalf("expected terminal error on repeat, got %v", err)
	}
}

func TestAdvanceRejectsCorruptPhase(t *testing.T) {
	trm := &Term{ID: 1, Phase: Phase(42)}
	if _, err := trm.Advance(); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected invalid phase, got %v", err)
	}
}
