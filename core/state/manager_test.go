package state

import (
	"math/big"
	"testing"

	"campuschain/core/types"
	"campuschain/native/term"
	"campuschain/storage"
)

func TestOverlayStagesUntilCommit(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)

	key := []byte("catalog:next")
	if err := manager.KVPut(key, uint64(7)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !manager.Dirty() {
		t.Fatal("staged write not reported dirty")
	}

	// A second manager over the same database sees nothing before commit.
	other := NewManager(db)
	var out uint64
	ok, err := other.KVGet(key, &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("uncommitted write visible: %d", out)
	}

	if err := manager.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if manager.Dirty() {
		t.Fatal("manager dirty after commit")
	}
	ok, err = other.KVGet(key, &out)
	if err != nil || !ok {
		t.Fatalf("committed write missing: %v, %v", ok, err)
	}
	if out != 7 {
		t.Fatalf("value = %d, want 7", out)
	}
}

func TestDiscardDropsStagedWrites(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)

	key := []byte("term:active")
	if err := manager.KVPut(key, uint64(3)); err != nil {
		t.Fatalf("put: %v", err)
	}
	manager.Discard()
	if manager.Dirty() {
		t.Fatal("manager dirty after discard")
	}
	var out uint64
	if ok, err := manager.KVGet(key, &out); err != nil || ok {
		t.Fatalf("discarded write survived: %v, %v", ok, err)
	}

	if err := manager.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if ok, _ := manager.KVGet(key, nil); ok {
		t.Fatal("discarded write reached the database")
	}
}

func TestDeleteShadowsCommittedValue(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)

	key := []byte("listing:1")
	if err := manager.KVPut(key, uint64(42)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := manager.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := manager.KVDelete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// The staged delete shadows the committed value immediately.
	if ok, _ := manager.KVGet(key, nil); ok {
		t.Fatal("staged delete not visible to reads")
	}
	// Until commit, the database still holds it.
	if ok, _ := NewManager(db).KVGet(key, nil); !ok {
		t.Fatal("delete reached the database before commit")
	}
	if err := manager.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if ok, _ := NewManager(db).KVGet(key, nil); ok {
		t.Fatal("committed delete left the value behind")
	}

	// A re-put after delete wins.
	if err := manager.KVPut(key, uint64(9)); err != nil {
		t.Fatalf("put: %v", err)
	}
	var out uint64
	if ok, _ := manager.KVGet(key, &out); !ok || out != 9 {
		t.Fatalf("re-put lost: %v, %d", ok, out)
	}
}

func TestSequencesAreMonotonic(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	for want := uint64(1); want <= 3; want++ {
		id, err := manager.NextTermID()
		if err != nil {
			t.Fatalf("next term id: %v", err)
		}
		if id != want {
			t.Fatalf("term id = %d, want %d", id, want)
		}
	}
	// Sequences survive a commit boundary.
	if err := manager.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	id, err := manager.NextTermID()
	if err != nil {
		t.Fatalf("next term id: %v", err)
	}
	if id != 4 {
		t.Fatalf("term id after commit = %d, want 4", id)
	}
}

func TestAccountRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	addr := []byte{0x01, 0x02, 0x03}

	account, err := manager.GetAccount(addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if account != nil {
		t.Fatalf("unknown account = %+v, want nil", account)
	}

	if err := manager.PutAccount(addr, &types.Account{Balance: big.NewInt(125)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	account, err = manager.GetAccount(addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if account == nil || account.Balance.Int64() != 125 {
		t.Fatalf("account = %+v, want balance 125", account)
	}
}

func TestCurrentPhaseFollowsActiveTerm(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	phase, err := manager.CurrentPhase()
	if err != nil {
		t.Fatalf("phase: %v", err)
	}
	if phase != term.OffSeason {
		t.Fatalf("phase with no term = %v, want off season", phase)
	}

	if err := manager.TermPut(&term.Term{ID: 1, Phase: term.Trading}); err != nil {
		t.Fatalf("term put: %v", err)
	}
	if err := manager.SetActiveTermID(1); err != nil {
		t.Fatalf("set active: %v", err)
	}
	phase, err = manager.CurrentPhase()
	if err != nil {
		t.Fatalf("phase: %v", err)
	}
	if phase != term.Trading {
		t.Fatalf("phase = %v, want trading", phase)
	}

	if err := manager.SetActiveTermID(0); err != nil {
		t.Fatalf("set active: %v", err)
	}
	phase, err = manager.CurrentPhase()
	if err != nil {
		t.Fatalf("phase: %v", err)
	}
	if phase != term.OffSeason {
		t.Fatalf("phase after close = %v, want off season", phase)
	}
}
