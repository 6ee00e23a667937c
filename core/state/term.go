package state

import "campuschain/native/term"

var (
	termActiveKey = []byte("term:active")
	termSeqKey    = []byte("term:seq")
)

func termRecordKey(id uint64) []byte {
	return u64Key("term:record", id)
}

// TermPut stores the term record.
func (m *Manager) TermPut(t *term.Term) error {
	return m.KVPut(termRecordKey(t.ID), t)
}

// TermGet loads the term record for the id.
func (m *Manager) TermGet(id uint64) (*term.Term, bool, error) {
	record := &term.Term{}
	ok, err := m.KVGet(termRecordKey(id), record)
	if err != nil || !ok {
		return nil, ok, err
	}
	return record, true, nil
}

// ActiveTermID returns the id of the currently open term, zero when the
// ledger is in the off season.
func (m *Manager) ActiveTermID() (uint64, error) {
	var id uint64
	if _, err := m.KVGet(termActiveKey, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// SetActiveTermID records which term is currently open; zero clears it.
func (m *Manager) SetActiveTermID(id uint64) error {
	return m.KVPut(termActiveKey, id)
}

// NextTermID increments and returns the term id sequence.
func (m *Manager) NextTermID() (uint64, error) {
	return m.nextSequence(termSeqKey)
}

// CurrentPhase resolves the orchestrator's phase: the active term's phase,
// or the off season when no term is open.
func (m *Manager) CurrentPhase() (term.Phase, error) {
	id, err := m.ActiveTermID()
	if err != nil {
		return term.OffSeason, err
	}
	if id == 0 {
		return term.OffSeason, nil
	}
	record, ok, err := m.TermGet(id)
	if err != nil {
		return term.OffSeason, err
	}
	if !ok || record.Closed {
		return term.OffSeason, nil
	}
	return record.Phase, nil
}
