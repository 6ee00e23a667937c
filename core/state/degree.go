package state

import "campuschain/native/degree"

func degreeKey(studentToken uint64) []byte {
	return u64Key("degree", studentToken)
}

// DegreePut stores the issued degree record.
func (m *Manager) DegreePut(record *degree.Record) error {
	return m.KVPut(degreeKey(record.StudentToken), record)
}

// DegreeGet loads the degree record for the student token, if issued.
func (m *Manager) DegreeGet(studentToken uint64) (*degree.Record, bool, error) {
	record := &degree.Record{}
	ok, err := m.KVGet(degreeKey(studentToken), record)
	if err != nil || !ok {
		return nil, ok, err
	}
	return record, true, nil
}
