package state

import "campuschain/native/enrollment"

func enrollCourseKey(termID, courseID uint64) []byte {
	return u64Key("enroll", termID, "course", courseID)
}

func enrollCourseIndexKey(termID uint64) []byte {
	return u64Key("enroll", termID, "courses")
}

func enrollSeatKey(termID, seatID uint64) []byte {
	return u64Key("enroll", termID, "seat", seatID)
}

func enrollSeatSeqKey(termID uint64) []byte {
	return u64Key("enroll", termID, "seatseq")
}

func studentSeatsKey(studentToken uint64) []byte {
	return u64Key("enroll:student", studentToken, "seats")
}

// CoursePut stores the per-term course record.
func (m *Manager) CoursePut(termID uint64, course *enrollment.Course) error {
	return m.KVPut(enrollCourseKey(termID, course.ID), course)
}

// CourseGet loads the per-term course record.
func (m *Manager) CourseGet(termID, courseID uint64) (*enrollment.Course, bool, error) {
	course := &enrollment.Course{}
	ok, err := m.KVGet(enrollCourseKey(termID, courseID), course)
	if err != nil || !ok {
		return nil, ok, err
	}
	return course, true, nil
}

// CourseIndexAppend records the course id in the term's course index.
func (m *Manager) CourseIndexAppend(termID, courseID uint64) error {
	ids, err := m.CourseIndex(termID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == courseID {
			return nil
		}
	}
	ids = append(ids, courseID)
	return m.KVPut(enrollCourseIndexKey(termID), ids)
}

// CourseIndex returns the ids of every course registered in the term.
func (m *Manager) CourseIndex(termID uint64) ([]uint64, error) {
	var ids []uint64
	if _, err := m.KVGet(enrollCourseIndexKey(termID), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SeatPut stores the seat token record.
func (m *Manager) SeatPut(termID uint64, seat *enrollment.Seat) error {
	return m.KVPut(enrollSeatKey(termID, seat.ID), seat)
}

// SeatGet loads the seat token record.
func (m *Manager) SeatGet(termID, seatID uint64) (*enrollment.Seat, bool, error) {
	seat := &enrollment.Seat{}
	ok, err := m.KVGet(enrollSeatKey(termID, seatID), seat)
	if err != nil || !ok {
		return nil, ok, err
	}
	return seat, true, nil
}

// SeatNextID increments and returns the per-term seat sequence.
func (m *Manager) SeatNextID(termID uint64) (uint64, error) {
	return m.nextSequence(enrollSeatSeqKey(termID))
}

// StudentSeatAppend records a claimed seat in the student's cross-term index.
func (m *Manager) StudentSeatAppend(studentToken uint64, ref enrollment.SeatRef) error {
	refs, err := m.StudentSeats(studentToken)
	if err != nil {
		return err
	}
	refs = append(refs, ref)
	return m.KVPut(studentSeatsKey(studentToken), refs)
}

// StudentSeats returns every seat the student token has claimed, oldest
// first.
func (m *Manager) StudentSeats(studentToken uint64) ([]enrollment.SeatRef, error) {
	var refs []enrollment.SeatRef
	if _, err := m.KVGet(studentSeatsKey(studentToken), &refs); err != nil {
		return nil, err
	}
	return refs, nil
}
