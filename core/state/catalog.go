package state

import "campuschain/native/catalog"

var catalogSeqKey = []byte("catalog:seq")

func catalogCourseKey(id uint64) []byte {
	return u64Key("catalog:course", id)
}

// CatalogCoursePut stores the course definition.
func (m *Manager) CatalogCoursePut(course *catalog.Course) error {
	return m.KVPut(catalogCourseKey(course.ID), course)
}

// CatalogCourseGet loads the course definition by id.
func (m *Manager) CatalogCourseGet(id uint64) (*catalog.Course, bool, error) {
	course := &catalog.Course{}
	ok, err := m.KVGet(catalogCourseKey(id), course)
	if err != nil || !ok {
		return nil, ok, err
	}
	return course, true, nil
}

// CatalogCourseDelete removes a burned course definition.
func (m *Manager) CatalogCourseDelete(id uint64) error {
	return m.KVDelete(catalogCourseKey(id))
}

// CatalogNextCourseID increments and returns the catalog id sequence.
func (m *Manager) CatalogNextCourseID() (uint64, error) {
	return m.nextSequence(catalogSeqKey)
}
