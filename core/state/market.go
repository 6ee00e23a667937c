package state

import "campuschain/native/market"

func listingKey(termID, courseID, slotIndex uint64) []byte {
	return u64Key("market:listing", termID, courseID, slotIndex)
}

// ListingPut stores the marketplace listing.
func (m *Manager) ListingPut(listing *market.Listing) error {
	return m.KVPut(listingKey(listing.TermID, listing.CourseID, listing.SlotIndex), listing)
}

// ListingGet loads the listing for the slot, if present.
func (m *Manager) ListingGet(termID, courseID, slotIndex uint64) (*market.Listing, bool, error) {
	listing := &market.Listing{}
	ok, err := m.KVGet(listingKey(termID, courseID, slotIndex), listing)
	if err != nil || !ok {
		return nil, ok, err
	}
	return listing, true, nil
}

// ListingDelete removes the listing for the slot.
func (m *Manager) ListingDelete(termID, courseID, slotIndex uint64) error {
	return m.KVDelete(listingKey(termID, courseID, slotIndex))
}
