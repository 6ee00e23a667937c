package state

import "campuschain/native/registry"

func roleTokenKey(role string, id uint64) []byte {
	return u64Key("registry", role, "token", id)
}

func roleOwnerKey(role string, owner [20]byte) []byte {
	return u64Key("registry", role, "owner", owner[:])
}

func roleSeqKey(role string) []byte {
	return u64Key("registry", role, "seq")
}

// RoleTokenPut stores the identity token and its owner index entry.
func (m *Manager) RoleTokenPut(role string, token *registry.Token) error {
	if err := m.KVPut(roleTokenKey(role, token.ID), token); err != nil {
		return err
	}
	return m.KVPut(roleOwnerKey(role, token.Owner), token.ID)
}

// RoleTokenGet loads the identity token by id.
func (m *Manager) RoleTokenGet(role string, id uint64) (*registry.Token, bool, error) {
	token := &registry.Token{}
	ok, err := m.KVGet(roleTokenKey(role, id), token)
	if err != nil || !ok {
		return nil, ok, err
	}
	return token, true, nil
}

// RoleTokenIDByOwner resolves the token id held by the address under the
// role, if any.
func (m *Manager) RoleTokenIDByOwner(role string, owner [20]byte) (uint64, bool, error) {
	var id uint64
	ok, err := m.KVGet(roleOwnerKey(role, owner), &id)
	if err != nil || !ok {
		return 0, ok, err
	}
	return id, true, nil
}

// RoleNextTokenID increments and returns the token sequence for the role.
func (m *Manager) RoleNextTokenID(role string) (uint64, error) {
	return m.nextSequence(roleSeqKey(role))
}
