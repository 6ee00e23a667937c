package state

import "math/big"

func allowanceKey(owner, spender [20]byte) []byte {
	return u64Key(string(allowancePrefix), owner[:], spender[:])
}

// AllowanceGet returns the approved amount the spender may pull from the
// owner, zero when no approval exists.
func (m *Manager) AllowanceGet(owner, spender [20]byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.KVGet(allowanceKey(owner, spender), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// AllowancePut stores the approved amount for the owner/spender pair.
func (m *Manager) AllowancePut(owner, spender [20]byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	return m.KVPut(allowanceKey(owner, spender), amount)
}
