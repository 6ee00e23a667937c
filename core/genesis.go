package core

import (
	"fmt"
	"math/big"

	"campuschain/config"
	"campuschain/crypto"
	"campuschain/native/registry"
)

var genesisAppliedKey = []byte("genesis:applied")

// ApplyGenesis seeds a fresh database with the balances and identity tokens
// from the genesis file. A marker in state makes the call idempotent across
// restarts.
func (u *University) ApplyGenesis(gen *config.Genesis) error {
	return u.run("applyGenesis", func() error {
		var applied bool
		ok, err := u.state.KVGet(genesisAppliedKey, &applied)
		if err != nil {
			return err
		}
		if ok && applied {
			return nil
		}
		for _, bal := range gen.Balances {
			addr, err := genesisAddress(bal.Address)
			if err != nil {
				return err
			}
			amount, ok := new(big.Int).SetString(bal.Amount, 10)
			if !ok || amount.Sign() <= 0 {
				return fmt.Errorf("genesis: invalid amount %q for %s", bal.Amount, bal.Address)
			}
			if err := u.bank.Mint(addr, amount); err != nil {
				return err
			}
		}
		for _, teacher := range gen.Teachers {
			addr, err := genesisAddress(teacher)
			if err != nil {
				return err
			}
			if _, err := u.registry.Issue(registry.RoleTeacher, addr); err != nil {
				return err
			}
		}
		for _, student := range gen.Students {
			addr, err := genesisAddress(student)
			if err != nil {
				return err
			}
			if _, err := u.registry.Issue(registry.RoleStudent, addr); err != nil {
				return err
			}
		}
		return u.state.KVPut(genesisAppliedKey, true)
	})
}

func genesisAddress(value string) ([20]byte, error) {
	var out [20]byte
	decoded, err := crypto.DecodeAddress(value)
	if err != nil {
		return out, fmt.Errorf("genesis: invalid address %q: %w", value, err)
	}
	copy(out[:], decoded.Bytes())
	return out, nil
}
