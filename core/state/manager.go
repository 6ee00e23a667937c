package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"campuschain/core/types"
	"campuschain/storage"
)

// Manager provides the typed state surface the native engines run against.
// Writes are staged in an overlay and only reach the backing database on
// Commit; Discard drops the staged writes. The orchestrator wraps every
// operation in exactly one stage/commit cycle, which is what makes each
// operation fully atomic: a rejected operation leaves no residue.
type Manager struct {
	db      storage.Database
	writes  map[string][]byte
	deletes map[string]bool
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		writes:  make(map[string][]byte),
		deletes: make(map[string]bool),
	}
}

var (
	accountPrefix   = []byte("account:")
	allowancePrefix = []byte("bank:allowance:")
)

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func u64Key(parts ...interface{}) []byte {
	buf := make([]byte, 0, 64)
	for _, part := range parts {
		switch v := part.(type) {
		case string:
			buf = append(buf, v...)
		case []byte:
			buf = append(buf, v...)
		case uint64:
			var enc [8]byte
			binary.BigEndian.PutUint64(enc[:], v)
			buf = append(buf, enc[:]...)
		default:
			panic(fmt.Sprintf("state: unsupported key part %T", part))
		}
		buf = append(buf, ':')
	}
	return buf
}

// KVPut stages the RLP encoding of value under the supplied key. The key is
// hashed with keccak256 before hitting the store.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	hashed := string(kvKey(key))
	m.writes[hashed] = encoded
	delete(m.deletes, hashed)
	return nil
}

// KVGet retrieves the value stored under the supplied key, reading staged
// writes first, and decodes it into the destination. The boolean reports
// whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	if m.deletes[string(hashed)] {
		return false, nil
	}
	data, ok := m.writes[string(hashed)]
	if !ok {
		stored, err := m.db.Get(hashed)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		data = stored
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete stages the removal of the supplied key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	hashed := string(kvKey(key))
	delete(m.writes, hashed)
	m.deletes[hashed] = true
	return nil
}

// Commit flushes every staged write to the backing database.
func (m *Manager) Commit() error {
	for key, value := range m.writes {
		if err := m.db.Put([]byte(key), value); err != nil {
			return err
		}
	}
	for key := range m.deletes {
		if err := m.db.Delete([]byte(key)); err != nil {
			return err
		}
	}
	m.writes = make(map[string][]byte)
	m.deletes = make(map[string]bool)
	return nil
}

// Discard drops every staged write.
func (m *Manager) Discard() {
	m.writes = make(map[string][]byte)
	m.deletes = make(map[string]bool)
}

// Dirty reports whether uncommitted writes are staged.
func (m *Manager) Dirty() bool {
	return len(m.writes) > 0 || len(m.deletes) > 0
}

func (m *Manager) nextSequence(key []byte) (uint64, error) {
	var current uint64
	if _, err := m.KVGet(key, &current); err != nil {
		return 0, err
	}
	current++
	if err := m.KVPut(key, current); err != nil {
		return 0, err
	}
	return current, nil
}

// GetAccount loads the account for the raw address, returning an initialised
// zero account when absent.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	key := append(append([]byte(nil), accountPrefix...), addr...)
	account := &types.Account{}
	ok, err := m.KVGet(key, account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return account, nil
}

// PutAccount stores the account under the raw address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	key := append(append([]byte(nil), accountPrefix...), addr...)
	return m.KVPut(key, account)
}
