package events

import (
	"encoding/hex"
	"strconv"

	"campuschain/core/types"
	"campuschain/crypto"
)

const (
	TypeDegreeMinted       = "degree.minted"
	TypeDegreeHashAttached = "degree.hash.attached"
)

// DegreeMinted is emitted when a student's accumulated credit crosses the
// graduation threshold and a credential is issued.
type DegreeMinted struct {
	StudentToken uint64
	Credit       uint64
	Owner        [20]byte
}

// EventType implements the Event interface.
func (DegreeMinted) EventType() string { return TypeDegreeMinted }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e DegreeMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeDegreeMinted,
		Attributes: map[string]string{
			"studentToken": strconv.FormatUint(e.StudentToken, 10),
			"credit":       strconv.FormatUint(e.Credit, 10),
			"owner":        crypto.NewAddress(crypto.CampusPrefix, e.Owner[:]).String(),
		},
	}
}

// DegreeHashAttached is emitted when the administrator anchors the external
// credential hash on an issued degree.
type DegreeHashAttached struct {
	StudentToken uint64
	Hash         [32]byte
}

// EventType implements the Event interface.
func (DegreeHashAttached) EventType() string { return TypeDegreeHashAttached }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e DegreeHashAttached) Event() *types.Event {
	return &types.Event{
		Type: TypeDegreeHashAttached,
		Attributes: map[string]string{
			"studentToken": strconv.FormatUint(e.StudentToken, 10),
			"hash":         "0x" + hex.EncodeToString(e.Hash[:]),
		},
	}
}
