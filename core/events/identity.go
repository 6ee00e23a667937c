package events

import (
	"strconv"

	"campuschain/core/types"
	"campuschain/crypto"
)

const (
	TypeIdentityIssued = "identity.issued"
	TypeCourseMinted   = "catalog.course.minted"
	TypeCourseBurned   = "catalog.course.burned"
)

// IdentityIssued is emitted when the administrator mints a role token.
type IdentityIssued struct {
	Role    string
	TokenID uint64
	Address [20]byte
}

// EventType implements the Event interface.
func (IdentityIssued) EventType() string { return TypeIdentityIssued }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e IdentityIssued) Event() *types.Event {
	return &types.Event{
		Type: TypeIdentityIssued,
		Attributes: map[string]string{
			"role":    e.Role,
			"tokenId": strconv.FormatUint(e.TokenID, 10),
			"address": crypto.NewAddress(crypto.CampusPrefix, e.Address[:]).String(),
		},
	}
}

// CourseMinted is emitted when a teacher registers a course definition.
type CourseMinted struct {
	CourseID     uint64
	CreditWeight uint64
	Owner        [20]byte
}

// EventType implements the Event interface.
func (CourseMinted) EventType() string { return TypeCourseMinted }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e CourseMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeCourseMinted,
		Attributes: map[string]string{
			"courseId":     strconv.FormatUint(e.CourseID, 10),
			"creditWeight": strconv.FormatUint(e.CreditWeight, 10),
			"owner":        crypto.NewAddress(crypto.CampusPrefix, e.Owner[:]).String(),
		},
	}
}

// CourseBurned is emitted when an owner retires a course definition off season.
type CourseBurned struct {
	CourseID uint64
}

// EventType implements the Event interface.
func (CourseBurned) EventType() string { return TypeCourseBurned }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e CourseBurned) Event() *types.Event {
	return &types.Event{
		Type: TypeCourseBurned,
		Attributes: map[string]string{
			"courseId": strconv.FormatUint(e.CourseID, 10),
		},
	}
}
