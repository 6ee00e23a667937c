package events

import (
	"strconv"

	"campuschain/core/types"
)

const (
	TypeTermStarted  = "term.started"
	TypeTermAdvanced = "term.advanced"
	TypeTermClosed   = "term.closed"
)

// TermStarted is emitted when the administrator opens a new term.
type TermStarted struct {
	TermID uint64
}

// EventType implements the Event interface.
func (TermStarted) EventType() string { return TypeTermStarted }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e TermStarted) Event() *types.Event {
	return &types.Event{
		Type: TypeTermStarted,
		Attributes: map[string]string{
			"termId": strconv.FormatUint(e.TermID, 10),
		},
	}
}

// TermAdvanced is emitted on every successful phase transition.
type TermAdvanced struct {
	TermID uint64
	From   uint8
	To     uint8
}

// EventType implements the Event interface.
func (TermAdvanced) EventType() string { return TypeTermAdvanced }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e TermAdvanced) Event() *types.Event {
	return &types.Event{
		Type: TypeTermAdvanced,
		Attributes: map[string]string{
			"termId": strconv.FormatUint(e.TermID, 10),
			"from":   strconv.FormatUint(uint64(e.From), 10),
			"to":     strconv.FormatUint(uint64(e.To), 10),
		},
	}
}

// TermClosed is emitted when a term re-enters the off season and becomes read-only.
type TermClosed struct {
	TermID uint64
}

// EventType implements the Event interface.
func (TermClosed) EventType() string { return TypeTermClosed }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e TermClosed) Event() *types.Event {
	return &types.Event{
		Type: TypeTermClosed,
		Attributes: map[string]string{
			"termId": strconv.FormatUint(e.TermID, 10),
		},
	}
}
