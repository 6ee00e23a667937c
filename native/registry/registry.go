package registry

import (
	"errors"
	"fmt"

	"campuschain/core/events"
)

// Role identifies the kind of identity token held by an address.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether the role is one of the supported identities.
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

var (
	errNilState = errors.New("registry: state not configured")

	// ErrAlreadyIssued signals a second issuance request for the same
	// address and role. Issuance is never retried automatically.
	ErrAlreadyIssued = errors.New("registry: address already owns a token")
	// ErrUnknownToken signals a lookup for a token that was never minted.
	ErrUnknownToken = errors.New("registry: no token with this id")
	// ErrUnknownRole signals an unsupported role identifier.
	ErrUnknownRole = errors.New("registry: unknown role")
)

// Token is one non-transferable identity credential bound to an address.
type Token struct {
	ID    uint64
	Owner [20]byte
}

// Clone returns a copy callers can mutate safely.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// State is the narrow storage surface the registry engine relies on.
type State interface {
	RoleTokenPut(role string, token *Token) error
	RoleTokenGet(role string, id uint64) (*Token, bool, error)
	RoleTokenIDByOwner(role string, owner [20]byte) (uint64, bool, error)
	RoleNextTokenID(role string) (uint64, error)
}

// Engine manages identity token issuance and lookups. Tokens are minted by the
// orchestrator's administrator only; the engine itself enforces the one-token-
// per-address-per-role invariant.
type Engine struct {
	state   State
	emitter events.Emitter
}

// NewEngine creates a registry engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Issue mints a fresh identity token for the address under the given role.
func (e *Engine) Issue(role Role, owner [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if !role.Valid() {
		return 0, ErrUnknownRole
	}
	if _, ok, err := e.state.RoleTokenIDByOwner(string(role), owner); err != nil {
		return 0, err
	} else if ok {
		return 0, ErrAlreadyIssued
	}
	id, err := e.state.RoleNextTokenID(string(role))
	if err != nil {
		return 0, err
	}
	token := &Token{ID: id, Owner: owner}
	if err := e.state.RoleTokenPut(string(role), token); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.IdentityIssued{Role: string(role), TokenID: id, Address: owner})
	return id, nil
}

// OwnerOf resolves the address bound to a token.
func (e *Engine) OwnerOf(role Role, id uint64) ([20]byte, error) {
	var zero [20]byte
	if e == nil || e.state == nil {
		return zero, errNilState
	}
	if !role.Valid() {
		return zero, ErrUnknownRole
	}
	token, ok, err := e.state.RoleTokenGet(string(role), id)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, fmt.Errorf("%w: %s/%d", ErrUnknownToken, role, id)
	}
	return token.Owner, nil
}

// TokenOf returns the token id held by the address under the role, if any.
func (e *Engine) TokenOf(role Role, owner [20]byte) (uint64, bool, error) {
	if e == nil || e.state == nil {
		return 0, false, errNilState
	}
	if !role.Valid() {
		return 0, false, ErrUnknownRole
	}
	return e.state.RoleTokenIDByOwner(string(role), owner)
}

// HoldsRole reports whether the address carries an identity token for the role.
func (e *Engine) HoldsRole(owner [20]byte, role Role) bool {
	_, ok, err := e.TokenOf(role, owner)
	return err == nil && ok
}
