package bank

import (
	"errors"
	"math/big"

	"campuschain/core/types"
)

var (
	errNilState = errors.New("bank: state not configured")

	// ErrInvalidAmount signals a nil, zero or negative transfer amount.
	ErrInvalidAmount = errors.New("bank: amount must be positive")
	// ErrInsufficientBalance signals a debit beyond the holder's balance.
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	// ErrInsufficientAllowance signals a delegated debit beyond the
	// approved allowance.
	ErrInsufficientAllowance = errors.New("bank: insufficient allowance")
)

// State is the narrow storage surface the payment ledger relies on.
type State interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
	AllowanceGet(owner, spender [20]byte) (*big.Int, error)
	AllowancePut(owner, spender [20]byte, amount *big.Int) error
}

// Engine implements the fungible payment ledger used for escrow side
// payments. Amounts use big.Int throughout; zero-value transfers are
// rejected rather than silently dropped.
type Engine struct {
	state State
}

// NewEngine creates a payment ledger engine.
func NewEngine() *Engine { return &Engine{} }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

// BalanceOf returns the current balance of the address.
func (e *Engine) BalanceOf(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	acc, err := e.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	return cloneAmount(ensureAccount(acc).Balance), nil
}

// Mint credits freshly issued units to the address. Restricted to genesis and
// administrative flows at the orchestrator boundary.
func (e *Engine) Mint(to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneAmount(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	acc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	acc = ensureAccount(acc)
	acc.Balance = new(big.Int).Add(acc.Balance, amt)
	return e.state.PutAccount(to[:], acc)
}

// Transfer moves units between two addresses.
func (e *Engine) Transfer(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneAmount(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	// A self-transfer is a funded no-op; writing both legs would double
	// count against the same account record.
	if from == to {
		return nil
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	toAcc = ensureAccount(toAcc)
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

// Approve sets the allowance the spender may pull from the owner.
func (e *Engine) Approve(owner, spender [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneAmount(amount)
	if amt.Sign() < 0 {
		return ErrInvalidAmount
	}
	return e.state.AllowancePut(owner, spender, amt)
}

// Allowance returns the remaining amount the spender may pull from the owner.
func (e *Engine) Allowance(owner, spender [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	allowance, err := e.state.AllowanceGet(owner, spender)
	if err != nil {
		return nil, err
	}
	return cloneAmount(allowance), nil
}

// TransferFrom moves units from the owner on behalf of an approved spender,
// decrementing the allowance.
func (e *Engine) TransferFrom(spender, from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneAmount(amount)
	if amt.Sign() <= 0 {
		return ErrInvalidAmount
	}
	allowance, err := e.state.AllowanceGet(from, spender)
	if err != nil {
		return err
	}
	allowance = cloneAmount(allowance)
	if allowance.Cmp(amt) < 0 {
		return ErrInsufficientAllowance
	}
	if err := e.Transfer(from, to, amt); err != nil {
		return err
	}
	return e.state.AllowancePut(from, spender, new(big.Int).Sub(allowance, amt))
}
