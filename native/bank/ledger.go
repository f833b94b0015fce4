package bank

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"lukechampine.com/blake3"

	"stakeledger/core/events"
	"stakeledger/crypto"
	"stakeledger/storage"
)

var (
	ErrInsufficientBalance   = errors.New("bank: insufficient balance")
	ErrInsufficientAllowance = errors.New("bank: insufficient allowance")
	ErrInvalidAddress        = errors.New("bank: address required")
	errNilState              = errors.New("bank: state not configured")
)

// Ledger is a fungible token ledger with ERC-20 style allowances kept in the
// same store as the staking state, so a staking call and the transfers it
// triggers commit or roll back together.
type Ledger struct {
	kv      storage.KV
	emitter events.Emitter
}

// NewLedger binds a token ledger to the supplied store.
func NewLedger(kv storage.KV) *Ledger {
	return &Ledger{kv: kv, emitter: events.NoopEmitter{}}
}

// SetEmitter routes transfer and supply events. Nil discards them.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	l.emitter = emitter
}

var supplyKey = []byte("bank/supply")

func balanceKey(addr crypto.Address) []byte {
	return []byte("bank/balance/" + hex.EncodeToString(addr.Key()))
}

// allowanceKey hashes the owner and spender keys together, mirroring how
// dictionary items are addressed elsewhere in the store.
func allowanceKey(owner, spender crypto.Address) []byte {
	h := blake3.New(32, nil)
	h.Write(owner.Key())
	h.Write(spender.Key())
	return []byte("bank/allowance/" + hex.EncodeToString(h.Sum(nil)))
}

func (l *Ledger) read(key []byte) (*uint256.Int, error) {
	if l == nil || l.kv == nil {
		return nil, errNilState
	}
	raw, err := l.kv.Get(key)
	if storage.IsNotFound(err) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("bank: read %s: %w", key, err)
	}
	out := new(uint256.Int)
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return nil, fmt.Errorf("bank: decode %s: %w", key, err)
	}
	return out, nil
}

func (l *Ledger) write(key []byte, v *uint256.Int) error {
	raw, err := rlp.EncodeToBytes(v)
	if err != nil {
		return fmt.Errorf("bank: encode %s: %w", key, err)
	}
	if err := l.kv.Put(key, raw); err != nil {
		return fmt.Errorf("bank: write %s: %w", key, err)
	}
	return nil
}

// BalanceOf returns the holder's balance, zero when never credited.
func (l *Ledger) BalanceOf(addr crypto.Address) (*uint256.Int, error) {
	return l.read(balanceKey(addr))
}

// TotalSupply returns the amount minted so far.
func (l *Ledger) TotalSupply() (*uint256.Int, error) {
	return l.read(supplyKey)
}

// Allowance returns how much spender may move out of owner's balance.
func (l *Ledger) Allowance(owner, spender crypto.Address) (*uint256.Int, error) {
	return l.read(allowanceKey(owner, spender))
}

// Mint credits new tokens to the recipient.
func (l *Ledger) Mint(to crypto.Address, amount *uint256.Int) error {
	if to.IsZero() {
		return ErrInvalidAddress
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	balance, err := l.BalanceOf(to)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return fmt.Errorf("bank: balance overflow for %s", to)
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return err
	}
	nextSupply, overflow := new(uint256.Int).AddOverflow(supply, amount)
	if overflow {
		return fmt.Errorf("bank: supply overflow")
	}
	if err := l.write(balanceKey(to), next); err != nil {
		return err
	}
	if err := l.write(supplyKey, nextSupply); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenSupply{
		Recipient: to,
		Total:     nextSupply,
		Delta:     new(uint256.Int).Set(amount),
		Reason:    events.SupplyReasonMint,
	})
	return nil
}

// Transfer moves amount from one holder to another.
func (l *Ledger) Transfer(from, to crypto.Address, amount *uint256.Int) error {
	moved, err := l.move(from, to, amount)
	if err != nil || !moved {
		return err
	}
	l.emitter.Emit(events.Transfer{From: from, To: to, Amount: new(uint256.Int).Set(amount)})
	return nil
}

// move reports whether any balance changed.
func (l *Ledger) move(from, to crypto.Address, amount *uint256.Int) (bool, error) {
	if from.IsZero() || to.IsZero() {
		return false, ErrInvalidAddress
	}
	if amount == nil || amount.IsZero() {
		return false, nil
	}
	src, err := l.BalanceOf(from)
	if err != nil {
		return false, err
	}
	if src.Lt(amount) {
		return false, fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from, src.Dec(), amount.Dec())
	}
	// Contract packages and instances sharing a hash hold one balance.
	if bytes.Equal(from.Key(), to.Key()) {
		return false, nil
	}
	dst, err := l.BalanceOf(to)
	if err != nil {
		return false, err
	}
	next, overflow := new(uint256.Int).AddOverflow(dst, amount)
	if overflow {
		return false, fmt.Errorf("bank: balance overflow for %s", to)
	}
	if err := l.write(balanceKey(from), new(uint256.Int).Sub(src, amount)); err != nil {
		return false, err
	}
	return true, l.write(balanceKey(to), next)
}

// Approve sets spender's allowance over owner's balance, replacing any
// previous value.
func (l *Ledger) Approve(owner, spender crypto.Address, amount *uint256.Int) error {
	if owner.IsZero() || spender.IsZero() {
		return ErrInvalidAddress
	}
	if amount == nil {
		amount = new(uint256.Int)
	}
	if l == nil || l.kv == nil {
		return errNilState
	}
	return l.write(allowanceKey(owner, spender), amount)
}

// TransferFrom moves amount out of owner's balance on behalf of spender and
// consumes the allowance.
func (l *Ledger) TransferFrom(spender, owner, to crypto.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	allowed, err := l.Allowance(owner, spender)
	if err != nil {
		return err
	}
	if allowed.Lt(amount) {
		return fmt.Errorf("%w: %s may spend %s, needs %s", ErrInsufficientAllowance, spender, allowed.Dec(), amount.Dec())
	}
	moved, err := l.move(owner, to, amount)
	if err != nil {
		return err
	}
	if err := l.write(allowanceKey(owner, spender), new(uint256.Int).Sub(allowed, amount)); err != nil {
		return err
	}
	if moved {
		l.emitter.Emit(events.Transfer{From: owner, To: to, Spender: spender, Amount: new(uint256.Int).Set(amount)})
	}
	return nil
}
