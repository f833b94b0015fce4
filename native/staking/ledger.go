package staking

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"stakeledger/crypto"
	"stakeledger/storage"
)

// StakerLedger maps staker identities to their staked principal. Entries
// are created on the first credit and never removed; a staker that withdrew
// everything keeps a zero entry.
type StakerLedger struct {
	kv storage.KV
}

// NewStakerLedger binds a ledger view to the supplied store.
func NewStakerLedger(kv storage.KV) *StakerLedger {
	return &StakerLedger{kv: kv}
}

// AmountStaked returns the recorded principal, zero when the staker is unknown.
func (l *StakerLedger) AmountStaked(staker crypto.Address) (*uint256.Int, error) {
	return readAmount(l.kv, stakedTokensKey(staker))
}

// AddStake credits delta to the staker, creating the entry if needed.
func (l *StakerLedger) AddStake(staker crypto.Address, delta *uint256.Int) error {
	key := stakedTokensKey(staker)
	exists, err := l.kv.Has(key)
	if err != nil {
		return errors.Wrap(err, "lookup staker entry")
	}
	current, err := readAmount(l.kv, key)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(current, delta)
	if overflow {
		return errorf(ErrInvalidState, "staked amount overflow for %s", staker)
	}
	if err := writeAmount(l.kv, key, next); err != nil {
		return err
	}
	if !exists {
		return l.index(staker)
	}
	return nil
}

// WithdrawStake debits delta from the staker.
func (l *StakerLedger) WithdrawStake(staker crypto.Address, delta *uint256.Int) error {
	key := stakedTokensKey(staker)
	current, err := readAmount(l.kv, key)
	if err != nil {
		return err
	}
	if current.Lt(delta) {
		return errorf(ErrInsufficientStake, "staker %s holds %s, requested %s", staker, current.Dec(), delta.Dec())
	}
	return writeAmount(l.kv, key, new(uint256.Int).Sub(current, delta))
}

func (l *StakerLedger) index(staker crypto.Address) error {
	count, err := readUint64(l.kv, stakerCountKey())
	if err != nil {
		return err
	}
	if err := l.kv.Put(stakerIndexKey(count), staker.Key()); err != nil {
		return errors.Wrap(err, "write staker index")
	}
	return writeUint64(l.kv, stakerCountKey(), count+1)
}

// Stakers lists every identity that ever received a credit, in first-credit
// order.
func (l *StakerLedger) Stakers() ([]crypto.Address, error) {
	count, err := readUint64(l.kv, stakerCountKey())
	if err != nil {
		return nil, err
	}
	out := make([]crypto.Address, 0, count)
	for i := uint64(0); i < count; i++ {
		raw, err := l.kv.Get(stakerIndexKey(i))
		if err != nil {
			return nil, errors.Wrapf(err, "read staker index %d", i)
		}
		addr, err := crypto.AddressFromKey(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "decode staker index %d", i)
		}
		out = append(out, addr)
	}
	return out, nil
}

// Sum totals every ledger entry.
func (l *StakerLedger) Sum() (*uint256.Int, error) {
	stakers, err := l.Stakers()
	if err != nil {
		return nil, err
	}
	total := new(uint256.Int)
	for _, staker := range stakers {
		amount, err := l.AmountStaked(staker)
		if err != nil {
			return nil, err
		}
		if _, overflow := total.AddOverflow(total, amount); overflow {
			return nil, errorf(ErrInvalidState, "ledger sum overflow")
		}
	}
	return total, nil
}
