package staking

import (
	"github.com/holiman/uint256"

	"stakeledger/crypto"
)

// Snapshot is a point-in-time view of the module state.
type Snapshot struct {
	Name                string
	AddressLabel        string
	Owner               crypto.Address
	Vault               crypto.Address
	StakingStarts       uint64
	StakingEnds         uint64
	WithdrawStarts      uint64
	WithdrawEnds        uint64
	InitialStakingTotal *uint256.Int
	StakingTotal        *uint256.Int
	StakedTotal         *uint256.Int
	StakedBalance       *uint256.Int
	RewardBalance       *uint256.Int
	TotalReward         *uint256.Int
	EarlyWithdrawReward *uint256.Int
	Stakers             int
	InitializedAt       uint64
}

// Initialized reports whether parameters have been fixed.
func (e *Engine) Initialized() (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	_, ok, err := loadParams(e.state)
	return ok, err
}

func (e *Engine) Name() (string, error) {
	p, err := e.params()
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

// AddressLabel returns the free-form label recorded at initialisation.
func (e *Engine) AddressLabel() (string, error) {
	p, err := e.params()
	if err != nil {
		return "", err
	}
	return p.AddressLabel, nil
}

// Address returns the vault identity holding staked principal and rewards.
func (e *Engine) Address() (crypto.Address, error) {
	p, err := e.params()
	if err != nil {
		return crypto.Address{}, err
	}
	return p.Vault(), nil
}

func (e *Engine) StakingStarts() (uint64, error) {
	p, err := e.params()
	if err != nil {
		return 0, err
	}
	return p.StakingStarts, nil
}

func (e *Engine) StakingEnds() (uint64, error) {
	p, err := e.params()
	if err != nil {
		return 0, err
	}
	return p.StakingEnds, nil
}

func (e *Engine) WithdrawStarts() (uint64, error) {
	p, err := e.params()
	if err != nil {
		return 0, err
	}
	return p.WithdrawStarts, nil
}

func (e *Engine) WithdrawEnds() (uint64, error) {
	p, err := e.params()
	if err != nil {
		return 0, err
	}
	return p.WithdrawEnds, nil
}

func (e *Engine) counter(read func(*RewardPool) (*uint256.Int, error)) (*uint256.Int, error) {
	if _, err := e.params(); err != nil {
		return nil, err
	}
	return read(e.pool())
}

// StakingTotal returns the live cap.
func (e *Engine) StakingTotal() (*uint256.Int, error) {
	return e.counter((*RewardPool).StakingTotal)
}

func (e *Engine) StakedTotal() (*uint256.Int, error) {
	return e.counter((*RewardPool).StakedTotal)
}

func (e *Engine) StakedBalance() (*uint256.Int, error) {
	return e.counter((*RewardPool).StakedBalance)
}

func (e *Engine) RewardBalance() (*uint256.Int, error) {
	return e.counter((*RewardPool).RewardBalance)
}

func (e *Engine) TotalReward() (*uint256.Int, error) {
	return e.counter((*RewardPool).TotalReward)
}

func (e *Engine) EarlyWithdrawReward() (*uint256.Int, error) {
	return e.counter((*RewardPool).EarlyWithdrawReward)
}

// AmountStaked returns the staker's principal, zero for unknown stakers.
func (e *Engine) AmountStaked(staker crypto.Address) (*uint256.Int, error) {
	if _, err := e.params(); err != nil {
		return nil, err
	}
	return e.ledger().AmountStaked(staker)
}

// Stakers lists every identity holding a ledger entry.
func (e *Engine) Stakers() ([]crypto.Address, error) {
	if _, err := e.params(); err != nil {
		return nil, err
	}
	return e.ledger().Stakers()
}

// Snapshot reads every parameter and counter in one pass.
func (e *Engine) Snapshot() (*Snapshot, error) {
	p, err := e.params()
	if err != nil {
		return nil, err
	}
	owner, err := p.OwnerAddress()
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Name:                p.Name,
		AddressLabel:        p.AddressLabel,
		Owner:               owner,
		Vault:               p.Vault(),
		StakingStarts:       p.StakingStarts,
		StakingEnds:         p.StakingEnds,
		WithdrawStarts:      p.WithdrawStarts,
		WithdrawEnds:        p.WithdrawEnds,
		InitialStakingTotal: cloneAmount(p.StakingTotal),
		InitializedAt:       p.InitializedAt,
	}
	pool := e.pool()
	for _, field := range []struct {
		dst  **uint256.Int
		read func() (*uint256.Int, error)
	}{
		{&snap.StakingTotal, pool.StakingTotal},
		{&snap.StakedTotal, pool.StakedTotal},
		{&snap.StakedBalance, pool.StakedBalance},
		{&snap.RewardBalance, pool.RewardBalance},
		{&snap.TotalReward, pool.TotalReward},
		{&snap.EarlyWithdrawReward, pool.EarlyWithdrawReward},
	} {
		v, err := field.read()
		if err != nil {
			return nil, err
		}
		*field.dst = v
	}
	stakers, err := e.ledger().Stakers()
	if err != nil {
		return nil, err
	}
	snap.Stakers = len(stakers)
	return snap, nil
}
