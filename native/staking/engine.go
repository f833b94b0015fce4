package staking

import (
	"log/slog"
	"time"

	"github.com/holiman/uint256"

	"stakeledger/core/events"
	"stakeledger/crypto"
	nativecommon "stakeledger/native/common"
	"stakeledger/storage"
)

const moduleName = "staking"

// ModuleName is the pause key of the staking module.
const ModuleName = moduleName

// Engine applies stake, withdraw and reward funding transitions against a
// key-value store. It holds no state of its own between calls; the host is
// expected to hand it a transactional view for every invocation.
type Engine struct {
	state   storage.KV
	gateway TransferGateway
	emitter events.Emitter
	nowFn   func() uint64
	policy  Policy
	pauses  nativecommon.PauseView
	logger  *slog.Logger
}

// NewEngine creates an engine using the supplied accounting policy, a no-op
// emitter and the wall clock.
func NewEngine(policy Policy) *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   wallClock,
		policy:  policy,
		logger:  slog.Default(),
	}
}

func wallClock() uint64 { return uint64(time.Now().Unix()) }

// SetState configures the store the engine reads and writes.
func (e *Engine) SetState(state storage.KV) { e.state = state }

// SetGateway configures the token transfer collaborator.
func (e *Engine) SetGateway(gw TransferGateway) { e.gateway = gw }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Timestamps are unix seconds.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = wallClock
		return
	}
	e.nowFn = now
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// Policy returns the accounting policy the engine was built with.
func (e *Engine) Policy() Policy { return e.policy }

func (e *Engine) now() uint64 {
	if e.nowFn == nil {
		return wallClock()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt events.Event) {
	if e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// begin runs the checks shared by every mutating operation and returns the
// loaded parameters.
func (e *Engine) begin(caller crypto.Address) (*Params, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if caller.IsZero() {
		return nil, errorf(ErrInvalidContext, "caller identity not resolved")
	}
	return e.params()
}

func (e *Engine) params() (*Params, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	p, ok, err := loadParams(e.state)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorf(ErrInvalidState, "staking not initialized")
	}
	return p, nil
}

func (e *Engine) ledger() *StakerLedger { return NewStakerLedger(e.state) }

func (e *Engine) pool() *RewardPool { return NewRewardPool(e.state) }

// Initialize fixes the staking parameters. It succeeds once; later calls fail
// with PermissionDenied.
func (e *Engine) Initialize(caller crypto.Address, p InitParams) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller.IsZero() {
		return errorf(ErrInvalidContext, "caller identity not resolved")
	}
	if _, ok, err := loadParams(e.state); err != nil {
		return err
	} else if ok {
		return errorf(ErrPermissionDenied, "staking already initialized")
	}
	if err := p.Validate(); err != nil {
		return err
	}
	record := &Params{
		Name:           p.Name,
		AddressLabel:   p.AddressLabel,
		StakingStarts:  p.StakingStarts,
		StakingEnds:    p.StakingEnds,
		WithdrawStarts: p.WithdrawStarts,
		WithdrawEnds:   p.WithdrawEnds,
		StakingTotal:   cloneAmount(p.StakingTotal),
		Owner:          caller.Key(),
		InitializedAt:  e.now(),
	}
	if err := storeParams(e.state, record); err != nil {
		return err
	}
	if err := e.pool().SetStakingTotal(record.StakingTotal); err != nil {
		return err
	}
	e.emit(events.StakingInitialized{
		Owner:        caller,
		Vault:        record.Vault(),
		Name:         record.Name,
		StakingEnds:  record.StakingEnds,
		WithdrawEnds: record.WithdrawEnds,
		StakingTotal: cloneAmount(record.StakingTotal),
	})
	e.logger.Info("staking initialized",
		slog.String("name", record.Name),
		slog.String("owner", caller.String()),
		slog.String("staking_total", record.StakingTotal.Dec()))
	return nil
}

// Stake records principal for the caller and returns the requested amount.
// Any portion beyond the accepted amount is refunded from the vault.
func (e *Engine) Stake(caller crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	params, err := e.begin(caller)
	if err != nil {
		return nil, err
	}
	if amount == nil {
		return nil, errorf(ErrWrongArguments, "amount must be provided")
	}
	if e.policy.EnforceWindows {
		now := e.now()
		if now < params.StakingStarts || now >= params.StakingEnds {
			return nil, errorf(ErrBadTiming, "staking window is [%d, %d), now %d", params.StakingStarts, params.StakingEnds, now)
		}
	}
	amount = cloneAmount(amount)
	if e.policy.Accounting == AccountingLiteral {
		err = e.stakeLiteral(caller, params, amount)
	} else {
		err = e.stakeCapacity(caller, params, amount)
	}
	if err != nil {
		return nil, err
	}
	return amount, nil
}

func (e *Engine) stakeLiteral(caller crypto.Address, params *Params, amount *uint256.Int) error {
	pool, ledger := e.pool(), e.ledger()
	stakingTotal, err := pool.StakingTotal()
	if err != nil {
		return err
	}
	stakedTotal, err := pool.StakedTotal()
	if err != nil {
		return err
	}
	remaining, err := literalRemaining(amount, stakingTotal, stakedTotal)
	if err != nil {
		return err
	}
	nextTotal, overflow := new(uint256.Int).AddOverflow(stakingTotal, remaining)
	if overflow {
		return errorf(ErrInvalidState, "staking_total overflow")
	}
	refund := new(uint256.Int).Sub(amount, remaining)

	if err := ledger.AddStake(caller, remaining); err != nil {
		return err
	}
	e.emit(events.Stake{Staker: caller, Amount: cloneAmount(amount), Credited: cloneAmount(remaining), Refund: refund})
	if err := e.collectAndRefund(params, caller, amount, refund); err != nil {
		return err
	}
	if err := pool.SetStakingTotal(nextTotal); err != nil {
		return err
	}
	return ledger.AddStake(caller, remaining)
}

func (e *Engine) stakeCapacity(caller crypto.Address, params *Params, amount *uint256.Int) error {
	pool, ledger := e.pool(), e.ledger()
	stakingTotal, err := pool.StakingTotal()
	if err != nil {
		return err
	}
	stakedTotal, err := pool.StakedTotal()
	if err != nil {
		return err
	}
	stakedBalance, err := pool.StakedBalance()
	if err != nil {
		return err
	}
	remaining, err := capacityRemaining(amount, stakingTotal, stakedTotal)
	if err != nil {
		return err
	}
	nextStaked, overflow := new(uint256.Int).AddOverflow(stakedTotal, remaining)
	if overflow {
		return errorf(ErrInvalidState, "staked_total overflow")
	}
	nextBalance, overflow := new(uint256.Int).AddOverflow(stakedBalance, remaining)
	if overflow {
		return errorf(ErrInvalidState, "staked_balance overflow")
	}
	refund := new(uint256.Int).Sub(amount, remaining)

	if err := ledger.AddStake(caller, remaining); err != nil {
		return err
	}
	if err := pool.SetStakedTotal(nextStaked); err != nil {
		return err
	}
	if err := pool.SetStakedBalance(nextBalance); err != nil {
		return err
	}
	e.emit(events.Stake{Staker: caller, Amount: cloneAmount(amount), Credited: cloneAmount(remaining), Refund: refund})
	return e.collectAndRefund(params, caller, amount, refund)
}

func (e *Engine) collectAndRefund(params *Params, staker crypto.Address, amount, refund *uint256.Int) error {
	vault := params.Vault()
	if e.policy.CollectStake {
		if err := e.payMe(vault, staker, amount); err != nil {
			return err
		}
	}
	if refund.IsZero() {
		return nil
	}
	return e.payDirect(vault, staker, refund)
}

// Withdraw returns principal to the caller together with a reward share. The
// early path applies before staking_ends, the after-close path from then on.
func (e *Engine) Withdraw(caller crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	params, err := e.begin(caller)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, errorf(ErrNegativeAmount, "withdraw amount must be positive")
	}
	now := e.now()
	if e.policy.EnforceWindows && now < params.WithdrawStarts {
		return nil, errorf(ErrBadTiming, "withdrawals open at %d, now %d", params.WithdrawStarts, now)
	}
	amount = cloneAmount(amount)
	staked, err := e.ledger().AmountStaked(caller)
	if err != nil {
		return nil, err
	}
	if amount.Gt(staked) {
		return nil, errorf(ErrNotRequiredStake, "withdraw %s exceeds staked %s", amount.Dec(), staked.Dec())
	}
	if now < params.StakingEnds {
		err = e.withdrawEarly(caller, params, amount, now)
	} else {
		err = e.withdrawAfterClose(caller, params, amount)
	}
	if err != nil {
		return nil, err
	}
	return amount, nil
}

func (e *Engine) withdrawEarly(caller crypto.Address, params *Params, amount *uint256.Int, now uint64) error {
	pool := e.pool()
	stakingTotal, err := pool.StakingTotal()
	if err != nil {
		return err
	}
	reward, err := earlyReward(now, params.StakingEnds, params.WithdrawEnds, stakingTotal, amount, e.policy.EarlyReward)
	if err != nil {
		return err
	}
	payout, overflow := new(uint256.Int).AddOverflow(amount, reward)
	if overflow {
		return errorf(ErrInvalidState, "payout overflow")
	}
	rewardBalance, err := pool.RewardBalance()
	if err != nil {
		return err
	}
	nextReward, underflow := new(uint256.Int).SubOverflow(rewardBalance, reward)
	if underflow {
		return errorf(ErrInvalidState, "reward %s exceeds reward_balance %s", reward.Dec(), rewardBalance.Dec())
	}
	stakedBalance, err := pool.StakedBalance()
	if err != nil {
		return err
	}
	nextBalance, underflow := new(uint256.Int).SubOverflow(stakedBalance, amount)
	if underflow {
		return errorf(ErrInvalidState, "amount %s exceeds staked_balance %s", amount.Dec(), stakedBalance.Dec())
	}
	if err := pool.SetRewardBalance(nextReward); err != nil {
		return err
	}
	if err := pool.SetStakedBalance(nextBalance); err != nil {
		return err
	}
	return e.settleWithdraw(caller, params, amount, reward, payout, true)
}

func (e *Engine) withdrawAfterClose(caller crypto.Address, params *Params, amount *uint256.Int) error {
	pool := e.pool()
	rewardBalance, err := pool.RewardBalance()
	if err != nil {
		return err
	}
	stakedBalance, err := pool.StakedBalance()
	if err != nil {
		return err
	}
	reward, err := afterCloseReward(rewardBalance, amount, stakedBalance)
	if err != nil {
		return err
	}
	payout, overflow := new(uint256.Int).AddOverflow(amount, reward)
	if overflow {
		return errorf(ErrInvalidState, "payout overflow")
	}
	return e.settleWithdraw(caller, params, amount, reward, payout, false)
}

// settleWithdraw debits the ledger, keeps staked_total in step under capacity
// accounting and pays the staker.
func (e *Engine) settleWithdraw(caller crypto.Address, params *Params, amount, reward, payout *uint256.Int, early bool) error {
	if err := e.ledger().WithdrawStake(caller, amount); err != nil {
		return err
	}
	if e.policy.Accounting != AccountingLiteral {
		pool := e.pool()
		stakedTotal, err := pool.StakedTotal()
		if err != nil {
			return err
		}
		next, underflow := new(uint256.Int).SubOverflow(stakedTotal, amount)
		if underflow {
			return errorf(ErrInvalidState, "amount %s exceeds staked_total %s", amount.Dec(), stakedTotal.Dec())
		}
		if err := pool.SetStakedTotal(next); err != nil {
			return err
		}
	}
	if err := e.payDirect(params.Vault(), caller, payout); err != nil {
		return err
	}
	e.emit(events.Withdraw{Staker: caller, Amount: cloneAmount(amount), Reward: reward, Payout: payout, Early: early})
	e.logger.Debug("staking withdraw",
		slog.String("staker", caller.String()),
		slog.String("amount", amount.Dec()),
		slog.String("reward", reward.Dec()),
		slog.Bool("early", early))
	return nil
}

// AddReward pulls reward from the caller into the vault and returns it.
// reward_balance is reset to the new total rather than incremented.
func (e *Engine) AddReward(caller crypto.Address, reward, withdrawable *uint256.Int) (*uint256.Int, error) {
	params, err := e.begin(caller)
	if err != nil {
		return nil, err
	}
	if reward == nil || reward.IsZero() {
		return nil, errorf(ErrNegativeReward, "reward amount must be positive")
	}
	if withdrawable == nil {
		return nil, errorf(ErrNegativeWithdrawableReward, "withdrawable amount must be provided")
	}
	if withdrawable.Gt(reward) {
		return nil, errorf(ErrNegativeWithdrawableReward, "withdrawable %s exceeds reward %s", withdrawable.Dec(), reward.Dec())
	}
	reward, withdrawable = cloneAmount(reward), cloneAmount(withdrawable)

	pool := e.pool()
	totalReward, err := pool.TotalReward()
	if err != nil {
		return nil, err
	}
	nextTotal, overflow := new(uint256.Int).AddOverflow(totalReward, reward)
	if overflow {
		return nil, errorf(ErrInvalidState, "total_reward overflow")
	}
	early, err := pool.EarlyWithdrawReward()
	if err != nil {
		return nil, err
	}
	nextEarly, overflow := new(uint256.Int).AddOverflow(early, withdrawable)
	if overflow {
		return nil, errorf(ErrInvalidState, "early_withdraw_reward overflow")
	}

	if err := e.payMe(params.Vault(), caller, reward); err != nil {
		return nil, err
	}
	if err := pool.SetTotalReward(nextTotal); err != nil {
		return nil, err
	}
	if err := pool.SetRewardBalance(nextTotal); err != nil {
		return nil, err
	}
	if err := pool.SetEarlyWithdrawReward(nextEarly); err != nil {
		return nil, err
	}
	e.emit(events.RewardAdded{Funder: caller, Reward: cloneAmount(reward), Withdrawable: withdrawable, TotalReward: cloneAmount(nextTotal)})
	return reward, nil
}

// payDirect moves amount out of the vault.
func (e *Engine) payDirect(vault, recipient crypto.Address, amount *uint256.Int) error {
	if e.gateway == nil {
		return errNilGateway
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	return e.gateway.Transfer(vault, recipient, amount)
}

// payTo approves the vault as spender of allower's funds and pulls amount to
// recipient.
func (e *Engine) payTo(vault, allower, recipient crypto.Address, amount *uint256.Int) error {
	if e.gateway == nil {
		return errNilGateway
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	if err := e.gateway.Approve(allower, vault, amount); err != nil {
		return err
	}
	return e.gateway.TransferFrom(vault, allower, recipient, amount)
}

// payMe pulls amount from payer into the vault.
func (e *Engine) payMe(vault, payer crypto.Address, amount *uint256.Int) error {
	return e.payTo(vault, payer, vault, amount)
}
