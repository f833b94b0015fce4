package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stakeledger/core/events"
	"stakeledger/crypto"
	"stakeledger/native/bank"
	nativecommon "stakeledger/native/common"
	"stakeledger/native/staking"
	"stakeledger/observability"
	"stakeledger/observability/metrics"
	telemetry "stakeledger/observability/otel"
	"stakeledger/storage"
)

// Node serialises staking calls against a shared store. Every call runs in
// its own transaction: mutations and the transfers they trigger commit
// together or not at all, and events reach subscribers only after commit.
type Node struct {
	db      storage.Database
	policy  staking.Policy
	pauses  *nativecommon.Pauses
	emitter events.Emitter
	logger  *slog.Logger
	metrics *metrics.StakingMetrics
	otlp    *telemetry.StakingInstruments
	tracer  trace.Tracer
	nowFn   func() uint64
	stateMu sync.Mutex
}

// Option customises a Node.
type Option func(*Node)

// WithEmitter sets the sink that receives committed events.
func WithEmitter(emitter events.Emitter) Option {
	return func(n *Node) { n.emitter = emitter }
}

func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithNowFunc overrides the clock handed to the engine.
func WithNowFunc(now func() uint64) Option {
	return func(n *Node) { n.nowFn = now }
}

// WithPauses shares an operator pause table with the node.
func WithPauses(p *nativecommon.Pauses) Option {
	return func(n *Node) {
		if p != nil {
			n.pauses = p
		}
	}
}

// NewNode wires a node over db using the given accounting policy.
func NewNode(db storage.Database, policy staking.Policy, opts ...Option) (*Node, error) {
	if db == nil {
		return nil, errors.New("node: database required")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	n := &Node{
		db:      db,
		policy:  policy,
		pauses:  nativecommon.NewPauses(),
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		metrics: metrics.Staking(),
		otlp:    telemetry.Staking(),
		tracer:  telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.emitter == nil {
		n.emitter = events.NoopEmitter{}
	}
	return n, nil
}

// Pauses exposes the operator pause table.
func (n *Node) Pauses() *nativecommon.Pauses { return n.pauses }

// Policy reports the accounting policy in force.
func (n *Node) Policy() staking.Policy { return n.policy }

func (n *Node) newStakingEngine(kv storage.KV, gateway staking.TransferGateway, emitter events.Emitter) *staking.Engine {
	engine := staking.NewEngine(n.policy)
	engine.SetState(kv)
	engine.SetGateway(gateway)
	engine.SetEmitter(emitter)
	engine.SetPauses(n.pauses)
	engine.SetNowFunc(n.nowFn)
	engine.SetLogger(n.logger)
	return engine
}

// apply runs fn inside a fresh transaction and commits on success.
func (n *Node) apply(ctx context.Context, op string, caller crypto.Address, fn func(*staking.Engine, *bank.Ledger) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	ctx, span := n.tracer.Start(ctx, "staking."+op, trace.WithAttributes(
		attribute.String("staking.op", op),
		attribute.String("staking.caller", caller.String()),
	))
	defer span.End()
	started := time.Now()

	txn := storage.NewTxn(n.db)
	buffer := &events.Buffer{}
	ledger := bank.NewLedger(txn)
	ledger.SetEmitter(buffer)
	engine := n.newStakingEngine(txn, ledger, buffer)

	err := fn(engine, ledger)
	if err == nil {
		// A caller that gave up before commit sees nothing applied.
		err = ctx.Err()
	}
	if err == nil {
		if err = txn.Commit(); err != nil {
			err = errors.Join(errors.New("node: commit failed"), err)
		}
	} else {
		txn.Discard()
	}

	elapsed := time.Since(started)
	n.metrics.ObserveCall(op, ResultLabel(err), elapsed)
	n.otlp.RecordCall(ctx, op, ResultLabel(err), elapsed)
	if err != nil {
		buffer.Reset()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		n.logger.WarnContext(ctx, "staking call rejected",
			slog.String("op", op),
			slog.String("caller", caller.String()),
			slog.String("result", ResultLabel(err)),
			slog.Any("error", err))
		return err
	}

	for _, evt := range buffer.Events() {
		if w, ok := evt.(events.Withdraw); ok {
			payout := observability.AmountToFloat(w.Payout)
			n.metrics.AddPayout(payout)
			n.otlp.RecordPayout(ctx, payout)
		}
	}
	buffer.Flush(n.emitter)
	n.publishPool()
	return nil
}

// publishPool refreshes the pool gauges from committed state. Callers hold
// stateMu.
func (n *Node) publishPool() {
	engine := n.newStakingEngine(n.db, nil, nil)
	snap, err := engine.Snapshot()
	if err != nil {
		return
	}
	n.metrics.SetPool(
		observability.AmountToFloat(snap.RewardBalance),
		observability.AmountToFloat(snap.StakedTotal),
		observability.AmountToFloat(snap.StakingTotal),
	)
}

// ResultLabel names the outcome of a call for metrics and logs.
func ResultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code, ok := staking.CodeOf(err); ok {
		return code.String()
	}
	if errors.Is(err, nativecommon.ErrModulePaused) {
		return "paused"
	}
	return "error"
}

// View runs fn against committed state. Any write fn attempts is discarded.
func (n *Node) View(ctx context.Context, fn func(*staking.Engine, *bank.Ledger) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	ctx, span := n.tracer.Start(ctx, "staking.view")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := storage.NewTxn(n.db)
	defer txn.Discard()
	ledger := bank.NewLedger(txn)
	return fn(n.newStakingEngine(txn, ledger, nil), ledger)
}

func (n *Node) StakingInitialize(ctx context.Context, caller crypto.Address, params staking.InitParams) error {
	return n.apply(ctx, "initialize", caller, func(engine *staking.Engine, _ *bank.Ledger) error {
		return engine.Initialize(caller, params)
	})
}

func (n *Node) StakingStake(ctx context.Context, caller crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	var out *uint256.Int
	err := n.apply(ctx, "stake", caller, func(engine *staking.Engine, _ *bank.Ledger) error {
		var err error
		out, err = engine.Stake(caller, amount)
		return err
	})
	return out, err
}

func (n *Node) StakingWithdraw(ctx context.Context, caller crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	var out *uint256.Int
	err := n.apply(ctx, "withdraw", caller, func(engine *staking.Engine, _ *bank.Ledger) error {
		var err error
		out, err = engine.Withdraw(caller, amount)
		return err
	})
	return out, err
}

func (n *Node) StakingAddReward(ctx context.Context, caller crypto.Address, reward, withdrawable *uint256.Int) (*uint256.Int, error) {
	var out *uint256.Int
	err := n.apply(ctx, "add_reward", caller, func(engine *staking.Engine, _ *bank.Ledger) error {
		var err error
		out, err = engine.AddReward(caller, reward, withdrawable)
		return err
	})
	return out, err
}

func (n *Node) StakingInitialized(ctx context.Context) (bool, error) {
	var ok bool
	err := n.View(ctx, func(engine *staking.Engine, _ *bank.Ledger) error {
		var err error
		ok, err = engine.Initialized()
		return err
	})
	return ok, err
}

// StakingSnapshot reads the committed parameters and counters.
func (n *Node) StakingSnapshot(ctx context.Context) (*staking.Snapshot, error) {
	var snap *staking.Snapshot
	err := n.View(ctx, func(engine *staking.Engine, _ *bank.Ledger) error {
		var err error
		snap, err = engine.Snapshot()
		return err
	})
	return snap, err
}

func (n *Node) StakingAmountStaked(ctx context.Context, staker crypto.Address) (*uint256.Int, error) {
	var out *uint256.Int
	err := n.View(ctx, func(engine *staking.Engine, _ *bank.Ledger) error {
		var err error
		out, err = engine.AmountStaked(staker)
		return err
	})
	return out, err
}

func (n *Node) StakingStakers(ctx context.Context) ([]crypto.Address, error) {
	var out []crypto.Address
	err := n.View(ctx, func(engine *staking.Engine, _ *bank.Ledger) error {
		var err error
		out, err = engine.Stakers()
		return err
	})
	return out, err
}

// BankMint credits test tokens. It bypasses the staking engine but still
// commits through a transaction.
func (n *Node) BankMint(ctx context.Context, to crypto.Address, amount *uint256.Int) error {
	return n.apply(ctx, "mint", to, func(_ *staking.Engine, ledger *bank.Ledger) error {
		return ledger.Mint(to, amount)
	})
}

func (n *Node) BankBalanceOf(ctx context.Context, addr crypto.Address) (*uint256.Int, error) {
	var out *uint256.Int
	err := n.View(ctx, func(_ *staking.Engine, ledger *bank.Ledger) error {
		var err error
		out, err = ledger.BalanceOf(addr)
		return err
	})
	return out, err
}
