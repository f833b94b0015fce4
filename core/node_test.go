package core

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"stakeledger/core/events"
	"stakeledger/crypto"
	nativecommon "stakeledger/native/common"
	"stakeledger/native/staking"
	"stakeledger/observability/metrics"
	"stakeledger/storage"
)

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) { r.events = append(r.events, evt) }

func testAccount(b byte) crypto.Address {
	var h [crypto.HashLength]byte
	h[0] = b
	return crypto.NewAccount(h)
}

var (
	testOwner  = testAccount(0x01)
	testAlice  = testAccount(0x0a)
	testFunder = testAccount(0x0f)
	testParams = staking.InitParams{
		Name:          "node-pool",
		StakingEnds:   1_000,
		WithdrawEnds:  2_000,
		StakingTotal:  uint256.NewInt(100_000),
		AddressLabel:  "node",
		StakingStarts: 0,
	}
)

type nodeFixture struct {
	node    *Node
	db      storage.Database
	emitter *recordingEmitter
	now     uint64
}

func newNodeFixture(t *testing.T, db storage.Database) *nodeFixture {
	t.Helper()
	fx := &nodeFixture{db: db, emitter: &recordingEmitter{}, now: 10}
	node, err := NewNode(db, staking.DefaultPolicy(),
		WithEmitter(fx.emitter),
		WithNowFunc(func() uint64 { return fx.now }),
	)
	require.NoError(t, err)
	fx.node = node
	return fx
}

func TestNewNodeValidatesInputs(t *testing.T) {
	_, err := NewNode(nil, staking.DefaultPolicy())
	require.Error(t, err)
	_, err = NewNode(storage.NewMemDB(), staking.Policy{Accounting: "bogus"})
	require.Error(t, err)
}

func TestNodeStakeAndWithdrawEndToEnd(t *testing.T) {
	ctx := context.Background()
	fx := newNodeFixture(t, storage.NewMemDB())
	n := fx.node

	require.NoError(t, n.StakingInitialize(ctx, testOwner, testParams))
	require.NoError(t, n.BankMint(ctx, testAlice, uint256.NewInt(1_000)))
	require.NoError(t, n.BankMint(ctx, testFunder, uint256.NewInt(1_000)))

	got, err := n.StakingStake(ctx, testAlice, uint256.NewInt(10))
	require.NoError(t, err)
	require.Equal(t, uint64(10), got.Uint64())

	_, err = n.StakingAddReward(ctx, testFunder, uint256.NewInt(100), uint256.NewInt(0))
	require.NoError(t, err)

	fx.now = testParams.StakingEnds
	_, err = n.StakingWithdraw(ctx, testAlice, uint256.NewInt(5))
	require.NoError(t, err)

	balance, err := n.BankBalanceOf(ctx, testAlice)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000-10+55), balance.Uint64())

	vault := crypto.ContractPackageFromName(testParams.Name)
	vaultBalance, err := n.BankBalanceOf(ctx, vault)
	require.NoError(t, err)
	require.Equal(t, uint64(110-55), vaultBalance.Uint64())

	staked, err := n.StakingAmountStaked(ctx, testAlice)
	require.NoError(t, err)
	require.Equal(t, uint64(5), staked.Uint64())

	stakers, err := n.StakingStakers(ctx)
	require.NoError(t, err)
	require.Len(t, stakers, 1)

	types := make([]string, 0, len(fx.emitter.events))
	for _, evt := range fx.emitter.events {
		types = append(types, evt.EventType())
	}
	require.Equal(t, []string{
		events.TypeStakingInitialized,
		events.TypeTokenSupply,
		events.TypeTokenSupply,
		events.TypeStake,
		events.TypeTransfer,
		events.TypeTransfer,
		events.TypeRewardAdded,
		events.TypeTransfer,
		events.TypeWithdraw,
	}, types)
}

func TestNodeRollsBackFailedCalls(t *testing.T) {
	ctx := context.Background()
	fx := newNodeFixture(t, storage.NewMemDB())
	n := fx.node
	require.NoError(t, n.StakingInitialize(ctx, testOwner, testParams))
	before := len(fx.emitter.events)

	// The ledger credit happens before the collection transfer fails.
	_, err := n.StakingStake(ctx, testAlice, uint256.NewInt(10))
	require.Error(t, err)

	staked, err := n.StakingAmountStaked(ctx, testAlice)
	require.NoError(t, err)
	require.True(t, staked.IsZero())

	snap, err := n.StakingSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, snap.StakedTotal.IsZero())
	require.Zero(t, snap.Stakers)
	require.Len(t, fx.emitter.events, before)
}

func TestNodeDiscardsCancelledCalls(t *testing.T) {
	ctx := context.Background()
	fx := newNodeFixture(t, storage.NewMemDB())
	n := fx.node
	require.NoError(t, n.StakingInitialize(ctx, testOwner, testParams))
	require.NoError(t, n.BankMint(ctx, testAlice, uint256.NewInt(1_000)))
	before := len(fx.emitter.events)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := n.StakingStake(cancelled, testAlice, uint256.NewInt(10))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, "error", ResultLabel(err))

	staked, err := n.StakingAmountStaked(ctx, testAlice)
	require.NoError(t, err)
	require.True(t, staked.IsZero())
	balance, err := n.BankBalanceOf(ctx, testAlice)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), balance.Uint64())
	require.Len(t, fx.emitter.events, before)

	_, err = n.StakingSnapshot(cancelled)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNodePauseAndResultLabels(t *testing.T) {
	ctx := context.Background()
	fx := newNodeFixture(t, storage.NewMemDB())
	n := fx.node
	require.NoError(t, n.StakingInitialize(ctx, testOwner, testParams))
	require.NoError(t, n.BankMint(ctx, testAlice, uint256.NewInt(10)))

	n.Pauses().Set(staking.ModuleName, true)
	_, err := n.StakingStake(ctx, testAlice, uint256.NewInt(1))
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
	require.Equal(t, "paused", ResultLabel(err))

	n.Pauses().Set(staking.ModuleName, false)
	_, err = n.StakingWithdraw(ctx, testAlice, uint256.NewInt(0))
	require.Equal(t, "NegativeAmount", ResultLabel(err))
	require.Equal(t, "ok", ResultLabel(nil))
	require.Equal(t, "error", ResultLabel(errors.New("boom")))
}

func TestNodeRecordsMetrics(t *testing.T) {
	ctx := context.Background()
	fx := newNodeFixture(t, storage.NewMemDB())
	n := fx.node
	m := metrics.Staking()

	rejected := m.OperationsVec().WithLabelValues("withdraw", "InvalidState")
	before := testutil.ToFloat64(rejected)
	_, err := n.StakingWithdraw(ctx, testAlice, uint256.NewInt(1))
	require.Error(t, err)
	require.Equal(t, before+1, testutil.ToFloat64(rejected))

	require.NoError(t, n.StakingInitialize(ctx, testOwner, testParams))
	require.NoError(t, n.BankMint(ctx, testFunder, uint256.NewInt(500)))
	_, err = n.StakingAddReward(ctx, testFunder, uint256.NewInt(250), uint256.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, float64(250), testutil.ToFloat64(m.RewardBalanceGauge()))
}

func TestNodeStatePersistsInLevelDB(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	fx := newNodeFixture(t, db)
	require.NoError(t, fx.node.StakingInitialize(ctx, testOwner, testParams))
	require.NoError(t, fx.node.BankMint(ctx, testAlice, uint256.NewInt(100)))
	_, err = fx.node.StakingStake(ctx, testAlice, uint256.NewInt(40))
	require.NoError(t, err)
	db.Close()

	reopened, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer reopened.Close()
	again := newNodeFixture(t, reopened)

	staked, err := again.node.StakingAmountStaked(ctx, testAlice)
	require.NoError(t, err)
	require.Equal(t, uint64(40), staked.Uint64())

	err = again.node.StakingInitialize(ctx, testOwner, testParams)
	code, ok := staking.CodeOf(err)
	require.True(t, ok)
	require.Equal(t, staking.CodePermissionDenied, code)
}
