package eventlog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"stakeledger/core/events"
	"stakeledger/crypto"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := Open(dsn)
	require.NoError(t, err)
	store, err := NewStore(db, nil)
	require.NoError(t, err)
	return store
}

func staker(b byte) crypto.Address {
	var h [crypto.HashLength]byte
	h[0] = b
	return crypto.NewAccount(h)
}

func TestStoreArchivesEmittedEvents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.Emit(events.Stake{Staker: staker(1), Amount: uint256.NewInt(10), Credited: uint256.NewInt(10)})
	store.Emit(events.RewardAdded{Funder: staker(2), Reward: uint256.NewInt(5), Withdrawable: uint256.NewInt(0), TotalReward: uint256.NewInt(5)})
	store.Emit(events.Withdraw{Staker: staker(1), Amount: uint256.NewInt(4), Reward: uint256.NewInt(2), Payout: uint256.NewInt(6)})
	store.Emit(nil)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, events.TypeWithdraw, recent[0].Type)
	require.Equal(t, uint64(3), recent[0].Sequence)
	require.Equal(t, events.TypeRewardAdded, recent[1].Type)

	evt, err := recent[0].Event()
	require.NoError(t, err)
	require.Equal(t, "6", evt.Attr("payout"))
}

func TestStoreFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for i := 0; i < 3; i++ {
		store.Emit(events.Stake{Staker: staker(byte(i + 1)), Amount: uint256.NewInt(uint64(i + 1))})
	}
	store.Emit(events.Withdraw{Staker: staker(1), Amount: uint256.NewInt(1)})

	byType, err := store.List(ctx, Query{Type: events.TypeStake})
	require.NoError(t, err)
	require.Len(t, byType, 3)

	byStaker, err := store.List(ctx, Query{Staker: staker(1).String()})
	require.NoError(t, err)
	require.Len(t, byStaker, 2)

	after, err := store.List(ctx, Query{After: 2})
	require.NoError(t, err)
	require.Len(t, after, 2)
}

func TestStoreResumesSequence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.db")

	db, err := Open(path)
	require.NoError(t, err)
	store, err := NewStore(db, nil)
	require.NoError(t, err)
	store.Emit(events.Stake{Staker: staker(1), Amount: uint256.NewInt(1)})
	store.Emit(events.Stake{Staker: staker(1), Amount: uint256.NewInt(2)})

	reopened, err := Open(path)
	require.NoError(t, err)
	again, err := NewStore(reopened, nil)
	require.NoError(t, err)
	rec, err := again.Append(ctx, events.Render(events.Stake{Staker: staker(2), Amount: uint256.NewInt(3)}))
	require.NoError(t, err)
	require.Equal(t, uint64(3), rec.Sequence)
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}
