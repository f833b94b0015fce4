package events

import (
	"testing"

	"github.com/holiman/uint256"

	"stakeledger/crypto"
)

type recorder struct {
	seen []Event
}

func (r *recorder) Emit(evt Event) { r.seen = append(r.seen, evt) }

func testStaker() crypto.Address {
	var h [crypto.HashLength]byte
	h[0] = 0x42
	return crypto.NewAccount(h)
}

func TestBufferFlushAndReset(t *testing.T) {
	var buf Buffer
	buf.Emit(Stake{Staker: testStaker(), Amount: uint256.NewInt(5)})
	buf.Emit(nil)
	if buf.Len() != 1 {
		t.Fatalf("expected 1 buffered event, got %d", buf.Len())
	}

	rec := &recorder{}
	buf.Flush(rec)
	if len(rec.seen) != 1 || rec.seen[0].EventType() != TypeStake {
		t.Fatalf("unexpected flushed events: %#v", rec.seen)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer not emptied after flush")
	}

	buf.Emit(Withdraw{Staker: testStaker(), Amount: uint256.NewInt(1)})
	buf.Reset()
	buf.Flush(rec)
	if len(rec.seen) != 1 {
		t.Fatalf("reset buffer should not flush, got %d events", len(rec.seen))
	}
}

func TestStakeEventCarriesRequestedAmount(t *testing.T) {
	evt := Stake{
		Staker:   testStaker(),
		Amount:   uint256.NewInt(100),
		Credited: uint256.NewInt(60),
		Refund:   uint256.NewInt(40),
	}.Event()
	if evt.Attr("amount") != "100" {
		t.Fatalf("expected requested amount 100, got %s", evt.Attr("amount"))
	}
	if evt.Attr("credited") != "60" || evt.Attr("refund") != "40" {
		t.Fatalf("unexpected attributes %v", evt.Attributes)
	}
	if evt.Attr("staker") != testStaker().String() {
		t.Fatalf("unexpected staker %s", evt.Attr("staker"))
	}
}

func TestWithdrawEventRendering(t *testing.T) {
	evt := Render(Withdraw{
		Staker: testStaker(),
		Amount: uint256.NewInt(5),
		Reward: uint256.NewInt(50),
		Payout: uint256.NewInt(55),
	})
	if evt.Type != TypeWithdraw {
		t.Fatalf("unexpected type %s", evt.Type)
	}
	if evt.Attr("amount") != "5" || evt.Attr("payout") != "55" || evt.Attr("early") != "false" {
		t.Fatalf("unexpected attributes %v", evt.Attributes)
	}
}

func TestFanoutSkipsNil(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Fanout{a, nil, b}.Emit(RewardAdded{Reward: uint256.NewInt(1)})
	if len(a.seen) != 1 || len(b.seen) != 1 {
		t.Fatalf("fanout did not reach every emitter")
	}
}

func TestBroadcasterDeliversAndCancels(t *testing.T) {
	bc := NewBroadcaster()
	ch, cancel := bc.Subscribe(1)
	if bc.Subscribers() != 1 {
		t.Fatalf("expected one subscriber")
	}

	bc.Emit(Stake{Staker: testStaker(), Amount: uint256.NewInt(1)})
	// Second event is dropped because the channel is full.
	bc.Emit(Stake{Staker: testStaker(), Amount: uint256.NewInt(2)})

	got := <-ch
	if got.Attr("amount") != "1" {
		t.Fatalf("unexpected event %v", got.Attributes)
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after cancel")
	}
	if bc.Subscribers() != 0 {
		t.Fatalf("expected no subscribers after cancel")
	}
}
