package staking

import (
	"testing"

	"github.com/holiman/uint256"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestLiteralRemaining(t *testing.T) {
	cases := []struct {
		name                string
		amount, cap, staked uint64
		want                uint64
		wantErr             *Error
	}{
		{name: "small", amount: 1, cap: 100_000, want: 1},
		{name: "half", amount: 50_000, cap: 100_000, want: 50_000},
		{name: "clamped", amount: 60_000, cap: 100_000, want: 40_000},
		{name: "whole cap", amount: 100_000, cap: 100_000, wantErr: ErrNotRequiredStake},
		{name: "above cap", amount: 100_001, cap: 100_000, wantErr: ErrInvalidState},
		{name: "zero", amount: 0, cap: 100_000, wantErr: ErrNotRequiredStake},
		{name: "over filled", amount: 10, cap: 100, staked: 95, wantErr: ErrNotRequiredStake},
	}
	for _, tc := range cases {
		got, err := literalRemaining(u(tc.amount), u(tc.cap), u(tc.staked))
		if tc.wantErr != nil {
			if err == nil || !isCode(err, tc.wantErr) {
				t.Fatalf("%s: expected %s, got %v", tc.name, tc.wantErr.Code, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got.Uint64() != tc.want {
			t.Fatalf("%s: expected %d, got %s", tc.name, tc.want, got.Dec())
		}
	}
}

func TestCapacityRemaining(t *testing.T) {
	got, err := capacityRemaining(u(50), u(100), u(70))
	if err != nil || got.Uint64() != 30 {
		t.Fatalf("expected 30, got %v %v", got, err)
	}
	got, err = capacityRemaining(u(5), u(100), u(70))
	if err != nil || got.Uint64() != 5 {
		t.Fatalf("expected 5, got %v %v", got, err)
	}
	if _, err := capacityRemaining(u(5), u(100), u(100)); !isCode(err, ErrNotRequiredStake) {
		t.Fatalf("expected NotRequiredStake, got %v", err)
	}
	// A cap lowered below the staked total leaves no capacity.
	if _, err := capacityRemaining(u(5), u(100), u(150)); !isCode(err, ErrNotRequiredStake) {
		t.Fatalf("expected NotRequiredStake, got %v", err)
	}
}

func TestEarlyReward(t *testing.T) {
	// (1500-1000) * 400 / ((2000-1000) * 100) = 2
	got, err := earlyReward(1_500, 1_000, 2_000, u(100), u(400), EarlyRewardStrict)
	if err != nil || got.Uint64() != 2 {
		t.Fatalf("expected 2, got %v %v", got, err)
	}
	// Truncating division.
	got, err = earlyReward(1_001, 1_000, 2_000, u(100), u(99_999), EarlyRewardStrict)
	if err != nil || got.Uint64() != 0 {
		t.Fatalf("expected 0, got %v %v", got, err)
	}
	if _, err := earlyReward(999, 1_000, 2_000, u(100), u(1), EarlyRewardStrict); !isCode(err, ErrInvalidState) {
		t.Fatalf("expected InvalidState for negative elapsed, got %v", err)
	}
	got, err = earlyReward(999, 1_000, 2_000, u(100), u(1), EarlyRewardSaturate)
	if err != nil || !got.IsZero() {
		t.Fatalf("expected saturated zero, got %v %v", got, err)
	}
	if _, err := earlyReward(1_500, 1_000, 1_000, u(100), u(1), EarlyRewardStrict); !isCode(err, ErrInvalidState) {
		t.Fatalf("expected InvalidState for zero span, got %v", err)
	}
	if _, err := earlyReward(1_500, 1_000, 2_000, u(0), u(1), EarlyRewardStrict); !isCode(err, ErrInvalidState) {
		t.Fatalf("expected InvalidState for zero staking_total, got %v", err)
	}
	huge := new(uint256.Int).Lsh(u(1), 255)
	if _, err := earlyReward(1_500, 1_000, 2_000, huge, u(1), EarlyRewardStrict); !isCode(err, ErrInvalidState) {
		t.Fatalf("expected InvalidState for overflow, got %v", err)
	}
}

func TestAfterCloseReward(t *testing.T) {
	got, err := afterCloseReward(u(100), u(5), u(10))
	if err != nil || got.Uint64() != 50 {
		t.Fatalf("expected 50, got %v %v", got, err)
	}
	got, err = afterCloseReward(u(10), u(1), u(3))
	if err != nil || got.Uint64() != 3 {
		t.Fatalf("expected 3, got %v %v", got, err)
	}
	if _, err := afterCloseReward(u(100), u(5), u(0)); !isCode(err, ErrInvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
}

func TestErrorCodes(t *testing.T) {
	err := errorf(ErrBadTiming, "window closed at %d", 5)
	code, ok := CodeOf(err)
	if !ok || code != CodeBadTiming || code.String() != "BadTiming" {
		t.Fatalf("unexpected code %v %v", code, ok)
	}
	if isCode(err, ErrWrongArguments) {
		t.Fatalf("codes must not match across kinds")
	}
	if Code(99).String() != "Code(99)" {
		t.Fatalf("unexpected unknown code rendering %s", Code(99))
	}
}

func TestPolicyParsing(t *testing.T) {
	if mode, err := ParseAccounting(" Literal "); err != nil || mode != AccountingLiteral {
		t.Fatalf("unexpected accounting %v %v", mode, err)
	}
	if _, err := ParseAccounting("double"); err == nil {
		t.Fatalf("expected unknown accounting error")
	}
	if mode, err := ParseEarlyReward("SATURATE"); err != nil || mode != EarlyRewardSaturate {
		t.Fatalf("unexpected early reward %v %v", mode, err)
	}
	if err := (Policy{Accounting: AccountingCapacity}).Validate(); err == nil {
		t.Fatalf("expected missing early reward mode to fail")
	}
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
}

func isCode(err error, want *Error) bool {
	code, ok := CodeOf(err)
	return ok && code == want.Code
}
