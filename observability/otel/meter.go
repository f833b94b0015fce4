package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// StakingInstruments mirrors the prometheus staking series over OTLP.
type StakingInstruments struct {
	calls   metric.Int64Counter
	latency metric.Float64Histogram
	payouts metric.Float64Counter
}

var (
	stakingOnce        sync.Once
	stakingInstruments *StakingInstruments
)

// Staking returns instruments bound to the global meter provider. Created
// before Init, they follow the provider Init installs.
func Staking() *StakingInstruments {
	stakingOnce.Do(func() {
		inst, err := NewStakingInstruments(otel.GetMeterProvider())
		if err != nil {
			otel.Handle(err)
			inst, _ = NewStakingInstruments(noop.NewMeterProvider())
		}
		stakingInstruments = inst
	})
	return stakingInstruments
}

// NewStakingInstruments creates the staking instruments on mp.
func NewStakingInstruments(mp metric.MeterProvider) (*StakingInstruments, error) {
	meter := mp.Meter(ScopeName)
	calls, err := meter.Int64Counter("stakeledger.staking.calls",
		metric.WithDescription("Staking calls by operation and result."))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("stakeledger.staking.call.duration",
		metric.WithDescription("Staking call latency including commit."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	payouts, err := meter.Float64Counter("stakeledger.staking.payout",
		metric.WithDescription("Principal plus reward paid out by withdrawals."))
	if err != nil {
		return nil, err
	}
	return &StakingInstruments{calls: calls, latency: latency, payouts: payouts}, nil
}

// RecordCall counts one staking call and its latency.
func (s *StakingInstruments) RecordCall(ctx context.Context, op, result string, d time.Duration) {
	if s == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("result", result),
	)
	s.calls.Add(ctx, 1, attrs)
	s.latency.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("op", op)))
}

// RecordPayout adds a committed withdrawal payout.
func (s *StakingInstruments) RecordPayout(ctx context.Context, amount float64) {
	if s == nil || amount <= 0 {
		return
	}
	s.payouts.Add(ctx, amount)
}
