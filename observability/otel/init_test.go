package otel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"stakeledger/native/staking"
)

func TestInitRequiresService(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	require.Error(t, err)
}

func TestInitWithoutExportersKeepsGlobals(t *testing.T) {
	tracers, meters := otel.GetTracerProvider(), otel.GetMeterProvider()

	shutdown, err := Init(context.Background(), Config{Service: "stakingd", Policy: staking.DefaultPolicy()})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	require.Equal(t, tracers, otel.GetTracerProvider())
	require.Equal(t, meters, otel.GetMeterProvider())

	_, span := Tracer().Start(context.Background(), "staking.stake")
	require.False(t, span.SpanContext().IsValid())
	span.End()
	Staking().RecordCall(context.Background(), "stake", "ok", time.Millisecond)
}

func TestResourceCarriesStakingPolicy(t *testing.T) {
	res, err := Resource(Config{
		Service:     "stakingd",
		Environment: "devnet",
		Policy:      staking.LiteralPolicy(),
	})
	require.NoError(t, err)

	set := res.Set()
	name, ok := set.Value(attribute.Key("service.name"))
	require.True(t, ok)
	require.Equal(t, "stakingd", name.AsString())
	accounting, ok := set.Value(attrAccounting)
	require.True(t, ok)
	require.Equal(t, string(staking.AccountingLiteral), accounting.AsString())
	env, ok := set.Value(attribute.Key("deployment.environment"))
	require.True(t, ok)
	require.Equal(t, "devnet", env.AsString())
}

func TestStakingInstrumentsRecord(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	inst, err := NewStakingInstruments(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	inst.RecordCall(ctx, "stake", "ok", 5*time.Millisecond)
	inst.RecordCall(ctx, "withdraw", "InvalidState", time.Millisecond)
	inst.RecordPayout(ctx, 55)
	inst.RecordPayout(ctx, 0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Equal(t, ScopeName, rm.ScopeMetrics[0].Scope.Name)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}
	calls, ok := byName["stakeledger.staking.calls"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, calls.DataPoints, 2)

	payouts, ok := byName["stakeledger.staking.payout"].Data.(metricdata.Sum[float64])
	require.True(t, ok)
	require.Len(t, payouts.DataPoints, 1)
	require.Equal(t, 55.0, payouts.DataPoints[0].Value)

	_, ok = byName["stakeledger.staking.call.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
}

func TestNilInstrumentsAreSafe(t *testing.T) {
	var inst *StakingInstruments
	inst.RecordCall(context.Background(), "stake", "ok", time.Millisecond)
	inst.RecordPayout(context.Background(), 1)
}
