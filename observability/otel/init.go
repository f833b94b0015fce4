package otel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"stakeledger/native/staking"
)

// ScopeName is the instrumentation scope of staking spans and instruments.
const ScopeName = "stakeledger/staking"

// DefaultCollector is the OTLP/HTTP collector used when none is configured.
const DefaultCollector = "127.0.0.1:4318"

const (
	attrAccounting     = attribute.Key("stakeledger.staking.accounting")
	attrEarlyReward    = attribute.Key("stakeledger.staking.early_reward")
	attrCollectStake   = attribute.Key("stakeledger.staking.collect_stake")
	attrEnforceWindows = attribute.Key("stakeledger.staking.enforce_windows")
)

// Config selects which signals stakingd exports and where to.
type Config struct {
	Service     string
	Environment string
	// Collector is the host:port of an OTLP/HTTP collector.
	Collector     string
	Plaintext     bool
	Headers       map[string]string
	ExportTraces  bool
	ExportMetrics bool
	// Policy is stamped on the resource so every span and series carries the
	// accounting rules the node ran with.
	Policy staking.Policy
}

// Shutdown flushes and stops whatever Init started.
type Shutdown func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs the global tracer and meter providers. With both exporters
// off it leaves the globals untouched, so spans and instruments stay no-ops.
func Init(ctx context.Context, cfg Config) (Shutdown, error) {
	if cfg.Service == "" {
		return nil, errors.New("telemetry: service name required")
	}
	if !cfg.ExportTraces && !cfg.ExportMetrics {
		return noopShutdown, nil
	}
	if cfg.Collector == "" {
		cfg.Collector = DefaultCollector
	}
	res, err := Resource(cfg)
	if err != nil {
		return nil, err
	}

	var stops []Shutdown
	if cfg.ExportTraces {
		tp, err := newTracerProvider(ctx, cfg, res)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(tp)
		stops = append(stops, tp.Shutdown)
	}
	if cfg.ExportMetrics {
		mp, err := newMeterProvider(ctx, cfg, res)
		if err != nil {
			return nil, errors.Join(err, shutdownAll(stops)(ctx))
		}
		otel.SetMeterProvider(mp)
		stops = append(stops, mp.Shutdown)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return shutdownAll(stops), nil
}

// Resource describes the node: service, environment and staking policy.
func Resource(cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.Service),
		attrAccounting.String(string(cfg.Policy.Accounting)),
		attrEarlyReward.String(string(cfg.Policy.EarlyReward)),
		attrCollectStake.Bool(cfg.Policy.CollectStake),
		attrEnforceWindows.Bool(cfg.Policy.EnforceWindows),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}
	return res, nil
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Collector)}
	if cfg.Plaintext {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(2*time.Second)),
	), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Collector)}
	if cfg.Plaintext {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: metric exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))),
	), nil
}

// shutdownAll stops providers in reverse start order and reports every
// failure.
func shutdownAll(stops []Shutdown) Shutdown {
	return func(ctx context.Context) error {
		var errs []error
		for i := len(stops) - 1; i >= 0; i-- {
			errs = append(errs, stops[i](ctx))
		}
		return errors.Join(errs...)
	}
}

// Tracer returns the staking tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(ScopeName)
}
