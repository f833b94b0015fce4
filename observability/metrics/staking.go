package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StakingMetrics tracks ledger operations and pool levels.
type StakingMetrics struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	payouts      prometheus.Counter
	rewardPool   prometheus.Gauge
	stakedTotal  prometheus.Gauge
	stakingTotal prometheus.Gauge
}

var (
	stakingOnce     sync.Once
	stakingRegistry *StakingMetrics
)

func Staking() *StakingMetrics {
	stakingOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "staking_operations_total",
				Help: "Count of staking operations by operation and result code.",
			}, []string{"op", "result"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "staking_call_duration_seconds",
				Help:    "Wall time spent applying a staking call including commit.",
				Buckets: prometheus.DefBuckets,
			}, []string{"op"}),
			payouts: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "staking_payout_total",
				Help: "Sum of principal plus reward paid out on withdrawal.",
			}),
			rewardPool: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "staking_reward_balance",
				Help: "Current reward_balance counter.",
			}),
			stakedTotal: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "staking_staked_total",
				Help: "Current staked_total counter.",
			}),
			stakingTotal: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "staking_staking_total",
				Help: "Current staking cap.",
			}),
		}
		prometheus.MustRegister(
			stakingRegistry.operations,
			stakingRegistry.duration,
			stakingRegistry.payouts,
			stakingRegistry.rewardPool,
			stakingRegistry.stakedTotal,
			stakingRegistry.stakingTotal,
		)
	})
	return stakingRegistry
}

// ObserveCall records one operation outcome. result is "ok" or the failure
// kind.
func (m *StakingMetrics) ObserveCall(op, result string, d time.Duration) {
	if m == nil {
		return
	}
	if result == "" {
		result = "ok"
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *StakingMetrics) AddPayout(amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.payouts.Add(amount)
}

// SetPool publishes the counters read after a committed call.
func (m *StakingMetrics) SetPool(rewardBalance, stakedTotal, stakingTotal float64) {
	if m == nil {
		return
	}
	m.rewardPool.Set(rewardBalance)
	m.stakedTotal.Set(stakedTotal)
	m.stakingTotal.Set(stakingTotal)
}

// OperationsVec exposes the operation counter for tests.
func (m *StakingMetrics) OperationsVec() *prometheus.CounterVec {
	return m.operations
}

// RewardBalanceGauge exposes the reward gauge for tests.
func (m *StakingMetrics) RewardBalanceGauge() prometheus.Gauge {
	return m.rewardPool
}

// PayoutCounter exposes the payout counter for tests.
func (m *StakingMetrics) PayoutCounter() prometheus.Counter {
	return m.payouts
}
