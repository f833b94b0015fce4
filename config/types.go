package config

// Staking selects the accounting policy of the staking engine.
type Staking struct {
	// Accounting is "capacity" or "literal".
	Accounting string `toml:"Accounting"`
	// CollectStake overrides the accounting default when set.
	CollectStake *bool `toml:"CollectStake,omitempty"`
	// EarlyReward is "strict" or "saturate".
	EarlyReward    string `toml:"EarlyReward"`
	EnforceWindows bool   `toml:"EnforceWindows"`
}

// Auth configures bearer token verification on mutating RPC methods.
type Auth struct {
	JWTSecret          string `toml:"JWTSecret"`
	Issuer             string `toml:"Issuer"`
	Audience           string `toml:"Audience"`
	MaxTokenTTLSeconds int64  `toml:"MaxTokenTTLSeconds"`
}

// RateLimit bounds per-client request rates.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

type Logging struct {
	Level      string `toml:"Level"`
	Format     string `toml:"Format"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	ServiceName string `toml:"ServiceName"`
	Endpoint    string `toml:"Endpoint"`
	Insecure    bool   `toml:"Insecure"`
	Headers     string `toml:"Headers"`
	Metrics     bool   `toml:"Metrics"`
	Traces      bool   `toml:"Traces"`
}

// EventLog points at the event archive. Empty DSN selects a sqlite file in
// the data directory.
type EventLog struct {
	DSN      string `toml:"DSN"`
	Disabled bool   `toml:"Disabled"`
}

// Faucet enables bank_mint for development networks.
type Faucet struct {
	Enabled bool `toml:"Enabled"`
}

// Pauses lists modules that start paused.
type Pauses struct {
	Staking bool `toml:"Staking"`
}
