package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// EnvJWTSecret overrides Auth.JWTSecret.
	EnvJWTSecret = "STAKING_JWT_SECRET"
	// EnvEnvironment overrides Environment.
	EnvEnvironment = "STAKING_ENV"
)

type Config struct {
	RPCAddress           string    `toml:"RPCAddress"`
	DataDir              string    `toml:"DataDir"`
	Environment          string    `toml:"Environment"`
	RPCReadHeaderTimeout int       `toml:"RPCReadHeaderTimeout"`
	RPCReadTimeout       int       `toml:"RPCReadTimeout"`
	RPCWriteTimeout      int       `toml:"RPCWriteTimeout"`
	RPCIdleTimeout       int       `toml:"RPCIdleTimeout"`
	Staking              Staking   `toml:"staking"`
	Auth                 Auth      `toml:"auth"`
	RateLimit            RateLimit `toml:"rate_limit"`
	Logging              Logging   `toml:"logging"`
	Telemetry            Telemetry `toml:"telemetry"`
	EventLog             EventLog  `toml:"eventlog"`
	Faucet               Faucet    `toml:"faucet"`
	Pauses               Pauses    `toml:"pauses"`
}

// Load loads the configuration from the given path, writing a default file
// first when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err = createDefault(path)
		if err != nil {
			return nil, err
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh data directory.
func Default() *Config {
	cfg := &Config{
		RPCAddress:  "127.0.0.1:8645",
		DataDir:     "./staking-data",
		Environment: "local",
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./staking-data"
	}
	if c.RPCReadHeaderTimeout <= 0 {
		c.RPCReadHeaderTimeout = 5
	}
	if c.RPCReadTimeout <= 0 {
		c.RPCReadTimeout = 15
	}
	if c.RPCWriteTimeout <= 0 {
		c.RPCWriteTimeout = 15
	}
	if c.RPCIdleTimeout <= 0 {
		c.RPCIdleTimeout = 60
	}
	if strings.TrimSpace(c.Staking.Accounting) == "" {
		c.Staking.Accounting = "capacity"
	}
	if strings.TrimSpace(c.Staking.EarlyReward) == "" {
		c.Staking.EarlyReward = "strict"
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "stakeledger"
	}
	if c.Auth.MaxTokenTTLSeconds == 0 {
		c.Auth.MaxTokenTTLSeconds = 3600
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "stakingd"
	}
	if c.EventLog.DSN == "" {
		c.EventLog.DSN = filepath.Join(c.DataDir, "events.db")
	}
}

func (c *Config) applyEnv() {
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if env := strings.TrimSpace(os.Getenv(EnvEnvironment)); env != "" {
		c.Environment = env
	}
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	cfg.EventLog.DSN = ""
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
