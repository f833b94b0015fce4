package config

import (
	"fmt"
	"strings"
)

// MinJWTSecretLength guards against trivially guessable signing keys.
var MinJWTSecretLength = 16

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if _, err := c.StakingPolicy(); err != nil {
		return err
	}
	if secret := c.Auth.JWTSecret; secret != "" && len(secret) < MinJWTSecretLength {
		return fmt.Errorf("auth: JWTSecret shorter than %d bytes", MinJWTSecretLength)
	}
	if c.Auth.MaxTokenTTLSeconds < 0 {
		return fmt.Errorf("auth: MaxTokenTTLSeconds < 0")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: negative limits")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Logging.Format)
	}
	if c.Telemetry.Metrics || c.Telemetry.Traces {
		if strings.TrimSpace(c.Telemetry.Endpoint) == "" {
			return fmt.Errorf("telemetry: Endpoint required when exporters are enabled")
		}
	}
	return nil
}
