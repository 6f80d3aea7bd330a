package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
)

// PeekEnvNetwork returns the network named by the environment, or "".
func PeekEnvNetwork() string {
	return os.Getenv(EnvPrefix + "_NETWORK")
}

// ApplyEnv overlays EVALANCHE_* environment variables onto cfg, for example
// EVALANCHE_RPC_URL or EVALANCHE_SETTLEMENT_TIMEOUT. Unset variables leave
// fields untouched.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}
