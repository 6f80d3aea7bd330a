package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/iJaack/evalanche/pkg/types"
)

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true,
	"warning": true, "error": true, "disabled": true, "off": true,
}

// Validate checks the configuration for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Network {
	case Mainnet:
		if cfg.Chain.NetworkID != types.MainnetID {
			return fmt.Errorf("chain.network_id %d does not match mainnet", cfg.Chain.NetworkID)
		}
	case Fuji:
		if cfg.Chain.NetworkID != types.FujiID {
			return fmt.Errorf("chain.network_id %d does not match fuji", cfg.Chain.NetworkID)
		}
	case Local:
		if cfg.Chain.NetworkID == types.MainnetID || cfg.Chain.NetworkID == types.FujiID {
			return fmt.Errorf("chain.network_id %d is reserved", cfg.Chain.NetworkID)
		}
	default:
		return fmt.Errorf("network must be %q, %q or %q", Mainnet, Fuji, Local)
	}
	if cfg.Chain.HRP == "" {
		cfg.Chain.HRP = types.HRPForNetwork(cfg.Chain.NetworkID)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir is empty")
	}

	if err := validateURL(cfg.RPC.URL); err != nil {
		return fmt.Errorf("rpc.url: %w", err)
	}
	if cfg.RPC.Timeout <= 0 {
		return fmt.Errorf("rpc.timeout must be positive")
	}
	if _, err := cfg.Chain.IDs(); err != nil {
		return err
	}
	if cfg.Fees.CFallbackBaseFee == 0 {
		return fmt.Errorf("fees.c_fallback_base_fee must be positive")
	}

	s := cfg.Settlement
	switch {
	case s.PollInitial <= 0:
		return fmt.Errorf("settlement.poll_initial must be positive")
	case s.PollMax < s.PollInitial:
		return fmt.Errorf("settlement.poll_max must be at least poll_initial")
	case s.Timeout < s.PollInitial:
		return fmt.Errorf("settlement.timeout must be at least poll_initial")
	}

	if !logLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("log.level %q is not recognized", cfg.Log.Level)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
