package config

import (
	"time"

	"github.com/iJaack/evalanche/pkg/types"
)

// Default fee and settlement values shared by every network.
const (
	DefaultTxFee             = 1_000_000      // 0.001 AVAX in nAVAX
	DefaultFallbackBaseFee   = 50_000_000_000 // 50 gwei
	DefaultRPCTimeout        = 30 * time.Second
	DefaultPollInitial       = 1 * time.Second
	DefaultPollMax           = 10 * time.Second
	DefaultSettlementTimeout = 2 * time.Minute
)

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		RPC: RPCConfig{
			URL:     "https://api.avax.network",
			Timeout: DefaultRPCTimeout,
		},
		Chain: ChainConfig{
			NetworkID:   types.MainnetID,
			HRP:         types.MainnetHRP,
			XChainID:    "2oYMBNV4eNHyqk2fjjV5nVQLDbtmNJzq5s3qs3Lo6ftnC6FByM",
			CChainID:    "2q9e4r6Mu3U68nU1fYjgbR6JvwrRx36CohpAX5UQxse55x1Q5",
			PChainID:    types.Empty.String(),
			AVAXAssetID: "FvwEAhmxKfeiG8SnEvq42hc6whRyY3EFYAvebMqDNDGCgxN5Z",
		},
		Fees: FeeConfig{
			XTxFee:           DefaultTxFee,
			PTxFee:           DefaultTxFee,
			CFallbackBaseFee: DefaultFallbackBaseFee,
		},
		Settlement: SettlementConfig{
			PollInitial: DefaultPollInitial,
			PollMax:     DefaultPollMax,
			Timeout:     DefaultSettlementTimeout,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultFuji returns the default configuration for the Fuji testnet.
func DefaultFuji() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Fuji
	cfg.RPC.URL = "https://api.avax-test.network"
	cfg.Chain = ChainConfig{
		NetworkID:   types.FujiID,
		HRP:         types.FujiHRP,
		XChainID:    "2JVSBoinj9C2J33VntvzYtVJNZdN2NKiwwKjcumHUWEb5DbBrm",
		CChainID:    "yH8D7ThNJkxmtkuv2jgBa4P1Rn3Qpr4pPr7QYNfcdoS6k6HWp",
		PChainID:    types.Empty.String(),
		AVAXAssetID: "U8iRqJoiJm8xZHAacmvYyZVwqQx6uDNtQeP3CQ6fcgQk3JqnK",
	}
	return cfg
}

// DefaultLocal returns the default configuration for a local network.
// Local chain and asset IDs vary per deployment and must be configured.
func DefaultLocal() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Local
	cfg.RPC.URL = "http://127.0.0.1:9650"
	cfg.Chain = ChainConfig{
		NetworkID: types.LocalID,
		HRP:       types.LocalHRP,
		PChainID:  types.Empty.String(),
	}
	cfg.Settlement.PollInitial = 200 * time.Millisecond
	cfg.Settlement.PollMax = 2 * time.Second
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Fuji:
		return DefaultFuji()
	case Local:
		return DefaultLocal()
	default:
		return DefaultMainnet()
	}
}
