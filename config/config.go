// Package config holds the agent's runtime configuration and its layered
// loading: network defaults, config file, environment, command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/iJaack/evalanche/pkg/types"
)

// NetworkType identifies which network the agent operates on.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Fuji    NetworkType = "fuji"
	Local   NetworkType = "local"
)

// ConfigFileName is the config file looked up in the data directory.
const ConfigFileName = "evalanche.conf"

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "EVALANCHE"

// Config holds the agent configuration.
type Config struct {
	Network     NetworkType `envconfig:"NETWORK"`
	DataDir     string      `envconfig:"DATADIR"`
	KeyDir      string      `envconfig:"KEYDIR"`
	JournalPath string      `envconfig:"JOURNAL"`

	RPC        RPCConfig        `envconfig:"RPC"`
	Chain      ChainConfig      `envconfig:"CHAIN"`
	Fees       FeeConfig        `envconfig:"FEE"`
	Settlement SettlementConfig `envconfig:"SETTLEMENT"`
	Log        LogConfig        `envconfig:"LOG"`
}

// RPCConfig holds the node connection settings. URL is the node's base
// address; ledger endpoints are derived from it.
type RPCConfig struct {
	URL     string        `ini:"url" envconfig:"URL"`
	Timeout time.Duration `ini:"timeout" envconfig:"TIMEOUT"`
}

// ChainConfig names the network's ledgers and native asset.
// IDs are CB58 strings.
type ChainConfig struct {
	NetworkID   uint32 `ini:"network_id" envconfig:"NETWORK_ID"`
	HRP         string `ini:"hrp" envconfig:"HRP"`
	XChainID    string `ini:"x_chain_id" envconfig:"X_ID"`
	CChainID    string `ini:"c_chain_id" envconfig:"C_ID"`
	PChainID    string `ini:"p_chain_id" envconfig:"P_ID"`
	AVAXAssetID string `ini:"avax_asset_id" envconfig:"ASSET_ID"`
}

// FeeConfig holds fee parameters. X and P fees are flat, in nAVAX.
// CFallbackBaseFee (wei) is used when the C ledger base fee lookup fails.
type FeeConfig struct {
	XTxFee           uint64 `ini:"x_tx_fee" envconfig:"X_TX"`
	PTxFee           uint64 `ini:"p_tx_fee" envconfig:"P_TX"`
	CFallbackBaseFee uint64 `ini:"c_fallback_base_fee" envconfig:"C_FALLBACK_BASE"`
}

// SettlementConfig controls how long a transfer waits for exported funds
// to appear on the destination ledger.
type SettlementConfig struct {
	PollInitial time.Duration `ini:"poll_initial" envconfig:"POLL_INITIAL"`
	PollMax     time.Duration `ini:"poll_max" envconfig:"POLL_MAX"`
	Timeout     time.Duration `ini:"timeout" envconfig:"TIMEOUT"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `ini:"level" envconfig:"LEVEL"`
	File  string `ini:"file" envconfig:"FILE"`
	JSON  bool   `ini:"json" envconfig:"JSON"`
}

// ChainIDs is the parsed form of ChainConfig.
type ChainIDs struct {
	X    types.ID
	C    types.ID
	P    types.ID
	AVAX types.ID
}

// IDs parses the configured chain and asset IDs.
func (c ChainConfig) IDs() (ChainIDs, error) {
	var ids ChainIDs
	fields := []struct {
		name string
		val  string
		dst  *types.ID
	}{
		{"x_chain_id", c.XChainID, &ids.X},
		{"c_chain_id", c.CChainID, &ids.C},
		{"p_chain_id", c.PChainID, &ids.P},
		{"avax_asset_id", c.AVAXAssetID, &ids.AVAX},
	}
	for _, f := range fields {
		id, err := types.ParseID(f.val)
		if err != nil {
			return ChainIDs{}, fmt.Errorf("chain.%s: %w", f.name, err)
		}
		*f.dst = id
	}
	return ids, nil
}

// =============================================================================
// Endpoints
// =============================================================================

func (c *Config) endpoint(path string) string {
	return strings.TrimRight(c.RPC.URL, "/") + path
}

// CChainRPC returns the C ledger's EVM JSON-RPC endpoint.
func (c *Config) CChainRPC() string { return c.endpoint("/ext/bc/C/rpc") }

// CChainAtomic returns the C ledger's atomic (avax.*) endpoint.
func (c *Config) CChainAtomic() string { return c.endpoint("/ext/bc/C/avax") }

// XChainURL returns the X ledger endpoint.
func (c *Config) XChainURL() string { return c.endpoint("/ext/bc/X") }

// PChainURL returns the P ledger endpoint.
func (c *Config) PChainURL() string { return c.endpoint("/ext/bc/P") }

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.evalanche
//	macOS:   ~/Library/Application Support/Evalanche
//	Windows: %APPDATA%\Evalanche
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".evalanche"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Evalanche")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Evalanche")
		}
		return filepath.Join(home, "AppData", "Roaming", "Evalanche")
	default:
		return filepath.Join(home, ".evalanche")
	}
}

// KeysDir returns the key material directory. The same secret backs every
// network, so the directory is not network-scoped.
func (c *Config) KeysDir() string {
	if c.KeyDir != "" {
		return c.KeyDir
	}
	return filepath.Join(c.DataDir, "keys")
}

// JournalDir returns the transfer journal database directory.
func (c *Config) JournalDir() string {
	if c.JournalPath != "" {
		return c.JournalPath
	}
	return filepath.Join(c.DataDir, string(c.Network), "journal")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, ConfigFileName)
}

// EnsureDataDirs creates the data and key directories with owner-only
// permissions.
func EnsureDataDirs(c *Config) error {
	for _, dir := range []string{c.DataDir, c.KeysDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
