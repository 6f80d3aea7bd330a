package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/ini.v1"
)

// coreSettings are the keys of the file's default (unnamed) section.
type coreSettings struct {
	Network string `ini:"network"`
	DataDir string `ini:"datadir"`
	KeyDir  string `ini:"keydir"`
	Journal string `ini:"journal"`
}

// LoadFile reads an INI config file. A missing file yields an empty file,
// so callers can apply it unconditionally.
func LoadFile(path string) (*ini.File, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ini.Empty(), nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// PeekNetwork returns the network named by the file, or "" if none.
func PeekNetwork(f *ini.File) string {
	return f.Section(ini.DefaultSection).Key("network").String()
}

// ApplyFileConfig maps the file's sections onto cfg. Keys absent from the
// file leave the corresponding fields untouched.
func ApplyFileConfig(cfg *Config, f *ini.File) error {
	core := coreSettings{
		Network: string(cfg.Network),
		DataDir: cfg.DataDir,
		KeyDir:  cfg.KeyDir,
		Journal: cfg.JournalPath,
	}
	if err := f.Section(ini.DefaultSection).MapTo(&core); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.Network = NetworkType(core.Network)
	cfg.DataDir = core.DataDir
	cfg.KeyDir = core.KeyDir
	cfg.JournalPath = core.Journal

	sections := []struct {
		name string
		dst  any
	}{
		{"rpc", &cfg.RPC},
		{"chain", &cfg.Chain},
		{"fees", &cfg.Fees},
		{"settlement", &cfg.Settlement},
		{"log", &cfg.Log},
	}
	for _, s := range sections {
		if !f.HasSection(s.name) {
			continue
		}
		if err := f.Section(s.name).MapTo(s.dst); err != nil {
			return fmt.Errorf("config [%s]: %w", s.name, err)
		}
	}
	return nil
}

// WriteDefaultConfig writes a commented default config file. An existing
// file is left untouched.
func WriteDefaultConfig(path string, network NetworkType) error {
	cfg := Default(network)
	content := `# evalanche agent configuration
#
# Precedence: built-in network defaults < this file < EVALANCHE_* environment
# variables < command-line flags.

# Network: mainnet, fuji or local
network = ` + string(network) + `

# Data directory (default: ~/.evalanche)
# datadir = ~/.evalanche

# Key material directory (default: <datadir>/keys)
# keydir =

# Transfer journal directory (default: <datadir>/<network>/journal)
# journal =

[rpc]
# Node base URL; ledger endpoints are derived from it.
url = ` + cfg.RPC.URL + `
timeout = ` + cfg.RPC.Timeout.String() + `

[chain]
# Chain and asset IDs (CB58). Required for local networks.
# network_id = ` + fmt.Sprint(cfg.Chain.NetworkID) + `
# x_chain_id = ` + cfg.Chain.XChainID + `
# c_chain_id = ` + cfg.Chain.CChainID + `
# avax_asset_id = ` + cfg.Chain.AVAXAssetID + `

[fees]
# Flat X and P ledger tx fees in nAVAX.
x_tx_fee = ` + fmt.Sprint(cfg.Fees.XTxFee) + `
p_tx_fee = ` + fmt.Sprint(cfg.Fees.PTxFee) + `
# C ledger base fee (wei) used when the node cannot report one.
c_fallback_base_fee = ` + fmt.Sprint(cfg.Fees.CFallbackBaseFee) + `

[settlement]
# Exported funds are polled with exponential backoff until timeout.
poll_initial = ` + cfg.Settlement.PollInitial.String() + `
poll_max = ` + cfg.Settlement.PollMax.String() + `
timeout = ` + cfg.Settlement.Timeout.String() + `

[log]
level = info
# file =
json = false
`
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
