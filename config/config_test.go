package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iJaack/evalanche/pkg/types"
)

func writeConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults_Valid(t *testing.T) {
	for _, network := range []NetworkType{Mainnet, Fuji} {
		cfg := Default(network)
		if cfg.Network != network {
			t.Errorf("Default(%s).Network = %s", network, cfg.Network)
		}
		if err := Validate(cfg); err != nil {
			t.Errorf("Default(%s) invalid: %v", network, err)
		}
	}
}

func TestDefaults_ChainIDs(t *testing.T) {
	ids, err := DefaultMainnet().Chain.IDs()
	if err != nil {
		t.Fatalf("IDs() error: %v", err)
	}
	if ids.P != types.Empty {
		t.Errorf("P chain ID = %s, want empty ID", ids.P)
	}
	if ids.X.IsZero() || ids.C.IsZero() || ids.AVAX.IsZero() {
		t.Error("mainnet X, C and asset IDs should be set")
	}

	fuji, err := DefaultFuji().Chain.IDs()
	if err != nil {
		t.Fatalf("fuji IDs() error: %v", err)
	}
	if fuji.X == ids.X || fuji.AVAX == ids.AVAX {
		t.Error("fuji IDs should differ from mainnet")
	}
	if DefaultFuji().Chain.HRP != types.FujiHRP {
		t.Errorf("fuji HRP = %q", DefaultFuji().Chain.HRP)
	}
}

func TestDefaultLocal_RequiresChainIDs(t *testing.T) {
	cfg := DefaultLocal()
	if err := Validate(cfg); err == nil {
		t.Fatal("local config without chain IDs should be invalid")
	}
	ids := DefaultFuji().Chain
	cfg.Chain.XChainID = ids.XChainID
	cfg.Chain.CChainID = ids.CChainID
	cfg.Chain.AVAXAssetID = ids.AVAXAssetID
	if err := Validate(cfg); err != nil {
		t.Fatalf("local config with chain IDs: %v", err)
	}
}

func TestEndpoints(t *testing.T) {
	cfg := DefaultFuji()
	cfg.RPC.URL = "http://node:9650/"

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"c rpc", cfg.CChainRPC(), "http://node:9650/ext/bc/C/rpc"},
		{"c atomic", cfg.CChainAtomic(), "http://node:9650/ext/bc/C/avax"},
		{"x", cfg.XChainURL(), "http://node:9650/ext/bc/X"},
		{"p", cfg.PChainURL(), "http://node:9650/ext/bc/P"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s endpoint = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestDirs(t *testing.T) {
	cfg := DefaultFuji()
	cfg.DataDir = "/data"

	if got := cfg.KeysDir(); got != filepath.Join("/data", "keys") {
		t.Errorf("KeysDir() = %q", got)
	}
	if got := cfg.JournalDir(); got != filepath.Join("/data", "fuji", "journal") {
		t.Errorf("JournalDir() = %q", got)
	}
	if got := cfg.ConfigFile(); got != filepath.Join("/data", ConfigFileName) {
		t.Errorf("ConfigFile() = %q", got)
	}

	cfg.KeyDir = "/secure/keys"
	cfg.JournalPath = "/var/journal"
	if cfg.KeysDir() != "/secure/keys" || cfg.JournalDir() != "/var/journal" {
		t.Error("explicit key dir and journal path should win")
	}
}

func TestEnsureDataDirs(t *testing.T) {
	cfg := DefaultMainnet()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	if err := EnsureDataDirs(cfg); err != nil {
		t.Fatalf("EnsureDataDirs() error: %v", err)
	}
	info, err := os.Stat(cfg.KeysDir())
	if err != nil {
		t.Fatalf("stat keys dir: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("keys dir mode = %o, want 700", perm)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	f, err := LoadFile(filepath.Join(t.TempDir(), "nope.conf"))
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	cfg := DefaultMainnet()
	if err := ApplyFileConfig(cfg, f); err != nil {
		t.Fatalf("ApplyFileConfig() error: %v", err)
	}
	if cfg.RPC.URL != DefaultMainnet().RPC.URL {
		t.Error("empty file should not change config")
	}
}

func TestApplyFileConfig(t *testing.T) {
	path := writeConf(t, `
network = fuji
keydir = /keys

[rpc]
url = http://127.0.0.1:9650
timeout = 5s

[fees]
x_tx_fee = 2000000

[settlement]
poll_initial = 250ms
timeout = 90s

[log]
level = debug
json = true
`)
	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if got := PeekNetwork(f); got != "fuji" {
		t.Errorf("PeekNetwork() = %q", got)
	}

	cfg := DefaultFuji()
	if err := ApplyFileConfig(cfg, f); err != nil {
		t.Fatalf("ApplyFileConfig() error: %v", err)
	}
	if cfg.KeyDir != "/keys" {
		t.Errorf("KeyDir = %q", cfg.KeyDir)
	}
	if cfg.RPC.URL != "http://127.0.0.1:9650" || cfg.RPC.Timeout != 5*time.Second {
		t.Errorf("RPC = %+v", cfg.RPC)
	}
	if cfg.Fees.XTxFee != 2_000_000 {
		t.Errorf("XTxFee = %d", cfg.Fees.XTxFee)
	}
	if cfg.Fees.PTxFee != DefaultTxFee {
		t.Errorf("PTxFee = %d, should keep default", cfg.Fees.PTxFee)
	}
	if cfg.Settlement.PollInitial != 250*time.Millisecond || cfg.Settlement.Timeout != 90*time.Second {
		t.Errorf("Settlement = %+v", cfg.Settlement)
	}
	if cfg.Settlement.PollMax != DefaultPollMax {
		t.Errorf("PollMax = %v, should keep default", cfg.Settlement.PollMax)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.JSON {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := writeConf(t, "[rpc\nurl = x\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("EVALANCHE_RPC_URL", "https://env.example")
	t.Setenv("EVALANCHE_SETTLEMENT_TIMEOUT", "3m")
	t.Setenv("EVALANCHE_FEE_P_TX", "42")
	t.Setenv("EVALANCHE_LOG_JSON", "true")

	cfg := DefaultMainnet()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv() error: %v", err)
	}
	if cfg.RPC.URL != "https://env.example" {
		t.Errorf("RPC.URL = %q", cfg.RPC.URL)
	}
	if cfg.Settlement.Timeout != 3*time.Minute {
		t.Errorf("Settlement.Timeout = %v", cfg.Settlement.Timeout)
	}
	if cfg.Fees.PTxFee != 42 {
		t.Errorf("PTxFee = %d", cfg.Fees.PTxFee)
	}
	if !cfg.Log.JSON {
		t.Error("Log.JSON should be set from env")
	}
	if cfg.Fees.XTxFee != DefaultTxFee {
		t.Error("unset env should keep defaults")
	}
}

func TestApplyEnv_BadValue(t *testing.T) {
	t.Setenv("EVALANCHE_RPC_TIMEOUT", "soon")
	if err := ApplyEnv(DefaultMainnet()); err == nil {
		t.Fatal("expected error for bad duration")
	}
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]string{"--network", "fuji", "--rpc=http://x:1", "--log-json", "balance", "--json"})
	if err != nil {
		t.Fatalf("ParseFlags() error: %v", err)
	}
	if f.Network != "fuji" || f.RPCURL != "http://x:1" {
		t.Errorf("flags = %+v", f)
	}
	if !f.SetLogJSON || !f.LogJSON {
		t.Error("log-json should be set")
	}
	if len(f.Args) != 2 || f.Args[0] != "balance" || f.Args[1] != "--json" {
		t.Errorf("Args = %v", f.Args)
	}
}

func TestParseFlags_Unknown(t *testing.T) {
	if _, err := ParseFlags([]string{"--bogus"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
	f, err := ParseFlags([]string{"-h"})
	if err != nil || !f.Help {
		t.Fatalf("ParseFlags(-h) = %+v, %v", f, err)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	conf := `network = fuji
[rpc]
url = http://file:9650
timeout = 7s
[log]
level = warn
`
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(conf), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EVALANCHE_NETWORK", "")
	t.Setenv("EVALANCHE_RPC_TIMEOUT", "9s")
	t.Setenv("EVALANCHE_LOG_LEVEL", "error")

	f, err := ParseFlags([]string{"--datadir", dir, "--log-level", "debug"})
	if err != nil {
		t.Fatalf("ParseFlags() error: %v", err)
	}
	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Network != Fuji || cfg.Chain.NetworkID != types.FujiID {
		t.Errorf("network = %s/%d, want fuji from file", cfg.Network, cfg.Chain.NetworkID)
	}
	if cfg.RPC.URL != "http://file:9650" {
		t.Errorf("RPC.URL = %q, want file value", cfg.RPC.URL)
	}
	if cfg.RPC.Timeout != 9*time.Second {
		t.Errorf("RPC.Timeout = %v, want env value", cfg.RPC.Timeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want flag value", cfg.Log.Level)
	}
	if cfg.DataDir != dir {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
}

func TestLoad_FlagNetworkWins(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("network = fuji\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EVALANCHE_NETWORK", "")
	f, err := ParseFlags([]string{"--datadir", dir, "--network", "mainnet"})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Network != Mainnet || cfg.Chain.HRP != types.MainnetHRP {
		t.Errorf("network = %s hrp = %s, want mainnet", cfg.Network, cfg.Chain.HRP)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("EVALANCHE_NETWORK", "")
	f, err := ParseFlags([]string{"--datadir", t.TempDir(), "--network", "devnet"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Load(f); err == nil {
		t.Fatal("expected error for unknown network")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"network", func(c *Config) { c.Network = "devnet" }, "network"},
		{"network id", func(c *Config) { c.Chain.NetworkID = 5 }, "network_id"},
		{"url scheme", func(c *Config) { c.RPC.URL = "ftp://x" }, "rpc.url"},
		{"url host", func(c *Config) { c.RPC.URL = "http://" }, "rpc.url"},
		{"rpc timeout", func(c *Config) { c.RPC.Timeout = 0 }, "rpc.timeout"},
		{"chain id", func(c *Config) { c.Chain.XChainID = "nope" }, "x_chain_id"},
		{"asset id", func(c *Config) { c.Chain.AVAXAssetID = "" }, "avax_asset_id"},
		{"fallback fee", func(c *Config) { c.Fees.CFallbackBaseFee = 0 }, "c_fallback_base_fee"},
		{"poll initial", func(c *Config) { c.Settlement.PollInitial = 0 }, "poll_initial"},
		{"poll max", func(c *Config) { c.Settlement.PollMax = time.Millisecond }, "poll_max"},
		{"timeout", func(c *Config) { c.Settlement.Timeout = time.Millisecond }, "settlement.timeout"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"datadir", func(c *Config) { c.DataDir = "" }, "datadir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMainnet()
			cfg.DataDir = "/data"
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
	if err := Validate(nil); err == nil {
		t.Error("Validate(nil) should fail")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := WriteDefaultConfig(path, Fuji); err != nil {
		t.Fatalf("WriteDefaultConfig() error: %v", err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	cfg := DefaultFuji()
	cfg.DataDir = "/data"
	if err := ApplyFileConfig(cfg, f); err != nil {
		t.Fatalf("ApplyFileConfig() error: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("written default config invalid: %v", err)
	}
	if cfg.Settlement != DefaultFuji().Settlement {
		t.Errorf("Settlement = %+v", cfg.Settlement)
	}

	// Existing files are never overwritten.
	if err := os.WriteFile(path, []byte("network = mainnet\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := WriteDefaultConfig(path, Fuji); err != nil {
		t.Fatalf("second WriteDefaultConfig() error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "network = mainnet\n" {
		t.Error("existing config was overwritten")
	}
}
