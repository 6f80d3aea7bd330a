package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

// Flags holds parsed global command-line flags.
type Flags struct {
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	KeyDir  string
	Config  string

	// RPC
	RPCURL     string
	RPCTimeout time.Duration

	// Settlement
	SettleTimeout time.Duration

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args: the command and its arguments.
	Args []string

	SetLogJSON bool
}

// ParseFlags parses the global flags that precede the command. Parsing
// stops at the first non-flag argument, which is left in Args.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("evalanche", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	fs.StringVar(&f.Network, "network", "", "Network: mainnet, fuji or local")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.KeyDir, "keydir", "", "Key material directory")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	fs.StringVar(&f.RPCURL, "rpc", "", "Node base URL")
	fs.DurationVar(&f.RPCTimeout, "rpc-timeout", 0, "Per-request RPC timeout")
	fs.DurationVar(&f.SettleTimeout, "settle-timeout", 0, "Cross-ledger settlement timeout")

	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			f.Help = true
			return f, nil
		}
		return nil, err
	}
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()
	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.KeyDir != "" {
		cfg.KeyDir = f.KeyDir
	}
	if f.RPCURL != "" {
		cfg.RPC.URL = f.RPCURL
	}
	if f.RPCTimeout != 0 {
		cfg.RPC.Timeout = f.RPCTimeout
	}
	if f.SettleTimeout != 0 {
		cfg.Settlement.Timeout = f.SettleTimeout
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// resolveNetwork picks the network by precedence: flag, environment, file,
// then mainnet.
func resolveNetwork(candidates ...string) NetworkType {
	for _, c := range candidates {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			return NetworkType(c)
		}
	}
	return Mainnet
}

// Load builds the configuration with the following precedence:
// 1. Network defaults
// 2. Config file (<datadir>/evalanche.conf or --config)
// 3. EVALANCHE_* environment variables
// 4. Command-line flags
//
// The network is resolved first so later layers override the right
// defaults.
func Load(f *Flags) (*Config, error) {
	dataDir := DefaultDataDir()
	if f.DataDir != "" {
		dataDir = f.DataDir
	}
	configPath := f.Config
	if configPath == "" {
		configPath = (&Config{DataDir: dataDir}).ConfigFile()
	}

	file, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	network := resolveNetwork(f.Network, PeekEnvNetwork(), PeekNetwork(file))
	cfg := Default(network)
	cfg.DataDir = dataDir

	if err := ApplyFileConfig(cfg, file); err != nil {
		return nil, fmt.Errorf("applying config file: %w", err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	ApplyFlags(cfg, f)
	cfg.Network = network

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
