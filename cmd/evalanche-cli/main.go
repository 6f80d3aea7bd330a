// evalanche-cli manages the agent's key material and moves funds between
// the C, X and P ledgers.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/skip2/go-qrcode"
	"golang.org/x/term"

	"github.com/iJaack/evalanche/config"
	"github.com/iJaack/evalanche/internal/agent"
	"github.com/iJaack/evalanche/internal/log"
	"github.com/iJaack/evalanche/internal/settlement"
	"github.com/iJaack/evalanche/internal/wallet"
	"github.com/iJaack/evalanche/pkg/types"
)

var version = "dev"

func main() {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		usage()
		os.Exit(1)
	}
	if flags.Version {
		fmt.Printf("evalanche-cli %s\n", version)
		return
	}
	if flags.Help || len(flags.Args) == 0 {
		usage()
		if !flags.Help {
			os.Exit(1)
		}
		return
	}

	cmd := flags.Args[0]
	cmdArgs := flags.Args[1:]

	// config init runs before the config is loaded so it can create it.
	if cmd == "config" {
		cmdConfig(flags, cmdArgs)
		return
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fatal("%v", err)
	}
	if err := config.EnsureDataDirs(cfg); err != nil {
		fatal("%v", err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "keys":
		cmdKeys(ctx, cfg, cmdArgs)
	case "balance":
		cmdBalance(ctx, cfg, cmdArgs)
	case "transfer":
		cmdTransfer(ctx, cfg, cmdArgs)
	case "import":
		cmdImport(ctx, cfg, cmdArgs)
	case "pending":
		cmdPending(ctx, cfg, cmdArgs)
	case "status":
		cmdStatus(ctx, cfg, cmdArgs)
	case "resume":
		cmdResume(ctx, cfg, cmdArgs)
	case "delegate":
		cmdDelegate(ctx, cfg, cmdArgs)
	case "stake":
		cmdStake(ctx, cfg)
	case "validators":
		cmdValidators(ctx, cfg, cmdArgs)
	case "minstake":
		cmdMinStake(ctx, cfg)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: evalanche-cli [global flags] <command> [flags]

Global flags:
  --network <net>        mainnet (default), fuji or local
  --datadir <path>       Data directory (default: ~/.evalanche)
  --keydir <path>        Key directory (default: <datadir>/keys)
  -c, --config <file>    Config file (default: <datadir>/evalanche.conf)
  --rpc <url>            Node base URL
  --rpc-timeout <dur>    Per-request RPC timeout
  --settle-timeout <dur> How long a transfer waits for exported funds
  --log-level <lvl>      trace, debug, info, warn, error
  --log-file <path>      Also write JSON logs to a file
  --log-json             JSON logs on stderr
  --version              Print the version

Commands:
  keys init                        Load the key, generating one on first run
  keys address [--qr]              Show the agent's C, X and P addresses
  keys export-mnemonic             Print the recovery phrase
  keys import-mnemonic             Store a recovery phrase read from stdin
  keys import-key                  Store a hex private key (C ledger only)
  keys backup --out <file>         Write a passphrase-sealed backup
  keys restore --in <file>         Restore from a backup

  balance [--json]                 Show balances on C, X and P
  transfer --from <C|X|P> --to <C|X|P> --amount <avax>
                                   Move funds between ledgers
  import --chain <C|X|P> --from <C|X|P>
                                   Claim exported funds waiting on a ledger
  pending [--prune <age>]          List unfinished transfers, optionally
                                   dropping records older than age first
  resume <transfer-id>             Retry the import of a pending transfer
  status <C|X|P> <tx-id>           Show a transaction's status on a ledger

  delegate --node <NodeID-...> --amount <avax> --days <n>
                                   Delegate stake to a validator
  stake                            Show the agent's staked amount
  validators [--limit <n>]         List current validators by weight
  minstake                         Show minimum stake amounts

  config init                      Write a default config file
`)
}

// openAgent boots the key store and connects the ledgers.
func openAgent(ctx context.Context, cfg *config.Config, opts ...agent.Option) *agent.Agent {
	a := agent.New(cfg, opts...)
	if _, err := a.BootKeys(ctx); err != nil {
		fatal("load keys: %v", err)
	}
	return a
}

// ── keys ────────────────────────────────────────────────────────────────

func cmdKeys(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: evalanche-cli keys <init|address|export-mnemonic|import-mnemonic|import-key|backup|restore> [flags]")
	}

	switch args[0] {
	case "init":
		cmdKeysInit(ctx, cfg)
	case "address":
		cmdKeysAddress(ctx, cfg, args[1:])
	case "export-mnemonic":
		cmdKeysExportMnemonic(cfg)
	case "import-mnemonic":
		cmdKeysImportMnemonic(ctx, cfg)
	case "import-key":
		cmdKeysImportKey(ctx, cfg, args[1:])
	case "backup":
		cmdKeysBackup(cfg, args[1:])
	case "restore":
		cmdKeysRestore(ctx, cfg, args[1:])
	default:
		fatal("Unknown keys command: %s", args[0])
	}
}

func cmdKeysInit(ctx context.Context, cfg *config.Config) {
	res, err := wallet.NewStore(cfg.KeysDir()).Init(ctx)
	if err != nil {
		fatal("init keys: %v", err)
	}
	if res.IsNew {
		fmt.Println("New key generated.")
		fmt.Println("Run 'evalanche-cli keys export-mnemonic' and store the phrase offline.")
	} else {
		fmt.Println("Existing key loaded.")
	}
	fmt.Printf("  Address: %s\n", res.Address.Hex())
	fmt.Printf("  Path:    %s\n", res.StoragePath)
}

func cmdKeysAddress(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("keys address", flag.ExitOnError)
	qr := fs.Bool("qr", false, "Print QR codes")
	fs.Parse(args)

	a := openAgent(ctx, cfg)
	defer a.Close()
	addrs, err := a.Addresses()
	if err != nil {
		fatal("%v", err)
	}
	for _, c := range types.Chains {
		addr, ok := addrs[c]
		if !ok {
			fmt.Printf("%s: unavailable (private-key seed)\n", c)
			continue
		}
		fmt.Printf("%s: %s\n", c, addr)
		if *qr {
			code, err := qrcode.New(addr, qrcode.Medium)
			if err != nil {
				fatal("qr code: %v", err)
			}
			fmt.Println(code.ToSmallString(false))
		}
	}
}

func cmdKeysExportMnemonic(cfg *config.Config) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Warning: anyone who sees this phrase controls the funds.")
	}
	mnemonic, err := wallet.NewStore(cfg.KeysDir()).ExportMnemonic()
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(mnemonic)
}

func cmdKeysImportMnemonic(ctx context.Context, cfg *config.Config) {
	var phrase string
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := readPassword("Recovery phrase: ")
		if err != nil {
			fatal("read phrase: %v", err)
		}
		phrase = string(b)
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fatal("read phrase: %v", err)
		}
		phrase = line
	}
	res, err := wallet.NewStore(cfg.KeysDir()).ImportMnemonic(ctx, strings.TrimSpace(phrase))
	if err != nil {
		fatal("import: %v", err)
	}
	fmt.Printf("Imported. Address: %s\n", res.Address.Hex())
}

func cmdKeysImportKey(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("keys import-key", flag.ExitOnError)
	keyHex := fs.String("key", "", "Hex private key (prompted when omitted)")
	fs.Parse(args)

	key := *keyHex
	if key == "" {
		b, err := readPassword("Private key (hex): ")
		if err != nil {
			fatal("read key: %v", err)
		}
		key = strings.TrimSpace(string(b))
	}
	res, err := wallet.NewStore(cfg.KeysDir()).ImportPrivateKey(ctx, key)
	if err != nil {
		fatal("import: %v", err)
	}
	fmt.Printf("Imported. Address: %s\n", res.Address.Hex())
	fmt.Println("Only the C ledger is available with a private key.")
}

func cmdKeysBackup(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("keys backup", flag.ExitOnError)
	out := fs.String("out", "", "Backup file to create")
	fs.Parse(args)
	if *out == "" {
		fatal("Usage: evalanche-cli keys backup --out <file>")
	}

	pass, err := readPassword("Backup passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	confirm, err := readPassword("Confirm passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	if string(pass) != string(confirm) {
		fatal("passphrases do not match")
	}

	f, err := os.OpenFile(*out, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		fatal("create %s: %v", *out, err)
	}
	if err := wallet.NewStore(cfg.KeysDir()).Backup(f, pass, wallet.DefaultParams()); err != nil {
		f.Close()
		os.Remove(*out)
		fatal("backup: %v", err)
	}
	if err := f.Close(); err != nil {
		fatal("write %s: %v", *out, err)
	}
	fmt.Printf("Backup written to %s\n", *out)
}

func cmdKeysRestore(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("keys restore", flag.ExitOnError)
	in := fs.String("in", "", "Backup file")
	fs.Parse(args)
	if *in == "" {
		fatal("Usage: evalanche-cli keys restore --in <file>")
	}

	f, err := os.Open(*in)
	if err != nil {
		fatal("open %s: %v", *in, err)
	}
	defer f.Close()
	pass, err := readPassword("Backup passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	res, err := wallet.NewStore(cfg.KeysDir()).RestoreBackup(ctx, f, pass)
	if err != nil {
		fatal("restore: %v", err)
	}
	fmt.Printf("Restored. Address: %s\n", res.Address.Hex())
}

// ── balance ─────────────────────────────────────────────────────────────

func cmdBalance(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print JSON")
	fs.Parse(args)

	a := openAgent(ctx, cfg)
	defer a.Close()
	bal, err := a.GetMultiChainBalance(ctx)
	if err != nil {
		fatal("balance: %v", err)
	}
	if *asJSON {
		printJSON(bal)
		return
	}
	fmt.Printf("C:     %s AVAX\n", bal.C)
	fmt.Printf("X:     %s AVAX\n", bal.X)
	fmt.Printf("P:     %s AVAX\n", bal.P)
	fmt.Printf("Total: %s AVAX\n", bal.Total)
}

// ── transfer ────────────────────────────────────────────────────────────

func parseChainFlag(name, value string) types.Chain {
	c, err := types.ParseChain(value)
	if err != nil {
		fatal("--%s: %v", name, err)
	}
	return c
}

func printState(ev settlement.Event) {
	fmt.Fprintf(os.Stderr, "  [%s] %s\n", ev.Direction, ev.State)
}

func cmdTransfer(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	from := fs.String("from", "", "Source ledger (C, X or P)")
	to := fs.String("to", "", "Destination ledger (C, X or P)")
	amount := fs.String("amount", "", "Amount in AVAX")
	fs.Parse(args)
	if *from == "" || *to == "" || *amount == "" {
		fatal("Usage: evalanche-cli transfer --from <C|X|P> --to <C|X|P> --amount <avax>")
	}

	a := openAgent(ctx, cfg, agent.WithTransferObserver(printState))
	defer a.Close()

	res, err := a.Transfer(ctx, parseChainFlag("from", *from), parseChainFlag("to", *to), *amount)
	if err != nil {
		var cce *settlement.CrossChainError
		if errors.As(err, &cce) {
			fmt.Fprintf(os.Stderr, "Export %s was accepted; funds are in transit.\n", cce.ExportTxID)
			fmt.Fprintf(os.Stderr, "Retry with: evalanche-cli resume %s\n", cce.TransferID)
		}
		fatal("transfer: %v", err)
	}
	fmt.Println("Transfer complete!")
	fmt.Printf("  Transfer:  %s\n", res.TransferID)
	fmt.Printf("  Export tx: %s\n", res.ExportTxID)
	fmt.Printf("  Import tx: %s\n", res.ImportTxID)
}

func cmdImport(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	chain := fs.String("chain", "", "Ledger to import into")
	from := fs.String("from", "", "Ledger the funds were exported from")
	fs.Parse(args)
	if *chain == "" || *from == "" {
		fatal("Usage: evalanche-cli import --chain <C|X|P> --from <C|X|P>")
	}

	a := openAgent(ctx, cfg)
	defer a.Close()
	id, err := a.ImportFrom(ctx, parseChainFlag("chain", *chain), parseChainFlag("from", *from))
	if err != nil {
		fatal("import: %v", err)
	}
	fmt.Printf("Import submitted: %s\n", id)
}

func cmdPending(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("pending", flag.ExitOnError)
	prune := fs.Duration("prune", 0, "First remove records untouched for longer than this (e.g. 720h)")
	fs.Parse(args)

	a := openAgent(ctx, cfg)
	defer a.Close()
	if *prune > 0 {
		n, err := a.PruneTransfers(*prune)
		if err != nil {
			fatal("prune: %v", err)
		}
		fmt.Printf("Pruned %d journal records.\n", n)
	}
	recs, err := a.PendingTransfers()
	if err != nil {
		fatal("pending: %v", err)
	}
	if len(recs) == 0 {
		fmt.Println("No pending transfers.")
		return
	}
	for _, r := range recs {
		fmt.Printf("%s  %s  %s AVAX  %s  (updated %s)\n",
			r.ID, r.Direction, types.FormatNano(r.Amount), r.State, r.UpdatedAt.Local().Format(time.RFC3339))
		if r.Exported() {
			fmt.Printf("    export: %s\n", r.ExportTxID)
		}
		if r.LastError != "" {
			fmt.Printf("    error:  %s\n", r.LastError)
		}
	}
}

func cmdResume(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) != 1 {
		fatal("Usage: evalanche-cli resume <transfer-id>")
	}
	a := openAgent(ctx, cfg, agent.WithTransferObserver(printState))
	defer a.Close()
	res, err := a.ResumeTransfer(ctx, args[0])
	if err != nil {
		fatal("resume: %v", err)
	}
	fmt.Println("Transfer complete!")
	fmt.Printf("  Export tx: %s\n", res.ExportTxID)
	fmt.Printf("  Import tx: %s\n", res.ImportTxID)
}

func cmdStatus(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) != 2 {
		fatal("Usage: evalanche-cli status <C|X|P> <tx-id>")
	}
	chain := parseChainFlag("chain", args[0])
	a := openAgent(ctx, cfg)
	defer a.Close()
	status, err := a.TxStatus(ctx, chain, args[1])
	if err != nil {
		fatal("status: %v", err)
	}
	fmt.Printf("%s-chain %s: %s\n", chain, args[1], status)
}

// ── staking ─────────────────────────────────────────────────────────────

func cmdDelegate(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("delegate", flag.ExitOnError)
	node := fs.String("node", "", "Validator node ID (NodeID-...)")
	amount := fs.String("amount", "", "Stake amount in AVAX")
	days := fs.Int("days", 14, "Delegation period in days")
	fs.Parse(args)
	if *node == "" || *amount == "" {
		fatal("Usage: evalanche-cli delegate --node <NodeID-...> --amount <avax> --days <n>")
	}

	a := openAgent(ctx, cfg)
	defer a.Close()
	id, err := a.Delegate(ctx, *node, *amount, *days)
	if err != nil {
		fatal("delegate: %v", err)
	}
	fmt.Println("Delegation submitted!")
	fmt.Printf("  Tx:     %s\n", id)
	fmt.Printf("  Node:   %s\n", *node)
	fmt.Printf("  Amount: %s AVAX for %d days\n", *amount, *days)
}

func cmdStake(ctx context.Context, cfg *config.Config) {
	a := openAgent(ctx, cfg)
	defer a.Close()
	staked, err := a.GetStake(ctx)
	if err != nil {
		fatal("stake: %v", err)
	}
	fmt.Printf("Staked: %s AVAX\n", staked)
}

func cmdValidators(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("validators", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum validators to show (0 for all)")
	fs.Parse(args)

	a := openAgent(ctx, cfg)
	defer a.Close()
	vals, err := a.GetValidators(ctx, *limit)
	if err != nil {
		fatal("validators: %v", err)
	}
	fmt.Printf("Validators: %d\n\n", len(vals))
	for i, v := range vals {
		fmt.Printf("  [%d] %s  weight=%s AVAX  fee=%s%%\n",
			i, v.NodeID, types.FormatNano(uint64(v.Weight)), v.DelegationFee)
	}
}

func cmdMinStake(ctx context.Context, cfg *config.Config) {
	a := openAgent(ctx, cfg)
	defer a.Close()
	ms, err := a.GetMinStake(ctx)
	if err != nil {
		fatal("minstake: %v", err)
	}
	fmt.Printf("Min validator stake: %s AVAX\n", ms.Validator)
	fmt.Printf("Min delegator stake: %s AVAX\n", ms.Delegator)
}

// ── config ──────────────────────────────────────────────────────────────

func cmdConfig(flags *config.Flags, args []string) {
	if len(args) < 1 || args[0] != "init" {
		fatal("Usage: evalanche-cli config init")
	}
	dataDir := flags.DataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	path := flags.Config
	if path == "" {
		path = (&config.Config{DataDir: dataDir}).ConfigFile()
	}
	network := config.NetworkType(strings.ToLower(flags.Network))
	if network == "" {
		network = config.Mainnet
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		fatal("create %s: %v", dataDir, err)
	}
	if err := config.WriteDefaultConfig(path, network); err != nil {
		fatal("write config: %v", err)
	}
	fmt.Printf("Config: %s\n", path)
}

// ── helpers ─────────────────────────────────────────────────────────────

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode: %v", err)
	}
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
