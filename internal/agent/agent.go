// Package agent is the programmatic surface of the key store and the
// three ledgers: boot keys, query balances, move funds, delegate stake.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/iJaack/evalanche/config"
	"github.com/iJaack/evalanche/internal/ledger"
	"github.com/iJaack/evalanche/internal/log"
	"github.com/iJaack/evalanche/internal/rpcclient"
	"github.com/iJaack/evalanche/internal/settlement"
	"github.com/iJaack/evalanche/internal/storage"
	"github.com/iJaack/evalanche/internal/wallet"
	"github.com/iJaack/evalanche/pkg/types"
)

// ErrNotLoaded is returned by ledger operations before LoadSeed or BootKeys.
var ErrNotLoaded = errors.New("agent keys not loaded")

// Agent owns the seed, the ledger modules and the settlement journal.
// Methods are safe for concurrent use; transfers are not coordinated
// with each other.
type Agent struct {
	cfg    *config.Config
	store  *wallet.Store
	source wallet.SeedSource
	logger zerolog.Logger

	onState func(settlement.Event)
	eth     ledger.EVMClient
	db      storage.DB

	// inflight is held shared by every ledger operation and exclusively
	// while keys are replaced or wiped. Lock order: inflight, then mu.
	inflight sync.RWMutex

	mu      sync.RWMutex
	seed    *wallet.Seed
	kr      *wallet.Keyring
	ledgers *ledgerSet
	orch    *settlement.Orchestrator
	closers []func()
}

type ledgerSet struct {
	c *ledger.EVMLedger
	x *ledger.UTXOLedger // nil without a UTXO key
	p *ledger.PChain     // nil without a UTXO key
}

// Option configures an Agent.
type Option func(*Agent)

// WithSeedSource loads the seed from src instead of the key store.
func WithSeedSource(src wallet.SeedSource) Option {
	return func(a *Agent) { a.source = src }
}

// WithStoreOptions passes options to the key store.
func WithStoreOptions(opts ...wallet.StoreOption) Option {
	return func(a *Agent) { a.store = wallet.NewStore(a.cfg.KeysDir(), opts...) }
}

// WithTransferObserver receives every settlement state transition. fn runs
// inside the transfer and must not call Close or LoadSeed.
func WithTransferObserver(fn func(settlement.Event)) Option {
	return func(a *Agent) { a.onState = fn }
}

// WithJournalDB stores the transfer journal in db instead of a Badger
// database under the journal directory. The agent does not close db.
func WithJournalDB(db storage.DB) Option {
	return func(a *Agent) { a.db = db }
}

// withEVMClient replaces the ethclient connection.
func withEVMClient(eth ledger.EVMClient) Option {
	return func(a *Agent) { a.eth = eth }
}

// New returns an agent for cfg. Nothing is read or dialed until BootKeys
// or LoadSeed.
func New(cfg *config.Config, opts ...Option) *Agent {
	a := &Agent{
		cfg:    cfg,
		store:  wallet.NewStore(cfg.KeysDir()),
		logger: log.Agent,
	}
	for _, o := range opts {
		o(a)
	}
	if a.source == nil {
		a.source = a.store
	}
	return a
}

// Store returns the key store.
func (a *Agent) Store() *wallet.Store { return a.store }

// Config returns the configuration.
func (a *Agent) Config() *config.Config { return a.cfg }

// BootKeys loads the stored seed, generating one on first run, and
// connects the ledgers. With an external seed source nothing is generated.
func (a *Agent) BootKeys(ctx context.Context) (*wallet.InitResult, error) {
	if !a.usesStore() {
		if err := a.LoadSeed(ctx); err != nil {
			return nil, err
		}
		a.mu.RLock()
		defer a.mu.RUnlock()
		return &wallet.InitResult{Address: a.kr.EVMAddress()}, nil
	}
	res, err := a.store.Init(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.LoadSeed(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Agent) usesStore() bool {
	s, ok := a.source.(*wallet.Store)
	return ok && s == a.store
}

// LoadSeed loads the seed from the configured source, derives the keys
// and connects the ledgers. Calling it again reloads the seed.
func (a *Agent) LoadSeed(ctx context.Context) error {
	seed, err := a.source.Load()
	if err != nil {
		return err
	}
	kr, err := wallet.NewKeyring(seed, a.cfg.Chain.NetworkID)
	if err != nil {
		seed.Zero()
		return err
	}

	a.inflight.Lock()
	defer a.inflight.Unlock()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLocked()

	if err := a.connectLocked(ctx, kr); err != nil {
		kr.Zero()
		seed.Zero()
		a.closeLocked()
		return err
	}
	a.seed = seed
	a.kr = kr

	a.logger.Info().
		Str("network", string(a.cfg.Network)).
		Str("kind", string(seed.Kind())).
		Str("evm", kr.EVMAddress().Hex()).
		Bool("multiLedger", kr.HasUTXOKey()).
		Msg("Agent keys loaded")
	return nil
}

func (a *Agent) connectLocked(ctx context.Context, kr *wallet.Keyring) error {
	lctx, err := ledger.NewContext(a.cfg)
	if err != nil {
		return err
	}

	eth := a.eth
	if eth == nil {
		client, err := ethclient.DialContext(ctx, a.cfg.CChainRPC())
		if err != nil {
			return fmt.Errorf("dial C-chain %s: %w", a.cfg.CChainRPC(), err)
		}
		a.closers = append(a.closers, client.Close)
		eth = client
	}

	timeout := a.cfg.RPC.Timeout
	cl, err := ledger.NewEVMLedger(lctx, eth,
		rpcclient.NewAtomic(rpcclient.NewWithTimeout(a.cfg.CChainAtomic(), timeout)), kr)
	if err != nil {
		return err
	}
	set := &ledgerSet{c: cl}
	atomic := []ledger.AtomicLedger{cl}

	if kr.HasUTXOKey() {
		set.x, err = ledger.NewXChain(lctx,
			rpcclient.NewAVM(rpcclient.NewWithTimeout(a.cfg.XChainURL(), timeout)), kr)
		if err != nil {
			return err
		}
		set.p, err = ledger.NewPChain(lctx,
			rpcclient.NewPlatform(rpcclient.NewWithTimeout(a.cfg.PChainURL(), timeout)), kr)
		if err != nil {
			return err
		}
		atomic = append(atomic, set.x, set.p)
	}

	db := a.db
	if db == nil {
		path := a.cfg.JournalDir()
		bdb, err := storage.NewBadger(path)
		if err != nil {
			return fmt.Errorf("open journal at %s: %w", path, err)
		}
		a.closers = append(a.closers, func() { bdb.Close() })
		db = bdb
	}

	a.ledgers = set
	a.orch = settlement.New(kr, atomic, settlement.Options{
		Poll:    settlement.PollConfigFrom(a.cfg.Settlement),
		Journal: settlement.NewJournal(db),
		OnState: a.onState,
	})
	return nil
}

// closeLocked releases connections and clears key material.
func (a *Agent) closeLocked() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.kr != nil {
		a.kr.Zero()
		a.kr = nil
	}
	if a.seed != nil {
		a.seed.Zero()
		a.seed = nil
	}
	a.ledgers = nil
	a.orch = nil
}

// Close waits for running operations, then releases connections and
// clears key material from memory.
func (a *Agent) Close() error {
	a.inflight.Lock()
	defer a.inflight.Unlock()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLocked()
	return nil
}

// ExportMnemonic returns the recovery phrase. Fails with
// wallet.ErrNoMnemonic for a private-key seed.
func (a *Agent) ExportMnemonic() (string, error) {
	a.mu.RLock()
	if a.seed != nil {
		defer a.mu.RUnlock()
		return a.seed.Mnemonic()
	}
	a.mu.RUnlock()
	if a.usesStore() {
		return a.store.ExportMnemonic()
	}
	loaded, err := a.source.Load()
	if err != nil {
		return "", err
	}
	defer loaded.Zero()
	return loaded.Mnemonic()
}

// Addresses returns the agent's address on every derivable ledger.
func (a *Agent) Addresses() (map[types.Chain]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.kr == nil {
		return nil, ErrNotLoaded
	}
	return a.kr.Addresses(), nil
}

// acquire pins the loaded ledgers for one operation. The keys they hold
// stay valid until release is called.
func (a *Agent) acquire() (*ledgerSet, *settlement.Orchestrator, func(), error) {
	a.inflight.RLock()
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.ledgers == nil {
		a.inflight.RUnlock()
		return nil, nil, nil, ErrNotLoaded
	}
	return a.ledgers, a.orch, a.inflight.RUnlock, nil
}

func (s *ledgerSet) atomic(chain types.Chain) (ledger.AtomicLedger, error) {
	switch chain {
	case types.ChainC:
		return s.c, nil
	case types.ChainX, types.ChainP:
		if s.x == nil {
			return nil, wallet.ErrMultiLedgerUnavailable
		}
		if chain == types.ChainX {
			return s.x, nil
		}
		return s.p, nil
	}
	return nil, fmt.Errorf("unknown chain %q", chain)
}

func (s *ledgerSet) pchain() (*ledger.PChain, error) {
	if s.p == nil {
		return nil, wallet.ErrMultiLedgerUnavailable
	}
	return s.p, nil
}
