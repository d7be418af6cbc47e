package core

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/catnames/catctl/internal/listing"
	"github.com/catnames/catctl/internal/metrics"
	"github.com/catnames/catctl/internal/registry"
	"github.com/catnames/catctl/internal/wallet"
)

// Registry is the part of the registry client the workflow drives.
type Registry interface {
	listing.Source
	RegisterName(ctx context.Context, name string, value *big.Int) (registry.Pending, error)
	SetRecord(ctx context.Context, name, record string) (registry.Pending, error)
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// DefaultRefreshDelay is how long to wait after a mint before re-reading the registry.
const DefaultRefreshDelay = 2 * time.Second

// Options configures a Controller.
type Options struct {
	// RefreshDelay is the wait before the post-mint listing refresh.
	RefreshDelay time.Duration
	Scheduler    Scheduler
	Metrics      *metrics.Recorder
	// OnChange is called after session, draft, listing or loading state changes.
	// It must not call back into the Controller synchronously.
	OnChange func()
}

// Controller owns the session and the draft and sequences every wallet and registry call.
// Only one write runs at a time.
type Controller struct {
	wallet   *wallet.Manager
	registry Registry
	cache    *listing.Cache
	opts     Options

	mu         sync.Mutex
	baseCtx    context.Context
	session    Session
	draft      MintDraft
	loading    bool
	refreshing bool
	activity   State
}

// NewController wires the workflow.
func NewController(w *wallet.Manager, reg Registry, cache *listing.Cache, opts Options) *Controller {
	if opts.Scheduler == nil {
		opts.Scheduler = timeScheduler{}
	}
	if opts.RefreshDelay <= 0 {
		opts.RefreshDelay = DefaultRefreshDelay
	}
	return &Controller{
		wallet:   w,
		registry: reg,
		cache:    cache,
		opts:     opts,
		baseCtx:  context.Background(),
	}
}

func (c *Controller) notify() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}

// Start loads the session and follows chainChanged until ctx is done.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	err := c.RefreshSession(ctx)
	go c.wallet.WatchChainChanged(ctx, func(chainID string) {
		if err := c.HandleChainChanged(ctx, chainID); err != nil {
			log.Warn().Err(err).Str("chain_id", chainID).Msg("Reload after chain change failed")
		}
	})
	return err
}

// RefreshSession re-reads account and chain from the wallet without prompting, and reloads the
// listing when the wallet is on the required network. Listing failures are logged, not returned.
func (c *Controller) RefreshSession(ctx context.Context) error {
	if _, ok := c.wallet.DetectProvider(); !ok {
		c.setSession(Session{})
		log.Info().Msg("No wallet provider detected")
		return ErrNoProvider
	}

	accounts, err := c.wallet.CurrentAccounts(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read accounts")
		return err
	}
	chainID, err := c.wallet.CurrentChainID(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read chain id")
		return err
	}

	var account string
	if len(accounts) > 0 {
		account = accounts[0]
		log.Debug().Str("account", account).Msg("Found an authorized account")
	} else {
		log.Debug().Msg("No authorized account found")
	}
	s := newSession(account, chainID)
	c.setSession(s)

	// A failed listing read keeps the previous snapshot; the session itself is loaded.
	if s.Connected() && s.OnTargetNetwork() {
		_ = c.RefreshListing(ctx)
	}
	return nil
}

func (c *Controller) setSession(s Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	if !s.Connected() || !s.OnTargetNetwork() {
		c.cache.Clear()
	}
	c.notify()
}

// ConnectWallet asks the wallet for an account. A rejection leaves the session unchanged.
func (c *Controller) ConnectWallet(ctx context.Context) error {
	accounts, err := c.wallet.RequestAccounts(ctx)
	if err != nil {
		if wallet.IsUserRejected(err) {
			log.Info().Msg("User rejected the connection request")
		} else {
			log.Warn().Err(err).Msg("Connect wallet failed")
		}
		return err
	}
	if len(accounts) > 0 {
		log.Info().Str("account", accounts[0]).Msg("Connected")
	}
	return c.RefreshSession(ctx)
}

// SwitchNetwork asks the wallet to move to the required network, adding it once if unknown.
func (c *Controller) SwitchNetwork(ctx context.Context) error {
	if err := EnsureNetwork(ctx, c.wallet); err != nil {
		return err
	}
	return c.RefreshSession(ctx)
}

// HandleChainChanged discards the draft and reloads everything for the new chain.
func (c *Controller) HandleChainChanged(ctx context.Context, chainID string) error {
	c.mu.Lock()
	c.draft = MintDraft{}
	c.session.ChainID = NormalizeChainID(chainID)
	c.session.ChainLabel = ResolveNetworkName(chainID)
	label := c.session.ChainLabel
	c.mu.Unlock()

	log.Info().Str("chain_id", chainID).Str("network", label).Msg("Chain changed, reloading")
	return c.RefreshSession(ctx)
}

// SetName updates the draft name.
func (c *Controller) SetName(name string) {
	c.mu.Lock()
	c.draft.Name = name
	c.mu.Unlock()
}

// SetRecord updates the draft record.
func (c *Controller) SetRecord(record string) {
	c.mu.Lock()
	c.draft.Record = record
	c.mu.Unlock()
}

// EditRecord switches the draft to edit mode for name. A record already typed is kept;
// otherwise the draft is prefilled with the stored record. It only consults the local listing.
func (c *Controller) EditRecord(name string) error {
	c.mu.Lock()
	account := c.session.Account
	typed := c.draft.Record
	c.mu.Unlock()

	record := ""
	if e, ok := c.cache.Lookup(name); ok {
		if !e.OwnedBy(account) {
			return ErrNotOwner
		}
		record = e.Record
	}

	if typed != "" {
		record = typed
	}

	c.mu.Lock()
	c.draft = MintDraft{Name: name, Record: record, Mode: ModeEdit}
	c.mu.Unlock()
	log.Debug().Str("name", name).Msg("Editing record")
	c.notify()
	return nil
}

// CancelEdit clears the draft and returns to mint mode.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	c.draft = MintDraft{}
	c.mu.Unlock()
	c.notify()
}

// begin checks the shared write preconditions and marks a write in flight.
func (c *Controller) begin(activity State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !c.session.Connected():
		return ErrNotConnected
	case !c.session.OnTargetNetwork():
		return ErrWrongNetwork
	case c.loading:
		return ErrBusy
	}
	c.loading = true
	c.activity = activity
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.loading = false
	c.activity = 0
	c.mu.Unlock()
	c.notify()
}

// MintDomain registers the draft name at its price, then sets its record.
// If registration succeeds but the record write does not, the result stage is
// StageMintedWithoutRecord and the draft is left in edit mode for UpdateDomain.
func (c *Controller) MintDomain(ctx context.Context) (MintResult, error) {
	draft := c.Draft()
	res := MintResult{Name: draft.Name}
	if _, ok := c.wallet.DetectProvider(); !ok {
		return res, ErrNoProvider
	}
	if err := ValidateName(draft.Name); err != nil {
		log.Info().Str("name", draft.Name).Err(err).Msg("Mint rejected")
		return res, err
	}

	if err := c.begin(StateMinting); err != nil {
		return res, err
	}
	c.notify()
	defer c.end()

	name := draft.Name
	res.Price = PriceFor(name)
	res.Stage = StageValidated
	log.Info().Str("name", name).Str("price", res.Price.String()).Msg("Minting domain")

	out, err := c.write(ctx, "register", name, func() (registry.Pending, error) {
		return c.registry.RegisterName(ctx, name, PriceWei(name))
	})
	res.Register = out
	if err != nil {
		return res, err
	}
	res.Stage = StageRegistered
	log.Info().Str("name", name).Str("tx", TxURL(out.Hash)).Msg("Domain minted")

	out, err = c.write(ctx, "set_record", name, func() (registry.Pending, error) {
		return c.registry.SetRecord(ctx, name, draft.Record)
	})
	res.Record = out
	if err != nil {
		res.Stage = StageMintedWithoutRecord
		c.mu.Lock()
		c.draft = MintDraft{Name: name, Record: draft.Record, Mode: ModeEdit}
		c.mu.Unlock()
		c.scheduleRefresh()
		return res, err
	}
	res.Stage = StageComplete
	log.Info().Str("name", name).Str("tx", TxURL(out.Hash)).Msg("Record set")

	c.mu.Lock()
	c.draft = MintDraft{}
	c.mu.Unlock()
	c.scheduleRefresh()
	return res, nil
}

// UpdateDomain sets the record of the draft name and reloads the listing right away.
// The loading flag is cleared on every path.
func (c *Controller) UpdateDomain(ctx context.Context) (registry.Outcome, error) {
	draft := c.Draft()
	if _, ok := c.wallet.DetectProvider(); !ok {
		return registry.Outcome{}, ErrNoProvider
	}
	if draft.Name == "" {
		return registry.Outcome{}, ErrEmptyName
	}
	if draft.Record == "" {
		return registry.Outcome{}, ErrEmptyRecord
	}

	if err := c.begin(StateEditing); err != nil {
		return registry.Outcome{}, err
	}
	c.notify()
	defer c.end()

	log.Info().Str("name", draft.Name).Str("record", draft.Record).Msg("Updating domain")
	out, err := c.write(ctx, "set_record", draft.Name, func() (registry.Pending, error) {
		return c.registry.SetRecord(ctx, draft.Name, draft.Record)
	})
	if err != nil {
		return out, err
	}
	log.Info().Str("name", draft.Name).Str("tx", TxURL(out.Hash)).Msg("Record set")

	c.mu.Lock()
	c.draft = MintDraft{}
	c.mu.Unlock()
	if err := c.RefreshListing(ctx); err != nil {
		log.Warn().Err(err).Msg("Listing refresh after update failed")
	}
	return out, nil
}

// write submits one transaction, waits for it and classifies the result.
func (c *Controller) write(ctx context.Context, kind, name string, submit func() (registry.Pending, error)) (registry.Outcome, error) {
	start := time.Now()
	pending, err := submit()
	if err != nil {
		result := metrics.ResultError
		if wallet.IsUserRejected(err) {
			result = metrics.ResultRejected
			log.Info().Str("op", kind).Str("name", name).Msg("Transaction rejected in wallet")
		} else {
			log.Error().Err(err).Str("op", kind).Str("name", name).Msg("Transaction submission failed")
		}
		c.opts.Metrics.ObserveWrite(kind, result, 0)
		return registry.Outcome{}, err
	}

	out, err := pending.Wait(ctx)
	if err != nil {
		log.Error().Err(err).Str("op", kind).Str("name", name).Str("tx", pending.Hash()).Msg("Waiting for confirmation failed")
		c.opts.Metrics.ObserveWrite(kind, metrics.ResultError, 0)
		return out, err
	}
	if !out.Succeeded() {
		log.Error().Str("op", kind).Str("name", name).Str("tx", out.Hash).Msg("Transaction reverted")
		c.opts.Metrics.ObserveWrite(kind, metrics.ResultReverted, time.Since(start))
		return out, errors.Wrapf(ErrTxFailed, "%s %q (tx %s)", kind, name, out.Hash)
	}
	c.opts.Metrics.ObserveWrite(kind, metrics.ResultSuccess, time.Since(start))
	return out, nil
}

func (c *Controller) scheduleRefresh() {
	c.opts.Scheduler.AfterFunc(c.opts.RefreshDelay, func() {
		c.mu.Lock()
		ctx := c.baseCtx
		c.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if err := c.RefreshListing(ctx); err != nil {
			log.Warn().Err(err).Msg("Delayed listing refresh failed")
		}
	})
}

// RefreshListing rebuilds the listing snapshot.
func (c *Controller) RefreshListing(ctx context.Context) error {
	c.mu.Lock()
	c.refreshing = true
	c.mu.Unlock()
	c.notify()

	snap, err := c.cache.Refresh(ctx)

	c.mu.Lock()
	c.refreshing = false
	c.mu.Unlock()
	c.opts.Metrics.ObserveRefresh(snap.Len(), err)
	c.notify()
	if err != nil {
		log.Warn().Err(err).Msg("Listing refresh failed")
		return err
	}
	return nil
}

// Session returns a copy of the session.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Draft returns a copy of the draft.
func (c *Controller) Draft() MintDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Loading reports whether a write is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// State derives the workflow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !c.session.Connected():
		return StateDisconnected
	case c.loading:
		return c.activity
	case c.refreshing:
		return StateRefreshing
	case c.session.OnTargetNetwork():
		return StateOnTargetNetwork
	}
	return StateNotOnTargetNetwork
}

// Listing returns the snapshot to display, or nil unless an account is connected on the
// required network.
func (c *Controller) Listing() *listing.Snapshot {
	if s := c.Session(); !s.Connected() || !s.OnTargetNetwork() {
		return nil
	}
	return c.cache.Snapshot()
}

// CanEdit reports whether the connected account owns e.
func (c *Controller) CanEdit(e listing.Entry) bool {
	return e.OwnedBy(c.Session().Account)
}
