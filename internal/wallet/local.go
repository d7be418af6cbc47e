package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/catnames/catctl/internal/registry"
	"github.com/catnames/catctl/internal/rpc"
)

// DialFunc opens a chain backend for an RPC URL.
type DialFunc func(ctx context.Context, url string) (registry.Backend, error)

// ProbeFunc returns the hex chain id served by an RPC URL.
type ProbeFunc func(ctx context.Context, url string) (string, error)

// LocalProvider is a keystore-backed wallet speaking the Provider protocol.
// It also implements registry.Conn for the chain it is currently on.
type LocalProvider struct {
	key      *Keypair
	approver Approver
	chains   *ChainStore
	dial     DialFunc
	probe    ProbeFunc

	mu       sync.Mutex
	backends map[string]registry.Backend
	chainCh  chan string
	closed   bool
}

// LocalOption configures a LocalProvider.
type LocalOption func(*LocalProvider)

// WithDialer replaces the ethclient dialer.
func WithDialer(d DialFunc) LocalOption {
	return func(p *LocalProvider) { p.dial = d }
}

// WithProbe replaces the RPC chain id probe used by wallet_addEthereumChain.
func WithProbe(f ProbeFunc) LocalOption {
	return func(p *LocalProvider) { p.probe = f }
}

// NewLocalProvider creates a wallet around an unlocked key.
func NewLocalProvider(key *Keypair, approver Approver, chains *ChainStore, opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{
		key:      key,
		approver: approver,
		chains:   chains,
		dial:     dialEthclient,
		probe:    probeChainID,
		backends: make(map[string]registry.Backend),
		chainCh:  make(chan string, 16),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func dialEthclient(ctx context.Context, url string) (registry.Backend, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func probeChainID(ctx context.Context, url string) (string, error) {
	res, err := rpc.Probe(ctx, url)
	if err != nil {
		return "", err
	}
	return res.ChainID, nil
}

// Account returns the wallet's address.
func (p *LocalProvider) Account() common.Address {
	return p.key.Address()
}

// ChainChanged implements Provider.
func (p *LocalProvider) ChainChanged() <-chan string {
	return p.chainCh
}

// Request implements Provider.
func (p *LocalProvider) Request(ctx context.Context, args RequestArguments) (json.RawMessage, error) {
	var (
		result any
		err    error
	)
	switch args.Method {
	case MethodRequestAccounts:
		result, err = p.requestAccounts(ctx)
	case MethodAccounts:
		result = p.authorizedAccounts()
	case MethodChainID:
		result = p.chains.Current().ChainID
	case MethodSwitchChain:
		err = p.switchChain(args)
	case MethodAddChain:
		err = p.addChain(ctx, args)
	default:
		err = NewProviderError(CodeUnsupportedMethod, "method %s is not supported", args.Method)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

func (p *LocalProvider) authorizedAccounts() []string {
	addr := p.Account().Hex()
	if p.chains.IsAuthorized(addr) {
		return []string{addr}
	}
	return []string{}
}

func (p *LocalProvider) requestAccounts(ctx context.Context) ([]string, error) {
	addr := p.Account().Hex()
	if p.chains.IsAuthorized(addr) {
		return []string{addr}, nil
	}
	ok, err := p.approver.Approve(ctx, ApprovalRequest{Kind: ApproveConnect, Account: addr})
	if err != nil {
		return nil, errors.Wrap(err, "approval failed")
	}
	if !ok {
		return nil, NewProviderError(CodeUserRejected, "user rejected the request")
	}
	if err := p.chains.Authorize(addr); err != nil {
		return nil, err
	}
	return []string{addr}, nil
}

func (p *LocalProvider) switchChain(args RequestArguments) error {
	var params SwitchChainParams
	if err := decodeParam(args, &params); err != nil {
		return err
	}
	id, err := normalizeChainID(params.ChainID)
	if err != nil {
		return err
	}
	if _, ok := p.chains.Lookup(id); !ok {
		return NewProviderError(CodeUnrecognizedChain, "unrecognized chain ID %q", params.ChainID)
	}
	return p.activate(id)
}

func (p *LocalProvider) addChain(ctx context.Context, args RequestArguments) error {
	var params AddChainParams
	if err := decodeParam(args, &params); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	id, err := normalizeChainID(params.ChainID)
	if err != nil {
		return err
	}
	params.ChainID = id

	served, err := p.probe(ctx, params.RPCURLs[0])
	if err != nil {
		return NewProviderError(CodeInternal, "could not reach %s: %v", params.RPCURLs[0], err)
	}
	if served, _ = normalizeChainID(served); served != id {
		return NewProviderError(CodeInvalidParams, "rpc %s serves chain %s, not %s", params.RPCURLs[0], served, id)
	}

	ok, err := p.approver.Approve(ctx, ApprovalRequest{
		Kind:      ApproveAddChain,
		Account:   p.Account().Hex(),
		ChainID:   id,
		ChainName: params.ChainName,
	})
	if err != nil {
		return errors.Wrap(err, "approval failed")
	}
	if !ok {
		return NewProviderError(CodeUserRejected, "user rejected the request")
	}
	if err := p.chains.Add(params); err != nil {
		return err
	}
	log.Info().Str("chain_id", id).Str("name", params.ChainName).Msg("Chain added to wallet")
	return p.activate(id)
}

func (p *LocalProvider) activate(id string) error {
	if p.chains.Current().ChainID == id {
		return nil
	}
	if err := p.chains.SetCurrent(id); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	select {
	case p.chainCh <- id:
	default:
		log.Warn().Str("chain_id", id).Msg("chainChanged listener is not keeping up, dropping event")
	}
	return nil
}

// Backend implements registry.Conn for the current chain.
func (p *LocalProvider) Backend(ctx context.Context) (registry.Backend, error) {
	chain := p.chains.Current()

	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.backends[chain.ChainID]; ok {
		return b, nil
	}
	if len(chain.RPCURLs) == 0 {
		return nil, errors.Errorf("chain %s has no RPC URL", chain.ChainID)
	}
	b, err := p.dial(ctx, chain.RPCURLs[0])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", chain.RPCURLs[0])
	}
	p.backends[chain.ChainID] = b
	return b, nil
}

// TransactOpts implements registry.Conn. Every signature is confirmed with the Approver.
func (p *LocalProvider) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	addr := p.Account().Hex()
	if !p.chains.IsAuthorized(addr) {
		return nil, NewProviderError(CodeUnauthorized, "account %s is not connected", addr)
	}
	chain := p.chains.Current()
	chainID, err := hexutil.DecodeBig(chain.ChainID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid current chain id")
	}

	opts, err := bind.NewKeyedTransactorWithChainID(p.key.PrivateKey(), chainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create transactor")
	}
	sign := opts.Signer
	opts.Context = ctx
	opts.Signer = func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
		ok, err := p.approver.Approve(ctx, ApprovalRequest{
			Kind:      ApproveTransaction,
			Account:   from.Hex(),
			ChainID:   chain.ChainID,
			ChainName: chain.ChainName,
			To:        addressOrEmpty(tx.To()),
			Value:     tx.Value(),
			Summary:   describeTx(tx, chain),
		})
		if err != nil {
			return nil, errors.Wrap(err, "approval failed")
		}
		if !ok {
			return nil, NewProviderError(CodeUserRejected, "user rejected the transaction")
		}
		return sign(from, tx)
	}
	return opts, nil
}

// Close stops chainChanged delivery and closes open backends.
func (p *LocalProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.chainCh)
	for id, b := range p.backends {
		if c, ok := b.(interface{ Close() }); ok {
			c.Close()
		}
		delete(p.backends, id)
	}
}

func addressOrEmpty(a *common.Address) string {
	if a == nil {
		return ""
	}
	return a.Hex()
}

func describeTx(tx *types.Transaction, chain AddChainParams) string {
	value := new(big.Float).Quo(new(big.Float).SetInt(tx.Value()), big.NewFloat(1e18))
	return fmt.Sprintf("call %s sending %s %s", addressOrEmpty(tx.To()), value.Text('f', 4), chain.NativeCurrency.Symbol)
}
