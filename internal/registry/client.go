// Package registry is a typed client for the on-chain name registry contract.
package registry

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Backend is the chain access the client needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Conn supplies a backend for the wallet's current chain and signing options for writes.
type Conn interface {
	Backend(ctx context.Context) (Backend, error)
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// Outcome is the confirmation result of a write.
type Outcome struct {
	Hash        string `json:"hash"`
	Status      uint64 `json:"status"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
}

// Succeeded reports whether the transaction executed successfully.
func (o Outcome) Succeeded() bool {
	return o.Status == types.ReceiptStatusSuccessful
}

// Pending is a submitted, not yet confirmed write.
type Pending interface {
	Hash() string
	// Wait blocks until the transaction is mined or ctx is done.
	Wait(ctx context.Context) (Outcome, error)
}

// Client reads and writes the name registry. It does not cache.
type Client struct {
	address common.Address
	conn    Conn
	abi     abi.ABI
}

// New creates a Client for the contract at address.
func New(address common.Address, conn Conn) (*Client, error) {
	parsed, err := RegistryMetaData.GetAbi()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse registry ABI")
	}
	return &Client{address: address, conn: conn, abi: *parsed}, nil
}

// Address returns the contract address.
func (c *Client) Address() common.Address {
	return c.address
}

func (c *Client) bound(ctx context.Context) (*bind.BoundContract, Backend, error) {
	backend, err := c.conn.Backend(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to chain")
	}
	return bind.NewBoundContract(c.address, c.abi, backend, backend, backend), backend, nil
}

func (c *Client) call(ctx context.Context, method string, args ...any) (any, error) {
	contract, _, err := c.bound(ctx)
	if err != nil {
		return nil, err
	}
	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, errors.Wrapf(err, "%s call failed", method)
	}
	if len(out) == 0 {
		return nil, errors.Errorf("%s returned no values", method)
	}
	return out[0], nil
}

// ListAllNames returns every registered name in registry order.
func (c *Client) ListAllNames(ctx context.Context) ([]string, error) {
	v, err := c.call(ctx, MethodGetAllNames)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(v, new([]string)).(*[]string), nil
}

// GetRecord returns the record attached to name ("" when unset).
func (c *Client) GetRecord(ctx context.Context, name string) (string, error) {
	v, err := c.call(ctx, MethodRecords, name)
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(v, new(string)).(*string), nil
}

// GetOwner returns the owner of name (the zero address when unregistered).
func (c *Client) GetOwner(ctx context.Context, name string) (common.Address, error) {
	v, err := c.call(ctx, MethodDomains, name)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(v, new(common.Address)).(*common.Address), nil
}

// RegisterName submits register(name) paying value wei.
func (c *Client) RegisterName(ctx context.Context, name string, value *big.Int) (Pending, error) {
	return c.transact(ctx, value, MethodRegister, name)
}

// SetRecord submits setRecord(name, record).
func (c *Client) SetRecord(ctx context.Context, name, record string) (Pending, error) {
	return c.transact(ctx, nil, MethodSetRecord, name, record)
}

func (c *Client) transact(ctx context.Context, value *big.Int, method string, args ...any) (Pending, error) {
	contract, backend, err := c.bound(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := c.conn.TransactOpts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare transaction")
	}
	opts.Context = ctx
	opts.Value = value

	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "%s transaction failed", method)
	}
	log.Info().
		Str("method", method).
		Str("tx", tx.Hash().Hex()).
		Str("from", opts.From.Hex()).
		Msg("Transaction submitted")
	return &PendingTx{tx: tx, backend: backend, method: method}, nil
}

// PendingTx waits for a submitted transaction using the backend it was sent through.
type PendingTx struct {
	tx      *types.Transaction
	backend bind.DeployBackend
	method  string
}

// Hash returns the transaction hash.
func (p *PendingTx) Hash() string {
	return p.tx.Hash().Hex()
}

// Wait blocks until the transaction is mined. No timeout is applied beyond ctx.
func (p *PendingTx) Wait(ctx context.Context) (Outcome, error) {
	receipt, err := bind.WaitMined(ctx, p.backend, p.tx)
	if err != nil {
		return Outcome{Hash: p.Hash()}, errors.Wrapf(err, "waiting for %s", p.method)
	}
	out := Outcome{
		Hash:    p.Hash(),
		Status:  receipt.Status,
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	log.Info().
		Str("method", p.method).
		Str("tx", out.Hash).
		Uint64("status", out.Status).
		Uint64("block", out.BlockNumber).
		Msg("Transaction confirmed")
	return out, nil
}
