// Package rpc probes EVM JSON-RPC endpoints.
package rpc

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// DefaultTimeout bounds a single probe call.
const DefaultTimeout = 10 * time.Second

// EVMClient is a client for EVM JSON-RPC.
type EVMClient struct {
	URL     string
	Timeout time.Duration
	client  *gethrpc.Client
}

// DialEVM connects to an EVM JSON-RPC endpoint.
func DialEVM(ctx context.Context, url string) (*EVMClient, error) {
	c, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", url)
	}
	return &EVMClient{URL: url, Timeout: DefaultTimeout, client: c}, nil
}

// Close releases the underlying connection.
func (c *EVMClient) Close() {
	c.client.Close()
}

func (c *EVMClient) call(ctx context.Context, result any, method string, args ...any) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	if err := c.client.CallContext(ctx, result, method, args...); err != nil {
		return errors.Wrapf(err, "%s on %s", method, c.URL)
	}
	return nil
}

// ChainID fetches the chain ID via eth_chainId, returned as a number and as lowercase hex.
func (c *EVMClient) ChainID(ctx context.Context) (uint64, string, error) {
	var id hexutil.Uint64
	if err := c.call(ctx, &id, "eth_chainId"); err != nil {
		return 0, "", err
	}
	return uint64(id), strings.ToLower(id.String()), nil
}

// BlockNumber fetches the latest block number via eth_blockNumber.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.call(ctx, &n, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// ClientVersion fetches the node version via web3_clientVersion.
func (c *EVMClient) ClientVersion(ctx context.Context) (string, error) {
	var v string
	if err := c.call(ctx, &v, "web3_clientVersion"); err != nil {
		return "", err
	}
	return v, nil
}

// ProbeResult summarises an endpoint.
type ProbeResult struct {
	URL           string `json:"url"`
	ChainID       string `json:"chain_id"`
	BlockNumber   uint64 `json:"block_number"`
	ClientVersion string `json:"client_version,omitempty"`
}

// Probe dials url and reports its chain id and head. The client version is best effort.
func Probe(ctx context.Context, url string) (ProbeResult, error) {
	c, err := DialEVM(ctx, url)
	if err != nil {
		return ProbeResult{}, err
	}
	defer c.Close()

	res := ProbeResult{URL: url}
	if _, res.ChainID, err = c.ChainID(ctx); err != nil {
		return res, err
	}
	if res.BlockNumber, err = c.BlockNumber(ctx); err != nil {
		return res, err
	}
	res.ClientVersion, _ = c.ClientVersion(ctx)
	return res, nil
}
