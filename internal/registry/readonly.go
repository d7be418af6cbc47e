package registry

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// ErrReadOnly is returned when a write is attempted over a ReadOnlyConn.
var ErrReadOnly = errors.New("read-only connection cannot sign transactions")

// ReadOnlyConn reads the registry through a fixed RPC endpoint, without a wallet.
type ReadOnlyConn struct {
	url  string
	dial func(ctx context.Context, url string) (Backend, error)

	mu      sync.Mutex
	backend Backend
}

// NewReadOnlyConn creates a connection to url. Dialing is deferred to the first call.
func NewReadOnlyConn(url string) *ReadOnlyConn {
	return &ReadOnlyConn{url: url, dial: dialEthclient}
}

func dialEthclient(ctx context.Context, url string) (Backend, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Backend dials once and reuses the client.
func (c *ReadOnlyConn) Backend(ctx context.Context) (Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend != nil {
		return c.backend, nil
	}
	b, err := c.dial(ctx, c.url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", c.url)
	}
	c.backend = b
	return b, nil
}

// TransactOpts always fails.
func (c *ReadOnlyConn) TransactOpts(context.Context) (*bind.TransactOpts, error) {
	return nil, ErrReadOnly
}

// Close releases the client if one was dialed.
func (c *ReadOnlyConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.backend.(interface{ Close() }); ok {
		cl.Close()
	}
	c.backend = nil
}
