// Package eth implements lens.API over an Ethereum JSON-RPC endpoint.
package eth

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/clmops/clmctl/lens"
)

var log = logging.Logger("clmctl/lens/eth")

// fanOutLimit bounds concurrent RPC calls when batching without a
// multicall contract.
const fanOutLimit = 8

type Client struct {
	ec *ethclient.Client

	multicall    common.Address
	hasMulticall bool
}

var _ lens.API = (*Client)(nil)

// Dial connects to an RPC endpoint. multicall may be the zero address
// when the chain has no Multicall3 deployment; batches then fan out as
// individual calls.
func Dial(ctx context.Context, rpcURL string, multicall common.Address) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, xerrors.Errorf("dial %s: %w", rpcURL, err)
	}
	return &Client{
		ec:           ec,
		multicall:    multicall,
		hasMulticall: multicall != (common.Address{}),
	}, nil
}

func (c *Client) ReadContract(ctx context.Context, call lens.Call) ([]interface{}, error) {
	data, err := call.ABI.Pack(call.Method, call.Args...)
	if err != nil {
		return nil, xerrors.Errorf("pack %s: %w", call.Method, err)
	}
	ret, err := c.ec.CallContract(ctx, ethereum.CallMsg{To: &call.To, Data: data}, nil)
	if err != nil {
		return nil, xerrors.Errorf("call %s on %s: %w", call.Method, call.To.Hex(), err)
	}
	values, err := call.ABI.Unpack(call.Method, ret)
	if err != nil {
		return nil, xerrors.Errorf("unpack %s on %s: %w", call.Method, call.To.Hex(), err)
	}
	return values, nil
}

func (c *Client) ReadContracts(ctx context.Context, calls []lens.Call) ([]lens.Result, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	if c.hasMulticall {
		return c.readAggregate(ctx, calls)
	}
	return c.readFanOut(ctx, calls)
}

func (c *Client) readFanOut(ctx context.Context, calls []lens.Call) ([]lens.Result, error) {
	results := make([]lens.Result, len(calls))
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(fanOutLimit)
	for i := range calls {
		i := i
		grp.Go(func() error {
			values, err := c.ReadContract(ctx, calls[i])
			results[i] = lens.Result{Values: values, Err: err}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) StorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	data, err := c.ec.StorageAt(ctx, addr, slot, nil)
	if err != nil {
		return common.Hash{}, xerrors.Errorf("storage %s of %s: %w", slot.Hex(), addr.Hex(), err)
	}
	return common.BytesToHash(data), nil
}

func (c *Client) Close() {
	c.ec.Close()
}
