package eth

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/xerrors"

	"github.com/clmops/clmctl/lens"
)

const multicall3ABIJSON = `[{
	"name": "aggregate3",
	"type": "function",
	"stateMutability": "payable",
	"inputs": [{
		"name": "calls",
		"type": "tuple[]",
		"components": [
			{"name": "target", "type": "address"},
			{"name": "allowFailure", "type": "bool"},
			{"name": "callData", "type": "bytes"}
		]
	}],
	"outputs": [{
		"name": "returnData",
		"type": "tuple[]",
		"components": [
			{"name": "success", "type": "bool"},
			{"name": "returnData", "type": "bytes"}
		]
	}]
}]`

var multicall3ABI abi.ABI

func init() {
	var err error
	multicall3ABI, err = abi.JSON(strings.NewReader(multicall3ABIJSON))
	if err != nil {
		panic(err)
	}
}

type multicall3Call struct {
	Target       common.Address `abi:"target"`
	AllowFailure bool           `abi:"allowFailure"`
	CallData     []byte         `abi:"callData"`
}

type multicall3Result struct {
	Success    bool   `abi:"success"`
	ReturnData []byte `abi:"returnData"`
}

// readAggregate batches calls through Multicall3 aggregate3 with
// allowFailure set, so one reverting call does not fail the batch.
func (c *Client) readAggregate(ctx context.Context, calls []lens.Call) ([]lens.Result, error) {
	packed := make([]multicall3Call, len(calls))
	for i, call := range calls {
		data, err := call.ABI.Pack(call.Method, call.Args...)
		if err != nil {
			return nil, xerrors.Errorf("pack %s: %w", call.Method, err)
		}
		packed[i] = multicall3Call{Target: call.To, AllowFailure: true, CallData: data}
	}

	input, err := multicall3ABI.Pack("aggregate3", packed)
	if err != nil {
		return nil, xerrors.Errorf("pack aggregate3: %w", err)
	}
	ret, err := c.ec.CallContract(ctx, ethereum.CallMsg{To: &c.multicall, Data: input}, nil)
	if err != nil {
		return nil, xerrors.Errorf("call aggregate3 on %s: %w", c.multicall.Hex(), err)
	}

	unpacked, err := multicall3ABI.Unpack("aggregate3", ret)
	if err != nil {
		return nil, xerrors.Errorf("unpack aggregate3: %w", err)
	}
	raw := *abi.ConvertType(unpacked[0], new([]multicall3Result)).(*[]multicall3Result)
	if len(raw) != len(calls) {
		return nil, xerrors.Errorf("aggregate3 returned %d results for %d calls", len(raw), len(calls))
	}

	results := make([]lens.Result, len(calls))
	for i, res := range raw {
		if !res.Success {
			results[i] = lens.Result{Err: xerrors.Errorf("call %s on %s reverted", calls[i].Method, calls[i].To.Hex())}
			continue
		}
		values, err := calls[i].ABI.Unpack(calls[i].Method, res.ReturnData)
		if err != nil {
			results[i] = lens.Result{Err: xerrors.Errorf("unpack %s on %s: %w", calls[i].Method, calls[i].To.Hex(), err)}
			continue
		}
		results[i] = lens.Result{Values: values}
	}
	return results, nil
}
