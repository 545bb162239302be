// Package lens abstracts read access to a chain node. Implementations
// live in subpackages; consumers depend only on the API interface.
package lens

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Call is one view-function invocation.
type Call struct {
	To     common.Address
	ABI    *abi.ABI
	Method string
	Args   []interface{}
}

// Result is the outcome of one call in a batch. Batches surface
// per-call failure so callers choose between all-or-nothing and
// partial-result semantics.
type Result struct {
	Values []interface{}
	Err    error
}

type API interface {
	// ReadContract performs a single view call and returns the unpacked
	// return values.
	ReadContract(ctx context.Context, call Call) ([]interface{}, error)

	// ReadContracts performs a batch of view calls, through the chain's
	// multicall contract where one is configured and as a concurrent
	// fan-out otherwise. The returned slice is index-aligned with calls
	// and always has the same length; failures are per-entry.
	ReadContracts(ctx context.Context, calls []Call) ([]Result, error)

	// StorageAt reads a raw storage slot.
	StorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error)

	Close()
}
