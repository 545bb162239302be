package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clmops/clmctl/lens"
)

// FakeLens is a scriptable lens.API for tests: view-call and storage
// responses are registered up front, keyed by target, method and args.
type FakeLens struct {
	mu      sync.Mutex
	returns map[string][]interface{}
	errors  map[string]error
	storage map[string]common.Hash
	calls   []string
}

var _ lens.API = (*FakeLens)(nil)

func NewFakeLens() *FakeLens {
	return &FakeLens{
		returns: map[string][]interface{}{},
		errors:  map[string]error{},
		storage: map[string]common.Hash{},
	}
}

func callKey(to common.Address, method string, args []interface{}) string {
	key := to.Hex() + "/" + method
	if len(args) > 0 {
		key += fmt.Sprintf("%v", args)
	}
	return key
}

// Returns registers the unpacked return values for one call.
func (f *FakeLens) Returns(to common.Address, method string, args []interface{}, values ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.returns[callKey(to, method, args)] = values
}

// Fails registers an error for one call.
func (f *FakeLens) Fails(to common.Address, method string, args []interface{}, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[callKey(to, method, args)] = err
}

// SetStorage registers a storage slot value.
func (f *FakeLens) SetStorage(addr common.Address, slot, value common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storage[addr.Hex()+"/"+slot.Hex()] = value
}

// Calls returns the keys of every call made, in order.
func (f *FakeLens) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeLens) ReadContract(ctx context.Context, call lens.Call) ([]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := callKey(call.To, call.Method, call.Args)
	f.calls = append(f.calls, key)
	if err, ok := f.errors[key]; ok {
		return nil, err
	}
	if values, ok := f.returns[key]; ok {
		return values, nil
	}
	return nil, fmt.Errorf("no response registered for %s", key)
}

func (f *FakeLens) ReadContracts(ctx context.Context, calls []lens.Call) ([]lens.Result, error) {
	results := make([]lens.Result, len(calls))
	for i, call := range calls {
		values, err := f.ReadContract(ctx, call)
		results[i] = lens.Result{Values: values, Err: err}
	}
	return results, nil
}

func (f *FakeLens) StorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.storage[addr.Hex()+"/"+slot.Hex()], nil
}

func (f *FakeLens) Close() {}
