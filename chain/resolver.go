// Package chain resolves human chain identifiers to chain metadata and
// hands out the per-chain clients built from it. The resolver is the
// explicit registry for everything keyed by chain id: clients are
// constructed lazily on first access and never evicted for the process
// lifetime.
package chain

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/clmops/clmctl/config"
	"github.com/clmops/clmctl/explorer"
	"github.com/clmops/clmctl/lens"
	"github.com/clmops/clmctl/lens/eth"
)

var log = logging.Logger("clmctl/chain")

// ErrUnknownChain is returned for a chain id absent from the config.
// This is a configuration error: fatal, no retry.
var ErrUnknownChain = errors.New("unknown chain")

// Metadata is the resolved view of one chain's configuration.
type Metadata struct {
	ID             string
	ChainID        int64
	RPCURL         string
	ExplorerAPIURL string
	ExplorerAPIKey string
	Multicall      common.Address
	HasMulticall   bool
}

type Resolver struct {
	cfg *config.Conf

	mu        sync.Mutex
	lenses    map[string]lens.API
	explorers map[string]*explorer.Client
}

func NewResolver(cfg *config.Conf) *Resolver {
	return &Resolver{
		cfg:       cfg,
		lenses:    map[string]lens.API{},
		explorers: map[string]*explorer.Client{},
	}
}

// Metadata resolves a chain id to its metadata, reading the explorer
// API key from the configured environment variable.
func (r *Resolver) Metadata(id string) (Metadata, error) {
	cc, ok := r.cfg.Chains[id]
	if !ok {
		return Metadata{}, xerrors.Errorf("resolve chain %q: %w", id, ErrUnknownChain)
	}
	md := Metadata{
		ID:             id,
		ChainID:        cc.ChainID,
		RPCURL:         cc.RPCURL,
		ExplorerAPIURL: cc.ExplorerAPIURL,
	}
	if cc.ExplorerAPIKeyEnv != "" {
		md.ExplorerAPIKey = os.Getenv(cc.ExplorerAPIKeyEnv)
	}
	if cc.Multicall != "" {
		md.Multicall = common.HexToAddress(cc.Multicall)
		md.HasMulticall = true
	}
	return md, nil
}

// Lens returns the chain's node client, dialing on first use.
func (r *Resolver) Lens(ctx context.Context, id string) (lens.API, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if api, ok := r.lenses[id]; ok {
		return api, nil
	}
	md, err := r.Metadata(id)
	if err != nil {
		return nil, err
	}
	api, err := eth.Dial(ctx, md.RPCURL, md.Multicall)
	if err != nil {
		return nil, err
	}
	log.Debugw("dialed chain", "chain", id, "rpc", md.RPCURL, "multicall", md.HasMulticall)
	r.lenses[id] = api
	return api, nil
}

// Explorer returns the chain's explorer log client, building it on
// first use.
func (r *Resolver) Explorer(id string) (*explorer.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.explorers[id]; ok {
		return c, nil
	}
	md, err := r.Metadata(id)
	if err != nil {
		return nil, err
	}
	c := explorer.NewClient(md.ExplorerAPIURL, md.ExplorerAPIKey)
	r.explorers[id] = c
	return c, nil
}

// Close shuts down every dialed client.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, api := range r.lenses {
		api.Close()
		delete(r.lenses, id)
	}
}
