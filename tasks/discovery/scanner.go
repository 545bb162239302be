// Package discovery finds the reward pool or wrapper vault paired to a
// CLM by replaying the creation events of the relevant factory and
// probing each created proxy for its backing token. Pairing is an
// optional convenience for the onboarding workflow, so the scan
// degrades gracefully: a failed log fetch means "no pairing found" and
// a failed probe drops that one candidate.
package discovery

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gammazero/workerpool"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/clmops/clmctl/explorer"
	"github.com/clmops/clmctl/lens"
	"github.com/clmops/clmctl/model"
)

var log = logging.Logger("clmctl/discovery")

// Kind selects which backing-token view the created proxies expose.
type Kind string

const (
	// KindRewardPool probes stakedToken() (gov records).
	KindRewardPool Kind = "rewardpool"
	// KindVault probes want() (standard records).
	KindVault Kind = "vault"
)

// proxyCreatedTopic is the topic0 of the factories' creation event.
var proxyCreatedTopic = crypto.Keccak256Hash([]byte("ProxyCreated(address)"))

var backingTokenABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(`[
		{"name": "stakedToken", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"type": "address"}]},
		{"name": "want", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"type": "address"}]}
	]`))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// LogSource is the explorer surface the scanner needs.
type LogSource interface {
	GetLogs(ctx context.Context, address common.Address, topic0 common.Hash) ([]explorer.Log, error)
}

const probePoolSize = 16

type Scanner struct {
	api  lens.API
	logs LogSource
}

func NewScanner(api lens.API, logs LogSource) *Scanner {
	return &Scanner{api: api, logs: logs}
}

// FindPairedAddress returns the factory-created proxy whose backing
// token equals target, or found=false if none matches or the log fetch
// failed.
func (s *Scanner) FindPairedAddress(ctx context.Context, factory, target common.Address, kind Kind) (common.Address, bool) {
	entries, err := s.scan(ctx, factory, kind)
	if err != nil {
		log.Warnw("discovery scan failed, skipping pairing", "factory", factory.Hex(), "kind", kind, "error", err)
		return common.Address{}, false
	}
	for _, e := range entries {
		if e.BackingTokenAddress == target {
			return e.ProxyAddress, true
		}
	}
	log.Debugw("no paired contract found", "factory", factory.Hex(), "kind", kind, "target", target.Hex(), "candidates", len(entries))
	return common.Address{}, false
}

// scan builds the proxy -> backing token map for one factory.
func (s *Scanner) scan(ctx context.Context, factory common.Address, kind Kind) ([]model.DiscoveryEntry, error) {
	method, err := kind.method()
	if err != nil {
		return nil, err
	}

	logs, err := s.logs.GetLogs(ctx, factory, proxyCreatedTopic)
	if err != nil {
		return nil, xerrors.Errorf("fetch creation events: %w", err)
	}

	proxies := make([]common.Address, 0, len(logs))
	for _, l := range logs {
		// The created proxy is the event's single non-indexed argument:
		// one ABI word with the address right-aligned.
		if len(l.Data) < common.HashLength {
			log.Debugw("skipping malformed creation event", "factory", factory.Hex(), "data_len", len(l.Data))
			continue
		}
		proxies = append(proxies, common.BytesToAddress(l.Data[:common.HashLength]))
	}

	// Probe every proxy concurrently. A failed probe only removes that
	// proxy from consideration; some factory children are not the kind
	// of contract we are probing for and revert.
	results := make(chan model.DiscoveryEntry, len(proxies))
	pool := workerpool.New(probePoolSize)
	for _, proxy := range proxies {
		proxy := proxy
		pool.Submit(func() {
			values, err := s.api.ReadContract(ctx, lens.Call{To: proxy, ABI: &backingTokenABI, Method: method})
			if err != nil {
				log.Debugw("probe failed, dropping candidate", "proxy", proxy.Hex(), "method", method, "error", err)
				return
			}
			token, ok := values[0].(common.Address)
			if !ok {
				log.Debugw("probe returned unexpected type, dropping candidate", "proxy", proxy.Hex(), "method", method)
				return
			}
			results <- model.DiscoveryEntry{ProxyAddress: proxy, BackingTokenAddress: token}
		})
	}

	go func() {
		pool.StopWait()
		close(results)
	}()

	var entries []model.DiscoveryEntry
	for e := range results {
		entries = append(entries, e)
	}
	return entries, nil
}

func (k Kind) method() (string, error) {
	switch k {
	case KindRewardPool:
		return "stakedToken", nil
	case KindVault:
		return "want", nil
	}
	return "", xerrors.Errorf("unknown discovery kind %q", k)
}
