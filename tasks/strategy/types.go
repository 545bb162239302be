package strategy

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/xerrors"

	"github.com/clmops/clmctl/lens"
)

// TokenProviderFunc resolves the token provider id for a deployed
// strategy when a static id is not enough.
type TokenProviderFunc func(ctx context.Context, api lens.API, strategy common.Address) (string, error)

// TypeConfig is the static per-strategy-type configuration. Exactly one
// of TokenProviderID and ResolveTokenProvider is set. RewardPoolMethod,
// when non-empty, names a view function the strategy exposes that
// returns its reward pool address.
type TypeConfig struct {
	TokenProviderID      string
	ResolveTokenProvider TokenProviderFunc

	RewardPoolABI    *abi.ABI
	RewardPoolMethod string
}

// typeConfigs is the registration table keyed by strategy base name.
// Configuration is compiled in rather than loaded by string key from
// disk, so an unknown type fails loudly at resolve time.
var typeConfigs map[string]TypeConfig

func init() {
	rewardPool := mustABI(`[
		{"name": "rewardPool", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"type": "address"}]}
	]`)

	typeConfigs = map[string]TypeConfig{
		"StrategyPassiveManagerUniswap": {
			TokenProviderID: "uniswap",
		},
		"StrategyPassiveManagerVelodrome": {
			TokenProviderID:  "velodrome",
			RewardPoolABI:    &rewardPool,
			RewardPoolMethod: "rewardPool",
		},
		"StrategyPassiveManagerAerodrome": {
			TokenProviderID:  "aerodrome",
			RewardPoolABI:    &rewardPool,
			RewardPoolMethod: "rewardPool",
		},
		"StrategyPassiveManagerRamses": {
			// Ramses forks rebrand per chain; read the provider from the
			// strategy itself.
			ResolveTokenProvider: resolveRamsesProvider,
		},
	}
}

// TypeConfigFor looks up the configuration for a strategy base name.
func TypeConfigFor(base string) (TypeConfig, error) {
	cfg, ok := typeConfigs[base]
	if !ok {
		return TypeConfig{}, xerrors.Errorf("strategy type %q: %w", base, ErrUnknownStrategyType)
	}
	return cfg, nil
}

var ramsesVoterABI = mustABI(`[
	{"name": "voter", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"type": "address"}]}
]`)

// Ramses-family deployments (Ramses, Pharaoh, Shadow) share bytecode
// but differ by chain; map the voter contract to the provider id.
var ramsesVoters = map[common.Address]string{
	common.HexToAddress("0xAAA2564DEb34763E3d05162ed3f5C2658691f499"): "ramses",
	common.HexToAddress("0xAAAf3D9CDD3602d117c67D80eEC37a160C8d9869"): "pharaoh",
}

func resolveRamsesProvider(ctx context.Context, api lens.API, strategy common.Address) (string, error) {
	values, err := api.ReadContract(ctx, lens.Call{To: strategy, ABI: &ramsesVoterABI, Method: "voter"})
	if err != nil {
		return "", xerrors.Errorf("read voter of %s: %w", strategy.Hex(), err)
	}
	voter, ok := values[0].(common.Address)
	if !ok {
		return "", xerrors.Errorf("voter of %s: unexpected return type", strategy.Hex())
	}
	provider, ok := ramsesVoters[voter]
	if !ok {
		return "", xerrors.Errorf("voter %s of %s is not a known ramses fork", voter.Hex(), strategy.Hex())
	}
	return provider, nil
}

// knownBases returns the registered base names, for error messages.
func knownBases() string {
	bases := make([]string, 0, len(typeConfigs))
	for base := range typeConfigs {
		bases = append(bases, base)
	}
	return strings.Join(bases, ", ")
}
