// Package strategy identifies the exact implementation a deployed CLM
// strategy proxy points at, by reading the EIP-1967 beacon chain of the
// proxy and matching it against the factory's implementation registry.
// Every failure here corresponds to a real on-chain inconsistency
// (wrong network, un-upgraded factory, malformed naming), so failures
// are fatal for the record being created and never retried.
package strategy

import (
	"context"
	"errors"
	"regexp"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"github.com/clmops/clmctl/lens"
	"github.com/clmops/clmctl/model"
)

var log = logging.Logger("clmctl/strategy")

var (
	ErrBeaconResolution            = errors.New("beacon proxy resolution failed")
	ErrNoStrategyTypes             = errors.New("factory registered no strategy types")
	ErrImplementationCountMismatch = errors.New("implementation count does not match type count")
	ErrInvalidStrategyTypeFormat   = errors.New("strategy type does not match <base>_V<version>")
	ErrImplementationNotFound      = errors.New("deployed implementation not registered with factory")
	ErrUnknownStrategyType         = errors.New("no configuration registered for strategy type")
)

// typeTagRe parses registered strategy type strings.
var typeTagRe = regexp.MustCompile(`^(.*)_V(\d+)$`)

// Resolution is the result of resolving one strategy proxy.
type Resolution struct {
	Address        common.Address
	Factory        common.Address
	Implementation model.StrategyImplementation
	Config         TypeConfig
	// TokenProviderID is the resolved provider id (static or via the
	// type's resolver function).
	TokenProviderID string
	// Newer lists registered implementations of the same base with a
	// higher version than the deployed one. Informational: the deployed
	// implementation is still the one resolved.
	Newer []model.StrategyImplementation
}

type Resolver struct {
	api lens.API
}

func NewResolver(api lens.API) *Resolver {
	return &Resolver{api: api}
}

// Resolve identifies the implementation behind a strategy proxy and
// loads its type configuration.
func (r *Resolver) Resolve(ctx context.Context, strategyAddr common.Address) (*Resolution, error) {
	factory, err := r.readAddress(ctx, lens.Call{To: strategyAddr, ABI: &strategyABI, Method: "factory"})
	if err != nil {
		return nil, xerrors.Errorf("read factory of %s: %w", strategyAddr.Hex(), err)
	}

	deployed, err := r.resolveBeaconImplementation(ctx, strategyAddr)
	if err != nil {
		return nil, err
	}

	impls, err := r.readImplementations(ctx, factory)
	if err != nil {
		return nil, err
	}

	var selected *model.StrategyImplementation
	for i := range impls {
		if impls[i].Address == deployed {
			selected = &impls[i]
			break
		}
	}
	if selected == nil {
		return nil, xerrors.Errorf("implementation %s of strategy %s: %w", deployed.Hex(), strategyAddr.Hex(), ErrImplementationNotFound)
	}

	var newer []model.StrategyImplementation
	for _, impl := range impls {
		if impl.BaseName == selected.BaseName && impl.Version > selected.Version {
			newer = append(newer, impl)
			log.Warnw("newer strategy implementation available",
				"strategy", strategyAddr.Hex(),
				"deployed", selected.TypeTag,
				"available", impl.TypeTag)
		}
	}

	cfg, err := TypeConfigFor(selected.BaseName)
	if err != nil {
		return nil, xerrors.Errorf("known types are %s: %w", knownBases(), err)
	}

	providerID := cfg.TokenProviderID
	if cfg.ResolveTokenProvider != nil {
		providerID, err = cfg.ResolveTokenProvider(ctx, r.api, strategyAddr)
		if err != nil {
			return nil, xerrors.Errorf("resolve token provider for %s: %w", strategyAddr.Hex(), err)
		}
	}

	return &Resolution{
		Address:         strategyAddr,
		Factory:         factory,
		Implementation:  *selected,
		Config:          cfg,
		TokenProviderID: providerID,
		Newer:           newer,
	}, nil
}

// resolveBeaconImplementation follows the EIP-1967 beacon pointer of a
// proxy: the beacon address lives in the well-known storage slot, and
// the beacon's implementation() view returns the current code address.
func (r *Resolver) resolveBeaconImplementation(ctx context.Context, proxy common.Address) (common.Address, error) {
	slot, err := r.api.StorageAt(ctx, proxy, beaconSlot)
	if err != nil {
		return common.Address{}, xerrors.Errorf("read beacon slot of %s: %w", proxy.Hex(), err)
	}
	if slot == (common.Hash{}) {
		return common.Address{}, xerrors.Errorf("beacon slot of %s is empty (not a beacon proxy, or wrong network): %w", proxy.Hex(), ErrBeaconResolution)
	}
	beacon := common.BytesToAddress(slot.Bytes())

	impl, err := r.readAddress(ctx, lens.Call{To: beacon, ABI: &beaconABI, Method: "implementation"})
	if err != nil {
		return common.Address{}, xerrors.Errorf("read implementation of beacon %s: %w", beacon.Hex(), err)
	}
	if impl == (common.Address{}) {
		return common.Address{}, xerrors.Errorf("beacon %s returned the zero implementation: %w", beacon.Hex(), ErrBeaconResolution)
	}
	return impl, nil
}

// readImplementations fetches the factory's full type registry: the
// list of type strings, then every registered implementation address in
// one concurrent batch. The batch is all-or-nothing: a shortfall in the
// result count means the factory is inconsistent and resolution fails.
func (r *Resolver) readImplementations(ctx context.Context, factory common.Address) ([]model.StrategyImplementation, error) {
	values, err := r.api.ReadContract(ctx, lens.Call{To: factory, ABI: &factoryABI, Method: "getStrategyTypes"})
	if err != nil {
		return nil, xerrors.Errorf("read strategy types of factory %s: %w", factory.Hex(), err)
	}
	tags, ok := values[0].([]string)
	if !ok {
		return nil, xerrors.Errorf("factory %s getStrategyTypes: unexpected return type", factory.Hex())
	}
	if len(tags) == 0 {
		return nil, xerrors.Errorf("factory %s: %w", factory.Hex(), ErrNoStrategyTypes)
	}

	calls := make([]lens.Call, len(tags))
	for i, tag := range tags {
		calls[i] = lens.Call{To: factory, ABI: &factoryABI, Method: "getImplementation", Args: []interface{}{tag}}
	}
	results, err := r.api.ReadContracts(ctx, calls)
	if err != nil {
		return nil, xerrors.Errorf("read implementations of factory %s: %w", factory.Hex(), err)
	}

	impls := make([]model.StrategyImplementation, 0, len(tags))
	for i, res := range results {
		if res.Err != nil {
			return nil, xerrors.Errorf("factory %s returned %d of %d implementations (%q failed: %v): %w",
				factory.Hex(), len(impls), len(tags), tags[i], res.Err, ErrImplementationCountMismatch)
		}
		addr, ok := res.Values[0].(common.Address)
		if !ok {
			return nil, xerrors.Errorf("factory %s getImplementation(%q): unexpected return type", factory.Hex(), tags[i])
		}

		m := typeTagRe.FindStringSubmatch(tags[i])
		if m == nil {
			return nil, xerrors.Errorf("type %q of factory %s: %w", tags[i], factory.Hex(), ErrInvalidStrategyTypeFormat)
		}
		version, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, xerrors.Errorf("type %q of factory %s: %w", tags[i], factory.Hex(), ErrInvalidStrategyTypeFormat)
		}

		impls = append(impls, model.StrategyImplementation{
			Address:  addr,
			TypeTag:  tags[i],
			BaseName: m[1],
			Version:  version,
		})
	}
	return impls, nil
}

func (r *Resolver) readAddress(ctx context.Context, call lens.Call) (common.Address, error) {
	values, err := r.api.ReadContract(ctx, call)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, xerrors.Errorf("%s on %s: unexpected return type", call.Method, call.To.Hex())
	}
	return addr, nil
}
