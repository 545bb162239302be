package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// StrategyImplementation is one entry of a factory's implementation
// registry. TypeTag is the raw registered string, BaseName and Version
// its parsed parts: TypeTag always matches <BaseName>_V<Version>.
type StrategyImplementation struct {
	Address  common.Address
	TypeTag  string
	BaseName string
	Version  int
}

func (s StrategyImplementation) String() string {
	return fmt.Sprintf("%s@%s", s.TypeTag, s.Address.Hex())
}

// DiscoveryEntry maps a factory-created proxy to the token it is backed
// by. Built transiently by the discovery scanner, never persisted.
type DiscoveryEntry struct {
	ProxyAddress        common.Address
	BackingTokenAddress common.Address
}
