package strategy

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	strategyABIJSON = `[
		{"name": "factory", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"type": "address"}]}
	]`

	beaconABIJSON = `[
		{"name": "implementation", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"type": "address"}]}
	]`

	factoryABIJSON = `[
		{"name": "getStrategyTypes", "type": "function", "stateMutability": "view", "inputs": [], "outputs": [{"type": "string[]"}]},
		{"name": "getImplementation", "type": "function", "stateMutability": "view", "inputs": [{"name": "_strategyName", "type": "string"}], "outputs": [{"type": "address"}]}
	]`
)

var (
	strategyABI abi.ABI
	beaconABI   abi.ABI
	factoryABI  abi.ABI

	// beaconSlot is the EIP-1967 beacon storage slot:
	// keccak256("eip1967.proxy.beacon") - 1.
	beaconSlot common.Hash
)

func init() {
	strategyABI = mustABI(strategyABIJSON)
	beaconABI = mustABI(beaconABIJSON)
	factoryABI = mustABI(factoryABIJSON)

	slot := new(big.Int).SetBytes(crypto.Keccak256([]byte("eip1967.proxy.beacon")))
	slot.Sub(slot, big.NewInt(1))
	beaconSlot = common.BigToHash(slot)
}

func mustABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
