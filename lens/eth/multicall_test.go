package eth

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate3Selector(t *testing.T) {
	sig := []byte("aggregate3((address,bool,bytes)[])")
	assert.Equal(t, crypto.Keccak256(sig)[:4], multicall3ABI.Methods["aggregate3"].ID)
}

func TestMulticall3ResultRoundTrip(t *testing.T) {
	outputs := multicall3ABI.Methods["aggregate3"].Outputs

	in := []multicall3Result{
		{Success: true, ReturnData: common.LeftPadBytes([]byte{0xaa}, 32)},
		{Success: false, ReturnData: nil},
	}
	data, err := outputs.Pack(in)
	require.NoError(t, err)

	unpacked, err := outputs.Unpack(data)
	require.NoError(t, err)
	out := *abi.ConvertType(unpacked[0], new([]multicall3Result)).(*[]multicall3Result)
	require.Len(t, out, 2)
	assert.True(t, out[0].Success)
	assert.Equal(t, in[0].ReturnData, out[0].ReturnData)
	assert.False(t, out[1].Success)
	assert.Empty(t, out[1].ReturnData)
}

func TestMulticall3CallPacking(t *testing.T) {
	target := common.HexToAddress("0x0000000000000000000000000000000000000701")
	input, err := multicall3ABI.Pack("aggregate3", []multicall3Call{
		{Target: target, AllowFailure: true, CallData: []byte{0x01, 0x02, 0x03, 0x04}},
	})
	require.NoError(t, err)
	assert.Equal(t, multicall3ABI.Methods["aggregate3"].ID, input[:4])
}
