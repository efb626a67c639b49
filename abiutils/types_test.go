package abiutils

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestABIEntryUnmarshalJSON(t *testing.T) {
	abiEntryStr := `{
		"inputs": [
			{"internalType": "address", "name": "from", "type": "address"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "value", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [
			{"internalType": "bool", "name": "", "type": "bool"}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	}`
	entry := ABIEntry{}
	require.NoError(t, json.Unmarshal([]byte(abiEntryStr), &entry))
	assert.Equal(t, "function", entry.Type)
	assert.Equal(t, "transferFrom", entry.Name)
	assert.Equal(t, "nonpayable", entry.StateMutability)
	require.Len(t, entry.Inputs, 3)
	assert.Equal(t, "to", entry.Inputs[1].Name)
	assert.Equal(t, "uint256", entry.Inputs[2].Type.String())
	assert.Len(t, entry.Outputs, 1)

	assert.Error(t, json.Unmarshal([]byte(`{"type": "function", "inputs": [{"type": "bytes33"}]}`), &entry))
}

func TestParseMethodId(t *testing.T) {
	id, err := ParseMethodId("0x9846cd9e")
	require.NoError(t, err)
	assert.Equal(t, "9846cd9e", id.String())

	id, err = ParseMethodId("a9059cbb")
	require.NoError(t, err)
	assert.Equal(t, MethodId{0xa9, 0x05, 0x9c, 0xbb}, id)

	_, err = ParseMethodId("0xa905")
	assert.Error(t, err)
	_, err = ParseMethodId("0xzz46cd9e")
	assert.Error(t, err)
}

func TestInterfaceUnpackOutput(t *testing.T) {
	iface, err := ParseHumanABI("ICounter", []string{
		"function counters(address user) view returns (uint256 total, bool active)",
	})
	require.NoError(t, err)
	data, err := iface.Methods["counters"].Outputs.Pack(big.NewInt(42), true)
	require.NoError(t, err)

	var out struct {
		Total  *big.Int
		Active bool
	}
	require.NoError(t, iface.UnpackOutput(&out, "counters", data))
	assert.Equal(t, int64(42), out.Total.Int64())
	assert.True(t, out.Active)
	assert.Error(t, iface.UnpackOutput(&out, "missing", data))
}
