package abiutils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethodSig(t *testing.T) {
	tests := []struct {
		sig        string
		name       string
		canonical  string
		mutability string
		numInputs  int
		numOutputs int
	}{
		{"totalSupply() returns(uint256)", "totalSupply", "totalSupply()", "nonpayable", 0, 1},
		{"transfer(address,uint256)", "transfer", "transfer(address,uint256)", "nonpayable", 2, 0},
		{"function sayGM()", "sayGM", "sayGM()", "nonpayable", 0, 0},
		{"function balanceOf(address owner) external view returns (uint256 balance)", "balanceOf", "balanceOf(address)", "view", 1, 1},
		{
			"function getGMRecord(address user) view returns (uint256 lastGM, uint256 currentStreak, uint256 longestStreak, uint256 totalGMs, bool canGMToday)",
			"getGMRecord", "getGMRecord(address)", "view", 1, 5,
		},
		{"function deposit() payable", "deposit", "deposit()", "payable", 0, 0},
		{"function setName(string memory name)", "setName", "setName(string)", "nonpayable", 1, 0},
	}
	for _, test := range tests {
		entry, err := ParseMethodSig(test.sig)
		require.NoError(t, err, test.sig)
		assert.Equal(t, "function", entry.Type)
		assert.Equal(t, test.name, entry.Name)
		iface, err := NewInterface("test", []ABIEntry{entry})
		require.NoError(t, err)
		assert.Equal(t, test.canonical, iface.Methods[test.name].Sig)
		assert.Equal(t, test.mutability, entry.StateMutability)
		assert.Len(t, entry.Inputs, test.numInputs)
		assert.Len(t, entry.Outputs, test.numOutputs)
	}
}

func TestParseMethodSigArgumentNames(t *testing.T) {
	entry, err := ParseMethodSig("function canSendGM(address user) view returns (bool canSend, uint256 timeUntilNext)")
	require.NoError(t, err)
	assert.Equal(t, "user", entry.Inputs[0].Name)
	assert.Equal(t, "canSend", entry.Outputs[0].Name)
	assert.Equal(t, "bool", entry.Outputs[0].Type.String())
	assert.Equal(t, "timeUntilNext", entry.Outputs[1].Name)
	assert.Equal(t, "uint256", entry.Outputs[1].Type.String())
}

func TestParseMethodSigInvalid(t *testing.T) {
	invalids := []string{
		"",
		"not a signature",
		"foo(uint257)",
		"foo(int7)",
		"foo(uint12)",
		"foo(bytes33)",
		"foo(bytes0)",
		"foo(uint512[])",
		"foo(address a b)",
		"foo(address) returns (",
	}
	for _, sig := range invalids {
		_, err := ParseMethodSig(sig)
		assert.Error(t, err, sig)
	}
}

func TestParseMethodSigSizedTypes(t *testing.T) {
	entry, err := ParseMethodSig("function f(uint8 a, int256 b, bytes32 c, bytes1[2] d, uint64[] e, bytes f, string g)")
	require.NoError(t, err)
	assert.Len(t, entry.Inputs, 7)
	assert.Equal(t, "bytes1[2]", entry.Inputs[3].Type.String())
}

func TestParseHumanABI(t *testing.T) {
	erc20, err := ParseHumanABI("IERC20", []string{
		"function transfer(address to, uint256 amount) returns (bool)",
		"function transferFrom(address from, address to, uint256 amount) returns (bool)",
		"function balanceOf(address owner) view returns (uint256)",
	})
	require.NoError(t, err)
	assert.Equal(t, "IERC20", erc20.Name)
	assert.Len(t, erc20.Methods, 3)

	id, err := erc20.MethodID("transfer")
	require.NoError(t, err)
	assert.Equal(t, "a9059cbb", id.String())

	_, err = erc20.MethodID("approve")
	assert.Error(t, err)
}

func TestABIElementsUnmarshalJSON(t *testing.T) {
	testData := `{
		"18160ddd": "totalSupply() returns(uint256)",
		"a9059cbb": "transfer(address,uint256)",
		"23b872dd": [
		  "transferFrom(address,address,uint256)",
		  {
			"inputs": [
			  {"name": "_from", "type": "address"},
			  {"name": "_to", "type": "address"},
			  {"name": "_value", "type": "uint256"}
			],
			"name": "transferFrom",
			"outputs": [{"name": "", "type": "bool"}],
			"stateMutability": "nonpayable",
			"type": "function"
		  }
		]
	  }`

	methodSigs := make(map[string]ABIElements)
	require.NoError(t, json.Unmarshal([]byte(testData), &methodSigs))
	for id, list := range methodSigs {
		require.NotEmpty(t, list)
		for _, entry := range list {
			iface, err := NewInterface("IERC20", []ABIEntry{entry})
			require.NoError(t, err)
			methodID, err := iface.MethodID(entry.Name)
			require.NoError(t, err)
			assert.Equal(t, id, methodID.String())
		}
	}
	assert.Len(t, methodSigs["23b872dd"], 2)
}

func TestUnmarshalInterface(t *testing.T) {
	data := `[
		"function sayGM()",
		{
			"inputs": [{"internalType": "address", "name": "user", "type": "address"}],
			"name": "getGMRecord",
			"outputs": [
				{"internalType": "uint256", "name": "lastGM", "type": "uint256"},
				{"internalType": "bool", "name": "canGMToday", "type": "bool"}
			],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"anonymous": false,
			"inputs": [
				{"indexed": true, "internalType": "address", "name": "user", "type": "address"},
				{"indexed": false, "internalType": "uint256", "name": "streak", "type": "uint256"}
			],
			"name": "GMSent",
			"type": "event"
		},
		{
			"inputs": [{"internalType": "uint256", "name": "remaining", "type": "uint256"}],
			"name": "CooldownActive",
			"type": "error"
		}
	]`
	iface, err := UnmarshalInterface("DailyGM", []byte(data))
	require.NoError(t, err)
	assert.Len(t, iface.Methods, 2)
	assert.True(t, iface.Methods["getGMRecord"].IsConstant())
	require.Contains(t, iface.Events, "GMSent")
	assert.True(t, iface.Events["GMSent"].Inputs[0].Indexed)
	require.Contains(t, iface.Errors, "CooldownActive")
	assert.Equal(t, "CooldownActive(uint256)", iface.Errors["CooldownActive"].Sig)

	_, err = UnmarshalInterface("DailyGM", []byte(`[{"type": "receive"}]`))
	assert.Error(t, err)
	_, err = UnmarshalInterface("DailyGM", []byte(`[{"type": "function", "name": "f", "inputs": [{"type": "uint7"}]}]`))
	assert.Error(t, err)
}
