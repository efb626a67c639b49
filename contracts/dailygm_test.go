package contracts

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/status-im/keycard-go/hexutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verichains/dailygm/abiutils"
)

var testUser = common.HexToAddress("0x42A289CB8210005a2F5D0636f9aa90BF43D1593E")

// callerFunc adapts a function to ContractCaller
type callerFunc func(msg ethereum.CallMsg) ([]byte, error)

func (f callerFunc) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return f(msg)
}

func packOutputs(t *testing.T, c *DailyGM, method string, values ...interface{}) []byte {
	data, err := c.ABI().Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	return data
}

func TestDailyGMSelectors(t *testing.T) {
	gm, err := NewDailyGM(common.Address{})
	require.NoError(t, err)
	tests := map[string]string{
		MethodSayGM:           "25406903",
		MethodSendGM:          "32117cf0",
		MethodGetGMRecord:     "4cdab47d",
		MethodGetUserStats:    "4e43603a",
		MethodGetUserExtended: "1809104b",
		MethodCanSendGM:       "b6607611",
	}
	for method, selector := range tests {
		id, err := gm.ABI().MethodID(method)
		require.NoError(t, err)
		assert.Equal(t, selector, id.String(), method)
	}
}

func TestPackWrite(t *testing.T) {
	gm, err := NewDailyGM(common.Address{})
	require.NoError(t, err)

	data, err := gm.PackWrite(MethodSayGM)
	require.NoError(t, err)
	assert.Equal(t, "25406903", hex.EncodeToString(data))

	_, err = gm.PackWrite(MethodGetGMRecord)
	assert.Error(t, err)
	assert.Error(t, gm.SetWriteSelector(MethodCanSendGM, abiutils.MethodId{1, 2, 3, 4}))

	require.NoError(t, gm.SetWriteSelector(MethodSendGM, abiutils.MethodId{0xde, 0xad, 0xbe, 0xef}))
	data, err = gm.PackWrite(MethodSendGM)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", hex.EncodeToString(data))
}

func TestPackWriteDeployment(t *testing.T) {
	deployment, err := LookupDeployment(BaseChainID)
	require.NoError(t, err)
	gm, err := NewDailyGM(deployment.DailyGM)
	require.NoError(t, err)

	data, err := gm.PackWrite(MethodSayGM)
	require.NoError(t, err)
	assert.Equal(t, hexutils.HexToBytes("9846cd9e"), data)

	// the points revision keeps its ABI selector
	data, err = gm.PackWrite(MethodSendGM)
	require.NoError(t, err)
	assert.Equal(t, "32117cf0", hex.EncodeToString(data))
}

func TestLoadABIFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "DailyGM.json")
	require.NoError(t, os.WriteFile(file, []byte(`[
		"function sayGM()",
		{
			"inputs": [{"internalType": "address", "name": "user", "type": "address"}],
			"name": "getGMRecord",
			"outputs": [
				{"internalType": "uint256", "name": "lastGM", "type": "uint256"},
				{"internalType": "uint256", "name": "currentStreak", "type": "uint256"},
				{"internalType": "uint256", "name": "longestStreak", "type": "uint256"},
				{"internalType": "uint256", "name": "totalGMs", "type": "uint256"},
				{"internalType": "bool", "name": "canGMToday", "type": "bool"}
			],
			"stateMutability": "view",
			"type": "function"
		}
	]`), 0644))
	iface, err := LoadABIFile(file)
	require.NoError(t, err)

	deployment, err := LookupDeployment(BaseChainID)
	require.NoError(t, err)
	gm := NewDailyGMWithABI(deployment.DailyGM, iface)
	data, err := gm.PackWrite(MethodSayGM)
	require.NoError(t, err)
	assert.Equal(t, "25406903", hex.EncodeToString(data))

	output := packOutputs(t, gm, MethodGetGMRecord, big.NewInt(1), big.NewInt(2), big.NewInt(2), big.NewInt(5), true)
	record, err := gm.GetGMRecord(context.Background(), callerFunc(func(msg ethereum.CallMsg) ([]byte, error) {
		return output, nil
	}), testUser)
	require.NoError(t, err)
	assert.Equal(t, int64(5), record.TotalGMs.Int64())
	assert.True(t, record.CanGMToday)

	_, err = gm.GetUserStats(context.Background(), callerFunc(func(msg ethereum.CallMsg) ([]byte, error) {
		return output, nil
	}), testUser)
	assert.Error(t, err)

	_, err = LoadABIFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`["function f(uint7)"]`), 0644))
	_, err = LoadABIFile(bad)
	assert.Error(t, err)
}

func TestGetGMRecord(t *testing.T) {
	deployment, err := LookupDeployment(BaseChainID)
	require.NoError(t, err)
	gm, err := NewDailyGM(deployment.DailyGM)
	require.NoError(t, err)

	output := packOutputs(t, gm, MethodGetGMRecord, big.NewInt(1700000000), big.NewInt(3), big.NewInt(7), big.NewInt(12), false)
	caller := callerFunc(func(msg ethereum.CallMsg) ([]byte, error) {
		assert.Equal(t, deployment.DailyGM, *msg.To)
		assert.Equal(t, testUser, msg.From)
		assert.Equal(t, "4cdab47d", hex.EncodeToString(msg.Data[:4]))
		return output, nil
	})

	record, err := gm.GetGMRecord(context.Background(), caller, testUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), record.LastGM.Int64())
	assert.Equal(t, int64(3), record.CurrentStreak.Int64())
	assert.Equal(t, int64(7), record.LongestStreak.Int64())
	assert.Equal(t, int64(12), record.TotalGMs.Int64())
	assert.False(t, record.CanGMToday)
}

func TestExtendedReads(t *testing.T) {
	gm, err := NewDailyGM(common.HexToAddress("0x01"))
	require.NoError(t, err)
	outputs := map[string][]byte{
		"4e43603a": packOutputs(t, gm, MethodGetUserStats, big.NewInt(1700000000), big.NewInt(2), big.NewInt(5), big.NewInt(9), big.NewInt(900)),
		"1809104b": packOutputs(t, gm, MethodGetUserExtended, big.NewInt(17), true, big.NewInt(50)),
		"b6607611": packOutputs(t, gm, MethodCanSendGM, false, big.NewInt(3600)),
	}
	caller := callerFunc(func(msg ethereum.CallMsg) ([]byte, error) {
		return outputs[hex.EncodeToString(msg.Data[:4])], nil
	})
	ctx := context.Background()

	stats, err := gm.GetUserStats(ctx, caller, testUser)
	require.NoError(t, err)
	assert.Equal(t, int64(900), stats.Points.Int64())

	ext, err := gm.GetUserExtended(ctx, caller, testUser)
	require.NoError(t, err)
	assert.Equal(t, int64(17), ext.Rank.Int64())
	assert.True(t, ext.IsWhitelisted)

	elig, err := gm.CanSendGM(ctx, caller, testUser)
	require.NoError(t, err)
	assert.False(t, elig.CanSend)
	assert.Equal(t, int64(3600), elig.TimeUntilNext.Int64())
}

func TestCallErrors(t *testing.T) {
	gm, err := NewDailyGM(common.HexToAddress("0x01"))
	require.NoError(t, err)
	ctx := context.Background()

	empty := callerFunc(func(msg ethereum.CallMsg) ([]byte, error) { return nil, nil })
	_, err = gm.GetGMRecord(ctx, empty, testUser)
	assert.ErrorIs(t, err, ErrEmptyResult)

	errNetwork := errors.New("connection refused")
	failing := callerFunc(func(msg ethereum.CallMsg) ([]byte, error) { return nil, errNetwork })
	_, err = gm.GetGMRecord(ctx, failing, testUser)
	assert.ErrorIs(t, err, errNetwork)
}

func TestLookupDeployment(t *testing.T) {
	d, err := LookupDeployment(BaseChainID)
	require.NoError(t, err)
	assert.Equal(t, "https://basescan.org", d.ExplorerURL)
	_, err = LookupDeployment(1)
	assert.Error(t, err)
}
