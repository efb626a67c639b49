package wallet

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testUniversal = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testSub       = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testTxHash    = common.HexToHash("0xabcdef")
)

type ethService struct {
	reject bool
}

func (s *ethService) RequestAccounts() ([]common.Address, error) {
	if s.reject {
		return nil, &providerError{code: codeUserRejected, message: "User rejected the request."}
	}
	return []common.Address{testUniversal, testSub}, nil
}

func (s *ethService) Accounts() []common.Address {
	return []common.Address{testUniversal}
}

func (s *ethService) ChainId() hexutil.Uint64 {
	return 8453
}

func (s *ethService) SendTransaction(args TxArgs) (common.Hash, error) {
	return testTxHash, nil
}

type walletService struct {
	lastCalls SendCallsParams
	wrapID    bool
}

func (s *walletService) AddSubAccount(params addSubAccountParams) (*SubAccount, error) {
	factory := common.HexToAddress("0x3333333333333333333333333333333333333333")
	return &SubAccount{Address: testSub, Factory: &factory, FactoryData: hexutil.Bytes{0x01, 0x02}}, nil
}

func (s *walletService) SendCalls(params SendCallsParams) (interface{}, error) {
	s.lastCalls = params
	if s.wrapID {
		return map[string]string{"id": "0xbatch"}, nil
	}
	return "0xbatch", nil
}

func (s *walletService) GetCallsStatus(id string) json.RawMessage {
	return json.RawMessage(`{"id":"` + id + `","status":"CONFIRMED","receipts":[{"transactionHash":"` + testTxHash.Hex() + `","blockNumber":"0x10","status":"0x1"}]}`)
}

func newTestRPCProvider(t *testing.T, eth *ethService, wallet *walletService) *RPCProvider {
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", eth))
	require.NoError(t, server.RegisterName("wallet", wallet))
	httpServer := httptest.NewServer(server)
	t.Cleanup(func() {
		httpServer.Close()
		server.Stop()
	})
	provider, err := DialRPCProvider(context.Background(), &Config{Mode: ModeRPC, ProviderURL: httpServer.URL})
	require.NoError(t, err)
	t.Cleanup(provider.Close)
	return provider
}

func TestRPCProviderAccounts(t *testing.T) {
	ctx := context.Background()
	provider := newTestRPCProvider(t, &ethService{}, &walletService{})

	accounts, err := RequestAccounts(ctx, provider)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{testUniversal, testSub}, accounts)

	accounts, err = Accounts(ctx, provider)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{testUniversal}, accounts)

	chainID, err := ChainID(ctx, provider)
	require.NoError(t, err)
	assert.Equal(t, uint64(8453), chainID)
}

func TestRPCProviderUserRejected(t *testing.T) {
	provider := newTestRPCProvider(t, &ethService{reject: true}, &walletService{})
	_, err := RequestAccounts(context.Background(), provider)
	require.Error(t, err)
	assert.Equal(t, KindUserRejected, KindOf(err))
}

func TestRPCProviderSubAccount(t *testing.T) {
	provider := newTestRPCProvider(t, &ethService{}, &walletService{})
	sub, err := AddSubAccount(context.Background(), provider)
	require.NoError(t, err)
	assert.Equal(t, testSub, sub.Address)
	require.NotNil(t, sub.Factory)
	assert.Equal(t, hexutil.Bytes{0x01, 0x02}, sub.FactoryData)
}

func TestRPCProviderSendCalls(t *testing.T) {
	ctx := context.Background()
	for _, wrap := range []bool{false, true} {
		wallet := &walletService{wrapID: wrap}
		provider := newTestRPCProvider(t, &ethService{}, wallet)
		to := common.HexToAddress("0xf5b0E9cFD956929cFB2F168667CC392c29163535")
		id, err := SendCalls(ctx, provider, SendCallsParams{
			Version:      "2.0.0",
			ChainID:      8453,
			From:         testSub,
			Calls:        []Call{{To: &to, Data: hexutil.Bytes{0x25, 0x40, 0x69, 0x03}}},
			Capabilities: PaymasterCapabilities("https://paymaster.example"),
		})
		require.NoError(t, err)
		assert.Equal(t, "0xbatch", id)
		assert.Equal(t, testSub, wallet.lastCalls.From)
		assert.Contains(t, wallet.lastCalls.Capabilities, "paymasterService")

		status, err := GetCallsStatus(ctx, provider, id)
		require.NoError(t, err)
		assert.True(t, status.Confirmed())
		hash, ok := status.TxHash()
		assert.True(t, ok)
		assert.Equal(t, testTxHash, hash)
	}
}

func TestRPCProviderInProc(t *testing.T) {
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &ethService{}))
	defer server.Stop()
	provider := NewRPCProvider(rpc.DialInProc(server), "inproc")
	defer provider.Close()

	hash, err := SendTransaction(context.Background(), provider, TxArgs{From: testSub})
	require.NoError(t, err)
	assert.Equal(t, testTxHash, hash)
}

func TestRPCProviderUnsupportedMethod(t *testing.T) {
	provider := newTestRPCProvider(t, &ethService{}, &walletService{})
	_, err := provider.Request(context.Background(), "wallet_grantPermissions")
	require.Error(t, err)
	assert.Equal(t, KindUnknown, KindOf(err))
}

func TestRPCProviderClosed(t *testing.T) {
	provider := newTestRPCProvider(t, &ethService{}, &walletService{})
	provider.Close()
	_, err := Accounts(context.Background(), provider)
	assert.Equal(t, KindUnavailable, KindOf(err))
}

func TestCallsStatusCode(t *testing.T) {
	var status CallsStatus
	require.NoError(t, json.Unmarshal([]byte(`{"status":100}`), &status))
	assert.True(t, status.Pending())
	require.NoError(t, json.Unmarshal([]byte(`{"status":"PENDING"}`), &status))
	assert.True(t, status.Pending())
	require.NoError(t, json.Unmarshal([]byte(`{"status":500}`), &status))
	assert.False(t, status.Confirmed())
	assert.False(t, status.Pending())
	assert.Error(t, json.Unmarshal([]byte(`{"status":"UNKNOWN"}`), &status))
	assert.Nil(t, PaymasterCapabilities(" "))
}
