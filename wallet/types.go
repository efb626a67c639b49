package wallet

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodAddSubAccount   = "wallet_addSubAccount"
	MethodSendTransaction = "eth_sendTransaction"
	MethodSendCalls       = "wallet_sendCalls"
	MethodGetCallsStatus  = "wallet_getCallsStatus"
)

// SubAccount is an app-scoped account owned by the universal account.
type SubAccount struct {
	Address     common.Address  `json:"address"`
	Factory     *common.Address `json:"factory,omitempty"`
	FactoryData hexutil.Bytes   `json:"factoryData,omitempty"`
}

type subAccountSpec struct {
	Type string `json:"type"`
}

type addSubAccountParams struct {
	Account subAccountSpec `json:"account"`
}

// TxArgs are the eth_sendTransaction parameters.
type TxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
}

type Call struct {
	To    *common.Address `json:"to,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
}

// SendCallsParams are the EIP-5792 wallet_sendCalls parameters.
type SendCallsParams struct {
	Version        string                 `json:"version"`
	ChainID        hexutil.Uint64         `json:"chainId"`
	From           common.Address         `json:"from"`
	AtomicRequired bool                   `json:"atomicRequired"`
	Calls          []Call                 `json:"calls"`
	Capabilities   map[string]interface{} `json:"capabilities,omitempty"`
}

type sendCallsResult struct {
	ID string `json:"id"`
}

// CallsStatusCode follows EIP-5792 status codes, the legacy string statuses
// are mapped onto them when decoding.
type CallsStatusCode int

const (
	CallsPending         CallsStatusCode = 100
	CallsConfirmed       CallsStatusCode = 200
	CallsOffchainFailure CallsStatusCode = 400
	CallsReverted        CallsStatusCode = 500
	CallsPartialReverted CallsStatusCode = 600
)

func (c *CallsStatusCode) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		*c = CallsStatusCode(code)
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	switch strings.ToUpper(text) {
	case "PENDING":
		*c = CallsPending
	case "CONFIRMED":
		*c = CallsConfirmed
	case "FAILED":
		*c = CallsOffchainFailure
	default:
		return fmt.Errorf("unknown calls status '%s'", text)
	}
	return nil
}

type CallReceipt struct {
	TransactionHash common.Hash    `json:"transactionHash"`
	BlockNumber     hexutil.Uint64 `json:"blockNumber"`
	Status          hexutil.Uint64 `json:"status"`
}

type CallsStatus struct {
	ID       string          `json:"id,omitempty"`
	Status   CallsStatusCode `json:"status"`
	Receipts []CallReceipt   `json:"receipts,omitempty"`
}

func (s *CallsStatus) Pending() bool {
	return s.Status < CallsConfirmed
}

func (s *CallsStatus) Confirmed() bool {
	return s.Status >= CallsConfirmed && s.Status < CallsOffchainFailure
}

// TxHash returns the hash of the last transaction of the batch, if any.
func (s *CallsStatus) TxHash() (common.Hash, bool) {
	if len(s.Receipts) == 0 {
		return common.Hash{}, false
	}
	return s.Receipts[len(s.Receipts)-1].TransactionHash, true
}
