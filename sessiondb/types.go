package sessiondb

import (
	"github.com/ethereum/go-ethereum/common"
)

// Session is the persisted result of a wallet connection.
type Session struct {
	Universal   common.Address
	SubAccount  common.Address
	Factory     *common.Address `rlp:"nil"`
	FactoryData []byte
	ConnectedAt uint64
}

type GMTxStatus uint8

const (
	GMTxPending GMTxStatus = iota
	GMTxConfirmed
	GMTxFailed
)

func (s GMTxStatus) String() string {
	switch s {
	case GMTxConfirmed:
		return "confirmed"
	case GMTxFailed:
		return "failed"
	}
	return "pending"
}

// GMTx records a submitted GM. Ref is the transaction hash or the calls batch id.
type GMTx struct {
	Account common.Address
	Method  string
	Ref     string
	TxHash  common.Hash
	Time    uint64
	Status  GMTxStatus
}
