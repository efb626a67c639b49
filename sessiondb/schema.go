//
// Created on 2024/6/4 by khanghh
// Project: github.com/verichains/dailygm
// Copyright (c) 2024 Verichains Lab
//

package sessiondb

import (
	"bytes"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

var (
	LastSessionKey = []byte("LastSession") // LastSessionKey tracks the universal account of the last connection.

	SessionPrefix        = []byte("s") // SessionPrefix + universal address -> session
	SubAccountLinkPrefix = []byte("l") // SubAccountLinkPrefix + universal address -> sub account address
	GMTxCountPrefix      = []byte("n") // GMTxCountPrefix + account address -> number of submitted GMs
	GMTxPrefix           = []byte("g") // GMTxPrefix + account address + index -> submitted GM
)

func sessionKey(universal common.Address) []byte {
	return append(append([]byte{}, SessionPrefix...), universal.Bytes()...)
}

func subAccountLinkKey(universal common.Address) []byte {
	return append(append([]byte{}, SubAccountLinkPrefix...), universal.Bytes()...)
}

func gmTxCountKey(account common.Address) []byte {
	return append(append([]byte{}, GMTxCountPrefix...), account.Bytes()...)
}

func tableElementKey(prefix []byte, addr common.Address, index uint64) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, prefix)
	binary.Write(buf, binary.BigEndian, addr.Bytes())
	binary.Write(buf, binary.BigEndian, index)
	return buf.Bytes()
}

func gmTxKey(account common.Address, index uint64) []byte {
	return tableElementKey(GMTxPrefix, account, index)
}
