//
// Created on 2024/6/4 by khanghh
// Project: github.com/verichains/dailygm
// Copyright (c) 2024 Verichains Lab
//

package sessiondb

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
)

func ReadLastSession(db ethdb.KeyValueReader) (common.Address, bool) {
	data, _ := db.Get(LastSessionKey)
	if len(data) != common.AddressLength {
		return common.Address{}, false
	}
	return common.BytesToAddress(data), true
}

func WriteLastSession(db ethdb.KeyValueWriter, universal common.Address) {
	if err := db.Put(LastSessionKey, universal.Bytes()); err != nil {
		log.Crit("Failed to store last session", "err", err)
	}
}

func DeleteLastSession(db ethdb.KeyValueWriter) {
	if err := db.Delete(LastSessionKey); err != nil {
		log.Crit("Failed to delete last session", "err", err)
	}
}

func ReadSession(db ethdb.KeyValueReader, universal common.Address) *Session {
	data, _ := db.Get(sessionKey(universal))
	if len(data) == 0 {
		return nil
	}
	session := new(Session)
	if err := rlp.DecodeBytes(data, session); err != nil {
		log.Error("Invalid session RLP", "universal", universal, "err", err)
		return nil
	}
	return session
}

func WriteSession(db ethdb.KeyValueWriter, session *Session) {
	data, err := rlp.EncodeToBytes(session)
	if err != nil {
		log.Crit("Failed to RLP encode session", "err", err)
	}
	if err := db.Put(sessionKey(session.Universal), data); err != nil {
		log.Crit("Failed to store session", "err", err)
	}
}

func DeleteSession(db ethdb.KeyValueWriter, universal common.Address) {
	if err := db.Delete(sessionKey(universal)); err != nil {
		log.Crit("Failed to delete session", "err", err)
	}
}

func ReadSubAccountLink(db ethdb.KeyValueReader, universal common.Address) (common.Address, bool) {
	data, _ := db.Get(subAccountLinkKey(universal))
	if len(data) != common.AddressLength {
		return common.Address{}, false
	}
	return common.BytesToAddress(data), true
}

func WriteSubAccountLink(db ethdb.KeyValueWriter, universal, sub common.Address) {
	if err := db.Put(subAccountLinkKey(universal), sub.Bytes()); err != nil {
		log.Crit("Failed to store sub account link", "err", err)
	}
}

func ReadGMTxCount(db ethdb.KeyValueReader, account common.Address) uint64 {
	data, _ := db.Get(gmTxCountKey(account))
	if len(data) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}

func WriteGMTxCount(db ethdb.KeyValueWriter, account common.Address, count uint64) {
	var enc [8]byte
	binary.BigEndian.PutUint64(enc[:], count)
	if err := db.Put(gmTxCountKey(account), enc[:]); err != nil {
		log.Crit("Failed to store gm count", "err", err)
	}
}

func ReadGMTx(db ethdb.KeyValueReader, account common.Address, index uint64) *GMTx {
	data, _ := db.Get(gmTxKey(account, index))
	if len(data) == 0 {
		return nil
	}
	entry := new(GMTx)
	if err := rlp.DecodeBytes(data, entry); err != nil {
		log.Error("Invalid gm tx RLP", "account", account, "index", index, "err", err)
		return nil
	}
	return entry
}

func WriteGMTx(db ethdb.KeyValueWriter, account common.Address, index uint64, entry *GMTx) {
	data, err := rlp.EncodeToBytes(entry)
	if err != nil {
		log.Crit("Failed to RLP encode gm tx", "err", err)
	}
	if err := db.Put(gmTxKey(account, index), data); err != nil {
		log.Crit("Failed to store gm tx", "err", err)
	}
}
