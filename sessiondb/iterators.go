//
// Created on 2024/6/4 by khanghh
// Project: github.com/verichains/dailygm
// Copyright (c) 2024 Verichains Lab
//

package sessiondb

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
)

// GMTxIterator walks the GM history of an account from the newest entry to the oldest.
type GMTxIterator struct {
	db      ethdb.KeyValueReader
	account common.Address
	next    uint64
	index   uint64
	current *GMTx
}

func NewGMTxIterator(db ethdb.KeyValueReader, account common.Address) *GMTxIterator {
	return &GMTxIterator{
		db:      db,
		account: account,
		next:    ReadGMTxCount(db, account),
	}
}

func (it *GMTxIterator) Next() bool {
	for it.next > 0 {
		it.next--
		if entry := ReadGMTx(it.db, it.account, it.next); entry != nil {
			it.current, it.index = entry, it.next
			return true
		}
	}
	it.current = nil
	return false
}

func (it *GMTxIterator) Index() uint64 {
	return it.index
}

func (it *GMTxIterator) Value() *GMTx {
	return it.current
}
