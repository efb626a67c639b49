//
// Created on 2024/6/3 by khanghh
// Project: github.com/verichains/dailygm
// Copyright (c) 2024 Verichains Lab
//

package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrNoAccounts        = errors.New("no accounts returned")
	ErrUnsupportedMethod = errors.New("unsupported wallet method")
	ErrUnknownCalls      = errors.New("unknown calls id")
	ErrInvalidParams     = errors.New("invalid request params")
	ErrProviderClosed    = errors.New("wallet provider closed")
)

// EIP-1193 provider error codes
const (
	codeUserRejected      = 4001
	codeUnauthorized      = 4100
	codeUnsupportedMethod = 4200
	codeDisconnected      = 4900
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInsufficientFunds
	KindCooldownActive
	KindUserRejected
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindInsufficientFunds:
		return "insufficient funds"
	case KindCooldownActive:
		return "cooldown active"
	case KindUserRejected:
		return "user rejected"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Error is an error returned by the wallet or chain boundary tagged with the
// category it belongs to.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// phrases reported by wallets, nodes and the DailyGM contract revert reasons
var kindPhrases = []struct {
	kind    ErrorKind
	phrases []string
}{
	{KindUserRejected, []string{"user rejected", "user denied", "rejected by user", "request rejected"}},
	{KindInsufficientFunds, []string{"insufficient funds", "insufficient balance", "exceeds balance"}},
	{KindCooldownActive, []string{"cooldown", "already sent", "already said", "too early"}},
}

func kindFromMessage(msg string) ErrorKind {
	msg = strings.ToLower(msg)
	for _, entry := range kindPhrases {
		for _, phrase := range entry.phrases {
			if strings.Contains(msg, phrase) {
				return entry.kind
			}
		}
	}
	return KindUnknown
}

// Classify tags err with its category. It is a no-op for nil errors and for
// errors that are already tagged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	if errors.Is(err, core.ErrInsufficientFunds) || errors.Is(err, core.ErrInsufficientFundsForTransfer) {
		return NewError(KindInsufficientFunds, err)
	}
	if errors.Is(err, ErrProviderClosed) {
		return NewError(KindUnavailable, err)
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case codeUserRejected:
			return NewError(KindUserRejected, err)
		case codeUnauthorized, codeDisconnected:
			return NewError(KindUnavailable, err)
		}
	}
	msg := err.Error()
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		msg = fmt.Sprintf("%s %v", msg, dataErr.ErrorData())
	}
	return NewError(kindFromMessage(msg), err)
}

// KindOf returns the category of err, classifying it if needed.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var tagged *Error
	if errors.As(Classify(err), &tagged) {
		return tagged.Kind
	}
	return KindUnknown
}
