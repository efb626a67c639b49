package gm

import (
	"errors"

	"github.com/verichains/dailygm/wallet"
)

var (
	ErrNotConnected   = errors.New("wallet not connected")
	ErrBusy           = errors.New("a GM is already in flight")
	ErrCannotSend     = errors.New("GM already sent in the current period")
	ErrCooldownActive = errors.New("cooldown active")
	ErrReverted       = errors.New("GM transaction reverted")
)

const (
	StatusReadyToConnect    = "Ready to connect"
	StatusConnecting        = "Connecting..."
	StatusCreatingSub       = "Creating sub account..."
	StatusLoadingStats      = "Loading stats..."
	StatusConnected         = "Connected"
	StatusReady             = "Ready"
	StatusStatsFailed       = "Could not load stats"
	StatusConnectFirst      = "Please connect first"
	StatusAlreadySent       = "Already sent today"
	StatusSending           = "Sending..."
	StatusSubmitted         = "Transaction submitted"
	StatusSuccess           = "Success"
	StatusUnconfirmed       = "Transaction not confirmed yet"
	StatusConnectionFailed  = "Connection failed"
	StatusFailed            = "Transaction failed"
	StatusInsufficientFunds = "Insufficient funds, fund your account and try again"
	StatusCooldown          = "Cooldown active, come back later"
	StatusRejected          = "Transaction rejected"
	StatusConnectRejected   = "Connection rejected"
	StatusUnavailable       = "Wallet unavailable"
)

var txKindStatus = map[wallet.ErrorKind]string{
	wallet.KindInsufficientFunds: StatusInsufficientFunds,
	wallet.KindCooldownActive:    StatusCooldown,
	wallet.KindUserRejected:      StatusRejected,
	wallet.KindUnavailable:       StatusUnavailable,
}

var connectKindStatus = map[wallet.ErrorKind]string{
	wallet.KindUserRejected: StatusConnectRejected,
	wallet.KindUnavailable:  StatusUnavailable,
}

// statusForError maps a failed GM to the status shown to the user. Unclassified
// errors show their own message, or fallback when they have none.
func statusForError(err error, fallback string) string {
	if errors.Is(err, ErrCooldownActive) {
		return StatusCooldown
	}
	return lookupStatus(txKindStatus, err, fallback)
}

// connectStatusForError maps a failed connection to the status shown to the user.
func connectStatusForError(err error) string {
	return lookupStatus(connectKindStatus, err, StatusConnectionFailed)
}

func lookupStatus(table map[wallet.ErrorKind]string, err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if status, ok := table[wallet.KindOf(err)]; ok {
		return status
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
