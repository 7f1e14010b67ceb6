// Package gameerr holds the error taxonomy of the game packages.
// Each named error wraps one of the kind errors, so callers may test for
// either the specific error or its kind with errors.Is.
package gameerr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrRateLimited       = errors.New("rate limited")
	ErrInvalidInput      = errors.New("invalid input")
)

type gameError struct {
	msg  string
	kind error
}

func (e *gameError) Error() string { return e.msg }
func (e *gameError) Unwrap() error { return e.kind }

func New(kind error, msg string) error {
	return &gameError{msg: msg, kind: kind}
}

//nolint:lll // readability
var (
	ErrPlayerNotFound     = New(ErrNotFound, "player not found")
	ErrCarNotFound        = New(ErrNotFound, "car not found")
	ErrAuctionNotFound    = New(ErrNotFound, "auction not found")
	ErrRaceNotFound       = New(ErrNotFound, "race not found")
	ErrTrackNotFound      = New(ErrNotFound, "track not found")
	ErrTournamentNotFound = New(ErrNotFound, "tournament not found")
	ErrTradeNotFound      = New(ErrNotFound, "trade offer not found")
	ErrNoCars             = New(ErrNotFound, "player owns no cars")

	ErrAuctionNotActive     = New(ErrInvalidState, "auction not active")
	ErrAuctionHasBids       = New(ErrInvalidState, "auction has bids")
	ErrCarInAuction         = New(ErrInvalidState, "car is listed in an auction")
	ErrRaceNotJoinable      = New(ErrInvalidState, "race not joinable")
	ErrRaceFull             = New(ErrInvalidState, "race full")
	ErrAlreadyJoined        = New(ErrInvalidState, "already joined")
	ErrNotEnoughPlayers     = New(ErrInvalidState, "not enough participants")
	ErrTournamentNotWaiting = New(ErrInvalidState, "tournament not waiting")
	ErrTournamentFull       = New(ErrInvalidState, "tournament full")
	ErrTournamentNotRunning = New(ErrInvalidState, "tournament not in progress")
	ErrNoOpenMatch          = New(ErrInvalidState, "no open match for player")
	ErrCityLocked           = New(ErrInvalidState, "city not unlocked")

	ErrBidTooLow      = New(ErrInvalidInput, "bid too low")
	ErrNotEnoughMoney = New(ErrInsufficientFunds, "insufficient funds")

	ErrSelfBid      = New(ErrPermissionDenied, "seller cannot bid on own auction")
	ErrNotSeller    = New(ErrPermissionDenied, "only the seller may cancel")
	ErrNotCreator   = New(ErrPermissionDenied, "only the creator may start")
	ErrNotRecipient = New(ErrPermissionDenied, "trade offer is addressed to another player")
	ErrNotAdmin     = New(ErrPermissionDenied, "invalid admin secret")
	ErrBanned       = New(ErrPermissionDenied, "banned")

	ErrTradeOnCooldown = New(ErrRateLimited, "trade on cooldown")
	ErrTooManyCommands = New(ErrRateLimited, "too many commands")

	ErrInvalidTradeItems = New(ErrInvalidInput, "invalid trade items")
	ErrInvalidAmount     = New(ErrInvalidInput, "invalid amount")
	ErrInvalidDuration   = New(ErrInvalidInput, "invalid duration")
	ErrMissingField      = New(ErrInvalidInput, "missing field")
	ErrUnknownCommand    = New(ErrInvalidInput, "unknown command")
)

// Wrap adds context to a named error while keeping it comparable
func Wrap(err error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Code returns a short machine readable code for the kind of err
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
