package game

import (
	"errors"
	"strings"
)

var (
	ErrRoomNotFound     = errors.New("room_not_found")
	ErrRoomFull         = errors.New("room_full")
	ErrGameInProgress   = errors.New("game_in_progress")
	ErrNotOwner         = errors.New("not_owner")
	ErrNotEnoughPlayers = errors.New("not_enough_players")
	ErrWrongPhase       = errors.New("wrong_phase")
	ErrNotYourTurn      = errors.New("not_your_turn")
	ErrAlreadySubmitted = errors.New("already_submitted")
	ErrAlreadyVoted     = errors.New("already_voted")
	ErrInvalidAnswer    = errors.New("invalid_answer")
	ErrInvalidPick      = errors.New("invalid_pick")
	ErrNotInRoom        = errors.New("not_in_room")
	ErrInvalidToken     = errors.New("invalid_token")
	ErrUnknownVariant   = errors.New("unknown_variant")
	ErrInternal         = errors.New("internal_error")
)

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindResource   ErrorKind = "resource"
	KindInternal   ErrorKind = "internal"
)

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrRoomNotFound, KindResource},
	{ErrNotEnoughPlayers, KindResource},
	{ErrUnknownVariant, KindResource},
	{ErrRoomFull, KindValidation},
	{ErrGameInProgress, KindValidation},
	{ErrNotOwner, KindValidation},
	{ErrWrongPhase, KindValidation},
	{ErrNotYourTurn, KindValidation},
	{ErrAlreadySubmitted, KindValidation},
	{ErrAlreadyVoted, KindValidation},
	{ErrInvalidAnswer, KindValidation},
	{ErrInvalidPick, KindValidation},
	{ErrNotInRoom, KindValidation},
	{ErrInvalidToken, KindValidation},
}

// ErrorCode maps err onto its wire code. Unknown errors become internal_error.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.err.Error()
		}
	}
	return ErrInternal.Error()
}

func Kind(err error) ErrorKind {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// ErrorDetail returns the human readable suffix of a wrapped error, if any.
func ErrorDetail(err error) string {
	if err == nil || Kind(err) == KindInternal {
		return ""
	}
	code := ErrorCode(err)
	msg := err.Error()
	if msg == code {
		return ""
	}
	return strings.TrimPrefix(strings.TrimPrefix(msg, code), ": ")
}
