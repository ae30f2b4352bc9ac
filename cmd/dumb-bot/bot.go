package main

import (
	"context"
	"math/rand/v2"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"puzzle-party/internal/content"
	"puzzle-party/internal/game"
	"puzzle-party/internal/lobby"
	"puzzle-party/internal/solver"
	"puzzle-party/internal/variants"
)

type serverFrame struct {
	Type   string          `json:"type"`
	Action string          `json:"action"`
	Ok     bool            `json:"ok"`
	Error  string          `json:"error"`
	Event  string          `json:"event"`
	Room   string          `json:"room"`
	Data   json.RawMessage `json:"data"`
}

type clientFrame struct {
	Type    string `json:"type"`
	Variant string `json:"variant,omitempty"`
	Name    string `json:"name,omitempty"`
	Code    string `json:"code,omitempty"`
	Choice  string `json:"choice,omitempty"`
	Answer  string `json:"answer,omitempty"`
}

// bot plays whatever round the room starts: the solver answers numeric
// puzzles, trivia is a guess and wordle draws from the word bank.
type bot struct {
	words    content.WordSource
	intn     func(n int) int
	playerID string
	variant  string
}

func newBot(words content.WordSource) *bot {
	return &bot{words: words, intn: rand.IntN}
}

func (b *bot) hello(cfg botConfig) clientFrame {
	if cfg.RoomCode != "" {
		return clientFrame{Type: "join", Code: cfg.RoomCode, Name: cfg.Name}
	}
	return clientFrame{Type: "create", Variant: cfg.Variant, Name: cfg.Name}
}

func (b *bot) respond(ctx context.Context, f serverFrame) []clientFrame {
	switch f.Type {
	case "action_result":
		b.onResult(f)
		return nil
	case "event":
	default:
		return nil
	}
	switch f.Event {
	case game.EventRoomSnapshot:
		var snap game.Snapshot
		if json.Unmarshal(f.Data, &snap) == nil {
			b.variant = snap.Variant
		}
	case game.EventPickStarted:
		var ev game.PickStartedEvent
		if json.Unmarshal(f.Data, &ev) != nil || len(ev.Options) == 0 {
			return nil
		}
		if ev.Mode == game.PickDesignated && ev.PickerID != b.playerID {
			return nil
		}
		return []clientFrame{{Type: "pick", Choice: ev.Options[b.intn(len(ev.Options))].ID}}
	case game.EventRoundStarted:
		var ev game.RoundStartedEvent
		if json.Unmarshal(f.Data, &ev) != nil {
			return nil
		}
		answer, ok := b.answer(ctx, ev.Round)
		if !ok {
			return nil
		}
		log.Debug().Int("round", ev.Round.Number).Str("answer", answer).Msg("bot_submit")
		return []clientFrame{{Type: "submit", Answer: answer}}
	case game.EventGameOver:
		var ev game.GameOverEvent
		if json.Unmarshal(f.Data, &ev) == nil {
			log.Info().Str("winner", ev.Winner).Str("reason", ev.Reason).Msg("bot_game_over")
		}
	}
	return nil
}

func (b *bot) onResult(f serverFrame) {
	if !f.Ok {
		log.Warn().Str("action", f.Action).Str("error", f.Error).Msg("bot_action_rejected")
		return
	}
	if f.Action != "create" && f.Action != "join" {
		return
	}
	var id lobby.Identity
	if json.Unmarshal(f.Data, &id) != nil {
		return
	}
	b.playerID = id.PlayerID
	b.variant = id.Snapshot.Variant
	log.Info().Str("code", id.Code).Str("player_id", id.PlayerID).Msg("bot_seated")
}

func (b *bot) answer(ctx context.Context, r game.RoundView) (string, bool) {
	switch b.variant {
	case variants.KindGame24:
		if expr, ok := solver.Exact(r.Operands, r.Target); ok {
			return expr, true
		}
		return solver.Closest(r.Operands, r.Target).Expr, true
	case variants.KindCountdown:
		return solver.Closest(r.Operands, r.Target).Expr, true
	case variants.KindTrivia:
		return strconv.Itoa(b.intn(4)), true
	case variants.KindWordle:
		if b.words == nil {
			return "", false
		}
		w, err := b.words.SecretWord(ctx)
		if err != nil {
			return "", false
		}
		return w, true
	}
	return "", false
}
