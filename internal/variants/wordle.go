package variants

import (
	"context"
	"regexp"
	"strings"
	"time"

	"puzzle-party/internal/game"
	"puzzle-party/internal/scoring"
)

const (
	wordLength = 6
	maxGuesses = 6
)

type Tile string

const (
	TileCorrect Tile = "correct"
	TilePresent Tile = "present"
	TileAbsent  Tile = "absent"
)

var guessPattern = regexp.MustCompile(`^[a-z]{6}$`)

// Row is one line of the shared board.
type Row struct {
	Word     string `json:"word"`
	Tiles    []Tile `json:"tiles"`
	PlayerID string `json:"player_id,omitempty"`
	Name     string `json:"name,omitempty"`
}

type WordleView struct {
	Guess      int   `json:"guess"`
	MaxGuesses int   `json:"max_guesses"`
	Length     int   `json:"length"`
	History    []Row `json:"history"`
}

type WordleRecap struct {
	History []Row  `json:"history"`
	Solved  bool   `json:"solved"`
	Word    string `json:"word,omitempty"`
}

// Wordle is a shared six-letter word hunt. Every round each player guesses
// once; the best guess joins the board everyone sees.
type Wordle struct {
	d       Deps
	secret  string
	history []Row
}

func NewWordle(d Deps) *Wordle { return &Wordle{d: d.withDefaults()} }

func (w *Wordle) Name() string { return KindWordle }

func (w *Wordle) Rules() game.Rules {
	return game.Rules{
		PickMode:        game.PickNone,
		Disconnect:      game.DisconnectGrace,
		RecapDelay:      3 * time.Second,
		FinalRecapDelay: 2 * time.Second,
		AutoReset:       true,
		Rounds:          game.Range{Min: maxGuesses, Max: maxGuesses, Default: maxGuesses},
		Seconds:         game.Range{Min: 30, Max: 120, Default: 60},
		MaxPlayers:      12,
	}
}

func (w *Wordle) BeginGame(ctx context.Context) error {
	word, err := w.d.Content.Words.SecretWord(ctx)
	if err != nil {
		return err
	}
	w.secret = word
	w.history = nil
	return nil
}

func (w *Wordle) PickOptions() []game.PickOption { return nil }
func (w *Wordle) ParsePick(string, []game.PickOption) (string, error) {
	return "", game.ErrInvalidPick
}

func (w *Wordle) GenerateRoundContent(_ context.Context, number int, _ string) (*game.Round, error) {
	return &game.Round{
		Content: WordleView{
			Guess:      number,
			MaxGuesses: maxGuesses,
			Length:     wordLength,
			History:    append([]Row(nil), w.history...),
		},
		Secret: w.secret,
	}, nil
}

func (w *Wordle) ValidateSubmission(r *game.Round, raw string) (game.Answer, error) {
	guess := strings.ToLower(strings.TrimSpace(raw))
	if !guessPattern.MatchString(guess) {
		return game.Answer{}, invalid("guess must be %d letters", wordLength)
	}
	if !w.d.Content.Words.IsValidGuess(guess) {
		return game.Answer{}, invalid("%q is not in the word list", guess)
	}
	secret, _ := r.Secret.(string)
	tiles := Compare(guess, secret)
	return game.Answer{Exact: guess == secret, Detail: Row{Word: guess, Tiles: tiles}}, nil
}

func (w *Wordle) ScoreSubmission(_ *game.Round, sub game.Submission, sc game.ScoreContext) int {
	row, _ := sub.Detail.(Row)
	correct, present := count(row.Tiles)
	ratio := scoring.SpeedRatio(sub.At, sc.Earliest, sc.Latest)
	return w.d.Scoring.Tiles.Points(correct, present, ratio, sub.Exact)
}

// FinishRound adds the round's best guess to the board. Ties go to the
// earlier submission. A solve ends the game.
func (w *Wordle) FinishRound(r *game.Round, results []game.Result) (any, bool) {
	best := -1
	bestScore := -1
	for i, res := range results {
		if !res.Submitted {
			continue
		}
		row, _ := res.Detail.(Row)
		s := tileScore(row.Tiles)
		if s > bestScore || (s == bestScore && res.Seq < results[best].Seq) {
			best, bestScore = i, s
		}
	}
	row := Row{}
	solved := false
	if best >= 0 {
		row, _ = results[best].Detail.(Row)
		row.PlayerID = results[best].PlayerID
		row.Name = results[best].Name
		solved = results[best].Exact
	}
	w.history = append(w.history, row)
	recap := WordleRecap{History: append([]Row(nil), w.history...), Solved: solved}
	if solved || r.Number >= maxGuesses {
		recap.Word = w.secret
	}
	return recap, solved
}

// Compare colours guess against secret: exact matches first, then remaining
// letters left to right while unmatched copies remain.
func Compare(guess, secret string) []Tile {
	tiles := make([]Tile, len(guess))
	left := map[byte]int{}
	for i := 0; i < len(guess); i++ {
		if i < len(secret) && guess[i] == secret[i] {
			tiles[i] = TileCorrect
			continue
		}
		if i < len(secret) {
			left[secret[i]]++
		}
	}
	for i := 0; i < len(guess); i++ {
		if tiles[i] == TileCorrect {
			continue
		}
		if left[guess[i]] > 0 {
			tiles[i] = TilePresent
			left[guess[i]]--
		} else {
			tiles[i] = TileAbsent
		}
	}
	return tiles
}

func count(tiles []Tile) (correct, present int) {
	for _, t := range tiles {
		switch t {
		case TileCorrect:
			correct++
		case TilePresent:
			present++
		}
	}
	return correct, present
}

func tileScore(tiles []Tile) int {
	c, p := count(tiles)
	return c*10 + p
}
