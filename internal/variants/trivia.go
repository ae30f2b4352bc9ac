package variants

import (
	"context"
	"strconv"
	"strings"
	"time"

	"puzzle-party/internal/content"
	"puzzle-party/internal/game"
)

const (
	triviaChoices    = 4
	triviaVoteOffers = 6
)

type TriviaView struct {
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty,omitempty"`
	Question   string   `json:"question"`
	Answers    []string `json:"answers"`
}

type TriviaReveal struct {
	Index  int    `json:"index"`
	Answer string `json:"answer"`
}

// Trivia plays multiple choice questions from a category the room votes on.
type Trivia struct {
	d Deps
}

func NewTrivia(d Deps) *Trivia { return &Trivia{d: d.withDefaults()} }

func (t *Trivia) Name() string { return KindTrivia }

func (t *Trivia) Rules() game.Rules {
	return game.Rules{
		PickMode:    game.PickVote,
		DefaultPick: strconv.Itoa(t.d.Content.Categories[0].ID),
		Disconnect:  game.DisconnectGrace,
		RecapDelay:  5 * time.Second,
		AutoReset:   true,
		Rounds:      game.Range{Min: 1, Max: 15, Default: 10},
		Seconds:     game.Range{Min: 10, Max: 30, Default: 20},
		MaxPlayers:  12,
	}
}

func (t *Trivia) BeginGame(context.Context) error { return nil }

// PickOptions offers a random subset of the category table.
func (t *Trivia) PickOptions() []game.PickOption {
	cats := t.d.Content.Categories
	idx := make([]int, len(cats))
	for i := range idx {
		idx[i] = i
	}
	picked := draw(idx, min(triviaVoteOffers, len(cats)), t.d.IntN)
	out := make([]game.PickOption, 0, len(picked))
	for _, i := range picked {
		out = append(out, game.PickOption{ID: strconv.Itoa(cats[i].ID), Label: cats[i].Name})
	}
	return out
}

// ParsePick matches a category id or its name among the offered options.
func (t *Trivia) ParsePick(raw string, options []game.PickOption) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, o := range options {
		if o.ID == raw || strings.EqualFold(o.Label, raw) {
			return o.ID, nil
		}
	}
	return "", game.ErrInvalidPick
}

func (t *Trivia) category(id string) content.Category {
	for _, c := range t.d.Content.Categories {
		if strconv.Itoa(c.ID) == id {
			return c
		}
	}
	return t.d.Content.Categories[0]
}

func (t *Trivia) GenerateRoundContent(ctx context.Context, _ int, pick string) (*game.Round, error) {
	q, err := t.d.Content.Questions.Question(ctx, t.category(pick))
	if err != nil {
		return nil, err
	}
	return &game.Round{
		Content: TriviaView{
			Category:   q.Category,
			Difficulty: q.Difficulty,
			Question:   q.Text,
			Answers:    q.Answers,
		},
		Canonical: TriviaReveal{Index: q.Correct, Answer: q.CorrectAnswer()},
		Secret:    q.Correct,
	}, nil
}

func (t *Trivia) ValidateSubmission(r *game.Round, raw string) (game.Answer, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || idx < 0 || idx >= triviaChoices {
		return game.Answer{}, invalid("answer must be 0 to 3")
	}
	correct := idx == r.Secret.(int)
	diff := 1
	if correct {
		diff = 0
	}
	return game.Answer{Value: idx, Diff: diff, Exact: correct, Detail: idx}, nil
}

func (t *Trivia) ScoreSubmission(_ *game.Round, sub game.Submission, sc game.ScoreContext) int {
	if !sub.Exact {
		return 0
	}
	left := sc.Duration - sub.At.Sub(sc.RoundStart)
	return t.d.Scoring.Decay.Points(left, sc.Duration, false)
}
